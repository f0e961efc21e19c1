// Package personalize renders a message template against one recipient.
//
// Tokens are %label% where label is a personalization token from the field
// catalog. Values are read from the recipient's direct attributes first,
// then from the custom_fields side-channel. Numbers render with thousands
// separators, dates as YYYY-MM-DD, everything else verbatim. Any remaining
// token-shaped text after substitution is stripped so a renamed or
// misconfigured token never reaches an end recipient as raw placeholder
// syntax.
package personalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/hoyun5295-ctrl/TargetupAI-sub001/internal/domain"
	"github.com/hoyun5295-ctrl/TargetupAI-sub001/internal/fieldmap"
)

// Engine substitutes catalog tokens into templates. Pure: no I/O, safe for
// concurrent use.
type Engine struct {
	catalog *fieldmap.Catalog
	now     func() time.Time
}

// NewEngine creates an engine over the given catalog.
func NewEngine(catalog *fieldmap.Catalog) *Engine {
	return &Engine{catalog: catalog, now: time.Now}
}

// NewEngineAt pins the engine's clock, which fixes the year used for the
// age token. Intended for tests.
func NewEngineAt(catalog *fieldmap.Catalog, now func() time.Time) *Engine {
	return &Engine{catalog: catalog, now: now}
}

// residualToken matches leftover token-shaped text: percent-delimited runs
// of up to 20 non-space, non-percent characters.
var residualToken = regexp.MustCompile(`%[^%\s]{1,20}%`)

// Render substitutes every known token in the template with the
// recipient's formatted value, then strips any token-shaped residue.
// A template containing no recognized tokens is returned unchanged.
func (e *Engine) Render(template string, c *domain.Customer) string {
	if !strings.Contains(template, "%") {
		return template
	}

	out := template
	for _, f := range e.catalog.Fields() {
		token := "%" + f.Label + "%"
		if !strings.Contains(out, token) {
			continue
		}
		val, ok := e.lookup(f, c)
		if !ok {
			// Leave it for the residual strip below.
			continue
		}
		out = strings.ReplaceAll(out, token, e.format(f, val))
	}

	return residualToken.ReplaceAllString(out, "")
}

// lookup reads the recipient's value for one mapping: direct attribute
// first, side-channel fallback when the direct slot is empty or unknown.
func (e *Engine) lookup(f fieldmap.FieldMapping, c *domain.Customer) (string, bool) {
	if f.Storage == fieldmap.StorageColumn {
		if v, ok := e.columnValue(f, c); ok {
			return v, true
		}
	}
	if v, ok := c.CustomFields[f.Column]; ok && v != "" {
		return v, true
	}
	return "", false
}

func (e *Engine) columnValue(f fieldmap.FieldMapping, c *domain.Customer) (string, bool) {
	switch f.Column {
	case "name":
		return nonEmpty(c.Name)
	case "phone":
		return nonEmpty(c.Phone)
	case "gender":
		return nonEmpty(c.Gender)
	case "birth_year":
		if c.BirthYear == nil {
			return "", false
		}
		return strconv.Itoa(e.now().Year() - *c.BirthYear), true
	case "email":
		return nonEmpty(c.Email)
	case "address":
		return nonEmpty(c.Address)
	case "region":
		return nonEmpty(c.Region)
	case "grade":
		return nonEmpty(c.Grade)
	case "points":
		return strconv.Itoa(c.Points), true
	case "store_code":
		return nonEmpty(c.StoreCode)
	case "registration_type":
		return nonEmpty(c.RegistrationType)
	case "registered_store":
		return nonEmpty(c.RegisteredStore)
	case "store_phone":
		return nonEmpty(c.StorePhone)
	case "recent_purchase_store":
		return nonEmpty(c.RecentPurchaseStore)
	case "recent_purchase_amount":
		return strconv.FormatFloat(c.RecentPurchaseAmount, 'f', -1, 64), true
	case "total_purchase_amount":
		return strconv.FormatFloat(c.TotalPurchaseAmount, 'f', -1, 64), true
	case "recent_purchase_at":
		if c.RecentPurchaseAt == nil {
			return "", false
		}
		return c.RecentPurchaseAt.Format("2006-01-02"), true
	default:
		return "", false
	}
}

func nonEmpty(s string) (string, bool) {
	if s == "" {
		return "", false
	}
	return s, true
}

// format applies the mapping's declared type: thousands separators for
// numbers, YYYY-MM-DD for dates, verbatim otherwise.
func (e *Engine) format(f fieldmap.FieldMapping, raw string) string {
	switch f.Type {
	case fieldmap.TypeNumber:
		if n, err := strconv.ParseFloat(raw, 64); err == nil {
			return groupDigits(n)
		}
		return raw
	case fieldmap.TypeDate:
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			return t.Format("2006-01-02")
		}
		if len(raw) >= 10 {
			return raw[:10]
		}
		return raw
	default:
		return raw
	}
}

// groupDigits renders n with comma separators ("1234567" -> "1,234,567").
// Fractional parts are kept as-is.
func groupDigits(n float64) string {
	s := strconv.FormatFloat(n, 'f', -1, 64)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	intPart, fracPart, hasFrac := strings.Cut(s, ".")

	var b strings.Builder
	for i, d := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(d)
	}
	out := b.String()
	if hasFrac {
		out += "." + fracPart
	}
	if neg {
		out = "-" + out
	}
	return out
}
