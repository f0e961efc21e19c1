package filter

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/hoyun5295-ctrl/TargetupAI-sub001/internal/normalize"
)

// Compiler turns a Document into a SQL predicate fragment plus bound
// arguments. The parameter-index cursor starts where the caller says, so
// fragments compose safely with caller-supplied predicates (tenant scope,
// consent, ownership).
//
// A Compiler is single-use: create one per query.
type Compiler struct {
	args    []interface{}
	idx     int
	refYear int
	prefix  string
	skipped []Skip
}

// NewCompiler creates a compiler whose first placeholder is $startIndex.
// The reference time fixes the year used for age-to-birth-year inversion.
func NewCompiler(startIndex int, reference time.Time) *Compiler {
	return &Compiler{
		args:    make([]interface{}, 0, 8),
		idx:     startIndex,
		refYear: reference.Year(),
	}
}

// SetTablePrefix qualifies column references (e.g. "c.") so fragments stay
// unambiguous inside queries that join or correlate other tables.
func (c *Compiler) SetTablePrefix(prefix string) *Compiler {
	c.prefix = prefix
	return c
}

// Args returns the bound values in placeholder order.
func (c *Compiler) Args() []interface{} { return c.args }

// NextIndex returns the next free placeholder index after compilation.
func (c *Compiler) NextIndex() int { return c.idx }

// Skipped returns the entries that did not constrain the query: parse-time
// skips from the document plus compile-time skips (unknown key, operator
// unsupported for the field's type).
func (c *Compiler) Skipped() []Skip { return c.skipped }

func (c *Compiler) nextArg(value interface{}) string {
	c.args = append(c.args, value)
	placeholder := fmt.Sprintf("$%d", c.idx)
	c.idx++
	return placeholder
}

func (c *Compiler) skip(key, reason string) {
	c.skipped = append(c.skipped, Skip{Key: key, Reason: reason})
}

// Compile emits the predicate fragment for the document. The fragment is
// either empty or begins with " AND ", ready to append to a WHERE clause
// that already has at least one condition.
func (c *Compiler) Compile(doc *Document) string {
	if doc == nil {
		return ""
	}
	c.skipped = append(c.skipped, doc.Skipped...)

	conds := make([]Condition, len(doc.Conditions))
	copy(conds, doc.Conditions)
	sort.SliceStable(conds, func(i, j int) bool { return conds[i].Key < conds[j].Key })

	var b strings.Builder
	for _, cond := range conds {
		frag := c.compileCondition(cond)
		if frag != "" {
			b.WriteString(" AND ")
			b.WriteString(frag)
		}
	}
	return b.String()
}

func (c *Compiler) compileCondition(cond Condition) string {
	if strings.HasPrefix(cond.Key, CustomPrefix) {
		return c.compileCustom(cond)
	}

	switch cond.Key {
	case "age":
		return c.compileAge(cond)
	case "gender":
		return c.compileVariant(cond, "gender", normalize.GenderVariants)
	case "grade":
		return c.compileVariant(cond, "grade", normalize.GradeVariants)
	case "region":
		return c.compileVariant(cond, "region", normalize.RegionVariants)
	}

	if col, ok := numericColumns[cond.Key]; ok {
		return c.compileNumeric(cond, col)
	}
	if col, ok := dateColumns[cond.Key]; ok {
		return c.compileOrdered(cond, c.prefix+col, false)
	}
	if col, ok := textColumns[cond.Key]; ok {
		return c.compileText(cond, col)
	}

	c.skip(cond.Key, "unknown attribute")
	return ""
}

// Filterable customer columns by declared type. Keys the document may use;
// values are physical column names.
var (
	numericColumns = map[string]string{
		"points":                 "points",
		"recent_purchase_amount": "recent_purchase_amount",
		"total_purchase_amount":  "total_purchase_amount",
	}
	dateColumns = map[string]string{
		"recent_purchase_at": "recent_purchase_at",
		"created_at":         "created_at",
	}
	textColumns = map[string]string{
		"name":              "name",
		"phone":             "phone",
		"email":             "email",
		"address":           "address",
		"store_code":        "store_code",
		"registration_type": "registration_type",
		"registered_store":  "registered_store",
	}
)

// compileAge inverts age arithmetic onto the stored birth year: a customer
// aged >= N this year was born in or before refYear-N.
func (c *Compiler) compileAge(cond Condition) string {
	col := c.prefix + "birth_year"
	switch cond.Op {
	case OpEq:
		return fmt.Sprintf("(%d - %s) = %s", c.refYear, col, c.nextArg(cond.Value))
	case OpGte:
		return fmt.Sprintf("(%d - %s) >= %s", c.refYear, col, c.nextArg(cond.Value))
	case OpLte:
		return fmt.Sprintf("(%d - %s) <= %s", c.refYear, col, c.nextArg(cond.Value))
	case OpBetween:
		return fmt.Sprintf("(%d - %s) BETWEEN %s AND %s",
			c.refYear, col, c.nextArg(cond.Value), c.nextArg(cond.ValueTo))
	default:
		c.skip(cond.Key, fmt.Sprintf("operator %s not supported for age", cond.Op))
		return ""
	}
}

// compileVariant expands each candidate value through the normalizer so a
// canonical filter value matches any historically-ingested spelling.
func (c *Compiler) compileVariant(cond Condition, col string, variants func(string) []string) string {
	var candidates []interface{}
	switch cond.Op {
	case OpEq:
		candidates = []interface{}{cond.Value}
	case OpIn:
		candidates = cond.Values
	default:
		c.skip(cond.Key, fmt.Sprintf("operator %s not supported for %s", cond.Op, col))
		return ""
	}

	var expanded []string
	for _, cand := range candidates {
		s, ok := cand.(string)
		if !ok {
			continue
		}
		expanded = append(expanded, variants(s)...)
	}
	if len(expanded) == 0 {
		c.skip(cond.Key, "no usable values")
		return ""
	}
	return fmt.Sprintf("%s%s = ANY(%s)", c.prefix, col, c.nextArg(pq.Array(expanded)))
}

func (c *Compiler) compileNumeric(cond Condition, col string) string {
	return c.compileOrdered(cond, c.prefix+col, false)
}

// compileOrdered handles eq/gte/lte/between over a directly comparable
// expression. When cast is true the expression is a side-channel text value
// and gets a numeric cast first.
func (c *Compiler) compileOrdered(cond Condition, expr string, cast bool) string {
	if cast {
		expr = "(" + expr + ")::numeric"
	}
	switch cond.Op {
	case OpEq:
		return fmt.Sprintf("%s = %s", expr, c.nextArg(cond.Value))
	case OpGte:
		return fmt.Sprintf("%s >= %s", expr, c.nextArg(cond.Value))
	case OpLte:
		return fmt.Sprintf("%s <= %s", expr, c.nextArg(cond.Value))
	case OpBetween:
		return fmt.Sprintf("%s BETWEEN %s AND %s", expr, c.nextArg(cond.Value), c.nextArg(cond.ValueTo))
	default:
		c.skip(cond.Key, fmt.Sprintf("operator %s not supported here", cond.Op))
		return ""
	}
}

func (c *Compiler) compileText(cond Condition, col string) string {
	expr := c.prefix + col
	switch cond.Op {
	case OpEq:
		return fmt.Sprintf("%s = %s", expr, c.nextArg(cond.Value))
	case OpContains:
		s, ok := cond.Value.(string)
		if !ok {
			c.skip(cond.Key, "contains requires a string value")
			return ""
		}
		return fmt.Sprintf("%s ILIKE %s", expr, c.nextArg("%"+s+"%"))
	case OpIn:
		return fmt.Sprintf("%s = ANY(%s)", expr, c.nextArg(pq.Array(stringsOf(cond.Values))))
	default:
		c.skip(cond.Key, fmt.Sprintf("operator %s not supported for %s", cond.Op, col))
		return ""
	}
}

// customKeyPattern limits side-channel keys to word characters and hangul;
// the key is interpolated into the json path, so anything else is skipped.
var customKeyPattern = regexp.MustCompile(`^[0-9A-Za-z_가-힣]+$`)

// compileCustom reads a key from the custom_fields side-channel. Ordered
// comparisons cast the text value to numeric; values that are not numeric
// for those operators are skipped rather than risking a bad cast at query
// time for the whole document.
func (c *Compiler) compileCustom(cond Condition) string {
	key := strings.TrimPrefix(cond.Key, CustomPrefix)
	if !customKeyPattern.MatchString(key) {
		c.skip(cond.Key, "invalid side-channel key")
		return ""
	}
	expr := fmt.Sprintf("%scustom_fields->>'%s'", c.prefix, key)

	switch cond.Op {
	case OpEq:
		if _, isNum := cond.Value.(float64); isNum {
			return c.compileOrdered(cond, expr, true)
		}
		return fmt.Sprintf("%s = %s", expr, c.nextArg(cond.Value))

	case OpGte, OpLte, OpBetween:
		if !isNumber(cond.Value) || (cond.Op == OpBetween && !isNumber(cond.ValueTo)) {
			c.skip(cond.Key, "ordered comparison needs numeric values")
			return ""
		}
		return c.compileOrdered(cond, expr, true)

	case OpContains:
		s, ok := cond.Value.(string)
		if !ok {
			c.skip(cond.Key, "contains requires a string value")
			return ""
		}
		return fmt.Sprintf("%s ILIKE %s", expr, c.nextArg("%"+s+"%"))

	case OpIn:
		return fmt.Sprintf("%s = ANY(%s)", expr, c.nextArg(pq.Array(stringsOf(cond.Values))))

	default:
		c.skip(cond.Key, fmt.Sprintf("operator %s not supported for side-channel keys", cond.Op))
		return ""
	}
}

func isNumber(v interface{}) bool {
	_, ok := v.(float64)
	return ok
}

// stringsOf renders IN-list members as text so they bind cleanly through
// pq.Array regardless of their JSON type.
func stringsOf(values []interface{}) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		switch t := v.(type) {
		case string:
			out = append(out, t)
		case float64:
			out = append(out, strconv.FormatFloat(t, 'f', -1, 64))
		default:
			out = append(out, fmt.Sprintf("%v", t))
		}
	}
	return out
}
