// Package fieldmap is the single source of truth for which customer
// attributes exist, where each is physically stored, and which
// personalization token each maps to.
//
// Every component that needs to interpret an attribute key (the filter
// compiler, the personalization engine, the fields API) goes through a
// Catalog compiled by this package.
package fieldmap

import "sort"

// ValueType declares how a field's value is compared and formatted.
type ValueType string

const (
	TypeString  ValueType = "string"
	TypeNumber  ValueType = "number"
	TypeDate    ValueType = "date"
	TypeBoolean ValueType = "boolean"
)

// Storage declares where a field physically lives on the customer row.
type Storage string

const (
	// StorageColumn means a dedicated column on the customers table.
	StorageColumn Storage = "column"
	// StorageCustom means a key inside the custom_fields JSONB side-channel.
	StorageCustom Storage = "custom_fields"
)

// FieldMapping describes one personalization token: its stable key, the
// human label used as the %label% token, where the value is stored, its
// declared type, and its display order.
type FieldMapping struct {
	Key       string    `json:"field_key"`
	Label     string    `json:"display_name"`
	Type      ValueType `json:"data_type"`
	Storage   Storage   `json:"storage_type"`
	Column    string    `json:"column_name"`
	SortOrder int       `json:"sort_order"`
}

// FieldDef is one tenant-supplied schema entry. Tenants typically only
// relabel the custom slots, but any well-formed entry is accepted.
type FieldDef struct {
	Key     string    `json:"field_key"`
	Label   string    `json:"display_name"`
	Type    ValueType `json:"data_type"`
	Storage Storage   `json:"storage_type"`
	Column  string    `json:"column_name"`
}

// standardFields is the fixed attribute schema shared by every tenant.
// Age is declared over birth_year: the stored value is a birth year and
// both filtering and rendering derive age from it.
var standardFields = []FieldMapping{
	{Key: "name", Label: "고객명", Type: TypeString, Storage: StorageColumn, Column: "name", SortOrder: 1},
	{Key: "phone", Label: "고객전화번호", Type: TypeString, Storage: StorageColumn, Column: "phone", SortOrder: 2},
	{Key: "gender", Label: "성별", Type: TypeString, Storage: StorageColumn, Column: "gender", SortOrder: 3},
	{Key: "age", Label: "나이", Type: TypeNumber, Storage: StorageColumn, Column: "birth_year", SortOrder: 4},
	{Key: "email", Label: "이메일주소", Type: TypeString, Storage: StorageColumn, Column: "email", SortOrder: 5},
	{Key: "address", Label: "주소", Type: TypeString, Storage: StorageColumn, Column: "address", SortOrder: 6},
	{Key: "region", Label: "지역", Type: TypeString, Storage: StorageColumn, Column: "region", SortOrder: 7},
	{Key: "recent_purchase_store", Label: "최근구매매장", Type: TypeString, Storage: StorageColumn, Column: "recent_purchase_store", SortOrder: 8},
	{Key: "recent_purchase_amount", Label: "최근구매금액", Type: TypeNumber, Storage: StorageColumn, Column: "recent_purchase_amount", SortOrder: 9},
	{Key: "total_purchase_amount", Label: "누적구매금액", Type: TypeNumber, Storage: StorageColumn, Column: "total_purchase_amount", SortOrder: 10},
	{Key: "recent_purchase_at", Label: "최근구매일", Type: TypeDate, Storage: StorageColumn, Column: "recent_purchase_at", SortOrder: 11},
	{Key: "store_code", Label: "브랜드", Type: TypeString, Storage: StorageColumn, Column: "store_code", SortOrder: 12},
	{Key: "registration_type", Label: "등록구분", Type: TypeString, Storage: StorageColumn, Column: "registration_type", SortOrder: 13},
	{Key: "registered_store", Label: "등록매장정보", Type: TypeString, Storage: StorageColumn, Column: "registered_store", SortOrder: 14},
	{Key: "store_phone", Label: "매장전화번호", Type: TypeString, Storage: StorageColumn, Column: "store_phone", SortOrder: 15},
	{Key: "grade", Label: "고객등급", Type: TypeString, Storage: StorageColumn, Column: "grade", SortOrder: 16},
	{Key: "points", Label: "보유포인트", Type: TypeNumber, Storage: StorageColumn, Column: "points", SortOrder: 17},
}

// Catalog is the compiled view of a tenant's attribute schema.
type Catalog struct {
	byKey   map[string]FieldMapping
	byLabel map[string]FieldMapping
	ordered []FieldMapping
}

// Compile builds a catalog from the standard schema plus the tenant's own
// entries. Deterministic for a given schema. Never fails: malformed entries
// (missing key/label, unknown type or storage, custom entry without a
// column) are omitted rather than reported.
func Compile(schema []FieldDef) *Catalog {
	c := &Catalog{
		byKey:   make(map[string]FieldMapping),
		byLabel: make(map[string]FieldMapping),
	}

	for _, f := range standardFields {
		c.add(f)
	}

	order := len(standardFields)
	for _, def := range schema {
		if def.Key == "" || def.Label == "" {
			continue
		}
		switch def.Type {
		case TypeString, TypeNumber, TypeDate, TypeBoolean:
		default:
			continue
		}
		storage := def.Storage
		if storage == "" {
			storage = StorageCustom
		}
		if storage != StorageColumn && storage != StorageCustom {
			continue
		}
		column := def.Column
		if column == "" {
			if storage == StorageColumn {
				continue
			}
			column = def.Key
		}
		order++
		c.add(FieldMapping{
			Key: def.Key, Label: def.Label, Type: def.Type,
			Storage: storage, Column: column, SortOrder: order,
		})
	}

	sort.SliceStable(c.ordered, func(i, j int) bool {
		return c.ordered[i].SortOrder < c.ordered[j].SortOrder
	})
	return c
}

// add registers a mapping; a later entry with the same key or label
// replaces the earlier one (tenant schema overrides the standard schema).
func (c *Catalog) add(f FieldMapping) {
	if prev, ok := c.byKey[f.Key]; ok {
		delete(c.byLabel, prev.Label)
		c.removeOrdered(prev)
	}
	if prev, ok := c.byLabel[f.Label]; ok && prev.Key != f.Key {
		delete(c.byKey, prev.Key)
		c.removeOrdered(prev)
	}
	c.byKey[f.Key] = f
	c.byLabel[f.Label] = f
	c.ordered = append(c.ordered, f)
}

func (c *Catalog) removeOrdered(f FieldMapping) {
	for i := range c.ordered {
		if c.ordered[i].Key == f.Key {
			c.ordered = append(c.ordered[:i], c.ordered[i+1:]...)
			return
		}
	}
}

// ByKey looks a mapping up by its stable field key.
func (c *Catalog) ByKey(key string) (FieldMapping, bool) {
	f, ok := c.byKey[key]
	return f, ok
}

// ByLabel looks a mapping up by its personalization token label.
func (c *Catalog) ByLabel(label string) (FieldMapping, bool) {
	f, ok := c.byLabel[label]
	return f, ok
}

// Fields returns every mapping in display order.
func (c *Catalog) Fields() []FieldMapping {
	out := make([]FieldMapping, len(c.ordered))
	copy(out, c.ordered)
	return out
}

// Tokens returns the personalization token labels in display order.
func (c *Catalog) Tokens() []string {
	out := make([]string, 0, len(c.ordered))
	for _, f := range c.ordered {
		out = append(out, f.Label)
	}
	return out
}

// Standard returns a catalog with only the fixed schema, for tenants that
// have not configured custom slots.
func Standard() *Catalog {
	return Compile(nil)
}
