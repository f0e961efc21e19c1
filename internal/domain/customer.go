package domain

import "time"

// Customer is one addressable recipient. Rows are created and updated by
// ingestion collaborators; the dispatch pipeline only reads them.
//
// Fixed attributes live in dedicated columns. Tenant-specific attributes
// live in the CustomFields side-channel (a JSONB map keyed by custom slot).
type Customer struct {
	ID        string `json:"id" db:"id"`
	CompanyID string `json:"company_id" db:"company_id"`

	Name   string `json:"name" db:"name"`
	Phone  string `json:"phone" db:"phone"`
	Gender string `json:"gender" db:"gender"`

	// BirthYear is stored instead of age; age filters and the %나이%
	// personalization token derive age from it at evaluation time.
	BirthYear *int `json:"birth_year" db:"birth_year"`

	Email   string `json:"email" db:"email"`
	Address string `json:"address" db:"address"`
	Region  string `json:"region" db:"region"`
	Grade   string `json:"grade" db:"grade"`
	Points  int    `json:"points" db:"points"`

	StoreCode        string `json:"store_code" db:"store_code"`
	RegistrationType string `json:"registration_type" db:"registration_type"`
	RegisteredStore  string `json:"registered_store" db:"registered_store"`
	StorePhone       string `json:"store_phone" db:"store_phone"`

	RecentPurchaseStore  string     `json:"recent_purchase_store" db:"recent_purchase_store"`
	RecentPurchaseAmount float64    `json:"recent_purchase_amount" db:"recent_purchase_amount"`
	TotalPurchaseAmount  float64    `json:"total_purchase_amount" db:"total_purchase_amount"`
	RecentPurchaseAt     *time.Time `json:"recent_purchase_at" db:"recent_purchase_at"`

	SMSOptIn bool `json:"sms_opt_in" db:"sms_opt_in"`
	IsActive bool `json:"is_active" db:"is_active"`

	CustomFields map[string]string `json:"custom_fields" db:"custom_fields"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Unsubscribe suppresses all future dispatch to a (tenant, phone) pair,
// regardless of the customer's consent flag. Deleting the row re-enables
// dispatch.
type Unsubscribe struct {
	ID        string    `json:"id" db:"id"`
	CompanyID string    `json:"company_id" db:"company_id"`
	Phone     string    `json:"phone" db:"phone"`
	Reason    string    `json:"reason" db:"reason"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
