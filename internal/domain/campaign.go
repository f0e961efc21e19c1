package domain

import (
	"encoding/json"
	"time"
)

// CampaignStatus enumerates the lifecycle states of a campaign.
type CampaignStatus string

const (
	CampaignDraft     CampaignStatus = "draft"
	CampaignScheduled CampaignStatus = "scheduled"
	CampaignSending   CampaignStatus = "sending"
	CampaignCompleted CampaignStatus = "completed"
	CampaignFailed    CampaignStatus = "failed"
	CampaignCancelled CampaignStatus = "cancelled"
)

// MessageKind enumerates the message classes the dispatch network accepts.
type MessageKind string

const (
	KindSMS MessageKind = "sms"
	KindLMS MessageKind = "lms"
	KindMMS MessageKind = "mms"
)

// WireCode returns the single-letter type code the dispatch store expects.
func (k MessageKind) WireCode() string {
	switch k {
	case KindLMS:
		return "L"
	case KindMMS:
		return "M"
	default:
		return "S"
	}
}

// Valid reports whether the kind is one the pipeline can dispatch.
func (k MessageKind) Valid() bool {
	return k == KindSMS || k == KindLMS || k == KindMMS
}

// Campaign represents one marketing send intent: a filter over the customer
// base plus a message template and delivery configuration. Campaigns are
// never physically deleted, only transitioned to cancelled.
type Campaign struct {
	ID        string      `json:"id" db:"id"`
	CompanyID string      `json:"company_id" db:"company_id"`
	Name      string      `json:"name" db:"name"`
	Kind      MessageKind `json:"message_type" db:"message_type"`
	Subject   string      `json:"subject" db:"subject"`
	Content   string      `json:"message_content" db:"message_content"`

	// TargetFilter is the filter document as submitted by the operator.
	// It is parsed into a typed document at the service boundary; the raw
	// form is kept so runs can snapshot exactly what was requested.
	TargetFilter json.RawMessage `json:"target_filter" db:"target_filter"`

	ScheduledAt *time.Time     `json:"scheduled_at" db:"scheduled_at"`
	Status      CampaignStatus `json:"status" db:"status"`
	IsAd        bool           `json:"is_ad" db:"is_ad"`

	// SplitCount > 0 enables split-send: recipients are dispatched in
	// chunks of this size, each chunk one interval later than the last.
	SplitCount int `json:"split_count" db:"split_count"`

	// CallbackNumber is the campaign-level sender identity. Empty means
	// fall back to the per-store directory or the tenant default.
	CallbackNumber   string `json:"callback_number" db:"callback_number"`
	PerStoreCallback bool   `json:"per_store_callback" db:"per_store_callback"`

	// ExcludedPhones are recipients manually removed by the operator,
	// subtracted from the resolved set regardless of the filter.
	ExcludedPhones []string `json:"excluded_phones" db:"excluded_phones"`

	TargetCount  int `json:"target_count" db:"target_count"`
	SentCount    int `json:"sent_count" db:"sent_count"`
	SuccessCount int `json:"success_count" db:"success_count"`
	FailCount    int `json:"fail_count" db:"fail_count"`

	CancelReason    string `json:"cancel_reason,omitempty" db:"cancel_reason"`
	CancelledByRole string `json:"cancelled_by_role,omitempty" db:"cancelled_by_role"`

	CreatedBy   string     `json:"created_by" db:"created_by"`
	SentAt      *time.Time `json:"sent_at" db:"sent_at"`
	CompletedAt *time.Time `json:"completed_at" db:"completed_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// IsTerminal returns true if the campaign is in a final state.
func (c *Campaign) IsTerminal() bool {
	return c.Status == CampaignCompleted || c.Status == CampaignFailed || c.Status == CampaignCancelled
}
