package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// RunStatus enumerates the lifecycle states of a single send attempt.
type RunStatus string

const (
	// RunDispatched means queue records have been written and the run is
	// waiting for the dispatch network to drain them.
	RunDispatched RunStatus = "dispatched"
	RunCompleted  RunStatus = "completed"
	RunFailed     RunStatus = "failed"
	RunCancelled  RunStatus = "cancelled"
)

// IsTerminal returns true if the run will never be reconciled again.
func (s RunStatus) IsTerminal() bool {
	return s == RunCompleted || s == RunFailed || s == RunCancelled
}

// CampaignRun is one execution attempt of a campaign. The filter snapshot is
// immutable: later edits to the campaign's filter cannot retroactively alter
// what this run targeted.
type CampaignRun struct {
	ID         string `json:"id" db:"id"`
	CampaignID string `json:"campaign_id" db:"campaign_id"`

	// RunNo increases monotonically per campaign, starting at 1.
	RunNo int `json:"run_no" db:"run_no"`

	FilterSnapshot json.RawMessage `json:"filter_snapshot" db:"filter_snapshot"`

	TargetCount  int `json:"target_count" db:"target_count"`
	SuccessCount int `json:"success_count" db:"success_count"`
	FailCount    int `json:"fail_count" db:"fail_count"`
	PendingCount int `json:"pending_count" db:"pending_count"`

	Status      RunStatus  `json:"status" db:"status"`
	ScheduledAt *time.Time `json:"scheduled_at" db:"scheduled_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	CompletedAt *time.Time `json:"completed_at" db:"completed_at"`
}

// CorrelationTag returns the tag written into every dispatch queue record
// belonging to this run. Each tag resolves to exactly one campaign/run pair.
func (r *CampaignRun) CorrelationTag() string {
	return fmt.Sprintf("%s:%d", r.CampaignID, r.RunNo)
}
