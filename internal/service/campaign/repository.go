package campaign

import (
	"context"
	"time"

	"github.com/hoyun5295-ctrl/TargetupAI-sub001/internal/dispatch"
	"github.com/hoyun5295-ctrl/TargetupAI-sub001/internal/domain"
	"github.com/hoyun5295-ctrl/TargetupAI-sub001/internal/filter"
	"github.com/hoyun5295-ctrl/TargetupAI-sub001/internal/pkg/progress"
)

// Repository defines the metadata-store contract for campaigns.
// Implementations must be safe for concurrent use.
type Repository interface {
	// Get returns a single campaign. Returns ErrNotFound if it doesn't exist.
	Get(ctx context.Context, companyID, id string) (*domain.Campaign, error)

	// List returns campaigns matching the filter, newest first, plus the
	// total matching count for pagination.
	List(ctx context.Context, companyID string, f ListFilter) ([]domain.Campaign, int, error)

	// Create inserts a new campaign and returns its ID.
	Create(ctx context.Context, c *domain.Campaign) (string, error)

	// UpdateContent replaces the message subject and body.
	UpdateContent(ctx context.Context, companyID, id, subject, content string) error

	// UpdateSchedule moves the scheduled instant.
	UpdateSchedule(ctx context.Context, companyID, id string, at time.Time) error

	// UpdateStatus transitions the campaign's status.
	UpdateStatus(ctx context.Context, companyID, id string, status domain.CampaignStatus) error

	// MarkSent records a successful dispatch: status, target/sent counts,
	// and the sent-at instant in one write.
	MarkSent(ctx context.Context, companyID, id string, status domain.CampaignStatus, target, sent int, sentAt time.Time) error

	// MarkCancelled soft-deletes: flips to cancelled and records why and
	// by which actor role.
	MarkCancelled(ctx context.Context, companyID, id, reason, actorRole string) error
}

// RunRepository defines the run-ledger contract.
type RunRepository interface {
	// Create inserts a run, assigning the next per-campaign run number.
	// The assigned number is written back to run.RunNo.
	Create(ctx context.Context, run *domain.CampaignRun) (string, error)

	// LatestByCampaign returns the newest run, or ErrNotFound if the
	// campaign has never been sent.
	LatestByCampaign(ctx context.Context, campaignID string) (*domain.CampaignRun, error)

	// UpdateStatus transitions a run's status.
	UpdateStatus(ctx context.Context, id string, status domain.RunStatus) error

	// UpdateSchedule moves a run's scheduled instant.
	UpdateSchedule(ctx context.Context, id string, at time.Time) error
}

// ResolveOptions carries the caller-scoped constraints the resolver adds
// on top of the filter document.
type ResolveOptions struct {
	// StoreCodes restricts matching to customers belonging to the given
	// stores (ownership scoping). Empty means unrestricted.
	StoreCodes []string

	// ExcludePhones are per-recipient manual removals from the campaign.
	ExcludePhones []string
}

// TargetSource resolves a filter document into recipients. Count and
// Select must compile the document identically so an estimate can never
// diverge from the actual send set.
type TargetSource interface {
	Count(ctx context.Context, companyID string, doc *filter.Document, opts ResolveOptions) (int, error)

	// CountUnsubscribed counts customers who match the filter but are
	// suppressed by an unsubscribe entry (surfaced with estimates).
	CountUnsubscribed(ctx context.Context, companyID string, doc *filter.Document, opts ResolveOptions) (int, error)

	Select(ctx context.Context, companyID string, doc *filter.Document, opts ResolveOptions) ([]domain.Customer, error)
}

// QueueWriter appends personalized records to the dispatch store.
type QueueWriter interface {
	WriteAll(ctx context.Context, recs []dispatch.Record, startAt time.Time, splitCount int) dispatch.WriteResult
}

// QueueStore reads and mutates existing dispatch-store records.
type QueueStore interface {
	CountByTag(ctx context.Context, tag string) (dispatch.Snapshot, error)
	DeletePending(ctx context.Context, tag string) (int, error)
	ShiftPending(ctx context.Context, tag string, delta time.Duration) (int, error)
	UpdatePendingBody(ctx context.Context, tag, destNo, subject, body string) (int, error)
}

// CallbackDirectory resolves per-store sender identities. Lookup returns
// "" (no error) when the store has no registered number.
type CallbackDirectory interface {
	Lookup(ctx context.Context, companyID, storeCode string) (string, error)
}

// ProgressCache is the ephemeral store for message-edit progress.
type ProgressCache interface {
	Set(ctx context.Context, campaignID string, p progress.Progress) error
	Get(ctx context.Context, campaignID string) (progress.Progress, bool, error)
}

// ListFilter controls pagination and filtering for campaign lists.
type ListFilter struct {
	Status string
	Limit  int
	Offset int
}
