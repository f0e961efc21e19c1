package campaign

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/hoyun5295-ctrl/TargetupAI-sub001/internal/dispatch"
	"github.com/hoyun5295-ctrl/TargetupAI-sub001/internal/domain"
	"github.com/hoyun5295-ctrl/TargetupAI-sub001/internal/filter"
	"github.com/hoyun5295-ctrl/TargetupAI-sub001/internal/personalize"
	"github.com/hoyun5295-ctrl/TargetupAI-sub001/internal/pkg/distlock"
)

// Deps are the collaborators the service is built from. Everything is an
// interface (or a pure engine) so tests can substitute fakes; nothing in
// this package touches a process-wide handle.
type Deps struct {
	Repo      Repository
	Runs      RunRepository
	Targets   TargetSource
	Writer    QueueWriter
	Queue     QueueStore
	Callbacks CallbackDirectory
	Progress  ProgressCache
	Engine    *personalize.Engine

	// NewLock creates a per-key advisory lock. Message edits on one
	// campaign are serialized through it.
	NewLock func(key string) distlock.DistLock
}

// Options tune policy knobs; zero values get defaults.
type Options struct {
	// LockWindow is how close to the scheduled instant mutations are
	// still allowed. Default 15 minutes.
	LockWindow time.Duration

	// EditBatchSize is how many pending records one message-edit batch
	// touches between progress writes. Default 200.
	EditBatchSize int

	// DefaultCallback is the tenant-default sender identity used when
	// neither the campaign nor the store directory provides one.
	DefaultCallback string
}

// Service implements the campaign dispatch pipeline. Safe for concurrent
// use if its collaborators are.
type Service struct {
	repo      Repository
	runs      RunRepository
	targets   TargetSource
	writer    QueueWriter
	queue     QueueStore
	callbacks CallbackDirectory
	progress  ProgressCache
	engine    *personalize.Engine
	newLock   func(key string) distlock.DistLock

	lockWindow      time.Duration
	editBatch       int
	defaultCallback string
	now             func() time.Time
}

// NewService wires a campaign service.
func NewService(d Deps, opts Options) *Service {
	if opts.LockWindow <= 0 {
		opts.LockWindow = 15 * time.Minute
	}
	if opts.EditBatchSize <= 0 {
		opts.EditBatchSize = 200
	}
	return &Service{
		repo:            d.Repo,
		runs:            d.Runs,
		targets:         d.Targets,
		writer:          d.Writer,
		queue:           d.Queue,
		callbacks:       d.Callbacks,
		progress:        d.Progress,
		engine:          d.Engine,
		newLock:         d.NewLock,
		lockWindow:      opts.LockWindow,
		editBatch:       opts.EditBatchSize,
		defaultCallback: opts.DefaultCallback,
		now:             time.Now,
	}
}

// SetClock pins the service clock. Intended for tests.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// Get returns a single campaign.
func (s *Service) Get(ctx context.Context, companyID, id string) (*domain.Campaign, error) {
	return s.repo.Get(ctx, companyID, id)
}

// List returns campaigns matching the filter.
func (s *Service) List(ctx context.Context, companyID string, f ListFilter) ([]domain.Campaign, int, error) {
	return s.repo.List(ctx, companyID, f)
}

// EstimateResult is the answer to "how many would this filter reach".
type EstimateResult struct {
	Count        int           `json:"count"`
	Unsubscribed int           `json:"unsubscribed"`
	Skipped      []filter.Skip `json:"skipped_entries,omitempty"`
}

// Estimate counts the recipients a filter document resolves to, using the
// exact predicate a send would use. Also reports how many matching
// customers are suppressed by unsubscribe entries, and which document
// entries were ignored.
func (s *Service) Estimate(ctx context.Context, companyID string, rawFilter json.RawMessage, opts ResolveOptions) (*EstimateResult, error) {
	doc, err := filter.Parse(rawFilter)
	if err != nil {
		return nil, err
	}

	count, err := s.targets.Count(ctx, companyID, doc, opts)
	if err != nil {
		return nil, fmt.Errorf("count targets: %w", err)
	}
	unsub, err := s.targets.CountUnsubscribed(ctx, companyID, doc, opts)
	if err != nil {
		return nil, fmt.Errorf("count unsubscribed: %w", err)
	}

	return &EstimateResult{Count: count, Unsubscribed: unsub, Skipped: doc.Skipped}, nil
}

// CreateInput holds the fields for creating a new campaign.
type CreateInput struct {
	Name             string             `json:"name"`
	Kind             domain.MessageKind `json:"message_type"`
	Subject          string             `json:"subject"`
	Content          string             `json:"message_content"`
	TargetFilter     json.RawMessage    `json:"target_filter"`
	ScheduledAt      *time.Time         `json:"scheduled_at"`
	SplitCount       int                `json:"split_count"`
	CallbackNumber   string             `json:"callback_number"`
	PerStoreCallback bool               `json:"per_store_callback"`
	IsAd             bool               `json:"is_ad"`
	ExcludedPhones   []string           `json:"excluded_phones"`
	CreatedBy        string             `json:"created_by"`
}

// Create validates and persists a new campaign in draft status, counting
// its current target set for display.
func (s *Service) Create(ctx context.Context, companyID string, input CreateInput) (*domain.Campaign, error) {
	if input.Name == "" {
		return nil, fmt.Errorf("name is required")
	}
	if input.Content == "" {
		return nil, fmt.Errorf("message content is required")
	}
	if !input.Kind.Valid() {
		return nil, fmt.Errorf("unknown message type %q", input.Kind)
	}

	doc, err := filter.Parse(input.TargetFilter)
	if err != nil {
		return nil, err
	}
	target, err := s.targets.Count(ctx, companyID, doc, ResolveOptions{ExcludePhones: input.ExcludedPhones})
	if err != nil {
		return nil, fmt.Errorf("count targets: %w", err)
	}

	c := &domain.Campaign{
		ID:               uuid.New().String(),
		CompanyID:        companyID,
		Name:             input.Name,
		Kind:             input.Kind,
		Subject:          input.Subject,
		Content:          input.Content,
		TargetFilter:     input.TargetFilter,
		ScheduledAt:      input.ScheduledAt,
		SplitCount:       input.SplitCount,
		CallbackNumber:   input.CallbackNumber,
		PerStoreCallback: input.PerStoreCallback,
		IsAd:             input.IsAd,
		ExcludedPhones:   input.ExcludedPhones,
		TargetCount:      target,
		CreatedBy:        input.CreatedBy,
		Status:           domain.CampaignDraft,
	}
	if _, err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// SendOverrides adjust delivery at send time without editing the campaign.
type SendOverrides struct {
	ScheduledAt *time.Time `json:"scheduled_at"`
	SplitCount  *int       `json:"split_count"`
	StoreCodes  []string   `json:"store_codes"`
}

// SendResult reports what a send accomplished. PartialError is set when
// some chunks failed but others were written; those records are already in
// the dispatch store and will be reconciled normally.
type SendResult struct {
	RunID        string `json:"run_id"`
	RunNo        int    `json:"run_no"`
	TargetCount  int    `json:"target_count"`
	Written      int    `json:"written"`
	PartialError string `json:"partial_error,omitempty"`
}

// Send executes the pipeline for one campaign: resolve recipients from the
// filter snapshot, personalize per recipient, append to the dispatch queue
// (split-send aware), and record the run. The campaign moves to sending,
// or to scheduled when the requested time is still in the future.
func (s *Service) Send(ctx context.Context, companyID, id string, ov SendOverrides) (*SendResult, error) {
	c, err := s.repo.Get(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if c.Status != domain.CampaignDraft {
		return nil, ErrInvalidTransition
	}

	doc, err := filter.Parse(c.TargetFilter)
	if err != nil {
		return nil, err
	}
	opts := ResolveOptions{ExcludePhones: c.ExcludedPhones, StoreCodes: ov.StoreCodes}
	customers, err := s.targets.Select(ctx, companyID, doc, opts)
	if err != nil {
		return nil, fmt.Errorf("resolve recipients: %w", err)
	}
	if len(customers) == 0 {
		return nil, ErrEmptyTarget
	}

	now := s.now()
	startAt := now
	switch {
	case ov.ScheduledAt != nil:
		startAt = *ov.ScheduledAt
	case c.ScheduledAt != nil && c.ScheduledAt.After(now):
		startAt = *c.ScheduledAt
	}
	split := c.SplitCount
	if ov.SplitCount != nil {
		split = *ov.SplitCount
	}

	run := &domain.CampaignRun{
		ID:             uuid.New().String(),
		CampaignID:     c.ID,
		FilterSnapshot: c.TargetFilter,
		TargetCount:    len(customers),
		PendingCount:   len(customers),
		Status:         domain.RunDispatched,
		ScheduledAt:    &startAt,
	}

	// Build every record up front so validation failures (a recipient
	// with no resolvable sender identity) surface before any write.
	recs := make([]dispatch.Record, 0, len(customers))
	for i := range customers {
		cust := &customers[i]
		callback, err := s.resolveCallback(ctx, c, cust)
		if err != nil {
			return nil, err
		}
		recs = append(recs, dispatch.Record{
			DestNo:   cust.Phone,
			Callback: callback,
			Subject:  s.engine.Render(c.Subject, cust),
			Body:     s.engine.Render(c.Content, cust),
			KindCode: c.Kind.WireCode(),
		})
	}

	if _, err := s.runs.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}
	tag := run.CorrelationTag()
	for i := range recs {
		recs[i].Tag = tag
	}

	res := s.writer.WriteAll(ctx, recs, startAt, split)
	if res.Written == 0 && res.FirstErr != nil {
		if stErr := s.runs.UpdateStatus(ctx, run.ID, domain.RunFailed); stErr != nil {
			log.Printf("[campaign.Service] mark run %s failed: %v", run.ID, stErr)
		}
		return nil, fmt.Errorf("write dispatch queue: %w", res.FirstErr)
	}

	status := domain.CampaignSending
	if startAt.After(now) {
		status = domain.CampaignScheduled
	}
	if err := s.repo.MarkSent(ctx, companyID, id, status, len(customers), res.Written, now); err != nil {
		return nil, fmt.Errorf("record send: %w", err)
	}

	out := &SendResult{
		RunID:       run.ID,
		RunNo:       run.RunNo,
		TargetCount: len(customers),
		Written:     res.Written,
	}
	if res.FirstErr != nil {
		out.PartialError = res.FirstErr.Error()
		log.Printf("[campaign.Service] campaign %s run %d: partial write (%d/%d): %v",
			c.ID, run.RunNo, res.Written, len(customers), res.FirstErr)
	} else {
		log.Printf("[campaign.Service] campaign %s run %d: %d records queued", c.ID, run.RunNo, res.Written)
	}
	return out, nil
}

// resolveCallback picks the effective sender identity for one recipient:
// the store's registered number (when per-store identity is on), then the
// campaign-level number, then the tenant default.
func (s *Service) resolveCallback(ctx context.Context, c *domain.Campaign, cust *domain.Customer) (string, error) {
	if c.PerStoreCallback && cust.StoreCode != "" && s.callbacks != nil {
		number, err := s.callbacks.Lookup(ctx, c.CompanyID, cust.StoreCode)
		if err != nil {
			return "", fmt.Errorf("lookup store callback: %w", err)
		}
		if number != "" {
			return number, nil
		}
	}
	if c.CallbackNumber != "" {
		return c.CallbackNumber, nil
	}
	if s.defaultCallback != "" {
		return s.defaultCallback, nil
	}
	return "", ErrNoCallback
}

// Preview renders the template against the first recipient the filter
// resolves, so an operator can sanity-check personalization before sending.
func (s *Service) Preview(ctx context.Context, companyID string, rawFilter json.RawMessage, template string, opts ResolveOptions) (string, error) {
	doc, err := filter.Parse(rawFilter)
	if err != nil {
		return "", err
	}
	customers, err := s.targets.Select(ctx, companyID, doc, opts)
	if err != nil {
		return "", fmt.Errorf("resolve recipients: %w", err)
	}
	if len(customers) == 0 {
		return "", ErrEmptyTarget
	}
	return s.engine.Render(template, &customers[0]), nil
}
