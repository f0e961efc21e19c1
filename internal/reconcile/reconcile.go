// Package reconcile folds dispatch-store outcomes back into the run ledger
// and campaign metadata. The dispatch store is the source of truth for
// per-record outcomes; this package only reads its status snapshot and
// writes absolute counters, so running it any number of times converges on
// the same state.
package reconcile

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/hoyun5295-ctrl/TargetupAI-sub001/internal/dispatch"
	"github.com/hoyun5295-ctrl/TargetupAI-sub001/internal/domain"
)

// Decision is the state a run (and its campaign) should be moved to, given
// a dispatch-store snapshot. Counters are absolutes, not deltas.
type Decision struct {
	Success int
	Fail    int
	Pending int

	RunStatus      domain.RunStatus
	CampaignStatus domain.CampaignStatus

	// Terminal reports whether the run has fully drained. Only terminal
	// decisions change campaign status.
	Terminal bool
}

// Reduce maps a snapshot onto the run's next state. Pure; all persistence
// decisions flow from its output.
//
// A drained run with zero successes and at least one failure marks the
// campaign failed; any other drained run marks it completed (including the
// empty-queue case, where records were purged externally).
func Reduce(run *domain.CampaignRun, snap dispatch.Snapshot) Decision {
	d := Decision{
		Success: snap.Success,
		Fail:    snap.Fail,
		Pending: snap.Pending,
	}
	if snap.Pending > 0 {
		d.RunStatus = domain.RunDispatched
		d.CampaignStatus = domain.CampaignSending
		return d
	}
	d.Terminal = true
	if snap.Success == 0 && snap.Fail > 0 {
		d.RunStatus = domain.RunFailed
		d.CampaignStatus = domain.CampaignFailed
	} else {
		d.RunStatus = domain.RunCompleted
		d.CampaignStatus = domain.CampaignCompleted
	}
	return d
}

// Runs is the slice of the run ledger the reconciler consumes.
type Runs interface {
	ListOpen(ctx context.Context) ([]domain.CampaignRun, error)
	ApplyCounts(ctx context.Context, id string, success, fail, pending int, status domain.RunStatus, completedAt *time.Time) error
}

// Campaigns is the slice of campaign metadata the reconciler consumes.
type Campaigns interface {
	MarkDueSending(ctx context.Context, now time.Time) (int, error)
	ApplyRunResult(ctx context.Context, id string, success, fail int, status domain.CampaignStatus, completedAt *time.Time) error
	UpdateCounters(ctx context.Context, id string, success, fail int) error
}

// Queue reads outcome snapshots from the dispatch store.
type Queue interface {
	CountByTag(ctx context.Context, tag string) (dispatch.Snapshot, error)
}

// Summary reports one reconciliation pass.
type Summary struct {
	DueFlipped int `json:"due_flipped"`
	Reconciled int `json:"reconciled"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
	Errors     int `json:"errors"`
}

// Reconciler drives periodic reconciliation passes.
type Reconciler struct {
	runs      Runs
	campaigns Campaigns
	queue     Queue
	now       func() time.Time
}

// New creates a reconciler.
func New(runs Runs, campaigns Campaigns, queue Queue) *Reconciler {
	return &Reconciler{runs: runs, campaigns: campaigns, queue: queue, now: time.Now}
}

// SetClock pins the reconciler clock. Intended for tests.
func (r *Reconciler) SetClock(now func() time.Time) { r.now = now }

// Run executes one pass: flip due scheduled campaigns to sending, then
// fold every open run's snapshot into the ledger. A failure on one run is
// logged and counted; the pass continues with the rest.
func (r *Reconciler) Run(ctx context.Context) (Summary, error) {
	var sum Summary
	now := r.now()

	flipped, err := r.campaigns.MarkDueSending(ctx, now)
	if err != nil {
		return sum, fmt.Errorf("flip due campaigns: %w", err)
	}
	sum.DueFlipped = flipped

	open, err := r.runs.ListOpen(ctx)
	if err != nil {
		return sum, fmt.Errorf("list open runs: %w", err)
	}

	for i := range open {
		run := &open[i]
		if err := r.reconcileRun(ctx, run, now, &sum); err != nil {
			sum.Errors++
			log.Printf("[reconcile.Reconciler] run %s (campaign %s): %v", run.ID, run.CampaignID, err)
		}
	}
	log.Printf("[reconcile.Reconciler] pass done: %d due flipped, %d reconciled, %d completed, %d failed, %d errors",
		sum.DueFlipped, sum.Reconciled, sum.Completed, sum.Failed, sum.Errors)
	return sum, nil
}

func (r *Reconciler) reconcileRun(ctx context.Context, run *domain.CampaignRun, now time.Time, sum *Summary) error {
	snap, err := r.queue.CountByTag(ctx, run.CorrelationTag())
	if err != nil {
		return fmt.Errorf("count by tag: %w", err)
	}

	d := Reduce(run, snap)

	var completedAt *time.Time
	if d.Terminal {
		completedAt = &now
	}
	if err := r.runs.ApplyCounts(ctx, run.ID, d.Success, d.Fail, d.Pending, d.RunStatus, completedAt); err != nil {
		return err
	}

	if d.Terminal {
		if err := r.campaigns.ApplyRunResult(ctx, run.CampaignID, d.Success, d.Fail, d.CampaignStatus, completedAt); err != nil {
			return err
		}
		switch d.CampaignStatus {
		case domain.CampaignFailed:
			sum.Failed++
		default:
			sum.Completed++
		}
	} else if err := r.campaigns.UpdateCounters(ctx, run.CampaignID, d.Success, d.Fail); err != nil {
		return err
	}

	sum.Reconciled++
	return nil
}
