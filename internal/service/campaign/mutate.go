package campaign

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/hoyun5295-ctrl/TargetupAI-sub001/internal/domain"
	"github.com/hoyun5295-ctrl/TargetupAI-sub001/internal/filter"
	"github.com/hoyun5295-ctrl/TargetupAI-sub001/internal/pkg/progress"
)

// mutationGuard enforces the schedule mutation policy: only scheduled
// campaigns can be mutated, and only while the scheduled instant is still
// further away than the lock window.
func (s *Service) mutationGuard(c *domain.Campaign) error {
	if c.Status != domain.CampaignScheduled {
		return ErrInvalidTransition
	}
	if c.ScheduledAt == nil {
		return ErrInvalidTransition
	}
	if c.ScheduledAt.Sub(s.now()) < s.lockWindow {
		return ErrTooLate
	}
	return nil
}

// Cancel withdraws a scheduled campaign: pending dispatch records are
// deleted, the run is marked cancelled, and the campaign records who
// cancelled it and why. Returns how many queued records were removed.
func (s *Service) Cancel(ctx context.Context, companyID, id, reason, actorRole string) (int, error) {
	c, err := s.repo.Get(ctx, companyID, id)
	if err != nil {
		return 0, err
	}
	if err := s.mutationGuard(c); err != nil {
		return 0, err
	}

	removed := 0
	run, err := s.runs.LatestByCampaign(ctx, id)
	switch {
	case err == nil:
		removed, err = s.queue.DeletePending(ctx, run.CorrelationTag())
		if err != nil {
			return 0, fmt.Errorf("delete pending records: %w", err)
		}
		if err := s.runs.UpdateStatus(ctx, run.ID, domain.RunCancelled); err != nil {
			return 0, fmt.Errorf("mark run cancelled: %w", err)
		}
	case errors.Is(err, ErrNotFound):
		// Scheduled but never materialized; nothing queued to remove.
	default:
		return 0, err
	}

	if err := s.repo.MarkCancelled(ctx, companyID, id, reason, actorRole); err != nil {
		return 0, err
	}
	log.Printf("[campaign.Service] campaign %s cancelled by %s, %d pending records removed", id, actorRole, removed)
	return removed, nil
}

// Reschedule moves a scheduled campaign to a new instant, shifting every
// pending dispatch record by the same delta. The new instant must itself
// lie outside the lock window.
func (s *Service) Reschedule(ctx context.Context, companyID, id string, at time.Time) error {
	c, err := s.repo.Get(ctx, companyID, id)
	if err != nil {
		return err
	}
	if err := s.mutationGuard(c); err != nil {
		return err
	}
	if at.Sub(s.now()) < s.lockWindow {
		return ErrTooLate
	}

	run, err := s.runs.LatestByCampaign(ctx, id)
	switch {
	case err == nil:
		delta := at.Sub(*c.ScheduledAt)
		shifted, err := s.queue.ShiftPending(ctx, run.CorrelationTag(), delta)
		if err != nil {
			return fmt.Errorf("shift pending records: %w", err)
		}
		if err := s.runs.UpdateSchedule(ctx, run.ID, at); err != nil {
			return fmt.Errorf("update run schedule: %w", err)
		}
		log.Printf("[campaign.Service] campaign %s rescheduled to %s, %d records shifted", id, at.Format(time.RFC3339), shifted)
	case errors.Is(err, ErrNotFound):
		// Nothing materialized yet; only the campaign row moves.
	default:
		return err
	}

	return s.repo.UpdateSchedule(ctx, companyID, id, at)
}

// EditMessage replaces the message of a scheduled campaign and re-renders
// it for every still-pending recipient of the latest run. Edits on the
// same campaign are serialized through a per-campaign lock; progress is
// published to the cache so clients can poll it. Returns how many queued
// records were rewritten.
func (s *Service) EditMessage(ctx context.Context, companyID, id, subject, content string) (int, error) {
	if content == "" {
		return 0, fmt.Errorf("message content is required")
	}
	c, err := s.repo.Get(ctx, companyID, id)
	if err != nil {
		return 0, err
	}
	if err := s.mutationGuard(c); err != nil {
		return 0, err
	}

	lock := s.newLock("campaign-edit:" + id)
	ok, err := lock.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("acquire edit lock: %w", err)
	}
	if !ok {
		return 0, ErrEditInProgress
	}
	defer func() {
		if err := lock.Release(ctx); err != nil {
			log.Printf("[campaign.Service] release edit lock for %s: %v", id, err)
		}
	}()

	run, err := s.runs.LatestByCampaign(ctx, id)
	if errors.Is(err, ErrNotFound) {
		// Never materialized; only the campaign row changes.
		return 0, s.repo.UpdateContent(ctx, companyID, id, subject, content)
	}
	if err != nil {
		return 0, err
	}

	doc, err := filter.Parse(run.FilterSnapshot)
	if err != nil {
		return 0, err
	}
	customers, err := s.targets.Select(ctx, companyID, doc, ResolveOptions{ExcludePhones: c.ExcludedPhones})
	if err != nil {
		return 0, fmt.Errorf("resolve recipients: %w", err)
	}

	tag := run.CorrelationTag()
	total := len(customers)
	updated := 0
	s.publishProgress(ctx, id, progress.New(total, 0))

	for start := 0; start < total; start += s.editBatch {
		end := start + s.editBatch
		if end > total {
			end = total
		}
		for i := start; i < end; i++ {
			cust := &customers[i]
			n, err := s.queue.UpdatePendingBody(ctx, tag,
				cust.Phone, s.engine.Render(subject, cust), s.engine.Render(content, cust))
			if err != nil {
				return updated, fmt.Errorf("update record for %s: %w", cust.Phone, err)
			}
			updated += n
		}
		s.publishProgress(ctx, id, progress.New(total, end))
	}

	if err := s.repo.UpdateContent(ctx, companyID, id, subject, content); err != nil {
		return updated, err
	}
	log.Printf("[campaign.Service] campaign %s message edited, %d/%d pending records rewritten", id, updated, total)
	return updated, nil
}

// EditProgress reports the progress of an in-flight (or recently finished)
// message edit. The second return is false when none is recorded.
func (s *Service) EditProgress(ctx context.Context, companyID, id string) (progress.Progress, bool, error) {
	if _, err := s.repo.Get(ctx, companyID, id); err != nil {
		return progress.Progress{}, false, err
	}
	if s.progress == nil {
		// Deployments without the cache never record progress.
		return progress.Progress{}, false, nil
	}
	return s.progress.Get(ctx, id)
}

// publishProgress writes to the cache best-effort. The cache is advisory;
// a write failure must not abort the edit.
func (s *Service) publishProgress(ctx context.Context, id string, p progress.Progress) {
	if s.progress == nil {
		return
	}
	if err := s.progress.Set(ctx, id, p); err != nil {
		log.Printf("[campaign.Service] publish progress for %s: %v", id, err)
	}
}
