package calljobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"outdial-platform/internal/apperr"
	"outdial-platform/internal/calls"
	"outdial-platform/internal/config"
	"outdial-platform/pkg/utils"
)

// ContactDialer places one outbound call for an enrolled contact.
// *calls.Dialer satisfies it.
type ContactDialer interface {
	Start(ctx context.Context, agentID, contactID string) (calls.StartResult, error)
}

// Runner drains queued jobs. It polls on a fixed interval, claims jobs
// whose status is queued, and dials leased contacts while honoring each
// job's per-minute rate cap.
type Runner struct {
	store   Store
	dialer  ContactDialer
	limiter utils.DialLimiter
	cfg     config.RunnerConfig
	log     *slog.Logger
}

func NewRunner(store Store, dialer ContactDialer, limiter utils.DialLimiter, cfg config.RunnerConfig, log *slog.Logger) *Runner {
	return &Runner{
		store:   store,
		dialer:  dialer,
		limiter: limiter,
		cfg:     cfg,
		log:     log,
	}
}

// Run polls until ctx is cancelled. Errors from a single pass are logged
// and do not stop the loop.
func (r *Runner) Run(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()

	r.log.Info("job runner started",
		"poll_interval", r.cfg.PollInterval.String(),
		"batch_size", r.cfg.BatchSize,
		"max_attempts", r.cfg.MaxAttempts,
	)

	for {
		select {
		case <-ctx.Done():
			r.log.Info("job runner stopped")
			return
		case <-ticker.C:
			if err := r.ProcessOnce(ctx); err != nil {
				r.log.Error("runner pass failed", "error", err)
			}
		}
	}
}

// ProcessOnce performs a single polling pass: claim every queued job and
// work one contact batch per claimed job.
func (r *Runner) ProcessOnce(ctx context.Context) error {
	jobs, err := r.store.ListByStatus(ctx, StatusQueued)
	if err != nil {
		return err
	}

	for _, job := range jobs {
		claimed, err := r.store.Transition(ctx, job.ID, StatusRunning, StatusQueued)
		if err != nil {
			if errors.Is(err, ErrConflict) {
				continue // paused or cancelled between list and claim
			}
			return err
		}
		if err := r.processJob(ctx, claimed); err != nil {
			r.log.Error("job pass failed", "job_id", claimed.ID, "error", err)
		}
	}
	return nil
}

// processJob dials one batch of contacts for a running job, then either
// completes the job, releases it back to queued, or leaves it where a
// concurrent control action put it.
//
// Invariant: the job never stays in running with leased contacts after
// this returns. Every exit path, error included, releases undialed
// leases and hands the job back to the queue so a later pass can retry.
func (r *Runner) processJob(ctx context.Context, job CallJob) error {
	leased, err := r.store.LeaseContacts(ctx, job.ID, r.cfg.BatchSize)
	if err != nil {
		return r.abandon(ctx, job.ID, nil, err)
	}

	for i, cjc := range leased {
		// Re-read status so pause and cancel take effect mid-batch.
		current, err := r.store.GetByID(ctx, job.ID)
		if err != nil {
			return r.abandon(ctx, job.ID, leased[i:], err)
		}
		if current.Status != StatusRunning {
			// A control action moved the job; hand the leases back and
			// leave the status where the operator put it.
			r.releaseAll(ctx, job.ID, leased[i:])
			return nil
		}

		allowed, err := r.limiter.Allow(ctx, "job:"+job.ID, job.Config.RateLimit)
		if err != nil {
			return r.abandon(ctx, job.ID, leased[i:], err)
		}
		if !allowed {
			// Over this minute's cap; the rest of the batch would be
			// denied too. Put them back and let a later pass retry.
			r.releaseAll(ctx, job.ID, leased[i:])
			break
		}

		r.dialContact(ctx, job, cjc)
	}

	pending, err := r.store.PendingCount(ctx, job.ID)
	if err != nil {
		return r.abandon(ctx, job.ID, nil, err)
	}
	if pending == 0 {
		if _, err := r.store.Transition(ctx, job.ID, StatusCompleted, StatusRunning); err != nil && !errors.Is(err, ErrConflict) {
			return err
		}
		r.log.Info("job completed", "job_id", job.ID)
		return nil
	}

	// More work remains. Hand the job back to the queue unless a control
	// action already moved it.
	if _, err := r.store.Transition(ctx, job.ID, StatusQueued, StatusRunning); err != nil && !errors.Is(err, ErrConflict) {
		return err
	}
	return nil
}

// abandon backs out of a failed pass: remaining leases go back to queued
// and the job leaves running so the next tick can pick it up again. The
// original failure is returned for logging.
func (r *Runner) abandon(ctx context.Context, jobID string, remaining []CallJobContact, cause error) error {
	r.releaseAll(ctx, jobID, remaining)
	if _, err := r.store.Transition(ctx, jobID, StatusQueued, StatusRunning); err != nil && !errors.Is(err, ErrConflict) {
		r.log.Error("requeue after failed pass", "job_id", jobID, "error", err)
	}
	return cause
}

// releaseAll is best-effort: a contact whose release fails stays in
// calling and is reclaimed by a later lease once its lease goes stale.
func (r *Runner) releaseAll(ctx context.Context, jobID string, leased []CallJobContact) {
	for _, cjc := range leased {
		if _, err := r.store.SetContactStatus(ctx, jobID, cjc.ContactID, ContactQueued, false); err != nil {
			r.log.Error("release leased contact", "job_id", jobID, "contact_id", cjc.ContactID, "error", err)
		}
	}
}

// dialContact runs one dial attempt and records the outcome. Dial errors
// never abort the batch.
func (r *Runner) dialContact(ctx context.Context, job CallJob, cjc CallJobContact) {
	result, err := r.dialer.Start(ctx, job.AgentID, cjc.ContactID)
	if err == nil {
		if _, serr := r.store.SetContactStatus(ctx, job.ID, cjc.ContactID, ContactCompleted, true); serr != nil {
			r.log.Error("record dial outcome failed", "job_id", job.ID, "contact_id", cjc.ContactID, "error", serr)
		}
		r.log.Info("contact dialed",
			"job_id", job.ID,
			"contact_id", cjc.ContactID,
			"call_run_id", result.CallRunID,
		)
		return
	}

	if errors.Is(err, apperr.ErrInvalidState) || errors.Is(err, apperr.ErrNotFound) {
		// Precondition failures (DNC listing, deleted contact) never
		// succeed on retry.
		if _, serr := r.store.SetContactStatus(ctx, job.ID, cjc.ContactID, ContactSkipped, true); serr != nil {
			r.log.Error("record dial outcome failed", "job_id", job.ID, "contact_id", cjc.ContactID, "error", serr)
		}
		r.log.Warn("contact skipped", "job_id", job.ID, "contact_id", cjc.ContactID, "reason", apperr.Message(err))
		return
	}

	// Transient failure. Count the attempt and requeue until the policy
	// cap is exhausted.
	next := ContactQueued
	if cjc.Attempts+1 >= r.cfg.MaxAttempts {
		next = ContactFailed
	}
	if _, serr := r.store.SetContactStatus(ctx, job.ID, cjc.ContactID, next, true); serr != nil {
		r.log.Error("record dial outcome failed", "job_id", job.ID, "contact_id", cjc.ContactID, "error", serr)
	}
	r.log.Warn("contact dial failed",
		"job_id", job.ID,
		"contact_id", cjc.ContactID,
		"attempts", cjc.Attempts+1,
		"status", string(next),
		"error", err,
	)
}
