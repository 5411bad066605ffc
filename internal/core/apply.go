package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/JonMunkholm/membersync/internal/logging"
)

// checkApplicable enforces the apply preconditions on a stored job.
func checkApplicable(job ImportJob) error {
	if job.Status.Terminal() {
		return fmt.Errorf("%w: job %s is already %s", ErrWrongState, job.ID, job.Status)
	}
	if !job.Status.CanApply() {
		return fmt.Errorf("%w: job %s has unknown status %q", ErrWrongState, job.ID, job.Status)
	}
	if job.Summary.Errors > 0 {
		return fmt.Errorf("%w: job %s has %d row error(s); fix the file and validate it again",
			ErrHasRowErrors, job.ID, job.Summary.Errors)
	}
	return nil
}

// isStateError reports a rejection found under the row lock. Those leave the
// job as it is instead of marking it FAILED.
func isStateError(err error) bool {
	return errors.Is(err, ErrWrongState) || errors.Is(err, ErrHasRowErrors) || errors.Is(err, ErrJobNotFound)
}

// Apply replays a VALIDATED job's changes against the member table in one
// transaction.
//
// On success the job is APPLIED with the applied counts in its summary. If
// any change fails the transaction is rolled back, the job is then marked
// FAILED in a separate write, and the returned error wraps ErrApplyFailed.
// A job that is not VALIDATED, or that has row errors, is rejected before
// anything is written.
func (s *Service) Apply(ctx context.Context, jobID, actorID string) (ImportJob, error) {
	start := s.now()
	log := logging.ForImport(ctx, jobID, actorID)

	if actorID == "" {
		return ImportJob{}, ErrMissingActor
	}

	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return ImportJob{}, err
	}
	if err := checkApplicable(job); err != nil {
		s.metrics.ObserveApply(OutcomeRejected, AppliedCounts{}, s.now().Sub(start))
		return ImportJob{}, err
	}

	unlock, err := s.locker.Lock(ctx, "import-apply:"+jobID)
	if err != nil {
		s.metrics.ObserveApply(OutcomeRejected, AppliedCounts{}, s.now().Sub(start))
		return ImportJob{}, err
	}
	defer func() {
		if err := unlock(context.WithoutCancel(ctx)); err != nil {
			log.Warn("release apply lock failed", "error", err)
		}
	}()

	txCtx, cancel := context.WithTimeout(ctx, s.applyTimeout)
	defer cancel()

	var applied AppliedCounts
	err = s.store.InTx(txCtx, func(tx StoreTx) error {
		// Re-check under the row lock; another caller may have won the race
		// since the read above.
		locked, err := tx.LockJob(txCtx, jobID)
		if err != nil {
			return err
		}
		if err := checkApplicable(locked); err != nil {
			return err
		}

		changes, err := tx.ListChanges(txCtx, jobID)
		if err != nil {
			return fmt.Errorf("load changes: %w", err)
		}

		applied, err = applyChanges(txCtx, tx, changes)
		if err != nil {
			return err
		}

		summary := locked.Summary
		summary.Applied = &applied
		summary.Error = ""
		return tx.MarkApplied(txCtx, jobID, summary)
	})

	if err != nil {
		if isStateError(err) {
			s.metrics.ObserveApply(OutcomeRejected, AppliedCounts{}, s.now().Sub(start))
			return ImportJob{}, err
		}
		return ImportJob{}, s.markFailed(ctx, actorID, job, err, start)
	}

	log.Info("import applied",
		"created", applied.Created,
		"updated", applied.Updated,
		"deleted", applied.Deleted,
		"noop", applied.Noop,
		"duration", s.now().Sub(start),
	)
	s.logAudit(ctx, AuditEntry{
		ActorID:  actorID,
		Action:   ActionImportApply,
		Entity:   entityImportJob,
		EntityID: jobID,
		After:    applied,
	})
	s.metrics.ObserveApply(OutcomeOK, applied, s.now().Sub(start))

	return s.store.GetJob(ctx, jobID)
}

// markFailed records the failure after the transaction has rolled back and
// returns the error for the caller.
func (s *Service) markFailed(ctx context.Context, actorID string, job ImportJob, cause error, start time.Time) error {
	log := logging.ForImport(ctx, job.ID, actorID)

	// The request may have been cancelled, which is often why the
	// transaction failed; the status write must still happen.
	writeCtx := context.WithoutCancel(ctx)

	summary := job.Summary
	summary.Applied = nil
	summary.Error = cause.Error()
	if err := s.store.MarkFailed(writeCtx, job.ID, summary); err != nil {
		log.Error("mark import failed", "error", err, "cause", cause)
	}

	log.Error("import apply rolled back", "error", cause)
	s.logAudit(writeCtx, AuditEntry{
		ActorID:  actorID,
		Action:   ActionImportFail,
		Entity:   entityImportJob,
		EntityID: job.ID,
		After:    map[string]string{"error": cause.Error()},
	})
	s.metrics.ObserveApply(OutcomeFailed, AppliedCounts{}, s.now().Sub(start))

	return fmt.Errorf("%w: %w", ErrApplyFailed, cause)
}

// applyChanges replays changes in stored order. The first failure aborts the
// loop; the caller's transaction discards everything done before it.
func applyChanges(ctx context.Context, tx StoreTx, changes []ImportChange) (AppliedCounts, error) {
	var applied AppliedCounts

	for i, c := range changes {
		if err := c.Check(); err != nil {
			return applied, fmt.Errorf("change %d: %w", i+1, err)
		}

		switch c.Kind {
		case ChangeNoop:
			applied.Noop++

		case ChangeDelete:
			existing, err := tx.FindMember(ctx, c.MemberNumber)
			if errors.Is(err, ErrMemberNotFound) {
				// Already gone: nothing to undo.
				applied.Noop++
				continue
			}
			if err != nil {
				return applied, fmt.Errorf("change %d: find member %s: %w", i+1, c.MemberNumber, err)
			}
			if err := tx.SoftDeleteMember(ctx, existing.ID); err != nil {
				return applied, fmt.Errorf("change %d: delete member %s: %w", i+1, c.MemberNumber, err)
			}
			applied.Deleted++

		case ChangeCreate, ChangeUpdate:
			member, created, err := upsertMember(ctx, tx, c)
			if err != nil {
				return applied, fmt.Errorf("change %d: %w", i+1, err)
			}
			if created {
				applied.Created++
			} else {
				applied.Updated++
			}
			if c.ID != "" {
				if err := tx.SetChangeMember(ctx, c.ID, member.ID); err != nil {
					return applied, fmt.Errorf("change %d: record member id: %w", i+1, err)
				}
			}
		}
	}

	return applied, nil
}

// upsertMember creates the member from the change's after snapshot or, when
// it already exists, merges only the carried fields onto it.
func upsertMember(ctx context.Context, tx StoreTx, c ImportChange) (Member, bool, error) {
	existing, err := tx.FindMember(ctx, c.MemberNumber)
	switch {
	case errors.Is(err, ErrMemberNotFound):
		fields := MemberFields{Status: StatusActive}
		c.After.MergeInto(&fields)
		fields.MemberNumber = c.MemberNumber
		if fields.Status == "" {
			fields.Status = StatusActive
		}
		m, err := tx.CreateMember(ctx, fields)
		if err != nil {
			return Member{}, false, fmt.Errorf("create member %s: %w", c.MemberNumber, err)
		}
		return m, true, nil

	case err != nil:
		return Member{}, false, fmt.Errorf("find member %s: %w", c.MemberNumber, err)

	default:
		c.After.MergeInto(&existing.MemberFields)
		existing.MemberNumber = c.MemberNumber
		m, err := tx.UpdateMember(ctx, existing)
		if err != nil {
			return Member{}, false, fmt.Errorf("update member %s: %w", c.MemberNumber, err)
		}
		return m, false, nil
	}
}
