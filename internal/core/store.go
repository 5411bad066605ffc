package core

import (
	"context"
	"time"
)

// Store persists import plans and reads the member table. Implementations
// must make CreatePlan atomic: the job and all of its changes are written
// together or not at all.
type Store interface {
	// FindMembersByNumbers returns live (not soft-deleted) members keyed by
	// member number. Unknown numbers are simply absent from the map.
	FindMembersByNumbers(ctx context.Context, numbers []string) (map[string]Member, error)
	FindMember(ctx context.Context, number string) (Member, error)

	// CreatePlan inserts job and its changes in stored order and fills in
	// the generated IDs and timestamps.
	CreatePlan(ctx context.Context, job *ImportJob, changes []ImportChange) error
	GetJob(ctx context.Context, id string) (ImportJob, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]ImportJob, error)
	ListChanges(ctx context.Context, jobID string) ([]ImportChange, error)

	// MarkFailed moves a VALIDATED job to FAILED. It runs outside any apply
	// transaction.
	MarkFailed(ctx context.Context, jobID string, summary Summary) error

	// InTx runs fn in one transaction, committing if fn returns nil and
	// rolling back otherwise.
	InTx(ctx context.Context, fn func(tx StoreTx) error) error
}

// StoreTx is the view of the store inside a transaction.
type StoreTx interface {
	// LockJob reads the job and holds a row lock on it until the
	// transaction ends.
	LockJob(ctx context.Context, id string) (ImportJob, error)
	ListChanges(ctx context.Context, jobID string) ([]ImportChange, error)

	FindMember(ctx context.Context, number string) (Member, error)
	CreateMember(ctx context.Context, fields MemberFields) (Member, error)
	UpdateMember(ctx context.Context, m Member) (Member, error)
	SoftDeleteMember(ctx context.Context, id string) error

	// NextMemberNumber allocates the next free numeric member number in a
	// single atomic step.
	NextMemberNumber(ctx context.Context) (string, error)

	SetChangeMember(ctx context.Context, changeID, memberID string) error
	MarkApplied(ctx context.Context, jobID string, summary Summary) error
}

// FileStore keeps uploaded spreadsheets. The returned path is opaque to the
// engine and stored on the job as is.
type FileStore interface {
	Save(ctx context.Context, name string, data []byte) (string, error)
	Delete(ctx context.Context, path string) error
}

// Locker serialises apply calls for the same job across processes.
type Locker interface {
	// Lock returns ErrApplyInProgress when another holder owns key.
	Lock(ctx context.Context, key string) (unlock func(context.Context) error, err error)
}

// Recorder receives import outcomes for metrics.
type Recorder interface {
	ObserveValidate(outcome string, counts Counts, elapsed time.Duration)
	ObserveApply(outcome string, applied AppliedCounts, elapsed time.Duration)
}

// Outcome labels passed to Recorder.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

type nopLocker struct{}

func (nopLocker) Lock(context.Context, string) (func(context.Context) error, error) {
	return func(context.Context) error { return nil }, nil
}

type nopRecorder struct{}

func (nopRecorder) ObserveValidate(string, Counts, time.Duration) {}
func (nopRecorder) ObserveApply(string, AppliedCounts, time.Duration) {}
