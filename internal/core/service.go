package core

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/JonMunkholm/membersync/internal/logging"
)

// ErrInvalidMember is returned by CreateMember for incomplete input.
var ErrInvalidMember = errors.New("invalid member")

var monthKeyPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

const (
	defaultListLimit    = 50
	maxListLimit        = 200
	defaultApplyTimeout = 5 * time.Minute
)

// Options configures a Service. Only Store is required.
type Options struct {
	Store   Store
	Files   FileStore
	Audit   AuditSink
	Locker  Locker
	Metrics Recorder
	Limiter *ImportLimiter

	// MaxRows caps data rows per sheet; zero means no limit.
	MaxRows int

	// ApplyTimeout bounds one apply transaction.
	ApplyTimeout time.Duration

	Now func() time.Time
}

// Service runs validate and apply against a Store.
type Service struct {
	store        Store
	files        FileStore
	audit        AuditSink
	locker       Locker
	metrics      Recorder
	limiter      *ImportLimiter
	maxRows      int
	applyTimeout time.Duration
	now          func() time.Time
}

// NewService creates a Service from opts.
func NewService(opts Options) (*Service, error) {
	if opts.Store == nil {
		return nil, errors.New("core: store is required")
	}

	s := &Service{
		store:        opts.Store,
		files:        opts.Files,
		audit:        opts.Audit,
		locker:       opts.Locker,
		metrics:      opts.Metrics,
		limiter:      opts.Limiter,
		maxRows:      opts.MaxRows,
		applyTimeout: opts.ApplyTimeout,
		now:          opts.Now,
	}
	if s.locker == nil {
		s.locker = nopLocker{}
	}
	if s.metrics == nil {
		s.metrics = nopRecorder{}
	}
	if s.applyTimeout <= 0 {
		s.applyTimeout = defaultApplyTimeout
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

// CheckMonthKey reports whether key is a YYYY-MM month.
func CheckMonthKey(key string) error {
	if !monthKeyPattern.MatchString(key) {
		return fmt.Errorf("%w: %q (want YYYY-MM)", ErrInvalidMonthKey, key)
	}
	return nil
}

// Validate parses in.Data, computes the change plan and stores it as a
// VALIDATED job. Row problems do not fail the call; they are returned in the
// result and block a later Apply. Only an unusable file or an infrastructure
// failure returns an error, and then no job is created.
func (s *Service) Validate(ctx context.Context, in ValidateInput) (ValidateResult, error) {
	start := s.now()

	if err := CheckMonthKey(in.MonthKey); err != nil {
		return ValidateResult{}, err
	}
	if strings.TrimSpace(in.ActorID) == "" {
		return ValidateResult{}, ErrMissingActor
	}

	if s.limiter != nil {
		if err := s.limiter.Acquire(ctx); err != nil {
			return ValidateResult{}, err
		}
		defer s.limiter.Release()
	}

	log := logging.ForImport(ctx, "", in.ActorID).With("file", in.FileName, "month_key", in.MonthKey)

	records, err := ReadSheet(in.FileName, in.Data)
	if err != nil {
		s.metrics.ObserveValidate(OutcomeRejected, Counts{}, s.now().Sub(start))
		return ValidateResult{}, err
	}
	parsed, err := ParseRows(records, s.maxRows)
	if err != nil {
		s.metrics.ObserveValidate(OutcomeRejected, Counts{}, s.now().Sub(start))
		return ValidateResult{}, err
	}

	valid, dupes := FilterDuplicates(parsed.Rows)

	existing, err := s.store.FindMembersByNumbers(ctx, MemberNumbers(valid))
	if err != nil {
		s.metrics.ObserveValidate(OutcomeFailed, Counts{}, s.now().Sub(start))
		return ValidateResult{}, fmt.Errorf("lookup members: %w", err)
	}

	plan := BuildPlan(valid, existing)

	rowErrors := make([]RowError, 0, len(parsed.RowErrors)+len(dupes)+len(plan.RowErrors))
	rowErrors = append(rowErrors, parsed.RowErrors...)
	rowErrors = append(rowErrors, dupes...)
	rowErrors = append(rowErrors, plan.RowErrors...)

	counts := plan.Counts
	counts.Errors = len(rowErrors)

	changes := plan.Changes
	if changes == nil {
		changes = []ImportChange{}
	}

	var storagePath string
	if s.files != nil {
		storagePath, err = s.files.Save(ctx, in.FileName, in.Data)
		if err != nil {
			s.metrics.ObserveValidate(OutcomeFailed, counts, s.now().Sub(start))
			return ValidateResult{}, fmt.Errorf("store upload: %w", err)
		}
	}

	job := ImportJob{
		OriginalFileName: in.FileName,
		StoragePath:      storagePath,
		MonthKey:         in.MonthKey,
		UploadedByUserID: in.ActorID,
		Status:           JobValidated,
		Summary: Summary{
			Counts:    counts,
			RowErrors: rowErrors,
			Changes:   slices.Clone(changes),
		},
	}

	if err := s.store.CreatePlan(ctx, &job, changes); err != nil {
		if storagePath != "" {
			if derr := s.files.Delete(context.WithoutCancel(ctx), storagePath); derr != nil {
				log.Warn("remove orphaned upload failed", "path", storagePath, "error", derr)
			}
		}
		s.metrics.ObserveValidate(OutcomeFailed, counts, s.now().Sub(start))
		return ValidateResult{}, fmt.Errorf("save import plan: %w", err)
	}

	log.Info("import validated",
		"import_job_id", job.ID,
		"total", counts.Total,
		"created", counts.Created,
		"updated", counts.Updated,
		"deleted", counts.Deleted,
		"noop", counts.Noop,
		"errors", counts.Errors,
	)

	s.logAudit(ctx, AuditEntry{
		ActorID:  in.ActorID,
		Action:   ActionImportValidate,
		Entity:   entityImportJob,
		EntityID: job.ID,
		After:    counts,
	})
	s.metrics.ObserveValidate(OutcomeOK, counts, s.now().Sub(start))

	return ValidateResult{
		ImportJobID: job.ID,
		Counts:      counts,
		RowErrors:   rowErrors,
		Changes:     changes,
	}, nil
}

// Get returns one import job.
func (s *Service) Get(ctx context.Context, id string) (ImportJob, error) {
	return s.store.GetJob(ctx, id)
}

// List returns import jobs, newest first.
func (s *Service) List(ctx context.Context, filter JobFilter) ([]ImportJob, error) {
	if filter.MonthKey != "" {
		if err := CheckMonthKey(filter.MonthKey); err != nil {
			return nil, err
		}
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.store.ListJobs(ctx, filter)
}

// Changes returns the stored changes of a job in apply order.
func (s *Service) Changes(ctx context.Context, jobID string) ([]ImportChange, error) {
	if _, err := s.store.GetJob(ctx, jobID); err != nil {
		return nil, err
	}
	return s.store.ListChanges(ctx, jobID)
}

// FindMember returns a live member by member number.
func (s *Service) FindMember(ctx context.Context, number string) (Member, error) {
	return s.store.FindMember(ctx, strings.TrimSpace(number))
}

// CreateMember adds a member outside of any import. The member number is
// allocated by the store inside the same transaction as the insert.
func (s *Service) CreateMember(ctx context.Context, in NewMember, actorID string) (Member, error) {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	if in.FirstName == "" || in.LastName == "" {
		return Member{}, fmt.Errorf("%w: firstName and lastName are required", ErrInvalidMember)
	}
	status, err := ParseMemberStatus(string(in.Status))
	if err != nil {
		return Member{}, fmt.Errorf("%w: %v", ErrInvalidMember, err)
	}

	var created Member
	err = s.store.InTx(ctx, func(tx StoreTx) error {
		number, err := tx.NextMemberNumber(ctx)
		if err != nil {
			return fmt.Errorf("allocate member number: %w", err)
		}
		created, err = tx.CreateMember(ctx, MemberFields{
			MemberNumber:  number,
			DNI:           in.DNI,
			FirstName:     in.FirstName,
			LastName:      in.LastName,
			Phone:         in.Phone,
			Plan:          in.Plan,
			PlanExpiresAt: in.PlanExpiresAt,
			Status:        status,
		})
		return err
	})
	if err != nil {
		return Member{}, fmt.Errorf("create member: %w", err)
	}

	s.logAudit(ctx, AuditEntry{
		ActorID:  actorID,
		Action:   ActionMemberCreate,
		Entity:   entityMember,
		EntityID: created.ID,
		After:    FullSnapshot(created.MemberFields),
	})
	return created, nil
}
