// Package store implements the import engine's persistence on PostgreSQL.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/membersync/internal/core"
	db "github.com/JonMunkholm/membersync/internal/database"
)

// Postgres is a core.Store backed by a connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

var _ core.Store = (*Postgres)(nil)

// New creates a Postgres store.
func New(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) FindMembersByNumbers(ctx context.Context, numbers []string) (map[string]core.Member, error) {
	out := make(map[string]core.Member, len(numbers))
	if len(numbers) == 0 {
		return out, nil
	}

	rows, err := db.New(p.pool).ListLiveMembersByNumbers(ctx, numbers)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	for _, row := range rows {
		m := memberFromRow(row)
		out[m.MemberNumber] = m
	}
	return out, nil
}

func (p *Postgres) FindMember(ctx context.Context, number string) (core.Member, error) {
	return findMember(ctx, db.New(p.pool), number)
}

// CreatePlan inserts the job and its changes in one transaction. Changes
// get seq 1..n in slice order, which is the order apply replays them.
func (p *Postgres) CreatePlan(ctx context.Context, job *core.ImportJob, changes []core.ImportChange) error {
	summary, err := json.Marshal(job.Summary)
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	q := db.New(p.pool).WithTx(tx)

	row, err := q.InsertImportJob(ctx, db.InsertImportJobParams{
		OriginalFileName: job.OriginalFileName,
		StoragePath:      job.StoragePath,
		MonthKey:         job.MonthKey,
		UploadedByUserID: job.UploadedByUserID,
		Status:           string(job.Status),
		SummaryJson:      summary,
	})
	if err != nil {
		return fmt.Errorf("insert import job: %w", err)
	}

	ids := make([]string, len(changes))
	for i, c := range changes {
		before, err := snapshotJSON(c.Before)
		if err != nil {
			return fmt.Errorf("encode change %d: %w", i+1, err)
		}
		after, err := snapshotJSON(c.After)
		if err != nil {
			return fmt.Errorf("encode change %d: %w", i+1, err)
		}

		id, err := q.InsertImportChange(ctx, db.InsertImportChangeParams{
			ImportJobID:  row.ID,
			Seq:          int32(i + 1),
			ChangeType:   string(c.Kind),
			MemberNumber: c.MemberNumber,
			BeforeJson:   before,
			AfterJson:    after,
		})
		if err != nil {
			return fmt.Errorf("insert change %d: %w", i+1, err)
		}
		ids[i] = PgUUIDToString(id)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	job.ID = PgUUIDToString(row.ID)
	job.CreatedAt = fromPgTime(row.CreatedAt)
	job.UpdatedAt = fromPgTime(row.UpdatedAt)
	for i := range changes {
		changes[i].ID = ids[i]
		changes[i].ImportJobID = job.ID
	}
	return nil
}

func (p *Postgres) GetJob(ctx context.Context, id string) (core.ImportJob, error) {
	pgID := ToPgUUID(id)
	if !pgID.Valid {
		return core.ImportJob{}, fmt.Errorf("%w: %q", core.ErrJobNotFound, id)
	}

	row, err := db.New(p.pool).GetImportJob(ctx, pgID)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.ImportJob{}, fmt.Errorf("%w: %s", core.ErrJobNotFound, id)
	}
	if err != nil {
		return core.ImportJob{}, fmt.Errorf("get import job: %w", err)
	}
	return jobFromRow(row)
}

func (p *Postgres) ListJobs(ctx context.Context, filter core.JobFilter) ([]core.ImportJob, error) {
	params := db.ListImportJobsParams{
		Limit:  int32(filter.Limit),
		Offset: int32(filter.Offset),
	}
	if filter.MonthKey != "" {
		params.MonthKey = pgtype.Text{String: filter.MonthKey, Valid: true}
	}
	if filter.Status != "" {
		params.Status = pgtype.Text{String: string(filter.Status), Valid: true}
	}

	rows, err := db.New(p.pool).ListImportJobs(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("list import jobs: %w", err)
	}

	jobs := make([]core.ImportJob, 0, len(rows))
	for _, row := range rows {
		job, err := jobFromRow(row)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func (p *Postgres) ListChanges(ctx context.Context, jobID string) ([]core.ImportChange, error) {
	return listChanges(ctx, db.New(p.pool), jobID)
}

// MarkFailed runs in its own statement, after the apply transaction has
// rolled back.
func (p *Postgres) MarkFailed(ctx context.Context, jobID string, summary core.Summary) error {
	return setJobStatus(ctx, db.New(p.pool), jobID, core.JobFailed, summary)
}

// InTx runs fn in a transaction that commits only if fn returns nil.
func (p *Postgres) InTx(ctx context.Context, fn func(tx core.StoreTx) error) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&txStore{q: db.New(p.pool).WithTx(tx)}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ----------------------------------------------------------------------------
// Shared query helpers
// ----------------------------------------------------------------------------

func findMember(ctx context.Context, q *db.Queries, number string) (core.Member, error) {
	row, err := q.GetLiveMemberByNumber(ctx, number)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Member{}, fmt.Errorf("%w: %s", core.ErrMemberNotFound, number)
	}
	if err != nil {
		return core.Member{}, fmt.Errorf("get member %s: %w", number, err)
	}
	return memberFromRow(row), nil
}

func listChanges(ctx context.Context, q *db.Queries, jobID string) ([]core.ImportChange, error) {
	pgID := ToPgUUID(jobID)
	if !pgID.Valid {
		return nil, fmt.Errorf("%w: %q", core.ErrJobNotFound, jobID)
	}

	rows, err := q.ListImportChanges(ctx, pgID)
	if err != nil {
		return nil, fmt.Errorf("list changes: %w", err)
	}

	changes := make([]core.ImportChange, 0, len(rows))
	for _, row := range rows {
		c, err := changeFromRow(row)
		if err != nil {
			return nil, err
		}
		changes = append(changes, c)
	}
	return changes, nil
}

// setJobStatus moves a VALIDATED job to status. A job that has already left
// VALIDATED is reported as ErrWrongState.
func setJobStatus(ctx context.Context, q *db.Queries, jobID string, status core.JobStatus, summary core.Summary) error {
	body, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}

	n, err := q.UpdateImportJobStatus(ctx, db.UpdateImportJobStatusParams{
		ID:          ToPgUUID(jobID),
		Status:      string(status),
		SummaryJson: body,
		FromStatus:  string(core.JobValidated),
	})
	if err != nil {
		return fmt.Errorf("set job %s to %s: %w", jobID, status, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: job %s is no longer %s", core.ErrWrongState, jobID, core.JobValidated)
	}
	return nil
}
