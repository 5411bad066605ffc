package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const importJobColumns = `id, original_file_name, storage_path, month_key, uploaded_by_user_id, status, summary_json, created_at, updated_at`

func scanImportJob(row interface{ Scan(...any) error }) (ImportJob, error) {
	var i ImportJob
	err := row.Scan(
		&i.ID,
		&i.OriginalFileName,
		&i.StoragePath,
		&i.MonthKey,
		&i.UploadedByUserID,
		&i.Status,
		&i.SummaryJson,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const insertImportJob = `-- name: InsertImportJob :one
INSERT INTO import_jobs (original_file_name, storage_path, month_key, uploaded_by_user_id, status, summary_json)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + importJobColumns

type InsertImportJobParams struct {
	OriginalFileName string
	StoragePath      string
	MonthKey         string
	UploadedByUserID string
	Status           string
	SummaryJson      []byte
}

func (q *Queries) InsertImportJob(ctx context.Context, arg InsertImportJobParams) (ImportJob, error) {
	row := q.db.QueryRow(ctx, insertImportJob,
		arg.OriginalFileName,
		arg.StoragePath,
		arg.MonthKey,
		arg.UploadedByUserID,
		arg.Status,
		arg.SummaryJson,
	)
	return scanImportJob(row)
}

const getImportJob = `-- name: GetImportJob :one
SELECT ` + importJobColumns + `
FROM import_jobs
WHERE id = $1
`

func (q *Queries) GetImportJob(ctx context.Context, id pgtype.UUID) (ImportJob, error) {
	row := q.db.QueryRow(ctx, getImportJob, id)
	return scanImportJob(row)
}

const getImportJobForUpdate = `-- name: GetImportJobForUpdate :one
SELECT ` + importJobColumns + `
FROM import_jobs
WHERE id = $1
FOR UPDATE
`

func (q *Queries) GetImportJobForUpdate(ctx context.Context, id pgtype.UUID) (ImportJob, error) {
	row := q.db.QueryRow(ctx, getImportJobForUpdate, id)
	return scanImportJob(row)
}

const listImportJobs = `-- name: ListImportJobs :many
SELECT ` + importJobColumns + `
FROM import_jobs
WHERE ($1::text IS NULL OR month_key = $1)
  AND ($2::text IS NULL OR status = $2)
ORDER BY created_at DESC, id DESC
LIMIT $3 OFFSET $4
`

type ListImportJobsParams struct {
	MonthKey pgtype.Text
	Status   pgtype.Text
	Limit    int32
	Offset   int32
}

func (q *Queries) ListImportJobs(ctx context.Context, arg ListImportJobsParams) ([]ImportJob, error) {
	rows, err := q.db.Query(ctx, listImportJobs,
		arg.MonthKey,
		arg.Status,
		arg.Limit,
		arg.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ImportJob
	for rows.Next() {
		i, err := scanImportJob(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const updateImportJobStatus = `-- name: UpdateImportJobStatus :execrows
UPDATE import_jobs
SET status = $2, summary_json = $3, updated_at = now()
WHERE id = $1 AND status = $4
`

type UpdateImportJobStatusParams struct {
	ID          pgtype.UUID
	Status      string
	SummaryJson []byte
	FromStatus  string
}

// UpdateImportJobStatus only moves a job that is still in FromStatus.
func (q *Queries) UpdateImportJobStatus(ctx context.Context, arg UpdateImportJobStatusParams) (int64, error) {
	result, err := q.db.Exec(ctx, updateImportJobStatus,
		arg.ID,
		arg.Status,
		arg.SummaryJson,
		arg.FromStatus,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
