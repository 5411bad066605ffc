package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const insertImportChange = `-- name: InsertImportChange :one
INSERT INTO import_changes (import_job_id, seq, change_type, member_number, before_json, after_json)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id
`

type InsertImportChangeParams struct {
	ImportJobID  pgtype.UUID
	Seq          int32
	ChangeType   string
	MemberNumber string
	BeforeJson   []byte
	AfterJson    []byte
}

func (q *Queries) InsertImportChange(ctx context.Context, arg InsertImportChangeParams) (pgtype.UUID, error) {
	row := q.db.QueryRow(ctx, insertImportChange,
		arg.ImportJobID,
		arg.Seq,
		arg.ChangeType,
		arg.MemberNumber,
		arg.BeforeJson,
		arg.AfterJson,
	)
	var id pgtype.UUID
	err := row.Scan(&id)
	return id, err
}

const listImportChanges = `-- name: ListImportChanges :many
SELECT id, import_job_id, seq, member_id, change_type, member_number, before_json, after_json, created_at
FROM import_changes
WHERE import_job_id = $1
ORDER BY seq
`

func (q *Queries) ListImportChanges(ctx context.Context, importJobID pgtype.UUID) ([]ImportChange, error) {
	rows, err := q.db.Query(ctx, listImportChanges, importJobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ImportChange
	for rows.Next() {
		var i ImportChange
		if err := rows.Scan(
			&i.ID,
			&i.ImportJobID,
			&i.Seq,
			&i.MemberID,
			&i.ChangeType,
			&i.MemberNumber,
			&i.BeforeJson,
			&i.AfterJson,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const setImportChangeMember = `-- name: SetImportChangeMember :execrows
UPDATE import_changes
SET member_id = $2
WHERE id = $1
`

type SetImportChangeMemberParams struct {
	ID       pgtype.UUID
	MemberID pgtype.UUID
}

func (q *Queries) SetImportChangeMember(ctx context.Context, arg SetImportChangeMemberParams) (int64, error) {
	result, err := q.db.Exec(ctx, setImportChangeMember, arg.ID, arg.MemberID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
