package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const memberColumns = `id, member_number, dni, first_name, last_name, phone, plan, plan_expires_at, status, created_at, updated_at, deleted_at`

func scanMember(row interface{ Scan(...any) error }) (Member, error) {
	var i Member
	err := row.Scan(
		&i.ID,
		&i.MemberNumber,
		&i.Dni,
		&i.FirstName,
		&i.LastName,
		&i.Phone,
		&i.Plan,
		&i.PlanExpiresAt,
		&i.Status,
		&i.CreatedAt,
		&i.UpdatedAt,
		&i.DeletedAt,
	)
	return i, err
}

const getLiveMemberByNumber = `-- name: GetLiveMemberByNumber :one
SELECT ` + memberColumns + `
FROM members
WHERE member_number = $1 AND deleted_at IS NULL
`

func (q *Queries) GetLiveMemberByNumber(ctx context.Context, memberNumber string) (Member, error) {
	row := q.db.QueryRow(ctx, getLiveMemberByNumber, memberNumber)
	return scanMember(row)
}

const listLiveMembersByNumbers = `-- name: ListLiveMembersByNumbers :many
SELECT ` + memberColumns + `
FROM members
WHERE member_number = ANY($1::text[]) AND deleted_at IS NULL
`

func (q *Queries) ListLiveMembersByNumbers(ctx context.Context, memberNumbers []string) ([]Member, error) {
	rows, err := q.db.Query(ctx, listLiveMembersByNumbers, memberNumbers)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Member
	for rows.Next() {
		i, err := scanMember(rows)
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

const insertMember = `-- name: InsertMember :one
INSERT INTO members (member_number, dni, first_name, last_name, phone, plan, plan_expires_at, status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING ` + memberColumns

type InsertMemberParams struct {
	MemberNumber  string
	Dni           pgtype.Text
	FirstName     string
	LastName      string
	Phone         pgtype.Text
	Plan          pgtype.Text
	PlanExpiresAt pgtype.Date
	Status        string
}

func (q *Queries) InsertMember(ctx context.Context, arg InsertMemberParams) (Member, error) {
	row := q.db.QueryRow(ctx, insertMember,
		arg.MemberNumber,
		arg.Dni,
		arg.FirstName,
		arg.LastName,
		arg.Phone,
		arg.Plan,
		arg.PlanExpiresAt,
		arg.Status,
	)
	return scanMember(row)
}

const updateMember = `-- name: UpdateMember :one
UPDATE members
SET member_number = $2,
    dni = $3,
    first_name = $4,
    last_name = $5,
    phone = $6,
    plan = $7,
    plan_expires_at = $8,
    status = $9,
    updated_at = now()
WHERE id = $1 AND deleted_at IS NULL
RETURNING ` + memberColumns

type UpdateMemberParams struct {
	ID            pgtype.UUID
	MemberNumber  string
	Dni           pgtype.Text
	FirstName     string
	LastName      string
	Phone         pgtype.Text
	Plan          pgtype.Text
	PlanExpiresAt pgtype.Date
	Status        string
}

func (q *Queries) UpdateMember(ctx context.Context, arg UpdateMemberParams) (Member, error) {
	row := q.db.QueryRow(ctx, updateMember,
		arg.ID,
		arg.MemberNumber,
		arg.Dni,
		arg.FirstName,
		arg.LastName,
		arg.Phone,
		arg.Plan,
		arg.PlanExpiresAt,
		arg.Status,
	)
	return scanMember(row)
}

const softDeleteMember = `-- name: SoftDeleteMember :execrows
UPDATE members
SET deleted_at = now(), updated_at = now()
WHERE id = $1 AND deleted_at IS NULL
`

func (q *Queries) SoftDeleteMember(ctx context.Context, id pgtype.UUID) (int64, error) {
	result, err := q.db.Exec(ctx, softDeleteMember, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const nextMemberNumber = `-- name: NextMemberNumber :one
UPDATE member_number_counter
SET value = GREATEST(
        value,
        (SELECT COALESCE(MAX(member_number::bigint), 0)
         FROM members
         WHERE member_number ~ '^[0-9]{1,18}$')
    ) + 1
WHERE id = 1
RETURNING value
`

// NextMemberNumber bumps the counter past the highest numeric member number
// in use. The counter row lock serialises concurrent callers.
func (q *Queries) NextMemberNumber(ctx context.Context) (int64, error) {
	row := q.db.QueryRow(ctx, nextMemberNumber)
	var value int64
	err := row.Scan(&value)
	return value, err
}
