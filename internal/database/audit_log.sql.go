package database

import (
	"context"
	"net/netip"

	"github.com/jackc/pgx/v5/pgtype"
)

const insertAuditLog = `-- name: InsertAuditLog :one
INSERT INTO audit_log (actor_id, action, severity, entity, entity_id, before_json, after_json, ip_address, user_agent, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, COALESCE($10, now()))
RETURNING id, actor_id, action, severity, entity, entity_id, before_json, after_json, ip_address, user_agent, created_at
`

type InsertAuditLogParams struct {
	ActorID    string
	Action     string
	Severity   string
	Entity     string
	EntityID   string
	BeforeJson []byte
	AfterJson  []byte
	IpAddress  *netip.Addr
	UserAgent  pgtype.Text
	CreatedAt  pgtype.Timestamptz
}

func (q *Queries) InsertAuditLog(ctx context.Context, arg InsertAuditLogParams) (AuditLog, error) {
	row := q.db.QueryRow(ctx, insertAuditLog,
		arg.ActorID,
		arg.Action,
		arg.Severity,
		arg.Entity,
		arg.EntityID,
		arg.BeforeJson,
		arg.AfterJson,
		arg.IpAddress,
		arg.UserAgent,
		arg.CreatedAt,
	)
	var i AuditLog
	err := row.Scan(
		&i.ID,
		&i.ActorID,
		&i.Action,
		&i.Severity,
		&i.Entity,
		&i.EntityID,
		&i.BeforeJson,
		&i.AfterJson,
		&i.IpAddress,
		&i.UserAgent,
		&i.CreatedAt,
	)
	return i, err
}
