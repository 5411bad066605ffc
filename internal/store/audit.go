package store

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/netip"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/membersync/internal/core"
	db "github.com/JonMunkholm/membersync/internal/database"
)

// AuditLog writes audit entries to the audit_log table.
type AuditLog struct {
	pool *pgxpool.Pool
}

var _ core.AuditSink = (*AuditLog)(nil)

// NewAuditLog creates an audit sink on pool.
func NewAuditLog(pool *pgxpool.Pool) *AuditLog {
	return &AuditLog{pool: pool}
}

func (a *AuditLog) Log(ctx context.Context, entry core.AuditEntry) error {
	params, err := auditParams(entry)
	if err != nil {
		return err
	}
	if _, err := db.New(a.pool).InsertAuditLog(ctx, params); err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

func auditParams(entry core.AuditEntry) (db.InsertAuditLogParams, error) {
	before, err := optionalJSON(entry.Before)
	if err != nil {
		return db.InsertAuditLogParams{}, fmt.Errorf("encode audit before: %w", err)
	}
	after, err := optionalJSON(entry.After)
	if err != nil {
		return db.InsertAuditLogParams{}, fmt.Errorf("encode audit after: %w", err)
	}

	params := db.InsertAuditLogParams{
		ActorID:    entry.ActorID,
		Action:     string(entry.Action),
		Severity:   string(entry.Severity),
		Entity:     entry.Entity,
		EntityID:   entry.EntityID,
		BeforeJson: before,
		AfterJson:  after,
		CreatedAt:  pgtype.Timestamptz{Time: entry.CreatedAt, Valid: !entry.CreatedAt.IsZero()},
	}
	if entry.UserAgent != "" {
		params.UserAgent = pgtype.Text{String: entry.UserAgent, Valid: true}
	}

	// Strip the port if present; anything unparsable is dropped.
	if entry.IPAddress != "" {
		host := entry.IPAddress
		if h, _, err := net.SplitHostPort(host); err == nil {
			host = h
		}
		if addr, err := netip.ParseAddr(host); err == nil {
			params.IpAddress = &addr
		}
	}
	return params, nil
}

func optionalJSON(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}
