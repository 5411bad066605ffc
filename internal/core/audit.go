package core

import (
	"context"
	"time"

	"github.com/JonMunkholm/membersync/internal/logging"
)

// AuditAction represents the type of action being audited.
type AuditAction string

const (
	ActionImportValidate AuditAction = "IMPORT_VALIDATE"
	ActionImportApply    AuditAction = "IMPORT_APPLY"
	ActionImportFail     AuditAction = "IMPORT_FAIL"
	ActionMemberCreate   AuditAction = "MEMBER_CREATE"
)

// AuditSeverity represents the severity level of an audit entry.
type AuditSeverity string

const (
	SeverityLow    AuditSeverity = "low"
	SeverityMedium AuditSeverity = "medium"
	SeverityHigh   AuditSeverity = "high"
)

// Severity returns the default severity for an action. Anything that
// changes the member table is high.
func (a AuditAction) Severity() AuditSeverity {
	switch a {
	case ActionImportApply, ActionImportFail:
		return SeverityHigh
	case ActionMemberCreate:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// AuditEntry is one record handed to the audit sink.
type AuditEntry struct {
	ActorID   string        `json:"actorId"`
	Action    AuditAction   `json:"action"`
	Severity  AuditSeverity `json:"severity"`
	Entity    string        `json:"entity"`
	EntityID  string        `json:"entityId"`
	Before    any           `json:"before,omitempty"`
	After     any           `json:"after,omitempty"`
	IPAddress string        `json:"ipAddress,omitempty"`
	UserAgent string        `json:"userAgent,omitempty"`
	CreatedAt time.Time     `json:"createdAt"`
}

// AuditSink persists audit entries.
type AuditSink interface {
	Log(ctx context.Context, entry AuditEntry) error
}

const (
	entityImportJob = "ImportJob"
	entityMember    = "Member"
)

// logAudit fills in request metadata and writes the entry. Sink failures are
// logged and dropped: an audit outage must never fail an import.
func (s *Service) logAudit(ctx context.Context, entry AuditEntry) {
	if s.audit == nil {
		return
	}

	entry.Severity = entry.Action.Severity()
	meta := RequestMetaFrom(ctx)
	entry.IPAddress = meta.IPAddress
	entry.UserAgent = meta.UserAgent
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now()
	}

	if err := s.audit.Log(ctx, entry); err != nil {
		logging.FromContext(ctx).Warn("audit log write failed",
			"action", entry.Action,
			"entity", entry.Entity,
			"entity_id", entry.EntityID,
			"error", err,
		)
	}
}
