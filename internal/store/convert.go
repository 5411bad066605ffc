package store

// convert.go maps between core types and the pgtype values used by the
// query layer.

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/membersync/internal/core"
	db "github.com/JonMunkholm/membersync/internal/database"
)

// ToPgText converts an optional string to pgtype.Text. Nil is NULL; an empty
// string is stored as is.
func ToPgText(s *string) pgtype.Text {
	if s == nil {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: *s, Valid: true}
}

// FromPgText is the inverse of ToPgText.
func FromPgText(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	s := t.String
	return &s
}

// ToPgDate converts an optional calendar day to pgtype.Date.
func ToPgDate(d *core.Date) pgtype.Date {
	if d == nil {
		return pgtype.Date{Valid: false}
	}
	return pgtype.Date{Time: d.Time(), Valid: true}
}

// FromPgDate is the inverse of ToPgDate.
func FromPgDate(d pgtype.Date) *core.Date {
	if !d.Valid {
		return nil
	}
	day := core.DateOf(d.Time)
	return &day
}

// ToPgUUID converts a string to pgtype.UUID.
// Returns invalid if the string is empty or not a valid UUID.
func ToPgUUID(s string) pgtype.UUID {
	if s == "" {
		return pgtype.UUID{Valid: false}
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return pgtype.UUID{Valid: false}
	}
	return pgtype.UUID{Bytes: parsed, Valid: true}
}

// PgUUIDToString converts a pgtype.UUID to its string representation.
// Returns empty string if the UUID is invalid.
func PgUUIDToString(u pgtype.UUID) string {
	if !u.Valid {
		return ""
	}
	return uuid.UUID(u.Bytes).String()
}

func fromPgTime(t pgtype.Timestamptz) time.Time {
	if !t.Valid {
		return time.Time{}
	}
	return t.Time
}

func memberFromRow(row db.Member) core.Member {
	m := core.Member{
		ID: PgUUIDToString(row.ID),
		MemberFields: core.MemberFields{
			MemberNumber:  row.MemberNumber,
			DNI:           FromPgText(row.Dni),
			FirstName:     row.FirstName,
			LastName:      row.LastName,
			Phone:         FromPgText(row.Phone),
			Plan:          FromPgText(row.Plan),
			PlanExpiresAt: FromPgDate(row.PlanExpiresAt),
			Status:        core.MemberStatus(row.Status),
		},
		CreatedAt: fromPgTime(row.CreatedAt),
		UpdatedAt: fromPgTime(row.UpdatedAt),
	}
	if row.DeletedAt.Valid {
		t := row.DeletedAt.Time
		m.DeletedAt = &t
	}
	return m
}

func insertMemberParams(f core.MemberFields) db.InsertMemberParams {
	return db.InsertMemberParams{
		MemberNumber:  f.MemberNumber,
		Dni:           ToPgText(f.DNI),
		FirstName:     f.FirstName,
		LastName:      f.LastName,
		Phone:         ToPgText(f.Phone),
		Plan:          ToPgText(f.Plan),
		PlanExpiresAt: ToPgDate(f.PlanExpiresAt),
		Status:        string(f.Status),
	}
}

func updateMemberParams(m core.Member) db.UpdateMemberParams {
	return db.UpdateMemberParams{
		ID:            ToPgUUID(m.ID),
		MemberNumber:  m.MemberNumber,
		Dni:           ToPgText(m.DNI),
		FirstName:     m.FirstName,
		LastName:      m.LastName,
		Phone:         ToPgText(m.Phone),
		Plan:          ToPgText(m.Plan),
		PlanExpiresAt: ToPgDate(m.PlanExpiresAt),
		Status:        string(m.Status),
	}
}

func jobFromRow(row db.ImportJob) (core.ImportJob, error) {
	job := core.ImportJob{
		ID:               PgUUIDToString(row.ID),
		OriginalFileName: row.OriginalFileName,
		StoragePath:      row.StoragePath,
		MonthKey:         row.MonthKey,
		UploadedByUserID: row.UploadedByUserID,
		Status:           core.JobStatus(row.Status),
		CreatedAt:        fromPgTime(row.CreatedAt),
		UpdatedAt:        fromPgTime(row.UpdatedAt),
	}
	if err := json.Unmarshal(row.SummaryJson, &job.Summary); err != nil {
		return core.ImportJob{}, fmt.Errorf("decode summary of job %s: %w", job.ID, err)
	}
	return job, nil
}

// snapshotJSON encodes a snapshot column. A nil snapshot is SQL NULL.
func snapshotJSON(s *core.MemberSnapshot) ([]byte, error) {
	if s == nil {
		return nil, nil
	}
	return json.Marshal(s)
}

func snapshotFromJSON(b []byte) (*core.MemberSnapshot, error) {
	if len(b) == 0 || string(b) == "null" {
		return nil, nil
	}
	var s core.MemberSnapshot
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func changeFromRow(row db.ImportChange) (core.ImportChange, error) {
	kind, err := core.ParseChangeKind(row.ChangeType)
	if err != nil {
		return core.ImportChange{}, err
	}

	c := core.ImportChange{
		ID:           PgUUIDToString(row.ID),
		ImportJobID:  PgUUIDToString(row.ImportJobID),
		Kind:         kind,
		MemberNumber: row.MemberNumber,
	}
	if row.MemberID.Valid {
		id := PgUUIDToString(row.MemberID)
		c.MemberID = &id
	}
	if c.Before, err = snapshotFromJSON(row.BeforeJson); err != nil {
		return core.ImportChange{}, fmt.Errorf("decode before of change %s: %w", c.ID, err)
	}
	if c.After, err = snapshotFromJSON(row.AfterJson); err != nil {
		return core.ImportChange{}, fmt.Errorf("decode after of change %s: %w", c.ID, err)
	}
	return c, nil
}
