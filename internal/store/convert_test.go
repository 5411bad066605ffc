package store

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/membersync/internal/core"
	db "github.com/JonMunkholm/membersync/internal/database"
)

// ----------------------------------------------------------------------------
// pgtype helpers
// ----------------------------------------------------------------------------

func TestToPgText(t *testing.T) {
	empty := ""
	value := "555-0101"

	tests := []struct {
		name      string
		input     *string
		wantValid bool
	}{
		{"nil is NULL", nil, false},
		{"empty string is kept", &empty, true},
		{"value", &value, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToPgText(tt.input)
			if got.Valid != tt.wantValid {
				t.Fatalf("ToPgText() valid = %v, want %v", got.Valid, tt.wantValid)
			}
			back := FromPgText(got)
			if tt.input == nil {
				assert.Nil(t, back)
			} else {
				require.NotNil(t, back)
				assert.Equal(t, *tt.input, *back)
			}
		})
	}
}

func TestToPgDate(t *testing.T) {
	assert.False(t, ToPgDate(nil).Valid)

	d := core.Date{Year: 2026, Month: time.December, Day: 31}
	pg := ToPgDate(&d)
	require.True(t, pg.Valid)
	assert.Equal(t, "2026-12-31", pg.Time.Format("2006-01-02"))

	back := FromPgDate(pg)
	require.NotNil(t, back)
	assert.Equal(t, d, *back)
}

func TestToPgUUID(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantValid bool
	}{
		{"valid uuid", "3f2c8a9e-6b1d-4c9a-9f5e-2d7b1c0a4e11", true},
		{"empty", "", false},
		{"not a uuid", "job-1", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToPgUUID(tt.input)
			if got.Valid != tt.wantValid {
				t.Fatalf("ToPgUUID(%q) valid = %v, want %v", tt.input, got.Valid, tt.wantValid)
			}
			if tt.wantValid {
				assert.Equal(t, tt.input, PgUUIDToString(got))
			} else {
				assert.Equal(t, "", PgUUIDToString(got))
			}
		})
	}
}

func TestFormatMemberNumber(t *testing.T) {
	assert.Equal(t, "000001", FormatMemberNumber(1))
	assert.Equal(t, "000042", FormatMemberNumber(42))
	assert.Equal(t, "1234567", FormatMemberNumber(1234567))
}

// ----------------------------------------------------------------------------
// Row conversions
// ----------------------------------------------------------------------------

func TestMemberRoundTrip(t *testing.T) {
	expires := core.Date{Year: 2027, Month: time.March, Day: 1}
	fields := core.MemberFields{
		MemberNumber:  "000007",
		DNI:           strPtr("30111222"),
		FirstName:     "Ana",
		LastName:      "Diaz",
		PlanExpiresAt: &expires,
		Status:        core.StatusInactive,
	}

	params := insertMemberParams(fields)
	assert.False(t, params.Phone.Valid)
	assert.True(t, params.Dni.Valid)

	row := db.Member{
		ID:            ToPgUUID("3f2c8a9e-6b1d-4c9a-9f5e-2d7b1c0a4e11"),
		MemberNumber:  params.MemberNumber,
		Dni:           params.Dni,
		FirstName:     params.FirstName,
		LastName:      params.LastName,
		Phone:         params.Phone,
		Plan:          params.Plan,
		PlanExpiresAt: params.PlanExpiresAt,
		Status:        params.Status,
	}

	m := memberFromRow(row)
	assert.Equal(t, "3f2c8a9e-6b1d-4c9a-9f5e-2d7b1c0a4e11", m.ID)
	assert.Equal(t, fields, m.MemberFields)
	assert.Nil(t, m.DeletedAt)
}

func TestChangeFromRow(t *testing.T) {
	before, after := core.Diff(
		core.MemberFields{MemberNumber: "1", LastName: "Gomez"},
		core.MemberFields{MemberNumber: "1", LastName: "Diaz"},
	)
	beforeJSON, err := snapshotJSON(before)
	require.NoError(t, err)
	afterJSON, err := snapshotJSON(after)
	require.NoError(t, err)

	c, err := changeFromRow(db.ImportChange{
		ID:           ToPgUUID("3f2c8a9e-6b1d-4c9a-9f5e-2d7b1c0a4e11"),
		ImportJobID:  ToPgUUID("9a7f3e21-0c4b-4d8e-a1f2-5b6c7d8e9f00"),
		Seq:          1,
		ChangeType:   "UPDATE",
		MemberNumber: "1",
		BeforeJson:   beforeJSON,
		AfterJson:    afterJSON,
	})
	require.NoError(t, err)
	require.NoError(t, c.Check())
	assert.Equal(t, core.ChangeUpdate, c.Kind)
	assert.Nil(t, c.MemberID)
	assert.Equal(t, "Diaz", c.After.Values().LastName)

	_, err = changeFromRow(db.ImportChange{ChangeType: "MERGE"})
	assert.Error(t, err)
}

func TestSnapshotJSON_NilIsNull(t *testing.T) {
	b, err := snapshotJSON(nil)
	require.NoError(t, err)
	assert.Nil(t, b)

	s, err := snapshotFromJSON([]byte("null"))
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestJobFromRow(t *testing.T) {
	summary := core.Summary{
		Counts:    core.Counts{Total: 2, Created: 1, Errors: 1},
		RowErrors: []core.RowError{{RowNumber: 2, Messages: []string{"memberNumber is required"}}},
		Error:     "boom",
	}
	body, err := json.Marshal(summary)
	require.NoError(t, err)

	job, err := jobFromRow(db.ImportJob{
		ID:          ToPgUUID("9a7f3e21-0c4b-4d8e-a1f2-5b6c7d8e9f00"),
		MonthKey:    "2026-02",
		Status:      "FAILED",
		SummaryJson: body,
		CreatedAt:   pgtype.Timestamptz{Time: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), Valid: true},
	})
	require.NoError(t, err)
	assert.Equal(t, core.JobFailed, job.Status)
	assert.Equal(t, summary.Counts, job.Summary.Counts)
	assert.Equal(t, "boom", job.Summary.Error)
	assert.Len(t, job.Summary.RowErrors, 1)

	_, err = jobFromRow(db.ImportJob{SummaryJson: []byte("{")})
	assert.Error(t, err)
}

func TestAuditParams(t *testing.T) {
	params, err := auditParams(core.AuditEntry{
		ActorID:   "admin-1",
		Action:    core.ActionImportApply,
		Severity:  core.SeverityHigh,
		Entity:    "ImportJob",
		EntityID:  "job-1",
		After:     core.AppliedCounts{Created: 2},
		IPAddress: "203.0.113.9:51234",
	})
	require.NoError(t, err)
	assert.Nil(t, params.BeforeJson)
	assert.JSONEq(t, `{"created":2,"updated":0,"deleted":0,"noop":0}`, string(params.AfterJson))
	require.NotNil(t, params.IpAddress)
	assert.Equal(t, "203.0.113.9", params.IpAddress.String())
	assert.False(t, params.CreatedAt.Valid)
	assert.False(t, params.UserAgent.Valid)

	params, err = auditParams(core.AuditEntry{IPAddress: "not an ip"})
	require.NoError(t, err)
	assert.Nil(t, params.IpAddress)
}

func strPtr(s string) *string { return &s }
