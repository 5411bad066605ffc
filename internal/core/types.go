package core

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// MemberStatus is the membership state of a member.
type MemberStatus string

const (
	StatusActive   MemberStatus = "ACTIVE"
	StatusInactive MemberStatus = "INACTIVE"
)

// ParseMemberStatus accepts ACTIVE or INACTIVE in any case. An empty value
// defaults to ACTIVE.
func ParseMemberStatus(s string) (MemberStatus, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", string(StatusActive):
		return StatusActive, nil
	case string(StatusInactive):
		return StatusInactive, nil
	default:
		return "", fmt.Errorf("invalid enum: status %q", s)
	}
}

// Action is what a spreadsheet row asks for.
type Action string

const (
	ActionUpsert Action = "UPSERT"
	ActionDelete Action = "DELETE"
)

// Date is a calendar day with no time or zone. Member dates are compared and
// stored at day granularity.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the calendar day of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Time returns midnight UTC of the day.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// String formats the day as YYYY-MM-DD.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("date: %w", err)
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MemberFields is the set of tracked member fields: the ones an import can
// set and the ones compared when diffing.
type MemberFields struct {
	MemberNumber  string       `json:"memberNumber"`
	DNI           *string      `json:"dni"`
	FirstName     string       `json:"firstName"`
	LastName      string       `json:"lastName"`
	Phone         *string      `json:"phone"`
	Plan          *string      `json:"plan"`
	PlanExpiresAt *Date        `json:"planExpiresAt"`
	Status        MemberStatus `json:"status"`
}

// Member is a persisted membership record.
type Member struct {
	ID string `json:"id"`
	MemberFields
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
}

// NewMember holds the fields accepted when a member is created directly
// rather than through an import. The member number is allocated by the store.
type NewMember struct {
	DNI           *string      `json:"dni"`
	FirstName     string       `json:"firstName"`
	LastName      string       `json:"lastName"`
	Phone         *string      `json:"phone"`
	Plan          *string      `json:"plan"`
	PlanExpiresAt *Date        `json:"planExpiresAt"`
	Status        MemberStatus `json:"status"`
}

// ParsedRow is one valid data row of an import sheet.
type ParsedRow struct {
	RowNumber int
	Action    Action
	Fields    MemberFields
}

// RowError collects every validation message for one sheet row.
type RowError struct {
	RowNumber int      `json:"rowNumber"`
	Messages  []string `json:"messages"`
}

// JobStatus is the state of an import job.
//
//	VALIDATED -> APPLIED
//	VALIDATED -> FAILED
type JobStatus string

const (
	JobValidated JobStatus = "VALIDATED"
	JobApplied   JobStatus = "APPLIED"
	JobFailed    JobStatus = "FAILED"
)

// CanApply reports whether a job in this state may be applied.
func (s JobStatus) CanApply() bool {
	return s == JobValidated
}

// Terminal reports whether no further transition is possible.
func (s JobStatus) Terminal() bool {
	return s == JobApplied || s == JobFailed
}

// Counts summarises a validated plan.
type Counts struct {
	Total   int `json:"total"`
	Created int `json:"created"`
	Updated int `json:"updated"`
	Deleted int `json:"deleted"`
	Noop    int `json:"noop"`
	Errors  int `json:"errors"`
}

func (c *Counts) add(kind ChangeKind) {
	switch kind {
	case ChangeCreate:
		c.Created++
	case ChangeUpdate:
		c.Updated++
	case ChangeDelete:
		c.Deleted++
	case ChangeNoop:
		c.Noop++
	}
}

// AppliedCounts is what apply actually did, which can differ from the plan
// when the member table changed in between.
type AppliedCounts struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Deleted int `json:"deleted"`
	Noop    int `json:"noop"`
}

// Summary is the job's stored summary document. Applied is set when the job
// reaches APPLIED and Error when it reaches FAILED.
type Summary struct {
	Counts
	RowErrors []RowError     `json:"rowErrors"`
	Changes   []ImportChange `json:"changes"`
	Applied   *AppliedCounts `json:"applied,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// ImportJob is a validated import plan and its lifecycle state.
type ImportJob struct {
	ID               string    `json:"id"`
	OriginalFileName string    `json:"originalFileName"`
	StoragePath      string    `json:"storagePath"`
	MonthKey         string    `json:"monthKey"`
	UploadedByUserID string    `json:"uploadedByUserId"`
	Status           JobStatus `json:"status"`
	Summary          Summary   `json:"summaryJson"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// JobFilter narrows ListJobs.
type JobFilter struct {
	MonthKey string
	Status   JobStatus
	Limit    int
	Offset   int
}

// ValidateInput is a spreadsheet submitted for validation.
type ValidateInput struct {
	FileName string
	Data     []byte
	MonthKey string
	ActorID  string
}

// ValidateResult is the preview returned by Validate.
type ValidateResult struct {
	ImportJobID string         `json:"importJobId"`
	Counts      Counts         `json:"counts"`
	RowErrors   []RowError     `json:"rowErrors"`
	Changes     []ImportChange `json:"changes"`
}
