package database

import (
	"net/netip"

	"github.com/jackc/pgx/v5/pgtype"
)

type AuditLog struct {
	ID         pgtype.UUID
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

type ImportChange struct {
	ID           pgtype.UUID
	ImportJobID  pgtype.UUID
	Seq          int32
	MemberID     pgtype.UUID
	ChangeType   string
	MemberNumber string
	BeforeJson   []byte
	AfterJson    []byte
	CreatedAt    pgtype.Timestamptz
}

type ImportJob struct {
	ID               pgtype.UUID
	OriginalFileName string
	StoragePath      string
	MonthKey         string
	UploadedByUserID string
	Status           string
	SummaryJson      []byte
	CreatedAt        pgtype.Timestamptz
	UpdatedAt        pgtype.Timestamptz
}

type Member struct {
	ID            pgtype.UUID
	MemberNumber  string
	Dni           pgtype.Text
	FirstName     string
	LastName      string
	Phone         pgtype.Text
	Plan          pgtype.Text
	PlanExpiresAt pgtype.Date
	Status        string
	CreatedAt     pgtype.Timestamptz
	UpdatedAt     pgtype.Timestamptz
	DeletedAt     pgtype.Timestamptz
}
