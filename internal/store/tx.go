package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/JonMunkholm/membersync/internal/core"
	db "github.com/JonMunkholm/membersync/internal/database"
)

// txStore is the core.StoreTx handed to InTx callbacks.
type txStore struct {
	q *db.Queries
}

var _ core.StoreTx = (*txStore)(nil)

func (t *txStore) LockJob(ctx context.Context, id string) (core.ImportJob, error) {
	pgID := ToPgUUID(id)
	if !pgID.Valid {
		return core.ImportJob{}, fmt.Errorf("%w: %q", core.ErrJobNotFound, id)
	}

	row, err := t.q.GetImportJobForUpdate(ctx, pgID)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.ImportJob{}, fmt.Errorf("%w: %s", core.ErrJobNotFound, id)
	}
	if err != nil {
		return core.ImportJob{}, fmt.Errorf("lock import job: %w", err)
	}
	return jobFromRow(row)
}

func (t *txStore) ListChanges(ctx context.Context, jobID string) ([]core.ImportChange, error) {
	return listChanges(ctx, t.q, jobID)
}

func (t *txStore) FindMember(ctx context.Context, number string) (core.Member, error) {
	return findMember(ctx, t.q, number)
}

func (t *txStore) CreateMember(ctx context.Context, f core.MemberFields) (core.Member, error) {
	row, err := t.q.InsertMember(ctx, insertMemberParams(f))
	if err != nil {
		return core.Member{}, err
	}
	return memberFromRow(row), nil
}

func (t *txStore) UpdateMember(ctx context.Context, m core.Member) (core.Member, error) {
	row, err := t.q.UpdateMember(ctx, updateMemberParams(m))
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Member{}, fmt.Errorf("%w: %s", core.ErrMemberNotFound, m.MemberNumber)
	}
	if err != nil {
		return core.Member{}, err
	}
	return memberFromRow(row), nil
}

func (t *txStore) SoftDeleteMember(ctx context.Context, id string) error {
	n, err := t.q.SoftDeleteMember(ctx, ToPgUUID(id))
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: id %s", core.ErrMemberNotFound, id)
	}
	return nil
}

func (t *txStore) NextMemberNumber(ctx context.Context) (string, error) {
	n, err := t.q.NextMemberNumber(ctx)
	if err != nil {
		return "", err
	}
	return FormatMemberNumber(n), nil
}

func (t *txStore) SetChangeMember(ctx context.Context, changeID, memberID string) error {
	n, err := t.q.SetImportChangeMember(ctx, db.SetImportChangeMemberParams{
		ID:       ToPgUUID(changeID),
		MemberID: ToPgUUID(memberID),
	})
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("change %s not found", changeID)
	}
	return nil
}

func (t *txStore) MarkApplied(ctx context.Context, jobID string, summary core.Summary) error {
	return setJobStatus(ctx, t.q, jobID, core.JobApplied, summary)
}

// FormatMemberNumber renders an allocated member number zero-padded to six
// digits. Larger numbers keep all their digits.
func FormatMemberNumber(n int64) string {
	return fmt.Sprintf("%06d", n)
}
