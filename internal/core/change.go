package core

import (
	"errors"
	"fmt"
)

// ChangeKind classifies what applying a row will do to the member table.
type ChangeKind string

const (
	ChangeCreate ChangeKind = "CREATE"
	ChangeUpdate ChangeKind = "UPDATE"
	ChangeDelete ChangeKind = "DELETE"
	ChangeNoop   ChangeKind = "NOOP"
)

// ParseChangeKind converts a stored change type back into a ChangeKind.
func ParseChangeKind(s string) (ChangeKind, error) {
	switch k := ChangeKind(s); k {
	case ChangeCreate, ChangeUpdate, ChangeDelete, ChangeNoop:
		return k, nil
	default:
		return "", fmt.Errorf("unknown change type %q", s)
	}
}

// ImportChange is one planned row-level change of an import job.
//
// The payloads depend on Kind:
//
//	CREATE  Before nil,     After full
//	UPDATE  Before partial, After partial, same keys
//	DELETE  Before full,    After nil
//	NOOP    Before nil,     After nil
//
// Use the New*Change constructors to build values that hold this shape.
type ImportChange struct {
	ID           string          `json:"id,omitempty"`
	ImportJobID  string          `json:"importJobId,omitempty"`
	MemberID     *string         `json:"memberId,omitempty"`
	Kind         ChangeKind      `json:"changeType"`
	MemberNumber string          `json:"memberNumber"`
	Before       *MemberSnapshot `json:"before"`
	After        *MemberSnapshot `json:"after"`
}

// NewCreateChange plans the creation of a member from desired.
func NewCreateChange(desired MemberFields) ImportChange {
	return ImportChange{
		Kind:         ChangeCreate,
		MemberNumber: desired.MemberNumber,
		After:        FullSnapshot(desired),
	}
}

// NewUpdateChange plans an update. before and after must carry the same keys.
func NewUpdateChange(memberNumber string, before, after *MemberSnapshot) ImportChange {
	return ImportChange{
		Kind:         ChangeUpdate,
		MemberNumber: memberNumber,
		Before:       before,
		After:        after,
	}
}

// NewDeleteChange plans the soft delete of existing.
func NewDeleteChange(existing MemberFields) ImportChange {
	return ImportChange{
		Kind:         ChangeDelete,
		MemberNumber: existing.MemberNumber,
		Before:       FullSnapshot(existing),
	}
}

// NewNoopChange records a row that matches the member table exactly.
func NewNoopChange(memberNumber string) ImportChange {
	return ImportChange{Kind: ChangeNoop, MemberNumber: memberNumber}
}

var errMalformedChange = errors.New("malformed change")

// Check verifies that the payloads match Kind. Changes read back from
// storage are checked before they are applied.
func (c ImportChange) Check() error {
	if c.MemberNumber == "" {
		return fmt.Errorf("%w: empty member number", errMalformedChange)
	}

	switch c.Kind {
	case ChangeCreate:
		if c.Before != nil || c.After == nil || !c.After.IsFull() {
			return fmt.Errorf("%w: CREATE %s needs a full after snapshot only", errMalformedChange, c.MemberNumber)
		}
	case ChangeUpdate:
		if c.Before == nil || c.After == nil || c.After.Fields().Len() == 0 {
			return fmt.Errorf("%w: UPDATE %s needs before and after", errMalformedChange, c.MemberNumber)
		}
		if c.Before.Fields() != c.After.Fields() {
			return fmt.Errorf("%w: UPDATE %s before and after keys differ", errMalformedChange, c.MemberNumber)
		}
	case ChangeDelete:
		if c.After != nil || c.Before == nil || !c.Before.IsFull() {
			return fmt.Errorf("%w: DELETE %s needs a full before snapshot only", errMalformedChange, c.MemberNumber)
		}
	case ChangeNoop:
		if c.Before != nil || c.After != nil {
			return fmt.Errorf("%w: NOOP %s must not carry snapshots", errMalformedChange, c.MemberNumber)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", errMalformedChange, c.Kind)
	}
	return nil
}
