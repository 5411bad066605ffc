package core

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Field names a tracked member field as it appears in sheet headers and in
// stored snapshots.
type Field string

const (
	FieldMemberNumber  Field = "memberNumber"
	FieldDNI           Field = "dni"
	FieldFirstName     Field = "firstName"
	FieldLastName      Field = "lastName"
	FieldPhone         Field = "phone"
	FieldPlan          Field = "plan"
	FieldPlanExpiresAt Field = "planExpiresAt"
	FieldStatus        Field = "status"
)

// TrackedFields lists the diffed fields in their canonical order.
var TrackedFields = []Field{
	FieldMemberNumber,
	FieldDNI,
	FieldFirstName,
	FieldLastName,
	FieldPhone,
	FieldPlan,
	FieldPlanExpiresAt,
	FieldStatus,
}

// FieldSet is a bit set over TrackedFields.
type FieldSet uint16

// AllFields contains every tracked field.
const AllFields FieldSet = 1<<8 - 1

func fieldBit(f Field) FieldSet {
	for i, tf := range TrackedFields {
		if tf == f {
			return 1 << i
		}
	}
	return 0
}

// Has reports whether f is in the set.
func (s FieldSet) Has(f Field) bool {
	b := fieldBit(f)
	return b != 0 && s&b != 0
}

// Fields returns the members of the set in canonical order.
func (s FieldSet) Fields() []Field {
	var out []Field
	for i, f := range TrackedFields {
		if s&(1<<i) != 0 {
			out = append(out, f)
		}
	}
	return out
}

// Len returns the number of fields in the set.
func (s FieldSet) Len() int {
	n := 0
	for v := s; v != 0; v &= v - 1 {
		n++
	}
	return n
}

// value returns the comparable form of a field: strings as-is, dates as
// YYYY-MM-DD, and nil for an unset nullable field.
func (f *MemberFields) value(field Field) any {
	switch field {
	case FieldMemberNumber:
		return f.MemberNumber
	case FieldDNI:
		return optString(f.DNI)
	case FieldFirstName:
		return f.FirstName
	case FieldLastName:
		return f.LastName
	case FieldPhone:
		return optString(f.Phone)
	case FieldPlan:
		return optString(f.Plan)
	case FieldPlanExpiresAt:
		if f.PlanExpiresAt == nil {
			return nil
		}
		return f.PlanExpiresAt.String()
	case FieldStatus:
		return string(f.Status)
	}
	return nil
}

// copyField copies one field from src into f.
func (f *MemberFields) copyField(field Field, src *MemberFields) {
	switch field {
	case FieldMemberNumber:
		f.MemberNumber = src.MemberNumber
	case FieldDNI:
		f.DNI = src.DNI
	case FieldFirstName:
		f.FirstName = src.FirstName
	case FieldLastName:
		f.LastName = src.LastName
	case FieldPhone:
		f.Phone = src.Phone
	case FieldPlan:
		f.Plan = src.Plan
	case FieldPlanExpiresAt:
		f.PlanExpiresAt = src.PlanExpiresAt
	case FieldStatus:
		f.Status = src.Status
	}
}

func optString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

// sameValue compares two field values the way an operator reads a sheet:
// an empty string and a missing value are the same thing.
func sameValue(a, b any) bool {
	as, _ := a.(string)
	bs, _ := b.(string)
	return as == bs
}

// MemberSnapshot is a typed subset of a member's tracked fields. A full
// snapshot carries every field; a partial one carries only the fields an
// update changes.
type MemberSnapshot struct {
	values MemberFields
	set    FieldSet
}

// FullSnapshot captures every tracked field of f.
func FullSnapshot(f MemberFields) *MemberSnapshot {
	return &MemberSnapshot{values: f, set: AllFields}
}

// PartialSnapshot captures only the fields in set.
func PartialSnapshot(f MemberFields, set FieldSet) *MemberSnapshot {
	s := &MemberSnapshot{set: set}
	for _, field := range set.Fields() {
		s.values.copyField(field, &f)
	}
	return s
}

// Fields reports which fields the snapshot carries.
func (s *MemberSnapshot) Fields() FieldSet {
	return s.set
}

// Values returns the carried values. Fields not in the snapshot are zero.
func (s *MemberSnapshot) Values() MemberFields {
	return s.values
}

// Value returns the comparable value of one field and whether the snapshot
// carries it.
func (s *MemberSnapshot) Value(f Field) (any, bool) {
	if !s.set.Has(f) {
		return nil, false
	}
	return s.values.value(f), true
}

// IsFull reports whether every tracked field is present.
func (s *MemberSnapshot) IsFull() bool {
	return s.set == AllFields
}

// Diff compares current against desired over the tracked fields and returns
// snapshots holding only the differing keys. Both results are nil when
// nothing differs.
func Diff(current, desired MemberFields) (before, after *MemberSnapshot) {
	var changed FieldSet
	for i, f := range TrackedFields {
		if !sameValue(current.value(f), desired.value(f)) {
			changed |= 1 << i
		}
	}
	if changed == 0 {
		return nil, nil
	}
	return PartialSnapshot(current, changed), PartialSnapshot(desired, changed)
}

// MergeInto writes the carried fields onto f and leaves the rest untouched.
func (s *MemberSnapshot) MergeInto(f *MemberFields) {
	for _, field := range s.set.Fields() {
		f.copyField(field, &s.values)
	}
}

// MarshalJSON writes the carried fields as an object in canonical order.
func (s MemberSnapshot) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range s.set.Fields() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, _ := json.Marshal(string(f))
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(s.values.value(f))
		if err != nil {
			return nil, fmt.Errorf("snapshot %s: %w", f, err)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an object of tracked fields. Unknown keys are ignored.
func (s *MemberSnapshot) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}

	*s = MemberSnapshot{}
	for i, f := range TrackedFields {
		msg, ok := raw[string(f)]
		if !ok {
			continue
		}
		if err := s.values.decodeField(f, msg); err != nil {
			return fmt.Errorf("snapshot %s: %w", f, err)
		}
		s.set |= 1 << i
	}
	return nil
}

func (f *MemberFields) decodeField(field Field, msg json.RawMessage) error {
	switch field {
	case FieldMemberNumber:
		return decodeString(msg, &f.MemberNumber)
	case FieldDNI:
		return json.Unmarshal(msg, &f.DNI)
	case FieldFirstName:
		return decodeString(msg, &f.FirstName)
	case FieldLastName:
		return decodeString(msg, &f.LastName)
	case FieldPhone:
		return json.Unmarshal(msg, &f.Phone)
	case FieldPlan:
		return json.Unmarshal(msg, &f.Plan)
	case FieldPlanExpiresAt:
		return json.Unmarshal(msg, &f.PlanExpiresAt)
	case FieldStatus:
		var st string
		if err := decodeString(msg, &st); err != nil {
			return err
		}
		f.Status = MemberStatus(st)
	}
	return nil
}

// decodeString treats a JSON null as the empty string.
func decodeString(msg json.RawMessage, dst *string) error {
	var p *string
	if err := json.Unmarshal(msg, &p); err != nil {
		return err
	}
	if p != nil {
		*dst = *p
	} else {
		*dst = ""
	}
	return nil
}
