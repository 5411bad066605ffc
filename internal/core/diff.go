package core

import "fmt"

// Plan is the classified result of diffing valid rows against the member
// table.
type Plan struct {
	Changes   []ImportChange
	RowErrors []RowError
	Counts    Counts
}

// MemberNumbers returns the member numbers referenced by rows, in order.
func MemberNumbers(rows []ParsedRow) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Fields.MemberNumber
	}
	return out
}

// BuildPlan classifies each row against existing, which maps member number
// to the live member. Changes come out in row order. Counts.Errors only
// covers errors raised here; callers add parse and duplicate errors.
func BuildPlan(rows []ParsedRow, existing map[string]Member) Plan {
	var plan Plan
	plan.Counts.Total = len(rows)

	for _, row := range rows {
		current, found := existing[row.Fields.MemberNumber]

		var change ImportChange
		switch {
		case row.Action == ActionDelete && !found:
			plan.RowErrors = append(plan.RowErrors, RowError{
				RowNumber: row.RowNumber,
				Messages:  []string{fmt.Sprintf("cannot DELETE: member %q does not exist", row.Fields.MemberNumber)},
			})
			continue
		case row.Action == ActionDelete:
			change = NewDeleteChange(current.MemberFields)
		case !found:
			change = NewCreateChange(row.Fields)
		default:
			before, after := Diff(current.MemberFields, row.Fields)
			if before == nil {
				change = NewNoopChange(row.Fields.MemberNumber)
			} else {
				change = NewUpdateChange(row.Fields.MemberNumber, before, after)
			}
		}

		plan.Changes = append(plan.Changes, change)
		plan.Counts.add(change.Kind)
	}

	plan.Counts.Errors = len(plan.RowErrors)
	return plan
}
