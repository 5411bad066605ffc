package core

// parser.go turns a sheet's cell grid into typed rows.
//
// The first row is the header. Every later row is validated on its own and
// all of its problems are collected, so an operator can fix a file in one
// pass instead of resubmitting once per mistake. A row with any problem is
// reported in RowErrors and never reaches diffing.

import (
	"fmt"
	"strings"
)

// fieldAction is the row action column. It is not a member field.
const fieldAction Field = "action"

// RequiredColumns must all be present in the header row.
var RequiredColumns = []Field{FieldMemberNumber, FieldFirstName, FieldLastName, fieldAction}

// ParseResult is the output of ParseRows.
type ParseResult struct {
	Rows      []ParsedRow
	RowErrors []RowError
}

// ParseRows validates records (header first) into typed rows. It fails only
// when the header is unusable; row problems are returned in RowErrors.
// maxRows caps the number of data rows; zero means no limit.
func ParseRows(records [][]string, maxRows int) (ParseResult, error) {
	if len(records) == 0 || isEmptyRow(records[0]) {
		return ParseResult{}, fmt.Errorf("%w: no header row", ErrEmptySheet)
	}

	header := MakeHeaderIndex(records[0])
	if err := ValidateHeaders(header); err != nil {
		return ParseResult{}, err
	}

	data := records[1:]
	if maxRows > 0 && len(data) > maxRows {
		return ParseResult{}, fmt.Errorf("%w: %d data rows, limit is %d", ErrTooManyRows, len(data), maxRows)
	}

	var result ParseResult
	for i, record := range data {
		if isEmptyRow(record) {
			continue
		}

		row, messages := parseRow(header, record)
		row.RowNumber = i + 1
		if len(messages) > 0 {
			result.RowErrors = append(result.RowErrors, RowError{RowNumber: row.RowNumber, Messages: messages})
			continue
		}
		result.Rows = append(result.Rows, row)
	}

	return result, nil
}

// ValidateHeaders reports every required column missing from header.
func ValidateHeaders(header HeaderIndex) error {
	var missing []string
	for _, col := range RequiredColumns {
		if !header.Has(col) {
			missing = append(missing, string(col))
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}
	return nil
}

// parseRow builds a row and the list of everything wrong with it.
func parseRow(header HeaderIndex, record []string) (ParsedRow, []string) {
	var messages []string
	cell := func(f Field) string { return header.Cell(record, f) }

	memberNumber := cell(FieldMemberNumber)
	if memberNumber == "" {
		messages = append(messages, "memberNumber is required")
	}

	actionRaw := strings.ToUpper(cell(fieldAction))
	action := Action(actionRaw)
	if action != ActionUpsert && action != ActionDelete {
		messages = append(messages, fmt.Sprintf("action must be UPSERT or DELETE (got %q)", actionRaw))
	}

	firstName := cell(FieldFirstName)
	lastName := cell(FieldLastName)
	if action == ActionUpsert {
		if firstName == "" {
			messages = append(messages, "firstName is required for UPSERT")
		}
		if lastName == "" {
			messages = append(messages, "lastName is required for UPSERT")
		}
	}

	statusRaw := cell(FieldStatus)
	status, err := ParseMemberStatus(statusRaw)
	if err != nil {
		messages = append(messages, fmt.Sprintf("status must be ACTIVE or INACTIVE (got %q)", strings.ToUpper(statusRaw)))
	}

	var planExpiresAt *Date
	if raw := cell(FieldPlanExpiresAt); raw != "" {
		d, err := ParseDate(raw)
		if err != nil {
			messages = append(messages, fmt.Sprintf("planExpiresAt %q is not a valid date (use YYYY-MM-DD)", raw))
		} else {
			planExpiresAt = &d
		}
	}

	return ParsedRow{
		Action: action,
		Fields: MemberFields{
			MemberNumber:  memberNumber,
			DNI:           optional(cell(FieldDNI)),
			FirstName:     firstName,
			LastName:      lastName,
			Phone:         optional(cell(FieldPhone)),
			Plan:          optional(cell(FieldPlan)),
			PlanExpiresAt: planExpiresAt,
			Status:        status,
		},
	}, messages
}
