package core

import (
	"errors"
	"slices"
	"strings"
	"testing"
)

var testHeader = []string{"memberNumber", "dni", "firstName", "lastName", "phone", "plan", "planExpiresAt", "status", "action"}

func TestParseRows_ValidRow(t *testing.T) {
	res, err := ParseRows([][]string{
		testHeader,
		{"0001", "30111222", "Ana", "Diaz", "", "Gold", "2026-12-31", "inactive", "upsert"},
	}, 0)
	if err != nil {
		t.Fatalf("ParseRows() error: %v", err)
	}
	if len(res.RowErrors) != 0 {
		t.Fatalf("unexpected row errors: %+v", res.RowErrors)
	}
	if len(res.Rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(res.Rows))
	}

	row := res.Rows[0]
	if row.RowNumber != 1 {
		t.Errorf("RowNumber = %d, want 1", row.RowNumber)
	}
	if row.Action != ActionUpsert {
		t.Errorf("Action = %q", row.Action)
	}
	f := row.Fields
	if f.MemberNumber != "0001" || f.FirstName != "Ana" || f.LastName != "Diaz" {
		t.Errorf("names = %+v", f)
	}
	if f.DNI == nil || *f.DNI != "30111222" {
		t.Errorf("DNI = %v", f.DNI)
	}
	if f.Phone != nil {
		t.Errorf("empty phone should be nil, got %q", *f.Phone)
	}
	if f.PlanExpiresAt == nil || f.PlanExpiresAt.String() != "2026-12-31" {
		t.Errorf("PlanExpiresAt = %v", f.PlanExpiresAt)
	}
	if f.Status != StatusInactive {
		t.Errorf("Status = %q", f.Status)
	}
}

func TestParseRows_CollectsEveryProblemOfARow(t *testing.T) {
	res, err := ParseRows([][]string{
		testHeader,
		{"", "", "", "", "", "", "someday", "gone", "UPSERT"},
	}, 0)
	if err != nil {
		t.Fatalf("ParseRows() error: %v", err)
	}
	if len(res.RowErrors) != 1 {
		t.Fatalf("got %d row errors, want 1", len(res.RowErrors))
	}

	want := []string{
		"memberNumber is required",
		"firstName is required for UPSERT",
		"lastName is required for UPSERT",
		`status must be ACTIVE or INACTIVE (got "GONE")`,
		`planExpiresAt "someday" is not a valid date (use YYYY-MM-DD)`,
	}
	got := res.RowErrors[0].Messages
	if !slices.Equal(got, want) {
		t.Errorf("messages =\n%q\nwant\n%q", got, want)
	}
}

func TestParseRows_RowRules(t *testing.T) {
	tests := []struct {
		name    string
		record  []string
		wantErr string
	}{
		{"bad action", []string{"1", "", "Ana", "Diaz", "", "", "", "", "MERGE"}, `action must be UPSERT or DELETE (got "MERGE")`},
		{"missing action", []string{"1", "", "Ana", "Diaz", "", "", "", "", ""}, `action must be UPSERT or DELETE (got "")`},
		{"upsert without last name", []string{"1", "", "Ana", "", "", "", "", "", "UPSERT"}, "lastName is required for UPSERT"},
		{"delete needs no names", []string{"1", "", "", "", "", "", "", "", "DELETE"}, ""},
		{"status defaults to active", []string{"1", "", "Ana", "Diaz", "", "", "", "", "UPSERT"}, ""},
		{"excel serial date", []string{"1", "", "Ana", "Diaz", "", "", "46112", "", "UPSERT"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := ParseRows([][]string{testHeader, tt.record}, 0)
			if err != nil {
				t.Fatalf("ParseRows() error: %v", err)
			}
			if tt.wantErr == "" {
				if len(res.RowErrors) != 0 {
					t.Fatalf("unexpected row errors: %+v", res.RowErrors)
				}
				return
			}
			if len(res.RowErrors) != 1 || !slices.Contains(res.RowErrors[0].Messages, tt.wantErr) {
				t.Errorf("row errors = %+v, want %q", res.RowErrors, tt.wantErr)
			}
		})
	}
}

func TestParseRows_BlankRowsKeepNumbering(t *testing.T) {
	res, err := ParseRows([][]string{
		{"memberNumber", "firstName", "lastName", "action"},
		{"1", "Ana", "Diaz", "UPSERT"},
		{"", " ", "", ""},
		{"", "Luis", "Perez", "UPSERT"},
		{"3", "Sol", "Vega", "UPSERT"},
	}, 0)
	if err != nil {
		t.Fatalf("ParseRows() error: %v", err)
	}

	var numbers []int
	for _, r := range res.Rows {
		numbers = append(numbers, r.RowNumber)
	}
	if !slices.Equal(numbers, []int{1, 4}) {
		t.Errorf("row numbers = %v, want [1 4]", numbers)
	}
	if len(res.RowErrors) != 1 || res.RowErrors[0].RowNumber != 3 {
		t.Errorf("row errors = %+v, want one on row 3", res.RowErrors)
	}
}

func TestParseRows_HeaderProblems(t *testing.T) {
	tests := []struct {
		name    string
		records [][]string
		want    error
	}{
		{"no records", nil, ErrEmptySheet},
		{"blank header", [][]string{{"", " "}}, ErrEmptySheet},
		{"missing action", [][]string{{"memberNumber", "firstName", "lastName"}}, ErrMissingColumns},
		{"missing everything", [][]string{{"name", "phone"}}, ErrMissingColumns},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRows(tt.records, 0)
			if !errors.Is(err, tt.want) {
				t.Errorf("ParseRows() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestValidateHeaders_ListsAllMissing(t *testing.T) {
	err := ValidateHeaders(MakeHeaderIndex([]string{"firstName"}))
	if err == nil {
		t.Fatal("expected error")
	}
	for _, col := range []string{"memberNumber", "lastName", "action"} {
		if !strings.Contains(err.Error(), col) {
			t.Errorf("error %q does not name %s", err, col)
		}
	}
}

func TestParseRows_RowLimit(t *testing.T) {
	records := [][]string{{"memberNumber", "firstName", "lastName", "action"}}
	for range 3 {
		records = append(records, []string{"1", "Ana", "Diaz", "UPSERT"})
	}

	if _, err := ParseRows(records, 2); !errors.Is(err, ErrTooManyRows) {
		t.Errorf("ParseRows() error = %v, want ErrTooManyRows", err)
	}
	if _, err := ParseRows(records, 3); err != nil {
		t.Errorf("ParseRows() at limit: %v", err)
	}
}

// ----------------------------------------------------------------------------
// FilterDuplicates Tests
// ----------------------------------------------------------------------------

func TestFilterDuplicates(t *testing.T) {
	rows := []ParsedRow{
		{RowNumber: 1, Fields: MemberFields{MemberNumber: "7", LastName: "Diaz"}},
		{RowNumber: 2, Fields: MemberFields{MemberNumber: "8"}},
		{RowNumber: 3, Fields: MemberFields{MemberNumber: "7", LastName: "Gomez"}},
		{RowNumber: 5, Fields: MemberFields{MemberNumber: "7"}},
	}

	valid, dupes := FilterDuplicates(rows)

	if len(valid) != 2 || valid[0].Fields.LastName != "Diaz" || valid[1].Fields.MemberNumber != "8" {
		t.Errorf("valid = %+v", valid)
	}
	if len(dupes) != 2 {
		t.Fatalf("got %d duplicates, want 2", len(dupes))
	}
	if dupes[0].RowNumber != 3 || dupes[1].RowNumber != 5 {
		t.Errorf("duplicate rows = %d, %d", dupes[0].RowNumber, dupes[1].RowNumber)
	}
	want := `duplicate memberNumber "7" in file (first seen on row 1)`
	if dupes[1].Messages[0] != want {
		t.Errorf("message = %q, want %q", dupes[1].Messages[0], want)
	}
}
