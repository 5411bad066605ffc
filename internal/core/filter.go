package core

import "fmt"

// FilterDuplicates keeps the first row for each member number and turns
// every later row with the same number into a RowError. Surviving rows keep
// their file order.
func FilterDuplicates(rows []ParsedRow) (valid []ParsedRow, dupes []RowError) {
	seen := make(map[string]int, len(rows))
	valid = make([]ParsedRow, 0, len(rows))

	for _, row := range rows {
		key := row.Fields.MemberNumber
		if first, ok := seen[key]; ok {
			dupes = append(dupes, RowError{
				RowNumber: row.RowNumber,
				Messages: []string{
					fmt.Sprintf("duplicate memberNumber %q in file (first seen on row %d)", key, first),
				},
			})
			continue
		}
		seen[key] = row.RowNumber
		valid = append(valid, row)
	}

	return valid, dupes
}
