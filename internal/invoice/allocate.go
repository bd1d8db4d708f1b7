package invoice

import (
	"fmt"
	"strings"
)

// NextID returns the id the next invoice dated date would get:
// the date without dashes, a dash, and 1 + the number of existing rows
// carrying that exact date, zero-padded to three digits. Past 999 the
// sequence simply grows wider ("20240501-1000").
func NextID(date string, table [][]string, s Schema) string {
	return fmt.Sprintf("%s-%03d", strings.ReplaceAll(date, "-", ""), CountForDate(table, date, s)+1)
}

// CountForDate counts data rows whose date column equals date. The date
// column is taken from each row's own layout.
func CountForDate(table [][]string, date string, s Schema) int {
	n := 0
	for _, row := range dataRows(table) {
		if cell(row, s.ForRow(row).Date) == date {
			n++
		}
	}
	return n
}
