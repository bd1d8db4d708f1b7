package invoice

import "github.com/tungkhanhbmt-a11y/alibaba2/internal/domain"

// ReplaceLines drops every data row of invoice id and appends lines, each
// stamped with id, at the end of the table. Rows of other invoices keep their
// relative order; the edited invoice always ends up last. Legacy rows have no
// id column and are never dropped.
func ReplaceLines(table [][]string, id string, lines []domain.OrderLine, s Schema) [][]string {
	out := make([][]string, 0, len(table)+len(lines))
	out = append(out, header(table, domain.OrderHeader))
	for _, row := range dataRows(table) {
		if rs := s.ForRow(row); rs.InvoiceID >= 0 && cell(row, rs.InvoiceID) == id {
			continue
		}
		out = append(out, row)
	}
	for _, line := range lines {
		line.InvoiceID = id
		out = append(out, s.Row(line))
	}
	return out
}

// ReplaceSummary drops the summary row(s) of invoice id and, when sum is not
// nil, appends it at the end.
func ReplaceSummary(table [][]string, id string, sum *domain.InvoiceSummary) [][]string {
	out := make([][]string, 0, len(table)+1)
	out = append(out, header(table, domain.SummaryHeader))
	for _, row := range dataRows(table) {
		if cell(row, 0) == id {
			continue
		}
		out = append(out, row)
	}
	if sum != nil {
		row := *sum
		row.InvoiceID = id
		out = append(out, SummaryRow(row))
	}
	return out
}

func header(table [][]string, fallback []string) []string {
	if len(table) > 0 && len(table[0]) > 0 {
		return table[0]
	}
	h := make([]string, len(fallback))
	copy(h, fallback)
	return h
}

func dataRows(table [][]string) [][]string {
	if len(table) < 2 {
		return nil
	}
	return table[1:]
}
