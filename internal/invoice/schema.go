// Package invoice holds the pure reconciliation logic for the order-line and
// invoice-summary tables. Every function takes full tables (header row
// included) and returns new ones; persisting them is the caller's job.
package invoice

import (
	"regexp"
	"strings"

	"github.com/tungkhanhbmt-a11y/alibaba2/internal/domain"
)

var isoDatePrefix = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)

// Schema describes the column layout of the order-line table.
// A negative index means the column does not exist in that version.
type Schema struct {
	Version   int
	InvoiceID int
	Date      int
	Branch    int
	Name      int
	Unit      int
	Quantity  int
	Price     int
	Total     int
	Note      int
	Width     int
}

var (
	// SchemaV1 is the layout used before invoice ids were stored.
	SchemaV1 = Schema{Version: 1, InvoiceID: -1, Date: 0, Branch: 1, Name: 2, Unit: 3, Quantity: 4, Price: 5, Total: 6, Note: 7, Width: 8}
	SchemaV2 = Schema{Version: 2, InvoiceID: 0, Date: 1, Branch: 2, Name: 3, Unit: 4, Quantity: 5, Price: 6, Total: 7, Note: 8, Width: 9}

	// CurrentSchema is the layout every write uses.
	CurrentSchema = SchemaV2
)

// SchemaByVersion returns the schema for version 1 or 2.
func SchemaByVersion(version int) (Schema, bool) {
	switch version {
	case 1:
		return SchemaV1, true
	case 2:
		return SchemaV2, true
	}
	return Schema{}, false
}

// DetectSchema keeps the behavior of tables written before the id column
// existed: the table is v2 only if column 1 of the first data row starts
// with an ISO date, otherwise it is read as v1.
func DetectSchema(table [][]string) Schema {
	if len(table) < 2 {
		return SchemaV1
	}
	first := table[1]
	if len(first) >= 2 && isoDatePrefix.MatchString(first[1]) {
		return SchemaV2
	}
	return SchemaV1
}

// ForRow returns the layout of a single row. Rows written by this service
// carry an ISO date in column 1 and rows written before the id column existed
// carry it in column 0, so both can live in one table. Rows that match
// neither keep s.
func (s Schema) ForRow(row []string) Schema {
	switch {
	case isoDatePrefix.MatchString(cell(row, SchemaV2.Date)):
		return SchemaV2
	case isoDatePrefix.MatchString(cell(row, SchemaV1.Date)):
		return SchemaV1
	}
	return s
}

// Line reads one data row.
func (s Schema) Line(row []string) domain.OrderLine {
	return domain.OrderLine{
		InvoiceID: cell(row, s.InvoiceID),
		Date:      cell(row, s.Date),
		Branch:    cell(row, s.Branch),
		Name:      cell(row, s.Name),
		Unit:      cell(row, s.Unit),
		Quantity:  domain.Numeric(cell(row, s.Quantity)),
		Price:     domain.Numeric(cell(row, s.Price)),
		Total:     cell(row, s.Total),
		Note:      cell(row, s.Note),
	}
}

// Row renders one line in this layout.
func (s Schema) Row(line domain.OrderLine) []string {
	row := make([]string, s.Width)
	set := func(idx int, v string) {
		if idx >= 0 && idx < len(row) {
			row[idx] = v
		}
	}
	set(s.InvoiceID, line.InvoiceID)
	set(s.Date, line.Date)
	set(s.Branch, line.Branch)
	set(s.Name, line.Name)
	set(s.Unit, line.Unit)
	set(s.Quantity, line.Quantity.String())
	set(s.Price, line.Price.String())
	set(s.Total, line.Total)
	set(s.Note, line.Note)
	return row
}

// Lines reads every non-blank data row of an order table, each in its own
// layout.
func Lines(table [][]string, s Schema) []domain.OrderLine {
	lines := make([]domain.OrderLine, 0, len(table))
	for _, row := range dataRows(table) {
		if blank(row) {
			continue
		}
		lines = append(lines, s.ForRow(row).Line(row))
	}
	return lines
}

// LinesFor returns the lines of one invoice, in table order.
func LinesFor(table [][]string, id string, s Schema) []domain.OrderLine {
	lines := make([]domain.OrderLine, 0)
	for _, row := range dataRows(table) {
		rs := s.ForRow(row)
		if rs.InvoiceID >= 0 && cell(row, rs.InvoiceID) == id {
			lines = append(lines, rs.Line(row))
		}
	}
	return lines
}

// Summaries reads every data row of a summary table.
func Summaries(table [][]string) []domain.InvoiceSummary {
	if len(table) < 2 {
		return []domain.InvoiceSummary{}
	}
	out := make([]domain.InvoiceSummary, 0, len(table)-1)
	for _, row := range table[1:] {
		out = append(out, summaryFromRow(row))
	}
	return out
}

// SummaryRow renders a summary as invoiceId, branch, date, total.
func SummaryRow(sum domain.InvoiceSummary) []string {
	return []string{sum.InvoiceID, sum.Branch, sum.Date, sum.Total}
}

func summaryFromRow(row []string) domain.InvoiceSummary {
	return domain.InvoiceSummary{
		InvoiceID: cell(row, 0),
		Branch:    cell(row, 1),
		Date:      cell(row, 2),
		Total:     cell(row, 3),
	}
}

// DisplayDate renders a stored date as dd/mm/yyyy. Dates already in that
// form, and values that are not dates, are returned unchanged.
func DisplayDate(s string) string {
	val := strings.TrimSpace(s)
	if val == "" {
		return ""
	}
	m := displayDateISO.FindStringSubmatch(val)
	if m == nil {
		return val
	}
	return pad2(m[3]) + "/" + pad2(m[2]) + "/" + m[1]
}

var displayDateISO = regexp.MustCompile(`^(\d{4})[-/](\d{1,2})[-/](\d{1,2})`)

func pad2(s string) string {
	if len(s) == 1 {
		return "0" + s
	}
	return s
}

func blank(row []string) bool {
	for _, c := range row {
		if c != "" {
			return false
		}
	}
	return true
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}
