package invoice

import (
	"sort"

	"github.com/tungkhanhbmt-a11y/alibaba2/internal/domain"
)

const (
	DivergenceMissingSummary   = "missing_summary"
	DivergenceOrphanSummary    = "orphan_summary"
	DivergenceDuplicateSummary = "duplicate_summary"
	DivergenceTotalMismatch    = "total_mismatch"
)

// Audit compares the order table with the summary table and reports every
// invoice whose summary is missing, duplicated, orphaned or has a total that
// differs from the sum of its lines. It never changes either table.
// The second result is the number of distinct invoices seen.
func Audit(orders [][]string, summaries [][]string, s Schema) ([]domain.Divergence, int) {
	totals := make(map[string][]string)
	order := make([]string, 0)
	for _, row := range dataRows(orders) {
		rs := s.ForRow(row)
		if rs.InvoiceID < 0 {
			continue
		}
		id := cell(row, rs.InvoiceID)
		if id == "" {
			continue
		}
		if _, seen := totals[id]; !seen {
			order = append(order, id)
		}
		totals[id] = append(totals[id], cell(row, rs.Total))
	}

	stored := make(map[string][]string)
	for _, sum := range Summaries(summaries) {
		if sum.InvoiceID == "" {
			continue
		}
		stored[sum.InvoiceID] = append(stored[sum.InvoiceID], sum.Total)
	}

	divergences := make([]domain.Divergence, 0)
	for _, id := range order {
		expected := Total(totals[id])
		rows := stored[id]
		switch {
		case len(rows) == 0:
			divergences = append(divergences, domain.Divergence{InvoiceID: id, Kind: DivergenceMissingSummary, Expected: expected})
		case len(rows) > 1:
			divergences = append(divergences, domain.Divergence{InvoiceID: id, Kind: DivergenceDuplicateSummary, Expected: expected})
		case rows[0] != expected:
			divergences = append(divergences, domain.Divergence{InvoiceID: id, Kind: DivergenceTotalMismatch, Expected: expected, Actual: rows[0]})
		}
	}

	orphans := make([]string, 0)
	for id := range stored {
		if _, ok := totals[id]; !ok {
			orphans = append(orphans, id)
		}
	}
	sort.Strings(orphans)
	for _, id := range orphans {
		divergences = append(divergences, domain.Divergence{InvoiceID: id, Kind: DivergenceOrphanSummary, Actual: stored[id][0]})
	}

	return divergences, len(order)
}
