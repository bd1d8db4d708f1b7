package invoice

import (
	"github.com/shopspring/decimal"

	"github.com/tungkhanhbmt-a11y/alibaba2/internal/domain"
	"github.com/tungkhanhbmt-a11y/alibaba2/internal/numfmt"
)

// LineTotal multiplies quantity by price. The result carries as many
// decimals as the price string was typed with, or none.
func LineTotal(quantity decimal.Decimal, price string) string {
	total := quantity.Mul(numfmt.Parse(price).Value)
	return numfmt.Format(total, numfmt.Precision(price), numfmt.Plain)
}

// Total sums line totals and renders the sum at the widest precision found
// among them, e.g. ["58.50", "10"] gives "68.50".
func Total(totals []string) string {
	sum := decimal.Zero
	precision := 0
	for _, t := range totals {
		sum = sum.Add(numfmt.LooseParse(t))
		if p := numfmt.Precision(t); p > precision {
			precision = p
		}
	}
	return numfmt.Format(sum, precision, numfmt.Plain)
}

// LineTotals collects the total column of lines.
func LineTotals(lines []domain.OrderLine) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		out = append(out, l.Total)
	}
	return out
}
