package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/tungkhanhbmt-a11y/alibaba2/internal/domain"
	"github.com/tungkhanhbmt-a11y/alibaba2/internal/invoice"
)

var divergenceKinds = []string{
	invoice.DivergenceMissingSummary,
	invoice.DivergenceOrphanSummary,
	invoice.DivergenceDuplicateSummary,
	invoice.DivergenceTotalMismatch,
}

// AuditReconciliation reports where the summary table disagrees with the
// order lines. It only reads; repairing is left to an operator.
func (s *Service) AuditReconciliation(ctx context.Context) (report domain.AuditReport, err error) {
	defer func() { s.metrics.AuditRun(err) }()

	orders, err := s.store.ReadTable(ctx, s.tables.Orders)
	if err != nil {
		return domain.AuditReport{}, err
	}
	summaries, err := s.store.ReadTable(ctx, s.tables.Summaries)
	if err != nil {
		return domain.AuditReport{}, err
	}

	divergences, checked := invoice.Audit(orders, summaries, s.readSchema(orders))

	counts := make(map[string]int, len(divergenceKinds))
	for _, d := range divergences {
		counts[d.Kind]++
	}
	s.metrics.SetDivergences(divergenceKinds, counts)

	entry := s.log(ctx, logrus.Fields{"checked_invoices": checked, "divergences": len(divergences)})
	if len(divergences) > 0 {
		entry.Warn("order and summary tables diverge")
	} else {
		entry.Debug("order and summary tables agree")
	}

	return domain.AuditReport{
		CheckedInvoices: checked,
		Divergences:     divergences,
		RanAt:           s.now().UTC(),
	}, nil
}
