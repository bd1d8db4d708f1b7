package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/tungkhanhbmt-a11y/alibaba2/internal/domain"
	"github.com/tungkhanhbmt-a11y/alibaba2/internal/invoice"
	"github.com/tungkhanhbmt-a11y/alibaba2/internal/numfmt"
	"github.com/tungkhanhbmt-a11y/alibaba2/internal/store"
)

// CreateInvoice allocates the next id for req.Date, appends one order row
// per item and one summary row. A failed summary write is logged and
// reported through SummaryWritten; the order rows stay.
func (s *Service) CreateInvoice(ctx context.Context, req domain.InvoiceCreateRequest) (resp domain.InvoiceCreateResponse, err error) {
	defer func() { s.metrics.InvoiceOp("create", err) }()

	if err := s.validateRequest(req); err != nil {
		return domain.InvoiceCreateResponse{}, err
	}

	release, err := s.locker.Lock(ctx, s.tables.Orders)
	if err != nil {
		return domain.InvoiceCreateResponse{}, err
	}
	defer release()

	orders, err := s.ensureHeader(ctx, s.tables.Orders, domain.OrderHeader)
	if err != nil {
		return domain.InvoiceCreateResponse{}, err
	}

	id := invoice.NextID(req.Date, orders, s.readSchema(orders))
	lines := s.buildLines(ctx, id, req.Date, req.Branch, req.Note, req.Items)

	rows := make([][]string, 0, len(lines))
	for _, line := range lines {
		rows = append(rows, invoice.CurrentSchema.Row(line))
	}
	if err := s.store.AppendRows(ctx, s.tables.Orders, rows); err != nil {
		return domain.InvoiceCreateResponse{}, err
	}

	total := invoice.Total(invoice.LineTotals(lines))
	resp = domain.InvoiceCreateResponse{
		Success:        true,
		InvoiceID:      id,
		Total:          total,
		Lines:          lines,
		SummaryWritten: true,
	}

	summary := domain.InvoiceSummary{InvoiceID: id, Branch: req.Branch, Date: req.Date, Total: total}
	if err := s.appendSummary(ctx, summary); err != nil {
		resp.SummaryWritten = false
		s.metrics.SummaryWriteFailed("create")
		s.log(ctx, logrus.Fields{
			"invoice_id": id,
			"table":      s.tables.Summaries,
		}).WithError(err).Warn("invoice summary not written; order lines kept")
	}

	s.log(ctx, logrus.Fields{"invoice_id": id, "lines": len(lines), "total": total}).Info("invoice created")
	return resp, nil
}

// UpdateInvoice replaces every line of id with the recomputed items and
// rewrites its summary. Both edited rows end up at the end of their tables.
// An unknown id is simply added.
func (s *Service) UpdateInvoice(ctx context.Context, id string, req domain.InvoiceUpdateRequest) (detail domain.InvoiceDetail, err error) {
	defer func() { s.metrics.InvoiceOp("update", err) }()

	id = strings.TrimSpace(id)
	if id == "" {
		return domain.InvoiceDetail{}, fmt.Errorf("%w: invoice id is required", store.ErrInvalidInput)
	}
	if err := s.validateRequest(req); err != nil {
		return domain.InvoiceDetail{}, err
	}

	release, err := s.locker.Lock(ctx, s.tables.Orders)
	if err != nil {
		return domain.InvoiceDetail{}, err
	}
	defer release()

	orders, err := store.ReadFresh(ctx, s.store, s.tables.Orders)
	if err != nil {
		return domain.InvoiceDetail{}, err
	}
	lines := s.buildLines(ctx, id, req.Date, req.Branch, req.Note, req.Items)
	if err := s.store.WriteTable(ctx, s.tables.Orders, invoice.ReplaceLines(orders, id, lines, invoice.CurrentSchema)); err != nil {
		return domain.InvoiceDetail{}, err
	}

	total := invoice.Total(invoice.LineTotals(lines))
	summary := &domain.InvoiceSummary{InvoiceID: id, Branch: req.Branch, Date: req.Date, Total: total}
	if err := s.replaceSummary(ctx, id, summary); err != nil {
		s.metrics.SummaryWriteFailed("update")
		return domain.InvoiceDetail{}, err
	}

	s.log(ctx, logrus.Fields{"invoice_id": id, "lines": len(lines), "total": total}).Info("invoice updated")
	return domain.InvoiceDetail{
		InvoiceID:    id,
		Lines:        lines,
		Summary:      summary,
		DisplayTotal: numfmt.Display(total, s.display),
	}, nil
}

// DeleteInvoice removes the lines and the summary of id. Deleting an id
// that does not exist succeeds without writing anything.
func (s *Service) DeleteInvoice(ctx context.Context, id string) (err error) {
	defer func() { s.metrics.InvoiceOp("delete", err) }()

	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: invoice id is required", store.ErrInvalidInput)
	}

	release, err := s.locker.Lock(ctx, s.tables.Orders)
	if err != nil {
		return err
	}
	defer release()

	orders, err := store.ReadFresh(ctx, s.store, s.tables.Orders)
	if err != nil {
		return err
	}
	if next := invoice.ReplaceLines(orders, id, nil, invoice.CurrentSchema); len(next) != len(orders) {
		if err := s.store.WriteTable(ctx, s.tables.Orders, next); err != nil {
			return err
		}
	}
	if err := s.replaceSummary(ctx, id, nil); err != nil {
		s.metrics.SummaryWriteFailed("delete")
		return err
	}

	s.log(ctx, logrus.Fields{"invoice_id": id}).Info("invoice deleted")
	return nil
}

func (s *Service) GetInvoice(ctx context.Context, id string) (domain.InvoiceDetail, error) {
	orders, err := s.store.ReadTable(ctx, s.tables.Orders)
	if err != nil {
		return domain.InvoiceDetail{}, err
	}
	lines := invoice.LinesFor(orders, id, invoice.CurrentSchema)

	summaries, err := s.store.ReadTable(ctx, s.tables.Summaries)
	if err != nil {
		return domain.InvoiceDetail{}, err
	}
	var summary *domain.InvoiceSummary
	for _, sum := range invoice.Summaries(summaries) {
		if sum.InvoiceID == id {
			sum := sum
			summary = &sum
			break
		}
	}

	if len(lines) == 0 && summary == nil {
		return domain.InvoiceDetail{}, fmt.Errorf("invoice %s: %w", id, store.ErrNotFound)
	}

	total := invoice.Total(invoice.LineTotals(lines))
	if summary != nil {
		total = summary.Total
	}
	return domain.InvoiceDetail{
		InvoiceID:    id,
		Lines:        lines,
		Summary:      summary,
		DisplayTotal: numfmt.Display(total, s.display),
	}, nil
}

// ListOrders returns every order line plus a grand total over all of them.
func (s *Service) ListOrders(ctx context.Context) (domain.OrderListResponse, error) {
	orders, err := s.store.ReadTable(ctx, s.tables.Orders)
	if err != nil {
		return domain.OrderListResponse{}, err
	}
	lines := invoice.Lines(orders, s.readSchema(orders))

	grand := invoice.Total(invoice.LineTotals(lines))
	return domain.OrderListResponse{
		Orders:            lines,
		GrandTotal:        grand,
		GrandTotalDisplay: numfmt.Display(grand, numfmt.DotGrouped),
	}, nil
}

func (s *Service) ListInvoiceSummaries(ctx context.Context) ([]domain.InvoiceSummaryView, error) {
	rows, err := s.store.ReadTable(ctx, s.tables.Summaries)
	if err != nil {
		return nil, err
	}

	out := make([]domain.InvoiceSummaryView, 0, len(rows))
	for _, sum := range invoice.Summaries(rows) {
		if sum.InvoiceID == "" {
			continue
		}
		out = append(out, domain.InvoiceSummaryView{
			InvoiceID:    sum.InvoiceID,
			Branch:       sum.Branch,
			Date:         invoice.DisplayDate(sum.Date),
			Total:        sum.Total,
			DisplayTotal: numfmt.Display(sum.Total, s.display),
		})
	}
	return out, nil
}

// NextInvoiceID previews the id CreateInvoice would allocate for date
// without reserving it. An empty date yields nil.
func (s *Service) NextInvoiceID(ctx context.Context, date string) (*string, error) {
	date = strings.TrimSpace(date)
	if date == "" {
		return nil, nil
	}
	orders, err := s.store.ReadTable(ctx, s.tables.Orders)
	if err != nil {
		return nil, err
	}
	id := invoice.NextID(date, orders, s.readSchema(orders))
	return &id, nil
}

func (s *Service) ListBranches(ctx context.Context) ([]string, error) {
	rows, err := s.store.ReadTable(ctx, s.tables.Branches)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(rows))
	if len(rows) < 2 {
		return out, nil
	}
	for _, row := range rows[1:] {
		if len(row) < 2 {
			continue
		}
		if name := strings.TrimSpace(row[1]); name != "" {
			out = append(out, name)
		}
	}
	return out, nil
}

func (s *Service) buildLines(ctx context.Context, id string, date string, branch string, note string, items []domain.LineItemRequest) []domain.OrderLine {
	lines := make([]domain.OrderLine, 0, len(items))
	for _, item := range items {
		qty := numfmt.Parse(item.Quantity.String())
		price := numfmt.Parse(item.Price.String())
		if !qty.Valid || !price.Valid || qty.Ambiguous || price.Ambiguous {
			s.log(ctx, logrus.Fields{
				"invoice_id": id,
				"item":       item.Name,
				"quantity":   item.Quantity.String(),
				"price":      item.Price.String(),
			}).Debug("ambiguous or malformed number in line item")
		}

		lineNote := item.Note
		if lineNote == "" {
			lineNote = note
		}
		lines = append(lines, domain.OrderLine{
			InvoiceID: id,
			Date:      date,
			Branch:    branch,
			Name:      item.Name,
			Unit:      item.Unit,
			Quantity:  item.Quantity,
			Price:     item.Price,
			Total:     invoice.LineTotal(qty.Value, item.Price.String()),
			Note:      lineNote,
		})
	}
	return lines
}

func (s *Service) appendSummary(ctx context.Context, sum domain.InvoiceSummary) error {
	if _, err := s.ensureHeader(ctx, s.tables.Summaries, domain.SummaryHeader); err != nil {
		return err
	}
	return s.store.AppendRows(ctx, s.tables.Summaries, [][]string{invoice.SummaryRow(sum)})
}

func (s *Service) replaceSummary(ctx context.Context, id string, sum *domain.InvoiceSummary) error {
	rows, err := store.ReadFresh(ctx, s.store, s.tables.Summaries)
	if err != nil {
		return err
	}
	next := invoice.ReplaceSummary(rows, id, sum)
	if sum == nil && len(next) == len(rows) {
		return nil
	}
	return s.store.WriteTable(ctx, s.tables.Summaries, next)
}
