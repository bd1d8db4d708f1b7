package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/tungkhanhbmt-a11y/alibaba2/internal/catalog"
	"github.com/tungkhanhbmt-a11y/alibaba2/internal/domain"
	"github.com/tungkhanhbmt-a11y/alibaba2/internal/store"
)

const (
	productColName = iota
	productColUnit
	productColPrice
	productColStatus
)

// ListProducts returns the catalog. Ids are positional (data row offset + 1)
// and cleared rows are skipped without renumbering the rest.
func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.store.ReadTable(ctx, s.tables.Products)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Product, 0, len(rows))
	if len(rows) < 2 {
		return out, nil
	}
	for i, row := range rows[1:] {
		if store.IsBlankRow(row) {
			continue
		}
		out = append(out, productFromRow(i+1, row))
	}
	return out, nil
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Unit = strings.TrimSpace(req.Unit)
	if err := s.validateRequest(req); err != nil {
		return domain.Product{}, err
	}

	rows, err := s.ensureHeader(ctx, s.tables.Products, domain.ProductHeader)
	if err != nil {
		return domain.Product{}, err
	}
	product := domain.Product{
		ID:     len(rows),
		Name:   req.Name,
		Unit:   req.Unit,
		Price:  domain.Numeric(strings.TrimSpace(req.Price.String())),
		Status: req.Status,
	}
	row := []string{product.Name, product.Unit, product.Price.String(), product.Status}
	if err := s.store.AppendRows(ctx, s.tables.Products, [][]string{row}); err != nil {
		return domain.Product{}, err
	}

	s.log(ctx, logrus.Fields{"product_id": product.ID, "name": product.Name}).Info("product created")
	return product, nil
}

// UpdateProduct rewrites name, unit and price of a product in place and
// leaves its status untouched.
func (s *Service) UpdateProduct(ctx context.Context, req domain.ProductUpdateRequest) (domain.Product, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Unit = strings.TrimSpace(req.Unit)
	if err := s.validateRequest(req); err != nil {
		return domain.Product{}, err
	}

	existing, err := s.productRow(ctx, req.ID)
	if err != nil {
		return domain.Product{}, err
	}

	price := strings.TrimSpace(req.Price.String())
	for col, value := range []string{productColName: req.Name, productColUnit: req.Unit, productColPrice: price} {
		if err := s.store.UpdateCell(ctx, s.tables.Products, req.ID, col, value); err != nil {
			return domain.Product{}, err
		}
	}

	s.log(ctx, logrus.Fields{"product_id": req.ID}).Info("product updated")
	return domain.Product{
		ID:     req.ID,
		Name:   req.Name,
		Unit:   req.Unit,
		Price:  domain.Numeric(price),
		Status: cellAt(existing, productColStatus),
	}, nil
}

// DeleteProduct blanks the product row so the ids of later products stay valid.
func (s *Service) DeleteProduct(ctx context.Context, id int) error {
	if err := s.validateRequest(domain.ProductDeleteRequest{ID: id}); err != nil {
		return err
	}
	if _, err := s.productRow(ctx, id); err != nil {
		return err
	}
	if err := s.store.ClearRow(ctx, s.tables.Products, id); err != nil {
		return err
	}
	s.log(ctx, logrus.Fields{"product_id": id}).Info("product deleted")
	return nil
}

func (s *Service) SetProductStatus(ctx context.Context, req domain.ProductStatusRequest) (domain.Product, error) {
	if err := s.validateRequest(req); err != nil {
		return domain.Product{}, err
	}
	row, err := s.productRow(ctx, req.ID)
	if err != nil {
		return domain.Product{}, err
	}
	if err := s.store.UpdateCell(ctx, s.tables.Products, req.ID, productColStatus, req.Status); err != nil {
		return domain.Product{}, err
	}

	product := productFromRow(req.ID, row)
	product.Status = req.Status
	s.log(ctx, logrus.Fields{"product_id": req.ID, "status": req.Status}).Info("product status changed")
	return product, nil
}

func (s *Service) SearchProducts(ctx context.Context, query string, limit int) ([]domain.Product, error) {
	products, err := s.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	return catalog.Search(products, query, limit), nil
}

func (s *Service) productRow(ctx context.Context, id int) ([]string, error) {
	rows, err := store.ReadFresh(ctx, s.store, s.tables.Products)
	if err != nil {
		return nil, err
	}
	if id < 1 || id >= len(rows) || store.IsBlankRow(rows[id]) {
		return nil, fmt.Errorf("product %d: %w", id, store.ErrNotFound)
	}
	return rows[id], nil
}

func productFromRow(id int, row []string) domain.Product {
	return domain.Product{
		ID:     id,
		Name:   cellAt(row, productColName),
		Unit:   cellAt(row, productColUnit),
		Price:  domain.Numeric(cellAt(row, productColPrice)),
		Status: cellAt(row, productColStatus),
	}
}

func cellAt(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}
