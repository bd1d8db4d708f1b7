package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/language"

	"github.com/tungkhanhbmt-a11y/alibaba2/internal/domain"
	"github.com/tungkhanhbmt-a11y/alibaba2/internal/invoice"
	"github.com/tungkhanhbmt-a11y/alibaba2/internal/lock"
	"github.com/tungkhanhbmt-a11y/alibaba2/internal/metrics"
	"github.com/tungkhanhbmt-a11y/alibaba2/internal/numfmt"
	"github.com/tungkhanhbmt-a11y/alibaba2/internal/store"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Tables struct {
	Orders    string
	Summaries string
	Products  string
	Branches  string
}

func DefaultTables() Tables {
	return Tables{Orders: "banhang", Summaries: "dshoadon", Products: "sanpham", Branches: "chinhanh"}
}

type Options struct {
	Tables Tables
	// SchemaVersion pins the order-table layout used for reading (1 or 2).
	// Zero detects it from the table.
	SchemaVersion int
	DisplayStyle  numfmt.Style
	Locker        lock.Locker
	Logger        *logrus.Logger
	Metrics       *metrics.Metrics
	Now           func() time.Time
}

type Service struct {
	store    store.TabularStore
	tables   Tables
	schema   int
	display  numfmt.Style
	locker   lock.Locker
	logger   *logrus.Logger
	metrics  *metrics.Metrics
	validate *validator.Validate
	now      func() time.Time
}

func New(st store.TabularStore, opts Options) *Service {
	defaults := DefaultTables()
	if opts.Tables.Orders == "" {
		opts.Tables.Orders = defaults.Orders
	}
	if opts.Tables.Summaries == "" {
		opts.Tables.Summaries = defaults.Summaries
	}
	if opts.Tables.Products == "" {
		opts.Tables.Products = defaults.Products
	}
	if opts.Tables.Branches == "" {
		opts.Tables.Branches = defaults.Branches
	}
	if opts.DisplayStyle.Name == "" {
		opts.DisplayStyle = numfmt.LocaleStyle(language.Vietnamese)
	}
	if opts.Locker == nil {
		opts.Locker = lock.NewLocal()
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Service{
		store:    st,
		tables:   opts.Tables,
		schema:   opts.SchemaVersion,
		display:  opts.DisplayStyle,
		locker:   opts.Locker,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
		validate: validator.New(),
		now:      opts.Now,
	}
}

// readSchema is the fallback layout for order rows whose date does not
// identify their layout: the pinned version when configured, otherwise
// whatever the table looks like.
func (s *Service) readSchema(table [][]string) invoice.Schema {
	if schema, ok := invoice.SchemaByVersion(s.schema); ok {
		return schema
	}
	return invoice.DetectSchema(table)
}

func (s *Service) validateRequest(req any) error {
	if err := s.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: %s failed %s", store.ErrInvalidInput, fe.Namespace(), fe.Tag())
		}
		return fmt.Errorf("%w: %v", store.ErrInvalidInput, err)
	}
	return nil
}

func (s *Service) log(ctx context.Context, fields logrus.Fields) *logrus.Entry {
	if fields == nil {
		fields = logrus.Fields{}
	}
	fields["module"] = "service"
	if actor, ok := ActorFromContext(ctx); ok {
		fields["actor"] = actor.Username
	}
	return s.logger.WithFields(fields)
}

// ensureHeader returns the table as the backend has it, writing header first
// when it is empty so the first appended data row is never mistaken for a
// header.
func (s *Service) ensureHeader(ctx context.Context, table string, header []string) ([][]string, error) {
	rows, err := store.ReadFresh(ctx, s.store, table)
	if err != nil {
		return nil, err
	}
	if len(rows) > 0 {
		return rows, nil
	}
	h := append([]string(nil), header...)
	if err := s.store.AppendRows(ctx, table, [][]string{h}); err != nil {
		return nil, err
	}
	return [][]string{h}, nil
}
