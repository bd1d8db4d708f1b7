// Package jobs runs background work on a gocron scheduler.
package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/sirupsen/logrus"

	"github.com/tungkhanhbmt-a11y/alibaba2/internal/domain"
	"github.com/tungkhanhbmt-a11y/alibaba2/internal/logging"
)

type Auditor interface {
	AuditReconciliation(ctx context.Context) (domain.AuditReport, error)
}

type Scheduler struct {
	cron    *gocron.Scheduler
	auditor Auditor
	logger  *logrus.Logger
	timeout time.Duration
}

func NewScheduler(auditor Auditor, logger *logrus.Logger) *Scheduler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	cron := gocron.NewScheduler(time.UTC)
	cron.SingletonModeAll()
	return &Scheduler{
		cron:    cron,
		auditor: auditor,
		logger:  logger,
		timeout: time.Minute,
	}
}

// ScheduleAudit runs the reconciliation audit every interval, starting
// immediately once the scheduler is started.
func (s *Scheduler) ScheduleAudit(interval time.Duration) error {
	if interval <= 0 {
		return errors.New("audit interval must be positive")
	}
	_, err := s.cron.Every(interval).Tag("reconciliation-audit").Do(s.RunAudit)
	return err
}

// RunAudit performs a single audit and logs its outcome.
func (s *Scheduler) RunAudit() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	report, err := s.auditor.AuditReconciliation(ctx)
	if err != nil {
		logging.LogError(s.logger, "jobs", "RunAudit", "reconciliation-audit", nil, err)
		return
	}
	entry := s.logger.WithFields(logrus.Fields{"module": "jobs", "job": "reconciliation-audit"})
	for _, d := range report.Divergences {
		entry.WithFields(logrus.Fields{
			"invoice_id": d.InvoiceID,
			"kind":       d.Kind,
			"expected":   d.Expected,
			"actual":     d.Actual,
		}).Warn("invoice divergence")
	}
	entry.WithFields(logrus.Fields{
		"checked_invoices": report.CheckedInvoices,
		"divergences":      len(report.Divergences),
	}).Info("reconciliation audit finished")
}

func (s *Scheduler) Start() {
	s.cron.StartAsync()
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
}

func (s *Scheduler) Jobs() int {
	return len(s.cron.Jobs())
}
