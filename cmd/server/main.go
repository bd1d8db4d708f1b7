package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"

	"github.com/tungkhanhbmt-a11y/alibaba2/internal/cache"
	"github.com/tungkhanhbmt-a11y/alibaba2/internal/config"
	"github.com/tungkhanhbmt-a11y/alibaba2/internal/domain"
	"github.com/tungkhanhbmt-a11y/alibaba2/internal/httpapi"
	"github.com/tungkhanhbmt-a11y/alibaba2/internal/jobs"
	"github.com/tungkhanhbmt-a11y/alibaba2/internal/lock"
	"github.com/tungkhanhbmt-a11y/alibaba2/internal/logging"
	"github.com/tungkhanhbmt-a11y/alibaba2/internal/metrics"
	"github.com/tungkhanhbmt-a11y/alibaba2/internal/numfmt"
	"github.com/tungkhanhbmt-a11y/alibaba2/internal/service"
	"github.com/tungkhanhbmt-a11y/alibaba2/internal/store"
	"github.com/tungkhanhbmt-a11y/alibaba2/internal/store/cached"
	"github.com/tungkhanhbmt-a11y/alibaba2/internal/store/memory"
	pgstore "github.com/tungkhanhbmt-a11y/alibaba2/internal/store/postgres"
	"github.com/tungkhanhbmt-a11y/alibaba2/internal/store/sheets"
	"github.com/tungkhanhbmt-a11y/alibaba2/internal/store/xlsx"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		logrus.Fatalf("load .env: %v", err)
	}
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err := validateSecurityConfig(cfg); err != nil {
		logger.Fatalf("invalid configuration: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	m := metrics.New()

	repo, closers, err := openStore(ctx, cfg)
	if err != nil {
		logger.Fatalf("store %s unavailable: %v", cfg.StoreBackend, err)
	}
	logger.WithField("backend", cfg.StoreBackend).Info("store ready")

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			if cfg.LockMode == lock.ModeRedis {
				logger.Fatalf("redis unavailable (%v) and LOCK_MODE=redis", err)
			}
			logger.WithError(err).Warn("redis unavailable, continuing without table cache")
			_ = redisClient.Close()
			redisClient = nil
		} else {
			closers = append(closers, redisClient.Close)
		}
	}

	if redisClient != nil && cfg.CacheTTLSeconds > 0 {
		repo = cached.New(repo, cache.NewRedisTableCache(redisClient), time.Duration(cfg.CacheTTLSeconds)*time.Second, logger)
		logger.Info("table cache: redis")
	} else {
		logger.Info("table cache: none")
	}

	locker, err := lock.New(cfg.LockMode, redisClient, time.Duration(cfg.LockTTLSeconds)*time.Second, time.Duration(cfg.LockWaitSeconds)*time.Second)
	if err != nil {
		logger.Fatalf("invoice lock: %v", err)
	}

	style, err := numfmt.StyleByName(cfg.NumberStyle)
	if err != nil {
		logger.Fatalf("number style: %v", err)
	}

	svc := service.New(repo, service.Options{
		Tables: service.Tables{
			Orders:    cfg.Tables.Orders,
			Summaries: cfg.Tables.Summaries,
			Products:  cfg.Tables.Products,
			Branches:  cfg.Tables.Branches,
		},
		SchemaVersion: cfg.OrderSchemaVersion,
		DisplayStyle:  style,
		Locker:        locker,
		Logger:        logger,
		Metrics:       m,
	})

	auth, err := httpapi.NewAuthManager(cfg.AuthSecret, time.Duration(cfg.AccessTokenTTLMinutes)*time.Minute, []domain.UserAccount{
		{Username: "admin", Password: cfg.AdminPassword, Role: httpapi.RoleAdmin, Active: true},
		{Username: "kasir", Password: cfg.CashierPassword, Role: httpapi.RoleCashier, Active: true},
	})
	if err != nil {
		logger.Fatalf("auth: %v", err)
	}
	api := httpapi.New(svc, auth, cfg.AllowedOrigin, logger, m)

	var scheduler *jobs.Scheduler
	if cfg.AuditIntervalMinutes > 0 {
		scheduler = jobs.NewScheduler(svc, logger)
		if err := scheduler.ScheduleAudit(time.Duration(cfg.AuditIntervalMinutes) * time.Minute); err != nil {
			logger.Fatalf("schedule audit: %v", err)
		}
		scheduler.Start()
	}

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Infof("sales backend listening on %s", cfg.Address())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server error: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if scheduler != nil {
		scheduler.Stop()
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("shutdown error")
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			logger.WithError(err).Warn("close error")
		}
	}

	logger.Info("server stopped")
}

// openStore builds the tabular backend named by STORE_BACKEND and returns
// the close functions it needs on shutdown.
func openStore(ctx context.Context, cfg config.Config) (store.TabularStore, []func() error, error) {
	switch cfg.StoreBackend {
	case config.StoreMemory:
		return memory.NewSeeded(), nil, nil
	case config.StorePostgres:
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return pg, []func() error{pg.Close}, nil
	case config.StoreXLSX:
		wb, err := xlsx.Open(cfg.XLSXPath)
		if err != nil {
			return nil, nil, err
		}
		return wb, []func() error{wb.Close}, nil
	case config.StoreSheets:
		creds, err := cfg.ServiceAccountJSON()
		if err != nil {
			return nil, nil, err
		}
		sh, err := sheets.New(ctx, cfg.SpreadsheetID, option.WithCredentialsJSON(creds))
		if err != nil {
			return nil, nil, err
		}
		return sh, nil, nil
	}
	return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}

func validateSecurityConfig(cfg config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.AdminPassword == cfg.CashierPassword {
		return errors.New("ADMIN_PASSWORD and CASHIER_PASSWORD must differ")
	}
	if err := validatePasswordStrength(cfg.AdminPassword); err != nil {
		return fmt.Errorf("ADMIN_PASSWORD is too weak: %w", err)
	}
	if err := validatePasswordStrength(cfg.CashierPassword); err != nil {
		return fmt.Errorf("CASHIER_PASSWORD is too weak: %w", err)
	}
	return nil
}

// validatePasswordStrength rejects passwords that repeat one character,
// run sequentially (ascending or descending), or sit on a known-weak list.
func validatePasswordStrength(password string) error {
	known := map[string]bool{
		"12345678": true, "87654321": true, "password": true, "password1": true,
		"admin123": true, "kasir123": true, "qwertyui": true, "11111111": true,
		"00000000": true, "abcd1234": true, "matkhau1": true, "123456789": true,
	}
	if known[strings.ToLower(password)] {
		return errors.New("common password not allowed")
	}

	allSame := true
	for i := 1; i < len(password); i++ {
		if password[i] != password[0] {
			allSame = false
			break
		}
	}
	if allSame {
		return errors.New("single repeated character not allowed")
	}

	ascending, descending := true, true
	for i := 1; i < len(password); i++ {
		diff := int(password[i]) - int(password[i-1])
		if diff != 1 {
			ascending = false
		}
		if diff != -1 {
			descending = false
		}
	}
	if ascending || descending {
		return errors.New("sequential password not allowed")
	}

	return nil
}
