package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/wardenhq/warden/pkg/api"
	"github.com/wardenhq/warden/pkg/auth"
	"github.com/wardenhq/warden/pkg/config"
	"github.com/wardenhq/warden/pkg/endpoints"
	"github.com/wardenhq/warden/pkg/httputil"
	"github.com/wardenhq/warden/pkg/identity"
	"github.com/wardenhq/warden/pkg/mail"
	"github.com/wardenhq/warden/pkg/observability"
	"github.com/wardenhq/warden/pkg/roles"
	"github.com/wardenhq/warden/pkg/storage"
	"github.com/wardenhq/warden/pkg/token"
	"github.com/wardenhq/warden/pkg/users"
)

// resetTokenTTL bounds how long a mailed password-reset link stays valid.
const resetTokenTTL = 24 * time.Hour

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "warden: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	logger.WithField("environment", cfg.Environment).Info("starting warden")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := storage.Connect(cfg.Storage)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := storage.RunMigrations(ctx, db, logger); err != nil {
		return err
	}

	promRegistry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(promRegistry)
	metrics.CollectDBStats(func() (int, int) {
		stats := db.Stats()
		return stats.InUse, stats.Idle
	})

	userStore := identity.NewUserStore(db)
	roleStore := identity.NewRoleStore(db)
	endpointStore := endpoints.NewStore(db)
	issuer := token.NewIssuer(cfg.Token)
	resetTokens := identity.NewResetTokenGenerator(cfg.Token.SecurityKey, resetTokenTTL)
	mailer := mail.NewSMTPMailer(cfg.Mail, logger)

	var verifier auth.IDTokenVerifier
	if cfg.Google.ClientID != "" {
		verifier, err = auth.NewGoogleVerifier(ctx, cfg.Google)
		if err != nil {
			return fmt.Errorf("google login setup: %w", err)
		}
	} else {
		logger.Warn("google login disabled: no client id configured")
		verifier = disabledVerifier{}
	}

	userService := users.NewService(userStore, roleStore, endpointStore, resetTokens, logger)
	authService := auth.NewService(userStore, issuer, mailer, verifier, resetTokens, cfg.Server.Origin, logger, metrics)
	roleService := roles.NewService(roleStore, logger)

	server := api.NewServer(api.Deps{
		DB:        db,
		Auth:      authService,
		Users:     userService,
		Roles:     roleService,
		Endpoints: endpointStore,
		Issuer:    issuer,
		Logger:    logger,
		Metrics:   metrics,
	})

	// Reconcile the declared actions into the catalog before serving, so
	// enforcement never sees an endpoint the database does not know.
	result, err := endpointStore.Reconcile(ctx, server.Registry().Menus(), logger)
	if err != nil {
		return fmt.Errorf("endpoint reconciliation: %w", err)
	}
	logger.WithField("routes_added", result.RoutesAdded).
		WithField("endpoints_added", result.EndpointsAdded).
		Info("endpoint catalog reconciled")

	scheduler := cron.New()
	_, err = scheduler.AddFunc(cfg.Observability.RefreshPurgeSchedule, func() {
		purged, purgeErr := userStore.PurgeExpiredRefreshTokens(context.Background(), time.Now())
		if purgeErr != nil {
			logger.WithError(purgeErr).Error("refresh token purge failed")
			return
		}
		if purged > 0 {
			metrics.RefreshTokensPurged.Add(float64(purged))
			logger.WithField("purged", purged).Info("expired refresh tokens purged")
		}
	})
	if err != nil {
		return fmt.Errorf("invalid purge schedule %q: %w", cfg.Observability.RefreshPurgeSchedule, err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	handler := httputil.Chain(
		httputil.RequestIDMiddleware,
		httputil.LoggingMiddleware(logger),
		httputil.CORSMiddleware([]string{cfg.Server.Origin}),
		httputil.RecoveryMiddleware,
		observability.HTTPMetricsMiddleware(metrics),
	)(server)

	apiServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	healthMux := http.NewServeMux()
	if cfg.Observability.MetricsEnabled {
		observability.RegisterMetricsEndpoint(healthMux, promRegistry)
	}
	healthMux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	healthServer := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler: healthMux,
	}

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		logger.WithField("addr", apiServer.Addr).Info("api listening")
		if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		logger.WithField("addr", healthServer.Addr).Info("health listening")
		if err := healthServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		apiErr := apiServer.Shutdown(shutdownCtx)
		healthErr := healthServer.Shutdown(shutdownCtx)
		if apiErr != nil {
			return apiErr
		}
		return healthErr
	})

	return group.Wait()
}

// disabledVerifier rejects every federated login when Google is unconfigured.
type disabledVerifier struct{}

func (disabledVerifier) Verify(context.Context, string) (*auth.FederatedIdentity, error) {
	return nil, errors.New("google login is not configured")
}
