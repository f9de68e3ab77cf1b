// Copyright 2026 The PlantGate Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/plantgate/plantgate/internal/audit"
	"github.com/plantgate/plantgate/internal/authz"
	"github.com/plantgate/plantgate/internal/config"
	"github.com/plantgate/plantgate/internal/document"
	"github.com/plantgate/plantgate/internal/observability/logger"
	"github.com/plantgate/plantgate/internal/observability/metrics"
	"github.com/plantgate/plantgate/internal/observability/tracing"
	"github.com/plantgate/plantgate/internal/principal"
	"github.com/plantgate/plantgate/internal/rbac"
	"github.com/plantgate/plantgate/internal/scope"
	"github.com/plantgate/plantgate/internal/store/postgres"
	transportHTTP "github.com/plantgate/plantgate/internal/transport/http"
)

func main() {
	// Load configuration. Policy violations are fatal: running with a
	// broken access policy is worse than not running.
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger.InitLogger(logger.Config{
		Level:          cfg.Observability.LogLevel,
		Format:         cfg.Observability.LogFormat,
		ServiceName:    cfg.Observability.ServiceName,
		ServiceVersion: cfg.Observability.ServiceVersion,
	})
	slog.Info("starting plantgate authorization service")

	ctx := context.Background()

	// Initialize tracer
	tracer, err := tracing.New(ctx, tracing.Config{
		Enabled:        cfg.Observability.OTELEnabled,
		ServiceName:    cfg.Observability.ServiceName,
		ServiceVersion: cfg.Observability.ServiceVersion,
		SamplingRate:   1.0,
	})
	if err != nil {
		slog.Error("failed to initialize tracer", logger.Error(err))
	}
	defer tracer.Shutdown(ctx)

	// Initialize meter; the registry backs the /metrics endpoint.
	meter, err := metrics.New(ctx, metrics.Config{
		Enabled: cfg.Observability.MetricsEnabled,
	}, cfg.Observability.ServiceName)
	if err != nil {
		slog.Error("failed to initialize meter", logger.Error(err))
	} else {
		defer meter.Shutdown(ctx)
	}

	// Initialize database
	db, err := postgres.New(ctx, cfg.Database)
	if err != nil {
		slog.Error("failed to connect to database", logger.Error(err))
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("connected to database")

	// Audit pipeline: sink selection, then the batching recorder.
	var sink audit.Sink
	switch cfg.Audit.Sink {
	case "postgres":
		sink = postgres.NewAuditSink(db)
	default:
		sink = audit.NewSlogSink()
	}
	recorder := audit.NewRecorder(cfg.Audit, sink)
	defer recorder.Close()

	// Role hierarchy is validated at construction; a malformed policy
	// never reaches request handling.
	hierarchy, err := rbac.NewHierarchy(cfg.Security.RoleHierarchyEnabled)
	if err != nil {
		slog.Error("invalid role hierarchy", logger.Error(err))
		os.Exit(1)
	}

	engine := authz.NewEngine(cfg, hierarchy, recorder)

	defaultRole, err := rbac.ParseRole(cfg.Security.DefaultRole)
	if err != nil {
		slog.Error("invalid default role", logger.Error(err))
		os.Exit(1)
	}
	builder := principal.NewBuilder(
		hierarchy,
		cfg.Security.StrictRoleValidation,
		defaultRole,
		cfg.Plant.MaxPerUser,
		cfg.Plant.DefaultCode,
	)

	documents := document.NewService(
		postgres.NewDocumentRepository(db),
		engine,
		scope.NewBuilder(cfg.Security.PlantFilteringEnabled),
	)

	rateLimiter := transportHTTP.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)

	var metricsHandler http.Handler
	if meter != nil {
		metricsHandler = meter.Handler()
	}
	handler := transportHTTP.NewHandler(cfg, engine, documents, builder, metricsHandler)
	router := transportHTTP.NewRouter(handler, rateLimiter)

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server
	go func() {
		slog.Info("starting http server", logger.Component("server"), logger.Operation("listen"))
		slog.Info(fmt.Sprintf("listening on %s", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", logger.Error(err))
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", logger.Error(err))
	}

	slog.Info("server stopped")
}
