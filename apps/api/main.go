package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/zenGate-Global/palmyra-taskhub/contracts"
	authhandler "github.com/zenGate-Global/palmyra-taskhub/domains/auth/be/handler"
	authrepo "github.com/zenGate-Global/palmyra-taskhub/domains/auth/be/repo"
	authservice "github.com/zenGate-Global/palmyra-taskhub/domains/auth/be/service"
	projectshandler "github.com/zenGate-Global/palmyra-taskhub/domains/projects/be/handler"
	projectsrepo "github.com/zenGate-Global/palmyra-taskhub/domains/projects/be/repo"
	projectsservice "github.com/zenGate-Global/palmyra-taskhub/domains/projects/be/service"
	taskshandler "github.com/zenGate-Global/palmyra-taskhub/domains/tasks/be/handler"
	tasksrepo "github.com/zenGate-Global/palmyra-taskhub/domains/tasks/be/repo"
	tasksservice "github.com/zenGate-Global/palmyra-taskhub/domains/tasks/be/service"
	tenantshandler "github.com/zenGate-Global/palmyra-taskhub/domains/tenants/be/handler"
	tenantsrepo "github.com/zenGate-Global/palmyra-taskhub/domains/tenants/be/repo"
	tenantsservice "github.com/zenGate-Global/palmyra-taskhub/domains/tenants/be/service"
	usershandler "github.com/zenGate-Global/palmyra-taskhub/domains/users/be/handler"
	usersrepo "github.com/zenGate-Global/palmyra-taskhub/domains/users/be/repo"
	usersservice "github.com/zenGate-Global/palmyra-taskhub/domains/users/be/service"
	"github.com/zenGate-Global/palmyra-taskhub/platform/go/audit"
	platformauth "github.com/zenGate-Global/palmyra-taskhub/platform/go/auth"
	platformlogging "github.com/zenGate-Global/palmyra-taskhub/platform/go/logging"
	"github.com/zenGate-Global/palmyra-taskhub/platform/go/metrics"
	"github.com/zenGate-Global/palmyra-taskhub/platform/go/persistence"
)

func main() {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := platformlogging.NewLogger(platformlogging.Config{
		Component: "api-server",
		Level:     cfg.LogLevel,
	})
	if err != nil {
		log.Fatalf("init zap logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	if cfg.MigrateOnStart {
		if err := persistence.Migrate(cfg.DatabaseURL, persistence.MigrateUp); err != nil {
			logger.Fatal("apply migrations", zap.Error(err))
		}
		logger.Info("migrations applied")
	}

	pool, err := persistence.NewPool(ctx, persistence.PoolConfig{
		ConnString: cfg.DatabaseURL,
		MaxConns:   cfg.DBMaxConns,
	})
	if err != nil {
		logger.Fatal("init postgres pool", zap.Error(err))
	}
	defer persistence.ClosePool(pool)

	tenantStore, err := persistence.NewTenantStore(ctx, pool)
	if err != nil {
		logger.Fatal("init tenant store", zap.Error(err))
	}
	userStore, err := persistence.NewUserStore(ctx, pool)
	if err != nil {
		logger.Fatal("init user store", zap.Error(err))
	}
	projectStore, err := persistence.NewProjectStore(ctx, pool)
	if err != nil {
		logger.Fatal("init project store", zap.Error(err))
	}
	taskStore, err := persistence.NewTaskStore(ctx, pool)
	if err != nil {
		logger.Fatal("init task store", zap.Error(err))
	}
	auditStore, err := persistence.NewAuditStore(ctx, pool)
	if err != nil {
		logger.Fatal("init audit store", zap.Error(err))
	}

	apiMetrics := metrics.New("taskhub-api")

	auditDispatcher := audit.NewDispatcher(auditStore, audit.DispatcherConfig{
		Buffer:       cfg.AuditBuffer,
		WriteTimeout: cfg.AuditWriteTimeout,
		Logger:       logger.Named("audit"),
		Counters: audit.Counters{
			Written: apiMetrics.AuditWritten,
			Dropped: apiMetrics.AuditDropped,
			Failed:  apiMetrics.AuditFailed,
		},
	})

	tokens, err := platformauth.NewTokenManager(platformauth.TokenConfig{
		Secret: []byte(cfg.JWTSecret),
		Issuer: cfg.JWTIssuer,
		TTL:    cfg.JWTTTL,
	})
	if err != nil {
		logger.Fatal("init token manager", zap.Error(err))
	}
	hasher := platformauth.NewHasher(cfg.BcryptCost)

	spec, err := contracts.Load(ctx)
	if err != nil {
		logger.Fatal("load api contract", zap.Error(err))
	}

	tenantService := tenantsservice.New(tenantsrepo.NewPostgresRepository(tenantStore), hasher, auditDispatcher)
	userService := usersservice.New(usersrepo.NewPostgresRepository(userStore), hasher, auditDispatcher)
	projectService := projectsservice.New(projectsrepo.NewPostgresRepository(projectStore), auditDispatcher)
	taskService := tasksservice.New(tasksrepo.NewPostgresRepository(taskStore, projectStore, userStore), auditDispatcher)
	authService := authservice.New(authrepo.NewPostgresRepository(tenantStore, userStore), hasher, tokens)

	router := newRouter(routerDeps{
		Logger:         logger,
		Metrics:        apiMetrics,
		Spec:           spec,
		Verify:         tokens.Verifier(),
		Ready:          pool.Ping,
		CORSOrigins:    cfg.CORSAllowedOrigins,
		RequestTimeout: cfg.RequestTimeout,

		Auth:     authhandler.New(authService, logger),
		Tenants:  tenantshandler.New(tenantService, logger),
		Users:    usershandler.New(userService, logger),
		Projects: projectshandler.New(projectService, logger),
		Tasks:    taskshandler.New(taskService, logger),
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	go func() {
		logger.Info("starting api server", zap.String("port", cfg.Port))
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server listen failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
	if err := auditDispatcher.Close(shutdownCtx); err != nil {
		logger.Error("audit dispatcher drain failed", zap.Error(err))
	}
}
