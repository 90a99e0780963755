// Command server runs the fractional ownership registry: policy engine,
// fragment ledger, transfer workflow, and audit log behind one HTTP API.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"provena/internal/audit"
	audithandler "provena/internal/audit/handler"
	auditmetrics "provena/internal/audit/metrics"
	auditkafka "provena/internal/audit/sink/kafka"
	auditmemory "provena/internal/audit/store/memory"
	auditpostgres "provena/internal/audit/store/postgres"
	"provena/internal/ledger"
	ledgerhandler "provena/internal/ledger/handler"
	ledgermetrics "provena/internal/ledger/metrics"
	ledgermemory "provena/internal/ledger/store/memory"
	"provena/internal/platform/config"
	"provena/internal/platform/httpserver"
	"provena/internal/platform/logger"
	platformredis "provena/internal/platform/redis"
	"provena/internal/policy"
	policyhandler "provena/internal/policy/handler"
	policymetrics "provena/internal/policy/metrics"
	policymemory "provena/internal/policy/store/memory"
	"provena/internal/ratelimit"
	"provena/internal/ratelimit/store/bucket"
	"provena/internal/ratelimit/store/redisbucket"
	"provena/internal/token"
	"provena/internal/transfer"
	transferhandler "provena/internal/transfer/handler"
	transfermetrics "provena/internal/transfer/metrics"
	transfermemory "provena/internal/transfer/store/memory"
	httptransport "provena/internal/transport/http"
	id "provena/pkg/domain"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	adminID, err := adminPrincipal(cfg, log)
	if err != nil {
		return err
	}

	// Audit storage: postgres when a database is configured, memory otherwise.
	var auditStore audit.Store
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		store := auditpostgres.New(db)
		if err := store.Migrate(ctx); err != nil {
			return err
		}
		auditStore = store
		log.Info("audit log backed by postgres")
	} else {
		auditStore = auditmemory.NewInMemoryStore()
		log.Info("audit log backed by memory; entries do not survive restarts")
	}

	group, ctx := errgroup.WithContext(ctx)

	auditOpts := []audit.Option{audit.WithLogger(log), audit.WithMetrics(auditmetrics.New())}
	if len(cfg.Kafka.Brokers) > 0 {
		sink := make(chan audit.Entry, 256)
		auditOpts = append(auditOpts, audit.WithSink(sink))

		publisher := auditkafka.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.AuditTopic)
		worker := audit.NewWorker(publisher, sink, log)
		group.Go(func() error {
			return worker.Run(ctx)
		})
		log.Info("audit entries mirrored to kafka", "topic", cfg.Kafka.AuditTopic)
	}

	auditSvc := audit.NewService(auditStore, adminID, auditOpts...)
	policySvc := policy.NewService(policymemory.NewInMemoryProfileStore(), adminID, policy.DefaultConfig(),
		policy.WithLogger(log),
		policy.WithMetrics(policymetrics.New()),
	)

	// Service identities the platform writes audit entries under.
	ledgerWriter := id.PrincipalID(uuid.New())
	transferWriter := id.PrincipalID(uuid.New())
	if err := bootstrapAudit(ctx, auditSvc, adminID, ledgerWriter, transferWriter); err != nil {
		return err
	}

	ledgerSvc := ledger.NewService(ledgermemory.NewInMemoryItemStore(), policySvc, auditSvc, ledgerWriter,
		ledger.WithLogger(log),
		ledger.WithMetrics(ledgermetrics.New()),
	)
	transferSvc := transfer.NewService(transfermemory.NewInMemoryTransferStore(), ledgerSvc, policySvc, auditSvc, transferWriter,
		transfer.WithLogger(log),
		transfer.WithMetrics(transfermetrics.New()),
	)

	// Rate limit store: redis when configured, per-process memory otherwise.
	var limitStore ratelimit.BucketStore = bucket.NewInMemoryBucketStore()
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		limitStore = redisbucket.New(redisClient.Client)
		log.Info("rate limiting backed by redis")
	}
	limiter := ratelimit.NewMiddleware(limitStore, cfg.RateLimit.Limit, cfg.RateLimit.Window, log,
		ratelimit.WithDisabled(cfg.RateLimit.Disabled),
	)

	tokens := token.NewService(cfg.JWTSigningKey, "provena", "provena-api")

	router := httptransport.NewRouter(httptransport.Handlers{
		Policy:   policyhandler.New(policySvc, adminID, nil, log),
		Ledger:   ledgerhandler.New(ledgerSvc, nil, log),
		Transfer: transferhandler.New(transferSvc, log),
		Audit:    audithandler.New(auditSvc, adminID, log),
	}, httptransport.Deps{
		AdminToken:     cfg.AdminToken,
		TokenValidator: tokens,
		RateLimit:      limiter,
		Logger:         log,
	})

	srv := httpserver.New(cfg.Addr, router)

	group.Go(func() error {
		log.Info("starting provena registry", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return group.Wait()
}

// adminPrincipal resolves the administrator identity. Ephemeral when not
// pinned through the environment, which is fine for single-process demos but
// not for postgres-backed deployments.
func adminPrincipal(cfg config.Config, log *slog.Logger) (id.PrincipalID, error) {
	if cfg.AdminPrincipal == "" {
		adminID := id.PrincipalID(uuid.New())
		log.Warn("PROVENA_ADMIN_PRINCIPAL not set, generated ephemeral admin identity",
			"admin_id", adminID,
		)
		return adminID, nil
	}
	return id.ParsePrincipalID(cfg.AdminPrincipal)
}

// bootstrapAudit seeds the action whitelist and authorizes the platform's
// writer identities.
func bootstrapAudit(ctx context.Context, svc *audit.Service, adminID id.PrincipalID, writers ...id.PrincipalID) error {
	for _, action := range audit.CoreActions() {
		if err := svc.RegisterAction(ctx, adminID, action); err != nil {
			return err
		}
	}
	for _, writer := range writers {
		if err := svc.AuthorizeWriter(ctx, adminID, writer); err != nil {
			return err
		}
	}
	return nil
}
