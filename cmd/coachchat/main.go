package main

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"

	"coachchat/internal/archiver"
	"coachchat/pkg/api"
	"coachchat/pkg/banner"
	"coachchat/pkg/cache"
	"coachchat/pkg/config"
	"coachchat/pkg/logger"
	"coachchat/pkg/models"
	"coachchat/pkg/shutdown"
	"coachchat/pkg/store"
)

// logNotifier emits archive notifications to the log. Real delivery
// (push, email) is owned by the platform's notification service; this is
// the default collaborator when none is deployed alongside.
type logNotifier struct {
	log *zap.Logger
}

func (n *logNotifier) NotifyArchived(th models.Thread) error {
	n.log.Info("archive_notification",
		zap.String("thread", th.ID),
		zap.Strings("participants", th.ParticipantIDs()),
	)
	return nil
}

// logMessageArchiver records the message-archival trigger. Message storage
// lives in the message service; the trigger point is all this service owns.
type logMessageArchiver struct {
	log *zap.Logger
}

func (a *logMessageArchiver) ArchiveThreadMessages(threadID string) error {
	a.log.Info("message_archive_triggered", zap.String("thread", threadID))
	return nil
}

// build metadata - set via ldflags during build/release
var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	_ = godotenv.Load(".env")
	addrVal, dbVal, cfgVal, setFlags := config.ParseCommandFlags()
	cfgPath := config.ResolveConfigPath(cfgVal, setFlags["config"])
	cfg, envUsed, err := config.LoadEffective(cfgPath)
	if err != nil {
		shutdown.Abort("failed to load config", err, "")
	}
	logger.Init(cfg.Logging.Level)

	// Flags explicitly set win over env/config.
	addr := cfg.Addr()
	if setFlags["addr"] {
		addr = addrVal
	}
	dbPath := cfg.Server.DBPath
	if dbPath == "" || setFlags["db"] {
		dbPath = dbVal
	}

	db, err := store.Open(dbPath)
	if err != nil {
		shutdown.Abort("failed to open database", err, dbPath)
	}

	var c cache.Cache = cache.NewMemory(cfg.Cache.Entries, cfg.Cache.TTL.Duration())
	if cfg.Cache.Disabled {
		c = cache.Nop{}
	}

	st := store.New(db, c,
		&logNotifier{log: logger.L()},
		&logMessageArchiver{log: logger.L()},
		logger.L(),
	)

	ctx, cancel := shutdown.SetupSignalHandler(context.Background())
	defer cancel()

	arcCancel, err := archiver.Start(ctx, st, archiver.Config{
		Enabled:    cfg.Archiver.Enabled,
		Cron:       cfg.Archiver.Cron,
		IdlePeriod: cfg.Archiver.IdlePeriod.Duration(),
		BatchSize:  cfg.Archiver.BatchSize,
	}, logger.L())
	if err != nil {
		shutdown.Abort("failed to start archiver", err, dbPath)
	}

	srcs := []string{}
	if len(setFlags) > 0 {
		srcs = append(srcs, "flags")
	}
	if envUsed {
		srcs = append(srcs, "env")
	}
	if _, err := config.Load(cfgPath); err == nil {
		srcs = append(srcs, "config")
	}
	verStr := version
	if commit != "none" {
		verStr = verStr + " (" + commit + ")"
	}
	if buildDate != "unknown" {
		verStr = verStr + " @ " + buildDate
	}
	banner.Print(addr, dbPath, strings.Join(srcs, ", "), verStr)

	mux := http.NewServeMux()

	// Liveness probe used by deployment systems and CI
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	mux.Handle("/metrics", promhttp.Handler())

	// Serve Swagger UI at /docs and the OpenAPI spec at /openapi.yaml
	mux.Handle("/docs/", httpSwagger.Handler(httpSwagger.URL("/openapi.yaml")))
	mux.Handle("/openapi.yaml", http.FileServer(http.Dir("./docs")))

	mux.Handle("/", api.Handler(st, dbPath))

	wrapped := api.RequestLogging(api.RateLimit(cfg.RateLimit.RPS, cfg.RateLimit.Burst)(mux))
	srv := &http.Server{Addr: addr, Handler: wrapped}

	go func() {
		<-ctx.Done()
		arcCancel()
		shCtx, shCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shCancel()
		_ = srv.Shutdown(shCtx)
		_ = db.Close()
		logger.Sync()
	}()

	logger.Info("listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		shutdown.Abort("http server failed", err, dbPath)
	}
}
