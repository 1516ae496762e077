package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"brainring-service/internal/config"
	"brainring-service/internal/domain"
	"brainring-service/internal/engine"
	"brainring-service/internal/infra/memory"
	pgloader "brainring-service/internal/infra/postgres"
	redisinfra "brainring-service/internal/infra/redis"
	"brainring-service/internal/metrics"
	transport "brainring-service/internal/transport/http"
	"brainring-service/internal/validate"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the arbitration engine server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer log.Sync()

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var loader memory.BankLoader = memory.NewStaticBankLoader(sampleBanks())
	if pool != nil {
		loader = pgloader.NewBankLoader(pool)
	}

	bankTTL := config.TTLDuration(cfg.Bank.TTL, 10*time.Minute)
	var banks engine.BankRepository
	if redisClient != nil {
		banks = redisinfra.NewBankRepository(redisClient, loader, bankTTL)
	} else {
		banks = memory.NewBankRepository(loader, bankTTL)
	}

	var snapshots engine.SnapshotStore
	if redisClient != nil {
		snapshotTTL := config.TTLDuration(cfg.Engine.SnapshotTTL, 24*time.Hour)
		snapshots = redisinfra.NewSnapshotStore(redisClient, snapshotTTL)
	}

	promRegistry := prometheus.NewRegistry()
	met := metrics.New(promRegistry)

	var checker validate.AIChecker
	aiTimeout := config.TTLDuration(cfg.Validation.AI.Timeout, 3*time.Second)
	if cfg.Validation.AI.Enabled && cfg.Validation.AI.URL != "" {
		checker = validate.NewHTTPChecker(cfg.Validation.AI.URL, aiTimeout)
	}
	validator := validate.New(validate.Config{
		FuzzyThreshold: cfg.Validation.FuzzyThreshold,
		AIEnabled:      cfg.Validation.AI.Enabled,
		AITimeout:      aiTimeout,
	}, checker, log, met)

	registry := engine.NewRegistry(engine.Config{
		AnswerWindow:  config.TTLDuration(cfg.Engine.AnswerWindow, 10*time.Second),
		SweepInterval: config.TTLDuration(cfg.Engine.SweepInterval, time.Second),
		MaxPlayers:    cfg.Engine.MaxPlayers,
	}, banks, validator, snapshots, log, met)

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go engine.NewSweep(registry, log).Run(sweepCtx)

	handler := transport.NewHandler(registry, log)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/sessions", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			handler.GetSession(w, r)
			return
		}
		handler.CreateSession(w, r)
	})
	mux.HandleFunc("/ws", handler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info("starting arbitration engine", zap.String("port", finalPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("failed to start server", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleBanks provides minimal bank data; swap this loader with the
// Postgres-backed one in production.
func sampleBanks() map[string]domain.QuestionBank {
	return map[string]domain.QuestionBank{
		"bank-1": {
			ID: "bank-1",
			Questions: []domain.Question{
				{ID: "q1", Prompt: "Capital of France?", Answer: "Paris", Difficulty: "easy"},
				{ID: "q2", Prompt: "Largest planet in the solar system?", Answer: "Jupiter", Difficulty: "easy"},
				{ID: "q3", Prompt: "Chemical symbol for gold?", Answer: "Au", Difficulty: "medium"},
			},
		},
	}
}
