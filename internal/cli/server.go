package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"paper-attempt-service/internal/app"
	"paper-attempt-service/internal/config"
	"paper-attempt-service/internal/domain"
	"paper-attempt-service/internal/grading"
	"paper-attempt-service/internal/infra/memory"
	pgstore "paper-attempt-service/internal/infra/postgres"
	rediscache "paper-attempt-service/internal/infra/redis"
	"paper-attempt-service/internal/logging"
	"paper-attempt-service/internal/metrics"
	transport "paper-attempt-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the attempt server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

// stores groups the adapters chosen from configuration.
type stores struct {
	papers    app.PaperRepository
	payments  app.PaymentLedger
	attempts  app.AttemptStore
	progress  app.ProgressStore
	directory app.StudentDirectory
	standings app.StandingsCache
	closers   []func()
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger, err := logging.New(logging.Options{Level: cfg.Log.Level, File: cfg.Log.File})
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	st, err := buildStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		for i := len(st.closers) - 1; i >= 0; i-- {
			st.closers[i]()
		}
	}()

	m := metrics.New()
	standings := app.NewStandingService(st.papers, st.attempts, st.progress, st.directory, st.standings,
		app.NewHub(), logger.Named("standings"), m)
	attempts := app.NewAttemptService(st.papers, st.payments, st.attempts, logger.Named("attempts"),
		app.WithMetrics(m), app.WithSubmitListener(standings))

	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	limit := cfg.Leaderboard.DefaultLimit
	if limit == 0 {
		limit = grading.DefaultLeaderboardLimit
	}
	router := transport.NewRouter(transport.NewHandler(attempts, standings, logger.Named("http"), limit), m)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info("starting attempt service", zap.String("port", finalPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to start server", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Info("shutting down server")
	case <-ctx.Done():
		logger.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// buildStores picks Postgres and Redis adapters when configured and falls
// back to the in-memory twins otherwise.
func buildStores(ctx context.Context, cfg config.Config, logger *zap.Logger) (stores, error) {
	var st stores
	catalogTTL := config.TTLDuration(cfg.Catalog.TTL, 10*time.Minute)
	standingsTTL := config.TTLDuration(cfg.Leaderboard.CacheTTL, time.Minute)

	var loader memory.CatalogLoader
	if cfg.Postgres.URL != "" {
		db := openBun(cfg.Postgres.URL)
		st.closers = append(st.closers, func() { _ = db.Close() })
		if err := applyMigrations(ctx, db, logger); err != nil {
			return st, err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return st, fmt.Errorf("connect postgres: %w", err)
		}
		st.closers = append(st.closers, pool.Close)

		loader = pgstore.NewCatalogLoader(pool)
		st.payments = pgstore.NewPaymentLedger(pool)
		st.directory = pgstore.NewStudentDirectory(pool)
		st.attempts = pgstore.NewAttemptStore(db)
		st.progress = pgstore.NewProgressStore(db)
	} else {
		logger.Warn("postgres not configured, using in-memory stores with the demo catalog")
		loader = memory.NewStaticCatalog(demoCatalog()...)
		ledger := memory.NewPaymentLedger()
		ledger.Record("demo-student", "paper-paid")
		st.payments = ledger
		st.directory = memory.NewStudentDirectory(map[string]string{"demo-student": "Demo Student"})
		st.attempts = memory.NewAttemptStore()
		st.progress = memory.NewProgressStore()
	}

	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		st.closers = append(st.closers, func() { _ = client.Close() })
		st.papers = rediscache.NewPaperRepository(client, loader, catalogTTL)
		st.standings = rediscache.NewStandingsCache(client, standingsTTL)
	} else {
		st.papers = memory.NewPaperRepository(loader, catalogTTL)
		st.standings = memory.NewStandingsCache(standingsTTL)
	}
	return st, nil
}

// demoCatalog provides a minimal catalog; Postgres replaces it in production.
func demoCatalog() []domain.PaperContent {
	return []domain.PaperContent{
		{
			Paper: domain.Paper{
				ID: "paper-free", Title: "Arithmetic warm-up", PaperType: "mcq", PaymentType: domain.PaymentFree,
				AttemptsAllowed: 2, QuestionCount: 2, AnswersPerQuestion: 3, TimeMinutes: 10,
				IsActive: true, IsPublished: true,
			},
			Questions: []domain.Question{
				{ID: "free-q1", Number: 1, Prompt: "What is 2 + 2?", Answers: []string{"3", "4", "5"}, CorrectIndexes: []int{1}, Point: 5},
				{ID: "free-q2", Number: 2, Prompt: "Pick the even numbers", Answers: []string{"2", "3", "8"}, CorrectIndexes: []int{0, 2}, Point: 5},
			},
		},
		{
			Paper: domain.Paper{
				ID: "paper-paid", Title: "Algebra mock exam", PaperType: "mcq", PaymentType: domain.PaymentPaid, Amount: 4.99,
				AttemptsAllowed: 1, QuestionCount: 1, AnswersPerQuestion: 3, TimeMinutes: 30,
				IsActive: true, IsPublished: true,
			},
			Questions: []domain.Question{
				{ID: "paid-q1", Number: 1, Prompt: "Solve x + 3 = 5", Answers: []string{"1", "2", "8"}, CorrectIndexes: []int{1}, Point: 10},
			},
		},
		{
			Paper: domain.Paper{
				ID: "paper-practice", Title: "Practice set", PaperType: "mcq", PaymentType: domain.PaymentPractice,
				AttemptsAllowed: 5, QuestionCount: 1, AnswersPerQuestion: 2,
				IsActive: true, IsPublished: true,
			},
			Questions: []domain.Question{
				{ID: "practice-q1", Number: 1, Prompt: "Is 7 prime?", Answers: []string{"yes", "no"}, CorrectIndexes: []int{0}, Point: 1},
			},
		},
	}
}
