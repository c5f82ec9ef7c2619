package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"daily-trivia-service/internal/app"
	"daily-trivia-service/internal/config"
	"daily-trivia-service/internal/domain"
	"daily-trivia-service/internal/infra/file"
	"daily-trivia-service/internal/infra/memory"
	pgbank "daily-trivia-service/internal/infra/postgres"
	"daily-trivia-service/internal/infra/quizapi"
	redisinfra "daily-trivia-service/internal/infra/redis"
	transport "daily-trivia-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the trivia server",
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

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
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
	cacheTTL := config.Duration(cfg.Redis.CacheTTL, 10*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var provider app.QuestionProvider = memory.NewStaticQuestionProvider(sampleBank())
	if pool != nil {
		provider = pgbank.NewQuestionBank(pool)
	}
	if cfg.Provider.BaseURL != "" {
		provider = quizapi.NewClient(cfg.Provider.BaseURL)
	}
	if redisClient != nil {
		provider = redisinfra.NewQuestionCache(redisClient, provider, cacheTTL)
	}

	dataDir := cfg.Data.Dir
	if dataDir == "" {
		dataDir = "data"
	}
	fileStore, err := file.NewStore(dataDir)
	if err != nil {
		return err
	}

	// Snapshots go to Redis when configured; tenant schedules stay on disk
	// either way so a Redis flush never loses the configuration.
	var store app.Persistence = fileStore
	if redisClient != nil {
		store = redisinfra.NewStore(redisClient)
	}
	tenants := file.NewTenantStore(fileStore)

	gateway := transport.NewGateway()

	sessions := app.NewSessionRegistry()
	questions := app.NewQuestionSetCache(provider)
	ledger := app.NewLeaderboard()
	service := app.NewTriviaService(sessions, questions, ledger, tenants, gateway, store)
	if timeout := config.Duration(cfg.Trivia.AnswerTimeout, 0); timeout > 0 {
		service.SetAnswerTimeout(timeout)
	}
	if cfg.Trivia.TopLimit > 0 {
		service.SetTopLimit(cfg.Trivia.TopLimit)
	}
	service.RestoreFromStore(ctx)
	gateway.Attach(service)

	scheduler := app.NewScheduler(service, tenants, sessions)
	if delay := config.Duration(cfg.Trivia.CatchupDelay, 0); delay > 0 {
		scheduler.SetCatchUpDelay(delay)
	}

	adminHandler := transport.NewAdminHandler(service, scheduler)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", gateway.ServeWS)
	adminHandler.Register(mux)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	scheduler.Start(ctx)
	defer scheduler.Stop()

	go func() {
		log.Printf("starting trivia service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleBank seeds the in-memory provider for local runs without a
// database or question API.
func sampleBank() map[domain.Tier][]domain.GradedQuestion {
	return map[domain.Tier][]domain.GradedQuestion{
		domain.TierEasy: {
			{
				ID:       "easy-1",
				Tier:     domain.TierEasy,
				Prompt:   "What is the capital of France?",
				Answer:   "Paris",
				Decoys:   []string{"Lyon", "Marseille", "Nice"},
				Category: "geography",
			},
		},
		domain.TierMedium: {
			{
				ID:       "medium-1",
				Tier:     domain.TierMedium,
				Prompt:   "Which planet has the most moons?",
				Answer:   "Saturn",
				Decoys:   []string{"Jupiter", "Neptune", "Uranus"},
				Category: "science",
			},
		},
		domain.TierHard: {
			{
				ID:       "hard-1",
				Tier:     domain.TierHard,
				Prompt:   "In which year was the Treaty of Westphalia signed?",
				Answer:   "1648",
				Decoys:   []string{"1618", "1659", "1701"},
				Category: "history",
			},
		},
	}
}
