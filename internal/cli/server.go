package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quizdeck-service/internal/app"
	"quizdeck-service/internal/attempt"
	"quizdeck-service/internal/config"
	"quizdeck-service/internal/domain"
	"quizdeck-service/internal/genai"
	"quizdeck-service/internal/infra/memory"
	pgloader "quizdeck-service/internal/infra/postgres"
	redisinfra "quizdeck-service/internal/infra/redis"
	"quizdeck-service/internal/logger"
	transport "quizdeck-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
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

	log, err := logger.New(cfg.Env)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

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
	sessionTTL := config.TTLDuration(cfg.Redis.SessionTTL, redisinfra.DefaultSessionTTL)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var loader memory.QuizLoader = memory.NewStaticQuizLoader(sampleQuizzes())
	if pool != nil {
		loader = pgloader.NewQuizLoader(pool)
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var quizRepo app.QuizRepository
	if redisClient != nil {
		quizRepo = redisinfra.NewQuizRepository(redisClient, loader, quizTTL)
	} else {
		quizRepo = memory.NewQuizRepository(loader, quizTTL)
	}

	var sessions transport.SessionManager
	if redisClient != nil {
		sessions = redisinfra.NewSessionStore(redisClient, sessionTTL)
	} else {
		sessions = memory.NewSessionStore(sessionTTL)
	}

	var users transport.CredentialChecker
	if pool != nil {
		users = pgloader.NewUserStore(pool)
	} else {
		users, err = demoUsers()
		if err != nil {
			return err
		}
		log.Warn("no postgres configured, using demo accounts")
	}

	// Narration is surfaced to clients over the websocket; the server side
	// has no audio device.
	service := app.NewAttemptService(memory.NewAttemptStore(), quizRepo, attempt.Options{
		Narrator: attempt.NopNarrator{},
	})
	wsHandler := transport.NewWSHandler(service, sessions, log)
	authHandler := transport.NewAuthHandler(users, sessions, log)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	mux.HandleFunc("/login", authHandler.ServeLogin)
	mux.HandleFunc("/logout", authHandler.ServeLogout)
	if cfg.GenAI.URL != "" {
		draftHandler := transport.NewDraftHandler(sessions, genai.NewClient(cfg.GenAI.URL), log)
		mux.HandleFunc("/drafts", draftHandler.ServeDraft)
	}

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info("starting quizdeck service", zap.String("port", finalPort))
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

// demoUsers seeds login accounts for running without Postgres. alice can
// author drafts; bob can only take quizzes.
func demoUsers() (*memory.UserDirectory, error) {
	directory := memory.NewUserDirectory()
	if err := directory.Add(domain.User{Username: "alice", Email: "alice@example.com", IsCreator: true}, "quizdeck"); err != nil {
		return nil, err
	}
	if err := directory.Add(domain.User{Username: "bob", Email: "bob@example.com"}, "quizdeck"); err != nil {
		return nil, err
	}
	return directory, nil
}

// sampleQuizzes provides demo content for running without Postgres.
func sampleQuizzes() map[int64]domain.Quiz {
	return map[int64]domain.Quiz{
		1: {
			ID:          1,
			Title:       "Arithmetic warm-up",
			Description: "Two quick questions, untimed",
			Difficulty:  "easy",
			Questions: []domain.Question{
				{
					ID:             "q1",
					Prompt:         "What is 2 + 2?",
					Type:           domain.MultipleChoice,
					Options:        []string{"3", "4", "5"},
					CorrectAnswer:  1,
					PositivePoints: 4,
					NegativePoints: 1,
				},
				{
					ID:             "q2",
					Prompt:         "Seven is an even number.",
					Type:           domain.TrueFalse,
					CorrectAnswer:  1,
					PositivePoints: 4,
					NegativePoints: 1,
				},
			},
		},
		2: {
			ID:               2,
			Title:            "Strict sprint",
			Description:      "One minute per question, forward only",
			Difficulty:       "medium",
			TimeLimit:        true,
			TimeLimitTotal:   5,
			MakeStrict:       true,
			TimeLimitMinutes: 1,
			Questions: []domain.Question{
				{
					ID:             "q1",
					Prompt:         "Which planet is closest to the sun?",
					Type:           domain.MultipleChoice,
					Options:        []string{"Venus", "Mercury", "Mars", "Earth"},
					CorrectAnswer:  1,
					PositivePoints: 4,
					NegativePoints: 1,
				},
				{
					ID:             "q2",
					Prompt:         "Sound travels faster in water than in air.",
					Type:           domain.TrueFalse,
					CorrectAnswer:  0,
					PositivePoints: 4,
					NegativePoints: 1,
				},
			},
		},
	}
}
