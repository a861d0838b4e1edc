package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"sanskriti-quiz-service/internal/app"
	"sanskriti-quiz-service/internal/config"
	"sanskriti-quiz-service/internal/domain"
	"sanskriti-quiz-service/internal/infra/memory"
	pgstore "sanskriti-quiz-service/internal/infra/postgres"
	redisbank "sanskriti-quiz-service/internal/infra/redis"
	transport "sanskriti-quiz-service/internal/transport/http"
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

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var loader memory.QuestionLoader = memory.NewStaticQuestionLoader(sampleQuestions())
	if pool != nil {
		loader = pgstore.NewQuestionLoader(pool)
	}

	questionTTL := config.TTLDuration(cfg.Quiz.QuestionTTL, 10*time.Minute)
	var questions app.QuestionSource
	if redisClient != nil {
		questions = redisbank.NewQuestionBank(redisClient, loader, questionTTL)
	} else {
		questions = memory.NewQuestionBank(loader, questionTTL)
	}

	var attempts app.AttemptStore = memory.NewAttemptStore()
	var users app.UserDirectory = memory.NewUserDirectory()
	if pool != nil {
		attempts = pgstore.NewAttemptStore(pool)
		users = pgstore.NewUserDirectory(pool)
	}

	budget := config.TTLDuration(cfg.Quiz.TimeLimit, 5*time.Minute)
	quizService := app.NewQuizService(questions, attempts, users, cfg.Quiz.Size, budget)
	boardService := app.NewLeaderboardService(attempts)

	wsHandler := transport.NewWSHandler(quizService, boardService)
	apiHandler := transport.NewAPIHandler(quizService, boardService)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws/quiz", wsHandler.ServeQuiz)
	apiHandler.Register(mux)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting quiz service on :%s", finalPort)
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

// sampleQuestions provides a minimal bank so the server runs without a
// database; point Postgres at a seeded questions table in production.
func sampleQuestions() []domain.Question {
	return []domain.Question{
		{
			ID:            1,
			Text:          "Who composed the Ramayana?",
			OptionA:       "Valmiki",
			OptionB:       "Vyasa",
			OptionC:       "Kalidasa",
			OptionD:       "Tulsidas",
			CorrectOption: "a",
			Category:      "Epics",
			Difficulty:    1,
		},
		{
			ID:            2,
			Text:          "How many chapters does the Bhagavad Gita contain?",
			OptionA:       "12",
			OptionB:       "16",
			OptionC:       "18",
			OptionD:       "24",
			CorrectOption: "c",
			Category:      "Scriptures",
			Difficulty:    2,
		},
		{
			ID:            3,
			Text:          "Which Veda is the oldest?",
			OptionA:       "Yajurveda",
			OptionB:       "Rigveda",
			OptionC:       "Samaveda",
			OptionD:       "Atharvaveda",
			CorrectOption: "b",
			Category:      "Vedas",
			Difficulty:    1,
		},
	}
}
