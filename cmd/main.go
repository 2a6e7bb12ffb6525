package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"garagist/internal/ai"
	"garagist/internal/cars"
	"garagist/internal/chat"
	"garagist/internal/classifier"
	"garagist/internal/complaints"
	"garagist/internal/config"
	"garagist/internal/customers"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	zl, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer zl.Sync()
	logger := zl.Sugar()

	// --- DB ---
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Fatalw("db open error", "err", err)
	}
	defer db.Close()

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		logger.Fatalw("db ping error", "err", err)
	}

	// --- Classifier ---
	var clf *classifier.Classifier
	if cfg.ClassifierRulesPath != "" {
		clf, err = classifier.NewFromFile(cfg.ClassifierRulesPath)
	} else {
		clf, err = classifier.New()
	}
	if err != nil {
		logger.Fatalw("classifier rules error", "err", err)
	}

	// --- Model client ---
	model := ai.NewOpenAIClient(ai.Config{
		APIKey:      cfg.OpenAIAPIKey,
		BaseURL:     cfg.OpenAIBaseURL,
		Model:       cfg.OpenAIModel,
		Temperature: cfg.OpenAITemperature,
		MaxTokens:   cfg.OpenAIMaxTokens,
	})
	if !model.Available() {
		logger.Warnw("no OPENAI_API_KEY set, mechanic responses will be degraded")
	}

	// --- Router ---
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	// --- Module wiring ---
	customerRepo := customers.NewRepo(db)
	carRepo := cars.NewRepo(db)
	complaintRepo := complaints.NewRepo(db)
	chatRepo := chat.NewRepo(db)

	complaintService := complaints.NewService(complaintRepo, clf, logger)

	aggregator := chat.NewAggregator(carRepo, complaintRepo, chatRepo)
	relay := chat.NewRelay(model, chatRepo, logger)
	chatService := chat.NewService(chatRepo, aggregator, relay, complaintRepo, carRepo, logger)

	customers.RegisterRoutes(r, customers.NewHandler(customerRepo, logger))
	cars.RegisterRoutes(r, cars.NewHandler(carRepo, logger))
	complaints.RegisterRoutes(r, complaints.NewHandler(complaintService, complaintRepo, logger))
	chat.RegisterRoutes(r, chat.NewHandler(chatService, logger))

	// --- health ---
	r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong"))
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infow("listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Fatalw("server error", "err", err)
	}
}
