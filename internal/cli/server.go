package cli

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hardword-service/internal/app"
	"hardword-service/internal/config"
	"hardword-service/internal/domain"
	"hardword-service/internal/infra/memory"
	pgstore "hardword-service/internal/infra/postgres"
	redisinfra "hardword-service/internal/infra/redis"
	"hardword-service/internal/realtime"
	transport "hardword-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the game server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		log.Printf("no config at %s, using defaults (in-memory mode)", configPath)
		cfg = config.Default()
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
		defer pool.Close()
	}

	var store app.Store
	if pool != nil {
		store = pgstore.NewStore(pool)
	} else {
		memStore := memory.NewStore()
		seedDemoEvent(ctx, memStore)
		store = memStore
	}

	questionTTL := config.TTLDuration(cfg.Questions.TTL, 10*time.Minute)
	var questions app.QuestionSource
	if redisClient != nil {
		questions = redisinfra.NewQuestionCache(redisClient, store, questionTTL)
	} else {
		questions = memory.NewQuestionCache(store, questionTTL)
	}

	// With Redis the broker still does local fan-out; the bus relays
	// publishes through Redis so every instance's subscribers see them.
	broker := realtime.NewBroker()
	var pub app.Publisher = broker
	if redisClient != nil {
		bus := redisinfra.NewBus(redisClient, broker)
		go func() {
			if err := bus.Run(ctx); err != nil && ctx.Err() == nil {
				log.Printf("realtime bus stopped: %v", err)
			}
		}()
		pub = bus
	}

	api := transport.NewAPI(
		app.NewEventService(store, questions, pub),
		app.NewAnswerService(store, pub, cfg.Answers.MaxAttempts),
		app.NewParticipantService(store, questions, pub),
		transport.NewWSHandler(broker),
		transport.AdminAuth{
			Username:      cfg.Admin.Username,
			Password:      cfg.Admin.Password,
			SessionSecret: cfg.Admin.SessionSecret,
		},
	)

	// Websocket connections are long-lived, so only the handshake gets a
	// read deadline.
	server := &http.Server{
		Addr:              ":" + finalPort,
		Handler:           api.Router(),
		ReadHeaderTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting hardword service on :%s", finalPort)
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

// seedDemoEvent gives the in-memory mode a ready-to-host event so the full
// flow can be exercised without an admin round-trip.
func seedDemoEvent(ctx context.Context, store *memory.Store) {
	ev := domain.Event{
		ID:                   domain.NewID(),
		Name:                 "Demo Game",
		Code:                 "DEMO42",
		Status:               domain.StatusDraft,
		CurrentQuestionIndex: -1,
		CreatedAt:            time.Now(),
	}
	if err := store.CreateEvent(ctx, &ev); err != nil {
		log.Printf("seed demo event: %v", err)
		return
	}
	seed := []struct {
		text   string
		answer string
	}{
		{"Capital of France?", "PARIS"},
		{"Largest city in the United States?", "NEW YORK"},
		{"The red planet?", "MARS"},
	}
	for i, q := range seed {
		question := domain.Question{
			ID:        domain.NewID(),
			EventID:   ev.ID,
			Text:      q.text,
			Answer:    q.answer,
			Order:     i,
			CreatedAt: time.Now(),
		}
		if err := store.AddQuestion(ctx, &question); err != nil {
			log.Printf("seed demo question: %v", err)
		}
	}
	log.Printf("seeded demo event with join code %s", ev.Code)
}
