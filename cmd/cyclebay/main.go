package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/tarman-2563/CycleBay/internal/app/services/auth"
	chatsvc "github.com/tarman-2563/CycleBay/internal/app/services/chat"
	domainauth "github.com/tarman-2563/CycleBay/internal/domain/auth"
	"github.com/tarman-2563/CycleBay/internal/domain/catalog"
	domainuser "github.com/tarman-2563/CycleBay/internal/domain/user"
	"github.com/tarman-2563/CycleBay/internal/infra/broker/kafka"
	"github.com/tarman-2563/CycleBay/internal/infra/config"
	mongodb "github.com/tarman-2563/CycleBay/internal/infra/db/mongo"
	ginserver "github.com/tarman-2563/CycleBay/internal/infra/http/gin"
	"github.com/tarman-2563/CycleBay/internal/infra/obs"
	"github.com/tarman-2563/CycleBay/internal/infra/security"
	"github.com/tarman-2563/CycleBay/internal/infra/storage/memory"
	"github.com/tarman-2563/CycleBay/internal/infra/ws"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env := getenv("APP_ENV", "dev")
	logger := obs.NewLogger(env)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("configuration invalid", "error", err)
		os.Exit(1)
	}

	app, err := buildApplication(ctx, cfg, logger)
	if err != nil {
		logger.Error("application bootstrap failed", "error", err)
		os.Exit(1)
	}
	defer app.close(logger)

	go app.hub.Run(ctx)

	if cfg.StorageMode == config.StorageMemory {
		if err := app.loadFixtures(ctx, cfg, logger); err != nil {
			logger.Warn("fixtures load failed", "error", err)
		}
	}

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{
		Ready: app.ready,
	}, app.handlers)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "storage", cfg.StorageMode)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("HTTP server stopped")
}

type application struct {
	handlers ginserver.Handlers
	hub      *ws.Hub
	auth     *auth.Service
	producer *kafka.Producer
	ready    func() error

	memListings *memory.ListingDirectory
	memUsers    *memory.UserDirectory
}

func buildApplication(ctx context.Context, cfg config.Config, logger *slog.Logger) (*application, error) {
	app := &application{
		hub:   ws.NewHub(logger, cfg.WSSendBuffer),
		ready: func() error { return nil },
	}

	sessionStore := memory.NewSessionStore()

	chatService := &chatsvc.Service{
		Broadcaster: app.hub,
		Logger:      logger,
	}

	switch cfg.StorageMode {
	case config.StorageMongo:
		client, err := mongodb.New(cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, fmt.Errorf("mongo connect: %w", err)
		}
		conversationRepo := mongodb.NewConversationRepository(client.DB)
		messageRepo := mongodb.NewMessageRepository(client.DB)
		indexCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := conversationRepo.EnsureIndexes(indexCtx); err != nil {
			return nil, fmt.Errorf("conversation indexes: %w", err)
		}
		if err := messageRepo.EnsureIndexes(indexCtx); err != nil {
			return nil, fmt.Errorf("message indexes: %w", err)
		}
		chatService.Conversations = conversationRepo
		chatService.Messages = messageRepo
		chatService.Listings = mongodb.NewListingDirectory(client.DB)
		chatService.Users = mongodb.NewUserDirectory(client.DB)
		app.ready = func() error {
			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return client.Ping(pingCtx)
		}
	default:
		app.memListings = memory.NewListingDirectory()
		app.memUsers = memory.NewUserDirectory()
		chatService.Conversations = memory.NewConversationStore()
		chatService.Messages = memory.NewMessageStore()
		chatService.Listings = app.memListings
		chatService.Users = app.memUsers
	}

	if len(cfg.KafkaBrokers) > 0 {
		producer, err := kafka.NewProducer(cfg.KafkaBrokers, nil)
		if err != nil {
			return nil, fmt.Errorf("kafka connect: %w", err)
		}
		app.producer = producer
		chatService.Events = &kafka.ChatEventPublisher{
			Producer:    producer,
			TopicPrefix: cfg.KafkaTopicPrefix,
			Logger:      logger,
		}
		logger.Info("kafka event feed enabled", "brokers", cfg.KafkaBrokers)
	}

	app.hub.Typing = chatService.Typing
	app.auth = &auth.Service{
		Sessions:   sessionStore,
		Users:      chatService.Users,
		Tokens:     security.RandomTokenGenerator{},
		SessionTTL: cfg.SessionTTL,
		Logger:     logger,
	}

	app.handlers = ginserver.Handlers{
		Chat: ginserver.ChatHandler{
			Chat:   chatService,
			Logger: logger,
		},
		Realtime: ginserver.RealtimeHandler{
			Hub:    app.hub,
			Logger: logger,
		}.Serve,
		AuthMiddleware: ginserver.AuthMiddleware{
			Service: app.auth,
			Logger:  logger,
		}.Handle,
	}
	return app, nil
}

func (a *application) close(logger *slog.Logger) {
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			logger.Warn("kafka producer close failed", "error", err)
		}
	}
}

type listingFixture struct {
	ID      string `json:"id"`
	OwnerID string `json:"ownerId"`
	Name    string `json:"name"`
	Image   string `json:"image"`
	Price   int64  `json:"price"`
}

type userFixture struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Token string `json:"token"`
}

// loadFixtures fills the in-memory directories so memory mode is usable out
// of the box. User fixtures may carry a static dev token which is seeded as
// a session.
func (a *application) loadFixtures(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	if a.memListings == nil || a.memUsers == nil {
		return nil
	}

	listingPath := cfg.ListingFixtures
	if listingPath == "" {
		listingPath = filepath.Join("data", "listings.json")
	}
	var listingFixtures []listingFixture
	if err := readFixtureFile(listingPath, &listingFixtures, logger); err != nil {
		return err
	}
	for _, fx := range listingFixtures {
		a.memListings.Put(catalog.Listing{
			ID:      catalog.ListingID(fx.ID),
			OwnerID: domainuser.ID(fx.OwnerID),
			Name:    fx.Name,
			Image:   fx.Image,
			Price:   fx.Price,
		})
	}
	if len(listingFixtures) > 0 {
		logger.Info("listing fixtures imported", "count", len(listingFixtures))
	}

	userPath := cfg.UserFixtures
	if userPath == "" {
		userPath = filepath.Join("data", "users.json")
	}
	var userFixtures []userFixture
	if err := readFixtureFile(userPath, &userFixtures, logger); err != nil {
		return err
	}
	for _, fx := range userFixtures {
		a.memUsers.Put(domainuser.Summary{
			ID:    domainuser.ID(fx.ID),
			Name:  fx.Name,
			Email: fx.Email,
		})
		if fx.Token == "" {
			continue
		}
		session, err := domainauth.NewSession(domainauth.CreateSessionParams{
			Token:  domainauth.Token(fx.Token),
			UserID: domainuser.ID(fx.ID),
			TTL:    cfg.SessionTTL,
			Now:    time.Now(),
		})
		if err != nil {
			logger.Warn("fixture session invalid", "user_id", fx.ID, "error", err)
			continue
		}
		if err := a.auth.Sessions.Save(ctx, session); err != nil {
			logger.Warn("fixture session save failed", "user_id", fx.ID, "error", err)
		}
	}
	if len(userFixtures) > 0 {
		logger.Info("user fixtures imported", "count", len(userFixtures))
	}
	return nil
}

func readFixtureFile(path string, target any, logger *slog.Logger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("fixtures file not found, skipping", "path", path)
			return nil
		}
		return fmt.Errorf("read fixtures: %w", err)
	}
	if len(data) == 0 {
		logger.Warn("fixtures file empty", "path", path)
		return nil
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("decode fixtures %s: %w", path, err)
	}
	return nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
