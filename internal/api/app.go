package api

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/idfs-labs/starguide/internal/achievements"
	"github.com/idfs-labs/starguide/internal/analytics"
	"github.com/idfs-labs/starguide/internal/arena"
	"github.com/idfs-labs/starguide/internal/auth"
	"github.com/idfs-labs/starguide/internal/config"
	"github.com/idfs-labs/starguide/internal/content"
	"github.com/idfs-labs/starguide/internal/domain"
	"github.com/idfs-labs/starguide/internal/events"
	"github.com/idfs-labs/starguide/internal/groups"
	"github.com/idfs-labs/starguide/internal/help"
	"github.com/idfs-labs/starguide/internal/leaderboard"
	"github.com/idfs-labs/starguide/internal/llm"
	"github.com/idfs-labs/starguide/internal/progress"
	"github.com/idfs-labs/starguide/internal/tutor"
)

// App holds all application dependencies
type App struct {
	Config *config.Config
	DB     *pgxpool.Pool
	Redis  *redis.Client

	Queue         *events.Connection
	Producer      *events.Producer
	Consumer      *events.Consumer
	Notifications *events.NotificationConsumer

	Auth         *auth.Service
	Progress     *progress.Service
	Content      *content.Service
	Generator    *content.Generator
	Groups       *groups.Service
	Help         *help.Service
	Leaderboard  *leaderboard.Store
	Analytics    *analytics.Service
	Achievements *achievements.Service
	Tutor        *tutor.Service
	Arena        *arena.Coordinator
	LLM          *llm.Router
}

// NewApp creates a new application instance with all dependencies wired
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	app := &App{Config: cfg}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	app.DB = pool

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	app.Redis = redis.NewClient(redisOpts)

	app.Queue, err = events.NewConnection(cfg.RabbitMQURL)
	if err != nil {
		pool.Close()
		app.Redis.Close()
		return nil, fmt.Errorf("connect rabbitmq: %w", err)
	}
	app.Producer = events.NewProducer(app.Queue)
	app.Notifications = events.NewNotificationConsumer(app.Queue)

	// Auth
	authRepo := auth.NewPostgresRepository(pool)
	tokens := auth.NewTokenManager(cfg.JWTSecret, time.Duration(cfg.TokenMaxAge)*time.Second)
	app.Auth = auth.NewService(authRepo, tokens)

	// Leaderboard and user progress
	progressRepo := progress.NewPostgresRepository(pool)
	resolver := &userNameResolver{pool: pool}
	app.Leaderboard = leaderboard.NewStore(app.Redis, resolver, resolver, logger)
	app.Progress = progress.NewService(progressRepo, app.Leaderboard, app.Producer, logger)

	// Content
	contentRepo := content.NewPostgresRepository(pool)
	contentCache := content.NewCachedLister(contentRepo, time.Duration(cfg.CacheTTLSec)*time.Second)
	app.Content = content.NewService(contentRepo, contentCache, app.Progress, app.Producer, logger)

	// Groups and the help queue
	app.Groups = groups.NewService(groups.NewPostgresRepository(pool), logger)
	app.Help = help.NewService(help.NewPostgresRepository(pool), logger)

	// Analytics and achievements share the event stream: the consumer
	// aggregates each event, then checks it for badge awards.
	app.Analytics = analytics.NewService(analytics.NewPostgresRepository(pool), logger)
	app.Achievements = achievements.NewService(achievements.NewPostgresRepository(pool), logger)
	app.Consumer = events.NewConsumer(app.Queue, func(ctx context.Context, event *domain.Event) error {
		if err := app.Analytics.HandleEvent(ctx, event); err != nil {
			return err
		}
		return app.Achievements.HandleEvent(ctx, event)
	}, events.DefaultConsumerConfig())

	// AI tutor and question generation
	registry := llm.NewRegistry()
	initLLMProviders(registry, cfg, logger)
	app.LLM = llm.NewRouter(registry, cfg.DefaultModel, logger)
	app.Tutor = tutor.NewService(app.LLM, tutor.NewPostgresRepository(pool), app.Progress, app.Producer, logger)
	if len(registry.List()) > 0 {
		app.Generator = content.NewGenerator(app.LLM, contentRepo, contentCache, logger)
	}

	// Quiz rooms run against the cached question bank
	app.Arena = arena.NewCoordinator(contentCache, logger)

	return app, nil
}

// Start launches the background queue consumers.
func (a *App) Start(ctx context.Context) error {
	if err := a.Consumer.Start(ctx); err != nil {
		return fmt.Errorf("start event consumer: %w", err)
	}
	if err := a.Notifications.Start(ctx); err != nil {
		return fmt.Errorf("start notification consumer: %w", err)
	}
	return nil
}

// initLLMProviders registers every provider with a configured API key,
// each wrapped in the resilience stack.
func initLLMProviders(registry *llm.Registry, cfg *config.Config, logger *slog.Logger) {
	resilience := llm.DefaultResilientConfig()
	resilience.MaxAttempts = cfg.LLMMaxRetries
	resilience.CircuitFailures = cfg.LLMCircuitFailures
	resilience.CallTimeout = time.Duration(cfg.LLMTimeout) * time.Second
	resilience.Logger = logger

	register := func(name string, provider llm.Provider) {
		registry.Register(name, llm.NewResilientProvider(provider, resilience))
		if registry.DefaultName() == "" {
			registry.SetDefault(name)
		}
		logger.Info("registered LLM provider", "provider", name)
	}

	if cfg.AnthropicAPIKey != "" {
		register("anthropic", llm.NewAnthropicProvider(llm.AnthropicConfig{
			APIKey: cfg.AnthropicAPIKey,
		}))
	}
	if cfg.OpenAIAPIKey != "" {
		register("openai", llm.NewOpenAIProvider(llm.OpenAIConfig{
			APIKey: cfg.OpenAIAPIKey,
		}))
	}
	if cfg.GoogleAPIKey != "" {
		register("google", llm.NewGeminiProvider(llm.GeminiConfig{
			APIKey: cfg.GoogleAPIKey,
		}))
	}

	if len(registry.List()) == 0 {
		logger.Warn("no LLM provider configured, chat requests will be degraded")
	}
}

// Close cleans up application resources
func (a *App) Close() error {
	if a.Consumer != nil {
		a.Consumer.Stop()
	}
	if a.Notifications != nil {
		a.Notifications.Stop()
	}
	if a.Queue != nil {
		a.Queue.Close()
	}
	if a.Redis != nil {
		a.Redis.Close()
	}
	if a.DB != nil {
		a.DB.Close()
	}
	return nil
}
