/**
 * @description
 * This is the main entry point for the ledger-service. It is responsible for
 * initializing all components of the service, including configuration, the
 * database connection, the payment gateway client, the message broker, the
 * repository, the core application service, the cron scheduler and the HTTP
 * server. It wires everything together and starts the service.
 *
 * Commands:
 * - serve (default): run the HTTP API and the scheduler.
 * - migrate: apply the embedded Postgres schema and exit.
 *
 * @dependencies
 * - github.com/urfave/cli/v2: Command-line entry point.
 * - github.com/jackc/pgx/v5: PostgreSQL driver.
 * - github.com/redis/go-redis/v9: Optional view rate limiting.
 * - internal/api, internal/app, internal/config, internal/store: Internal packages for the service.
 * - pkg/razorpay, pkg/rabbitmq: Clients for the payment gateway and RabbitMQ.
 */

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
	"github.com/urfave/cli/v2"
	"github.com/viewcoin/ledger-service/internal/api"
	"github.com/viewcoin/ledger-service/internal/app"
	"github.com/viewcoin/ledger-service/internal/config"
	"github.com/viewcoin/ledger-service/internal/domain"
	"github.com/viewcoin/ledger-service/internal/logging"
	"github.com/viewcoin/ledger-service/internal/metrics"
	"github.com/viewcoin/ledger-service/internal/store"
	"github.com/viewcoin/ledger-service/pkg/rabbitmq"
	"github.com/viewcoin/ledger-service/pkg/razorpay"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := newApp().Run(os.Args); err != nil {
		logger := logging.Component("bootstrap")
		logger.Fatal().Err(err).Msg("ledger-service exited with error")
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "ledger-service",
		Usage: "coin ledger, campaign budgets and withdrawals for the viewcoin platform",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config-path", Aliases: []string{"c"}, Value: ".", Usage: "Directory holding an optional .env file"},
			&cli.StringFlag{Name: "port", Aliases: []string{"p"}, Usage: "HTTP port (overrides SERVER_PORT)"},
			&cli.StringFlag{Name: "store", Aliases: []string{"s"}, Usage: "Store driver: postgres or memory (overrides STORE_DRIVER)"},
		},
		Action: serve,
		Commands: []*cli.Command{
			{Name: "serve", Usage: "Run the HTTP API and scheduled jobs", Action: serve},
			{Name: "migrate", Usage: "Apply the database schema and exit", Action: migrate},
		},
	}
}

// loadConfig applies flag overrides through the environment so viper sees a single source.
func loadConfig(c *cli.Context) (config.Config, error) {
	if port := c.String("port"); port != "" {
		os.Setenv("SERVER_PORT", port)
		os.Unsetenv("PORT")
	}
	if driver := c.String("store"); driver != "" {
		os.Setenv("STORE_DRIVER", driver)
	}
	cfg, err := config.LoadConfig(c.String("config-path"))
	if err != nil {
		return cfg, fmt.Errorf("config load failed: %w", err)
	}
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	return cfg, nil
}

func connectPostgres(ctx context.Context, cfg config.Config) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("database url parse failed: %w", err)
	}
	poolConfig.MaxConns = cfg.DBMaxConns
	poolConfig.MinConns = cfg.DBMinConns
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute
	// Disable prepared statement caching so the service works behind pgbouncer.
	poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	return pool, nil
}

func migrate(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if cfg.StoreDriver != config.StoreDriverPostgres {
		return errors.New("migrate requires STORE_DRIVER=postgres")
	}
	logger := logging.Component("bootstrap")

	pool, err := connectPostgres(c.Context, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := store.ApplySchema(c.Context, pool); err != nil {
		return err
	}
	logger.Info().Msg("database schema applied")
	return nil
}

// connectRedis returns nil when the view limit is off or Redis is unusable; throttling then stays disabled.
func connectRedis(cfg config.Config, logger zerolog.Logger) *redis.Client {
	if cfg.ViewRateLimitPerMinute <= 0 {
		return nil
	}
	if strings.TrimSpace(cfg.RedisURL) == "" {
		logger.Warn().Str("env", "REDIS_URL").Msg("redis url missing; view rate limiting disabled")
		return nil
	}
	redisOptions, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Warn().Err(err).Msg("redis url parse failed; view rate limiting disabled")
		return nil
	}
	client := redis.NewClient(redisOptions)
	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn().Err(err).Msg("redis ping failed; view rate limiting disabled")
		client.Close()
		return nil
	}
	logger.Info().Msg("redis connected")
	return client
}

func serve(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	logger := logging.Component("bootstrap")
	logger.Info().Str("port", cfg.ServerPort).Str("store", cfg.StoreDriver).Msg("starting ledger-service")

	// Initialize the data access layer (repository).
	var repository store.Repository
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		logger.Warn().Msg("using in-memory store; data is lost on restart")
		repository = store.NewMemoryRepository()
	default:
		pool, err := connectPostgres(c.Context, cfg)
		if err != nil {
			return err
		}
		defer pool.Close()
		logger.Info().Msg("database connected")
		repository = store.NewPostgresRepository(pool)
	}

	var publisher rabbitmq.Publisher = &rabbitmq.EventProducerFallback{}
	if strings.TrimSpace(cfg.RabbitMQURL) == "" {
		logger.Warn().Str("env", "RABBITMQ_URL").Msg("rabbitmq url missing; ledger events disabled")
	} else if producer, err := rabbitmq.NewEventProducer(cfg.RabbitMQURL, cfg.LedgerEventsExchange); err != nil {
		logger.Warn().Err(err).Msg("rabbitmq producer unavailable; using fallback")
	} else {
		publisher = producer
		logger.Info().Str("exchange", cfg.LedgerEventsExchange).Msg("rabbitmq producer connected")
	}
	defer publisher.Close()

	if strings.TrimSpace(cfg.RabbitMQURL) != "" {
		userConsumer := app.NewUserRegistrationConsumer(repository, logging.Component("user_consumer"))
		consumer, err := rabbitmq.NewConsumer(cfg.RabbitMQURL)
		if err != nil {
			logger.Warn().Err(err).Msg("rabbitmq consumer unavailable; user registrations will not be provisioned")
		} else {
			defer consumer.Close()
			err = consumer.ConsumeWithBindings(cfg.IdentityEventsExchange, cfg.UserEventsQueue, map[string]rabbitmq.Handler{
				domain.EventUserRegistered: userConsumer.HandleMessage,
			})
			if err != nil {
				logger.Warn().Err(err).Msg("failed to bind user registration queue")
			} else {
				logger.Info().Str("queue", cfg.UserEventsQueue).Msg("listening for user registrations")
			}
		}
	}

	gateway := razorpay.NewClient(razorpay.Config{
		BaseURL:   cfg.RazorpayAPIBaseURL,
		KeyID:     cfg.RazorpayKeyID,
		KeySecret: cfg.RazorpayKeySecret,
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.GatewayCircuitState.WithLabelValues(name).Set(float64(to))
		},
	})
	if cfg.RazorpayKeyID == "" || cfg.RazorpayKeySecret == "" {
		logger.Warn().Msg("razorpay credentials missing; recharge and subscription payments will fail")
	}

	opts := app.Options{
		GatewayKeyID:           cfg.RazorpayKeyID,
		ViewRateLimitPerMinute: cfg.ViewRateLimitPerMinute,
	}
	if redisClient := connectRedis(cfg, logger); redisClient != nil {
		defer redisClient.Close()
		opts.ViewLimiter = app.NewRedisViewRateLimiter(redisClient, cfg.RedisRateLimitPrefix)
	}

	// Initialize the core application service with its dependencies.
	ledgerService := app.NewService(repository, gateway, publisher, opts)

	scheduler := app.NewScheduler(app.NewJobs(repository, logging.Component("jobs")), logging.Component("scheduler"), cfg.SubscriptionExpirySchedule)
	if err := scheduler.Start(); err != nil {
		return fmt.Errorf("scheduler start failed: %w", err)
	}

	router := api.LedgerRoutes(api.NewLedgerHandlers(ledgerService), api.RouterConfig{
		Auth:                  api.AuthConfig{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer},
		AllowedOrigins:        cfg.AllowedOrigins(),
		APIRateLimitPerMinute: cfg.APIRateLimitPerMinute,
	})

	serverAddr := fmt.Sprintf(":%s", cfg.ServerPort)
	server := &http.Server{
		Addr:              serverAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", serverAddr).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-stop:
		logger.Info().Str("signal", sig.String()).Msg("shutdown started")
	case err := <-serverErr:
		logger.Error().Err(err).Msg("server stopped unexpectedly")
		<-scheduler.Stop().Done()
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("shutdown failed")
	}
	select {
	case <-scheduler.Stop().Done():
	case <-ctx.Done():
		logger.Warn().Msg("scheduled job still running at shutdown")
	}

	logger.Info().Msg("shutdown complete")
	return nil
}
