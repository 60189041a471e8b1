/**
 * @description
 * This is the main entry point for the wallet-service. It loads configuration, opens the
 * ledger store, the idempotency store and the bank connection, starts the HTTP API, the
 * user event consumer and the intent reconciliation scheduler, and shuts them down
 * gracefully on SIGINT/SIGTERM.
 *
 * @dependencies
 * - github.com/joho/godotenv: Loads a local .env file for development.
 * - github.com/jackc/pgx/v5: PostgreSQL driver and pool.
 * - internal/api, internal/app, internal/banksim, internal/config, internal/store: Service packages.
 * - pkg/bankclient, pkg/kvstore, pkg/rabbitmq: Infrastructure clients.
 */

package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/transfa/wallet-service/internal/api"
	"github.com/transfa/wallet-service/internal/app"
	"github.com/transfa/wallet-service/internal/banksim"
	"github.com/transfa/wallet-service/internal/config"
	"github.com/transfa/wallet-service/internal/domain"
	"github.com/transfa/wallet-service/internal/store"
	"github.com/transfa/wallet-service/pkg/bankclient"
	"github.com/transfa/wallet-service/pkg/kvstore"
	"github.com/transfa/wallet-service/pkg/rabbitmq"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("level=info component=bootstrap msg=\"no .env file found; using environment\"")
	}

	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"config load failed\" err=%v", err)
	}
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		log.Fatalf("level=fatal component=bootstrap msg=\"jwt secret must be configured\" env=JWT_SECRET")
	}
	if strings.TrimSpace(cfg.InternalAPIKey) == "" {
		log.Printf("level=warn component=bootstrap msg=\"internal api key not configured; internal routes are unauthenticated\" env=INTERNAL_API_KEY")
	}
	log.Printf("level=info component=bootstrap msg=\"starting wallet-service\" port=%s store=%s bank_mode=%s", cfg.ServerPort, cfg.StoreDriver, cfg.BankMode)

	ctx := context.Background()

	repository, closeRepository := openRepository(ctx, cfg)
	defer closeRepository()

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient = connectRedis(ctx, cfg.RedisURL)
		if redisClient != nil {
			defer redisClient.Close()
		}
	}

	var idempotency kvstore.Store = kvstore.NewMemoryStore()
	if redisClient != nil {
		idempotency = kvstore.NewRedisStore(redisClient, cfg.RedisKeyPrefix)
		log.Println("level=info component=bootstrap msg=\"using redis idempotency store\"")
	} else {
		log.Println("level=warn component=bootstrap msg=\"using in-memory idempotency store; refs do not survive restarts\"")
	}

	bank := openBank(ctx, cfg, redisClient)

	var producer rabbitmq.Publisher = &rabbitmq.EventProducerFallback{}
	if cfg.RabbitMQURL != "" {
		eventProducer, err := rabbitmq.NewEventProducer(cfg.RabbitMQURL, cfg.EventsExchange)
		if err != nil {
			log.Printf("level=warn component=bootstrap msg=\"rabbitmq producer unavailable; using fallback\" err=%v", err)
		} else {
			defer eventProducer.Close()
			producer = eventProducer
			log.Println("level=info component=bootstrap msg=\"rabbitmq producer connected\"")
		}
	}

	walletService := app.NewService(repository, bank, idempotency, producer, app.OptionsFromConfig(cfg))

	if cfg.RabbitMQURL != "" {
		consumer, err := rabbitmq.NewConsumer(cfg.RabbitMQURL)
		if err != nil {
			log.Printf("level=warn component=bootstrap msg=\"rabbitmq consumer unavailable; wallets are provisioned lazily\" err=%v", err)
		} else {
			defer consumer.Close()
			userEvents := app.NewUserEventHandler(walletService)
			bindings := map[string]rabbitmq.Handler{
				domain.RoutingKeyUserCreated: userEvents.HandleUserCreatedEvent,
			}
			if err := consumer.ConsumeWithBindings(cfg.EventsExchange, cfg.UserEventsQueue, bindings); err != nil {
				log.Fatalf("level=fatal component=bootstrap msg=\"user event consumer start failed\" err=%v", err)
			}
		}
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	scheduler := app.NewScheduler(app.NewJobs(walletService, logger), logger, cfg.IntentSweepSchedule)
	if err := scheduler.Start(); err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"scheduler start failed\" err=%v", err)
	}

	handler := api.NewHandler(walletService)
	router := api.NewRouter(handler, cfg.JWTSecret, cfg.InternalAPIKey, cfg.AllowedOrigins())

	serverAddr := fmt.Sprintf(":%s", cfg.ServerPort)
	server := &http.Server{
		Addr:              serverAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("level=info component=http msg=\"server listening\" addr=%s", serverAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("level=fatal component=http msg=\"server stopped unexpectedly\" err=%v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Println("level=info component=http msg=\"shutdown started\"")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("level=error component=http msg=\"shutdown failed\" err=%v", err)
	}
	select {
	case <-scheduler.Stop().Done():
	case <-shutdownCtx.Done():
		log.Println("level=warn component=scheduler msg=\"running job did not finish before shutdown\"")
	}

	log.Println("level=info component=http msg=\"shutdown complete\"")
}

// openRepository connects the configured ledger store. The returned func releases it.
func openRepository(ctx context.Context, cfg config.Config) (store.Repository, func()) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		log.Println("level=warn component=bootstrap msg=\"using in-memory ledger store; data does not survive restarts\"")
		return store.NewMemoryRepository(), func() {}
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"database url parse failed\" err=%v", err)
	}
	poolConfig.MaxConns = 100
	poolConfig.MinConns = 20
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute
	poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	dbpool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"database connection failed\" err=%v", err)
	}
	if err := store.RunMigrations(ctx, dbpool); err != nil {
		dbpool.Close()
		log.Fatalf("level=fatal component=bootstrap msg=\"database migrations failed\" err=%v", err)
	}
	log.Println("level=info component=bootstrap msg=\"database connected\"")
	return store.NewPostgresRepository(dbpool), dbpool.Close
}

// connectRedis returns nil when Redis is unreachable so callers fall back to memory.
func connectRedis(ctx context.Context, redisURL string) *redis.Client {
	client, err := kvstore.NewRedisClient(redisURL)
	if err != nil {
		log.Printf("level=warn component=bootstrap msg=\"redis url parse failed; falling back to memory\" err=%v", err)
		return nil
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Printf("level=warn component=bootstrap msg=\"redis ping failed; falling back to memory\" err=%v", err)
		client.Close()
		return nil
	}
	log.Println("level=info component=bootstrap msg=\"redis connected\"")
	return client
}

// openBank selects the remote simulator or an in-process one.
func openBank(ctx context.Context, cfg config.Config, redisClient *redis.Client) app.ExternalBank {
	if cfg.BankMode == config.BankModeRemote {
		log.Printf("level=info component=bootstrap msg=\"using remote bank simulator\" url=%s", cfg.BankSimURL)
		return app.NewRemoteBank(bankclient.NewClient(cfg.BankSimURL, cfg.BankSimAPIKey))
	}

	var ledger banksim.Ledger = banksim.NewMemoryLedger()
	if cfg.BankSimLedger == "redis" {
		if redisClient != nil {
			ledger = banksim.NewRedisLedger(redisClient, cfg.RedisKeyPrefix)
		} else {
			log.Println("level=warn component=bootstrap msg=\"BANK_SIM_LEDGER=redis without redis; using memory ledger\"")
		}
	}
	sim := banksim.NewSimulator(ledger, cfg.BankSimLatency(), cfg.DefaultCurrency)
	if seeds := cfg.SeedAccountNumbers(); len(seeds) > 0 {
		if err := sim.Seed(ctx, seeds); err != nil {
			log.Fatalf("level=fatal component=bootstrap msg=\"bank simulator seed failed\" err=%v", err)
		}
		log.Printf("level=info component=bootstrap msg=\"bank simulator seeded\" accounts=%d", len(seeds))
	}
	return app.NewEmbeddedBank(sim)
}
