package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/redis/go-redis/v9"

	"github.com/example/game-economy/internal/api"
	"github.com/example/game-economy/internal/config"
	"github.com/example/game-economy/internal/entity"
	"github.com/example/game-economy/internal/inventory"
	"github.com/example/game-economy/internal/messaging"
	"github.com/example/game-economy/internal/messaging/kafka"
	"github.com/example/game-economy/internal/repository"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[Inventory] %v", err)
	}

	log.Printf("[Inventory] Store backend: %s", cfg.Store.Backend)
	log.Printf("[Inventory] Kafka: %v topic=%s group=%s", cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.Group)

	items, err := newRepository[*entity.InventoryItem](ctx, cfg, cfg.Store.InventoryTable)
	if err != nil {
		log.Fatalf("[Inventory] Failed to initialize store: %v", err)
	}
	refs, err := newRepository[*entity.CatalogItemRef](ctx, cfg, cfg.Store.ReplicaTable)
	if err != nil {
		log.Fatalf("[Inventory] Failed to initialize store: %v", err)
	}

	deduper, err := newDeduper(ctx, cfg)
	if err != nil {
		log.Fatalf("[Inventory] Failed to connect to redis: %v", err)
	}

	svc := inventory.NewService(items, refs)
	projector := inventory.NewProjector(refs, deduper)

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.Group)
	defer consumer.Close()

	go func() {
		log.Println("[Inventory] Starting catalog event consumer...")
		if err := consumer.Consume(ctx, projector.HandleMessage); err != nil {
			if ctx.Err() == nil {
				log.Printf("[Inventory] Consumer error: %v", err)
			}
		}
	}()

	handlers := api.NewInventoryHandlers(svc)
	router := api.NewInventoryRouter(handlers)

	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Printf("[Inventory] Server started on %s", server.Addr)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("[Inventory] Server error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[Inventory] Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	_ = server.Shutdown(shutdownCtx)
}

// newDeduper prefers Redis so replicas of this service share one set of
// processed event ids; without Redis, dedup is process-local and the
// projector's idempotence covers cross-instance duplicates.
func newDeduper(ctx context.Context, cfg *config.Config) (messaging.Deduper, error) {
	if cfg.Redis.Addr == "" {
		log.Println("[Inventory] REDIS_ADDR not set, using in-process event dedup")
		return messaging.NewMemoryDeduper(), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, err
	}
	return messaging.NewRedisDeduper(client), nil
}

// newRepository builds the configured document store backend for one
// entity type.
func newRepository[E entity.Entity](ctx context.Context, cfg *config.Config, table string) (repository.Repository[E], error) {
	switch cfg.Store.Backend {
	case "memory":
		return repository.NewMemory[E](), nil
	case "postgres":
		db, err := openPostgres(cfg)
		if err != nil {
			return nil, err
		}
		return repository.NewPostgres[E](db, table)
	case "dynamo":
		client, err := newDynamoClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return repository.NewDynamo[E](client, table), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

var pgDB *sql.DB

func openPostgres(cfg *config.Config) (*sql.DB, error) {
	if pgDB != nil {
		return pgDB, nil
	}
	db, err := repository.ConnectPostgres(cfg.Store.PostgresURL)
	if err != nil {
		return nil, err
	}
	pgDB = db
	return db, nil
}

var dynClient *dynamodb.Client

func newDynamoClient(ctx context.Context, cfg *config.Config) (*dynamodb.Client, error) {
	if dynClient != nil {
		return dynClient, nil
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Store.DynamoRegion))
	if err != nil {
		return nil, err
	}
	dynClient = dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Store.DynamoEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Store.DynamoEndpoint)
		}
	})
	return dynClient, nil
}
