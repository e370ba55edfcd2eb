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

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/example/game-economy/internal/api"
	"github.com/example/game-economy/internal/auth"
	"github.com/example/game-economy/internal/catalog"
	"github.com/example/game-economy/internal/config"
	"github.com/example/game-economy/internal/entity"
	"github.com/example/game-economy/internal/messaging/kafka"
	"github.com/example/game-economy/internal/repository"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[Catalog] %v", err)
	}
	if cfg.Auth.JWTSecret == "" {
		log.Fatal("[Catalog] JWT_SECRET environment variable is required")
	}
	if len(cfg.Auth.JWTSecret) < 32 {
		log.Fatal("[Catalog] JWT_SECRET must be at least 32 characters long")
	}
	if cfg.Auth.AdminPassword == "" {
		log.Fatal("[Catalog] ADMIN_PASSWORD environment variable is required")
	}
	adminHash, err := auth.HashPassword(cfg.Auth.AdminPassword)
	if err != nil {
		log.Fatalf("[Catalog] Failed to hash admin password: %v", err)
	}

	log.Printf("[Catalog] Store backend: %s", cfg.Store.Backend)
	log.Printf("[Catalog] Kafka: %v topic=%s", cfg.Kafka.Brokers, cfg.Kafka.Topic)

	producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	defer producer.Close()

	items, err := newRepository[*entity.CatalogItem](ctx, cfg, cfg.Store.CatalogTable)
	if err != nil {
		log.Fatalf("[Catalog] Failed to initialize store: %v", err)
	}

	svc := catalog.NewService(items, producer)
	tokens := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenExpiry)
	handlers := api.NewCatalogHandlers(svc, tokens, cfg.Auth.AdminUser, adminHash)
	router := api.NewCatalogRouter(handlers, tokens)

	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Printf("[Catalog] Server started on %s", server.Addr)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("[Catalog] Server error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[Catalog] Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
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

func newDynamoClient(ctx context.Context, cfg *config.Config) (*dynamodb.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Store.DynamoRegion))
	if err != nil {
		return nil, err
	}
	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Store.DynamoEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Store.DynamoEndpoint)
		}
	}), nil
}
