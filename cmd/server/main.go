package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ignite/outreach-engine/internal/api"
	"github.com/ignite/outreach-engine/internal/config"
	"github.com/ignite/outreach-engine/internal/content"
	"github.com/ignite/outreach-engine/internal/outreach"
	"github.com/ignite/outreach-engine/internal/sequence"
	"github.com/ignite/outreach-engine/internal/suppression"
	"github.com/ignite/outreach-engine/internal/worker"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.LoadFromEnv(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Database.URL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Printf("Redis unavailable (%v), kicks disabled", err)
			redisClient = nil
		}
	}

	store := outreach.NewStore(db)
	guard := suppression.NewGuard(store)
	generator := sequence.NewGenerator(store, guard)
	kicker := worker.NewKicker(redisClient)

	gen, err := buildContentGenerator(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize content generator: %v", err)
	}
	processor := worker.NewReplyProcessor(store, guard, gen, cfg.AutoReply)

	handlers := api.NewHandlers(store, guard, generator, processor, kicker, redisClient, cfg)
	server := api.NewServer(handlers)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	go func() {
		log.Printf("API server listening on %s", addr)
		if err := server.ListenAndServe(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
	log.Println("Server stopped")
}

// buildContentGenerator picks the Bedrock-backed generator when enabled,
// falling back to deterministic template rendering otherwise.
func buildContentGenerator(ctx context.Context, cfg *config.Config) (content.Generator, error) {
	if cfg.Bedrock.Enabled {
		return content.NewBedrockGenerator(ctx, cfg.Bedrock, cfg.Sender)
	}
	log.Println("Bedrock disabled, using template content generator")
	return content.NewTemplateGenerator(cfg.Sender), nil
}
