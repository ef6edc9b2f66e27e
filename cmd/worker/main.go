// The worker process runs the background loops: the dispatcher that drains
// due sends and the reply sender sweep. It shares the database with the API
// server; coordination happens through re-checked preconditions and claimed
// jobs, never shared memory.
package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ignite/outreach-engine/internal/config"
	"github.com/ignite/outreach-engine/internal/content"
	"github.com/ignite/outreach-engine/internal/mailer"
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
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Printf("Redis unavailable (%v), running on timers only", err)
			redisClient = nil
		}
	}

	store := outreach.NewStore(db)
	guard := suppression.NewGuard(store)
	gate := sequence.NewGate(store, guard)

	var gen content.Generator
	if cfg.Bedrock.Enabled {
		gen, err = content.NewBedrockGenerator(ctx, cfg.Bedrock, cfg.Sender)
		if err != nil {
			log.Fatalf("Failed to initialize Bedrock generator: %v", err)
		}
	} else {
		log.Println("Bedrock disabled, using template content generator")
		gen = content.NewTemplateGenerator(cfg.Sender)
	}

	transport, err := mailer.NewSESTransport(ctx, cfg.SES.AccessKey, cfg.SES.SecretKey, cfg.SES.Region)
	if err != nil {
		log.Fatalf("Failed to initialize SES transport: %v", err)
	}

	listener := worker.NewKickListener(redisClient)
	listener.Start()

	dispatcher := worker.NewDispatcher(store, gate, gen, transport,
		cfg.Sender, cfg.Sending, listener.Dispatch)
	dispatcher.Start()

	replySender := worker.NewReplySender(store, transport, cfg.Sender,
		cfg.AutoReply.SweepMinutes, listener.Replies)
	replySender.Start()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("Shutting down workers...")
	dispatcher.Stop()
	replySender.Stop()
	listener.Stop()
	log.Println("Workers stopped")
}
