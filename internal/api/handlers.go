// Package api exposes the HTTP surface of the outreach engine: lead and
// campaign management, campaign launch, the reply approval queue, the
// unsubscribe endpoint, and reply simulation for testing the pipeline.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/outreach-engine/internal/config"
	"github.com/ignite/outreach-engine/internal/outreach"
	"github.com/ignite/outreach-engine/internal/sequence"
	"github.com/ignite/outreach-engine/internal/suppression"
	"github.com/ignite/outreach-engine/internal/worker"
)

// Handlers holds the dependencies shared by all HTTP handlers.
type Handlers struct {
	store     *outreach.Store
	guard     *suppression.Guard
	generator *sequence.Generator
	processor *worker.ReplyProcessor
	kicker    *worker.Kicker
	redis     *redis.Client
	cfg       *config.Config
	startedAt time.Time
}

// NewHandlers creates the handler set.
func NewHandlers(store *outreach.Store, guard *suppression.Guard,
	generator *sequence.Generator, processor *worker.ReplyProcessor,
	kicker *worker.Kicker, redisClient *redis.Client, cfg *config.Config) *Handlers {
	return &Handlers{
		store:     store,
		guard:     guard,
		generator: generator,
		processor: processor,
		kicker:    kicker,
		redis:     redisClient,
		cfg:       cfg,
		startedAt: time.Now().UTC(),
	}
}

// HealthCheck reports process and dependency health.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	dbStatus := "ok"
	if err := h.store.DB().PingContext(ctx); err != nil {
		dbStatus = "error: " + err.Error()
	}

	redisStatus := "disabled"
	if h.redis != nil {
		redisStatus = "ok"
		if err := h.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "error: " + err.Error()
		}
	}

	status := http.StatusOK
	if dbStatus != "ok" {
		status = http.StatusServiceUnavailable
	}

	respondJSON(w, status, map[string]interface{}{
		"status":           statusWord(status),
		"database":         dbStatus,
		"redis":            redisStatus,
		"uptime_seconds":   int(time.Since(h.startedAt).Seconds()),
		"daily_send_limit": h.cfg.Sending.DailySendLimit,
		"auto_reply":       h.cfg.AutoReply.Enabled,
	})
}

func statusWord(status int) string {
	if status == http.StatusOK {
		return "healthy"
	}
	return "degraded"
}

// Response helpers

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// decodeBody parses a JSON request body into dst, rejecting unknown trailing
// content.
func decodeBody(r *http.Request, dst interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(dst)
}
