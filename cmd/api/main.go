package main

import (
	"context"
	"log"
	"net/http"

	"github.com/rs/cors"

	"inboxpilot-backend/internal/ai"
	"inboxpilot-backend/internal/auth"
	"inboxpilot-backend/internal/config"
	"inboxpilot-backend/internal/dedup"
	"inboxpilot-backend/internal/inference"
	"inboxpilot-backend/internal/ingest"
	"inboxpilot-backend/internal/kv"
	"inboxpilot-backend/internal/metrics"
	"inboxpilot-backend/internal/pipeline"
	"inboxpilot-backend/internal/proposals"
	"inboxpilot-backend/internal/ratelimit"
	"inboxpilot-backend/internal/settings"
	"inboxpilot-backend/internal/webhook"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	store, cleanup := openStore(cfg)
	defer cleanup()

	gemini, err := ai.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		log.Fatal("❌ Failed to init Gemini client:", err)
	}

	proposalStore := proposals.NewStore(store)
	recorder := metrics.NewRecorder(store)
	settingsSvc := settings.New(store)

	pipe := &pipeline.Pipeline{
		Limiter:       ratelimit.New(store),
		Dedup:         dedup.New(store),
		Inferrer:      inference.New(gemini),
		Proposals:     proposalStore,
		Metrics:       recorder,
		AssistantName: cfg.AssistantName,
	}

	verifier := webhook.NewVerifier(cfg.WebhookSecret, cfg.Production())
	guard := auth.New([]byte(cfg.JWTSecret))

	mux := http.NewServeMux()

	// Health endpoint
	mux.HandleFunc("GET /health", webhook.HealthHandler())

	// ----- WEBHOOK INGRESS -----
	mux.HandleFunc("POST /api/webhooks/composio", webhook.Handler(verifier, pipe))

	// ----- PROPOSALS API -----
	mux.HandleFunc("GET /api/proposals", guard.Wrap(proposals.ListHandler(proposalStore)))
	mux.HandleFunc("DELETE /api/proposals/{id}", guard.Wrap(proposals.RemoveHandler(proposalStore)))

	// ----- SETTINGS API -----
	mux.HandleFunc("/api/settings/notion-database", guard.Wrap(settings.NotionDatabaseHandler(settingsSvc)))
	mux.HandleFunc("GET /api/triggers", guard.Wrap(settings.ListTriggersHandler(settingsSvc)))
	mux.HandleFunc("POST /api/triggers", guard.Wrap(settings.AddTriggerHandler(settingsSvc)))
	mux.HandleFunc("DELETE /api/triggers/{id}", guard.Wrap(settings.RemoveTriggerHandler(settingsSvc)))

	// ----- STATS API -----
	mux.HandleFunc("GET /api/stats", guard.Wrap(metrics.StatsHandler(recorder)))

	// Optional AMQP trigger-stream ingress
	if cfg.AMQPUrl != "" {
		consumer := &ingest.Consumer{URL: cfg.AMQPUrl, Queue: cfg.AMQPQueue, Pipe: pipe}
		go func() {
			if err := consumer.Run(ctx); err != nil {
				log.Printf("[WARN] AMQP consumer stopped: %v", err)
			}
		}()
	}

	// CORS
	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Entity-Id"},
		AllowCredentials: true,
	})

	handler := c.Handler(mux)

	log.Println("🚀 API server is running on :" + cfg.Port)
	log.Fatal(http.ListenAndServe(":"+cfg.Port, handler))
}

// openStore connects to Postgres when configured and falls back to the
// in-memory store for storage-free development runs.
func openStore(cfg *config.Config) (kv.Store, func()) {
	if cfg.DBHost == "" {
		log.Println("[WARN] DB_HOST not set, using in-memory store (state is lost on restart)")
		return kv.NewMemory(), func() {}
	}

	pg, err := kv.Connect(cfg.ConnString())
	if err != nil {
		log.Fatal("❌ Failed to connect DB:", err)
	}
	log.Println("✅ Connected to PostgreSQL!")
	return pg, func() { _ = pg.Close() }
}

func allowedOrigins(cfg *config.Config) []string {
	if cfg.FrontendURL != "" {
		return []string{cfg.FrontendURL}
	}
	return []string{"*"}
}
