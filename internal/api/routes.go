// Route registration and go-chi router setup.
package api

import (
	"context"
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rentwise/rentwise/internal/api/handlers"
	"github.com/rentwise/rentwise/internal/domain/audit"
	"github.com/rentwise/rentwise/internal/domain/chat"
	"github.com/rentwise/rentwise/internal/domain/session"
	"github.com/rentwise/rentwise/internal/infra/config"
	"github.com/rentwise/rentwise/internal/infra/eventbus"
	"github.com/rentwise/rentwise/internal/infra/llm"
)

// NewRouter creates and configures the chi router with all routes and the
// full dispatch pipeline behind them. A nil db falls back to in-memory
// conversation storage with no audit trail.
func NewRouter(db *sql.DB, cfg config.Config) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check, used by load balancers and probes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`)) //nolint:errcheck
	})

	models := llm.NewRouter(map[string]llm.LLMProvider{
		llm.PurposeRouter: llm.NewOpenAIProvider(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.RouterModel, cfg.LLMTimeout),
		llm.PurposeVision: llm.NewOpenAIProvider(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.VisionModel, cfg.LLMTimeout),
		llm.PurposeFAQ:    llm.NewOpenAIProvider(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.FAQModel, cfg.LLMTimeout),
	}, llm.PurposeRouter)

	var store chat.Store
	bus := eventbus.New()
	if db != nil {
		store = session.NewSQLiteStore(db)
		recorder := audit.NewRecorder(db)
		go recorder.Run(context.Background(), bus.Subscribe(chat.TopicRouted))
	} else {
		store = session.NewMemoryStore()
	}

	dispatcher := chat.NewDispatcher(
		store,
		session.NewLocker(),
		chat.NewRouter(models),
		chat.NewIssueDetector(models),
		chat.NewFAQAgent(models),
		bus,
	)

	chatHandler := handlers.NewChatHandler(dispatcher)
	clearHandler := handlers.NewClearHandler()
	r.Post("/chat", chatHandler.Chat)
	r.Post("/clear", clearHandler.Clear)

	return r
}
