package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/marcelogomeza/udemyunich/internal/metrics"
	"github.com/marcelogomeza/udemyunich/internal/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

// HealthChecker はヘルスチェックが必要とするDB疎通確認のインターフェース。
// *sql.DBがそのまま満たす。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	HealthChecker     HealthChecker
	Gatherer          prometheus.Gatherer
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger

	PathService PathServiceInterface
	UserService UserServiceInterface
	SyncService SyncServiceInterface
	SyncRuns    SyncRunListerInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	CORSMiddleware → LoggingMiddleware → RateLimitMiddleware
//
// /health と /metrics はレート制限の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))

	pathHandler := NewPathHandler(deps.PathService)
	userHandler := NewUserHandler(deps.UserService)
	syncHandler := NewSyncHandler(deps.SyncService, deps.SyncRuns)

	// --- 運用系ルート ---

	r.Get("/health", healthHandler(deps.HealthChecker))
	r.Handle("/metrics", metrics.Handler(deps.Gatherer))

	// --- APIルート ---
	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Route("/api/paths", func(r chi.Router) {
			r.Get("/", pathHandler.ListPaths)
			r.Get("/{id}/users", pathHandler.ListPathUsers)
		})

		r.Get("/api/users/{email}", userHandler.GetUserStats)

		r.Route("/api/sync", func(r chi.Router) {
			// 同期トリガーは専用の厳しいレート制限をかける
			r.With(deps.RateLimiter.SyncMiddleware()).Post("/", syncHandler.TriggerSync)
			r.Get("/runs", syncHandler.ListRuns)
		})
	})

	return r
}

// healthHandler はDB疎通を確認するヘルスチェックハンドラーを返す。
// GET /health
func healthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		w.Header().Set("Content-Type", "application/json")

		if err := checker.PingContext(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]string{"status": "unavailable"})
			return
		}

		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}
