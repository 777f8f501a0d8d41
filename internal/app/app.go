// Package app はアプリケーションの起動とワイヤリングを担う。
package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/marcelogomeza/udemyunich/internal/config"
	"github.com/marcelogomeza/udemyunich/internal/database"
	"github.com/marcelogomeza/udemyunich/internal/handler"
	"github.com/marcelogomeza/udemyunich/internal/logger"
	"github.com/marcelogomeza/udemyunich/internal/metrics"
	"github.com/marcelogomeza/udemyunich/internal/middleware"
	"github.com/marcelogomeza/udemyunich/internal/repository"
	"github.com/marcelogomeza/udemyunich/internal/stats"
	syncpkg "github.com/marcelogomeza/udemyunich/internal/sync"
	"github.com/marcelogomeza/udemyunich/internal/udemy"
	"github.com/marcelogomeza/udemyunich/internal/worker/syncjob"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandWorker:
		return runWorker(cfg)
	case CommandSync:
		return runSync(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// buildRunner は同期パイプライン一式（Udemyクライアント・Reconciler・Runner）を
// ワイヤリングする。serve/worker/syncの各モードで共通。
func buildRunner(cfg *config.Config, db *sql.DB, collector *metrics.Collector) (*syncpkg.Runner, error) {
	pathRepo := repository.NewPostgresPathRepo(db)
	userRepo := repository.NewPostgresUserRepo(db)
	membershipRepo := repository.NewPostgresMembershipRepo(db)
	runRepo := repository.NewPostgresSyncRunRepo(db)

	client, err := udemy.NewClient(
		cfg.UdemyBaseURL, cfg.UdemyClientID, cfg.UdemyClientSecret,
		cfg.SyncTimeout, slog.Default(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create udemy client: %w", err)
	}

	reconciler := syncpkg.NewReconciler(pathRepo, userRepo, membershipRepo, slog.Default())

	runner := syncpkg.NewRunner(
		client, reconciler, runRepo, collector, slog.Default(),
		syncpkg.RunnerConfig{
			OrgID:    cfg.UdemyOrgID,
			PageSize: cfg.SyncPageSize,
			MaxPages: cfg.SyncMaxPages,
		},
	)

	return runner, nil
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 3. 同期パイプラインのワイヤリング
	runner, err := buildRunner(cfg, db, collector)
	if err != nil {
		return err
	}

	// 4. 読み取りサービスの初期化
	pathRepo := repository.NewPostgresPathRepo(db)
	userRepo := repository.NewPostgresUserRepo(db)
	membershipRepo := repository.NewPostgresMembershipRepo(db)
	runRepo := repository.NewPostgresSyncRunRepo(db)

	statsService := stats.NewService(pathRepo, userRepo, membershipRepo)

	// 5. ルーターの構築
	// configのレート値はreq/min単位なのでreq/secに変換する
	rateLimiterCfg := middleware.RateLimiterConfig{
		GeneralRate:     rate.Limit(float64(cfg.RateLimitGeneral) / 60.0),
		GeneralBurst:    cfg.RateLimitGeneral,
		SyncRate:        rate.Limit(float64(cfg.RateLimitSync) / 60.0),
		SyncBurst:       cfg.RateLimitSync,
		CleanupInterval: 5 * time.Minute,
	}

	deps := &handler.RouterDeps{
		HealthChecker:     db,
		Gatherer:          registry,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       middleware.NewRateLimiter(rateLimiterCfg),
		Logger:            slog.Default(),

		PathService: statsService,
		UserService: statsService,
		SyncService: runner,
		SyncRuns:    runRepo,
	}

	router := handler.NewRouter(deps)

	// 6. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Minute, // 同期トリガーはラン完了までブロックする
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// DB接続を開き、同期スケジューラを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established (worker)")

	// 2. 同期パイプラインのワイヤリング
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	runner, err := buildRunner(cfg, db, collector)
	if err != nil {
		return err
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	slog.Info("worker starting",
		slog.Duration("sync_interval", cfg.SyncInterval),
		slog.Int("max_pages", cfg.SyncMaxPages),
	)

	// スケジューラをメインgoroutineで実行（ブロッキング）
	scheduler := syncjob.NewScheduler(runner, slog.Default())
	scheduler.Start(ctx, cfg.SyncInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// runSync は同期パイプラインを1回だけ実行する。
// cronや手動オペレーション用のワンショットサブコマンド。
func runSync(cfg *config.Config) error {
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	runner, err := buildRunner(cfg, db, collector)
	if err != nil {
		return err
	}

	summary, err := runner.Run(context.Background())
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	slog.Info("sync completed",
		slog.Int("paths", summary.Paths),
		slog.Int("users", summary.Users),
		slog.Int("path_users", summary.PathUsers),
		slog.Int("pages", summary.Pages),
		slog.Int("skipped", summary.Skipped),
	)
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
