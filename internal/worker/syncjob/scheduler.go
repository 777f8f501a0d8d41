// Package syncjob は同期パイプラインの定期実行を提供する。
package syncjob

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/marcelogomeza/udemyunich/internal/model"
	syncpkg "github.com/marcelogomeza/udemyunich/internal/sync"
)

// SyncRunnerService は同期パイプラインの実行インターフェース。
type SyncRunnerService interface {
	// Run は同期パイプラインを1回実行し、実行結果カウンタを返す。
	Run(ctx context.Context) (*model.RunSummary, error)
}

// Scheduler は同期パイプラインを一定間隔で起動する。
// パイプライン自体は逐次実行であり、Runner側のミューテックスにより
// 多重起動は弾かれる。
type Scheduler struct {
	runner SyncRunnerService
	logger *slog.Logger
}

// NewScheduler はSchedulerの新しいインスタンスを生成する。
func NewScheduler(runner SyncRunnerService, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		runner: runner,
		logger: logger,
	}
}

// Start は指定間隔のティッカーでスケジューラを起動する。
// コンテキストがキャンセルされるまで実行を継続する。
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("同期スケジューラを開始しました",
		slog.Duration("interval", interval),
	)

	// 起動直後に1回実行
	s.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("同期スケジューラを停止しました")
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

// runOnce は同期パイプラインを1回実行し、結果をログに残す。
// 失敗してもスケジューラは停止しない（次回の周期で再試行される）。
func (s *Scheduler) runOnce(ctx context.Context) {
	summary, err := s.runner.Run(ctx)
	if err != nil {
		if errors.Is(err, syncpkg.ErrRunInProgress) {
			s.logger.Warn("前回の同期がまだ実行中のためスキップします")
			return
		}
		s.logger.Error("定期同期に失敗しました",
			slog.String("error", err.Error()),
		)
		return
	}

	s.logger.Info("定期同期が完了しました",
		slog.Int("paths", summary.Paths),
		slog.Int("users", summary.Users),
		slog.Int("path_users", summary.PathUsers),
		slog.Int("pages", summary.Pages),
	)
}
