package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/marcelogomeza/udemyunich/internal/model"
	"github.com/marcelogomeza/udemyunich/internal/repository"
	"github.com/marcelogomeza/udemyunich/internal/udemy"
)

// defaultMaxPages はページネーションの暴走ループ防止上限。
// ビジネスルールではなく、無限ページネーションする異常なソースへのガード。
const defaultMaxPages = 50

// defaultPageSize は1ページあたりの取得件数。
const defaultPageSize = 100

// ErrRunInProgress は同期ランがすでに実行中であることを示す。
var ErrRunInProgress = errors.New("sync run already in progress")

// PageFetcher はページ取得のインターフェース。
type PageFetcher interface {
	// FetchPage は指定エンドポイントの1ページ分を取得する。
	FetchPage(ctx context.Context, endpoint string, params url.Values) (*udemy.Page, error)
	// ParseNext はnextカーソルをエンドポイントとクエリパラメータに分解する。
	ParseNext(next string) (string, url.Values, error)
}

// RecordReconciler は正規化済みレコードのリコンサイルのインターフェース。
type RecordReconciler interface {
	Reconcile(ctx context.Context, c *Canonical) (Result, error)
}

// MetricsCollector は同期パイプラインのメトリクス収集のインターフェース。
type MetricsCollector interface {
	RecordRun(status string)
	RecordPageFetched()
	RecordFetchLatency(duration time.Duration)
	RecordUpsert(entity string)
	RecordSkipped()
}

// Runner は同期パイプラインのページネーション制御を行う。
// fetch → normalize → reconcile のサイクルをページ単位で繰り返し、
// nextカーソルを辿り、ページ上限または末尾で停止する。
// ページ内のレコードは配列順に逐次処理する。同一キーのレコードが
// 1ページに複数あるとき、最後の1件が勝つ順序性を保つためである。
type Runner struct {
	fetcher    PageFetcher
	reconciler RecordReconciler
	runRepo    repository.SyncRunRepository
	metrics    MetricsCollector
	logger     *slog.Logger

	orgID    string
	pageSize int
	maxPages int

	// 同時トリガーの直列化。進捗系フィールドはlast-write-winsのため、
	// ランの並走は順序をかき乱す。
	mu sync.Mutex
}

// RunnerConfig はRunnerの設定を保持する。
type RunnerConfig struct {
	OrgID    string
	PageSize int // 0以下の場合は100
	MaxPages int // 0以下の場合は50
}

// NewRunner はRunnerの新しいインスタンスを生成する。
func NewRunner(
	fetcher PageFetcher,
	reconciler RecordReconciler,
	runRepo repository.SyncRunRepository,
	metrics MetricsCollector,
	logger *slog.Logger,
	cfg RunnerConfig,
) *Runner {
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = defaultMaxPages
	}
	return &Runner{
		fetcher:    fetcher,
		reconciler: reconciler,
		runRepo:    runRepo,
		metrics:    metrics,
		logger:     logger,
		orgID:      cfg.OrgID,
		pageSize:   cfg.PageSize,
		maxPages:   cfg.MaxPages,
	}
}

// Run は同期パイプラインを1回実行し、実行結果カウンタを返す。
// すでに実行中の場合はErrRunInProgressを返す。
// フェッチ・デコード・ステータスの失敗はラン全体を中断して伝播する。
func (r *Runner) Run(ctx context.Context) (*model.RunSummary, error) {
	if !r.mu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer r.mu.Unlock()

	run := &model.SyncRun{
		ID:        uuid.New().String(),
		StartedAt: time.Now(),
		Status:    model.RunStatusRunning,
	}
	if err := r.runRepo.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to record sync run start: %w", err)
	}

	r.logger.Info("同期ランを開始しました",
		slog.String("run_id", run.ID),
		slog.Int("page_size", r.pageSize),
		slog.Int("max_pages", r.maxPages),
	)

	summary, err := r.paginate(ctx, &run.Summary)
	now := time.Now()
	run.FinishedAt = &now

	if err != nil {
		run.Status = model.RunStatusFailed
		run.ErrorMessage = err.Error()
		r.finishRun(ctx, run)
		r.metrics.RecordRun("failed")

		r.logger.Error("同期ランが失敗しました",
			slog.String("run_id", run.ID),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	run.Status = model.RunStatusSucceeded
	r.finishRun(ctx, run)
	r.metrics.RecordRun("succeeded")

	r.logger.Info("同期ランが完了しました",
		slog.String("run_id", run.ID),
		slog.Int("pages", summary.Pages),
		slog.Int("paths", summary.Paths),
		slog.Int("users", summary.Users),
		slog.Int("path_users", summary.PathUsers),
		slog.Int("skipped", summary.Skipped),
	)

	return summary, nil
}

// paginate はnextカーソルを辿りながら全ページを処理する。
func (r *Runner) paginate(ctx context.Context, summary *model.RunSummary) (*model.RunSummary, error) {
	endpoint := fmt.Sprintf("/api-2.0/organizations/%s/analytics/user-path-activity/", r.orgID)
	params := url.Values{"page_size": []string{strconv.Itoa(r.pageSize)}}

	for page := 1; page <= r.maxPages; page++ {
		start := time.Now()
		resp, err := r.fetcher.FetchPage(ctx, endpoint, params)
		if err != nil {
			return nil, err
		}
		r.metrics.RecordFetchLatency(time.Since(start))
		r.metrics.RecordPageFetched()
		summary.Pages++

		// resultsキー自体が無いレスポンスは末尾として扱う
		if resp.Results == nil {
			break
		}

		if err := r.processPage(ctx, resp.Results, summary); err != nil {
			return nil, err
		}

		if resp.Next == "" {
			break
		}

		endpoint, params, err = r.fetcher.ParseNext(resp.Next)
		if err != nil {
			return nil, err
		}
	}

	return summary, nil
}

// processPage は1ページ分のレコードを配列順にリコンサイルする。
func (r *Runner) processPage(ctx context.Context, records []udemy.RawRecord, summary *model.RunSummary) error {
	for _, raw := range records {
		canonical, ok := Normalize(raw)
		if !ok {
			// キー項目を欠くレコードは黙ってスキップ（カウンタにも含めない）
			summary.Skipped++
			r.metrics.RecordSkipped()
			continue
		}

		res, err := r.reconciler.Reconcile(ctx, canonical)
		if err != nil {
			return err
		}

		if res.PathUpserted {
			summary.Paths++
			r.metrics.RecordUpsert("path")
		}
		if res.UserUpserted {
			summary.Users++
			r.metrics.RecordUpsert("user")
		}
		if res.MembershipUpserted {
			summary.PathUsers++
			r.metrics.RecordUpsert("membership")
		}

		// レコード単位のストレージ失敗で途中までしか適用できなかった
		// レコードもスキップとして計上する
		if !res.MembershipUpserted {
			summary.Skipped++
			r.metrics.RecordSkipped()
		}
	}

	return nil
}

// finishRun はランの終了状態を記録する。記録自体の失敗はログに残すだけにする。
func (r *Runner) finishRun(ctx context.Context, run *model.SyncRun) {
	if err := r.runRepo.Finish(ctx, run); err != nil {
		r.logger.Error("同期ランの終了記録に失敗しました",
			slog.String("run_id", run.ID),
			slog.String("error", err.Error()),
		)
	}
}
