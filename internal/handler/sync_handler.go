package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/marcelogomeza/udemyunich/internal/model"
	syncpkg "github.com/marcelogomeza/udemyunich/internal/sync"
)

// defaultRunHistoryLimit はラン履歴の1回の取得件数（デフォルト）。
const defaultRunHistoryLimit = 20

// SyncServiceInterface は同期ハンドラーが必要とするサービスインターフェース。
type SyncServiceInterface interface {
	// Run は同期パイプラインを1回実行し、実行結果カウンタを返す。
	Run(ctx context.Context) (*model.RunSummary, error)
}

// SyncRunListerInterface は同期ラン履歴の取得インターフェース。
type SyncRunListerInterface interface {
	// ListRecent は開始時刻の新しい順にランを返す。
	ListRecent(ctx context.Context, limit int) ([]*model.SyncRun, error)
}

// SyncHandler は同期トリガーと履歴のHTTPハンドラー。
type SyncHandler struct {
	service SyncServiceInterface
	lister  SyncRunListerInterface
}

// NewSyncHandler はSyncHandlerを生成する。
func NewSyncHandler(service SyncServiceInterface, lister SyncRunListerInterface) *SyncHandler {
	return &SyncHandler{
		service: service,
		lister:  lister,
	}
}

// syncRunResponse はラン履歴の1件分のレスポンス。
type syncRunResponse struct {
	ID         string           `json:"id"`
	StartedAt  string           `json:"startedAt"`
	FinishedAt string           `json:"finishedAt,omitempty"`
	Status     string           `json:"status"`
	Summary    model.RunSummary `json:"summary"`
	Error      string           `json:"error,omitempty"`
}

// TriggerSync は同期パイプラインを起動し、完了後にカウンタを返す。
// POST /api/sync
//
// 同期は完了までブロックする（呼び出し元は運用オペレータまたはスケジューラを想定）。
func (h *SyncHandler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Run(r.Context())
	if err != nil {
		if errors.Is(err, syncpkg.ErrRunInProgress) {
			writeAPIErrorResponse(w, http.StatusConflict, model.NewSyncInProgressError())
			return
		}
		writeAPIErrorResponse(w, http.StatusBadGateway, model.NewSyncFailedError(err.Error()))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(summary)
}

// ListRuns は同期ランの履歴を新しい順に取得する。
// GET /api/sync/runs?limit=N
func (h *SyncHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	runs, err := h.lister.ListRecent(r.Context(), limit)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]syncRunResponse, 0, len(runs))
	for _, run := range runs {
		item := syncRunResponse{
			ID:        run.ID,
			StartedAt: run.StartedAt.Format(time.RFC3339),
			Status:    string(run.Status),
			Summary:   run.Summary,
			Error:     run.ErrorMessage,
		}
		if run.FinishedAt != nil {
			item.FinishedAt = run.FinishedAt.Format(time.RFC3339)
		}
		resp = append(resp, item)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
