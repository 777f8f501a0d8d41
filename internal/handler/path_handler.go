// Package handler はHTTP APIハンドラーとルーティングを提供する。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/marcelogomeza/udemyunich/internal/model"
	"github.com/marcelogomeza/udemyunich/internal/repository"
)

// PathServiceInterface はパスハンドラーが必要とするサービスインターフェース。
type PathServiceInterface interface {
	// ListPaths は全パスをタイトル昇順で返す。
	ListPaths(ctx context.Context) ([]*model.Path, error)
	// ListPathMembers は指定パスのメンバーと集計進捗を返す。
	ListPathMembers(ctx context.Context, pathID int64) ([]repository.MemberWithUser, error)
}

// PathHandler はパス関連のHTTPハンドラー。
type PathHandler struct {
	service PathServiceInterface
}

// NewPathHandler はPathHandlerを生成する。
func NewPathHandler(service PathServiceInterface) *PathHandler {
	return &PathHandler{service: service}
}

// --- レスポンス型 ---
// キー名はダッシュボードのフロントエンドが期待するcamelCase契約に合わせる。

// pathResponse はパス一覧の1件分のレスポンス。
type pathResponse struct {
	ID           int64  `json:"id"`
	Title        string `json:"title"`
	TotalCourses int    `json:"totalCourses"`
	Description  string `json:"description"`
	Courses      []any  `json:"courses"` // コース詳細は同期対象外のため常に空
}

// memberStatsResponse はメンバーの集計進捗のレスポンス。
type memberStatsResponse struct {
	TotalProgress     float64 `json:"totalProgress"`
	LastActivity      string  `json:"lastActivity"`
	CoursesCompleted  int     `json:"coursesCompleted"`
	CoursesInProgress int     `json:"coursesInProgress"`
}

// memberResponse はパスメンバー一覧の1件分のレスポンス。
type memberResponse struct {
	Email string              `json:"email"`
	Name  string              `json:"name"`
	Stats memberStatsResponse `json:"stats"`
}

// ListPaths は全パスの一覧を取得する。
// GET /api/paths
func (h *PathHandler) ListPaths(w http.ResponseWriter, r *http.Request) {
	paths, err := h.service.ListPaths(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]pathResponse, 0, len(paths))
	for _, p := range paths {
		total := 0
		if p.TotalCourses != nil {
			total = *p.TotalCourses
		}
		resp = append(resp, pathResponse{
			ID:           p.ID,
			Title:        p.Title,
			TotalCourses: total,
			Description:  p.Description,
			Courses:      []any{},
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// ListPathUsers は指定パスのメンバー一覧を集計進捗付きで取得する。
// GET /api/paths/{id}/users
func (h *PathHandler) ListPathUsers(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "id")
	pathID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || pathID <= 0 {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidPathIDError(raw))
		return
	}

	members, err := h.service.ListPathMembers(r.Context(), pathID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]memberResponse, 0, len(members))
	for _, m := range members {
		resp = append(resp, memberResponse{
			Email: m.UserEmail,
			Name:  m.UserName,
			Stats: memberStatsResponse{
				TotalProgress:     m.TotalProgress,
				LastActivity:      formatDate(m.LastActivity),
				CoursesCompleted:  m.CoursesCompleted,
				CoursesInProgress: m.CoursesInProgress,
			},
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// formatDate は日付をYYYY-MM-DDで整形する。未観測の場合は"-"を返す。
// フロントエンドの表示契約に合わせたフォーマット。
func formatDate(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format("2006-01-02")
}

// apiErrorResponse は統一エラーフォーマットのレスポンスボディ。
type apiErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(apiErrorResponse{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	writeAPIErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeInvalidPathID, model.ErrCodeMissingEmail:
		return http.StatusBadRequest
	case model.ErrCodePathNotFound:
		return http.StatusNotFound
	case model.ErrCodeSyncInProgress:
		return http.StatusConflict
	case model.ErrCodeSyncFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
