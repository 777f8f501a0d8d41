package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/marcelogomeza/udemyunich/internal/model"
	"github.com/marcelogomeza/udemyunich/internal/stats"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	// GetUserProfile はユーザーのプロファイルと（指定があれば）パス別統計を返す。
	GetUserProfile(ctx context.Context, email string, pathID int64) (*stats.UserProfile, error)
}

// UserHandler はユーザー関連のHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface) *UserHandler {
	return &UserHandler{service: service}
}

// userStatsResponse はユーザープロファイルのレスポンス。
type userStatsResponse struct {
	Email         string              `json:"email"`
	Name          string              `json:"name"`
	EnrolledPaths []int64             `json:"enrolledPaths"`
	Stats         memberStatsResponse `json:"stats"`
	PathCourses   []any               `json:"path_courses"` // コース詳細は同期対象外のため常に空
}

// GetUserStats はユーザーのプロファイルとパス別統計を取得する。
// GET /api/users/{email}?path_id=N
//
// 未知のユーザーは404ではなく空のプロファイルで返す。
// ダッシュボードはまだ同期されていないユーザーも表示するためである。
func (h *UserHandler) GetUserStats(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")
	if email == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewMissingEmailError())
		return
	}

	var pathID int64
	if raw := r.URL.Query().Get("path_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidPathIDError(raw))
			return
		}
		pathID = id
	}

	profile, err := h.service.GetUserProfile(r.Context(), email, pathID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(buildUserStatsResponse(email, profile))
}

// buildUserStatsResponse はプロファイルをフロントエンド契約のレスポンスに変換する。
func buildUserStatsResponse(email string, profile *stats.UserProfile) userStatsResponse {
	if !profile.Found {
		// 未同期ユーザー: 名前はメールアドレスで代用し、統計はゼロで返す
		return userStatsResponse{
			Email:         email,
			Name:          email,
			EnrolledPaths: []int64{},
			Stats: memberStatsResponse{
				LastActivity: "-",
			},
			PathCourses: []any{},
		}
	}

	resp := userStatsResponse{
		Email:         profile.User.Email,
		Name:          profile.User.Name,
		EnrolledPaths: profile.EnrolledPathIDs,
		Stats: memberStatsResponse{
			LastActivity: formatDate(profile.User.LastActivity),
		},
		PathCourses: []any{},
	}
	if resp.EnrolledPaths == nil {
		resp.EnrolledPaths = []int64{}
	}

	// パス指定があり所属している場合はパス別統計で上書きする
	if profile.PathStats != nil {
		resp.Stats.TotalProgress = profile.PathStats.TotalProgress
		resp.Stats.CoursesCompleted = profile.PathStats.CoursesCompleted
		resp.Stats.CoursesInProgress = profile.PathStats.CoursesInProgress
		if profile.PathStats.LastActivity != nil {
			resp.Stats.LastActivity = formatDate(profile.PathStats.LastActivity)
		}
	}

	return resp
}
