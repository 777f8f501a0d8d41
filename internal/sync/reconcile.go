package sync

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"log/slog"

	"github.com/marcelogomeza/udemyunich/internal/model"
	"github.com/marcelogomeza/udemyunich/internal/repository"
)

// Result は1レコードのリコンサイルで成功したUPSERTの内訳を表す。
type Result struct {
	PathUpserted       bool
	UserUpserted       bool
	MembershipUpserted bool
}

// Reconciler は正規化済みレコードを3つのストアへ冪等にUPSERTする。
// UPSERTの順序はPath → User → PathMembershipに固定する。
// メンバーシップは両者を参照するため、先に親がコミットされている必要がある。
type Reconciler struct {
	pathRepo       repository.PathRepository
	userRepo       repository.UserRepository
	membershipRepo repository.MembershipRepository
	logger         *slog.Logger
}

// NewReconciler はReconcilerの新しいインスタンスを生成する。
func NewReconciler(
	pathRepo repository.PathRepository,
	userRepo repository.UserRepository,
	membershipRepo repository.MembershipRepository,
	logger *slog.Logger,
) *Reconciler {
	return &Reconciler{
		pathRepo:       pathRepo,
		userRepo:       userRepo,
		membershipRepo: membershipRepo,
		logger:         logger,
	}
}

// Reconcile は1件の正規化済みレコードをUPSERTする。
// レコード単位のストレージ失敗は非致命としてログに残し、そこで打ち切って
// 部分的なResultを返す（エラーは返さない）。接続レベルの失敗のみ
// エラーとして返し、ラン全体を中断させる。
func (r *Reconciler) Reconcile(ctx context.Context, c *Canonical) (Result, error) {
	var res Result

	path := &model.Path{
		ID:           c.PathID,
		Title:        c.PathTitle,
		TotalCourses: c.PathTotalCourses,
	}
	if path.Title == "" {
		// タイトルは空のまま保存しない
		path.Title = fmt.Sprintf("Path #%d", c.PathID)
	}

	if err := r.pathRepo.Upsert(ctx, path); err != nil {
		return res, r.recordFailure(c, "path", err)
	}
	res.PathUpserted = true

	user := &model.User{
		Email:        c.Email,
		Name:         c.Name,
		LastActivity: c.LastActivity,
	}
	if err := r.userRepo.Upsert(ctx, user); err != nil {
		return res, r.recordFailure(c, "user", err)
	}
	res.UserUpserted = true

	membership := &model.PathMembership{
		PathID:            c.PathID,
		UserEmail:         c.Email,
		TotalProgress:     c.TotalProgress,
		CoursesCompleted:  c.CoursesCompleted,
		CoursesInProgress: c.CoursesInProgress,
		LastActivity:      c.LastActivity,
	}
	if err := r.membershipRepo.Upsert(ctx, membership); err != nil {
		return res, r.recordFailure(c, "membership", err)
	}
	res.MembershipUpserted = true

	return res, nil
}

// recordFailure はUPSERT失敗を分類する。
// 接続レベルの失敗はエラーとして返し、それ以外はログに残してnilを返す。
func (r *Reconciler) recordFailure(c *Canonical, entity string, err error) error {
	if isConnError(err) {
		return fmt.Errorf("storage connection failure during %s upsert: %w", entity, err)
	}

	r.logger.Warn("レコードのUPSERTに失敗しました（スキップして継続します）",
		slog.String("entity", entity),
		slog.Int64("path_id", c.PathID),
		slog.String("user_email", c.Email),
		slog.String("error", err.Error()),
	)
	return nil
}

// isConnError はランを中断すべき接続レベルの失敗かどうかを判定する。
func isConnError(err error) bool {
	return errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
