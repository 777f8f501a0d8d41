// Package stats はリコンサイル済みデータの読み取りクエリを提供する。
// 管理ダッシュボードとユーザー進捗ビューが消費する薄いクエリ層。
package stats

import (
	"context"

	"github.com/marcelogomeza/udemyunich/internal/model"
	"github.com/marcelogomeza/udemyunich/internal/repository"
)

// Service は読み取りクエリサービス。
type Service struct {
	pathRepo       repository.PathRepository
	userRepo       repository.UserRepository
	membershipRepo repository.MembershipRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	pathRepo repository.PathRepository,
	userRepo repository.UserRepository,
	membershipRepo repository.MembershipRepository,
) *Service {
	return &Service{
		pathRepo:       pathRepo,
		userRepo:       userRepo,
		membershipRepo: membershipRepo,
	}
}

// ListPaths は全パスをタイトル昇順で返す。
func (s *Service) ListPaths(ctx context.Context) ([]*model.Path, error) {
	return s.pathRepo.ListAll(ctx)
}

// ListPathMembers は指定パスのメンバーと集計進捗を返す。
// パスが存在しない場合はnil, model.APIErrorを返す。
func (s *Service) ListPathMembers(ctx context.Context, pathID int64) ([]repository.MemberWithUser, error) {
	path, err := s.pathRepo.FindByID(ctx, pathID)
	if err != nil {
		return nil, err
	}
	if path == nil {
		return nil, model.NewPathNotFoundError(pathID)
	}

	return s.membershipRepo.ListByPathID(ctx, pathID)
}

// UserProfile はユーザーの基本情報・所属パス・パス別統計をまとめた構造体。
type UserProfile struct {
	Found           bool
	User            *model.User
	EnrolledPathIDs []int64
	PathStats       *model.PathMembership // pathID指定時のみ。未所属の場合はnil。
}

// GetUserProfile はユーザーのプロファイルと（指定があれば）パス別統計を返す。
// 未知のユーザーはエラーではなくFound=falseで返す。
// フロントエンドは未同期ユーザーにも空のプロファイルを表示するためである。
func (s *Service) GetUserProfile(ctx context.Context, email string, pathID int64) (*UserProfile, error) {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return &UserProfile{Found: false}, nil
	}

	profile := &UserProfile{
		Found: true,
		User:  user,
	}

	profile.EnrolledPathIDs, err = s.membershipRepo.ListPathIDsByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	if pathID > 0 {
		profile.PathStats, err = s.membershipRepo.FindByPathAndEmail(ctx, pathID, email)
		if err != nil {
			return nil, err
		}
	}

	return profile, nil
}
