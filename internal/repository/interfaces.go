// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/marcelogomeza/udemyunich/internal/model"
)

// PathRepository はラーニングパスの永続化インターフェース。
type PathRepository interface {
	// Upsert はパスを冪等にUPSERTする。
	// 競合時はtitleを上書きし、total_coursesは新しい値がnilの場合のみ既存値を維持する。
	Upsert(ctx context.Context, path *model.Path) error

	// FindByID は指定IDのパスを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.Path, error)

	// ListAll は全パスをタイトル昇順で返す。
	ListAll(ctx context.Context) ([]*model.Path, error)
}

// UserRepository は学習者の永続化インターフェース。
type UserRepository interface {
	// Upsert はユーザーを冪等にUPSERTする。
	// 競合時はnameを上書きし、last_activityは既存値と新しい値の最大をとる
	// （単調非減少マージ。未観測はエポック開始として扱う）。
	Upsert(ctx context.Context, user *model.User) error

	// FindByEmail は指定メールアドレスのユーザーを取得する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)
}

// MembershipRepository はパス×学習者の集計進捗の永続化インターフェース。
type MembershipRepository interface {
	// Upsert はメンバーシップを冪等にUPSERTする。
	// 競合時は進捗系フィールドを上書きし、last_activityは最大マージする。
	Upsert(ctx context.Context, m *model.PathMembership) error

	// FindByPathAndEmail は複合キーでメンバーシップを取得する。見つからない場合はnilを返す。
	FindByPathAndEmail(ctx context.Context, pathID int64, email string) (*model.PathMembership, error)

	// ListByPathID は指定パスのメンバー一覧をユーザー情報とJOINして返す。
	// total_progress降順、name昇順でソートする。
	ListByPathID(ctx context.Context, pathID int64) ([]MemberWithUser, error)

	// ListPathIDsByEmail は指定ユーザーが所属するパスIDの一覧を返す。
	ListPathIDsByEmail(ctx context.Context, email string) ([]int64, error)
}

// SyncRunRepository は同期ランの実行履歴の永続化インターフェース。
type SyncRunRepository interface {
	// Create は実行中ステータスのランを記録する。
	Create(ctx context.Context, run *model.SyncRun) error

	// Finish はランの終了状態（ステータス・カウンタ・終了時刻）を記録する。
	Finish(ctx context.Context, run *model.SyncRun) error

	// ListRecent は開始時刻の新しい順にランを返す。
	ListRecent(ctx context.Context, limit int) ([]*model.SyncRun, error)
}

// MemberWithUser はメンバーシップとユーザー情報を結合した構造体。
type MemberWithUser struct {
	model.PathMembership
	UserName string
}
