package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/marcelogomeza/udemyunich/internal/model"
)

// PostgresMembershipRepo はPostgreSQLを使用したメンバーシップリポジトリ。
type PostgresMembershipRepo struct {
	db *sql.DB
}

// NewPostgresMembershipRepo はPostgresMembershipRepoを生成する。
func NewPostgresMembershipRepo(db *sql.DB) *PostgresMembershipRepo {
	return &PostgresMembershipRepo{db: db}
}

// Upsert はメンバーシップを冪等にUPSERTする。
// 進捗系フィールドは最後の書き込みが勝ち、last_activityのみ最大マージする。
func (r *PostgresMembershipRepo) Upsert(ctx context.Context, m *model.PathMembership) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO path_users (path_id, user_email, total_progress, courses_completed, courses_in_progress, last_activity)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (path_id, user_email) DO UPDATE SET
		     total_progress = EXCLUDED.total_progress,
		     courses_completed = EXCLUDED.courses_completed,
		     courses_in_progress = EXCLUDED.courses_in_progress,
		     last_activity = GREATEST(path_users.last_activity, EXCLUDED.last_activity),
		     updated_at = now()`,
		m.PathID, m.UserEmail, m.TotalProgress, m.CoursesCompleted, m.CoursesInProgress, m.LastActivity,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert membership: %w", err)
	}

	return nil
}

// FindByPathAndEmail は複合キーでメンバーシップを取得する。見つからない場合はnilを返す。
func (r *PostgresMembershipRepo) FindByPathAndEmail(ctx context.Context, pathID int64, email string) (*model.PathMembership, error) {
	m := &model.PathMembership{}
	var lastActivity sql.NullTime

	err := r.db.QueryRowContext(ctx,
		`SELECT path_id, user_email, total_progress, courses_completed, courses_in_progress, last_activity, created_at, updated_at
		 FROM path_users WHERE path_id = $1 AND user_email = $2`,
		pathID, email,
	).Scan(&m.PathID, &m.UserEmail, &m.TotalProgress, &m.CoursesCompleted, &m.CoursesInProgress, &lastActivity, &m.CreatedAt, &m.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find membership: %w", err)
	}

	if lastActivity.Valid {
		t := lastActivity.Time
		m.LastActivity = &t
	}

	return m, nil
}

// ListByPathID は指定パスのメンバー一覧をユーザー情報とJOINして返す。
// 管理画面の表示順に合わせて total_progress降順、name昇順でソートする。
func (r *PostgresMembershipRepo) ListByPathID(ctx context.Context, pathID int64) ([]MemberWithUser, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT pu.path_id, pu.user_email, u.name, pu.total_progress, pu.courses_completed, pu.courses_in_progress, pu.last_activity
		 FROM path_users pu
		 INNER JOIN users u ON u.email = pu.user_email
		 WHERE pu.path_id = $1
		 ORDER BY pu.total_progress DESC, u.name ASC`,
		pathID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list path members: %w", err)
	}
	defer rows.Close()

	var members []MemberWithUser
	for rows.Next() {
		var m MemberWithUser
		var lastActivity sql.NullTime

		if err := rows.Scan(&m.PathID, &m.UserEmail, &m.UserName, &m.TotalProgress, &m.CoursesCompleted, &m.CoursesInProgress, &lastActivity); err != nil {
			return nil, fmt.Errorf("failed to scan path member: %w", err)
		}
		if lastActivity.Valid {
			t := lastActivity.Time
			m.LastActivity = &t
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate path members: %w", err)
	}

	return members, nil
}

// ListPathIDsByEmail は指定ユーザーが所属するパスIDの一覧を返す。
func (r *PostgresMembershipRepo) ListPathIDsByEmail(ctx context.Context, email string) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT path_id FROM path_users WHERE user_email = $1 ORDER BY path_id`,
		email,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list path IDs: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan path ID: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate path IDs: %w", err)
	}

	return ids, nil
}

// compile-time interface check
var _ MembershipRepository = (*PostgresMembershipRepo)(nil)
