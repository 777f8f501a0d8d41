package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/marcelogomeza/udemyunich/internal/model"
)

// PostgresUserRepo はPostgreSQLを使用した学習者リポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

// Upsert はユーザーを冪等にUPSERTする。
// PostgreSQLのGREATESTはNULLを無視するため、last_activityは
// 「既存・新着の大きい方、両方NULLならNULL」という単調非減少マージになる。
func (r *PostgresUserRepo) Upsert(ctx context.Context, user *model.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (email, name, last_activity)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (email) DO UPDATE SET
		     name = EXCLUDED.name,
		     last_activity = GREATEST(users.last_activity, EXCLUDED.last_activity),
		     updated_at = now()`,
		user.Email, user.Name, user.LastActivity,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}

	return nil
}

// FindByEmail は指定メールアドレスのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	user := &model.User{}
	var lastActivity sql.NullTime

	err := r.db.QueryRowContext(ctx,
		`SELECT email, name, last_activity, created_at, updated_at
		 FROM users WHERE email = $1`,
		email,
	).Scan(&user.Email, &user.Name, &lastActivity, &user.CreatedAt, &user.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}

	if lastActivity.Valid {
		t := lastActivity.Time
		user.LastActivity = &t
	}

	return user, nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
