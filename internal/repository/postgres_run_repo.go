package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/marcelogomeza/udemyunich/internal/model"
)

// PostgresSyncRunRepo はPostgreSQLを使用した同期ラン履歴リポジトリ。
type PostgresSyncRunRepo struct {
	db *sql.DB
}

// NewPostgresSyncRunRepo はPostgresSyncRunRepoを生成する。
func NewPostgresSyncRunRepo(db *sql.DB) *PostgresSyncRunRepo {
	return &PostgresSyncRunRepo{db: db}
}

// Create は実行中ステータスのランを記録する。
func (r *PostgresSyncRunRepo) Create(ctx context.Context, run *model.SyncRun) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sync_runs (id, started_at, status)
		 VALUES ($1, $2, $3)`,
		run.ID, run.StartedAt, run.Status,
	)
	if err != nil {
		return fmt.Errorf("failed to create sync run: %w", err)
	}

	return nil
}

// Finish はランの終了状態を記録する。
func (r *PostgresSyncRunRepo) Finish(ctx context.Context, run *model.SyncRun) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE sync_runs SET
		     finished_at = $2,
		     status = $3,
		     pages = $4,
		     paths = $5,
		     users = $6,
		     path_users = $7,
		     skipped = $8,
		     error_message = $9
		 WHERE id = $1`,
		run.ID, run.FinishedAt, run.Status,
		run.Summary.Pages, run.Summary.Paths, run.Summary.Users, run.Summary.PathUsers, run.Summary.Skipped,
		run.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("failed to finish sync run: %w", err)
	}

	return nil
}

// ListRecent は開始時刻の新しい順にランを返す。
func (r *PostgresSyncRunRepo) ListRecent(ctx context.Context, limit int) ([]*model.SyncRun, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, started_at, finished_at, status, pages, paths, users, path_users, skipped, error_message
		 FROM sync_runs ORDER BY started_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list sync runs: %w", err)
	}
	defer rows.Close()

	var runs []*model.SyncRun
	for rows.Next() {
		run := &model.SyncRun{}
		var finishedAt sql.NullTime

		if err := rows.Scan(
			&run.ID, &run.StartedAt, &finishedAt, &run.Status,
			&run.Summary.Pages, &run.Summary.Paths, &run.Summary.Users, &run.Summary.PathUsers, &run.Summary.Skipped,
			&run.ErrorMessage,
		); err != nil {
			return nil, fmt.Errorf("failed to scan sync run: %w", err)
		}
		if finishedAt.Valid {
			t := finishedAt.Time
			run.FinishedAt = &t
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sync runs: %w", err)
	}

	return runs, nil
}

// compile-time interface check
var _ SyncRunRepository = (*PostgresSyncRunRepo)(nil)
