package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/marcelogomeza/udemyunich/internal/model"
)

// PostgresPathRepo はPostgreSQLを使用したパスリポジトリ。
type PostgresPathRepo struct {
	db *sql.DB
}

// NewPostgresPathRepo はPostgresPathRepoを生成する。
func NewPostgresPathRepo(db *sql.DB) *PostgresPathRepo {
	return &PostgresPathRepo{db: db}
}

// Upsert はパスを冪等にUPSERTする。
// 競合時はtitleを上書きし、total_coursesは新しい値がNULLの場合のみ既存値を維持する。
func (r *PostgresPathRepo) Upsert(ctx context.Context, path *model.Path) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO paths (id, title, total_courses)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO UPDATE SET
		     title = EXCLUDED.title,
		     total_courses = COALESCE(EXCLUDED.total_courses, paths.total_courses),
		     updated_at = now()`,
		path.ID, path.Title, path.TotalCourses,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert path: %w", err)
	}

	return nil
}

// FindByID は指定IDのパスを取得する。見つからない場合はnilを返す。
func (r *PostgresPathRepo) FindByID(ctx context.Context, id int64) (*model.Path, error) {
	path := &model.Path{}
	var totalCourses sql.NullInt64

	err := r.db.QueryRowContext(ctx,
		`SELECT id, title, total_courses, description, created_at, updated_at
		 FROM paths WHERE id = $1`,
		id,
	).Scan(&path.ID, &path.Title, &totalCourses, &path.Description, &path.CreatedAt, &path.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find path by ID: %w", err)
	}

	if totalCourses.Valid {
		v := int(totalCourses.Int64)
		path.TotalCourses = &v
	}

	return path, nil
}

// ListAll は全パスをタイトル昇順で返す。
func (r *PostgresPathRepo) ListAll(ctx context.Context) ([]*model.Path, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, title, total_courses, description, created_at, updated_at
		 FROM paths ORDER BY title`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list paths: %w", err)
	}
	defer rows.Close()

	var paths []*model.Path
	for rows.Next() {
		path := &model.Path{}
		var totalCourses sql.NullInt64

		if err := rows.Scan(&path.ID, &path.Title, &totalCourses, &path.Description, &path.CreatedAt, &path.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan path: %w", err)
		}
		if totalCourses.Valid {
			v := int(totalCourses.Int64)
			path.TotalCourses = &v
		}
		paths = append(paths, path)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate paths: %w", err)
	}

	return paths, nil
}

// compile-time interface check
var _ PathRepository = (*PostgresPathRepo)(nil)
