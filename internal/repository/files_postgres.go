package repository

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/minhvt/invoice-dash-back/internal/domain"
	"github.com/minhvt/invoice-dash-back/internal/feed"
)

type PostgresFilesRepository struct {
	pool      *pgxpool.Pool
	publisher feed.Publisher
	logger    *log.Logger
}

func NewPostgresFilesRepository(pool *pgxpool.Pool, publisher feed.Publisher, logger *log.Logger) *PostgresFilesRepository {
	return &PostgresFilesRepository{pool: pool, publisher: publisher, logger: logger}
}

func (r *PostgresFilesRepository) CreateFile(ctx context.Context, file *domain.File) error {
	now := time.Now().UTC()
	err := r.pool.QueryRow(ctx, `
		INSERT INTO files (job_id, user_id, name, size_bytes, mime_type, status, path, full_path, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$9)
		RETURNING id
	`,
		file.JobID,
		file.UserID,
		file.Name,
		file.SizeBytes,
		file.MimeType,
		string(file.Status),
		file.Path,
		file.FullPath,
		now,
	).Scan(&file.ID)
	if err != nil {
		return fmt.Errorf("insert file: %w", err)
	}
	file.CreatedAt = now
	file.UpdatedAt = now

	announce(ctx, r.publisher, r.logger, domain.CollectionFiles, domain.EventInsert, file, nil)
	return nil
}

func (r *PostgresFilesRepository) GetFile(ctx context.Context, id int64) (*domain.File, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, job_id, user_id, name, size_bytes, mime_type, status, path, full_path, created_at, updated_at
		FROM files
		WHERE id = $1
	`, id)
	file, err := scanFile(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query file: %w", err)
	}
	return file, nil
}

func (r *PostgresFilesRepository) UpdateFile(ctx context.Context, file *domain.File) error {
	old, err := r.GetFile(ctx, file.ID)
	if err != nil {
		return err
	}

	file.UpdatedAt = time.Now().UTC()
	command, err := r.pool.Exec(ctx, `
		UPDATE files
		SET name = $2,
			status = $3,
			path = $4,
			full_path = $5,
			updated_at = $6
		WHERE id = $1
	`, file.ID, file.Name, string(file.Status), file.Path, file.FullPath, file.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update file: %w", err)
	}
	if command.RowsAffected() == 0 {
		return ErrNotFound
	}

	announce(ctx, r.publisher, r.logger, domain.CollectionFiles, domain.EventUpdate, file, old)
	return nil
}

func (r *PostgresFilesRepository) ListFiles(ctx context.Context, filter FileFilter) ([]domain.File, error) {
	query := `
		SELECT id, job_id, user_id, name, size_bytes, mime_type, status, path, full_path, created_at, updated_at
		FROM files
	`
	args := make([]any, 0, 1)
	if filter.JobID != 0 {
		query += " WHERE job_id = $1"
		args = append(args, filter.JobID)
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()

	files := make([]domain.File, 0)
	for rows.Next() {
		file, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		files = append(files, *file)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate files: %w", rows.Err())
	}
	return files, nil
}

func (r *PostgresFilesRepository) DeleteFiles(ctx context.Context, ids []int64) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	rows, err := r.pool.Query(ctx, `
		DELETE FROM files
		WHERE id = ANY($1)
		RETURNING id, job_id, user_id, name, size_bytes, mime_type, status, path, full_path, created_at, updated_at
	`, ids)
	if err != nil {
		return 0, fmt.Errorf("delete files: %w", err)
	}
	defer rows.Close()

	deleted := make([]domain.File, 0, len(ids))
	for rows.Next() {
		file, err := scanFile(rows)
		if err != nil {
			return 0, fmt.Errorf("scan deleted file: %w", err)
		}
		deleted = append(deleted, *file)
	}
	if rows.Err() != nil {
		return 0, fmt.Errorf("iterate deleted files: %w", rows.Err())
	}

	for i := range deleted {
		announce(ctx, r.publisher, r.logger, domain.CollectionFiles, domain.EventDelete, nil, &deleted[i])
	}
	return len(deleted), nil
}

func scanFile(row pgx.Row) (*domain.File, error) {
	var (
		file   domain.File
		status string
	)
	err := row.Scan(
		&file.ID,
		&file.JobID,
		&file.UserID,
		&file.Name,
		&file.SizeBytes,
		&file.MimeType,
		&status,
		&file.Path,
		&file.FullPath,
		&file.CreatedAt,
		&file.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	file.Status = domain.Status(status)
	return &file, nil
}
