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

type PostgresJobsRepository struct {
	pool      *pgxpool.Pool
	publisher feed.Publisher
	logger    *log.Logger
}

func NewPostgresJobsRepository(pool *pgxpool.Pool, publisher feed.Publisher, logger *log.Logger) *PostgresJobsRepository {
	return &PostgresJobsRepository{pool: pool, publisher: publisher, logger: logger}
}

func (r *PostgresJobsRepository) CreateJob(ctx context.Context, job *domain.Job) error {
	now := time.Now().UTC()
	err := r.pool.QueryRow(ctx, `
		INSERT INTO jobs (user_id, name, description, status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$5)
		RETURNING id
	`, job.UserID, job.Name, job.Description, string(job.Status), now).Scan(&job.ID)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	job.CreatedAt = now
	job.UpdatedAt = now

	announce(ctx, r.publisher, r.logger, domain.CollectionJobs, domain.EventInsert, job, nil)
	return nil
}

func (r *PostgresJobsRepository) GetJob(ctx context.Context, id int64) (*domain.Job, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, user_id, name, description, status, created_at, updated_at
		FROM jobs
		WHERE id = $1
	`, id)
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query job: %w", err)
	}
	return job, nil
}

func (r *PostgresJobsRepository) UpdateJob(ctx context.Context, job *domain.Job) error {
	old, err := r.GetJob(ctx, job.ID)
	if err != nil {
		return err
	}

	job.UpdatedAt = time.Now().UTC()
	command, err := r.pool.Exec(ctx, `
		UPDATE jobs
		SET name = $2,
			description = $3,
			status = $4,
			updated_at = $5
		WHERE id = $1
	`, job.ID, job.Name, job.Description, string(job.Status), job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	if command.RowsAffected() == 0 {
		return ErrNotFound
	}

	announce(ctx, r.publisher, r.logger, domain.CollectionJobs, domain.EventUpdate, job, old)
	return nil
}

func (r *PostgresJobsRepository) ListJobs(ctx context.Context) ([]domain.Job, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, name, description, status, created_at, updated_at
		FROM jobs
		ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	jobs := make([]domain.Job, 0)
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, *job)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate jobs: %w", rows.Err())
	}
	return jobs, nil
}

func scanJob(row pgx.Row) (*domain.Job, error) {
	var (
		job    domain.Job
		status string
	)
	err := row.Scan(
		&job.ID,
		&job.UserID,
		&job.Name,
		&job.Description,
		&status,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	job.Status = domain.Status(status)
	return &job, nil
}
