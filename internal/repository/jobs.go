package repository

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/minhvt/invoice-dash-back/internal/domain"
	"github.com/minhvt/invoice-dash-back/internal/feed"
)

// MemoryJobsRepository stores jobs in memory for local development and tests.
type MemoryJobsRepository struct {
	publisher feed.Publisher
	logger    *log.Logger

	mu     sync.RWMutex
	nextID int64
	jobs   map[int64]*domain.Job
}

func NewMemoryJobsRepository(publisher feed.Publisher, logger *log.Logger) *MemoryJobsRepository {
	return &MemoryJobsRepository{
		publisher: publisher,
		logger:    logger,
		jobs:      make(map[int64]*domain.Job),
	}
}

func (r *MemoryJobsRepository) CreateJob(ctx context.Context, job *domain.Job) error {
	r.mu.Lock()
	r.nextID++
	job.ID = r.nextID
	now := time.Now().UTC()
	job.CreatedAt = now
	job.UpdatedAt = now
	clone := *job
	r.jobs[job.ID] = &clone
	r.mu.Unlock()

	announce(ctx, r.publisher, r.logger, domain.CollectionJobs, domain.EventInsert, job, nil)
	return nil
}

func (r *MemoryJobsRepository) GetJob(_ context.Context, id int64) (*domain.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *job
	return &clone, nil
}

func (r *MemoryJobsRepository) UpdateJob(ctx context.Context, job *domain.Job) error {
	r.mu.Lock()
	previous, ok := r.jobs[job.ID]
	if !ok {
		r.mu.Unlock()
		return ErrNotFound
	}
	old := *previous
	job.UpdatedAt = time.Now().UTC()
	clone := *job
	r.jobs[job.ID] = &clone
	r.mu.Unlock()

	announce(ctx, r.publisher, r.logger, domain.CollectionJobs, domain.EventUpdate, job, &old)
	return nil
}

func (r *MemoryJobsRepository) ListJobs(_ context.Context) ([]domain.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	jobs := make([]domain.Job, 0, len(r.jobs))
	for _, job := range r.jobs {
		jobs = append(jobs, *job)
	}
	sort.Slice(jobs, func(i, j int) bool {
		if jobs[i].CreatedAt.Equal(jobs[j].CreatedAt) {
			return jobs[i].ID > jobs[j].ID
		}
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})
	return jobs, nil
}
