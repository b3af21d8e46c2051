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

// MemoryFilesRepository stores file rows in memory for local development and
// tests.
type MemoryFilesRepository struct {
	publisher feed.Publisher
	logger    *log.Logger

	mu     sync.RWMutex
	nextID int64
	files  map[int64]*domain.File
}

func NewMemoryFilesRepository(publisher feed.Publisher, logger *log.Logger) *MemoryFilesRepository {
	return &MemoryFilesRepository{
		publisher: publisher,
		logger:    logger,
		files:     make(map[int64]*domain.File),
	}
}

func (r *MemoryFilesRepository) CreateFile(ctx context.Context, file *domain.File) error {
	r.mu.Lock()
	r.nextID++
	file.ID = r.nextID
	now := time.Now().UTC()
	file.CreatedAt = now
	file.UpdatedAt = now
	clone := *file
	r.files[file.ID] = &clone
	r.mu.Unlock()

	announce(ctx, r.publisher, r.logger, domain.CollectionFiles, domain.EventInsert, file, nil)
	return nil
}

func (r *MemoryFilesRepository) GetFile(_ context.Context, id int64) (*domain.File, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	file, ok := r.files[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *file
	return &clone, nil
}

func (r *MemoryFilesRepository) UpdateFile(ctx context.Context, file *domain.File) error {
	r.mu.Lock()
	previous, ok := r.files[file.ID]
	if !ok {
		r.mu.Unlock()
		return ErrNotFound
	}
	old := *previous
	file.UpdatedAt = time.Now().UTC()
	clone := *file
	r.files[file.ID] = &clone
	r.mu.Unlock()

	announce(ctx, r.publisher, r.logger, domain.CollectionFiles, domain.EventUpdate, file, &old)
	return nil
}

func (r *MemoryFilesRepository) ListFiles(_ context.Context, filter FileFilter) ([]domain.File, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	files := make([]domain.File, 0, len(r.files))
	for _, file := range r.files {
		if filter.JobID != 0 && file.JobID != filter.JobID {
			continue
		}
		files = append(files, *file)
	}
	sort.Slice(files, func(i, j int) bool {
		if files[i].CreatedAt.Equal(files[j].CreatedAt) {
			return files[i].ID > files[j].ID
		}
		return files[i].CreatedAt.After(files[j].CreatedAt)
	})
	return files, nil
}

func (r *MemoryFilesRepository) DeleteFiles(ctx context.Context, ids []int64) (int, error) {
	deleted := make([]domain.File, 0, len(ids))

	r.mu.Lock()
	for _, id := range ids {
		if file, ok := r.files[id]; ok {
			deleted = append(deleted, *file)
			delete(r.files, id)
		}
	}
	r.mu.Unlock()

	for i := range deleted {
		announce(ctx, r.publisher, r.logger, domain.CollectionFiles, domain.EventDelete, nil, &deleted[i])
	}
	return len(deleted), nil
}
