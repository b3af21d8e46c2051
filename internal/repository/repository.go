package repository

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/minhvt/invoice-dash-back/internal/domain"
	"github.com/minhvt/invoice-dash-back/internal/feed"
)

var ErrNotFound = errors.New("resource not found")

// JobsRepository abstracts job persistence. Writes that succeed are announced
// on the change feed.
type JobsRepository interface {
	CreateJob(ctx context.Context, job *domain.Job) error
	GetJob(ctx context.Context, id int64) (*domain.Job, error)
	UpdateJob(ctx context.Context, job *domain.Job) error
	ListJobs(ctx context.Context) ([]domain.Job, error)
}

// FileFilter narrows file listings to one job when JobID is set.
type FileFilter struct {
	JobID int64
}

type FilesRepository interface {
	CreateFile(ctx context.Context, file *domain.File) error
	GetFile(ctx context.Context, id int64) (*domain.File, error)
	UpdateFile(ctx context.Context, file *domain.File) error
	ListFiles(ctx context.Context, filter FileFilter) ([]domain.File, error)
	// DeleteFiles removes every row whose id is listed and returns how many
	// existed. Missing ids are skipped, not errors.
	DeleteFiles(ctx context.Context, ids []int64) (int, error)
}

type InvoicesRepository interface {
	CreateInvoice(ctx context.Context, invoice *domain.Invoice) error
	GetInvoice(ctx context.Context, id int64) (*domain.Invoice, error)
	UpdateInvoice(ctx context.Context, invoice *domain.Invoice) error
	// ListInvoicesByFile returns the invoices of one file, updated_at desc.
	ListInvoicesByFile(ctx context.Context, fileID int64) ([]domain.Invoice, error)
	// ListInvoices returns every invoice, created_at desc. Used by the export.
	ListInvoices(ctx context.Context) ([]domain.Invoice, error)
}

// OpenPool creates and pings the shared pgx pool.
func OpenPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pg pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping pg: %w", err)
	}
	return pool, nil
}

// announce publishes a row change. Publish failures are logged, never fatal:
// the write already committed, list views recover on their next initialize.
func announce(
	ctx context.Context,
	publisher feed.Publisher,
	logger *log.Logger,
	collection domain.Collection,
	eventType domain.EventType,
	newRecord, oldRecord any,
) {
	if publisher == nil {
		return
	}
	event := domain.ChangeEvent{
		Collection: collection,
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
	}
	if newRecord != nil {
		event.New = domain.MarshalRecord(newRecord)
	}
	if oldRecord != nil {
		event.Old = domain.MarshalRecord(oldRecord)
	}
	if err := publisher.Publish(ctx, event); err != nil && logger != nil {
		logger.Printf("change publish failed collection=%s type=%s err=%v", collection, eventType, err)
	}
}
