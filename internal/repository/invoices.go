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

// MemoryInvoicesRepository stores invoices in memory for local development
// and tests.
type MemoryInvoicesRepository struct {
	publisher feed.Publisher
	logger    *log.Logger

	mu       sync.RWMutex
	nextID   int64
	invoices map[int64]*domain.Invoice
}

func NewMemoryInvoicesRepository(publisher feed.Publisher, logger *log.Logger) *MemoryInvoicesRepository {
	return &MemoryInvoicesRepository{
		publisher: publisher,
		logger:    logger,
		invoices:  make(map[int64]*domain.Invoice),
	}
}

func (r *MemoryInvoicesRepository) CreateInvoice(ctx context.Context, invoice *domain.Invoice) error {
	r.mu.Lock()
	r.nextID++
	invoice.ID = r.nextID
	now := time.Now().UTC()
	invoice.CreatedAt = now
	invoice.UpdatedAt = now
	clone := *invoice
	r.invoices[invoice.ID] = &clone
	r.mu.Unlock()

	announce(ctx, r.publisher, r.logger, domain.CollectionInvoices, domain.EventInsert, invoice, nil)
	return nil
}

func (r *MemoryInvoicesRepository) GetInvoice(_ context.Context, id int64) (*domain.Invoice, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	invoice, ok := r.invoices[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *invoice
	return &clone, nil
}

func (r *MemoryInvoicesRepository) UpdateInvoice(ctx context.Context, invoice *domain.Invoice) error {
	r.mu.Lock()
	previous, ok := r.invoices[invoice.ID]
	if !ok {
		r.mu.Unlock()
		return ErrNotFound
	}
	old := *previous
	invoice.UpdatedAt = time.Now().UTC()
	clone := *invoice
	r.invoices[invoice.ID] = &clone
	r.mu.Unlock()

	announce(ctx, r.publisher, r.logger, domain.CollectionInvoices, domain.EventUpdate, invoice, &old)
	return nil
}

func (r *MemoryInvoicesRepository) ListInvoicesByFile(_ context.Context, fileID int64) ([]domain.Invoice, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	invoices := make([]domain.Invoice, 0)
	for _, invoice := range r.invoices {
		if invoice.FileID == fileID {
			invoices = append(invoices, *invoice)
		}
	}
	sort.Slice(invoices, func(i, j int) bool {
		if invoices[i].UpdatedAt.Equal(invoices[j].UpdatedAt) {
			return invoices[i].ID > invoices[j].ID
		}
		return invoices[i].UpdatedAt.After(invoices[j].UpdatedAt)
	})
	return invoices, nil
}

func (r *MemoryInvoicesRepository) ListInvoices(_ context.Context) ([]domain.Invoice, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	invoices := make([]domain.Invoice, 0, len(r.invoices))
	for _, invoice := range r.invoices {
		invoices = append(invoices, *invoice)
	}
	sort.Slice(invoices, func(i, j int) bool {
		if invoices[i].CreatedAt.Equal(invoices[j].CreatedAt) {
			return invoices[i].ID > invoices[j].ID
		}
		return invoices[i].CreatedAt.After(invoices[j].CreatedAt)
	})
	return invoices, nil
}
