package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/minhvt/invoice-dash-back/internal/domain"
	"github.com/minhvt/invoice-dash-back/internal/repository"
	"github.com/minhvt/invoice-dash-back/internal/validation"
)

// ErrCheckInFlight guards one-time challenges: a second check for the same
// invoice while one is outstanding would waste a challenge, so it is refused
// outright instead of queued.
var ErrCheckInFlight = errors.New("validity check already in progress for this invoice")

type InvoicesService struct {
	invoices  repository.InvoicesRepository
	validator *validation.Client
	logger    *log.Logger

	mu       sync.Mutex
	inFlight map[int64]struct{}
}

func NewInvoicesService(
	invoices repository.InvoicesRepository,
	validator *validation.Client,
	logger *log.Logger,
) *InvoicesService {
	return &InvoicesService{
		invoices:  invoices,
		validator: validator,
		logger:    logger,
		inFlight:  make(map[int64]struct{}),
	}
}

func (s *InvoicesService) GetInvoice(ctx context.Context, id int64) (*domain.Invoice, error) {
	return s.invoices.GetInvoice(ctx, id)
}

func (s *InvoicesService) ListInvoicesByFile(ctx context.Context, fileID int64) ([]domain.Invoice, error) {
	return s.invoices.ListInvoicesByFile(ctx, fileID)
}

// CheckValidity runs the challenge+lookup round trip for one invoice and
// persists the verdict. A failed check leaves the stored invoice untouched
// and is retriable by repeating the action.
func (s *InvoicesService) CheckValidity(ctx context.Context, id int64) (*domain.Invoice, error) {
	if !s.begin(id) {
		return nil, ErrCheckInFlight
	}
	defer s.finish(id)

	invoice, err := s.invoices.GetInvoice(ctx, id)
	if err != nil {
		return nil, err
	}

	verdict, err := s.validator.CheckValidity(ctx, *invoice)
	if err != nil {
		return nil, err
	}

	valid := verdict.Valid
	checkedAt := verdict.CheckedAt
	invoice.IsValid = &valid
	invoice.ValidityMessage = verdict.Message
	invoice.ValidityCheckedAt = &checkedAt
	if err := s.invoices.UpdateInvoice(ctx, invoice); err != nil {
		return nil, fmt.Errorf("persist verdict: %w", err)
	}
	return invoice, nil
}

// Save forwards edits to the validation backend when one is configured and
// mirrors the canonical copy locally. On failure the stored row is untouched
// and the caller keeps its edited copy.
func (s *InvoicesService) Save(ctx context.Context, invoice domain.Invoice) (*domain.Invoice, error) {
	current, err := s.invoices.GetInvoice(ctx, invoice.ID)
	if err != nil {
		return nil, err
	}

	canonical := invoice
	canonical.FileID = current.FileID
	canonical.CreatedAt = current.CreatedAt

	if s.validator != nil && s.validator.CanSave() {
		saved, err := s.validator.SaveInvoice(ctx, canonical)
		if err != nil {
			return nil, err
		}
		if saved != nil && saved.ID != 0 {
			canonical = *saved
		}
	}

	if err := s.invoices.UpdateInvoice(ctx, &canonical); err != nil {
		return nil, fmt.Errorf("persist invoice: %w", err)
	}
	return &canonical, nil
}

func (s *InvoicesService) begin(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[id]; busy {
		return false
	}
	s.inFlight[id] = struct{}{}
	return true
}

func (s *InvoicesService) finish(id int64) {
	s.mu.Lock()
	delete(s.inFlight, id)
	s.mu.Unlock()
}
