package service

import (
	"context"
	"fmt"
	"log"

	"github.com/minhvt/invoice-dash-back/internal/domain"
	"github.com/minhvt/invoice-dash-back/internal/parser"
	"github.com/minhvt/invoice-dash-back/internal/repository"
)

type FilesService struct {
	files    repository.FilesRepository
	jobs     repository.JobsRepository
	invoices repository.InvoicesRepository
	logger   *log.Logger
}

func NewFilesService(
	files repository.FilesRepository,
	jobs repository.JobsRepository,
	invoices repository.InvoicesRepository,
	logger *log.Logger,
) *FilesService {
	return &FilesService{files: files, jobs: jobs, invoices: invoices, logger: logger}
}

func (s *FilesService) GetFile(ctx context.Context, id int64) (*domain.File, error) {
	return s.files.GetFile(ctx, id)
}

func (s *FilesService) ListFiles(ctx context.Context, filter repository.FileFilter) ([]domain.File, error) {
	return s.files.ListFiles(ctx, filter)
}

// BulkDelete forwards the delete to the store; list views mirror the result
// through the DELETE events the repository publishes.
func (s *FilesService) BulkDelete(ctx context.Context, ids []int64) (int, error) {
	deleted, err := s.files.DeleteFiles(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("bulk delete files: %w", err)
	}
	if s.logger != nil {
		s.logger.Printf("files deleted requested=%d deleted=%d", len(ids), deleted)
	}
	return deleted, nil
}

// ApplyParserCallback records what the parser extracted: invoice rows for the
// file, then the file's and its job's terminal status.
func (s *FilesService) ApplyParserCallback(ctx context.Context, payload parser.CallbackPayload) error {
	file, err := s.files.GetFile(ctx, payload.FileID)
	if err != nil {
		return fmt.Errorf("load file %d: %w", payload.FileID, err)
	}

	for _, extracted := range payload.Invoices {
		invoice := &domain.Invoice{
			FileID:        file.ID,
			InvoiceNumber: extracted.InvoiceNumber,
			InvoiceSymbol: extracted.InvoiceSymbol,
			TaxCode:       extracted.TaxCode,
			TotalTax:      extracted.TotalTax,
			TotalBill:     extracted.TotalBill,
			Status:        domain.StatusCompleted,
		}
		if err := s.invoices.CreateInvoice(ctx, invoice); err != nil {
			return fmt.Errorf("create invoice for file %d: %w", file.ID, err)
		}
	}

	file.Status = domain.Status(payload.Status)
	if err := s.files.UpdateFile(ctx, file); err != nil {
		return fmt.Errorf("update file %d: %w", file.ID, err)
	}

	if file.JobID != 0 {
		job, err := s.jobs.GetJob(ctx, file.JobID)
		if err != nil {
			return fmt.Errorf("load job %d: %w", file.JobID, err)
		}
		job.Status = file.Status
		if err := s.jobs.UpdateJob(ctx, job); err != nil {
			return fmt.Errorf("update job %d: %w", job.ID, err)
		}
	}

	if s.logger != nil {
		s.logger.Printf("parser callback applied file_id=%d status=%s invoices=%d",
			file.ID, payload.Status, len(payload.Invoices))
	}
	return nil
}
