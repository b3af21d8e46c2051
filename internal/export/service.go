// Package export produces XLSX workbooks from the invoice tables.
package export

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/minhvt/invoice-dash-back/internal/domain"
	"github.com/minhvt/invoice-dash-back/internal/repository"
)

// Service is a small façade over the repositories that renders invoice rows
// into workbook bytes.
type Service struct {
	invoices repository.InvoicesRepository
	files    repository.FilesRepository
	logger   *log.Logger
}

func NewService(invoices repository.InvoicesRepository, files repository.FilesRepository, logger *log.Logger) *Service {
	return &Service{invoices: invoices, files: files, logger: logger}
}

// InvoicesXLSX returns an XLSX workbook for every invoice, or for the
// invoices of one file when fileID is non-zero.
func (s *Service) InvoicesXLSX(ctx context.Context, fileID int64) ([]byte, error) {
	start := time.Now()

	var (
		rows []domain.Invoice
		err  error
	)
	if fileID != 0 {
		rows, err = s.invoices.ListInvoicesByFile(ctx, fileID)
	} else {
		rows, err = s.invoices.ListInvoices(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("query invoices: %w", err)
	}

	f := excelize.NewFile()
	const sheet = "Invoices"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	headers := []string{
		"Invoice Number",
		"Invoice Symbol",
		"Tax Code",
		"Total Tax",
		"Total Bill",
		"Status",
		"Validity",
		"Checked At",
		"Source File",
		"Created At",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	// File names are resolved once per file id, not per invoice row.
	fileNames := map[int64]string{}

	row := 2
	for _, inv := range rows {
		fileName := ""
		if inv.FileID != 0 {
			name, ok := fileNames[inv.FileID]
			if !ok {
				if stored, err := s.files.GetFile(ctx, inv.FileID); err == nil {
					name = stored.Name
				}
				fileNames[inv.FileID] = name
			}
			fileName = name
		}

		validity := ""
		if inv.IsValid != nil {
			if *inv.IsValid {
				validity = "valid"
			} else {
				validity = "invalid"
			}
			if inv.ValidityMessage != "" {
				validity = inv.ValidityMessage
			}
		}

		checkedAt := ""
		if inv.ValidityCheckedAt != nil {
			checkedAt = inv.ValidityCheckedAt.Format("2006-01-02 15:04")
		}

		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		write(1, inv.InvoiceNumber)
		write(2, inv.InvoiceSymbol)
		write(3, inv.TaxCode)
		write(4, inv.TotalTax)
		write(5, inv.TotalBill)
		write(6, string(inv.Status))
		write(7, validity)
		write(8, checkedAt)
		write(9, fileName)
		write(10, inv.CreatedAt.Format("2006-01-02 15:04"))

		row++
	}

	_ = f.SetColWidth(sheet, "A", "A", 16)
	_ = f.SetColWidth(sheet, "B", "B", 14)
	_ = f.SetColWidth(sheet, "C", "C", 16)
	_ = f.SetColWidth(sheet, "D", "E", 14)
	_ = f.SetColWidth(sheet, "F", "G", 16)
	_ = f.SetColWidth(sheet, "H", "H", 18)
	_ = f.SetColWidth(sheet, "I", "I", 36)
	_ = f.SetColWidth(sheet, "J", "J", 18)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	if s.logger != nil {
		s.logger.Printf("export: wrote %d invoice rows in %dms", len(rows), time.Since(start).Milliseconds())
	}
	return buf.Bytes(), nil
}
