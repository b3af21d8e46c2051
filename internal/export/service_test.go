package export

import (
	"bytes"
	"context"
	"io"
	"log"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/minhvt/invoice-dash-back/internal/domain"
	"github.com/minhvt/invoice-dash-back/internal/feed"
	"github.com/minhvt/invoice-dash-back/internal/repository"
)

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestInvoicesXLSX(t *testing.T) {
	f := feed.NewLocalFeed(8, testLogger())
	files := repository.NewMemoryFilesRepository(f, testLogger())
	invoices := repository.NewMemoryInvoicesRepository(f, testLogger())
	ctx := context.Background()

	file := &domain.File{Name: "scan.pdf", Status: domain.StatusCompleted}
	if err := files.CreateFile(ctx, file); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	valid := true
	invoice := &domain.Invoice{
		FileID:        file.ID,
		InvoiceNumber: "0000123",
		InvoiceSymbol: "K23ABC",
		TaxCode:       "0312345678",
		TotalTax:      100000,
		TotalBill:     1250000,
		Status:        domain.StatusCompleted,
		IsValid:       &valid,
	}
	if err := invoices.CreateInvoice(ctx, invoice); err != nil {
		t.Fatalf("seed invoice: %v", err)
	}

	svc := NewService(invoices, files, testLogger())

	workbook, err := svc.InvoicesXLSX(ctx, 0)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	book, err := excelize.OpenReader(bytes.NewReader(workbook))
	if err != nil {
		t.Fatalf("reopen workbook: %v", err)
	}
	defer book.Close()

	const sheet = "Invoices"
	if got, _ := book.GetCellValue(sheet, "A1"); got != "Invoice Number" {
		t.Fatalf("unexpected header A1 %q", got)
	}
	if got, _ := book.GetCellValue(sheet, "A2"); got != "0000123" {
		t.Fatalf("unexpected invoice number %q", got)
	}
	if got, _ := book.GetCellValue(sheet, "B2"); got != "K23ABC" {
		t.Fatalf("unexpected symbol %q", got)
	}
	if got, _ := book.GetCellValue(sheet, "I2"); got != "scan.pdf" {
		t.Fatalf("expected source file name, got %q", got)
	}
}

func TestInvoicesXLSXScopedToFile(t *testing.T) {
	f := feed.NewLocalFeed(8, testLogger())
	files := repository.NewMemoryFilesRepository(f, testLogger())
	invoices := repository.NewMemoryInvoicesRepository(f, testLogger())
	ctx := context.Background()

	for fileID, number := range map[int64]string{1: "0001", 2: "0002"} {
		invoice := &domain.Invoice{FileID: fileID, InvoiceNumber: number, Status: domain.StatusCompleted}
		if err := invoices.CreateInvoice(ctx, invoice); err != nil {
			t.Fatalf("seed invoice: %v", err)
		}
	}

	svc := NewService(invoices, files, testLogger())

	workbook, err := svc.InvoicesXLSX(ctx, 2)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	book, err := excelize.OpenReader(bytes.NewReader(workbook))
	if err != nil {
		t.Fatalf("reopen workbook: %v", err)
	}
	defer book.Close()

	rows, err := book.GetRows("Invoices")
	if err != nil {
		t.Fatalf("read rows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected header plus one row, got %d rows", len(rows))
	}
	if rows[1][0] != "0002" {
		t.Fatalf("expected the file-2 invoice only, got %+v", rows[1])
	}
}
