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

type PostgresInvoicesRepository struct {
	pool      *pgxpool.Pool
	publisher feed.Publisher
	logger    *log.Logger
}

func NewPostgresInvoicesRepository(pool *pgxpool.Pool, publisher feed.Publisher, logger *log.Logger) *PostgresInvoicesRepository {
	return &PostgresInvoicesRepository{pool: pool, publisher: publisher, logger: logger}
}

const invoiceColumns = `id, file_id, invoice_number, invoice_symbol, tax_code, total_tax, total_bill,
		status, is_valid, validity_message, validity_checked_at, created_at, updated_at`

func (r *PostgresInvoicesRepository) CreateInvoice(ctx context.Context, invoice *domain.Invoice) error {
	now := time.Now().UTC()
	err := r.pool.QueryRow(ctx, `
		INSERT INTO invoices (file_id, invoice_number, invoice_symbol, tax_code, total_tax, total_bill,
			status, is_valid, validity_message, validity_checked_at, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$11)
		RETURNING id
	`,
		invoice.FileID,
		invoice.InvoiceNumber,
		invoice.InvoiceSymbol,
		invoice.TaxCode,
		invoice.TotalTax,
		invoice.TotalBill,
		string(invoice.Status),
		invoice.IsValid,
		invoice.ValidityMessage,
		invoice.ValidityCheckedAt,
		now,
	).Scan(&invoice.ID)
	if err != nil {
		return fmt.Errorf("insert invoice: %w", err)
	}
	invoice.CreatedAt = now
	invoice.UpdatedAt = now

	announce(ctx, r.publisher, r.logger, domain.CollectionInvoices, domain.EventInsert, invoice, nil)
	return nil
}

func (r *PostgresInvoicesRepository) GetInvoice(ctx context.Context, id int64) (*domain.Invoice, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id)
	invoice, err := scanInvoice(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query invoice: %w", err)
	}
	return invoice, nil
}

func (r *PostgresInvoicesRepository) UpdateInvoice(ctx context.Context, invoice *domain.Invoice) error {
	old, err := r.GetInvoice(ctx, invoice.ID)
	if err != nil {
		return err
	}

	invoice.UpdatedAt = time.Now().UTC()
	command, err := r.pool.Exec(ctx, `
		UPDATE invoices
		SET invoice_number = $2,
			invoice_symbol = $3,
			tax_code = $4,
			total_tax = $5,
			total_bill = $6,
			status = $7,
			is_valid = $8,
			validity_message = $9,
			validity_checked_at = $10,
			updated_at = $11
		WHERE id = $1
	`,
		invoice.ID,
		invoice.InvoiceNumber,
		invoice.InvoiceSymbol,
		invoice.TaxCode,
		invoice.TotalTax,
		invoice.TotalBill,
		string(invoice.Status),
		invoice.IsValid,
		invoice.ValidityMessage,
		invoice.ValidityCheckedAt,
		invoice.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update invoice: %w", err)
	}
	if command.RowsAffected() == 0 {
		return ErrNotFound
	}

	announce(ctx, r.publisher, r.logger, domain.CollectionInvoices, domain.EventUpdate, invoice, old)
	return nil
}

func (r *PostgresInvoicesRepository) ListInvoicesByFile(ctx context.Context, fileID int64) ([]domain.Invoice, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+invoiceColumns+`
		FROM invoices
		WHERE file_id = $1
		ORDER BY updated_at DESC, id DESC
	`, fileID)
	if err != nil {
		return nil, fmt.Errorf("list invoices by file: %w", err)
	}
	defer rows.Close()
	return collectInvoices(rows)
}

func (r *PostgresInvoicesRepository) ListInvoices(ctx context.Context) ([]domain.Invoice, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT ` + invoiceColumns + `
		FROM invoices
		ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()
	return collectInvoices(rows)
}

func collectInvoices(rows pgx.Rows) ([]domain.Invoice, error) {
	invoices := make([]domain.Invoice, 0)
	for rows.Next() {
		invoice, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		invoices = append(invoices, *invoice)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate invoices: %w", rows.Err())
	}
	return invoices, nil
}

func scanInvoice(row pgx.Row) (*domain.Invoice, error) {
	var (
		invoice domain.Invoice
		status  string
	)
	err := row.Scan(
		&invoice.ID,
		&invoice.FileID,
		&invoice.InvoiceNumber,
		&invoice.InvoiceSymbol,
		&invoice.TaxCode,
		&invoice.TotalTax,
		&invoice.TotalBill,
		&status,
		&invoice.IsValid,
		&invoice.ValidityMessage,
		&invoice.ValidityCheckedAt,
		&invoice.CreatedAt,
		&invoice.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	invoice.Status = domain.Status(status)
	return &invoice, nil
}
