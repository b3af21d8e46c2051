package domain

import "time"

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Job groups the files dropped in a single upload action.
type Job struct {
	ID          int64     `json:"id"`
	UserID      string    `json:"user_id,omitempty"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// LocalFile is an upload that has not been persisted yet. It is a distinct
// type from File on purpose: a File always refers to a stored row with an id
// and storage paths, a LocalFile never has either.
type LocalFile struct {
	UserID    string
	Name      string
	SizeBytes int64
	MimeType  string
	Content   []byte
}

// File is a stored upload row, owned by a job.
type File struct {
	ID        int64     `json:"id"`
	JobID     int64     `json:"job_id,omitempty"`
	UserID    string    `json:"user_id,omitempty"`
	Name      string    `json:"name"`
	SizeBytes int64     `json:"size_bytes"`
	MimeType  string    `json:"mime_type"`
	Status    Status    `json:"status"`
	Path      string    `json:"path,omitempty"`
	FullPath  string    `json:"full_path,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Invoice is one invoice extracted from a file. InvoiceSymbol is a compound
// identifier: a one-character series prefix followed by the series remainder.
type Invoice struct {
	ID                int64      `json:"id"`
	FileID            int64      `json:"file_id,omitempty"`
	InvoiceNumber     string     `json:"invoice_number"`
	InvoiceSymbol     string     `json:"invoice_symbol"`
	TaxCode           string     `json:"tax_code"`
	TotalTax          float64    `json:"total_tax"`
	TotalBill         float64    `json:"total_bill"`
	Status            Status     `json:"status"`
	IsValid           *bool      `json:"is_valid,omitempty"`
	ValidityMessage   string     `json:"validity_message,omitempty"`
	ValidityCheckedAt *time.Time `json:"validity_checked_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}
