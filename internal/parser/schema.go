package parser

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// CallbackPayload is what the parser posts back once it has extracted the
// invoices out of a file.
type CallbackPayload struct {
	FileID   int64             `json:"file_id"`
	Status   string            `json:"status"`
	Error    string            `json:"error,omitempty"`
	Invoices []CallbackInvoice `json:"invoices,omitempty"`
}

type CallbackInvoice struct {
	InvoiceNumber string  `json:"invoice_number"`
	InvoiceSymbol string  `json:"invoice_symbol"`
	TaxCode       string  `json:"tax_code"`
	TotalTax      float64 `json:"total_tax"`
	TotalBill     float64 `json:"total_bill"`
}

// buildCallbackSchema returns the JSON-Schema the callback payload must
// satisfy before any row is written.
func buildCallbackSchema() map[string]any {
	invoiceProps := map[string]any{
		"invoice_number": map[string]any{"type": "string", "minLength": 1},
		"invoice_symbol": map[string]any{"type": "string", "minLength": 2},
		"tax_code":       map[string]any{"type": "string", "minLength": 1},
		"total_tax":      map[string]any{"type": "number", "minimum": 0},
		"total_bill":     map[string]any{"type": "number", "minimum": 0},
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"file_id": map[string]any{"type": "integer", "minimum": 1},
			"status":  map[string]any{"type": "string", "enum": []string{"completed", "failed"}},
			"error":   map[string]any{"type": "string"},
			"invoices": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":                 "object",
					"additionalProperties": false,
					"properties":           invoiceProps,
					"required":             []string{"invoice_number", "invoice_symbol", "tax_code", "total_bill"},
				},
			},
		},
		"required": []string{"file_id", "status"},
	}
}

// ValidateCallback checks raw callback bytes against the schema.
func ValidateCallback(data []byte) error {
	encoded, err := json.Marshal(buildCallbackSchema())
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("callback.json", bytes.NewReader(encoded)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("callback.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		return fmt.Errorf("unmarshal callback: %w", err)
	}
	if err := schema.Validate(value); err != nil {
		return fmt.Errorf("callback does not match schema: %w", err)
	}
	return nil
}
