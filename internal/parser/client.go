// Package parser talks to the external llm-parser service that extracts
// invoices out of uploaded files.
package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/minhvt/invoice-dash-back/internal/domain"
)

// ParseRequest is the intake payload describing one stored file.
type ParseRequest struct {
	FileID    int64  `json:"file_id"`
	JobID     int64  `json:"job_id"`
	UserID    string `json:"user_id,omitempty"`
	Name      string `json:"name"`
	SizeBytes int64  `json:"size_bytes"`
	MimeType  string `json:"mime_type"`
	Path      string `json:"path"`
}

type ClientConfig struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *log.Logger
}

type Client struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	logger     *log.Logger
}

func NewClient(config ClientConfig) *Client {
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{}
	}
	return &Client{
		baseURL:    strings.TrimSuffix(strings.TrimSpace(config.BaseURL), "/"),
		timeout:    config.Timeout,
		httpClient: config.HTTPClient,
		logger:     config.Logger,
	}
}

func (c *Client) Available() bool {
	return c.baseURL != ""
}

// NotifyParse hands a stored file to the parser. Intake is fire-and-forget
// from the caller's perspective: failures are logged and returned, never
// retried here, and the upload flow does not roll back on them.
func (c *Client) NotifyParse(ctx context.Context, file domain.File) error {
	if !c.Available() {
		if c.logger != nil {
			c.logger.Printf("parser not configured, skipping intake file_id=%d", file.ID)
		}
		return nil
	}

	payload, err := json.Marshal(ParseRequest{
		FileID:    file.ID,
		JobID:     file.JobID,
		UserID:    file.UserID,
		Name:      file.Name,
		SizeBytes: file.SizeBytes,
		MimeType:  file.MimeType,
		Path:      file.Path,
	})
	if err != nil {
		return fmt.Errorf("encode parse request: %w", err)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	request, err := http.NewRequestWithContext(timeoutCtx, http.MethodPost, c.baseURL+"/llm-parser/parse", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create parse request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := c.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("parser transport error: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(response.Body, 512))
		return fmt.Errorf("parser rejected intake: status %d: %s", response.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}
