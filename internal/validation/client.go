// Package validation produces validity verdicts for invoices by orchestrating
// the captcha-issuing backend and the government lookup endpoint.
package validation

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/minhvt/invoice-dash-back/internal/domain"
)

var (
	ErrChallengeUnavailable = errors.New("captcha challenge unavailable")
	ErrValidationFailed     = errors.New("validity check failed")
	ErrSaveFailed           = errors.New("invoice save failed")
	ErrMissingFields        = errors.New("invoice is missing lookup fields")
)

const (
	verdictValid   = "Invoice is valid"
	verdictInvalid = "Invoice is invalid"
	verdictError   = "Error"
)

type ClientConfig struct {
	// BaseURL is the validation backend issuing challenges and storing saves.
	BaseURL string
	// LookupURL is the fixed government guest-invoice endpoint.
	LookupURL string
	Timeout   time.Duration
	// HTTPClient talks to the validation backend and verifies certificates
	// normally. Overridable in tests.
	HTTPClient *http.Client
	// LookupClient talks to the lookup endpoint only. When nil a client is
	// built with certificate verification disabled: the upstream government
	// service presents a non-standard chain. This relaxation is scoped to
	// this single client and is not a general policy.
	LookupClient *http.Client
	Logger       *log.Logger
}

type Client struct {
	baseURL      string
	lookupURL    string
	timeout      time.Duration
	httpClient   *http.Client
	lookupClient *http.Client
	logger       *log.Logger
}

func NewClient(config ClientConfig) *Client {
	if config.Timeout <= 0 {
		config.Timeout = 20 * time.Second
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{}
	}
	if config.LookupClient == nil {
		config.LookupClient = &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
		}
	}

	return &Client{
		baseURL:      strings.TrimSuffix(strings.TrimSpace(config.BaseURL), "/"),
		lookupURL:    strings.TrimSpace(config.LookupURL),
		timeout:      config.Timeout,
		httpClient:   config.HTTPClient,
		lookupClient: config.LookupClient,
		logger:       config.Logger,
	}
}

// CanSave reports whether a validation backend is configured to receive
// saved invoices. Without one, edits stay local.
func (c *Client) CanSave() bool {
	return c.baseURL != ""
}

// RequestChallenge fetches a fresh one-time captcha pair. A caller must not
// proceed to a lookup without one.
func (c *Client) RequestChallenge(ctx context.Context) (domain.Challenge, error) {
	if c.baseURL == "" {
		return domain.Challenge{}, fmt.Errorf("%w: validation backend not configured", ErrChallengeUnavailable)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	request, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, c.baseURL+"/captcha/generate", nil)
	if err != nil {
		return domain.Challenge{}, fmt.Errorf("%w: %w", ErrChallengeUnavailable, err)
	}
	request.Header.Set("Accept", "application/json")

	response, err := c.httpClient.Do(request)
	if err != nil {
		return domain.Challenge{}, fmt.Errorf("%w: %w", ErrChallengeUnavailable, err)
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode > 299 {
		return domain.Challenge{}, fmt.Errorf("%w: status %d", ErrChallengeUnavailable, response.StatusCode)
	}

	var challenge domain.Challenge
	if err := json.NewDecoder(response.Body).Decode(&challenge); err != nil {
		return domain.Challenge{}, fmt.Errorf("%w: decode challenge: %w", ErrChallengeUnavailable, err)
	}
	if challenge.Key == "" {
		return domain.Challenge{}, fmt.Errorf("%w: empty challenge key", ErrChallengeUnavailable)
	}
	return challenge, nil
}

// LookupParams derives the wire query parameters for one lookup. All values
// are strings on the wire; the derivation is order-independent.
func LookupParams(invoice domain.Invoice, challenge domain.Challenge) (url.Values, error) {
	if invoice.InvoiceSymbol == "" || invoice.TaxCode == "" || invoice.InvoiceNumber == "" || invoice.TotalBill == 0 {
		return nil, ErrMissingFields
	}

	seriesPrefix := invoice.InvoiceSymbol[:1]
	params := url.Values{}
	params.Set("khmshdon", seriesPrefix)
	params.Set("hdon", "0"+seriesPrefix)
	params.Set("nbmst", invoice.TaxCode)
	params.Set("khhdon", invoice.InvoiceSymbol[1:])
	params.Set("shdon", invoice.InvoiceNumber)
	params.Set("tgtttbso", strconv.FormatFloat(invoice.TotalBill, 'f', -1, 64))
	params.Set("cvalue", challenge.CaptchaText)
	params.Set("ckey", challenge.Key)
	return params, nil
}

// LookupInvoice performs one unauthenticated lookup call and interprets the
// response into a verdict. A transport failure is an error; any HTTP response
// becomes a verdict. No retry either way.
func (c *Client) LookupInvoice(ctx context.Context, invoice domain.Invoice, challenge domain.Challenge) (domain.Verdict, error) {
	params, err := LookupParams(invoice, challenge)
	if err != nil {
		return domain.Verdict{}, err
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	request, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, c.lookupURL+"?"+params.Encode(), nil)
	if err != nil {
		return domain.Verdict{}, fmt.Errorf("create lookup request: %w", err)
	}
	request.Header.Set("Accept", "application/json")

	response, err := c.lookupClient.Do(request)
	if err != nil {
		return domain.Verdict{}, fmt.Errorf("lookup transport error: %w", err)
	}
	defer response.Body.Close()

	checkedAt := time.Now().UTC()
	if response.StatusCode != http.StatusOK {
		return domain.Verdict{Valid: false, Message: verdictError, CheckedAt: checkedAt}, nil
	}

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return domain.Verdict{}, fmt.Errorf("read lookup body: %w", err)
	}

	// The invoice exists upstream exactly when the body carries the "hdon"
	// marker field.
	var decoded map[string]json.RawMessage
	if err := json.Unmarshal(body, &decoded); err == nil {
		if _, ok := decoded["hdon"]; ok {
			return domain.Verdict{Valid: true, Message: verdictValid, CheckedAt: checkedAt}, nil
		}
	}
	return domain.Verdict{Valid: false, Message: verdictInvalid, CheckedAt: checkedAt}, nil
}

// CheckValidity composes RequestChallenge and LookupInvoice. Either failure
// surfaces as ErrValidationFailed with the cause attached; there is never a
// partial verdict.
func (c *Client) CheckValidity(ctx context.Context, invoice domain.Invoice) (domain.Verdict, error) {
	challenge, err := c.RequestChallenge(ctx)
	if err != nil {
		return domain.Verdict{}, fmt.Errorf("%w: %w", ErrValidationFailed, err)
	}

	verdict, err := c.LookupInvoice(ctx, invoice, challenge)
	if err != nil {
		return domain.Verdict{}, fmt.Errorf("%w: %w", ErrValidationFailed, err)
	}

	if c.logger != nil {
		c.logger.Printf("validity check invoice_id=%d valid=%t message=%q", invoice.ID, verdict.Valid, verdict.Message)
	}
	return verdict, nil
}

type saveEnvelope struct {
	Data domain.Invoice `json:"data"`
}

// SaveInvoice forwards a possibly user-edited invoice to the validation
// backend's save endpoint and returns the canonical stored copy. On failure
// the caller keeps its local copy; nothing is lost.
func (c *Client) SaveInvoice(ctx context.Context, invoice domain.Invoice) (*domain.Invoice, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("%w: validation backend not configured", ErrSaveFailed)
	}

	payload, err := json.Marshal(invoice)
	if err != nil {
		return nil, fmt.Errorf("%w: encode invoice: %w", ErrSaveFailed, err)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	request, err := http.NewRequestWithContext(timeoutCtx, http.MethodPost, c.baseURL+"/invoice/save", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Accept", "application/json")

	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d", ErrSaveFailed, response.StatusCode)
	}

	var envelope saveEnvelope
	if err := json.NewDecoder(response.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("%w: decode saved invoice: %w", ErrSaveFailed, err)
	}
	saved := envelope.Data
	return &saved, nil
}
