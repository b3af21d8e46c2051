package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/minhvt/invoice-dash-back/internal/export"
	"github.com/minhvt/invoice-dash-back/internal/feed"
	"github.com/minhvt/invoice-dash-back/internal/http/middleware"
	"github.com/minhvt/invoice-dash-back/internal/service"
)

var errInvalidPayload = errors.New("invalid payload")

type API struct {
	jobsService     *service.JobsService
	filesService    *service.FilesService
	invoicesService *service.InvoicesService
	exportService   *export.Service
	subscriber      feed.Subscriber
	logger          *log.Logger
	maxUploadBytes  int64
}

type APIConfig struct {
	Jobs           *service.JobsService
	Files          *service.FilesService
	Invoices       *service.InvoicesService
	Export         *export.Service
	Subscriber     feed.Subscriber
	Logger         *log.Logger
	MaxUploadBytes int64
}

func NewAPI(cfg APIConfig) *API {
	maxUploadBytes := cfg.MaxUploadBytes
	if maxUploadBytes <= 0 {
		maxUploadBytes = 25 << 20
	}
	return &API{
		jobsService:     cfg.Jobs,
		filesService:    cfg.Files,
		invoicesService: cfg.Invoices,
		exportService:   cfg.Export,
		subscriber:      cfg.Subscriber,
		logger:          cfg.Logger,
		maxUploadBytes:  maxUploadBytes,
	}
}

type errorPayload struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	RequestID string `json:"request_id"`
}

func writeJSON(w http.ResponseWriter, statusCode int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, r *http.Request, statusCode int, code, message string) {
	payload := errorPayload{RequestID: middleware.GetRequestID(r.Context())}
	payload.Error.Code = code
	payload.Error.Message = message
	writeJSON(w, statusCode, payload)
}

func decodeJSON(r *http.Request, value any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(value); err != nil {
		return errInvalidPayload
	}
	return nil
}

// parsePathID extracts the numeric id and the remaining subpath from a
// request path under prefix, e.g. "/v1/files/7/invoices" -> 7, "invoices".
func parsePathID(path, prefix string) (int64, string, error) {
	rest := strings.TrimPrefix(path, prefix)
	rest = strings.Trim(rest, "/")
	if rest == "" {
		return 0, "", errInvalidPayload
	}

	idPart := rest
	subPath := ""
	if slash := strings.IndexByte(rest, '/'); slash >= 0 {
		idPart = rest[:slash]
		subPath = rest[slash+1:]
	}

	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil || id <= 0 {
		return 0, "", errInvalidPayload
	}
	return id, subPath, nil
}

func parseQueryID(r *http.Request, name string) (int64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidPayload
	}
	return id, nil
}
