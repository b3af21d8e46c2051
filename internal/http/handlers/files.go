package handlers

import (
	"errors"
	"net/http"

	"github.com/minhvt/invoice-dash-back/internal/repository"
)

// Files handles the /v1/files collection: GET lists files, optionally scoped
// to one job, DELETE removes a batch of files in one call.
func (api *API) Files(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		api.listFiles(w, r)
	case http.MethodDelete:
		api.bulkDeleteFiles(w, r)
	default:
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	}
}

func (api *API) listFiles(w http.ResponseWriter, r *http.Request) {
	jobID, err := parseQueryID(r, "job_id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "job_id must be a positive integer")
		return
	}

	files, err := api.filesService.ListFiles(r.Context(), repository.FileFilter{JobID: jobID})
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal_error", "failed to list files")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"files": files})
}

type bulkDeleteRequest struct {
	IDs []int64 `json:"ids"`
}

func (api *API) bulkDeleteFiles(w http.ResponseWriter, r *http.Request) {
	var payload bulkDeleteRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "body must be {\"ids\": [..]}")
		return
	}
	if len(payload.IDs) == 0 {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "ids must not be empty")
		return
	}

	deleted, err := api.filesService.BulkDelete(r.Context(), payload.IDs)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal_error", "failed to delete files")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": deleted})
}

// FileByID handles /v1/files/{id}, /v1/files/{id}/invoices and the live
// variant /v1/files/{id}/invoices/live.
func (api *API) FileByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	id, subPath, err := parsePathID(r.URL.Path, "/v1/files/")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "file id must be a positive integer")
		return
	}

	switch subPath {
	case "":
		file, err := api.filesService.GetFile(r.Context(), id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				writeError(w, r, http.StatusNotFound, "not_found", "file not found")
				return
			}
			writeError(w, r, http.StatusInternalServerError, "internal_error", "failed to load file")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"file": file})
	case "invoices":
		invoices, err := api.invoicesService.ListInvoicesByFile(r.Context(), id)
		if err != nil {
			writeError(w, r, http.StatusInternalServerError, "internal_error", "failed to list invoices")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"invoices": invoices})
	case "invoices/live":
		api.liveInvoices(w, r, id)
	default:
		writeError(w, r, http.StatusNotFound, "not_found", "unknown file resource")
	}
}
