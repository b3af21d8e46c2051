package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/minhvt/invoice-dash-back/internal/parser"
	"github.com/minhvt/invoice-dash-back/internal/repository"
)

// ParserCallback receives extraction results from the document parser:
// POST /v1/parser/callback. The payload is schema-checked before anything
// touches the tables.
func (api *API) ParserCallback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "failed to read callback body")
		return
	}

	if err := parser.ValidateCallback(body); err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, "invalid_callback", "callback payload failed schema validation")
		return
	}

	var payload parser.CallbackPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "callback payload is not valid JSON")
		return
	}

	if err := api.filesService.ApplyParserCallback(r.Context(), payload); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "not_found", "file not found")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "internal_error", "failed to apply callback")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"status": "applied"})
}
