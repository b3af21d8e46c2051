package handlers

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/minhvt/invoice-dash-back/internal/domain"
	"github.com/minhvt/invoice-dash-back/internal/repository"
	"github.com/minhvt/invoice-dash-back/internal/service"
)

// Jobs handles the /v1/jobs collection: GET lists jobs newest first, POST
// creates a job from one uploaded document.
func (api *API) Jobs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		api.listJobs(w, r)
	case http.MethodPost:
		api.createJob(w, r)
	default:
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	}
}

func (api *API) listJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := api.jobsService.ListJobs(r.Context())
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal_error", "failed to list jobs")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobs": jobs})
}

func (api *API) createJob(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, api.maxUploadBytes)
	if err := r.ParseMultipartForm(api.maxUploadBytes); err != nil {
		writeError(w, r, http.StatusRequestEntityTooLarge, "payload_too_large", "upload exceeds size limit")
		return
	}

	part, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "file field is required")
		return
	}
	defer part.Close()

	content, err := io.ReadAll(part)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "failed to read upload")
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = http.DetectContentType(content)
	}

	upload := domain.LocalFile{
		UserID:    strings.TrimSpace(r.FormValue("user_id")),
		Name:      filepath.Base(header.Filename),
		SizeBytes: int64(len(content)),
		MimeType:  mimeType,
		Content:   content,
	}

	job, file, err := api.jobsService.CreateJobWithUpload(r.Context(), upload)
	if err != nil {
		if errors.Is(err, service.ErrUnsupportedFileType) {
			writeError(w, r, http.StatusUnsupportedMediaType, "unsupported_file_type", "only pdf, jpeg and png uploads are accepted")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "internal_error", "failed to create job")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"job": job, "file": file})
}

// JobByID handles /v1/jobs/{id} and /v1/jobs/{id}/files.
func (api *API) JobByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	id, subPath, err := parsePathID(r.URL.Path, "/v1/jobs/")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "job id must be a positive integer")
		return
	}

	switch subPath {
	case "":
		job, err := api.jobsService.GetJob(r.Context(), id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				writeError(w, r, http.StatusNotFound, "not_found", "job not found")
				return
			}
			writeError(w, r, http.StatusInternalServerError, "internal_error", "failed to load job")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"job": job})
	case "files":
		files, err := api.filesService.ListFiles(r.Context(), repository.FileFilter{JobID: id})
		if err != nil {
			writeError(w, r, http.StatusInternalServerError, "internal_error", "failed to list files")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"files": files})
	default:
		writeError(w, r, http.StatusNotFound, "not_found", "unknown job resource")
	}
}
