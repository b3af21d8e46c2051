package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path"
	"time"

	"github.com/google/uuid"

	"github.com/minhvt/invoice-dash-back/internal/domain"
	"github.com/minhvt/invoice-dash-back/internal/parser"
	"github.com/minhvt/invoice-dash-back/internal/repository"
	"github.com/minhvt/invoice-dash-back/internal/storage"
)

var ErrUnsupportedFileType = errors.New("unsupported file type")

// The dashboard accepts the dropzone's types only.
var acceptedMimeTypes = map[string]struct{}{
	"application/pdf": {},
	"image/jpeg":      {},
	"image/png":       {},
}

type JobsService struct {
	jobs    repository.JobsRepository
	files   repository.FilesRepository
	store   storage.Store
	parser  *parser.Client
	logger  *log.Logger
	timeout time.Duration
}

func NewJobsService(
	jobs repository.JobsRepository,
	files repository.FilesRepository,
	store storage.Store,
	parserClient *parser.Client,
	logger *log.Logger,
) *JobsService {
	return &JobsService{
		jobs:    jobs,
		files:   files,
		store:   store,
		parser:  parserClient,
		logger:  logger,
		timeout: 30 * time.Second,
	}
}

// CreateJobWithUpload runs the whole intake for one dropped file: a pending
// job row, the stored blob, the file row, then a fire-and-forget parser
// notify. A parser failure never rolls the upload back; the rows stay pending
// and the error is logged only.
func (s *JobsService) CreateJobWithUpload(ctx context.Context, upload domain.LocalFile) (*domain.Job, *domain.File, error) {
	if _, ok := acceptedMimeTypes[upload.MimeType]; !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnsupportedFileType, upload.MimeType)
	}

	job := &domain.Job{
		UserID: upload.UserID,
		Name:   "New Job " + time.Now().UTC().Format(time.RFC3339),
		Status: domain.StatusPending,
	}
	if err := s.jobs.CreateJob(ctx, job); err != nil {
		return nil, nil, fmt.Errorf("create job: %w", err)
	}

	key := fmt.Sprintf("jobs/%d/%s-%s", job.ID, uuid.NewString(), path.Base(upload.Name))
	stored, err := s.store.Upload(ctx, key, upload.Content)
	if err != nil {
		return nil, nil, fmt.Errorf("store upload: %w", err)
	}

	file := &domain.File{
		JobID:     job.ID,
		UserID:    upload.UserID,
		Name:      upload.Name,
		SizeBytes: upload.SizeBytes,
		MimeType:  upload.MimeType,
		Status:    domain.StatusPending,
		Path:      stored.Path,
		FullPath:  stored.FullPath,
	}
	if err := s.files.CreateFile(ctx, file); err != nil {
		return nil, nil, fmt.Errorf("create file: %w", err)
	}

	go s.notifyParser(*job, *file)

	return job, file, nil
}

func (s *JobsService) GetJob(ctx context.Context, id int64) (*domain.Job, error) {
	return s.jobs.GetJob(ctx, id)
}

func (s *JobsService) ListJobs(ctx context.Context) ([]domain.Job, error) {
	return s.jobs.ListJobs(ctx)
}

// notifyParser runs detached from the request: the upload response does not
// wait on the parser, and a torn-down caller does not cancel the intake.
func (s *JobsService) notifyParser(job domain.Job, file domain.File) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if err := s.parser.NotifyParse(ctx, file); err != nil {
		if s.logger != nil {
			s.logger.Printf("parser intake failed file_id=%d err=%v", file.ID, err)
		}
		return
	}
	if !s.parser.Available() {
		return
	}

	file.Status = domain.StatusProcessing
	if err := s.files.UpdateFile(ctx, &file); err != nil && s.logger != nil {
		s.logger.Printf("mark file processing failed file_id=%d err=%v", file.ID, err)
	}
	job.Status = domain.StatusProcessing
	if err := s.jobs.UpdateJob(ctx, &job); err != nil && s.logger != nil {
		s.logger.Printf("mark job processing failed job_id=%d err=%v", job.ID, err)
	}
}
