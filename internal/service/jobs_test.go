package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/minhvt/invoice-dash-back/internal/domain"
	"github.com/minhvt/invoice-dash-back/internal/parser"
	"github.com/minhvt/invoice-dash-back/internal/storage"
)

func pdfUpload() domain.LocalFile {
	content := []byte("%PDF-1.4 test document")
	return domain.LocalFile{
		UserID:    "u-1",
		Name:      "scan.pdf",
		SizeBytes: int64(len(content)),
		MimeType:  "application/pdf",
		Content:   content,
	}
}

func TestCreateJobWithUploadStoresEverything(t *testing.T) {
	repos := newServiceRepos(t)
	baseDir := t.TempDir()
	store := storage.NewFSStore(baseDir, "https://files.example.com")
	parserClient := parser.NewClient(parser.ClientConfig{}) // unconfigured, intake is a no-op

	svc := NewJobsService(repos.jobs, repos.files, store, parserClient, testLogger())

	job, file, err := svc.CreateJobWithUpload(context.Background(), pdfUpload())
	if err != nil {
		t.Fatalf("create job with upload: %v", err)
	}

	if job.ID == 0 || job.Status != domain.StatusPending {
		t.Fatalf("unexpected job %+v", job)
	}
	if file.JobID != job.ID || file.Status != domain.StatusPending {
		t.Fatalf("unexpected file %+v", file)
	}
	if file.MimeType != "application/pdf" || file.SizeBytes == 0 {
		t.Fatalf("upload metadata lost: %+v", file)
	}
	if file.FullPath == file.Path {
		t.Fatalf("expected public url to be prefixed, got %q", file.FullPath)
	}

	onDisk, err := os.ReadFile(filepath.Join(baseDir, filepath.FromSlash(file.Path)))
	if err != nil {
		t.Fatalf("stored object missing: %v", err)
	}
	if string(onDisk) != "%PDF-1.4 test document" {
		t.Fatalf("stored object corrupted: %q", onDisk)
	}
}

func TestCreateJobWithUploadRejectsUnsupportedType(t *testing.T) {
	repos := newServiceRepos(t)
	store := storage.NewFSStore(t.TempDir(), "")
	svc := NewJobsService(repos.jobs, repos.files, store, parser.NewClient(parser.ClientConfig{}), testLogger())

	upload := pdfUpload()
	upload.MimeType = "application/zip"

	if _, _, err := svc.CreateJobWithUpload(context.Background(), upload); !errors.Is(err, ErrUnsupportedFileType) {
		t.Fatalf("expected ErrUnsupportedFileType, got %v", err)
	}

	jobs, _ := repos.jobs.ListJobs(context.Background())
	if len(jobs) != 0 {
		t.Fatalf("rejected upload must not create a job, got %+v", jobs)
	}
}

func TestCreateJobWithUploadNotifiesParser(t *testing.T) {
	repos := newServiceRepos(t)
	store := storage.NewFSStore(t.TempDir(), "")

	notified := make(chan parser.ParseRequest, 1)
	parserBackend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/llm-parser/parse" {
			t.Errorf("unexpected parser path %s", r.URL.Path)
		}
		var request parser.ParseRequest
		_ = json.NewDecoder(r.Body).Decode(&request)
		notified <- request
		w.WriteHeader(http.StatusAccepted)
	}))
	defer parserBackend.Close()

	parserClient := parser.NewClient(parser.ClientConfig{BaseURL: parserBackend.URL, Timeout: time.Second})
	svc := NewJobsService(repos.jobs, repos.files, store, parserClient, testLogger())

	job, file, err := svc.CreateJobWithUpload(context.Background(), pdfUpload())
	if err != nil {
		t.Fatalf("create job with upload: %v", err)
	}

	select {
	case request := <-notified:
		if request.FileID != file.ID {
			t.Fatalf("parser notified about wrong file: %+v", request)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("parser was never notified")
	}

	// The intake marks both rows processing once the parser accepts the file.
	deadline := time.Now().Add(2 * time.Second)
	for {
		reloaded, err := repos.jobs.GetJob(context.Background(), job.ID)
		if err != nil {
			t.Fatalf("reload job: %v", err)
		}
		if reloaded.Status == domain.StatusProcessing {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("job never reached processing, last status %s", reloaded.Status)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
