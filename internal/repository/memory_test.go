package repository

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/minhvt/invoice-dash-back/internal/domain"
	"github.com/minhvt/invoice-dash-back/internal/feed"
)

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func collectEvents(t *testing.T, f *feed.LocalFeed, collection domain.Collection) <-chan domain.ChangeEvent {
	t.Helper()
	events := make(chan domain.ChangeEvent, 32)
	sub, err := f.Subscribe(context.Background(), feed.Topic{Collection: collection}, func(event domain.ChangeEvent) {
		events <- event
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	t.Cleanup(sub.Stop)
	return events
}

func nextEvent(t *testing.T, events <-chan domain.ChangeEvent) domain.ChangeEvent {
	t.Helper()
	select {
	case event := <-events:
		return event
	case <-time.After(time.Second):
		t.Fatalf("timeout waiting for change event")
		return domain.ChangeEvent{}
	}
}

func TestMemoryJobsCRUDAnnouncesChanges(t *testing.T) {
	f := feed.NewLocalFeed(32, testLogger())
	repo := NewMemoryJobsRepository(f, testLogger())
	events := collectEvents(t, f, domain.CollectionJobs)
	ctx := context.Background()

	job := &domain.Job{Name: "drop 1", Status: domain.StatusPending}
	if err := repo.CreateJob(ctx, job); err != nil {
		t.Fatalf("create: %v", err)
	}
	if job.ID == 0 || job.CreatedAt.IsZero() {
		t.Fatalf("expected assigned id and timestamps, got %+v", job)
	}

	insert := nextEvent(t, events)
	if insert.Type != domain.EventInsert || insert.NewID() != job.ID {
		t.Fatalf("unexpected insert event %+v", insert)
	}

	job.Status = domain.StatusProcessing
	if err := repo.UpdateJob(ctx, job); err != nil {
		t.Fatalf("update: %v", err)
	}
	update := nextEvent(t, events)
	if update.Type != domain.EventUpdate || update.OldID() != job.ID {
		t.Fatalf("unexpected update event %+v", update)
	}

	loaded, err := repo.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if loaded.Status != domain.StatusProcessing {
		t.Fatalf("update not persisted: %+v", loaded)
	}
}

func TestMemoryJobsGetUnknownReturnsNotFound(t *testing.T) {
	repo := NewMemoryJobsRepository(feed.NewLocalFeed(8, testLogger()), testLogger())

	if _, err := repo.GetJob(context.Background(), 99); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := repo.UpdateJob(context.Background(), &domain.Job{ID: 99}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on update, got %v", err)
	}
}

func TestMemoryJobsListNewestFirst(t *testing.T) {
	repo := NewMemoryJobsRepository(feed.NewLocalFeed(8, testLogger()), testLogger())
	ctx := context.Background()

	for _, name := range []string{"a", "b", "c"} {
		if err := repo.CreateJob(ctx, &domain.Job{Name: name, Status: domain.StatusPending}); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
	}

	jobs, err := repo.ListJobs(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(jobs) != 3 {
		t.Fatalf("expected 3 jobs, got %d", len(jobs))
	}
	if jobs[0].Name != "c" || jobs[2].Name != "a" {
		t.Fatalf("expected newest first, got %+v", jobs)
	}
}

func TestMemoryFilesFilterAndBulkDelete(t *testing.T) {
	f := feed.NewLocalFeed(32, testLogger())
	repo := NewMemoryFilesRepository(f, testLogger())
	events := collectEvents(t, f, domain.CollectionFiles)
	ctx := context.Background()

	ids := make([]int64, 0, 3)
	for i, jobID := range []int64{1, 1, 2} {
		file := &domain.File{JobID: jobID, Name: "doc", Status: domain.StatusPending, SizeBytes: int64(i + 1)}
		if err := repo.CreateFile(ctx, file); err != nil {
			t.Fatalf("create file: %v", err)
		}
		ids = append(ids, file.ID)
		nextEvent(t, events)
	}

	scoped, err := repo.ListFiles(ctx, FileFilter{JobID: 1})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(scoped) != 2 {
		t.Fatalf("expected 2 files for job 1, got %d", len(scoped))
	}

	// One real id, one unknown: the count reflects only actual deletions.
	deleted, err := repo.DeleteFiles(ctx, []int64{ids[0], 999})
	if err != nil {
		t.Fatalf("bulk delete: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected 1 deletion, got %d", deleted)
	}

	deleteEvent := nextEvent(t, events)
	if deleteEvent.Type != domain.EventDelete || deleteEvent.EntityID() != ids[0] {
		t.Fatalf("unexpected delete event %+v", deleteEvent)
	}

	if _, err := repo.GetFile(ctx, ids[0]); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected deleted file to be gone, got %v", err)
	}
}

func TestMemoryInvoicesListByFile(t *testing.T) {
	f := feed.NewLocalFeed(32, testLogger())
	repo := NewMemoryInvoicesRepository(f, testLogger())
	ctx := context.Background()

	first := &domain.Invoice{FileID: 7, InvoiceNumber: "0001", Status: domain.StatusCompleted}
	second := &domain.Invoice{FileID: 7, InvoiceNumber: "0002", Status: domain.StatusCompleted}
	other := &domain.Invoice{FileID: 9, InvoiceNumber: "0009", Status: domain.StatusCompleted}
	for _, invoice := range []*domain.Invoice{first, second, other} {
		if err := repo.CreateInvoice(ctx, invoice); err != nil {
			t.Fatalf("create invoice: %v", err)
		}
	}

	// Touch the first invoice so it carries the freshest updated_at.
	first.InvoiceNumber = "0001-rev"
	if err := repo.UpdateInvoice(ctx, first); err != nil {
		t.Fatalf("update invoice: %v", err)
	}

	invoices, err := repo.ListInvoicesByFile(ctx, 7)
	if err != nil {
		t.Fatalf("list by file: %v", err)
	}
	if len(invoices) != 2 {
		t.Fatalf("expected 2 invoices for file 7, got %d", len(invoices))
	}
	if invoices[0].InvoiceNumber != "0001-rev" {
		t.Fatalf("expected most recently updated first, got %+v", invoices)
	}

	all, err := repo.ListInvoices(ctx)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 invoices, got %d", len(all))
	}
}
