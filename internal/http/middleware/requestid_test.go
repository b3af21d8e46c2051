package middleware

import (
	"bytes"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestRequestIDGeneratesUUID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/v1/jobs", nil)
	rec := httptest.NewRecorder()

	RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetRequestID(r.Context()) == "unknown" {
			t.Fatal("request id missing from context")
		}
	})).ServeHTTP(rec, req)

	if _, err := uuid.Parse(rec.Header().Get("X-Request-Id")); err != nil {
		t.Fatalf("generated id %q is not a uuid: %v", rec.Header().Get("X-Request-Id"), err)
	}
}

func TestRequestIDKeepsClientUUID(t *testing.T) {
	id := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/v1/jobs", nil)
	req.Header.Set("X-Request-Id", id)
	rec := httptest.NewRecorder()

	RequestID(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})).ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-Id"); got != id {
		t.Fatalf("want client id %q kept, got %q", id, got)
	}
}

func TestRequestIDReplacesNonUUID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/v1/jobs", nil)
	req.Header.Set("X-Request-Id", "not-a-uuid\nlog injection")
	rec := httptest.NewRecorder()

	RequestID(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})).ServeHTTP(rec, req)

	got := rec.Header().Get("X-Request-Id")
	if _, err := uuid.Parse(got); err != nil {
		t.Fatalf("replacement id %q is not a uuid: %v", got, err)
	}
}

func TestTraceLogsStatus(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(&buf, "", 0)

	req := httptest.NewRequest(http.MethodGet, "/v1/jobs/404", nil)
	rec := httptest.NewRecorder()

	RequestID(Trace(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := w.(http.Flusher); !ok {
			t.Fatal("traced writer must still flush for event streams")
		}
		w.WriteHeader(http.StatusNotFound)
	}))).ServeHTTP(rec, req)

	line := buf.String()
	if !strings.Contains(line, "status=404") {
		t.Fatalf("trace line missing status: %q", line)
	}
	if !strings.Contains(line, "path=/v1/jobs/404") {
		t.Fatalf("trace line missing path: %q", line)
	}
}
