package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/minhvt/invoice-dash-back/internal/domain"
	"github.com/minhvt/invoice-dash-back/internal/feed"
	"github.com/minhvt/invoice-dash-back/internal/reconcile"
)

// Events bridges the change feed to the browser as server-sent events:
// GET /v1/events?collection=invoices&file_id=7. The filter column is implied
// by the collection: files filter on job_id, invoices on file_id.
func (api *API) Events(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	topic, err := topicFromQuery(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "collection must be jobs, files or invoices; filters must be positive integers")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, r, http.StatusInternalServerError, "internal_error", "streaming unsupported")
		return
	}

	// Events land in a buffered channel so a slow client never blocks the
	// feed handler; overflow drops the connection, the client reconnects.
	events := make(chan domain.ChangeEvent, 64)
	overflow := make(chan struct{})
	sub, err := api.subscriber.Subscribe(r.Context(), topic, func(event domain.ChangeEvent) {
		select {
		case events <- event:
		default:
			select {
			case <-overflow:
			default:
				close(overflow)
			}
		}
	})
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal_error", "failed to open event feed")
		return
	}
	defer sub.Stop()

	startSSE(w)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-overflow:
			writeSSE(w, "error", []byte(`{"reason":"client too slow"}`))
			flusher.Flush()
			return
		case <-sub.Done():
			writeSSE(w, "error", []byte(`{"reason":"stream disconnected"}`))
			flusher.Flush()
			return
		case event := <-events:
			payload, err := json.Marshal(event)
			if err != nil {
				continue
			}
			writeSSE(w, "change", payload)
			flusher.Flush()
		}
	}
}

// liveInvoices streams the reconciled invoice list of one file: an initial
// snapshot, then a fresh snapshot after every applied change event.
func (api *API) liveInvoices(w http.ResponseWriter, r *http.Request, fileID int64) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, r, http.StatusInternalServerError, "internal_error", "streaming unsupported")
		return
	}

	session, err := reconcile.Open(
		r.Context(),
		api.subscriber,
		feed.Topic{Collection: domain.CollectionInvoices, FilterField: "file_id", FilterValue: fileID},
		func(ctx context.Context) ([]domain.Invoice, error) {
			return api.invoicesService.ListInvoicesByFile(ctx, fileID)
		},
		func(invoice domain.Invoice) int64 { return invoice.ID },
		reconcile.Prepend,
	)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal_error", "failed to open live list")
		return
	}
	defer session.Close()

	startSSE(w)
	if !writeSnapshot(w, session.List()) {
		return
	}
	flusher.Flush()

	changed := session.Changed()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-session.Done():
			writeSSE(w, "error", []byte(`{"reason":"stream disconnected"}`))
			flusher.Flush()
			return
		case <-changed:
			if !writeSnapshot(w, session.List()) {
				return
			}
			flusher.Flush()
		}
	}
}

func topicFromQuery(r *http.Request) (feed.Topic, error) {
	collection := domain.Collection(strings.TrimSpace(r.URL.Query().Get("collection")))

	var filterField string
	switch collection {
	case domain.CollectionJobs:
	case domain.CollectionFiles:
		filterField = "job_id"
	case domain.CollectionInvoices:
		filterField = "file_id"
	default:
		return feed.Topic{}, errInvalidPayload
	}

	topic := feed.Topic{Collection: collection}
	if filterField != "" {
		value, err := parseQueryID(r, filterField)
		if err != nil {
			return feed.Topic{}, err
		}
		if value != 0 {
			topic.FilterField = filterField
			topic.FilterValue = value
		}
	}
	return topic, nil
}

func startSSE(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
}

func writeSSE(w http.ResponseWriter, event string, data []byte) bool {
	if _, err := w.Write([]byte("event: " + event + "\ndata: ")); err != nil {
		return false
	}
	if _, err := w.Write(data); err != nil {
		return false
	}
	_, err := w.Write([]byte("\n\n"))
	return err == nil
}

func writeSnapshot(w http.ResponseWriter, invoices []domain.Invoice) bool {
	payload, err := json.Marshal(map[string]any{"invoices": invoices})
	if err != nil {
		return false
	}
	return writeSSE(w, "snapshot", payload)
}
