package transport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"prettify/internal/document"
	"prettify/internal/logging"
	"prettify/internal/pipeline"
	"prettify/internal/storage"
)

const maxBody = 8 << 20

// DocumentView is the JSON shape of a document snapshot.
type DocumentView struct {
	ID     string `json:"id"`
	Seq    uint64 `json:"seq"`
	State  string `json:"state"`
	Input  string `json:"input,omitempty"`
	Output string `json:"output"`
	Error  string `json:"error,omitempty"`
}

type editResult struct {
	ID  string `json:"id"`
	Seq uint64 `json:"seq"`
}

// NewHTTPHandler exposes a Hub over HTTP. Request bodies are the raw
// document text.
func NewHTTPHandler(hub *document.Hub) http.Handler {
	h := &httpAPI{hub: hub, log: logging.L()}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, "prettifyd")
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Route("/documents", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Put("/{id}", h.edit)
		r.Get("/{id}", h.get)
		r.Delete("/{id}", h.close)
	})
	return r
}

type httpAPI struct {
	hub *document.Hub
	log *slog.Logger
}

func (h *httpAPI) create(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, uuid.New().String(), http.StatusCreated)
}

func (h *httpAPI) edit(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, chi.URLParam(r, "id"), http.StatusAccepted)
}

func (h *httpAPI) update(w http.ResponseWriter, r *http.Request, id string, code int) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
	if err != nil {
		http.Error(w, "unreadable body", http.StatusRequestEntityTooLarge)
		return
	}
	seq, err := h.hub.Edit(r.Context(), id, string(body))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, code, editResult{ID: id, Seq: seq})
}

// get returns the current snapshot. With ?wait=<duration> it first waits
// for the latest edit to settle, up to that long.
func (h *httpAPI) get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx := r.Context()

	var (
		snap pipeline.Snapshot
		err  error
	)
	if raw := r.URL.Query().Get("wait"); raw != "" {
		d, perr := time.ParseDuration(raw)
		if perr != nil {
			http.Error(w, "invalid wait duration", http.StatusBadRequest)
			return
		}
		wctx, cancel := context.WithTimeout(ctx, d)
		snap, err = h.hub.Await(wctx, id)
		cancel()
		if errors.Is(err, context.DeadlineExceeded) {
			err = nil
		}
	} else {
		snap, err = h.hub.Snapshot(ctx, id)
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view(id, snap))
}

func (h *httpAPI) list(w http.ResponseWriter, r *http.Request) {
	ids, err := h.hub.Documents(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"documents": ids})
}

func (h *httpAPI) close(w http.ResponseWriter, r *http.Request) {
	if !h.hub.CloseDocument(chi.URLParam(r, "id")) {
		http.Error(w, "document not open", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *httpAPI) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		http.Error(w, "document not found", http.StatusNotFound)
	case errors.Is(err, document.ErrClosed):
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
	default:
		h.log.Error("http: request failed",
			"path", r.URL.Path, "request_id", middleware.GetReqID(r.Context()), "err", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func view(id string, s pipeline.Snapshot) DocumentView {
	v := DocumentView{ID: id, Seq: s.Seq, State: s.State.String(), Input: s.Input, Output: s.Output}
	if s.Err != nil {
		v.Error = s.Err.Error()
	}
	return v
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}
