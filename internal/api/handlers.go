package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/google/grr-sub002/internal/api/notifier"
	"github.com/google/grr-sub002/internal/provider"
	"github.com/google/grr-sub002/pkg/assist"
	"github.com/google/grr-sub002/pkg/schema"
)

// maxBodyBytes caps assist request bodies.
const maxBodyBytes = 1 << 20

// Handlers serves the JSON API from a provider.
type Handlers struct {
	provider *provider.Provider
	notify   *notifier.Notifier
	logger   *slog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(prov *provider.Provider, notify *notifier.Notifier, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handlers{provider: prov, notify: notify, logger: logger}
}

// SchemaResponse describes the schema index being served.
type SchemaResponse struct {
	Version   string   `json:"version"`
	Tables    int      `json:"tables"`
	Platforms []string `json:"platforms"`
}

// TableSummary is one entry of a table listing.
type TableSummary struct {
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	Platforms   schema.PlatformSet `json:"platforms"`
	Evented     bool               `json:"evented,omitempty"`
	Columns     int                `json:"columns"`
}

// TablesResponse is the result of a table listing.
type TablesResponse struct {
	Version string         `json:"version"`
	Tables  []TableSummary `json:"tables"`
}

// AssistRequest is the body of an assist call.
type AssistRequest struct {
	Text string `json:"text"`
	// Cursor is a byte offset into Text. Nil means the end of Text.
	Cursor   *int   `json:"cursor,omitempty"`
	Platform string `json:"platform,omitempty"`
	Limit    int    `json:"limit,omitempty"`
	// Generation is echoed back so callers can drop late responses.
	Generation uint64 `json:"generation,omitempty"`
}

// AssistResponse is the result of an assist call.
type AssistResponse struct {
	ID              string              `json:"id"`
	Generation      uint64              `json:"generation"`
	Version         string              `json:"version"`
	Platform        schema.Platform     `json:"platform"`
	Diagnostics     []assist.Diagnostic `json:"diagnostics"`
	Suggestions     []assist.Suggestion `json:"suggestions"`
	CommonPlatforms schema.PlatformSet  `json:"common_platforms"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Health reports liveness.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Schema describes the current index.
func (h *Handlers) Schema(w http.ResponseWriter, _ *http.Request) {
	idx := h.provider.Index()

	var platforms schema.PlatformSet
	for _, t := range idx.Tables() {
		platforms |= t.Platforms
	}
	h.writeJSON(w, http.StatusOK, SchemaResponse{
		Version:   idx.Version(),
		Tables:    idx.Len(),
		Platforms: platforms.Strings(),
	})
}

// Tables lists tables whose names start with the prefix query parameter,
// optionally only those available on the platform parameter.
func (h *Handlers) Tables(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var platform schema.Platform
	if p := q.Get("platform"); p != "" {
		var err error
		if platform, err = schema.ParsePlatform(p); err != nil {
			h.writeError(w, http.StatusBadRequest, err)
			return
		}
	}

	idx := h.provider.Index()
	resp := TablesResponse{Version: idx.Version(), Tables: []TableSummary{}}
	for _, name := range idx.PrefixSearch(q.Get("prefix")) {
		t, _ := idx.Table(name)
		if platform != 0 && !t.Platforms.Has(platform) {
			continue
		}
		resp.Tables = append(resp.Tables, TableSummary{
			Name:        t.Name,
			Description: t.Description,
			Platforms:   t.Platforms,
			Evented:     t.Evented,
			Columns:     len(t.Columns),
		})
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// Table returns one table spec.
func (h *Handlers) Table(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	t, ok := h.provider.Index().Table(name)
	if !ok {
		h.writeError(w, http.StatusNotFound, fmt.Errorf("unknown table %q", name))
		return
	}
	h.writeJSON(w, http.StatusOK, t)
}

// Assist analyzes a query fragment.
func (h *Handlers) Assist(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var body AssistRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		h.writeError(w, status, fmt.Errorf("invalid request body: %w", err))
		return
	}

	req := assist.Request{Text: body.Text, Cursor: len(body.Text), Limit: body.Limit}
	if body.Cursor != nil {
		req.Cursor = *body.Cursor
	}
	if body.Platform != "" {
		p, err := schema.ParsePlatform(body.Platform)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, err)
			return
		}
		req.Platform = p
	}

	res, err := h.provider.Analyze(r.Context(), req)
	if err != nil {
		if errors.Is(err, r.Context().Err()) {
			// The client went away.
			return
		}
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}

	diags := res.Diagnostics
	if diags == nil {
		diags = []assist.Diagnostic{}
	}
	h.writeJSON(w, http.StatusOK, AssistResponse{
		ID:              uuid.NewString(),
		Generation:      body.Generation,
		Version:         res.Version,
		Platform:        res.Platform,
		Diagnostics:     diags,
		Suggestions:     res.Suggestions,
		CommonPlatforms: res.Compatibility.Common,
	})
}

// Events streams schema change events as server-sent events. The current
// schema is sent first.
func (h *Handlers) Events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		h.writeError(w, http.StatusInternalServerError, errors.New("streaming unsupported"))
		return
	}

	ch := h.notify.Subscribe()
	defer h.notify.Unsubscribe(ch)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	idx := h.provider.Index()
	if err := writeEvent(w, notifier.Event{Version: idx.Version(), Tables: idx.Len()}); err != nil {
		return
	}
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if err := writeEvent(w, ev); err != nil {
				h.logger.Debug("event stream closed", "error", err)
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, ev notifier.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: schema\ndata: %s\n\n", data)
	return err
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encoding response", "error", err)
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "status", status, "error", err)
	}
	h.writeJSON(w, status, errorResponse{Error: err.Error()})
}
