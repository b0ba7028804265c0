package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"go.uber.org/zap"

	"forest-machine-map/pkg/machineqr"
	"forest-machine-map/pkg/machines"
)

var errUnknownMachine = errors.New("machine not found")

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]any{
		"status":   "ok",
		"machines": h.opts.Registry.Len(),
		"sessions": h.opts.Sessions.Len(),
	})
}

// handleOverview lists the endpoints so API users can find their way.
func (h *Handler) handleOverview(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]any{
		"version":  h.opts.Version,
		"machines": h.opts.Registry.Len(),
		"endpoints": []map[string]string{
			{"method": "GET", "path": "/api/statuses", "description": "Status filter choices with per-status totals."},
			{"method": "GET", "path": "/api/machines", "description": "Machines in catalog order; ?status= narrows the list."},
			{"method": "GET", "path": "/api/machines/{machineID}", "description": "One machine with its display fields."},
			{"method": "GET", "path": "/api/machines/{machineID}/qr.png", "description": "QR code pointing at the machine report."},
			{"method": "POST", "path": "/api/sessions", "description": "Opens a view session showing every machine."},
			{"method": "GET", "path": "/api/sessions/{sessionID}", "description": "Current snapshot of a session."},
			{"method": "PUT", "path": "/api/sessions/{sessionID}/filter", "description": "Rebuilds markers and rows for {\"status\": ...}."},
			{"method": "POST", "path": "/api/sessions/{sessionID}/activate", "description": "Focuses the map on {\"machineId\": ...}."},
			{"method": "GET", "path": "/api/sessions/{sessionID}/geojson", "description": "Visible markers as a GeoJSON FeatureCollection."},
			{"method": "GET", "path": "/api/sessions/{sessionID}/stream", "description": "Server-sent snapshot events."},
			{"method": "DELETE", "path": "/api/sessions/{sessionID}", "description": "Closes a session."},
		},
	})
}

func (h *Handler) handleStatuses(w http.ResponseWriter, r *http.Request) {
	counts := h.opts.Registry.Counts()
	outs := []render.Renderer{}
	for _, s := range machines.Statuses {
		outs = append(outs, &StatusView{
			Status:     s,
			Label:      s.Label(),
			LocalLabel: s.LocalLabel(),
			Color:      machines.ColorOf(s),
			Count:      counts[s],
		})
	}
	render.RenderList(w, r, outs)
}

func (h *Handler) handleMachines(w http.ResponseWriter, r *http.Request) {
	filter := machines.ParseFilter(r.URL.Query().Get("status"))
	outs := []render.Renderer{}
	for _, rec := range h.opts.Registry.ByStatus(filter) {
		outs = append(outs, newMachineView(rec))
	}
	render.RenderList(w, r, outs)
}

func (h *Handler) machineFromURL(r *http.Request) (machines.Record, error) {
	id := chi.URLParam(r, "machineID")
	rec, ok := h.opts.Registry.Get(id)
	if !ok {
		return machines.Record{}, fmt.Errorf("%w: %s", errUnknownMachine, id)
	}
	return rec, nil
}

func (h *Handler) handleMachine(w http.ResponseWriter, r *http.Request) {
	rec, err := h.machineFromURL(r)
	if err != nil {
		render.Render(w, r, errNotFound(err))
		return
	}
	render.Render(w, r, newMachineView(rec))
}

func (h *Handler) handleMachineQR(w http.ResponseWriter, r *http.Request) {
	rec, err := h.machineFromURL(r)
	if err != nil {
		render.Render(w, r, errNotFound(err))
		return
	}

	target := h.baseURL(r) + "/machines/" + rec.ID + "/report"
	key := string(rec.Status) + "|" + target
	png, err := h.qr.Get(r.Context(), key, func(context.Context) ([]byte, error) {
		var buf bytes.Buffer
		if err := machineqr.EncodePNG(&buf, target, rec.Status, machineqr.Options{}); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	})
	if err != nil {
		h.log.Error("render qr", zap.String("machine", rec.ID), zap.Error(err))
		render.Render(w, r, errUnexpected(err))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(png)
}

// baseURL is the configured public URL, or one rebuilt from the request.
func (h *Handler) baseURL(r *http.Request) string {
	if h.opts.PublicURL != "" {
		return strings.TrimRight(h.opts.PublicURL, "/")
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if p := r.Header.Get("X-Forwarded-Proto"); p == "http" || p == "https" {
		scheme = p
	}
	return scheme + "://" + r.Host
}
