package api

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/go-chi/render"
	"go.uber.org/zap"

	"forest-machine-map/pkg/machineqr"
	"forest-machine-map/pkg/machines"
)

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := struct {
		Version     string
		DefaultLat  float64
		DefaultLng  float64
		DefaultZoom int
		TileURL     string
	}{
		Version:     h.opts.Version,
		DefaultLat:  h.opts.Map.Lat,
		DefaultLng:  h.opts.Map.Lng,
		DefaultZoom: h.opts.Map.Zoom,
		TileURL:     h.opts.Map.TileURL,
	}
	h.renderPage(w, r, h.index, data)
}

// handleReport renders a printable page with the machine's catalog data and
// its QR code.
func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	rec, err := h.machineFromURL(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	c := machineqr.StatusRGBA(machines.ColorOf(rec.Status))
	data := struct {
		Machine     machines.Record
		StatusLabel string
		LocalLabel  string
		ColorCSS    template.CSS
		Generated   time.Time
		Version     string
	}{
		Machine:     rec,
		StatusLabel: rec.Status.Label(),
		LocalLabel:  rec.Status.LocalLabel(),
		ColorCSS:    template.CSS(cssHex(c.R, c.G, c.B)),
		Generated:   time.Now(),
		Version:     h.opts.Version,
	}
	h.renderPage(w, r, h.report, data)
}

// renderPage executes into a buffer first so a template error still yields a
// clean 500.
func (h *Handler) renderPage(w http.ResponseWriter, r *http.Request, tmpl *template.Template, data any) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		h.log.Error("execute template", zap.String("template", tmpl.Name()), zap.Error(err))
		render.Render(w, r, errUnexpected(err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func cssHex(r, g, b uint8) string { return fmt.Sprintf("#%02x%02x%02x", r, g, b) }
