// Package api serves the dashboard: the map page, machine data, per-browser
// view sessions and their live snapshot stream.
package api

import (
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"forest-machine-map/pkg/machines"
	"forest-machine-map/pkg/markerstream"
	"forest-machine-map/pkg/session"
)

// MapDefaults is the initial map view handed to the page.
type MapDefaults struct {
	Lat     float64
	Lng     float64
	Zoom    int
	TileURL string
}

// Options collects what the handler serves.
type Options struct {
	Registry *machines.Registry
	Sessions *session.Store
	Bus      *markerstream.Bus
	// Assets must hold index.html, report.html and static/.
	Assets fs.FS
	// Metrics is mounted on /metrics when set.
	Metrics   http.Handler
	Map       MapDefaults
	PublicURL string
	Version   string
	Log       *zap.Logger
	// KeepAlive is the SSE comment interval. Zero means 25s.
	KeepAlive time.Duration
}

// Handler holds the state shared by the routes.
type Handler struct {
	opts   Options
	log    *zap.Logger
	index  *template.Template
	report *template.Template
	static http.Handler
	qr     *pngCache
}

// NewHandler parses the page templates and prepares the handler.
func NewHandler(opts Options) (*Handler, error) {
	if opts.Registry == nil || opts.Sessions == nil {
		return nil, fmt.Errorf("api: registry and session store are required")
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}
	if opts.KeepAlive <= 0 {
		opts.KeepAlive = 25 * time.Second
	}

	index, err := template.ParseFS(opts.Assets, "index.html")
	if err != nil {
		return nil, fmt.Errorf("parse index template: %w", err)
	}
	report, err := template.ParseFS(opts.Assets, "report.html")
	if err != nil {
		return nil, fmt.Errorf("parse report template: %w", err)
	}
	static, err := fs.Sub(opts.Assets, "static")
	if err != nil {
		return nil, fmt.Errorf("static assets: %w", err)
	}

	return &Handler{
		opts:   opts,
		log:    opts.Log,
		index:  index,
		report: report,
		static: http.StripPrefix("/static/", http.FileServer(http.FS(static))),
		qr:     newPNGCache(time.Hour),
	}, nil
}

// Close stops background helpers.
func (h *Handler) Close() { h.qr.Close() }

// Routes builds the router with the standard middleware stack.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(h.log))
	r.Use(middleware.Recoverer)
	r.Use(serverHeader(h.opts.Version))

	h.Register(r)
	return r
}

// Register attaches every route to r.
func (h *Handler) Register(r chi.Router) {
	r.Get("/", h.handleIndex)
	r.Handle("/static/*", h.static)
	r.Get("/healthz", h.handleHealth)
	r.Get("/machines/{machineID}/report", h.handleReport)
	if h.opts.Metrics != nil {
		r.Handle("/metrics", h.opts.Metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/", h.handleOverview)
		r.Get("/statuses", h.handleStatuses)
		r.Mount("/machines", h.machinesRouter())
		r.Mount("/sessions", h.sessionsRouter())
	})
}

func (h *Handler) machinesRouter() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.handleMachines)
	r.Route("/{machineID}", func(r chi.Router) {
		r.Get("/", h.handleMachine)
		r.Get("/qr.png", h.handleMachineQR)
	})
	return r
}

func (h *Handler) sessionsRouter() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.handleCreateSession)
	r.Route("/{sessionID}", func(r chi.Router) {
		r.Use(h.sessionCtx)
		r.Get("/", h.handleGetSession)
		r.Delete("/", h.handleDeleteSession)
		r.Put("/filter", h.handleSetFilter)
		r.Post("/activate", h.handleActivate)
		r.Get("/geojson", h.handleGeoJSON)
		r.Get("/stream", h.handleStream)
	})
	return r
}
