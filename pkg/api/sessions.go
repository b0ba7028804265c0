package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"go.uber.org/zap"

	"forest-machine-map/pkg/machines"
	"forest-machine-map/pkg/scene"
	"forest-machine-map/pkg/session"
)

type ctxKey int

const sessionKey ctxKey = iota

// sessionCtx resolves {sessionID} once for every session route.
func (h *Handler) sessionCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "sessionID")
		s, err := h.opts.Sessions.Get(id)
		if err != nil {
			render.Render(w, r, errNotFound(fmt.Errorf("%w: %s", err, id)))
			return
		}
		ctx := context.WithValue(r.Context(), sessionKey, s)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionFrom(r *http.Request) *session.Session {
	return r.Context().Value(sessionKey).(*session.Session)
}

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	s := h.opts.Sessions.Create()
	render.Status(r, http.StatusCreated)
	render.Render(w, r, &SessionView{ID: s.ID(), Snapshot: s.Snapshot()})
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, sessionFrom(r).Snapshot())
}

func (h *Handler) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r)
	if err := h.opts.Sessions.Delete(s.ID()); err != nil && !errors.Is(err, session.ErrSessionNotFound) {
		render.Render(w, r, errUnexpected(err))
		return
	}
	render.NoContent(w, r)
}

func (h *Handler) handleSetFilter(w http.ResponseWriter, r *http.Request) {
	var req FilterRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.Render(w, r, errInvalidRequest(fmt.Errorf("invalid filter body: %w", err)))
		return
	}
	snap := sessionFrom(r).SetFilter(machines.ParseFilter(req.Status))
	render.JSON(w, r, snap)
}

func (h *Handler) handleActivate(w http.ResponseWriter, r *http.Request) {
	var req ActivateRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.Render(w, r, errInvalidRequest(fmt.Errorf("invalid activate body: %w", err)))
		return
	}
	if strings.TrimSpace(req.MachineID) == "" {
		render.Render(w, r, errInvalidRequest(errors.New("machineId is required")))
		return
	}
	snap, focused := sessionFrom(r).Activate(req.MachineID)
	render.Render(w, r, &ActivateView{Focused: focused, Snapshot: snap})
}

func (h *Handler) handleGeoJSON(w http.ResponseWriter, r *http.Request) {
	fc := sessionFrom(r).Snapshot().FeatureCollection()
	w.Header().Set("Content-Type", "application/geo+json")
	if err := json.NewEncoder(w).Encode(fc); err != nil {
		h.log.Warn("write geojson", zap.Error(err))
	}
}

// handleStream sends the current snapshot and then every update of the
// session as server-sent events until the client goes away.
func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		render.Render(w, r, errUnexpected(errors.New("streaming unsupported")))
		return
	}
	if h.opts.Bus == nil {
		render.Render(w, r, errUnexpected(errors.New("snapshot bus not configured")))
		return
	}
	s := sessionFrom(r)
	ctx := r.Context()
	updates := h.opts.Bus.Subscribe(ctx, s.ID(), 8)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	current := s.Snapshot()
	if err := writeEvent(w, "snapshot", current); err != nil {
		return
	}
	flusher.Flush()

	keepAlive := time.NewTicker(h.opts.KeepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-keepAlive.C:
			s.Touch()
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case u, ok := <-updates:
			if !ok {
				return
			}
			if u.Snapshot.Version <= current.Version {
				continue
			}
			current = u.Snapshot
			if err := writeEvent(w, "snapshot", current); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, event string, snap scene.Snapshot) error {
	b, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, b)
	return err
}
