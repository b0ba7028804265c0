package api

import (
	"net/http"

	"forest-machine-map/pkg/machines"
	"forest-machine-map/pkg/scene"
)

// MachineView is a catalog record plus its derived display fields.
type MachineView struct {
	machines.Record
	Color       machines.Color `json:"color"`
	Kind        machines.Kind  `json:"kind"`
	StatusLabel string         `json:"statusLabel"`
	LocalLabel  string         `json:"statusLocalLabel"`
	ReportURL   string         `json:"reportUrl"`
	QRURL       string         `json:"qrUrl"`
}

func (m *MachineView) Render(w http.ResponseWriter, r *http.Request) error { return nil }

func newMachineView(rec machines.Record) *MachineView {
	return &MachineView{
		Record:      rec,
		Color:       machines.ColorOf(rec.Status),
		Kind:        rec.Kind(),
		StatusLabel: rec.Status.Label(),
		LocalLabel:  rec.Status.LocalLabel(),
		ReportURL:   "/machines/" + rec.ID + "/report",
		QRURL:       "/api/machines/" + rec.ID + "/qr.png",
	}
}

// StatusView is one entry of the filter choices.
type StatusView struct {
	Status     machines.Status `json:"status"`
	Label      string          `json:"label"`
	LocalLabel string          `json:"localLabel"`
	Color      machines.Color  `json:"color"`
	Count      int             `json:"count"`
}

func (s *StatusView) Render(w http.ResponseWriter, r *http.Request) error { return nil }

// SessionView is returned when a session is opened.
type SessionView struct {
	ID       string         `json:"id"`
	Snapshot scene.Snapshot `json:"snapshot"`
}

func (s *SessionView) Render(w http.ResponseWriter, r *http.Request) error { return nil }

// ActivateView reports whether a row activation moved the map.
type ActivateView struct {
	Focused  bool           `json:"focused"`
	Snapshot scene.Snapshot `json:"snapshot"`
}

func (a *ActivateView) Render(w http.ResponseWriter, r *http.Request) error { return nil }

// FilterRequest is the body of PUT /api/sessions/{id}/filter. An empty or
// "all" status shows every machine.
type FilterRequest struct {
	Status string `json:"status"`
}

// ActivateRequest is the body of POST /api/sessions/{id}/activate.
type ActivateRequest struct {
	MachineID string `json:"machineId"`
}
