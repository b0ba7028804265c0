// Package scene records what a list view draws so it can be shipped to a
// browser. A Recorder stands in for both the map and the list surface; a
// Snapshot is its serialisable state.
package scene

import (
	"forest-machine-map/pkg/listview"
	"forest-machine-map/pkg/machines"
)

// Marker is a placed map marker.
type Marker struct {
	Handle    listview.MarkerHandle `json:"handle"`
	MachineID string                `json:"machineId"`
	Title     string                `json:"title"`
	Position  machines.Position     `json:"position"`
	Status    machines.Status       `json:"status"`
	Color     machines.Color        `json:"color"`
	Kind      machines.Kind         `json:"kind"`
	Blink     bool                  `json:"blink"`
}

// Row is a rendered list row.
type Row struct {
	Handle     listview.RowHandle `json:"handle"`
	Machine    machines.Record    `json:"machine"`
	Label      string             `json:"statusLabel"`
	LocalLabel string             `json:"statusLocalLabel"`
	Color      machines.Color     `json:"color"`
	Kind       machines.Kind      `json:"kind"`
}

// Focus is the last focus request.
type Focus struct {
	Position machines.Position `json:"position"`
	Zoom     int               `json:"zoom"`
}

// Snapshot is a copy of a Recorder's state at one version.
type Snapshot struct {
	Version    uint64                 `json:"version"`
	Filter     machines.Status        `json:"filter"`
	Markers    []Marker               `json:"markers"`
	Rows       []Row                  `json:"rows"`
	Focus      *Focus                 `json:"focus,omitempty"`
	OpenMarker *listview.MarkerHandle `json:"openMarker,omitempty"`
}

type row struct {
	Row
	activate func(id string)
}

// Recorder implements listview.MapSurface and listview.ListSurface in memory.
// It is not safe for concurrent use.
type Recorder struct {
	version    uint64
	nextMarker listview.MarkerHandle
	nextRow    listview.RowHandle

	filter  machines.Status
	markers []Marker
	rows    []row
	focus   *Focus
	open    *listview.MarkerHandle
}

var (
	_ listview.MapSurface  = (*Recorder)(nil)
	_ listview.ListSurface = (*Recorder)(nil)
)

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) touch() { r.version++ }

// PlaceMarker implements listview.MapSurface.
func (r *Recorder) PlaceMarker(pos machines.Position, style listview.MarkerStyle) listview.MarkerHandle {
	r.nextMarker++
	r.markers = append(r.markers, Marker{
		Handle:    r.nextMarker,
		MachineID: style.MachineID,
		Title:     style.Title,
		Position:  pos,
		Status:    style.Status,
		Color:     style.Color,
		Kind:      style.Kind,
		Blink:     style.Blink,
	})
	r.touch()
	return r.nextMarker
}

// RemoveMarker implements listview.MapSurface. Unknown handles are ignored.
func (r *Recorder) RemoveMarker(h listview.MarkerHandle) {
	for i, m := range r.markers {
		if m.Handle != h {
			continue
		}
		r.markers = append(r.markers[:i], r.markers[i+1:]...)
		if r.open != nil && *r.open == h {
			r.open = nil
		}
		r.touch()
		return
	}
}

// Focus implements listview.MapSurface.
func (r *Recorder) Focus(pos machines.Position, zoom int) {
	r.focus = &Focus{Position: pos, Zoom: zoom}
	r.touch()
}

// OpenDetail implements listview.MapSurface. Only a placed marker can be opened.
func (r *Recorder) OpenDetail(h listview.MarkerHandle) {
	for _, m := range r.markers {
		if m.Handle == h {
			open := h
			r.open = &open
			r.touch()
			return
		}
	}
}

// RenderRow implements listview.ListSurface.
func (r *Recorder) RenderRow(rec machines.Record, onActivate func(id string)) listview.RowHandle {
	r.nextRow++
	r.rows = append(r.rows, row{
		Row: Row{
			Handle:     r.nextRow,
			Machine:    rec,
			Label:      rec.Status.Label(),
			LocalLabel: rec.Status.LocalLabel(),
			Color:      machines.ColorOf(rec.Status),
			Kind:       rec.Kind(),
		},
		activate: onActivate,
	})
	r.touch()
	return r.nextRow
}

// ClearRows implements listview.ListSurface. It also drops focus and open
// detail state, which belong to the rows being replaced.
func (r *Recorder) ClearRows() {
	r.rows = nil
	r.focus = nil
	r.open = nil
	r.touch()
}

// SetFilter records the filter the rows were built for.
func (r *Recorder) SetFilter(f machines.Status) { r.filter = f }

// ActivateRow runs the activation callback of the row showing machineID.
// It reports false when no such row is on screen.
func (r *Recorder) ActivateRow(machineID string) bool {
	for _, rw := range r.rows {
		if rw.Machine.ID == machineID && rw.activate != nil {
			rw.activate(machineID)
			return true
		}
	}
	return false
}

// Version increases on every change.
func (r *Recorder) Version() uint64 { return r.version }

// Snapshot copies the current state.
func (r *Recorder) Snapshot() Snapshot {
	s := Snapshot{
		Version: r.version,
		Filter:  r.filter,
		Markers: make([]Marker, len(r.markers)),
		Rows:    make([]Row, len(r.rows)),
	}
	copy(s.Markers, r.markers)
	for i, rw := range r.rows {
		s.Rows[i] = rw.Row
	}
	if r.focus != nil {
		f := *r.focus
		s.Focus = &f
	}
	if r.open != nil {
		h := *r.open
		s.OpenMarker = &h
	}
	return s
}

// MachineIDs lists the machines that have a marker, in placement order.
func (s Snapshot) MachineIDs() []string {
	out := make([]string, len(s.Markers))
	for i, m := range s.Markers {
		out[i] = m.MachineID
	}
	return out
}
