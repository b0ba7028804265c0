// Package listview keeps the map markers and the side list of a dashboard in
// lockstep with the selected status filter.
//
// A View owns its tracked marker table. It is driven by one caller at a time:
// the view does no locking of its own, so whoever shares it across goroutines
// must serialize calls (see pkg/session).
package listview

import (
	"forest-machine-map/pkg/machines"
)

// DefaultFocusZoom is the zoom level used when a row is activated.
const DefaultFocusZoom = 16

// MarkerHandle identifies a marker placed on a MapSurface.
type MarkerHandle uint64

// RowHandle identifies a row rendered on a ListSurface.
type RowHandle uint64

// MarkerStyle is everything a map surface needs to draw a machine marker.
type MarkerStyle struct {
	MachineID string
	Title     string
	Status    machines.Status
	Color     machines.Color
	Kind      machines.Kind
	Blink     bool
}

// MapSurface is the map the view draws on.
type MapSurface interface {
	PlaceMarker(pos machines.Position, style MarkerStyle) MarkerHandle
	RemoveMarker(h MarkerHandle)
	Focus(pos machines.Position, zoom int)
	OpenDetail(h MarkerHandle)
}

// ListSurface is the side list the view fills.
type ListSurface interface {
	RenderRow(rec machines.Record, onActivate func(id string)) RowHandle
	ClearRows()
}

type tracked struct {
	handle MarkerHandle
	record machines.Record
}

// View derives markers and rows from a registry and the current filter.
type View struct {
	registry  *machines.Registry
	mapView   MapSurface
	list      ListSurface
	focusZoom int

	filter  machines.Status
	order   []string
	markers map[string]tracked
}

// Option tunes a View.
type Option func(*View)

// WithFocusZoom overrides the zoom used by OnRowActivated.
func WithFocusZoom(zoom int) Option {
	return func(v *View) {
		if zoom > 0 {
			v.focusZoom = zoom
		}
	}
}

// New builds an empty view. Nothing is drawn until SetFilter is called.
func New(registry *machines.Registry, mapView MapSurface, list ListSurface, opts ...Option) *View {
	v := &View{
		registry:  registry,
		mapView:   mapView,
		list:      list,
		focusZoom: DefaultFocusZoom,
		markers:   make(map[string]tracked),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// SetFilter rebuilds both presentations for filter. Every previously tracked
// marker is removed before the first new one is placed.
func (v *View) SetFilter(filter machines.Status) {
	for _, id := range v.order {
		v.mapView.RemoveMarker(v.markers[id].handle)
	}
	v.list.ClearRows()

	visible := v.registry.ByStatus(filter)
	order := make([]string, 0, len(visible))
	next := make(map[string]tracked, len(visible))
	for _, rec := range visible {
		h := v.mapView.PlaceMarker(rec.Position, MarkerStyle{
			MachineID: rec.ID,
			Title:     rec.Name,
			Status:    rec.Status,
			Color:     v.registry.StatusColor(rec.Status),
			Kind:      rec.Kind(),
			Blink:     rec.Status.Blinks(),
		})
		v.list.RenderRow(rec, v.activate)
		order = append(order, rec.ID)
		next[rec.ID] = tracked{handle: h, record: rec}
	}

	v.filter = filter
	v.order = order
	v.markers = next
}

func (v *View) activate(id string) { v.OnRowActivated(id) }

// OnRowActivated focuses the map on a tracked machine and opens its detail.
// Ids that are not tracked under the current filter are ignored; the return
// value reports whether anything happened.
func (v *View) OnRowActivated(id string) bool {
	t, ok := v.markers[id]
	if !ok {
		return false
	}
	v.mapView.Focus(t.record.Position, v.focusZoom)
	v.mapView.OpenDetail(t.handle)
	return true
}

// Filter is the last applied filter.
func (v *View) Filter() machines.Status { return v.filter }

// Tracked lists the ids currently on the map, in registry order.
func (v *View) Tracked() []string {
	out := make([]string, len(v.order))
	copy(out, v.order)
	return out
}

// Handle returns the marker handle tracked for id.
func (v *View) Handle(id string) (MarkerHandle, bool) {
	t, ok := v.markers[id]
	return t.handle, ok
}

// FocusZoom is the zoom used when a row is activated.
func (v *View) FocusZoom() int { return v.focusZoom }
