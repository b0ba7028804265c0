package listview

import (
	"reflect"
	"sort"
	"testing"

	"forest-machine-map/pkg/machines"
)

// fakeMap records every call so tests can check ordering as well as state.
type fakeMap struct {
	next    MarkerHandle
	live    map[MarkerHandle]MarkerStyle
	log     []string
	focused *machines.Position
	zoom    int
	opened  []MarkerHandle
}

func newFakeMap() *fakeMap { return &fakeMap{live: map[MarkerHandle]MarkerStyle{}} }

func (m *fakeMap) PlaceMarker(pos machines.Position, style MarkerStyle) MarkerHandle {
	m.next++
	m.live[m.next] = style
	m.log = append(m.log, "place")
	return m.next
}

func (m *fakeMap) RemoveMarker(h MarkerHandle) {
	delete(m.live, h)
	m.log = append(m.log, "remove")
}

func (m *fakeMap) Focus(pos machines.Position, zoom int) {
	m.focused = &pos
	m.zoom = zoom
}

func (m *fakeMap) OpenDetail(h MarkerHandle) { m.opened = append(m.opened, h) }

func (m *fakeMap) liveIDs() []string {
	out := make([]string, 0, len(m.live))
	for _, s := range m.live {
		out = append(out, s.MachineID)
	}
	sort.Strings(out)
	return out
}

type fakeRow struct {
	rec      machines.Record
	activate func(string)
}

type fakeList struct {
	rows []fakeRow
}

func (l *fakeList) RenderRow(rec machines.Record, onActivate func(string)) RowHandle {
	l.rows = append(l.rows, fakeRow{rec: rec, activate: onActivate})
	return RowHandle(len(l.rows))
}

func (l *fakeList) ClearRows() { l.rows = nil }

func newTestView(t *testing.T, opts ...Option) (*View, *fakeMap, *fakeList) {
	t.Helper()
	reg, err := machines.NewRegistry(machines.DemoRecords())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	m, l := newFakeMap(), &fakeList{}
	return New(reg, m, l, opts...), m, l
}

func TestSetFilterScenario(t *testing.T) {
	v, m, l := newTestView(t)

	steps := []struct {
		filter machines.Status
		want   []string
	}{
		{machines.StatusFault, []string{"M03"}},
		{machines.AnyStatus, []string{"M01", "M02", "M03"}},
		{machines.StatusIdle, []string{"M02"}},
		{machines.StatusUnknown, []string{}},
	}
	for _, step := range steps {
		v.SetFilter(step.filter)
		if got := v.Tracked(); !reflect.DeepEqual(got, step.want) {
			t.Fatalf("SetFilter(%q): tracked = %v, want %v", step.filter, got, step.want)
		}
		if got := m.liveIDs(); !reflect.DeepEqual(got, step.want) {
			t.Fatalf("SetFilter(%q): live markers = %v, want %v", step.filter, got, step.want)
		}
		if len(l.rows) != len(step.want) {
			t.Fatalf("SetFilter(%q): %d rows, want %d", step.filter, len(l.rows), len(step.want))
		}
		for i, row := range l.rows {
			if row.rec.ID != step.want[i] {
				t.Fatalf("row %d = %s, want %s", i, row.rec.ID, step.want[i])
			}
		}
		if v.Filter() != step.filter {
			t.Fatalf("Filter() = %q, want %q", v.Filter(), step.filter)
		}
	}
}

// TestSetFilterRemovesBeforePlacing guards against two markers sharing a
// coordinate during a rebuild.
func TestSetFilterRemovesBeforePlacing(t *testing.T) {
	v, m, _ := newTestView(t)
	v.SetFilter(machines.AnyStatus)
	m.log = nil

	v.SetFilter(machines.AnyStatus)
	want := []string{"remove", "remove", "remove", "place", "place", "place"}
	if !reflect.DeepEqual(m.log, want) {
		t.Fatalf("call order = %v, want %v", m.log, want)
	}
}

func TestSetFilterIdempotent(t *testing.T) {
	v, m, l := newTestView(t)
	v.SetFilter(machines.StatusWorking)
	first := v.Tracked()
	h1, _ := v.Handle("M01")

	v.SetFilter(machines.StatusWorking)
	if got := v.Tracked(); !reflect.DeepEqual(got, first) {
		t.Fatalf("tracked = %v, want %v", got, first)
	}
	h2, _ := v.Handle("M01")
	if h1 == h2 {
		t.Fatal("expected marker to be recreated")
	}
	if len(m.live) != 1 || len(l.rows) != 1 {
		t.Fatalf("live=%d rows=%d, want 1/1", len(m.live), len(l.rows))
	}
}

func TestMarkerStyleFollowsStatus(t *testing.T) {
	v, m, _ := newTestView(t)
	v.SetFilter(machines.AnyStatus)

	want := map[string]MarkerStyle{
		"M01": {MachineID: "M01", Title: "Harwester 1", Status: machines.StatusWorking, Color: machines.ColorGreen, Kind: machines.KindHarvester},
		"M02": {MachineID: "M02", Title: "Forwarder 2", Status: machines.StatusIdle, Color: machines.ColorGold, Kind: machines.KindForwarder},
		"M03": {MachineID: "M03", Title: "Harwester 3", Status: machines.StatusFault, Color: machines.ColorRed, Kind: machines.KindHarvester, Blink: true},
	}
	for id, style := range want {
		h, ok := v.Handle(id)
		if !ok {
			t.Fatalf("%s not tracked", id)
		}
		if got := m.live[h]; got != style {
			t.Errorf("%s style = %+v, want %+v", id, got, style)
		}
	}
}

func TestRowActivationFocusesMarker(t *testing.T) {
	v, m, l := newTestView(t, WithFocusZoom(17))
	v.SetFilter(machines.AnyStatus)

	l.rows[1].activate(l.rows[1].rec.ID)

	if m.focused == nil || *m.focused != (machines.Position{Lat: 51.5340, Lng: 16.8910}) {
		t.Fatalf("focused = %v", m.focused)
	}
	if m.zoom != 17 {
		t.Fatalf("zoom = %d, want 17", m.zoom)
	}
	h, _ := v.Handle("M02")
	if !reflect.DeepEqual(m.opened, []MarkerHandle{h}) {
		t.Fatalf("opened = %v, want [%d]", m.opened, h)
	}
}

func TestStaleActivationIsNoop(t *testing.T) {
	v, m, l := newTestView(t)
	v.SetFilter(machines.AnyStatus)
	stale := l.rows[0]

	v.SetFilter(machines.StatusFault)
	before := len(m.live)
	stale.activate(stale.rec.ID)

	if v.OnRowActivated("M01") {
		t.Fatal("stale id reported as focused")
	}
	if v.OnRowActivated("nope") {
		t.Fatal("unknown id reported as focused")
	}
	if m.focused != nil || len(m.opened) != 0 {
		t.Fatalf("stale activation touched the map: focus=%v opened=%v", m.focused, m.opened)
	}
	if len(m.live) != before {
		t.Fatalf("stale activation changed markers: %d -> %d", before, len(m.live))
	}
	if got := v.Tracked(); !reflect.DeepEqual(got, []string{"M03"}) {
		t.Fatalf("tracked = %v", got)
	}
}

func TestDefaultFocusZoom(t *testing.T) {
	v, _, _ := newTestView(t, WithFocusZoom(0))
	if v.FocusZoom() != DefaultFocusZoom {
		t.Fatalf("FocusZoom() = %d, want %d", v.FocusZoom(), DefaultFocusZoom)
	}
}
