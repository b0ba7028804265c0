package session

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"forest-machine-map/pkg/machines"
	"forest-machine-map/pkg/markerstream"
)

type recordingHook struct {
	mu     sync.Mutex
	events []string
}

func (h *recordingHook) add(e string) {
	h.mu.Lock()
	h.events = append(h.events, e)
	h.mu.Unlock()
}

func (h *recordingHook) SessionOpened(string) { h.add("opened") }
func (h *recordingHook) SessionClosed(string) { h.add("closed") }
func (h *recordingHook) FilterApplied(_ string, f machines.Status, visible int) {
	h.add("filter:" + string(f) + ":" + string(rune('0'+visible)))
}
func (h *recordingHook) RowActivated(_ string, id string, focused bool) {
	if focused {
		h.add("activate:" + id)
		return
	}
	h.add("stale:" + id)
}

func (h *recordingHook) list() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.events...)
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time      { return c.t }
func (c *clock) add(d time.Duration) { c.t = c.t.Add(d) }

func newStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	reg, err := machines.NewRegistry(machines.DemoRecords())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return NewStore(reg, opts...)
}

func TestCreateShowsEveryMachine(t *testing.T) {
	hook := &recordingHook{}
	st := newStore(t, WithHooks(hook))

	s := st.Create()
	snap := s.Snapshot()
	if got, want := snap.MachineIDs(), []string{"M01", "M02", "M03"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("markers = %v, want %v", got, want)
	}
	if len(snap.Rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(snap.Rows))
	}
	if got, want := hook.list(), []string{"opened", "filter::3"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("hook events = %v, want %v", got, want)
	}
}

func TestSessionFilterAndActivate(t *testing.T) {
	hook := &recordingHook{}
	st := newStore(t, WithHooks(hook), WithFocusZoom(17))
	s := st.Create()

	snap := s.SetFilter(machines.StatusFault)
	if got := snap.MachineIDs(); !reflect.DeepEqual(got, []string{"M03"}) {
		t.Fatalf("fault markers = %v", got)
	}
	if s.Filter() != machines.StatusFault {
		t.Fatalf("filter = %q", s.Filter())
	}

	snap, focused := s.Activate("M03")
	if !focused {
		t.Fatal("expected M03 to be focused")
	}
	if snap.Focus == nil || snap.Focus.Zoom != 17 {
		t.Fatalf("focus = %+v", snap.Focus)
	}
	if snap.OpenMarker == nil || *snap.OpenMarker != snap.Markers[0].Handle {
		t.Fatalf("open marker = %v", snap.OpenMarker)
	}

	before := snap.Version
	snap, focused = s.Activate("M01")
	if focused {
		t.Fatal("M01 is hidden under the fault filter")
	}
	if snap.Version != before {
		t.Fatalf("stale activation changed version %d -> %d", before, snap.Version)
	}

	events := hook.list()
	if got, want := events[len(events)-3:], []string{"filter:fault:1", "activate:M03", "stale:M01"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("hook events = %v, want %v", got, want)
	}
}

func TestGetUnknownSession(t *testing.T) {
	st := newStore(t)
	if _, err := st.Get("nope"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("Get err = %v", err)
	}
	if err := st.Delete("nope"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("Delete err = %v", err)
	}
}

func TestDeleteSession(t *testing.T) {
	hook := &recordingHook{}
	st := newStore(t, WithHooks(hook))
	s := st.Create()

	if err := st.Delete(s.ID()); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if st.Len() != 0 {
		t.Fatalf("Len = %d", st.Len())
	}
	events := hook.list()
	if events[len(events)-1] != "closed" {
		t.Fatalf("last event = %q", events[len(events)-1])
	}
}

func TestSweepRemovesOnlyExpired(t *testing.T) {
	c := &clock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	st := newStore(t, WithClock(c.now), WithTTL(10*time.Minute))

	old := st.Create()
	c.add(8 * time.Minute)
	fresh := st.Create()
	c.add(5 * time.Minute)

	if n := st.Sweep(c.now()); n != 1 {
		t.Fatalf("Sweep = %d, want 1", n)
	}
	if _, err := st.Get(old.ID()); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("old session still present: %v", err)
	}
	if _, err := st.Get(fresh.ID()); err != nil {
		t.Fatalf("fresh session swept: %v", err)
	}
}

func TestActivityKeepsSessionAlive(t *testing.T) {
	c := &clock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	st := newStore(t, WithClock(c.now), WithTTL(10*time.Minute))

	s := st.Create()
	c.add(9 * time.Minute)
	s.SetFilter(machines.StatusIdle)
	c.add(9 * time.Minute)

	if n := st.Sweep(c.now()); n != 0 {
		t.Fatalf("Sweep = %d, want 0", n)
	}
}

func TestTouchKeepsSessionAlive(t *testing.T) {
	c := &clock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	st := newStore(t, WithClock(c.now), WithTTL(10*time.Minute))

	s := st.Create()
	before := s.Snapshot().Version
	c.add(9 * time.Minute)
	s.Touch()
	c.add(9 * time.Minute)

	if n := st.Sweep(c.now()); n != 0 {
		t.Fatalf("Sweep = %d, want 0", n)
	}
	if got := s.LastSeen(); !got.Equal(c.now().Add(-9 * time.Minute)) {
		t.Fatalf("LastSeen = %v", got)
	}
	if v := s.Snapshot().Version; v != before {
		t.Fatalf("Touch changed version %d -> %d", before, v)
	}
}

func TestSessionsAreIndependent(t *testing.T) {
	st := newStore(t)
	a := st.Create()
	b := st.Create()

	a.SetFilter(machines.StatusWorking)
	if got := b.Snapshot().MachineIDs(); len(got) != 3 {
		t.Fatalf("session b changed: %v", got)
	}
	if got := st.IDs(); len(got) != 2 {
		t.Fatalf("IDs = %v", got)
	}
}

func TestSnapshotsArePublished(t *testing.T) {
	bus := markerstream.NewBus(8)
	st := newStore(t, WithBus(bus))
	s := st.Create()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	updates := bus.Subscribe(ctx, s.ID(), 4)

	s.SetFilter(machines.StatusIdle)

	// The snapshot from Create may still be in flight; wait for the filtered one.
	timeout := time.After(2 * time.Second)
	for {
		select {
		case u := <-updates:
			if u.SessionID != s.ID() {
				t.Fatalf("session = %q", u.SessionID)
			}
			if reflect.DeepEqual(u.Snapshot.MachineIDs(), []string{"M02"}) {
				return
			}
		case <-timeout:
			t.Fatal("no filtered update published")
		}
	}
}

func TestRemovedSessionEndsStreams(t *testing.T) {
	c := &clock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	bus := markerstream.NewBus(8)
	st := newStore(t, WithBus(bus), WithClock(c.now), WithTTL(time.Minute))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deleted := st.Create()
	swept := st.Create()
	deletedUpdates := bus.Subscribe(ctx, deleted.ID(), 4)
	sweptUpdates := bus.Subscribe(ctx, swept.ID(), 4)

	if err := st.Delete(deleted.ID()); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	c.add(2 * time.Minute)
	if n := st.Sweep(c.now()); n != 1 {
		t.Fatalf("Sweep = %d, want 1", n)
	}

	for name, ch := range map[string]<-chan markerstream.Update{"deleted": deletedUpdates, "swept": sweptUpdates} {
		deadline := time.After(2 * time.Second)
	drain:
		for {
			select {
			case _, ok := <-ch:
				if !ok {
					break drain
				}
			case <-deadline:
				t.Fatalf("%s session stream still open", name)
			}
		}
	}
}

func TestConcurrentOperations(t *testing.T) {
	st := newStore(t)
	s := st.Create()

	filters := []machines.Status{machines.AnyStatus, machines.StatusWorking, machines.StatusIdle, machines.StatusFault}
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.SetFilter(filters[i%len(filters)])
			s.Activate("M01")
			snap := s.Snapshot()
			if len(snap.Markers) != len(snap.Rows) {
				t.Errorf("markers %d != rows %d", len(snap.Markers), len(snap.Rows))
			}
		}(i)
	}
	wg.Wait()
}
