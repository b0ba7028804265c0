// Package session keeps one list view per browser session.
//
// A Session plays the part of the UI thread: its mutex serialises every
// filter change, activation and snapshot so a caller never sees a view half
// way through a rebuild.
package session

import (
	"sync"
	"time"

	"forest-machine-map/pkg/listview"
	"forest-machine-map/pkg/machines"
	"forest-machine-map/pkg/markerstream"
	"forest-machine-map/pkg/scene"
)

// Session is one browser's view of the registry.
type Session struct {
	id      string
	created time.Time

	mu       sync.Mutex
	view     *listview.View
	recorder *scene.Recorder
	lastSeen time.Time

	store *Store
}

// ID is the session's public identifier.
func (s *Session) ID() string { return s.id }

// Created is when the session was opened.
func (s *Session) Created() time.Time { return s.created }

// LastSeen is the time of the last operation on the session or the last
// keep-alive of one of its streams.
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// SetFilter rebuilds the view for filter and returns the new state.
func (s *Session) SetFilter(filter machines.Status) scene.Snapshot {
	s.mu.Lock()
	s.touch()
	s.recorder.SetFilter(filter)
	s.view.SetFilter(filter)
	snap := s.recorder.Snapshot()
	s.mu.Unlock()

	s.store.hooks.FilterApplied(s.id, filter, len(snap.Markers))
	s.store.publish(s.id, snap)
	return snap
}

// Activate behaves like a click on the row of machineID. A machine that is
// not listed under the current filter leaves the view untouched and reports
// false.
func (s *Session) Activate(machineID string) (scene.Snapshot, bool) {
	s.mu.Lock()
	s.touch()
	before := s.recorder.Version()
	focused := s.recorder.ActivateRow(machineID)
	snap := s.recorder.Snapshot()
	s.mu.Unlock()

	s.store.hooks.RowActivated(s.id, machineID, focused)
	if snap.Version != before {
		s.store.publish(s.id, snap)
	}
	return snap, focused
}

// Snapshot returns the current state without changing it.
func (s *Session) Snapshot() scene.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	return s.recorder.Snapshot()
}

// Filter is the filter the view was last built for.
func (s *Session) Filter() machines.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view.Filter()
}

// Touch marks the session as in use without changing the view. Open event
// streams call it so a connected but idle tab is not swept.
func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
}

func (s *Session) touch() { s.lastSeen = s.store.now() }

func (s *Session) expired(now time.Time, ttl time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen) > ttl
}

func (st *Store) publish(id string, snap scene.Snapshot) {
	if st.bus != nil {
		st.bus.Publish(markerstream.Update{SessionID: id, Snapshot: snap})
	}
}
