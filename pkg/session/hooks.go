package session

import "forest-machine-map/pkg/machines"

// Hook observes view activity. Implementations must not block.
type Hook interface {
	SessionOpened(sessionID string)
	SessionClosed(sessionID string)
	FilterApplied(sessionID string, filter machines.Status, visible int)
	RowActivated(sessionID, machineID string, focused bool)
}

// Hooks calls every hook in order.
type Hooks []Hook

var _ Hook = Hooks(nil)

func (hs Hooks) SessionOpened(sessionID string) {
	for _, h := range hs {
		h.SessionOpened(sessionID)
	}
}

func (hs Hooks) SessionClosed(sessionID string) {
	for _, h := range hs {
		h.SessionClosed(sessionID)
	}
}

func (hs Hooks) FilterApplied(sessionID string, filter machines.Status, visible int) {
	for _, h := range hs {
		h.FilterApplied(sessionID, filter, visible)
	}
}

func (hs Hooks) RowActivated(sessionID, machineID string, focused bool) {
	for _, h := range hs {
		h.RowActivated(sessionID, machineID, focused)
	}
}
