// Package markerstream carries view snapshots from sessions to the browsers
// following them over server-sent events.
package markerstream

import (
	"context"

	"forest-machine-map/pkg/scene"
)

// Update is a new snapshot of one session's view.
type Update struct {
	SessionID string
	Snapshot  scene.Snapshot
}

// Bus routes each session's snapshots to that session's followers only.
//
// Snapshots supersede each other, so a follower that falls behind is handed
// the newest one instead of a backlog. The run goroutine owns every follower
// channel and is the only place they are written to or closed.
type Bus struct {
	publish chan Update
	follow  chan *follower
	leave   chan *follower
	end     chan string
}

type follower struct {
	sessionID string
	ch        chan Update
}

// NewBus starts the routing goroutine with room for buffer pending updates.
// The goroutine lives as long as the process.
func NewBus(buffer int) *Bus {
	b := &Bus{
		publish: make(chan Update, buffer),
		follow:  make(chan *follower),
		leave:   make(chan *follower),
		end:     make(chan string),
	}
	go b.run()
	return b
}

// Publish queues u for the followers of u.SessionID. It never blocks; when
// the queue is full the update is dropped.
func (b *Bus) Publish(u Update) {
	select {
	case b.publish <- u:
	default:
	}
}

// Subscribe follows sessionID. The channel holds at most buffer snapshots
// and is closed when ctx ends or the session is ended with End.
func (b *Bus) Subscribe(ctx context.Context, sessionID string, buffer int) <-chan Update {
	if buffer < 1 {
		buffer = 1
	}
	f := &follower{sessionID: sessionID, ch: make(chan Update, buffer)}
	b.follow <- f

	go func() {
		<-ctx.Done()
		b.leave <- f
	}()
	return f.ch
}

// End closes every follower of sessionID. Later updates for it go nowhere.
func (b *Bus) End(sessionID string) {
	b.end <- sessionID
}

func (b *Bus) run() {
	sessions := make(map[string]map[*follower]struct{})

	for {
		select {
		case f := <-b.follow:
			set := sessions[f.sessionID]
			if set == nil {
				set = make(map[*follower]struct{})
				sessions[f.sessionID] = set
			}
			set[f] = struct{}{}
		case f := <-b.leave:
			set := sessions[f.sessionID]
			if _, ok := set[f]; !ok {
				// Already closed by End.
				continue
			}
			delete(set, f)
			close(f.ch)
			if len(set) == 0 {
				delete(sessions, f.sessionID)
			}
		case id := <-b.end:
			for f := range sessions[id] {
				close(f.ch)
			}
			delete(sessions, id)
		case u := <-b.publish:
			for f := range sessions[u.SessionID] {
				deliverLatest(f.ch, u)
			}
		}
	}
}

// deliverLatest sends u, discarding the oldest queued snapshot when ch is
// full. Only the run goroutine sends, so one discard always makes room.
func deliverLatest(ch chan Update, u Update) {
	select {
	case ch <- u:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- u:
	default:
	}
}
