// Package events publishes dashboard activity to NATS.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"forest-machine-map/pkg/machines"
	"forest-machine-map/pkg/session"
)

// DefaultSubject is used when no subject is configured.
const DefaultSubject = "forestry.dashboard.events"

// Event is the JSON body of every message.
type Event struct {
	Event     string    `json:"event"`
	Session   string    `json:"session"`
	Filter    *string   `json:"filter,omitempty"`
	MachineID string    `json:"machineId,omitempty"`
	Visible   *int      `json:"visible,omitempty"`
	Focused   *bool     `json:"focused,omitempty"`
	Time      time.Time `json:"time"`
}

// Conn is the part of *nats.Conn the publisher needs.
type Conn interface {
	Publish(subject string, data []byte) error
}

// Publisher is a session.Hook that sends one message per view event.
// Publish errors are logged and otherwise ignored.
type Publisher struct {
	conn    Conn
	nc      *nats.Conn
	subject string
	log     *zap.Logger
	now     func() time.Time
}

var _ session.Hook = (*Publisher)(nil)

// Connect dials url and returns a publisher on subject.
func Connect(url, subject string, log *zap.Logger) (*Publisher, error) {
	if log == nil {
		log = zap.NewNop()
	}
	opts := []nats.Option{
		nats.Name("forest-machine-map"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Warn("nats disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("nats reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	}
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", url, err)
	}
	p := NewPublisher(nc, subject, log)
	p.nc = nc
	return p, nil
}

// NewPublisher wraps an existing connection.
func NewPublisher(conn Conn, subject string, log *zap.Logger) *Publisher {
	if subject == "" {
		subject = DefaultSubject
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Publisher{conn: conn, subject: subject, log: log, now: time.Now}
}

// Close drains the connection opened by Connect.
func (p *Publisher) Close() {
	if p.nc != nil {
		if err := p.nc.Drain(); err != nil {
			p.nc.Close()
		}
	}
}

func (p *Publisher) SessionOpened(sessionID string) {
	p.send(Event{Event: "session_opened", Session: sessionID})
}

func (p *Publisher) SessionClosed(sessionID string) {
	p.send(Event{Event: "session_closed", Session: sessionID})
}

func (p *Publisher) FilterApplied(sessionID string, filter machines.Status, visible int) {
	f := string(filter)
	p.send(Event{Event: "filter_applied", Session: sessionID, Filter: &f, Visible: &visible})
}

func (p *Publisher) RowActivated(sessionID, machineID string, focused bool) {
	p.send(Event{Event: "row_activated", Session: sessionID, MachineID: machineID, Focused: &focused})
}

func (p *Publisher) send(e Event) {
	e.Time = p.now().UTC()
	payload, err := json.Marshal(e)
	if err != nil {
		p.log.Warn("encode event", zap.String("event", e.Event), zap.Error(err))
		return
	}
	if err := p.conn.Publish(p.subject, payload); err != nil {
		p.log.Warn("publish event", zap.String("event", e.Event), zap.String("subject", p.subject), zap.Error(err))
	}
}
