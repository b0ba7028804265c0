package events

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"forest-machine-map/pkg/machines"
)

type message struct {
	subject string
	data    []byte
}

type fakeConn struct {
	sent []message
	err  error
}

func (c *fakeConn) Publish(subject string, data []byte) error {
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, message{subject: subject, data: data})
	return nil
}

func fixedClock() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

func TestPublisherMessages(t *testing.T) {
	conn := &fakeConn{}
	p := NewPublisher(conn, "", nil)
	p.now = fixedClock

	p.SessionOpened("s1")
	p.FilterApplied("s1", machines.StatusFault, 1)
	p.RowActivated("s1", "M01", false)
	p.SessionClosed("s1")

	want := []string{
		`{"event":"session_opened","session":"s1","time":"2024-05-01T12:00:00Z"}`,
		`{"event":"filter_applied","session":"s1","filter":"fault","visible":1,"time":"2024-05-01T12:00:00Z"}`,
		`{"event":"row_activated","session":"s1","machineId":"M01","focused":false,"time":"2024-05-01T12:00:00Z"}`,
		`{"event":"session_closed","session":"s1","time":"2024-05-01T12:00:00Z"}`,
	}
	if len(conn.sent) != len(want) {
		t.Fatalf("sent %d messages, want %d", len(conn.sent), len(want))
	}
	for i, msg := range conn.sent {
		if msg.subject != DefaultSubject {
			t.Errorf("message %d subject = %q", i, msg.subject)
		}
		if string(msg.data) != want[i] {
			t.Errorf("message %d = %s, want %s", i, msg.data, want[i])
		}
	}
}

func TestFilterAllIsEmptyString(t *testing.T) {
	conn := &fakeConn{}
	p := NewPublisher(conn, "custom.subject", nil)

	p.FilterApplied("s1", machines.AnyStatus, 3)

	var e Event
	if err := json.Unmarshal(conn.sent[0].data, &e); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if e.Filter == nil || *e.Filter != "" || e.Visible == nil || *e.Visible != 3 {
		t.Fatalf("event = %+v", e)
	}
	if conn.sent[0].subject != "custom.subject" {
		t.Fatalf("subject = %q", conn.sent[0].subject)
	}
}

func TestPublishErrorsAreLogged(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	p := NewPublisher(&fakeConn{err: errors.New("nats: connection closed")}, "", zap.New(core))

	p.SessionOpened("s1")

	if logs.Len() != 1 || logs.All()[0].Message != "publish event" {
		t.Fatalf("logs = %+v", logs.All())
	}
}
