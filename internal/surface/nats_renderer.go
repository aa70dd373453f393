package surface

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/watertracker/internal/counter"
	derrors "git.home.luguber.info/inful/watertracker/internal/errors"
	"git.home.luguber.info/inful/watertracker/internal/logfields"
)

// RedrawMessage is published for every surface redraw.
type RedrawMessage struct {
	SurfaceID int       `json:"surface_id"`
	Count     int       `json:"count"`
	Level     int       `json:"level"`
	Timestamp time.Time `json:"timestamp"`
}

// NATSRenderer publishes redraws to <subject>.<id> so remote widgets can
// subscribe to their own surface or to <subject>.> for all of them.
type NATSRenderer struct {
	conn    *nats.Conn
	subject string
	now     func() time.Time
}

// NewNATSRenderer connects to url.
func NewNATSRenderer(url, subject string) (*NATSRenderer, error) {
	conn, err := nats.Connect(url, nats.Name("watertracker-surfaces"))
	if err != nil {
		return nil, derrors.TransportFailed(url, err)
	}
	slog.Info("NATS surface publisher connected", logfields.URL(url), logfields.Subject(subject))
	return NewNATSRendererWithConn(conn, subject), nil
}

// NewNATSRendererWithConn wraps an existing connection.
func NewNATSRendererWithConn(conn *nats.Conn, subject string) *NATSRenderer {
	return &NATSRenderer{conn: conn, subject: subject, now: time.Now}
}

// SubjectFor returns the subject a surface's redraws are published on.
func (n *NATSRenderer) SubjectFor(id int) string {
	return fmt.Sprintf("%s.%d", n.subject, id)
}

func (n *NATSRenderer) Render(_ context.Context, id int, v counter.View) error {
	data, err := json.Marshal(RedrawMessage{
		SurfaceID: id,
		Count:     v.Count,
		Level:     v.Level,
		Timestamp: n.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal redraw: %w", err)
	}
	if err := n.conn.Publish(n.SubjectFor(id), data); err != nil {
		return derrors.TransportFailed(n.conn.ConnectedUrl(), err)
	}
	return nil
}

// Close drains the connection.
func (n *NATSRenderer) Close() error {
	return n.conn.Drain()
}
