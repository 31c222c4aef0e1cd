package eventbus

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

type natsConn interface {
	Publish(subject string, data []byte) error
	Subscribe(subject string, cb nats.MsgHandler) (*nats.Subscription, error)
	Close()
}

// Relay mirrors local bus events onto a NATS subject and replays events from other instances.
type Relay struct {
	conn        natsConn
	sub         *nats.Subscription
	subject     string
	bus         *Bus
	logger      *zap.Logger
	unsubscribe func()
}

// NewNATSRelay connects to url and prepares a relay for subject.
func NewNATSRelay(url, subject string, bus *Bus, logger *zap.Logger) (*Relay, error) {
	nc, err := nats.Connect(url, nats.Name("smk-student-hub"), nats.MaxReconnects(-1))
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", url, err)
	}
	return newRelay(nc, subject, bus, logger), nil
}

func newRelay(conn natsConn, subject string, bus *Bus, logger *zap.Logger) *Relay {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Relay{conn: conn, subject: subject, bus: bus, logger: logger}
}

// Start subscribes to remote events and begins forwarding local ones.
func (r *Relay) Start() error {
	sub, err := r.conn.Subscribe(r.subject, r.receive)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", r.subject, err)
	}
	r.sub = sub
	r.unsubscribe = r.bus.SubscribeAll(r.forward)
	r.logger.Info("nats relay started", zap.String("subject", r.subject), zap.String("origin", r.bus.Origin()))
	return nil
}

func (r *Relay) forward(evt Event) {
	// Events replayed from peers keep their origin and must not bounce back.
	if evt.Origin != r.bus.Origin() {
		return
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		r.logger.Error("failed to marshal event", zap.Error(err))
		return
	}
	if err := r.conn.Publish(r.subject, payload); err != nil {
		r.logger.Warn("failed to publish event to nats", zap.String("key", evt.Key), zap.Error(err))
	}
}

func (r *Relay) receive(msg *nats.Msg) {
	var evt Event
	if err := json.Unmarshal(msg.Data, &evt); err != nil {
		r.logger.Warn("discarding malformed relay event", zap.Error(err))
		return
	}
	if evt.Origin == "" || evt.Origin == r.bus.Origin() {
		return
	}
	r.bus.Publish(evt)
}

// Close stops forwarding and releases the connection.
func (r *Relay) Close() {
	if r.unsubscribe != nil {
		r.unsubscribe()
	}
	if r.sub != nil {
		_ = r.sub.Unsubscribe()
	}
	r.conn.Close()
}
