package events

import (
	"context"
	"errors"
	"strings"

	"github.com/goliatone/go-staff/pkg/types"
)

// DefaultRoutingPrefix prefixes the change kind to build routing keys, so
// profile.role_changed travels as staff.profile.role_changed.
const DefaultRoutingPrefix = "staff."

// JSONPublisher publishes a JSON-encoded body under a routing key.
type JSONPublisher interface {
	PublishJSON(ctx context.Context, routingKey string, messageType string, body any) error
}

// Forwarder relays broker events to a message queue.
type Forwarder struct {
	broker    *Broker
	publisher JSONPublisher
	prefix    string
	logger    types.Logger
}

// NewForwarder builds a forwarder. An empty prefix uses DefaultRoutingPrefix.
func NewForwarder(broker *Broker, publisher JSONPublisher, prefix string, logger types.Logger) (*Forwarder, error) {
	if broker == nil || publisher == nil {
		return nil, errors.New("events: broker and publisher required")
	}
	if strings.TrimSpace(prefix) == "" {
		prefix = DefaultRoutingPrefix
	}
	if logger == nil {
		logger = types.NopLogger{}
	}
	return &Forwarder{broker: broker, publisher: publisher, prefix: prefix, logger: logger}, nil
}

// Run forwards events until ctx ends. Publish failures are logged and the
// event is skipped.
func (f *Forwarder) Run(ctx context.Context) {
	for event := range f.broker.Subscribe(ctx) {
		key := f.prefix + string(event.Kind)
		if err := f.publisher.PublishJSON(ctx, key, string(event.Kind), event); err != nil {
			f.logger.Error("change event forward failed", err,
				"kind", string(event.Kind),
				"event_id", event.ID.String(),
			)
		}
	}
}
