package amqp

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/require"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type recordingChannel struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

func (r *recordingChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	r.exchange = exchange
	r.key = key
	r.msg = msg
	return nil
}

func TestPublisher_PublishJSON(t *testing.T) {
	ch := &recordingChannel{}
	now := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	pub, err := NewPublisher(ch, Config{Exchange: "staff", Clock: fixedClock{t: now}})
	require.NoError(t, err)

	require.NoError(t, pub.PublishJSON(context.Background(), " staff.invitation ", "invitation", map[string]string{"email": "a@clinic.example.com"}))
	require.Equal(t, "staff", ch.exchange)
	require.Equal(t, "staff.invitation", ch.key)
	require.Equal(t, "application/json", ch.msg.ContentType)
	require.Equal(t, "invitation", ch.msg.Type)
	require.Equal(t, amqp.Persistent, ch.msg.DeliveryMode)
	require.Equal(t, now, ch.msg.Timestamp)

	var body map[string]string
	require.NoError(t, json.Unmarshal(ch.msg.Body, &body))
	require.Equal(t, "a@clinic.example.com", body["email"])
}

func TestNewPublisherRequiresChannel(t *testing.T) {
	_, err := NewPublisher(nil, Config{})
	require.Error(t, err)
}
