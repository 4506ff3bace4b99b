package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type published struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

type fakeChannel struct {
	sent   []published
	err    error
	closed bool
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, published{exchange: exchange, key: key, msg: msg})
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func newTestPublisher(ch *fakeChannel) *RabbitPublisher {
	p := newRabbitPublisher(ch, nil)
	p.now = func() time.Time { return time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC) }
	p.newID = func() string { return "msg-1" }
	return p
}

func TestRabbitPublisher_NotifyAll(t *testing.T) {
	ch := &fakeChannel{}
	p := newTestPublisher(ch)

	require.NoError(t, p.NotifyAll(context.Background(), "New lab booking", "1° Ano A on 2024-03-04"))
	require.Len(t, ch.sent, 1)

	sent := ch.sent[0]
	assert.Equal(t, ExchangeName, sent.exchange)
	assert.Equal(t, RoutingKeyAll, sent.key)
	assert.Equal(t, "application/json", sent.msg.ContentType)
	assert.Equal(t, amqp.Persistent, sent.msg.DeliveryMode)
	assert.Equal(t, "msg-1", sent.msg.MessageId)

	var msg Message
	require.NoError(t, json.Unmarshal(sent.msg.Body, &msg))
	assert.Equal(t, Message{
		ID:        "msg-1",
		Title:     "New lab booking",
		Body:      "1° Ano A on 2024-03-04",
		CreatedAt: time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC),
	}, msg)
}

func TestRabbitPublisher_NotifyUser(t *testing.T) {
	ch := &fakeChannel{}
	p := newTestPublisher(ch)

	require.NoError(t, p.NotifyUser(context.Background(), "user-7", "Test", "hello"))
	require.Len(t, ch.sent, 1)
	assert.Equal(t, RoutingKeyUser, ch.sent[0].key)
	assert.Contains(t, string(ch.sent[0].msg.Body), `"userId":"user-7"`)

	assert.Error(t, p.NotifyUser(context.Background(), "  ", "Test", "hello"))
	assert.Len(t, ch.sent, 1)
}

func TestRabbitPublisher_Errors(t *testing.T) {
	ch := &fakeChannel{err: errors.New("channel closed")}
	p := newTestPublisher(ch)

	err := p.NotifyAll(context.Background(), "t", "b")
	assert.ErrorContains(t, err, "channel closed")

	require.NoError(t, p.Close())
	assert.True(t, ch.closed)
	assert.Error(t, p.NotifyAll(context.Background(), "t", "b"))
	assert.NoError(t, p.Close())
}

func TestRabbitPublisher_PublishRacingClose(t *testing.T) {
	ch := &fakeChannel{}
	p := newTestPublisher(ch)

	var wg sync.WaitGroup
	errs := make([]error, 20)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = p.NotifyAll(context.Background(), "t", "b")
		}(i)
	}
	require.NoError(t, p.Close())
	wg.Wait()

	delivered := 0
	for _, err := range errs {
		if err == nil {
			delivered++
			continue
		}
		assert.ErrorIs(t, err, errPublisherClosed)
	}
	assert.Len(t, ch.sent, delivered)
	assert.ErrorIs(t, p.NotifyAll(context.Background(), "t", "b"), errPublisherClosed)
}

func TestNop(t *testing.T) {
	assert.NoError(t, Nop{}.NotifyAll(context.Background(), "t", "b"))
	assert.NoError(t, Nop{}.NotifyUser(context.Background(), "u", "t", "b"))
}
