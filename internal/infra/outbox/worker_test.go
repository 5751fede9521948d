package outbox_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	appoutbox "carshare/internal/app/outbox"
	"carshare/internal/infra/outbox"
	"carshare/internal/infra/storage/memory"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type published struct {
	topic   string
	key     string
	payload []byte
	headers map[string]string
}

type fakeProducer struct {
	mu    sync.Mutex
	fail  int
	calls []published
}

func (p *fakeProducer) Publish(_ context.Context, topic, key string, payload []byte, headers map[string]string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail > 0 {
		p.fail--
		return errors.New("broker unavailable")
	}
	p.calls = append(p.calls, published{topic: topic, key: key, payload: payload, headers: headers})
	return nil
}

func (p *fakeProducer) sent() []published {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]published(nil), p.calls...)
}

func record(id, name string) appoutbox.EventRecord {
	return appoutbox.EventRecord{
		ID:         id,
		Name:       name,
		Payload:    []byte(`{"booking_id":"b-1"}`),
		OccurredAt: time.Date(2025, 10, 20, 12, 0, 0, 0, time.UTC),
		Aggregate:  "b-1",
		Headers:    map[string]string{"traceparent": "00-abc-def-01"},
	}
}

func TestDrainPublishesCloudEvents(t *testing.T) {
	box := memory.NewOutbox()
	require.NoError(t, box.Add(context.Background(), record("e-1", "booking.requested")))
	producer := &fakeProducer{}
	w := &outbox.Worker{Store: box, Producer: producer, ID: "w-1", TopicPrefix: "carshare."}

	n, err := w.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	calls := producer.sent()
	require.Len(t, calls, 1)
	assert.Equal(t, "carshare.booking.events.v1", calls[0].topic)
	assert.Equal(t, "b-1", calls[0].key)
	assert.Equal(t, "application/cloudevents+json", calls[0].headers["content-type"])

	var evt map[string]any
	require.NoError(t, json.Unmarshal(calls[0].payload, &evt))
	assert.Equal(t, "1.0", evt["specversion"])
	assert.Equal(t, "e-1", evt["id"])
	assert.Equal(t, "booking.requested.v1", evt["type"])
	assert.Equal(t, "00-abc-def-01", evt["traceparent"])
	assert.Equal(t, map[string]any{"booking_id": "b-1"}, evt["data"])
	assert.Zero(t, box.Pending())
}

func TestDrainRetriesAfterBackoff(t *testing.T) {
	box := memory.NewOutbox()
	require.NoError(t, box.Add(context.Background(), record("e-1", "car.published")))
	producer := &fakeProducer{fail: 1}
	now := time.Date(2025, 10, 20, 12, 0, 0, 0, time.UTC)
	w := &outbox.Worker{
		Store:    box,
		Producer: producer,
		ID:       "w-1",
		Backoff:  []time.Duration{time.Minute},
		Now:      func() time.Time { return now },
	}

	n, err := w.Drain(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 1, box.Pending())

	n, err = w.Drain(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n, "record is not due before the backoff elapses")

	now = now.Add(time.Minute)
	n, err = w.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Zero(t, box.Pending())
}

func TestDrainMarksUndecodablePayloadFailed(t *testing.T) {
	box := memory.NewOutbox()
	rec := record("e-1", "car.updated")
	rec.Payload = []byte("not json")
	require.NoError(t, box.Add(context.Background(), rec))
	producer := &fakeProducer{}
	w := &outbox.Worker{Store: box, Producer: producer, ID: "w-1"}

	n, err := w.Drain(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, producer.sent())
	assert.Equal(t, 1, box.Pending())
}

func TestRunStopsOnCancel(t *testing.T) {
	box := memory.NewOutbox()
	require.NoError(t, box.Add(context.Background(), record("e-1", "booking.confirmed")))
	producer := &fakeProducer{}
	w := &outbox.Worker{Store: box, Producer: producer, Interval: 5 * time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool { return len(producer.sent()) == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestRunRequiresDependencies(t *testing.T) {
	err := (&outbox.Worker{}).Run(context.Background())
	assert.ErrorIs(t, err, outbox.ErrWorkerNotConfigured)
}
