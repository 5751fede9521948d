package outbox

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	appoutbox "carshare/internal/app/outbox"
)

var ErrWorkerNotConfigured = errors.New("outbox: worker missing dependencies")

// Message is an outbox record together with its delivery attempts.
type Message struct {
	appoutbox.EventRecord
	Attempts int
}

// Store hands out undelivered records one at a time.
type Store interface {
	// Claim returns the next record due at now, or nil when none is due.
	Claim(ctx context.Context, workerID string, now time.Time) (*Message, error)
	MarkSent(ctx context.Context, id string, at time.Time) error
	MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error
}

type Producer interface {
	Publish(ctx context.Context, topic string, key string, payload []byte, headers map[string]string) error
}

// Worker publishes outbox records as CloudEvents.
type Worker struct {
	Store       Store
	Producer    Producer
	Interval    time.Duration
	TopicPrefix string
	Source      string
	ID          string
	Backoff     []time.Duration
	// BatchSize caps the records delivered per tick.
	BatchSize int
	Now       func() time.Time
	Logger    *slog.Logger
}

func (w *Worker) Run(ctx context.Context) error {
	if w.Store == nil || w.Producer == nil {
		return ErrWorkerNotConfigured
	}
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	ticker := time.NewTicker(w.interval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := w.Drain(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
		}
	}
}

// Drain delivers due records until none is left or the batch size is
// reached, and reports how many were published.
func (w *Worker) Drain(ctx context.Context) (int, error) {
	sent := 0
	for range w.batchSize() {
		ok, delivered, err := w.processOnce(ctx)
		if err != nil {
			return sent, err
		}
		if !ok {
			break
		}
		if delivered {
			sent++
		}
	}
	return sent, nil
}

func (w *Worker) processOnce(ctx context.Context) (claimed, delivered bool, err error) {
	msg, err := w.Store.Claim(ctx, w.ID, w.now())
	if err != nil {
		return false, false, errors.Wrap(err, "claim outbox record")
	}
	if msg == nil {
		return false, false, nil
	}
	payload, headers, err := w.formatPayload(msg)
	if err != nil {
		return true, false, w.fail(ctx, msg, err)
	}
	if err := w.Producer.Publish(ctx, w.topicFor(msg.Name), msg.Aggregate, payload, headers); err != nil {
		return true, false, w.fail(ctx, msg, err)
	}
	if err := w.Store.MarkSent(ctx, msg.ID, w.now()); err != nil {
		return true, true, errors.Wrapf(err, "mark %s sent", msg.ID)
	}
	return true, true, nil
}

func (w *Worker) fail(ctx context.Context, msg *Message, cause error) error {
	if w.Logger != nil {
		w.Logger.WarnContext(ctx, "outbox publish failed", "event_id", msg.ID, "event", msg.Name, "attempts", msg.Attempts+1, "err", cause)
	}
	if err := w.Store.MarkFailed(ctx, msg.ID, w.nextRetry(msg.Attempts), cause.Error()); err != nil {
		return errors.Wrapf(err, "mark %s failed", msg.ID)
	}
	return nil
}

func (w *Worker) formatPayload(msg *Message) ([]byte, map[string]string, error) {
	var data map[string]any
	if err := json.Unmarshal(msg.Payload, &data); err != nil {
		return nil, nil, errors.Wrap(err, "decode event payload")
	}
	evt := map[string]any{
		"specversion":     "1.0",
		"id":              msg.ID,
		"type":            msg.Name + ".v1",
		"source":          w.source(),
		"subject":         msg.Aggregate,
		"time":            msg.OccurredAt,
		"datacontenttype": "application/json",
		"data":            data,
	}
	if trace, ok := msg.Headers["traceparent"]; ok {
		evt["traceparent"] = trace
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return nil, nil, err
	}
	headers := map[string]string{"content-type": "application/cloudevents+json"}
	for k, v := range msg.Headers {
		headers[k] = v
	}
	return payload, headers, nil
}

// topicFor maps "booking.confirmed" to "booking.events.v1".
func (w *Worker) topicFor(name string) string {
	base := name
	if idx := strings.IndexRune(name, '.'); idx > 0 {
		base = name[:idx]
	}
	return w.TopicPrefix + base + ".events.v1"
}

func (w *Worker) now() time.Time {
	if w.Now != nil {
		return w.Now().UTC()
	}
	return time.Now().UTC()
}

func (w *Worker) interval() time.Duration {
	if w.Interval <= 0 {
		return 500 * time.Millisecond
	}
	return w.Interval
}

func (w *Worker) batchSize() int {
	if w.BatchSize <= 0 {
		return 100
	}
	return w.BatchSize
}

func (w *Worker) nextRetry(attempts int) time.Time {
	switch {
	case attempts < len(w.Backoff):
		return w.now().Add(w.Backoff[attempts])
	case len(w.Backoff) > 0:
		return w.now().Add(w.Backoff[len(w.Backoff)-1])
	}
	return w.now().Add(5 * time.Second)
}

func (w *Worker) source() string {
	if w.Source != "" {
		return w.Source
	}
	return "app://carshare"
}
