package outbox

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carshare/internal/domain/shared/events"
)

type pinged struct {
	ID string
	At time.Time
}

func (e pinged) EventName() string     { return "test.pinged" }
func (e pinged) AggregateID() string   { return e.ID }
func (e pinged) OccurredAt() time.Time { return e.At }

type aggregate struct {
	events.EventRecorder
}

type sliceBox struct {
	records []EventRecord
}

func (b *sliceBox) Add(_ context.Context, rec EventRecord) error {
	b.records = append(b.records, rec)
	return nil
}

func (b *sliceBox) Flush(context.Context) error { return nil }

func TestDrainEncodesAndClears(t *testing.T) {
	at := time.Date(2025, 11, 1, 9, 0, 0, 0, time.UTC)
	agg := &aggregate{}
	agg.Record(pinged{ID: "a-1", At: at})
	agg.Record(pinged{ID: "a-1", At: at.Add(time.Minute)})

	box := &sliceBox{}
	seq := 0
	enc := JSONEventEncoder{IDGenerator: func() string { seq++; return "evt-" + string(rune('0'+seq)) }}
	require.NoError(t, Drain(context.Background(), box, enc, agg))

	require.Len(t, box.records, 2)
	assert.Empty(t, agg.PendingEvents())
	assert.Equal(t, "evt-1", box.records[0].ID)
	assert.Equal(t, "test.pinged", box.records[0].Name)
	assert.Equal(t, "a-1", box.records[0].Aggregate)

	var decoded pinged
	require.NoError(t, json.Unmarshal(box.records[1].Payload, &decoded))
	assert.Equal(t, at.Add(time.Minute), decoded.At)
}

func TestRecordDomainEventsNilBox(t *testing.T) {
	assert.NoError(t, RecordDomainEvents(context.Background(), nil, nil, []events.DomainEvent{pinged{}}))
}
