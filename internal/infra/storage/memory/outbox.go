package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"carshare/internal/app/outbox"
	"carshare/internal/app/uow"
	outboxworker "carshare/internal/infra/outbox"
)

// Outbox keeps event records until the outbox worker delivers them. Records
// added inside a Unit of the attached Store become visible on commit.
type Outbox struct {
	mu      sync.Mutex
	records []*pendingRecord
	// retained bounds the delivered records kept for inspection.
	retained int
}

type pendingRecord struct {
	msg       outboxworker.Message
	state     string
	nextTry   time.Time
	claimedBy string
}

const (
	stateNew     = "NEW"
	stateClaimed = "CLAIMED"
	stateSent    = "SENT"
	stateFailed  = "FAILED"
)

func NewOutbox() *Outbox {
	return &Outbox{retained: 1000}
}

// Attach routes records added inside units of s through the unit.
func (o *Outbox) Attach(s *Store) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outbox = o
}

func (o *Outbox) Add(ctx context.Context, record outbox.EventRecord) error {
	if unit, ok := uow.FromContext(ctx); ok {
		if mu, ok := unit.(*Unit); ok && mu.store.outbox == o {
			return mu.stageEvent(record)
		}
	}
	o.append(record)
	return nil
}

func (o *Outbox) append(records ...outbox.EventRecord) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, rec := range records {
		o.records = append(o.records, &pendingRecord{msg: outboxworker.Message{EventRecord: rec}, state: stateNew})
	}
}

// Flush drops delivered records beyond the retention limit.
func (o *Outbox) Flush(context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	sent := 0
	for _, rec := range o.records {
		if rec.state == stateSent {
			sent++
		}
	}
	if excess := sent - o.retained; excess > 0 {
		o.records = slices.DeleteFunc(o.records, func(rec *pendingRecord) bool {
			if excess > 0 && rec.state == stateSent {
				excess--
				return true
			}
			return false
		})
	}
	return nil
}

func (o *Outbox) Claim(_ context.Context, workerID string, now time.Time) (*outboxworker.Message, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, rec := range o.records {
		if (rec.state == stateNew || rec.state == stateFailed) && !rec.nextTry.After(now) {
			rec.state = stateClaimed
			rec.claimedBy = workerID
			msg := rec.msg
			return &msg, nil
		}
	}
	return nil, nil
}

func (o *Outbox) MarkSent(_ context.Context, id string, _ time.Time) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if rec := o.find(id); rec != nil {
		rec.state = stateSent
	}
	return nil
}

func (o *Outbox) MarkFailed(_ context.Context, id string, next time.Time, _ string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if rec := o.find(id); rec != nil {
		rec.state = stateFailed
		rec.nextTry = next
		rec.msg.Attempts++
	}
	return nil
}

func (o *Outbox) find(id string) *pendingRecord {
	for _, rec := range o.records {
		if rec.msg.ID == id {
			return rec
		}
	}
	return nil
}

// Records returns the retained records in insertion order.
func (o *Outbox) Records() []outbox.EventRecord {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]outbox.EventRecord, 0, len(o.records))
	for _, rec := range o.records {
		out = append(out, rec.msg.EventRecord)
	}
	return out
}

// Pending counts records not yet delivered.
func (o *Outbox) Pending() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := 0
	for _, rec := range o.records {
		if rec.state != stateSent {
			n++
		}
	}
	return n
}

var (
	_ outbox.Outbox      = (*Outbox)(nil)
	_ outboxworker.Store = (*Outbox)(nil)
)
