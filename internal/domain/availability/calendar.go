package availability

import (
	"context"
	"slices"
	"time"

	"github.com/cockroachdb/errors"

	"carshare/internal/domain/cars"
	"carshare/internal/domain/shared/daterange"
	"carshare/internal/domain/shared/events"
)

var (
	// ErrConflict is the AvailabilityConflict rejection: the requested range
	// overlaps a booking or an owner block of the same car.
	ErrConflict         = errors.New("availability: requested dates overlap an existing booking")
	ErrRangeNotFound    = errors.New("availability: range not found")
	ErrConcurrentUpdate = errors.New("availability: calendar was modified concurrently")
)

type BlockReason string

const (
	ReasonBooking    BlockReason = "BOOKING"
	ReasonOwnerBlock BlockReason = "OWNER_BLOCK"
)

type Block struct {
	Range     daterange.DateRange
	Reason    BlockReason
	Reference string
	CreatedAt time.Time
}

// HasConflict reports whether candidate overlaps any of existing. Ranges are
// half-open, so a range ending the day another starts does not conflict.
func HasConflict(candidate daterange.DateRange, existing []daterange.DateRange) bool {
	return slices.ContainsFunc(existing, candidate.Overlaps)
}

// Calendar holds the blocked ranges of one car.
type Calendar struct {
	CarID   cars.CarID
	Blocks  []Block
	Version int64
	events.EventRecorder
}

type Repository interface {
	Calendar(ctx context.Context, id cars.CarID) (*Calendar, error)
	Save(ctx context.Context, calendar *Calendar) error
}

func NewCalendar(id cars.CarID) *Calendar {
	return &Calendar{CarID: id}
}

func (c *Calendar) Ranges() []daterange.DateRange {
	out := make([]daterange.DateRange, 0, len(c.Blocks))
	for _, block := range c.Blocks {
		out = append(out, block.Range)
	}
	return out
}

func (c *Calendar) CanReserve(r daterange.DateRange) bool {
	return !HasConflict(r, c.Ranges())
}

func (c *Calendar) Reserve(r daterange.DateRange, bookingID string, now time.Time) error {
	if !c.CanReserve(r) {
		c.Record(CalendarOverbookingPrevented{CarID: string(c.CarID), Range: r, At: now.UTC()})
		return ErrConflict
	}
	c.appendBlock(Block{Range: r, Reason: ReasonBooking, Reference: bookingID, CreatedAt: now.UTC()})
	c.Record(CalendarBlocked{CarID: string(c.CarID), Range: r, Reason: ReasonBooking, Reference: bookingID, At: now.UTC()})
	return nil
}

// Block reserves r for the owner, e.g. for maintenance.
func (c *Calendar) Block(r daterange.DateRange, reference string, now time.Time) error {
	if err := r.Validate(); err != nil {
		return err
	}
	if !c.CanReserve(r) {
		return ErrConflict
	}
	c.appendBlock(Block{Range: r, Reason: ReasonOwnerBlock, Reference: reference, CreatedAt: now.UTC()})
	c.Record(CalendarBlocked{CarID: string(c.CarID), Range: r, Reason: ReasonOwnerBlock, Reference: reference, At: now.UTC()})
	return nil
}

func (c *Calendar) Release(reference string, now time.Time) error {
	return c.release(func(b Block) bool { return b.Reference == reference }, now)
}

// ReleaseOwnerBlock removes an owner block; booking blocks are left alone.
func (c *Calendar) ReleaseOwnerBlock(reference string, now time.Time) error {
	return c.release(func(b Block) bool { return b.Reference == reference && b.Reason == ReasonOwnerBlock }, now)
}

func (c *Calendar) release(match func(Block) bool, now time.Time) error {
	idx := slices.IndexFunc(c.Blocks, match)
	if idx == -1 {
		return ErrRangeNotFound
	}
	removed := c.Blocks[idx]
	c.Blocks = slices.Delete(c.Blocks, idx, idx+1)
	c.Record(CalendarReleased{CarID: string(c.CarID), Range: removed.Range, Reason: removed.Reason, Reference: removed.Reference, At: now.UTC()})
	return nil
}

// Between returns the blocks overlapping window, ordered by start.
func (c *Calendar) Between(window daterange.DateRange) []Block {
	out := make([]Block, 0, len(c.Blocks))
	for _, block := range c.Blocks {
		if window.Start.IsZero() || window.End.IsZero() || block.Range.Overlaps(window) {
			out = append(out, block)
		}
	}
	slices.SortStableFunc(out, func(a, b Block) int { return a.Range.Start.Compare(b.Range.Start) })
	return out
}

func (c *Calendar) appendBlock(block Block) {
	c.Blocks = append(c.Blocks, block)
}
