package dto

import (
	"time"

	"carshare/internal/domain/availability"
)

type CalendarBlock struct {
	From   time.Time `json:"from"`
	To     time.Time `json:"to"`
	Reason string    `json:"reason"`
}

type Calendar struct {
	CarID  string          `json:"car_id"`
	Blocks []CalendarBlock `json:"blocks"`
}

func MapCalendar(carID string, blocks []availability.Block) Calendar {
	out := Calendar{CarID: carID, Blocks: make([]CalendarBlock, 0, len(blocks))}
	for _, b := range blocks {
		out.Blocks = append(out.Blocks, CalendarBlock{From: b.Range.Start, To: b.Range.End, Reason: string(b.Reason)})
	}
	return out
}
