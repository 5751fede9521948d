package booking

import (
	"strings"
	"time"

	"carshare/internal/domain/shared/money"
)

const (
	PolicyFlexible = "flexible"
	PolicyModerate = "moderate"
	PolicyStrict   = "strict"
)

type CancellationPolicySnapshot struct {
	PolicyID               string
	FreeCancellationUntil  time.Time
	PreStartPenaltyPercent int
	LatePenaltyPercent     int
}

// PolicyFor freezes the car's cancellation policy for a rental starting at start.
func PolicyFor(policyID string, start time.Time) CancellationPolicySnapshot {
	id := strings.ToLower(strings.TrimSpace(policyID))
	switch id {
	case PolicyModerate:
		return CancellationPolicySnapshot{PolicyID: id, FreeCancellationUntil: start.Add(-5 * 24 * time.Hour), PreStartPenaltyPercent: 50, LatePenaltyPercent: 100}
	case PolicyStrict:
		return CancellationPolicySnapshot{PolicyID: id, FreeCancellationUntil: start.Add(-14 * 24 * time.Hour), PreStartPenaltyPercent: 50, LatePenaltyPercent: 100}
	default:
		return CancellationPolicySnapshot{PolicyID: PolicyFlexible, FreeCancellationUntil: start.Add(-24 * time.Hour), PreStartPenaltyPercent: 0, LatePenaltyPercent: 50}
	}
}

// CalculateRefund splits total into refund and penalty for a cancellation at cancelAt.
func (c CancellationPolicySnapshot) CalculateRefund(total money.Money, cancelAt, start time.Time) (refund money.Money, penalty money.Money, err error) {
	percent := 0
	switch {
	case c.PolicyID == "":
	case cancelAt.Before(start):
		if c.FreeCancellationUntil.IsZero() || !cancelAt.Before(c.FreeCancellationUntil) {
			percent = clampPercent(c.PreStartPenaltyPercent)
		}
	default:
		percent = clampPercent(c.LatePenaltyPercent)
	}
	penalty = total.Percent(percent)
	refund, err = total.Sub(penalty)
	if err != nil {
		return money.Money{}, money.Money{}, err
	}
	return refund, penalty, nil
}

func clampPercent(p int) int {
	return min(max(p, 0), 100)
}
