package membership

import (
	"slices"
	"strings"

	"github.com/cockroachdb/errors"

	"carshare/internal/domain/pricing"
	"carshare/internal/domain/shared/money"
)

var (
	ErrUnknownTier   = errors.New("membership: unknown tier")
	ErrDuplicateTier = errors.New("membership: duplicate tier")
)

type Tier string

const (
	TierBasic   Tier = "basic"
	TierPlus    Tier = "plus"
	TierPremium Tier = "premium"
)

func ParseTier(raw string) Tier {
	return Tier(strings.ToLower(strings.TrimSpace(raw)))
}

type Plan struct {
	Tier       Tier
	Name       string
	MonthlyFee money.Money
	Rates      pricing.Rates
	Perks      []string
}

// Table resolves fee rates per membership tier.
type Table struct {
	defaults pricing.Rates
	plans    []Plan
}

// NewTable validates plans. Rates of unknown tiers fall back to defaults.
func NewTable(defaults pricing.Rates, plans []Plan) (Table, error) {
	if err := defaults.Validate(); err != nil {
		return Table{}, err
	}
	seen := make(map[Tier]struct{}, len(plans))
	out := make([]Plan, 0, len(plans))
	for _, plan := range plans {
		plan.Tier = ParseTier(string(plan.Tier))
		if plan.Tier == "" {
			return Table{}, errors.Wrap(ErrUnknownTier, "empty tier")
		}
		if _, ok := seen[plan.Tier]; ok {
			return Table{}, errors.Wrapf(ErrDuplicateTier, "%s", plan.Tier)
		}
		if err := plan.Rates.Validate(); err != nil {
			return Table{}, errors.Wrapf(err, "tier %s", plan.Tier)
		}
		seen[plan.Tier] = struct{}{}
		plan.Perks = slices.Clone(plan.Perks)
		out = append(out, plan)
	}
	return Table{defaults: defaults, plans: out}, nil
}

// DefaultTable is used when no tier file is configured.
func DefaultTable(defaults pricing.Rates, currency string) Table {
	table, err := NewTable(defaults, []Plan{
		{
			Tier:       TierBasic,
			Name:       "Basic",
			MonthlyFee: money.Must(0, currency),
			Rates:      defaults,
			Perks:      []string{"Standard support"},
		},
		{
			Tier:       TierPlus,
			Name:       "Plus",
			MonthlyFee: money.Must(999, currency),
			Rates:      pricing.Rates{ServiceFee: 800, Insurance: defaults.Insurance},
			Perks:      []string{"Reduced service fee", "Priority support"},
		},
		{
			Tier:       TierPremium,
			Name:       "Premium",
			MonthlyFee: money.Must(1999, currency),
			Rates:      pricing.Rates{ServiceFee: 500, Insurance: 300},
			Perks:      []string{"Lowest service fee", "Discounted insurance", "Free cancellation upgrades"},
		},
	})
	if err != nil {
		panic(err)
	}
	return table
}

func (t Table) Plan(tier Tier) (Plan, bool) {
	tier = ParseTier(string(tier))
	for _, plan := range t.plans {
		if plan.Tier == tier {
			return plan, true
		}
	}
	return Plan{}, false
}

func (t Table) RatesFor(tier Tier) pricing.Rates {
	if plan, ok := t.Plan(tier); ok {
		return plan.Rates
	}
	return t.defaults
}

func (t Table) Defaults() pricing.Rates {
	return t.defaults
}

func (t Table) Plans() []Plan {
	return slices.Clone(t.plans)
}
