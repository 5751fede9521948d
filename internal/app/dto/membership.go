package dto

import "carshare/internal/domain/membership"

type MembershipPlan struct {
	Tier           string   `json:"tier"`
	Name           string   `json:"name"`
	MonthlyFee     Amount   `json:"monthly_fee"`
	Currency       string   `json:"currency"`
	ServiceFeeRate float64  `json:"service_fee_rate"`
	InsuranceRate  float64  `json:"insurance_rate"`
	Perks          []string `json:"perks"`
}

type MembershipPlans struct {
	Items []MembershipPlan `json:"items"`
}

func MapMembershipPlans(plans []membership.Plan) MembershipPlans {
	out := MembershipPlans{Items: make([]MembershipPlan, 0, len(plans))}
	for _, p := range plans {
		out.Items = append(out.Items, MembershipPlan{
			Tier:           string(p.Tier),
			Name:           p.Name,
			MonthlyFee:     MapAmount(p.MonthlyFee),
			Currency:       p.MonthlyFee.Currency,
			ServiceFeeRate: p.Rates.ServiceFee.Fraction(),
			InsuranceRate:  p.Rates.Insurance.Fraction(),
			Perks:          append([]string{}, p.Perks...),
		})
	}
	return out
}
