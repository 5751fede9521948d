package config

import (
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"carshare/internal/domain/membership"
	"carshare/internal/domain/pricing"
	"carshare/internal/domain/shared/money"
)

// tierFile is the YAML layout of MEMBERSHIP_TIERS_FILE:
//
//	defaults:
//	  service_fee_rate: 0.10
//	  insurance_rate: 0.05
//	tiers:
//	  - tier: plus
//	    name: Plus
//	    monthly_fee: "9.99"
//	    service_fee_rate: 0.08
//	    insurance_rate: 0.05
//	    perks: [Priority support]
type tierFile struct {
	Defaults *rateSpec `yaml:"defaults"`
	Tiers    []struct {
		Tier       string   `yaml:"tier"`
		Name       string   `yaml:"name"`
		MonthlyFee string   `yaml:"monthly_fee"`
		Perks      []string `yaml:"perks"`
		rateSpec   `yaml:",inline"`
	} `yaml:"tiers"`
}

type rateSpec struct {
	ServiceFeeRate *float64 `yaml:"service_fee_rate"`
	InsuranceRate  *float64 `yaml:"insurance_rate"`
}

func (r rateSpec) resolve(base pricing.Rates) (pricing.Rates, error) {
	out := base
	if r.ServiceFeeRate != nil {
		rate, err := pricing.RateFromFraction(*r.ServiceFeeRate)
		if err != nil {
			return pricing.Rates{}, err
		}
		out.ServiceFee = rate
	}
	if r.InsuranceRate != nil {
		rate, err := pricing.RateFromFraction(*r.InsuranceRate)
		if err != nil {
			return pricing.Rates{}, err
		}
		out.Insurance = rate
	}
	return out, nil
}

// MembershipTable returns the tier table from MEMBERSHIP_TIERS_FILE, or the
// built-in table when no file is configured.
func (c Config) MembershipTable() (membership.Table, error) {
	defaults, err := c.DefaultRates()
	if err != nil {
		return membership.Table{}, err
	}
	if c.Pricing.MembershipTiers == "" {
		return membership.DefaultTable(defaults, c.Pricing.Currency), nil
	}
	f, err := os.Open(c.Pricing.MembershipTiers)
	if err != nil {
		return membership.Table{}, errors.Wrap(err, "open membership tiers")
	}
	defer f.Close()
	return ParseMembershipTable(f, defaults, c.Pricing.Currency)
}

// ParseMembershipTable decodes a tier file. Unknown keys are rejected.
func ParseMembershipTable(r io.Reader, defaults pricing.Rates, currency string) (membership.Table, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var file tierFile
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return membership.Table{}, errors.Wrap(err, "decode membership tiers")
	}
	if file.Defaults != nil {
		resolved, err := file.Defaults.resolve(defaults)
		if err != nil {
			return membership.Table{}, errors.Wrap(err, "membership defaults")
		}
		defaults = resolved
	}
	if len(file.Tiers) == 0 {
		return membership.DefaultTable(defaults, currency), nil
	}
	plans := make([]membership.Plan, 0, len(file.Tiers))
	for i, t := range file.Tiers {
		rates, err := t.resolve(defaults)
		if err != nil {
			return membership.Table{}, errors.Wrapf(err, "tier %d (%s)", i, t.Tier)
		}
		fee := money.Must(0, currency)
		if t.MonthlyFee != "" {
			fee, err = money.ParseDecimal(t.MonthlyFee, currency)
			if err != nil {
				return membership.Table{}, errors.Wrapf(err, "tier %d (%s) monthly_fee", i, t.Tier)
			}
		}
		plans = append(plans, membership.Plan{
			Tier:       membership.Tier(t.Tier),
			Name:       t.Name,
			MonthlyFee: fee,
			Rates:      rates,
			Perks:      t.Perks,
		})
	}
	return membership.NewTable(defaults, plans)
}
