package pricing

import (
	"math"
	"strconv"

	"github.com/cockroachdb/errors"

	"carshare/internal/domain/shared/money"
)

// Rate is a fraction expressed in basis points (1000 = 10%).
type Rate int64

const MaxRate Rate = money.BasisPoints

// Rates are the fee rates applied on top of the rental subtotal.
type Rates struct {
	ServiceFee Rate
	Insurance  Rate
}

// DefaultRates applies when neither the request nor a membership tier sets one.
var DefaultRates = Rates{ServiceFee: 1000, Insurance: 500}

// RateFromFraction converts 0.1 into 1000 basis points. Values outside [0, 1]
// are rejected.
func RateFromFraction(f float64) (Rate, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 || f > 1 {
		return 0, errors.Newf("pricing: rate %v outside [0, 1]", f)
	}
	return Rate(math.Round(f * money.BasisPoints)), nil
}

func MustRate(f float64) Rate {
	r, err := RateFromFraction(f)
	if err != nil {
		panic(err)
	}
	return r
}

func (r Rate) Fraction() float64 {
	return float64(r) / money.BasisPoints
}

func (r Rate) Valid() bool {
	return r >= 0 && r <= MaxRate
}

func (r Rate) String() string {
	return strconv.FormatFloat(r.Fraction(), 'f', -1, 64)
}

func (r Rates) Validate() error {
	if !r.ServiceFee.Valid() {
		return errors.Newf("pricing: service fee rate %s outside [0, 1]", r.ServiceFee)
	}
	if !r.Insurance.Valid() {
		return errors.Newf("pricing: insurance rate %s outside [0, 1]", r.Insurance)
	}
	return nil
}
