package dto

import (
	"strconv"

	"carshare/internal/domain/shared/money"
)

// Amount is a minor-unit value rendered as a JSON number with two decimals.
type Amount int64

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(money.FormatCents(int64(a))), nil
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	raw := string(data)
	if unquoted, err := strconv.Unquote(raw); err == nil {
		raw = unquoted
	}
	cents, err := money.ParseCents(raw)
	if err != nil {
		return err
	}
	*a = Amount(cents)
	return nil
}

func (a Amount) String() string {
	return money.FormatCents(int64(a))
}

func MapAmount(m money.Money) Amount {
	return Amount(m.Amount)
}
