package cars

import (
	"cmp"
	"iter"
	"slices"
	"strings"
)

// SortKey selects a single catalog ordering. The zero value keeps input order.
type SortKey string

const (
	SortNone       SortKey = ""
	SortPriceAsc   SortKey = "price_asc"
	SortPriceDesc  SortKey = "price_desc"
	SortNameAsc    SortKey = "name_asc"
	SortNameDesc   SortKey = "name_desc"
	SortRatingDesc SortKey = "rating_desc"

	defaultSearchLimit = 24
	maxSearchLimit     = 100
)

// ParseSort maps user input onto a SortKey. Unknown values keep input order.
func ParseSort(raw string) SortKey {
	switch key := SortKey(strings.ToLower(strings.TrimSpace(raw))); key {
	case SortPriceAsc, SortPriceDesc, SortNameAsc, SortNameDesc, SortRatingDesc:
		return key
	case "price":
		return SortPriceAsc
	case "name":
		return SortNameAsc
	case "rating":
		return SortRatingDesc
	}
	return SortNone
}

// SearchParams describe catalog filters and paging. A zero-valued criterion
// imposes no constraint; price bounds are inclusive and in minor units.
type SearchParams struct {
	Location     string
	MinPrice     int64
	MaxPrice     int64
	Fuel         FuelType
	Transmission Transmission
	MinSeats     int
	Owner        OwnerID
	States       []State
	Sort         SortKey
	Limit        int
	Offset       int
}

// Normalized returns a sanitized copy of params.
func (p SearchParams) Normalized() SearchParams {
	n := p
	n.Location = strings.ToLower(strings.TrimSpace(n.Location))
	n.Fuel = FuelType(strings.ToLower(strings.TrimSpace(string(n.Fuel))))
	n.Transmission = Transmission(strings.ToLower(strings.TrimSpace(string(n.Transmission))))
	n.Sort = ParseSort(string(n.Sort))
	if n.MinPrice < 0 {
		n.MinPrice = 0
	}
	if n.MaxPrice < 0 {
		n.MaxPrice = 0
	}
	if n.MinSeats < 0 {
		n.MinSeats = 0
	}
	if n.Limit <= 0 {
		n.Limit = defaultSearchLimit
	}
	if n.Limit > maxSearchLimit {
		n.Limit = maxSearchLimit
	}
	if n.Offset < 0 {
		n.Offset = 0
	}
	return n
}

// Matches reports whether car satisfies every criterion of normalized params.
func (p SearchParams) Matches(car *Car) bool {
	if car == nil {
		return false
	}
	if p.Owner != "" && car.Owner != p.Owner {
		return false
	}
	if len(p.States) > 0 && !slices.Contains(p.States, car.State) {
		return false
	}
	if p.Location != "" && !car.Location.matches(p.Location) {
		return false
	}
	price := car.PricePerDay.Amount
	if p.MinPrice > 0 && price < p.MinPrice {
		return false
	}
	if p.MaxPrice > 0 && price > p.MaxPrice {
		return false
	}
	if p.Fuel != "" && car.Fuel != p.Fuel {
		return false
	}
	if p.Transmission != "" && car.Transmission != p.Transmission {
		return false
	}
	if p.MinSeats > 0 && car.Seats < p.MinSeats {
		return false
	}
	return true
}

func (l Location) matches(needle string) bool {
	for _, field := range []string{l.Address, l.City, l.Region, l.Country} {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

// Seq yields the cars that match params in sort order. Every iteration runs
// the whole filter and sort pass again over cars, so the sequence can be
// ranged over any number of times. Paging fields are ignored.
func (p SearchParams) Seq(cars []*Car) iter.Seq[*Car] {
	params := p.Normalized()
	return func(yield func(*Car) bool) {
		for _, car := range params.apply(cars) {
			if !yield(car) {
				return
			}
		}
	}
}

func (p SearchParams) apply(cars []*Car) []*Car {
	out := make([]*Car, 0, len(cars))
	for _, car := range cars {
		if p.Matches(car) {
			out = append(out, car)
		}
	}
	if compare := comparator(p.Sort); compare != nil {
		slices.SortStableFunc(out, compare)
	}
	return out
}

func comparator(key SortKey) func(a, b *Car) int {
	switch key {
	case SortPriceAsc:
		return func(a, b *Car) int { return cmp.Compare(a.PricePerDay.Amount, b.PricePerDay.Amount) }
	case SortPriceDesc:
		return func(a, b *Car) int { return cmp.Compare(b.PricePerDay.Amount, a.PricePerDay.Amount) }
	case SortNameAsc:
		return func(a, b *Car) int { return cmp.Compare(strings.ToLower(a.Name()), strings.ToLower(b.Name())) }
	case SortNameDesc:
		return func(a, b *Car) int { return cmp.Compare(strings.ToLower(b.Name()), strings.ToLower(a.Name())) }
	case SortRatingDesc:
		return func(a, b *Car) int { return cmp.Compare(b.Rating, a.Rating) }
	}
	return nil
}

// SearchResult wraps one page of hits with the total match count.
type SearchResult struct {
	Items []*Car
	Total int
}

// Search materializes the sequence and cuts the requested page.
func Search(cars []*Car, params SearchParams) SearchResult {
	params = params.Normalized()
	matched := slices.Collect(params.Seq(cars))
	total := len(matched)
	if params.Offset >= total {
		return SearchResult{Items: []*Car{}, Total: total}
	}
	end := min(params.Offset+params.Limit, total)
	return SearchResult{Items: matched[params.Offset:end], Total: total}
}
