// Package analysis provides the catalog views of the dashboard: named filter
// predicates with their ordering, and free-text search.
package analysis

import (
	"errors"
	"fmt"
	"sort"

	"investpro/services/market"
)

// Predicate names one of the fixed catalog filters
type Predicate string

const (
	All           Predicate = "all"
	HighYield     Predicate = "high-yield"
	BelowBook     Predicate = "below-book"
	Fund          Predicate = "fund"
	Equity        Predicate = "equity"
	Opportunities Predicate = "opportunities"
)

// Thresholds used by the predicates
const (
	highYieldMin           = 10.0
	belowBookMax           = 1.0
	opportunityReturnMin   = 14.0
	opportunityPriceToBook = 1.2

	spotlightReturnMin   = 16.0
	spotlightPriceToBook = 1.1
)

var ErrUnknownPredicate = errors.New("unknown filter")

// PredicateInfo describes a predicate for menus and help output
type PredicateInfo struct {
	Predicate Predicate
	Label     string
}

// Predicates returns every predicate in menu order
func Predicates() []PredicateInfo {
	return []PredicateInfo{
		{All, "All assets"},
		{Opportunities, "Best buys"},
		{HighYield, "Top payers"},
		{BelowBook, "Below book value"},
		{Fund, "Funds only"},
		{Equity, "Stocks only"},
	}
}

// ParsePredicate validates a predicate name. An empty name means All.
func ParsePredicate(name string) (Predicate, error) {
	if name == "" {
		return All, nil
	}
	for _, info := range Predicates() {
		if string(info.Predicate) == name {
			return info.Predicate, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPredicate, name)
}

// Matches reports whether an asset satisfies a predicate
func Matches(a market.Asset, p Predicate) bool {
	switch p {
	case All:
		return true
	case HighYield:
		return a.DividendYield > highYieldMin
	case BelowBook:
		return a.PriceToBook < belowBookMax
	case Fund:
		return a.Kind == market.KindFund
	case Equity:
		return a.Kind == market.KindEquity
	case Opportunities:
		return a.ProjectedReturn > opportunityReturnMin && a.PriceToBook < opportunityPriceToBook
	default:
		return false
	}
}

// Filter returns the assets matching p in catalog order. Opportunities are
// ranked by projected return, highest first, keeping catalog order on ties.
// The input catalog is never modified.
func Filter(catalog []market.Asset, p Predicate) []market.Asset {
	out := make([]market.Asset, 0, len(catalog))
	for _, a := range catalog {
		if Matches(a, p) {
			out = append(out, a)
		}
	}

	if p == Opportunities {
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].ProjectedReturn > out[j].ProjectedReturn
		})
	}

	return out
}

// Spotlight flags standout opportunities for a badge on the asset card
func Spotlight(a market.Asset) bool {
	return a.ProjectedReturn > spotlightReturnMin && a.PriceToBook < spotlightPriceToBook
}
