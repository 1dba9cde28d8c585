// Package market provides the asset catalog, price simulation, live quote
// fetching and snapshot storage for the InvestPro dashboard.
package market

import (
	"fmt"
	"time"
)

// Kind is the instrument category of an asset
type Kind string

const (
	KindEquity Kind = "equity"
	KindFund   Kind = "fund-share"
)

// Label returns the B3 label used on screen
func (k Kind) Label() string {
	switch k {
	case KindEquity:
		return "Ação"
	case KindFund:
		return "FII"
	default:
		return string(k)
	}
}

// Dividend is an announced upcoming distribution
type Dividend struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// PricePoint is one entry of an asset's price history
type PricePoint struct {
	Time  time.Time `json:"time"`
	Price float64   `json:"price"`
}

// Asset represents one tradable instrument in the catalog
type Asset struct {
	Ticker          string       `json:"ticker"`
	Name            string       `json:"name"`
	Kind            Kind         `json:"kind"`
	Price           float64      `json:"price"`
	ChangePercent   float64      `json:"change_percent"`
	DividendYield   float64      `json:"dividend_yield"`
	PriceToBook     float64      `json:"price_to_book"`
	MarketCap       float64      `json:"market_cap"`
	ProjectedReturn float64      `json:"projected_return"`
	NextDividend    *Dividend    `json:"next_dividend,omitempty"`
	Sector          string       `json:"sector"`
	History         []PricePoint `json:"history"`
}

// Clone returns a deep copy so snapshots never share history or dividend memory
func (a Asset) Clone() Asset {
	out := a
	if a.NextDividend != nil {
		d := *a.NextDividend
		out.NextDividend = &d
	}
	out.History = append([]PricePoint(nil), a.History...)
	return out
}

// LastPoint returns the most recent history entry
func (a Asset) LastPoint() (PricePoint, bool) {
	if len(a.History) == 0 {
		return PricePoint{}, false
	}
	return a.History[len(a.History)-1], true
}

// Index maps tickers to their position in a catalog
type Index map[string]int

// NewIndex builds a ticker index, rejecting duplicate tickers
func NewIndex(catalog []Asset) (Index, error) {
	idx := make(Index, len(catalog))
	for i, a := range catalog {
		if _, dup := idx[a.Ticker]; dup {
			return nil, fmt.Errorf("duplicate ticker %s in catalog", a.Ticker)
		}
		idx[a.Ticker] = i
	}
	return idx, nil
}

// CloneCatalog deep-copies every asset of a catalog
func CloneCatalog(catalog []Asset) []Asset {
	out := make([]Asset, len(catalog))
	for i, a := range catalog {
		out[i] = a.Clone()
	}
	return out
}
