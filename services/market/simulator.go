package market

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const (
	// fluctuation is the maximum relative move per cycle (±1%)
	fluctuation = 0.01
	// minChangePercent keeps the reconstructed base price strictly positive
	minChangePercent = -99.0
)

var (
	ErrInvalidPrice = errors.New("price must be positive and finite")
	ErrEmptyHistory = errors.New("price history is empty")
)

// Rand is the random source used by the simulator. *math/rand/v2.Rand satisfies it.
type Rand interface {
	Float64() float64
}

// Simulator produces new catalog snapshots with perturbed prices
type Simulator struct {
	Rand Rand
	Now  func() time.Time

	// Latency is waited before each Update to mimic a network round trip
	Latency time.Duration
}

// NewSimulator creates a simulator using the given random source and the wall clock
func NewSimulator(r Rand) *Simulator {
	return &Simulator{Rand: r, Now: time.Now}
}

// Simulate returns a new catalog where every asset moved by a random factor in
// [0.99, 1.01]. The input catalog is never modified. If any asset is in an
// invalid state the whole cycle fails and no catalog is returned.
func (s *Simulator) Simulate(catalog []Asset) ([]Asset, error) {
	now := s.Now()
	out := make([]Asset, len(catalog))

	for i, a := range catalog {
		factor := 1 - fluctuation + s.Rand.Float64()*2*fluctuation
		next, err := Reprice(a, a.Price*factor, now)
		if err != nil {
			return nil, err
		}
		out[i] = next
	}

	return out, nil
}

// Update satisfies the dashboard updater contract
func (s *Simulator) Update(ctx context.Context, catalog []Asset) ([]Asset, error) {
	if s.Latency > 0 {
		select {
		case <-time.After(s.Latency):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	next, err := s.Simulate(catalog)
	if err != nil {
		return nil, fmt.Errorf("simulate prices: %w", err)
	}

	log.Debug().Int("assets", len(next)).Msg("simulated price cycle")
	return next, nil
}

// Reprice moves an asset to newPrice at instant now. The change percent is
// anchored to the base price implied by the previous price and change, both
// values are rounded to cents, and the history window slides by one point.
func Reprice(a Asset, newPrice float64, now time.Time) (Asset, error) {
	if !validPrice(a.Price) || !validPrice(newPrice) {
		return Asset{}, fmt.Errorf("%s: %w", a.Ticker, ErrInvalidPrice)
	}
	if len(a.History) == 0 {
		return Asset{}, fmt.Errorf("%s: %w", a.Ticker, ErrEmptyHistory)
	}

	change := a.ChangePercent
	if math.IsNaN(change) || math.IsInf(change, 0) {
		return Asset{}, fmt.Errorf("%s: change percent %v: %w", a.Ticker, change, ErrInvalidPrice)
	}
	if change < minChangePercent {
		log.Warn().Str("ticker", a.Ticker).Float64("change_percent", change).
			Msg("Clamping change percent before base price reconstruction")
		change = minChangePercent
	}

	base := a.Price / (1 + change/100)

	next := a.Clone()
	next.Price = roundCents(newPrice)
	next.ChangePercent = roundCents((newPrice - base) / base * 100)
	next.History = append(next.History[1:], PricePoint{Time: now, Price: next.Price})

	return next, nil
}

func validPrice(p float64) bool {
	return p > 0 && !math.IsInf(p, 0) && !math.IsNaN(p)
}

// roundCents rounds half away from zero to two decimal places, working on the
// shortest decimal representation of the float
func roundCents(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
