// Package dashboard owns the live dashboard state: the current catalog
// snapshot, the selected asset with its insight, and the active filter.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"investpro/services/analysis"
	"investpro/services/engine"
	"investpro/services/market"
)

var ErrUnknownTicker = errors.New("unknown ticker")

// Updater produces the next catalog from the current one
type Updater interface {
	Update(ctx context.Context, catalog []market.Asset) ([]market.Asset, error)
}

// Insighter generates the insight for one asset
type Insighter interface {
	RequestInsight(ctx context.Context, asset market.Asset) engine.Result
}

// Snapshot is one immutable catalog generation
type Snapshot struct {
	Assets    []market.Asset
	UpdatedAt time.Time
	Seq       uint64

	index market.Index
}

// Lookup returns the asset with the given ticker
func (s *Snapshot) Lookup(ticker string) (market.Asset, bool) {
	i, ok := s.index[ticker]
	if !ok {
		return market.Asset{}, false
	}
	return s.Assets[i], true
}

// Ticket identifies one insight request
type Ticket struct {
	Ticker string
	Gen    uint64
}

// InsightState is what the detail view shows for the selected asset
type InsightState struct {
	Ticker  string
	Loading bool
	Result  engine.Result
}

// Ready reports whether a result has been applied
func (s InsightState) Ready() bool {
	return !s.Loading && s.Result.Kind != ""
}

// Session is the single source of truth for the dashboard
type Session struct {
	updater  Updater
	insights Insighter
	now      func() time.Time

	current    atomic.Pointer[Snapshot]
	refreshing atomic.Bool

	mu        sync.Mutex
	filter    analysis.Predicate
	selected  string
	gen       uint64
	insight   InsightState
	observers []func(*Snapshot)
	outcomes  []func(applied bool, err error)
}

// SessionOption configures a Session
type SessionOption func(*Session)

// WithClock replaces the wall clock used to stamp snapshots
func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) { s.now = now }
}

// NewSession creates a session over the initial catalog. A nil insighter
// behaves as an insight service without credentials.
func NewSession(catalog []market.Asset, updater Updater, insights Insighter, opts ...SessionOption) (*Session, error) {
	idx, err := market.NewIndex(catalog)
	if err != nil {
		return nil, fmt.Errorf("index catalog: %w", err)
	}
	if insights == nil {
		insights = engine.NewRequester(nil)
	}

	s := &Session{
		updater:  updater,
		insights: insights,
		now:      time.Now,
		filter:   analysis.All,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.current.Store(&Snapshot{Assets: catalog, UpdatedAt: s.now(), index: idx})
	return s, nil
}

// Snapshot returns the latest catalog generation
func (s *Session) Snapshot() *Snapshot {
	return s.current.Load()
}

// Refreshing reports whether a refresh cycle is in flight
func (s *Session) Refreshing() bool {
	return s.refreshing.Load()
}

// Refresh runs one update cycle. A call made while another cycle is in
// flight does nothing and reports applied=false with a nil error. On error
// the previous snapshot stays current.
func (s *Session) Refresh(ctx context.Context) (applied bool, err error) {
	applied, err = s.refresh(ctx)

	s.mu.Lock()
	outcomes := slices.Clone(s.outcomes)
	s.mu.Unlock()
	for _, fn := range outcomes {
		fn(applied, err)
	}
	return applied, err
}

func (s *Session) refresh(ctx context.Context) (bool, error) {
	if !s.refreshing.CompareAndSwap(false, true) {
		log.Debug().Msg("Refresh already in progress, skipping")
		return false, nil
	}
	defer s.refreshing.Store(false)

	prev := s.current.Load()
	next, err := s.updater.Update(ctx, prev.Assets)
	if err != nil {
		return false, fmt.Errorf("refresh catalog: %w", err)
	}

	idx, err := market.NewIndex(next)
	if err != nil {
		return false, fmt.Errorf("refresh catalog: %w", err)
	}

	snap := &Snapshot{Assets: next, UpdatedAt: s.now(), Seq: prev.Seq + 1, index: idx}
	s.current.Store(snap)

	s.mu.Lock()
	if s.selected != "" {
		if _, ok := snap.index[s.selected]; !ok {
			log.Info().Str("ticker", s.selected).Msg("Selected asset left the catalog, clearing selection")
			s.clearLocked()
		}
	}
	observers := slices.Clone(s.observers)
	s.mu.Unlock()

	for _, fn := range observers {
		fn(snap)
	}

	log.Debug().Uint64("seq", snap.Seq).Int("assets", len(next)).Msg("Catalog refreshed")
	return true, nil
}

// OnSnapshot registers fn to be called after every applied refresh
func (s *Session) OnSnapshot(fn func(*Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

// OnRefresh registers fn to be called with the outcome of every Refresh,
// skipped and failed triggers included
func (s *Session) OnRefresh(fn func(applied bool, err error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outcomes = append(s.outcomes, fn)
}

// Select makes ticker the current selection and returns the ticket of the
// insight request it starts. Selecting the current ticker again issues a
// fresh ticket.
func (s *Session) Select(ticker string) (Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Refresh checks the selection against its new snapshot under mu
	if _, ok := s.Snapshot().Lookup(ticker); !ok {
		return Ticket{}, fmt.Errorf("%w: %s", ErrUnknownTicker, ticker)
	}

	s.selected = ticker
	s.gen++
	s.insight = InsightState{Ticker: ticker, Loading: true}
	return Ticket{Ticker: ticker, Gen: s.gen}, nil
}

// ClearSelection returns to the list view, invalidating any pending insight
func (s *Session) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked()
}

func (s *Session) clearLocked() {
	s.selected = ""
	s.gen++
	s.insight = InsightState{}
}

// Selected returns the selected asset as it appears in the latest snapshot
func (s *Session) Selected() (market.Asset, bool) {
	s.mu.Lock()
	ticker := s.selected
	s.mu.Unlock()

	if ticker == "" {
		return market.Asset{}, false
	}
	return s.Snapshot().Lookup(ticker)
}

// Insight returns the insight state of the current selection
func (s *Session) Insight() InsightState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insight
}

// CompleteInsight applies result if t is still the current ticket of the
// current selection. Results for older tickets are discarded.
func (s *Session) CompleteInsight(t Ticket, result engine.Result) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.Ticker != s.selected || t.Gen != s.gen {
		log.Debug().Str("ticker", t.Ticker).Uint64("gen", t.Gen).Msg("Discarding stale insight")
		return false
	}

	s.insight = InsightState{Ticker: t.Ticker, Result: result}
	return true
}

// FetchInsight requests the insight for t and completes it on arrival
func (s *Session) FetchInsight(ctx context.Context, t Ticket) bool {
	asset, ok := s.Snapshot().Lookup(t.Ticker)
	if !ok {
		return false
	}
	return s.CompleteInsight(t, s.insights.RequestInsight(ctx, asset))
}

// SetFilter changes the active predicate. A change clears the selection.
func (s *Session) SetFilter(p analysis.Predicate) error {
	p, err := analysis.ParsePredicate(string(p))
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if p == s.filter {
		return nil
	}
	s.filter = p
	s.clearLocked()
	return nil
}

// Filter returns the active predicate
func (s *Session) Filter() analysis.Predicate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter
}

// Visible returns the latest snapshot under the active predicate
func (s *Session) Visible() []market.Asset {
	return analysis.Filter(s.Snapshot().Assets, s.Filter())
}

// Search matches query against the latest snapshot
func (s *Session) Search(query string) []market.Asset {
	return analysis.Search(s.Snapshot().Assets, query)
}
