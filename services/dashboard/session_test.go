package dashboard

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"investpro/services/analysis"
	"investpro/services/engine"
	"investpro/services/market"
)

var fixedNow = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

func seed() []market.Asset {
	return market.SeedCatalog(rand.New(rand.NewPCG(3, 4)))
}

func newSimSession(t *testing.T) *Session {
	t.Helper()
	sim := market.NewSimulator(rand.New(rand.NewPCG(1, 2)))
	sim.Now = func() time.Time { return fixedNow }
	s, err := NewSession(seed(), sim, nil, WithClock(func() time.Time { return fixedNow }))
	require.NoError(t, err)
	return s
}

// gatedUpdater blocks every Update until release is closed
type gatedUpdater struct {
	started chan struct{}
	release chan struct{}
	calls   atomic.Int32
}

func newGatedUpdater() *gatedUpdater {
	return &gatedUpdater{started: make(chan struct{}, 1), release: make(chan struct{})}
}

func (g *gatedUpdater) Update(ctx context.Context, catalog []market.Asset) ([]market.Asset, error) {
	g.calls.Add(1)
	g.started <- struct{}{}
	<-g.release
	return market.CloneCatalog(catalog), nil
}

type funcUpdater func(ctx context.Context, catalog []market.Asset) ([]market.Asset, error)

func (f funcUpdater) Update(ctx context.Context, catalog []market.Asset) ([]market.Asset, error) {
	return f(ctx, catalog)
}

type staticInsights struct{}

func (staticInsights) RequestInsight(ctx context.Context, a market.Asset) engine.Result {
	return engine.Result{Ticker: a.Ticker, Kind: engine.KindOK, Text: "about " + a.Ticker}
}

func TestNewSession_RejectsDuplicateTickers(t *testing.T) {
	catalog := []market.Asset{{Ticker: "PETR4"}, {Ticker: "PETR4"}}
	_, err := NewSession(catalog, nil, nil)
	assert.Error(t, err)
}

func TestRefresh_AppliesNewSnapshot(t *testing.T) {
	s := newSimSession(t)
	before := s.Snapshot()

	var seen []*Snapshot
	s.OnSnapshot(func(snap *Snapshot) { seen = append(seen, snap) })

	applied, err := s.Refresh(context.Background())
	require.NoError(t, err)
	assert.True(t, applied)

	after := s.Snapshot()
	assert.Equal(t, before.Seq+1, after.Seq)
	assert.Equal(t, fixedNow, after.UpdatedAt)
	assert.Len(t, after.Assets, len(before.Assets))
	assert.Equal(t, []*Snapshot{after}, seen)

	// the previous generation is untouched
	assert.Equal(t, seed(), before.Assets)
}

func TestRefresh_ReentrantTriggerIsNoop(t *testing.T) {
	up := newGatedUpdater()
	s, err := NewSession(seed(), up, nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		applied, err := s.Refresh(context.Background())
		assert.NoError(t, err)
		assert.True(t, applied)
	}()

	<-up.started
	assert.True(t, s.Refreshing())

	applied, err := s.Refresh(context.Background())
	assert.NoError(t, err)
	assert.False(t, applied)

	close(up.release)
	wg.Wait()

	assert.Equal(t, int32(1), up.calls.Load())
	assert.Equal(t, uint64(1), s.Snapshot().Seq)
	assert.False(t, s.Refreshing())
}

func TestRefresh_ErrorKeepsSnapshot(t *testing.T) {
	boom := errors.New("boom")
	s, err := NewSession(seed(), funcUpdater(func(ctx context.Context, c []market.Asset) ([]market.Asset, error) {
		return nil, boom
	}), nil)
	require.NoError(t, err)
	before := s.Snapshot()

	applied, err := s.Refresh(context.Background())
	assert.False(t, applied)
	assert.ErrorIs(t, err, boom)
	assert.Same(t, before, s.Snapshot())
	assert.False(t, s.Refreshing())
}

func TestRefresh_SelectionFollowsTicker(t *testing.T) {
	s := newSimSession(t)
	_, err := s.Select("VALE3")
	require.NoError(t, err)

	_, err = s.Refresh(context.Background())
	require.NoError(t, err)

	got, ok := s.Selected()
	require.True(t, ok)
	want, _ := s.Snapshot().Lookup("VALE3")
	assert.Equal(t, want, got)
}

func TestRefresh_VanishedSelectionIsCleared(t *testing.T) {
	s, err := NewSession(seed(), funcUpdater(func(ctx context.Context, c []market.Asset) ([]market.Asset, error) {
		out := make([]market.Asset, 0, len(c))
		for _, a := range c {
			if a.Ticker != "HGLG11" {
				out = append(out, a)
			}
		}
		return out, nil
	}), nil)
	require.NoError(t, err)

	ticket, err := s.Select("HGLG11")
	require.NoError(t, err)

	_, err = s.Refresh(context.Background())
	require.NoError(t, err)

	_, ok := s.Selected()
	assert.False(t, ok)
	assert.Equal(t, InsightState{}, s.Insight())
	assert.False(t, s.CompleteInsight(ticket, engine.Result{Ticker: "HGLG11", Kind: engine.KindOK, Text: "late"}))
}

func TestOnRefresh_ReportsEveryOutcome(t *testing.T) {
	up := newGatedUpdater()
	s, err := NewSession(seed(), up, nil)
	require.NoError(t, err)

	var mu sync.Mutex
	var outcomes []bool
	s.OnRefresh(func(applied bool, err error) {
		mu.Lock()
		defer mu.Unlock()
		outcomes = append(outcomes, applied)
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = s.Refresh(context.Background())
	}()
	<-up.started
	_, _ = s.Refresh(context.Background())
	close(up.release)
	<-done

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []bool{false, true}, outcomes)
}

func TestRefresh_ObserverMayRegisterObservers(t *testing.T) {
	s := newSimSession(t)

	var first, second int
	s.OnSnapshot(func(*Snapshot) {
		first++
		s.OnSnapshot(func(*Snapshot) { second++ })
	})

	for i := 0; i < 2; i++ {
		_, err := s.Refresh(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, 2, first)
	assert.Equal(t, 1, second)
}

func TestSelect_DuringRefreshThatDropsTicker(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	s, err := NewSession(seed(), funcUpdater(func(ctx context.Context, c []market.Asset) ([]market.Asset, error) {
		close(started)
		<-release
		out := make([]market.Asset, 0, len(c))
		for _, a := range c {
			if a.Ticker != "KNRI11" {
				out = append(out, a)
			}
		}
		return out, nil
	}), nil)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := s.Refresh(context.Background())
		assert.NoError(t, err)
	}()

	<-started
	ticket, err := s.Select("KNRI11")
	require.NoError(t, err)
	close(release)
	<-done

	_, ok := s.Selected()
	assert.False(t, ok)
	assert.False(t, s.Insight().Loading)
	assert.False(t, s.CompleteInsight(ticket, engine.Result{Ticker: "KNRI11", Kind: engine.KindOK, Text: "late"}))

	_, err = s.Select("KNRI11")
	assert.ErrorIs(t, err, ErrUnknownTicker)
}

func TestSelect_UnknownTicker(t *testing.T) {
	s := newSimSession(t)
	_, err := s.Select("AAPL34")
	assert.ErrorIs(t, err, ErrUnknownTicker)
}

func TestInsight_StaleResponseDiscarded(t *testing.T) {
	s := newSimSession(t)

	a, err := s.Select("PETR4")
	require.NoError(t, err)
	assert.Equal(t, InsightState{Ticker: "PETR4", Loading: true}, s.Insight())

	b, err := s.Select("MXRF11")
	require.NoError(t, err)

	// A resolves while B is still loading
	assert.False(t, s.CompleteInsight(a, engine.Result{Ticker: "PETR4", Kind: engine.KindOK, Text: "PETR4 text"}))
	assert.Equal(t, InsightState{Ticker: "MXRF11", Loading: true}, s.Insight())

	resB := engine.Result{Ticker: "MXRF11", Kind: engine.KindOK, Text: "MXRF11 text"}
	assert.True(t, s.CompleteInsight(b, resB))

	// A resolves after B
	assert.False(t, s.CompleteInsight(a, engine.Result{Ticker: "PETR4", Kind: engine.KindOK, Text: "PETR4 text"}))

	st := s.Insight()
	assert.True(t, st.Ready())
	assert.Equal(t, resB, st.Result)
}

func TestInsight_ReselectInvalidatesPrevious(t *testing.T) {
	s := newSimSession(t)

	first, err := s.Select("PETR4")
	require.NoError(t, err)
	second, err := s.Select("PETR4")
	require.NoError(t, err)

	assert.False(t, s.CompleteInsight(first, engine.Result{Ticker: "PETR4", Kind: engine.KindFailed}))
	assert.True(t, s.CompleteInsight(second, engine.Result{Ticker: "PETR4", Kind: engine.KindOK, Text: "fresh"}))
}

func TestInsight_ClearSelectionDiscards(t *testing.T) {
	s := newSimSession(t)

	ticket, err := s.Select("ITUB4")
	require.NoError(t, err)
	s.ClearSelection()

	assert.False(t, s.CompleteInsight(ticket, engine.Result{Ticker: "ITUB4", Kind: engine.KindOK}))
	assert.Equal(t, InsightState{}, s.Insight())
}

func TestFetchInsight(t *testing.T) {
	sim := market.NewSimulator(rand.New(rand.NewPCG(1, 2)))
	s, err := NewSession(seed(), sim, staticInsights{})
	require.NoError(t, err)

	ticket, err := s.Select("WEGE3")
	require.NoError(t, err)
	require.True(t, s.FetchInsight(context.Background(), ticket))
	assert.Equal(t, "about WEGE3", s.Insight().Result.Text)
}

func TestFetchInsight_NoProviderIsUnavailable(t *testing.T) {
	s := newSimSession(t)

	ticket, err := s.Select("ABEV3")
	require.NoError(t, err)
	require.True(t, s.FetchInsight(context.Background(), ticket))

	st := s.Insight()
	assert.Equal(t, engine.KindUnavailable, st.Result.Kind)
	assert.Equal(t, engine.MessageUnavailable, st.Result.Text)
}

func TestSetFilter(t *testing.T) {
	s := newSimSession(t)
	assert.Equal(t, analysis.All, s.Filter())
	assert.Equal(t, s.Snapshot().Assets, s.Visible())

	_, err := s.Select("PETR4")
	require.NoError(t, err)

	// same filter keeps the selection
	require.NoError(t, s.SetFilter(analysis.All))
	_, ok := s.Selected()
	assert.True(t, ok)

	require.NoError(t, s.SetFilter(analysis.Fund))
	_, ok = s.Selected()
	assert.False(t, ok)
	assert.Equal(t, analysis.Filter(s.Snapshot().Assets, analysis.Fund), s.Visible())

	assert.ErrorIs(t, s.SetFilter("cheap"), analysis.ErrUnknownPredicate)
	assert.Equal(t, analysis.Fund, s.Filter())

	require.NoError(t, s.SetFilter(""))
	assert.Equal(t, analysis.All, s.Filter())
}

func TestSession_Search(t *testing.T) {
	s := newSimSession(t)
	got := s.Search("petr")
	require.Len(t, got, 1)
	assert.Equal(t, "PETR4", got[0].Ticker)
	assert.Empty(t, s.Search(""))
}
