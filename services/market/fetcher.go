package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

const (
	// Brapi free tier allows roughly one quote request per second
	rateLimitDelay = 1 * time.Second
	requestTimeout = 10 * time.Second
	brapiBaseURL   = "https://brapi.dev/api/quote"
)

// BrapiResponse represents the quote API response structure
type BrapiResponse struct {
	Results []struct {
		Symbol                     string  `json:"symbol"`
		RegularMarketPrice         float64 `json:"regularMarketPrice"`
		RegularMarketChangePercent float64 `json:"regularMarketChangePercent"`
		MarketCap                  float64 `json:"marketCap"`
	} `json:"results"`
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

// Quote is the subset of live market data applied to the catalog
type Quote struct {
	Ticker        string
	Price         float64
	ChangePercent float64
	MarketCap     float64
}

// Fetcher handles quote fetching from the Brapi API
type Fetcher struct {
	token      string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
}

// NewFetcher creates a new quote fetcher
func NewFetcher(token string) (*Fetcher, error) {
	if token == "" {
		return nil, fmt.Errorf("BRAPI_TOKEN is not set")
	}
	return newFetcher(token, brapiBaseURL, rate.Every(rateLimitDelay)), nil
}

func newFetcher(token, baseURL string, limit rate.Limit) *Fetcher {
	return &Fetcher{
		token:   token,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
		limiter: rate.NewLimiter(limit, 1),
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "brapi",
			MaxRequests: 1,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
					Msg("Circuit breaker state changed")
			},
		}),
	}
}

// FetchQuote fetches the current quote for a ticker
func (f *Fetcher) FetchQuote(ctx context.Context, ticker string) (*Quote, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	res, err := f.breaker.Execute(func() (interface{}, error) {
		return f.fetch(ctx, ticker)
	})
	if err != nil {
		return nil, err
	}
	return res.(*Quote), nil
}

func (f *Fetcher) fetch(ctx context.Context, ticker string) (*Quote, error) {
	endpoint := fmt.Sprintf("%s/%s?token=%s", f.baseURL, url.PathEscape(ticker), url.QueryEscape(f.token))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch quote: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d for %s", resp.StatusCode, ticker)
	}

	var parsed BrapiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("unmarshal quote: %w", err)
	}

	return parseQuote(ticker, &parsed)
}

// parseQuote converts the API response to a Quote
func parseQuote(ticker string, resp *BrapiResponse) (*Quote, error) {
	if resp.Error {
		return nil, fmt.Errorf("brapi error for %s: %s", ticker, resp.Message)
	}

	for _, r := range resp.Results {
		if r.Symbol != ticker {
			continue
		}
		if !validPrice(r.RegularMarketPrice) {
			return nil, fmt.Errorf("%s: %w", ticker, ErrInvalidPrice)
		}
		return &Quote{
			Ticker:        ticker,
			Price:         r.RegularMarketPrice,
			ChangePercent: r.RegularMarketChangePercent,
			MarketCap:     r.MarketCap,
		}, nil
	}

	return nil, fmt.Errorf("empty response for %s", ticker)
}

// FetchMultiple fetches quotes for several tickers, collecting per-ticker errors
func (f *Fetcher) FetchMultiple(ctx context.Context, tickers []string) (map[string]*Quote, []error) {
	results := make(map[string]*Quote, len(tickers))
	var errs []error

	for _, ticker := range tickers {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			return results, errs
		}

		q, err := f.FetchQuote(ctx, ticker)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", ticker, err))
			if errors.Is(err, gobreaker.ErrOpenState) {
				return results, errs
			}
			continue
		}
		results[ticker] = q
	}

	return results, errs
}

// QuoteSource is anything that can provide live quotes
type QuoteSource interface {
	FetchMultiple(ctx context.Context, tickers []string) (map[string]*Quote, []error)
}

// LiveUpdater applies live quotes to the catalog and falls back to the
// simulator for every ticker the source could not price
type LiveUpdater struct {
	Source   QuoteSource
	Fallback *Simulator
}

// Update satisfies the dashboard updater contract
func (u *LiveUpdater) Update(ctx context.Context, catalog []Asset) ([]Asset, error) {
	tickers := make([]string, len(catalog))
	for i, a := range catalog {
		tickers[i] = a.Ticker
	}

	quotes, errs := u.Source.FetchMultiple(ctx, tickers)
	for _, err := range errs {
		log.Warn().Err(err).Msg("Live quote unavailable, using simulated price")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := u.Fallback.Now()
	out := make([]Asset, len(catalog))
	for i, a := range catalog {
		q, ok := quotes[a.Ticker]
		if !ok {
			sim, err := u.Fallback.Simulate([]Asset{a})
			if err != nil {
				return nil, fmt.Errorf("simulate fallback: %w", err)
			}
			out[i] = sim[0]
			continue
		}

		next, err := Reprice(a, q.Price, now)
		if err != nil {
			return nil, err
		}
		next.ChangePercent = roundCents(q.ChangePercent)
		if q.MarketCap > 0 {
			next.MarketCap = q.MarketCap
		}
		out[i] = next
	}

	log.Info().Int("live", len(quotes)).Int("simulated", len(catalog)-len(quotes)).Msg("Applied live quotes")
	return out, nil
}
