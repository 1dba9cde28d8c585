// Package engine provides AI-generated insights for catalog assets.
// Provider failures never escape as errors: every request ends in a
// display-ready Result.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"

	"investpro/services/market"
)

var (
	ErrMissingAPIKey      = errors.New("insight API key is not set")
	ErrInvalidCredentials = errors.New("insight API key rejected")
	ErrEmptyResponse      = errors.New("empty response from insight provider")
)

// Kind classifies the outcome of an insight request
type Kind string

const (
	KindOK                 Kind = "ok"
	KindUnavailable        Kind = "unavailable"
	KindInvalidCredentials Kind = "invalid-credentials"
	KindFailed             Kind = "failed"
)

// Fixed user-facing messages for non-OK outcomes
const (
	MessageUnavailable        = "Insight unavailable: API key not configured."
	MessageInvalidCredentials = "Error: invalid API key. Check the configuration."
	MessageFailed             = "Could not generate the analysis. Please try again later."
)

const (
	defaultLanguage = "Brazilian Portuguese"
	maxInsightChars = 280
)

// Result is the display-ready outcome of one insight request
type Result struct {
	Ticker string `json:"ticker"`
	Text   string `json:"text"`
	Kind   Kind   `json:"kind"`
}

// OK reports whether the result carries generated text
func (r Result) OK() bool { return r.Kind == KindOK }

// Provider generates text from a prompt
type Provider interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Cache stores generated insights between requests
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// Requester turns assets into insights through a provider
type Requester struct {
	provider Provider
	cache    Cache
	breaker  *gobreaker.CircuitBreaker
	language string
	timeout  time.Duration
}

// Option configures a Requester
type Option func(*Requester)

// WithCache enables caching of successful insights
func WithCache(c Cache) Option {
	return func(r *Requester) { r.cache = c }
}

// WithLanguage sets the language the provider is asked to answer in
func WithLanguage(lang string) Option {
	return func(r *Requester) {
		if lang != "" {
			r.language = lang
		}
	}
}

// WithTimeout bounds each provider call
func WithTimeout(d time.Duration) Option {
	return func(r *Requester) { r.timeout = d }
}

// NewRequester creates a requester. A nil provider makes every request
// return the unavailable message without any call.
func NewRequester(p Provider, opts ...Option) *Requester {
	r := &Requester{
		provider: p,
		language: defaultLanguage,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "insight",
			MaxRequests: 1,
			Timeout:     time.Minute,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			IsSuccessful: func(err error) bool {
				// a rejected key is a configuration problem, not an outage
				// abandoned callers are not provider failures
				return err == nil || errors.Is(err, ErrInvalidCredentials) || errors.Is(err, context.Canceled)
			},
		}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Available reports whether a provider is configured
func (r *Requester) Available() bool {
	return r.provider != nil
}

// RequestInsight asks the provider for a short analysis of the asset
func (r *Requester) RequestInsight(ctx context.Context, asset market.Asset) Result {
	res := Result{Ticker: asset.Ticker}

	if r.provider == nil {
		res.Kind, res.Text = KindUnavailable, MessageUnavailable
		return res
	}

	key := cacheKey(asset)
	if r.cache != nil {
		text, ok, err := r.cache.Get(ctx, key)
		if err != nil {
			log.Warn().Err(err).Str("ticker", asset.Ticker).Msg("Insight cache read failed")
		} else if ok {
			res.Kind, res.Text = KindOK, text
			return res
		}
	}

	if err := ctx.Err(); err != nil {
		log.Debug().Err(err).Str("ticker", asset.Ticker).Msg("Insight request abandoned")
		res.Kind, res.Text = KindFailed, MessageFailed
		return res
	}

	callerCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	prompt := BuildPrompt(asset, r.language)
	out, err := r.breaker.Execute(func() (interface{}, error) {
		text, err := r.provider.Generate(ctx, prompt)
		if err != nil {
			if errors.Is(callerCtx.Err(), context.Canceled) {
				return nil, fmt.Errorf("%w: %v", context.Canceled, err)
			}
			return nil, err
		}
		if strings.TrimSpace(text) == "" {
			return nil, ErrEmptyResponse
		}
		return text, nil
	})
	if err != nil {
		log.Error().Err(err).Str("ticker", asset.Ticker).Msg("Insight request failed")
		if isInvalidCredentials(err) {
			res.Kind, res.Text = KindInvalidCredentials, MessageInvalidCredentials
		} else {
			res.Kind, res.Text = KindFailed, MessageFailed
		}
		return res
	}

	res.Kind, res.Text = KindOK, strings.TrimSpace(out.(string))

	if r.cache != nil {
		if err := r.cache.Set(ctx, key, res.Text); err != nil {
			log.Warn().Err(err).Str("ticker", asset.Ticker).Msg("Insight cache write failed")
		}
	}

	log.Info().Str("ticker", asset.Ticker).Int("chars", len(res.Text)).Msg("Insight generated")
	return res
}

func isInvalidCredentials(err error) bool {
	return errors.Is(err, ErrInvalidCredentials) || strings.Contains(err.Error(), "API_KEY_INVALID")
}

// cacheKey ties a cached insight to the price it was generated for
func cacheKey(a market.Asset) string {
	return fmt.Sprintf("insight:%s:%s", a.Ticker, decimal.NewFromFloat(a.Price).StringFixed(2))
}

// BuildPrompt renders the analyst prompt for one asset
func BuildPrompt(a market.Asset, language string) string {
	if language == "" {
		language = defaultLanguage
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("You are a senior financial analyst specialized in the B3 exchange. "+
		"Analyze the asset %s (%s) from the %s sector.\n", a.Ticker, a.Name, a.Sector))
	sb.WriteString("Current indicators:\n")
	sb.WriteString(fmt.Sprintf("- Price: %s\n", decimal.NewFromFloat(a.Price).StringFixed(2)))
	sb.WriteString(fmt.Sprintf("- Dividend Yield: %s%%\n", decimal.NewFromFloat(a.DividendYield).String()))
	sb.WriteString(fmt.Sprintf("- P/VP: %s\n", decimal.NewFromFloat(a.PriceToBook).String()))
	sb.WriteString(fmt.Sprintf("- Projected Return: %s%%\n", decimal.NewFromFloat(a.ProjectedReturn).String()))
	sb.WriteString(fmt.Sprintf("\nGive a concise predictive analysis (at most %d characters) focused on future "+
		"returns and whether the investment makes sense in the current scenario. Be direct, keep a "+
		"professional tone and point out whether it is a value or a dividend opportunity. "+
		"Answer in %s.", maxInsightChars, language))

	return sb.String()
}
