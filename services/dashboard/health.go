package dashboard

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Status is the reachability of a backing service
type Status int

const (
	StatusUnknown Status = iota
	StatusOnline
	StatusOffline
)

func (s Status) String() string {
	switch s {
	case StatusOnline:
		return "online"
	case StatusOffline:
		return "offline"
	default:
		return "unknown"
	}
}

// Prober checks a health endpoint. The result is informational only.
type Prober struct {
	url        string
	httpClient *http.Client

	mu        sync.Mutex
	last      Status
	checkedAt time.Time
}

// NewProber creates a prober for url. An empty url always reports unknown.
func NewProber(url string, timeout time.Duration) *Prober {
	return &Prober{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Check probes the endpoint once; any 2xx answer means online
func (p *Prober) Check(ctx context.Context) Status {
	if p.url == "" {
		return StatusUnknown
	}

	status := StatusOffline
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err == nil {
		resp, err := p.httpClient.Do(req)
		if err != nil {
			log.Debug().Err(err).Str("url", p.url).Msg("Health probe failed")
		} else {
			resp.Body.Close()
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				status = StatusOnline
			}
		}
	}

	p.mu.Lock()
	p.last, p.checkedAt = status, time.Now()
	p.mu.Unlock()

	return status
}

// Last returns the most recent probe result and when it was taken
func (p *Prober) Last() (Status, time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last, p.checkedAt
}
