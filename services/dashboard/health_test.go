package dashboard

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProber_Check(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   Status
	}{
		{"ok", http.StatusOK, StatusOnline},
		{"no content", http.StatusNoContent, StatusOnline},
		{"server error", http.StatusServiceUnavailable, StatusOffline},
		{"not found", http.StatusNotFound, StatusOffline},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			p := NewProber(srv.URL, time.Second)
			st, _ := p.Last()
			assert.Equal(t, StatusUnknown, st)

			assert.Equal(t, tt.want, p.Check(context.Background()))
			st, at := p.Last()
			assert.Equal(t, tt.want, st)
			assert.False(t, at.IsZero())
		})
	}
}

func TestProber_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	p := NewProber(url, time.Second)
	assert.Equal(t, StatusOffline, p.Check(context.Background()))
}

func TestProber_NoURL(t *testing.T) {
	p := NewProber("", time.Second)
	assert.Equal(t, StatusUnknown, p.Check(context.Background()))
	assert.Equal(t, "unknown", StatusUnknown.String())
	assert.Equal(t, "online", StatusOnline.String())
	assert.Equal(t, "offline", StatusOffline.String())
}
