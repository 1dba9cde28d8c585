package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"investpro/services/market"
)

func TestSearch_BlankQueryIsInactive(t *testing.T) {
	catalog := seed()
	for _, q := range []string{"", " ", "\t\n"} {
		assert.Empty(t, Search(catalog, q), "query %q", q)
	}
}

func TestSearch_CaseInsensitive(t *testing.T) {
	catalog := []market.Asset{{Ticker: "PETR4", Name: "Petrobras PN"}}
	got := Search(catalog, "petr")
	if assert.Len(t, got, 1) {
		assert.Equal(t, "PETR4", got[0].Ticker)
	}
}

func TestSearch_MatchesTickerOrName(t *testing.T) {
	catalog := seed()

	tests := []struct {
		query string
		want  []string
	}{
		{"fii", []string{"MXRF11", "HGLG11", "KNRI11", "VISC11"}},
		{"banco", []string{"ITUB4", "BBAS3"}},
		{"11", []string{"MXRF11", "HGLG11", "KNRI11", "VISC11"}},
		{"  vale ", []string{"VALE3"}},
		{"ON", []string{"VALE3", "BBAS3", "ABEV3", "WEGE3"}},
		{"xyz", nil},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got := Search(catalog, tt.query)
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, tickers(got))
		})
	}
}

func TestSearch_IsStateless(t *testing.T) {
	catalog := seed()
	first := Search(catalog, "pe")
	Search(catalog, "petr")
	Search(catalog, "")
	assert.Equal(t, first, Search(catalog, "pe"))
}
