package analysis

import (
	"strings"

	"investpro/services/market"
)

// Search finds assets whose ticker or name contains the query, ignoring case.
// A blank query means search is inactive and yields no results.
func Search(catalog []market.Asset, query string) []market.Asset {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}

	var results []market.Asset
	for _, a := range catalog {
		if strings.Contains(strings.ToLower(a.Ticker), q) || strings.Contains(strings.ToLower(a.Name), q) {
			results = append(results, a)
		}
	}
	return results
}
