// Package learning tracks which specialist-agent subsets historically
// resolved incidents of a given keyword signature, and biases future
// engagement decisions with that history.
package learning

import (
	"sort"
	"strings"

	"github.com/opsforge/analytics-engine/internal/models"
)

// signatureAlerts bounds how many alerts contribute a keyword.
const signatureAlerts = 3

// Common title filler that never identifies an incident kind.
var stopWords = map[string]struct{}{
	"with": {},
	"from": {},
	"that": {},
	"this": {},
}

// Signature extracts the canonical keyword signature for an incident: each of
// the first three alerts contributes its first title word longer than three
// runes that is not a stop word. Keywords are lowercased and sorted, so two
// incidents with the same keyword set share a bucket. The bucketing is
// deliberately coarse.
func Signature(alerts []models.AlertRecord) []string {
	keywords := make([]string, 0, signatureAlerts)
	for i, alert := range alerts {
		if i == signatureAlerts {
			break
		}
		for _, word := range strings.Fields(alert.Title) {
			lower := strings.ToLower(word)
			if _, stop := stopWords[lower]; stop {
				continue
			}
			if len([]rune(lower)) > 3 {
				keywords = append(keywords, lower)
				break
			}
		}
	}
	sort.Strings(keywords)
	return keywords
}

// Key joins a signature into the lookup key for the history store.
func Key(signature []string) string {
	return strings.Join(signature, "_")
}
