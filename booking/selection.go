package booking

import (
	"strings"

	"github.com/tripwise/concierge/core"
)

// ordinalTokens maps selection phrases to recommendation indexes.
var ordinalTokens = map[string]int{
	"1": 0, "số 1": 0, "so 1": 0, "đầu tiên": 0, "first": 0,
	"2": 1, "số 2": 1, "so 2": 1, "thứ hai": 1, "second": 1,
	"3": 2, "số 3": 2, "so 3": 2, "thứ ba": 2, "third": 2,
	"4": 3, "số 4": 3, "so 4": 3, "fourth": 3,
	"5": 4, "số 5": 4, "so 5": 4, "fifth": 4,
}

// selectRecommendation resolves a user reply against the cached candidate
// list: ordinal tokens first, then case-insensitive name containment either
// way. Returns nil when nothing matches.
func selectRecommendation(message string, recs []core.Service) *core.Service {
	text := strings.ToLower(strings.TrimSpace(message))
	if text == "" || len(recs) == 0 {
		return nil
	}

	// Longer ordinal phrases first so "số 1" is not shadowed by "1" inside
	// another token.
	for _, tok := range []string{"đầu tiên", "thứ hai", "thứ ba", "số 1", "số 2", "số 3", "số 4", "số 5", "so 1", "so 2", "so 3", "so 4", "so 5", "first", "second", "third", "fourth", "fifth", "1", "2", "3", "4", "5"} {
		if strings.Contains(text, tok) {
			if idx, ok := ordinalTokens[tok]; ok && idx < len(recs) {
				return &recs[idx]
			}
		}
	}

	for i := range recs {
		name := strings.ToLower(recs[i].Name)
		if name == "" {
			continue
		}
		if strings.Contains(text, name) || strings.Contains(name, text) {
			return &recs[i]
		}
	}
	return nil
}
