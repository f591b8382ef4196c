package trash

import "github.com/warp/trash-schedule/generic"

// =============================================================================
// DAY AGGREGATOR
// =============================================================================

// EnabledFor lists the categories with at least one rule active on date.
// Input order is preserved, entries without a name are dropped and the
// first of several entries with the same code and name wins.
func EnabledFor(categories []Category, date generic.TimePoint, names NameResolver) []EnabledEntry {
	result := make([]EnabledEntry, 0, len(categories))
	seen := make(map[EnabledEntry]bool, len(categories))

	for _, c := range categories {
		if !anyActive(c.Rules, date) {
			continue
		}
		entry := EnabledEntry{Code: c.Code, DisplayName: displayName(c, names)}
		if entry.DisplayName == "" || seen[entry] {
			continue
		}
		seen[entry] = true
		result = append(result, entry)
	}
	return result
}

func anyActive(rules []generic.Rule, date generic.TimePoint) bool {
	for _, r := range rules {
		if generic.IsActive(r, date) {
			return true
		}
	}
	return false
}
