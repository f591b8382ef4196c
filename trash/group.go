package trash

import "github.com/warp/trash-schedule/generic"

// =============================================================================
// NEAREST-OCCURRENCE GROUPER
// =============================================================================

// GroupByCategory finds, for every category with the target key, the next
// occurrence of each of its rules on or after today. For CodeOther the
// target key is matched against DisplayName, since one user may register
// several differently named "other" categories.
//
// Rules that never occur are left out, as are groups left without any
// occurrence and "other" categories with no name.
func GroupByCategory(categories []Category, targetKey string, today generic.TimePoint) map[string]OccurrenceGroup {
	groups := make(map[string]OccurrenceGroup)

	for _, c := range categories {
		if !matchesTarget(c, targetKey) {
			continue
		}
		key := c.Key()
		if key == "" {
			continue
		}
		g := groups[key]
		g.Key = key
		for _, r := range c.Rules {
			next, ok := generic.NextOccurrence(r, today)
			if !ok {
				continue
			}
			g.Rules = append(g.Rules, r)
			g.Occurrences = append(g.Occurrences, next)
		}
		groups[key] = g
	}

	for key, g := range groups {
		nearest, ok := generic.MinTimePoint(g.Occurrences...)
		if !ok {
			delete(groups, key)
			continue
		}
		g.Nearest = nearest
		groups[key] = g
	}
	return groups
}

// matchesTarget accepts a category code, or the name of an "other"
// category.
func matchesTarget(c Category, targetKey string) bool {
	if c.Code == targetKey {
		return true
	}
	return c.IsOther() && c.DisplayName != "" && c.DisplayName == targetKey
}
