package domain

import "strings"

// MatchesFilter reports whether a loaded link matches the search query.
// Matching is case-insensitive over title, note, domain and tag names
// with OR semantics: any single field match qualifies. An empty query
// matches everything.
func MatchesFilter(query string, l *Link, tagNames []string) bool {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return true
	}

	if strings.Contains(strings.ToLower(l.DisplayTitle()), query) {
		return true
	}
	if strings.Contains(strings.ToLower(l.Note), query) {
		return true
	}
	if strings.Contains(strings.ToLower(l.Domain), query) {
		return true
	}
	for _, name := range tagNames {
		if strings.Contains(strings.ToLower(name), query) {
			return true
		}
	}
	return false
}
