package domain

import "testing"

func TestMatchesFilter(t *testing.T) {
	link := &Link{
		Title:  "Practical Go Lessons",
		Note:   "read before standup",
		Domain: "practical-go.dev",
	}

	tests := []struct {
		name     string
		query    string
		tagNames []string
		want     bool
	}{
		{"empty query matches", "", nil, true},
		{"title match case-insensitive", "PRACTICAL", nil, true},
		{"note match", "standup", nil, true},
		{"domain match", "go.dev", nil, true},
		{"tag name match", "read", []string{"Reading List"}, true},
		{"no field matches", "kubernetes", []string{"golang"}, false},
		{"whitespace-only query matches", "   ", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MatchesFilter(tt.query, link, tt.tagNames); got != tt.want {
				t.Errorf("MatchesFilter(%q) = %v, want %v", tt.query, got, tt.want)
			}
		})
	}
}

func TestMatchesFilterUsesPlaceholderTitle(t *testing.T) {
	// An unenriched link is still findable by its domain placeholder.
	link := &Link{Domain: "example.com"}

	if !MatchesFilter("example", link, nil) {
		t.Error("placeholder title should match the domain")
	}
}
