package trackerlist

import "strings"

// Mapper converts a TrackerConfig into the flat parameter list the
// normalizer consumes
type Mapper struct{}

// NewMapper creates a new mapper instance
func NewMapper() *Mapper {
	return &Mapper{}
}

// MapParams flattens the config into deduplicated lowercase parameter
// names. Entries without a name are skipped.
func (m *Mapper) MapParams(config TrackerConfig) []string {
	seen := make(map[string]struct{}, len(config.Params))
	params := make([]string, 0, len(config.Params))

	for _, p := range config.Params {
		name := strings.ToLower(strings.TrimSpace(p.Name))
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		params = append(params, name)
	}

	return params
}
