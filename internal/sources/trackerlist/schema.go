package trackerlist

// TrackerParam describes one query parameter that carries tracking
// state and should never survive normalization.
type TrackerParam struct {
	Name   string `yaml:"name"`
	Vendor string `yaml:"vendor,omitempty"`
	Notes  string `yaml:"notes,omitempty"`
}

// TrackerConfig is the root structure of trackers.yaml.
type TrackerConfig struct {
	Params []TrackerParam `yaml:"params"`
}
