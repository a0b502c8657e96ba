package trackerlist

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Loader handles loading and parsing of trackers.yaml
type Loader struct {
	filePath string
}

// NewLoader creates a new tracker list loader
func NewLoader(filePath string) *Loader {
	return &Loader{
		filePath: filePath,
	}
}

// Load reads and parses the trackers.yaml file. A missing file is not
// an error: the built-in tracker set still applies without one.
func (l *Loader) Load() (TrackerConfig, error) {
	var config TrackerConfig

	data, err := os.ReadFile(l.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return config, fmt.Errorf("failed to read trackers file: %w", err)
	}

	if err := yaml.Unmarshal(data, &config); err != nil {
		return config, fmt.Errorf("failed to parse trackers yaml: %w", err)
	}

	return config, nil
}
