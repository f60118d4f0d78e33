package universe

import (
	"encoding/json"
	"fmt"
	"os"
)

type fileFormat struct {
	Entries []Entry           `json:"entries"`
	Aliases map[string]string `json:"aliases,omitempty"`
}

// LoadFile reads a universe definition from a JSON file.
func LoadFile(path string) (*Universe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read universe file: %w", err)
	}

	var f fileFormat
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse universe file %s: %w", path, err)
	}
	if len(f.Entries) == 0 {
		return nil, fmt.Errorf("universe file %s has no entries", path)
	}

	return New(f.Entries, f.Aliases), nil
}
