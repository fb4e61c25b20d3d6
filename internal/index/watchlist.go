package index

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type watchlistFile struct {
	Users []string `yaml:"users"`
}

// LoadWatchlist reads the YAML list of tracked users. Blank and duplicate
// entries are dropped; order is preserved.
func LoadWatchlist(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("index: read watchlist %s: %w", path, err)
	}
	var wf watchlistFile
	if err := yaml.Unmarshal(data, &wf); err != nil {
		return nil, fmt.Errorf("index: parse watchlist %s: %w", path, err)
	}

	seen := make(map[string]struct{}, len(wf.Users))
	out := make([]string, 0, len(wf.Users))
	for _, u := range wf.Users {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out, nil
}
