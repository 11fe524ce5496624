package sources

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type sourcesFile struct {
	Sources []*Source `yaml:"sources"`
}

// Load reads the source list from a YAML file. Validation failures are
// collected per entry and returned as a single error listing every
// offending source, so a broken list can be fixed in one pass.
func Load(path string) ([]*Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sources file: %w", err)
	}

	var file sourcesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse sources file: %w", err)
	}

	if len(file.Sources) == 0 {
		return nil, fmt.Errorf("sources file %s contains no sources", path)
	}

	var problems []string
	seen := make(map[string]bool)
	for i, src := range file.Sources {
		if err := validate(src); err != nil {
			problems = append(problems, fmt.Sprintf("source %d (%s): %v", i, src.Name, err))
			continue
		}
		if seen[src.Name] {
			problems = append(problems, fmt.Sprintf("source %d (%s): duplicate name", i, src.Name))
			continue
		}
		seen[src.Name] = true
	}

	if len(problems) > 0 {
		return nil, fmt.Errorf("invalid source list: %s", strings.Join(problems, "; "))
	}

	slog.Debug("Source list loaded", "path", path, "count", len(file.Sources))

	return file.Sources, nil
}

func validate(src *Source) error {
	if src == nil {
		return fmt.Errorf("source is nil")
	}
	if src.Name == "" {
		return fmt.Errorf("name is required")
	}
	if src.URL == "" {
		return fmt.Errorf("URL is required")
	}
	u, err := url.Parse(src.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("URL is malformed: %s", src.URL)
	}
	if !src.Format.Valid() {
		return fmt.Errorf("unknown format: %s", src.Format)
	}
	return nil
}

// Domain returns the host component of the source URL, the key the rate
// limiter throttles on.
func (s *Source) Domain() string {
	u, err := url.Parse(s.URL)
	if err != nil {
		return s.URL
	}
	return u.Host
}
