package dataset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Write persists the dataset atomically: the file is written to a
// temporary sibling and renamed into place, so a crash mid-write never
// leaves a half-written dataset visible to consumers. Record order is
// the caller's; the pipeline supplies (source, item index) order so
// output is reproducible regardless of worker completion order.
func Write(path string, ds *Dataset) error {
	data, err := json.MarshalIndent(ds, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode dataset: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary dataset file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write dataset: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close dataset file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to move dataset into place: %w", err)
	}

	return nil
}

// Read loads a previously written dataset. A missing file yields an
// empty dataset, not an error: the first run starts from nothing.
func Read(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Dataset{}, nil
		}
		return nil, fmt.Errorf("failed to read dataset: %w", err)
	}

	var ds Dataset
	if err := json.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("failed to parse dataset: %w", err)
	}
	return &ds, nil
}

// DedupeEvents collapses the same logical event scraped from several
// sources, keyed by leading title and date, keeping the record with the
// longer description.
func DedupeEvents(events []*EnrichedEvent) []*EnrichedEvent {
	best := make(map[string]*EnrichedEvent)
	var order []string
	for _, ev := range events {
		key := dedupeKey(ev.Name, 30) + "|" + ev.Date
		existing, ok := best[key]
		if !ok {
			best[key] = ev
			order = append(order, key)
			continue
		}
		if len(ev.Description) > len(existing.Description) {
			best[key] = ev
		}
	}

	unique := make([]*EnrichedEvent, 0, len(order))
	for _, key := range order {
		unique = append(unique, best[key])
	}
	return unique
}

// DedupeLocations is the venue counterpart, keyed by name and address.
func DedupeLocations(locations []*Location) []*Location {
	best := make(map[string]*Location)
	var order []string
	for _, loc := range locations {
		key := dedupeKey(loc.Name, 30) + "|" + dedupeKey(loc.Address, 20)
		existing, ok := best[key]
		if !ok {
			best[key] = loc
			order = append(order, key)
			continue
		}
		if len(loc.Description) > len(existing.Description) {
			best[key] = loc
		}
	}

	unique := make([]*Location, 0, len(order))
	for _, key := range order {
		unique = append(unique, best[key])
	}
	return unique
}

func dedupeKey(s string, limit int) string {
	runes := []rune(s)
	if len(runes) > limit {
		return string(runes[:limit])
	}
	return s
}
