package pipeline

import (
	"encoding/json"
	"os"

	"github.com/kidzout/crawler/app/dataset"
)

func writeManualFixture(path string) error {
	events := []*dataset.EnrichedEvent{
		{
			ID:       "ev-manual-0001",
			Name:     "Stadtgründungsfest",
			NameKids: "🎉 Stadtgründungsfest",
			Date:     "2026-06-13",
			Category: "festival",
			City:     "München",
			Source:   "manual",
		},
	}
	data, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
