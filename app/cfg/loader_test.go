package cfg

import (
	"testing"
)

func TestGetVersion(t *testing.T) {
	if GetVersion() == "" {
		t.Error("GetVersion should never return empty string")
	}
}

func TestConfigFields(t *testing.T) {
	cfg := &Cfg{
		DBPath:           "./test.db",
		OutputFile:       "./data.json",
		SourcesFile:      "./sources.yml",
		WorkerCount:      5,
		RunTimeout:       900,
		RequestTimeout:   30,
		BaseInterval:     4,
		JitterFraction:   0.2,
		Fetcher:          "http",
		GeocodeEndpoint:  "https://nominatim.openstreetmap.org/search",
		GeocodeInterval:  1,
		GeocodeStaleness: 30,
		City:             "München",
		Region:           "BY",
		Country:          "DE",
		Timezone:         "Europe/Berlin",
		Debug:            true,
		Version:          "test-version",
	}

	if cfg.WorkerCount != 5 {
		t.Errorf("Expected worker count 5, got %d", cfg.WorkerCount)
	}
	if cfg.City != "München" {
		t.Errorf("Expected city München, got %s", cfg.City)
	}
}

func TestGetPanicsWhenNotLoaded(t *testing.T) {
	saved := globalCfg
	globalCfg = nil
	defer func() {
		globalCfg = saved
		if recover() == nil {
			t.Error("Get should panic before Load")
		}
	}()
	Get()
}
