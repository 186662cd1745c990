package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/gocarina/gocsv"
	"github.com/spkg/bom"
	"gopkg.in/yaml.v3"
)

// One row of a stops_file CSV.
type stopRow struct {
	Agency string `csv:"agency"`
	StopID string `csv:"stop_id"`
}

// Load reads and validates a YAML config file. If the config names a
// stops_file, its rows are merged into the stop queries before
// validation; the path is resolved relative to the config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.StopsFile != "" {
		stopsPath := cfg.StopsFile
		if !filepath.IsAbs(stopsPath) {
			stopsPath = filepath.Join(filepath.Dir(path), stopsPath)
		}
		if err := mergeStopsFile(&cfg, stopsPath); err != nil {
			return nil, fmt.Errorf("loading stops file: %w", err)
		}
	}

	v := validator.New()
	if err := v.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// Appends stops from a CSV file to the matching queries. Agencies not
// already configured get a fresh query with no substitution rules.
// Listing a stop both inline and in the CSV is harmless.
func mergeStopsFile(cfg *Config, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	// LazyCSVReader to survive sloppy quoting; the BOM reader strips
	// unicode BOMs if present.
	gocsv.SetCSVReader(func(in io.Reader) gocsv.CSVReader {
		return gocsv.LazyCSVReader(bom.NewReader(in))
	})

	rows := []stopRow{}
	if err := gocsv.Unmarshal(f, &rows); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	queryByAgency := map[string]int{}
	for i, query := range cfg.Stops {
		queryByAgency[query.Agency] = i
	}

	for _, row := range rows {
		if row.Agency == "" || row.StopID == "" {
			return fmt.Errorf("%s: rows require both agency and stop_id", path)
		}

		i, found := queryByAgency[row.Agency]
		if !found {
			cfg.Stops = append(cfg.Stops, StopQuery{Agency: row.Agency})
			i = len(cfg.Stops) - 1
			queryByAgency[row.Agency] = i
		}

		if !contains(cfg.Stops[i].Stops, row.StopID) {
			cfg.Stops[i].Stops = append(cfg.Stops[i].Stops, row.StopID)
		}
	}

	return nil
}

func contains(stops []string, id string) bool {
	for _, s := range stops {
		if s == id {
			return true
		}
	}
	return false
}
