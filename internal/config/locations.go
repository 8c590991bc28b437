package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/tirth1356/coastal-alert-system-4stack/internal/domain"
)

// locationsFile is the YAML roster document shape:
//
//	locations:
//	  - id: galveston-pier-21
//	    name: Galveston Pier 21
//	    latitude: 29.31
//	    longitude: -94.79
//	    stations:
//	      noaa: "8771450"
//	      usgs: "08077637"
//	    active: true
type locationsFile struct {
	Locations []domain.Location `yaml:"locations"`
}

// LoadLocations reads the location roster from the given YAML file.
// Duplicate IDs and locations without any station mapping are rejected;
// inactive locations are kept (they still own stored readings) but the
// scheduler skips them.
func LoadLocations(path string) ([]domain.Location, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read locations file: %w", err)
	}

	var doc locationsFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse locations file: %w", err)
	}
	if len(doc.Locations) == 0 {
		return nil, fmt.Errorf("locations file %s defines no locations", path)
	}

	seen := make(map[string]struct{}, len(doc.Locations))
	for _, loc := range doc.Locations {
		if loc.ID == "" {
			return nil, fmt.Errorf("location %q has no id", loc.Name)
		}
		if _, dup := seen[loc.ID]; dup {
			return nil, fmt.Errorf("duplicate location id %q", loc.ID)
		}
		seen[loc.ID] = struct{}{}
		if len(loc.StationIDs) == 0 {
			return nil, fmt.Errorf("location %q maps to no provider stations", loc.ID)
		}
		if loc.Latitude < -90 || loc.Latitude > 90 || loc.Longitude < -180 || loc.Longitude > 180 {
			return nil, fmt.Errorf("location %q has out-of-range coordinates", loc.ID)
		}
	}

	return doc.Locations, nil
}

// ActiveLocations filters the roster down to locations the scheduler
// should drive.
func ActiveLocations(all []domain.Location) []domain.Location {
	active := make([]domain.Location, 0, len(all))
	for _, loc := range all {
		if loc.Active {
			active = append(active, loc)
		}
	}
	return active
}
