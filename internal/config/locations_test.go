package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeRoster(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "locations.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const validRoster = `
locations:
  - id: galveston-pier-21
    name: Galveston Pier 21
    latitude: 29.31
    longitude: -94.79
    stations:
      noaa: "8771450"
      usgs: "08077637"
    active: true
  - id: decommissioned-site
    name: Old Pier
    latitude: 28.9
    longitude: -95.3
    stations:
      noaa: "8770000"
    active: false
`

func TestLoadLocations(t *testing.T) {
	path := writeRoster(t, validRoster)

	locs, err := LoadLocations(path)
	require.NoError(t, err)
	require.Len(t, locs, 2)

	assert.Equal(t, "galveston-pier-21", locs[0].ID)
	assert.Equal(t, "8771450", locs[0].Station("noaa"))
	assert.Equal(t, "08077637", locs[0].Station("usgs"))
	assert.Empty(t, locs[0].Station("unknown-provider"))
	assert.True(t, locs[0].Active)
	assert.False(t, locs[1].Active)

	active := ActiveLocations(locs)
	require.Len(t, active, 1)
	assert.Equal(t, "galveston-pier-21", active[0].ID)
}

func TestLoadLocations_MissingFile(t *testing.T) {
	_, err := LoadLocations(filepath.Join(t.TempDir(), "nope.yml"))
	require.Error(t, err)
}

func TestLoadLocations_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"not yaml", `{{{{`},
		{"empty roster", `locations: []`},
		{"missing id", "locations:\n  - name: Anonymous\n    stations:\n      noaa: \"1\"\n"},
		{"duplicate id", "locations:\n  - id: a\n    stations: {noaa: \"1\"}\n  - id: a\n    stations: {noaa: \"2\"}\n"},
		{"no stations", "locations:\n  - id: a\n    name: A\n"},
		{"bad coordinates", "locations:\n  - id: a\n    latitude: 120\n    stations: {noaa: \"1\"}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadLocations(writeRoster(t, tt.content))
			assert.Error(t, err)
		})
	}
}
