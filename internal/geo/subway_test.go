package geo

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

func writeStationsCSV(t *testing.T, content string) string {
	t.Helper()
	encoded, err := charmap.Windows1251.NewEncoder().String(content)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "stations.csv")
	require.NoError(t, os.WriteFile(path, []byte(encoded), 0o644))
	return path
}

func TestLoadStations(t *testing.T) {
	path := writeStationsCSV(t,
		"station_name;line;lon;lat;station_type\n"+
			"Охотный ряд;Сокольническая;37.6156;55.7573;subway\n"+
			"Киевская;Кольцевая;37.5646;55.7435;subway\n")

	stations, err := LoadStations(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, stations, 2)

	assert.Equal(t, "Охотный ряд", stations[0].Name)
	assert.Equal(t, "Сокольническая", stations[0].Line)
	assert.Equal(t, 55.7573, stations[0].Lat)
	assert.Equal(t, 37.6156, stations[0].Lng)
	assert.Equal(t, "subway", stations[0].Type)
}

func TestLoadStations_MCDPackedParams(t *testing.T) {
	path := writeStationsCSV(t,
		"station_name;line;lon;lat;station_type\n"+
			`;StationName: Тестовская\nDiameterName: МЦД-1;37.5320;55.7530;mcd`+"\n")

	stations, err := LoadStations(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, stations, 1)
	assert.Equal(t, "Тестовская", stations[0].Name)
	assert.Equal(t, "МЦД-1", stations[0].Line)
	assert.Equal(t, "mcd", stations[0].Type)
}

func TestLoadStations_UnknownType(t *testing.T) {
	path := writeStationsCSV(t,
		"station_name;line;lon;lat;station_type\n"+
			"Some;Line;37.5;55.7;tram\n")

	_, err := LoadStations(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown station type")
}

func TestLoadStations_BadCoordinate(t *testing.T) {
	path := writeStationsCSV(t,
		"station_name;line;lon;lat;station_type\n"+
			"Some;Line;not-a-number;55.7;subway\n")

	_, err := LoadStations(context.Background(), path)
	require.Error(t, err)
}

func TestLoadStations_MissingFile(t *testing.T) {
	_, err := LoadStations(context.Background(), filepath.Join(t.TempDir(), "absent.csv"))
	require.Error(t, err)
}

func TestParseStationParams(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		wantName string
		wantLine string
	}{
		{
			name:     "real newlines",
			in:       "StationName: Беговая\nDiameterName: МЦД-1",
			wantName: "Беговая",
			wantLine: "МЦД-1",
		},
		{
			name:     "literal backslash n",
			in:       `StationName: Беговая\nDiameterName: МЦД-1`,
			wantName: "Беговая",
			wantLine: "МЦД-1",
		},
		{
			name:     "missing keys",
			in:       "Foo: bar",
			wantName: "",
			wantLine: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name, line := ParseStationParams(tt.in)
			assert.Equal(t, tt.wantName, name)
			assert.Equal(t, tt.wantLine, line)
		})
	}
}
