package testutil

// Helpers for building GTFS feeds in tests.

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// Fills in missing tables with header-only dummy data.
func completeFeed(files map[string][]string) map[string][]string {
	complete := map[string][]string{
		"routes.txt":     {"route_id,route_type,route_color"},
		"trips.txt":      {"trip_id,route_id"},
		"stop_times.txt": {"trip_id,stop_id,stop_sequence"},
		"stops.txt":      {"stop_id,stop_name,stop_lat,stop_lon"},
	}
	for name, content := range files {
		complete[name] = content
	}
	return complete
}

func BuildZip(
	t testing.TB,
	files map[string][]string,
) []byte {

	buf := &bytes.Buffer{}
	w := zip.NewWriter(buf)
	for filename, content := range files {
		f, err := w.Create(filename)
		require.NoError(t, err)
		_, err = f.Write([]byte(strings.Join(content, "\n")))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	return buf.Bytes()
}

// Writes a feed into a fresh temporary directory and returns its
// path. Tables missing from files are written with headers only.
func BuildFeedDir(
	t testing.TB,
	files map[string][]string,
) string {

	dir := t.TempDir()
	for filename, content := range completeFeed(files) {
		err := os.WriteFile(
			filepath.Join(dir, filename),
			[]byte(strings.Join(content, "\n")),
			0644,
		)
		require.NoError(t, err)
	}

	return dir
}

// Like BuildFeedDir, but writes a zip archive and returns its path.
func BuildFeedZip(
	t testing.TB,
	files map[string][]string,
) string {

	path := filepath.Join(t.TempDir(), "gtfs.zip")
	require.NoError(t, os.WriteFile(path, BuildZip(t, completeFeed(files)), 0644))
	return path
}

// The feed from the README example: one subway route, one trip over
// three stops, where stop_id carries a one character direction
// suffix.
func SimpleFeed() map[string][]string {
	return map[string][]string{
		"routes.txt": {
			"route_id,route_type,route_color",
			"R1,1,FF0000",
		},
		"trips.txt": {
			"trip_id,route_id",
			"T1,R1",
		},
		"stop_times.txt": {
			"trip_id,stop_id,stop_sequence",
			"T1,S1a,1",
			"T1,S2b,2",
			"T1,S3a,3",
		},
		"stops.txt": {
			"stop_id,stop_name,stop_lon,stop_lat",
			"S1a,Station A,-79.0,43.0",
			"S2b,Station B,-79.1,43.1",
			"S3a,Station A Upper,-79.0,43.0",
		},
	}
}
