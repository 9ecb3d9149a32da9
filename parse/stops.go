package parse

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"

	"tidbyt.dev/gtfsgraph/model"
)

type StopCSV struct {
	ID   string  `csv:"stop_id"`
	Name string  `csv:"stop_name"`
	Lat  float64 `csv:"stop_lat"`
	Lon  float64 `csv:"stop_lon"`
	// LocationType  int8   `csv:"location_type"`
	// ParentStation string `csv:"parent_station"`
}

// Parses stops.txt, keeping the stops in seen. The file's ordering
// is preserved.
func ParseStops(data io.Reader, seen map[string]bool) ([]*model.Stop, error) {
	stopCsv := []*StopCSV{}
	if err := gocsv.Unmarshal(data, &stopCsv); err != nil {
		return nil, fmt.Errorf("unmarshaling stops csv: %w", err)
	}

	stops := []*model.Stop{}
	for _, st := range stopCsv {
		if !seen[st.ID] {
			continue
		}
		stops = append(stops, &model.Stop{
			ID:   st.ID,
			Name: st.Name,
			Lat:  st.Lat,
			Lon:  st.Lon,
		})
	}

	return stops, nil
}
