package parse

import (
	"io"
	"sort"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"

	"tidbyt.dev/gtfsgraph/model"
)

type StopTimeCSV struct {
	TripID       string `csv:"trip_id"`
	StopID       string `csv:"stop_id"`
	StopSequence uint32 `csv:"stop_sequence"`
	// ArrivalTime   string `csv:"arrival_time"`
	// DepartureTime string `csv:"departure_time"`
}

// Parses stop_times.txt and extracts one RawEdge per pair of
// consecutive stops of each selected trip.
//
// Stop times are grouped by trip_id regardless of their position in
// the file. Within a trip they're ordered by stop_sequence, falling
// back to file order for equal (or absent) sequence numbers.
//
// Also returns the set of stop IDs visited by selected trips.
func ParseStopTimes(
	data io.Reader,
	trips map[string]*model.Trip,
) ([]model.RawEdge, map[string]bool, error) {

	stopTimeCsv := []*StopTimeCSV{}
	if err := gocsv.Unmarshal(data, &stopTimeCsv); err != nil {
		return nil, nil, errors.Wrap(err, "unmarshaling stop_times csv")
	}

	tripOrder := []string{}
	stopTimesByTrip := map[string][]model.StopTime{}

	for _, st := range stopTimeCsv {
		if _, found := trips[st.TripID]; !found {
			continue
		}

		sts, found := stopTimesByTrip[st.TripID]
		if !found {
			tripOrder = append(tripOrder, st.TripID)
		}

		stopTimesByTrip[st.TripID] = append(sts, model.StopTime{
			TripID:       st.TripID,
			StopID:       st.StopID,
			StopSequence: st.StopSequence,
		})
	}

	edges := []model.RawEdge{}
	seen := map[string]bool{}

	for _, tripID := range tripOrder {
		sts := stopTimesByTrip[tripID]
		color := trips[tripID].Color

		sort.SliceStable(sts, func(i, j int) bool {
			return sts[i].StopSequence < sts[j].StopSequence
		})

		seen[sts[0].StopID] = true
		for i := 1; i < len(sts); i++ {
			edges = append(edges, model.RawEdge{
				From:  sts[i-1].StopID,
				To:    sts[i].StopID,
				Color: color,
			})
			seen[sts[i].StopID] = true
		}
	}

	return edges, seen, nil
}
