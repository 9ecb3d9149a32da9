package parse

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"

	"tidbyt.dev/gtfsgraph/model"
)

type TripCSV struct {
	ID      string `csv:"trip_id"`
	RouteID string `csv:"route_id"`
	// ServiceID   string `csv:"service_id"`
	// Headsign    string `csv:"trip_headsign"`
	// DirectionID int8   `csv:"direction_id"`
}

// Parses trips.txt, keeping trips of the given routes. Each trip
// inherits its route's color.
func ParseTrips(
	data io.Reader,
	routes map[string]*model.Route,
) (map[string]*model.Trip, error) {
	tripCsv := []*TripCSV{}
	if err := gocsv.Unmarshal(data, &tripCsv); err != nil {
		return nil, fmt.Errorf("unmarshaling trips csv: %w", err)
	}

	trips := map[string]*model.Trip{}
	for _, t := range tripCsv {
		route, found := routes[t.RouteID]
		if !found {
			continue
		}

		trips[t.ID] = &model.Trip{
			ID:      t.ID,
			RouteID: t.RouteID,
			Color:   route.Color,
		}
	}

	return trips, nil
}
