package parse

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/gocarina/gocsv"

	"tidbyt.dev/gtfsgraph/logging"
	"tidbyt.dev/gtfsgraph/model"
)

type RouteCSV struct {
	ID    string `csv:"route_id"`
	Type  string `csv:"route_type"`
	Color string `csv:"route_color"`
	// AgencyID  string `csv:"agency_id"`
	// ShortName string `csv:"route_short_name"`
	// LongName  string `csv:"route_long_name"`
	// TextColor string `csv:"route_text_color"`
}

func validRouteColor(color string) bool {
	_, err := model.ParseColor(color)
	return err == nil
}

// Parses routes.txt, keeping routes with a route_type in
// routeTypes. Routes with a malformed route_color are kept, but
// colored black.
func ParseRoutes(
	data io.Reader,
	routeTypes map[model.RouteType]bool,
	logger *slog.Logger,
) (map[string]*model.Route, error) {
	routeCsv := []*RouteCSV{}
	if err := gocsv.Unmarshal(data, &routeCsv); err != nil {
		return nil, fmt.Errorf("unmarshaling routes: %w", err)
	}

	routes := map[string]*model.Route{}
	for _, r := range routeCsv {
		routeType, err := strconv.Atoi(r.Type)
		if err != nil {
			continue
		}
		if !routeTypes[model.RouteType(routeType)] {
			continue
		}

		if !validRouteColor(r.Color) {
			logging.LogWarning(
				logger,
				"invalid route_color, using black",
				slog.String("route_id", r.ID),
				slog.String("route_color", r.Color),
			)
			r.Color = ""
		}

		routes[r.ID] = &model.Route{
			ID:    r.ID,
			Type:  model.RouteType(routeType),
			Color: r.Color,
		}
	}

	return routes, nil
}
