package model

import (
	"encoding/hex"
	"fmt"
)

// Holds all external facing types and constants.

type RouteType int

const (
	RouteTypeTram       RouteType = 0
	RouteTypeSubway               = 1
	RouteTypeRail                 = 2
	RouteTypeBus                  = 3
	RouteTypeFerry                = 4
	RouteTypeCable                = 5
	RouteTypeAerial               = 6
	RouteTypeFunicular            = 7
	RouteTypeTrolleybus           = 11
	RouteTypeMonorail             = 12
)

type Route struct {
	ID    string
	Type  RouteType
	Color string
}

// A trip carries the color of its route, so that edges produced by
// the trip can be colored without another route lookup.
type Trip struct {
	ID      string
	RouteID string
	Color   string
}

type StopTime struct {
	TripID       string
	StopID       string
	StopSequence uint32
}

type Stop struct {
	ID   string
	Name string
	Lat  float64
	Lon  float64
}

// A connection between two consecutive stops of a trip. The same
// pair of stops is typically produced once per trip traversing it.
type RawEdge struct {
	From  string
	To    string
	Color string
}

// A station in the output graph. ID is the canonical station
// identity.
type Node struct {
	ID    string
	Label string
	Lat   float64
	Lon   float64
}

// An undirected edge. Source and Target are canonical station
// identities with Source <= Target.
type Edge struct {
	Source string
	Target string
	Color  string
}

type Graph struct {
	Nodes []Node
	Edges []Edge
}

type Color struct {
	R uint8
	G uint8
	B uint8
}

// Parses a 6 hex digit RGB string, such as GTFS route_color. The
// empty string is black.
func ParseColor(s string) (Color, error) {
	if s == "" {
		return Color{}, nil
	}
	if len(s) != 6 {
		return Color{}, fmt.Errorf("color '%s' is not 6 hex digits", s)
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return Color{}, fmt.Errorf("color '%s' is not 6 hex digits: %w", s, err)
	}
	return Color{R: b[0], G: b[1], B: b[2]}, nil
}
