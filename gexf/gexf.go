// Package gexf writes graphs in the Graph Exchange XML Format
// (GEXF 1.2draft), with station coordinates and edge colors in the
// viz extension.
package gexf

import (
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"tidbyt.dev/gtfsgraph/logging"
	"tidbyt.dev/gtfsgraph/model"
)

const (
	Namespace    = "http://www.gexf.net/1.2draft"
	VizNamespace = "http://www.gexf.net/1.2draft/viz"
	Version      = "1.2"
)

type document struct {
	XMLName  xml.Name `xml:"gexf"`
	Xmlns    string   `xml:"xmlns,attr"`
	XmlnsViz string   `xml:"xmlns:viz,attr"`
	Version  string   `xml:"version,attr"`
	Graph    graph    `xml:"graph"`
}

type graph struct {
	DefaultEdgeType string `xml:"defaultedgetype,attr"`
	Nodes           nodes  `xml:"nodes"`
	Edges           edges  `xml:"edges"`
}

type nodes struct {
	Node []node `xml:"node"`
}

type edges struct {
	Edge []edge `xml:"edge"`
}

type node struct {
	ID       string   `xml:"id,attr"`
	Label    string   `xml:"label,attr"`
	Position position `xml:"viz:position"`
}

type position struct {
	X string `xml:"x,attr"`
	Y string `xml:"y,attr"`
}

type edge struct {
	ID     string `xml:"id,attr"`
	Source string `xml:"source,attr"`
	Target string `xml:"target,attr"`
	Color  color  `xml:"viz:color"`
}

type color struct {
	R uint8 `xml:"r,attr"`
	G uint8 `xml:"g,attr"`
	B uint8 `xml:"b,attr"`
}

func formatCoordinate(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func newDocument(g *model.Graph, logger *slog.Logger) *document {
	doc := &document{
		Xmlns:    Namespace,
		XmlnsViz: VizNamespace,
		Version:  Version,
		Graph: graph{
			DefaultEdgeType: "undirected",
			Nodes:           nodes{Node: make([]node, 0, len(g.Nodes))},
			Edges:           edges{Edge: make([]edge, 0, len(g.Edges))},
		},
	}

	for _, n := range g.Nodes {
		doc.Graph.Nodes.Node = append(doc.Graph.Nodes.Node, node{
			ID:    n.ID,
			Label: n.Label,
			Position: position{
				X: formatCoordinate(n.Lon),
				Y: formatCoordinate(n.Lat),
			},
		})
	}

	for i, e := range g.Edges {
		c, err := model.ParseColor(e.Color)
		if err != nil {
			logging.LogWarning(
				logger,
				"invalid edge color, using black",
				slog.String("source", e.Source),
				slog.String("target", e.Target),
				slog.String("color", e.Color),
			)
		}
		doc.Graph.Edges.Edge = append(doc.Graph.Edges.Edge, edge{
			ID:     strconv.Itoa(i),
			Source: e.Source,
			Target: e.Target,
			Color:  color{R: c.R, G: c.G, B: c.B},
		})
	}

	return doc
}

// Writes g as a complete GEXF document.
func Encode(w io.Writer, g *model.Graph, logger *slog.Logger) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(newDocument(g, logger)); err != nil {
		return fmt.Errorf("encoding gexf: %w", err)
	}

	if _, err := io.WriteString(w, "\n"); err != nil {
		return fmt.Errorf("writing trailer: %w", err)
	}

	return nil
}

// Writes g to a file at path. The file is removed again if encoding
// fails.
func WriteFile(path string, g *model.Graph, logger *slog.Logger) error {
	fh, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}

	err = Encode(fh, g, logger)
	if closeErr := fh.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("closing %s: %w", path, closeErr)
	}
	if err != nil {
		os.Remove(path)
		return err
	}

	return nil
}
