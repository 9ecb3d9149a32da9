package gexf

import (
	"bytes"
	"encoding/xml"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tidbyt.dev/gtfsgraph/logging"
	"tidbyt.dev/gtfsgraph/model"
)

// Mirror of the document for decoding in tests.
type testDocument struct {
	XMLName xml.Name `xml:"http://www.gexf.net/1.2draft gexf"`
	Version string   `xml:"version,attr"`
	Graph   struct {
		DefaultEdgeType string `xml:"defaultedgetype,attr"`
		Nodes           []struct {
			ID       string `xml:"id,attr"`
			Label    string `xml:"label,attr"`
			Position struct {
				X string `xml:"x,attr"`
				Y string `xml:"y,attr"`
			} `xml:"http://www.gexf.net/1.2draft/viz position"`
		} `xml:"nodes>node"`
		Edges []struct {
			Source string `xml:"source,attr"`
			Target string `xml:"target,attr"`
			Color  struct {
				R int `xml:"r,attr"`
				G int `xml:"g,attr"`
				B int `xml:"b,attr"`
			} `xml:"http://www.gexf.net/1.2draft/viz color"`
		} `xml:"edges>edge"`
	} `xml:"graph"`
}

func decode(t *testing.T, data []byte) testDocument {
	doc := testDocument{}
	require.NoError(t, xml.Unmarshal(data, &doc))
	return doc
}

func TestEncode(t *testing.T) {
	g := &model.Graph{
		Nodes: []model.Node{
			{ID: "S1", Label: "Station A", Lon: -79.0, Lat: 43.0},
			{ID: "S2", Label: "Station B & C", Lon: -79.1, Lat: 43.1},
		},
		Edges: []model.Edge{
			{Source: "S1", Target: "S2", Color: "FF0000"},
			{Source: "S1", Target: "S2", Color: ""},
		},
	}

	buf := &bytes.Buffer{}
	require.NoError(t, Encode(buf, g, logging.Discard()))

	out := buf.String()
	assert.Contains(t, out, `<?xml version="1.0" encoding="UTF-8"?>`)
	assert.Contains(t, out, `xmlns="http://www.gexf.net/1.2draft"`)
	assert.Contains(t, out, `xmlns:viz="http://www.gexf.net/1.2draft/viz"`)
	assert.Contains(t, out, `<viz:position x="-79" y="43">`)
	assert.Contains(t, out, `<viz:color r="255" g="0" b="0">`)
	assert.Contains(t, out, `label="Station B &amp; C"`)

	doc := decode(t, buf.Bytes())
	assert.Equal(t, "1.2", doc.Version)
	assert.Equal(t, "undirected", doc.Graph.DefaultEdgeType)

	require.Equal(t, 2, len(doc.Graph.Nodes))
	assert.Equal(t, "S2", doc.Graph.Nodes[1].ID)
	assert.Equal(t, "Station B & C", doc.Graph.Nodes[1].Label)
	assert.Equal(t, "-79.1", doc.Graph.Nodes[1].Position.X)
	assert.Equal(t, "43.1", doc.Graph.Nodes[1].Position.Y)

	require.Equal(t, 2, len(doc.Graph.Edges))
	assert.Equal(t, "S1", doc.Graph.Edges[0].Source)
	assert.Equal(t, "S2", doc.Graph.Edges[0].Target)
	assert.Equal(t, 255, doc.Graph.Edges[0].Color.R)
	assert.Equal(t, 0, doc.Graph.Edges[1].Color.R)
	assert.Equal(t, 0, doc.Graph.Edges[1].Color.G)
	assert.Equal(t, 0, doc.Graph.Edges[1].Color.B)
}

func TestEncodeMalformedColor(t *testing.T) {
	logBuf := &bytes.Buffer{}
	logger := logging.NewStructuredLogger(logBuf, slog.LevelInfo)

	g := &model.Graph{
		Nodes: []model.Node{{ID: "a"}, {ID: "b"}},
		Edges: []model.Edge{{Source: "a", Target: "b", Color: "red"}},
	}

	buf := &bytes.Buffer{}
	require.NoError(t, Encode(buf, g, logger))

	doc := decode(t, buf.Bytes())
	require.Equal(t, 1, len(doc.Graph.Edges))
	assert.Equal(t, 0, doc.Graph.Edges[0].Color.R)
	assert.Contains(t, logBuf.String(), `"color":"red"`)
}

func TestEncodeEmpty(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, Encode(buf, &model.Graph{}, logging.Discard()))

	out := buf.String()
	assert.Contains(t, out, "<nodes></nodes>")
	assert.Contains(t, out, "<edges></edges>")

	doc := decode(t, buf.Bytes())
	assert.Empty(t, doc.Graph.Nodes)
	assert.Empty(t, doc.Graph.Edges)
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.gexf")

	g := &model.Graph{Nodes: []model.Node{{ID: "a", Label: "A", Lon: 1.5, Lat: -2.25}}}
	require.NoError(t, WriteFile(path, g, logging.Discard()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	doc := decode(t, data)
	require.Equal(t, 1, len(doc.Graph.Nodes))
	assert.Equal(t, "1.5", doc.Graph.Nodes[0].Position.X)
	assert.Equal(t, "-2.25", doc.Graph.Nodes[0].Position.Y)

	err = WriteFile(filepath.Join(t.TempDir(), "no", "such", "dir.gexf"), g, logging.Discard())
	assert.Error(t, err)
}
