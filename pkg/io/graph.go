package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/railtopo/pkg/errors"
	"github.com/matzehuels/railtopo/pkg/railml"
	"github.com/matzehuels/railtopo/pkg/topo"
)

var sideToString = map[topo.Side]string{
	topo.SideLeft:  "left",
	topo.SideRight: "right",
}

var sideFromString = map[string]topo.Side{
	"left":  topo.SideLeft,
	"right": topo.SideRight,
}

type graph struct {
	Segments    []segment    `json:"segments"`
	Nodes       []node       `json:"nodes"`
	Connections []connection `json:"connections"`
}

type segment struct {
	Track        string               `json:"track"`
	Sequence     int                  `json:"sequence"`
	Offset       float64              `json:"offset"`
	Length       float64              `json:"length"`
	MileageKnown bool                 `json:"mileageKnown,omitempty"`
	Objects      railml.Objects       `json:"objects"`
	Elements     railml.TrackElements `json:"trackElements"`
}

type node struct {
	Kind string `json:"kind"`
	Side string `json:"side,omitempty"`
	Name string `json:"name,omitempty"`
}

type connection struct {
	Segment int    `json:"segment"`
	Side    string `json:"side"`
	Node    int    `json:"node"`
	Port    string `json:"port"`
}

// WriteGraph encodes a port graph as JSON and writes it to w.
//
// Nodes and segments keep their indices as array positions; connections
// refer to them by index. Only switch nodes carry a side.
func WriteGraph(g *topo.Graph, w io.Writer) error {
	out := graph{
		Segments:    make([]segment, len(g.Segments)),
		Nodes:       make([]node, len(g.Nodes)),
		Connections: make([]connection, len(g.Connections)),
	}
	for i, s := range g.Segments {
		out.Segments[i] = segment{
			Track:        s.Track,
			Sequence:     s.Sequence,
			Offset:       s.Offset,
			Length:       s.Length,
			MileageKnown: s.MileageKnown,
			Objects:      s.Objects,
			Elements:     s.Elements,
		}
	}
	for i, n := range g.Nodes {
		nd := node{Kind: n.Kind.String(), Name: n.Name}
		if n.Kind == topo.NodeSwitch {
			nd.Side = sideToString[n.Side]
		}
		out.Nodes[i] = nd
	}
	for i, c := range g.Connections {
		out.Connections[i] = connection{
			Segment: c.End.Segment,
			Side:    c.End.Side.String(),
			Node:    c.NodePort.Node,
			Port:    c.NodePort.Port.String(),
		}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ReadGraph decodes a JSON port graph written by [WriteGraph].
//
// Kinds, sides and ports must parse and every connection must reference an
// existing segment and node. ReadGraph does not check that every segment end
// is connected exactly once; call [topo.Graph.Validate] for that.
func ReadGraph(r io.Reader) (*topo.Graph, error) {
	var data graph
	if err := json.NewDecoder(r).Decode(&data); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode graph")
	}

	g := &topo.Graph{
		Segments: make([]topo.Segment, len(data.Segments)),
		Nodes:    make([]topo.Node, len(data.Nodes)),
	}
	for i, s := range data.Segments {
		g.Segments[i] = topo.Segment{
			Track:        s.Track,
			Sequence:     s.Sequence,
			Offset:       s.Offset,
			Length:       s.Length,
			MileageKnown: s.MileageKnown,
			Objects:      s.Objects,
			Elements:     s.Elements,
		}
	}
	for i, n := range data.Nodes {
		kind, err := topo.ParseNodeKind(n.Kind)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "node %d", i)
		}
		nd := topo.Node{Kind: kind, Name: n.Name}
		if n.Side != "" {
			side, ok := sideFromString[n.Side]
			if !ok {
				return nil, errors.New(errors.ErrCodeInvalidFormat, "node %d: unknown side %q", i, n.Side)
			}
			nd.Side = side
		}
		g.Nodes[i] = nd
	}
	for i, c := range data.Connections {
		if c.Segment < 0 || c.Segment >= len(g.Segments) || c.Node < 0 || c.Node >= len(g.Nodes) {
			return nil, errors.New(errors.ErrCodeInvalidFormat, "connection %d: index out of range", i)
		}
		side, err := topo.ParseAB(c.Side)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "connection %d", i)
		}
		port, err := topo.ParsePort(c.Port)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "connection %d", i)
		}
		g.Connect(c.Segment, side, c.Node, port)
	}
	return g, nil
}

// ImportGraph reads a JSON port graph from the file at path.
func ImportGraph(path string) (*topo.Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadGraph(f)
}

// ExportGraph writes a port graph to a JSON file at path.
func ExportGraph(g *topo.Graph, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return WriteGraph(g, f)
}
