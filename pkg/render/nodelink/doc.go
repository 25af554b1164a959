// Package nodelink renders port graphs as node-link diagrams.
//
// Nodes appear as shapes by kind (boxes for buffer stops, triangles for
// switches, diamonds for crossings, points for continuations) and every
// segment becomes an edge labeled with its source track:
//
//	dot := nodelink.ToDOT(g, nodelink.Options{Detailed: true})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//
// With Detailed set, edge ends carry the port names and edge labels the
// segment length and per-category element counts.
//
// This package uses [github.com/goccy/go-graphviz] for in-process SVG
// rendering; the DOT source can also be processed with external Graphviz
// tools.
package nodelink
