package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/railtopo/pkg/railml"
	"github.com/matzehuels/railtopo/pkg/topo"
)

// Options configures node-link diagram rendering.
type Options struct {
	// Detailed adds port names to edge ends and element counts to edge
	// labels. When false, edges only show the track id.
	Detailed bool
}

var nodeShapes = map[topo.NodeKind]string{
	topo.NodeBufferStop:   "box",
	topo.NodeOpenEnd:      "circle",
	topo.NodeMacroscopic:  "doubleoctagon",
	topo.NodeSwitch:       "triangle",
	topo.NodeCrossing:     "diamond",
	topo.NodeContinuation: "point",
}

// ToDOT converts a port graph to an undirected Graphviz DOT graph: one
// vertex per node and one edge per segment whose ends are both attached.
// The result can be rendered with [RenderSVG].
func ToDOT(g *topo.Graph, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("graph G {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [style=filled, fillcolor=white, fontsize=14];\n")
	buf.WriteString("  edge [fontsize=10];\n")
	buf.WriteString("\n")

	for i, n := range g.Nodes {
		attrs := fmtNodeAttrs(i, n, opts.Detailed)
		fmt.Fprintf(&buf, "  n%d [%s];\n", i, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	ends := g.EndpointMap()
	for i, s := range g.Segments {
		a, okA := ends[topo.End{Segment: i, Side: topo.A}]
		b, okB := ends[topo.End{Segment: i, Side: topo.B}]
		if !okA || !okB {
			continue
		}
		attrs := []string{fmt.Sprintf("label=%q", fmtEdgeLabel(s, opts.Detailed))}
		if opts.Detailed {
			attrs = append(attrs,
				fmt.Sprintf("taillabel=%q", a.Port.String()),
				fmt.Sprintf("headlabel=%q", b.Port.String()))
		}
		fmt.Fprintf(&buf, "  n%d -- n%d [%s];\n", a.Node, b.Node, strings.Join(attrs, ", "))
	}

	buf.WriteString("}\n")
	return buf.String()
}

func fmtNodeAttrs(i int, n topo.Node, detailed bool) []string {
	label := n.Kind.String()
	switch {
	case n.Kind == topo.NodeMacroscopic && n.Name != "":
		label = n.Name
	case n.Kind == topo.NodeSwitch && detailed:
		label += "\n" + n.Side.String()
	}
	if detailed {
		label = fmt.Sprintf("#%d %s", i, label)
	}

	attrs := []string{fmt.Sprintf("label=%q", label)}
	if shape, ok := nodeShapes[n.Kind]; ok {
		attrs = append(attrs, "shape="+shape)
	}
	if n.Kind == topo.NodeBufferStop {
		attrs = append(attrs, "fillcolor=lightgrey")
	}
	return attrs
}

func fmtEdgeLabel(s topo.Segment, detailed bool) string {
	label := s.Track
	if s.Sequence > 0 {
		label = fmt.Sprintf("%s/%d", s.Track, s.Sequence)
	}
	if !detailed {
		return label
	}

	parts := []string{label, strconv.FormatFloat(s.Length, 'f', -1, 64)}
	counts := railml.Counts(&s.Objects, &s.Elements)
	for _, c := range railml.Categories() {
		if n := counts[c]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s: %d", c, n))
		}
	}
	return strings.Join(parts, "\n")
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox rewrites the root element so the drawing scales with
// its container.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	root := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(root))
}
