// Package pipeline runs conversions with caching, logging and hooks.
//
// The same [Runner] backs the CLI and the HTTP server:
//
//	runner := pipeline.NewRunner(c, nil, logger)
//	imp, err := runner.Import(ctx, doc)
//	if err != nil {
//	    return err
//	}
//	exp, err := runner.Export(ctx, pipeline.ExportInput{
//	    Graph:      imp.Graph,
//	    Geometry:   imp.Geometry,
//	    Provenance: imp.Provenance,
//	})
//
// [Runner.RoundTrip] chains both and compares element counts, and
// [Runner.Render] draws a graph with Graphviz.
package pipeline

import (
	"fmt"
	"time"

	"github.com/paulmach/orb"

	"github.com/matzehuels/railtopo/pkg/export"
	"github.com/matzehuels/railtopo/pkg/railml"
	"github.com/matzehuels/railtopo/pkg/topo"
)

// Render formats.
const (
	FormatDOT = "dot"
	FormatSVG = "svg"
)

// ValidFormats is the set of supported render formats.
var ValidFormats = map[string]bool{
	FormatDOT: true,
	FormatSVG: true,
}

// ValidateFormat checks that format is a supported render format.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return fmt.Errorf("invalid format: %q (must be one of: dot, svg)", format)
	}
	return nil
}

// Stats describes one conversion.
type Stats struct {
	Tracks      int
	Segments    int
	Nodes       int
	Connections int
	Elements    map[railml.Category]int
	Duration    time.Duration
}

// ImportResult is the outcome of a forward conversion.
type ImportResult struct {
	// RunID identifies the run in logs.
	RunID string

	Graph *topo.Graph
	// GraphHash is the content hash of the encoded graph.
	GraphHash string
	// Geometry is a schematic layout of the graph, one polyline per segment.
	Geometry []orb.LineString
	// Provenance links the geometry back to source identities.
	Provenance *export.Provenance

	Stats    Stats
	CacheHit bool
}

// ExportInput is the input of a reverse conversion.
type ExportInput struct {
	Graph      *topo.Graph
	Geometry   []orb.LineString
	Provenance *export.Provenance
}

// ExportResult is the outcome of a reverse conversion.
type ExportResult struct {
	RunID    string
	Document *railml.Document
	Stats    Stats
	CacheHit bool
}

// RoundTripResult compares a document with its reconstruction.
type RoundTripResult struct {
	Import *ImportResult
	Export *ExportResult
	// Before and After count elements per category.
	Before map[railml.Category]int
	After  map[railml.Category]int
}

// Matches reports whether the reconstruction kept the track count and
// every element category count.
func (r *RoundTripResult) Matches() bool {
	if r.Import.Stats.Tracks != r.Export.Stats.Tracks {
		return false
	}
	for _, c := range railml.Categories() {
		if r.Before[c] != r.After[c] {
			return false
		}
	}
	return true
}

// RenderOptions configures [Runner.Render].
type RenderOptions struct {
	Format   string
	Detailed bool
}

func documentStats(doc *railml.Document) Stats {
	s := Stats{Elements: make(map[railml.Category]int)}
	tracks := doc.Tracks()
	s.Tracks = len(tracks)
	for i := range tracks {
		for c, n := range railml.Counts(&tracks[i].Objects, &tracks[i].Elements) {
			s.Elements[c] += n
		}
	}
	return s
}

func graphStats(g *topo.Graph) Stats {
	s := Stats{
		Segments:    len(g.Segments),
		Nodes:       len(g.Nodes),
		Connections: len(g.Connections),
		Elements:    make(map[railml.Category]int),
	}
	for i := range g.Segments {
		for c, n := range railml.Counts(&g.Segments[i].Objects, &g.Segments[i].Elements) {
			s.Elements[c] += n
		}
	}
	return s
}
