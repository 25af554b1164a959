package topo

import (
	"fmt"
	"strconv"

	"github.com/matzehuels/railtopo/pkg/errors"
	"github.com/matzehuels/railtopo/pkg/railml"
)

// Validate checks that every segment has exactly one connection at each
// end and that every connection refers to an existing segment and node.
//
// It returns TRACK_ENDPOINT_MISSING or TRACK_ENDPOINT_DUPLICATE naming the
// first offending segment index and side.
func (g *Graph) Validate() error {
	counts := make([][2]int, len(g.Segments))
	for _, c := range g.Connections {
		if c.End.Segment < 0 || c.End.Segment >= len(g.Segments) {
			return errors.New(errors.ErrCodeInternal, "connection refers to unknown segment %d", c.End.Segment)
		}
		if c.NodePort.Node < 0 || c.NodePort.Node >= len(g.Nodes) {
			return errors.New(errors.ErrCodeInternal, "connection refers to unknown node %d", c.NodePort.Node)
		}
		counts[c.End.Segment][c.End.Side]++
	}
	for i, n := range counts {
		for _, side := range []AB{A, B} {
			switch {
			case n[side] == 0:
				return errors.Conversion(errors.ErrCodeTrackEndpointMissing, strconv.Itoa(i), side.String())
			case n[side] > 1:
				return errors.Conversion(errors.ErrCodeTrackEndpointDuplicate, strconv.Itoa(i), side.String())
			}
		}
	}
	return nil
}

// PositionIssues reports segments with negative length and elements whose
// local offset lies outside their segment. Such graphs are still usable, so
// these are warnings rather than errors.
func (g *Graph) PositionIssues() []string {
	var issues []string
	for i := range g.Segments {
		s := &g.Segments[i]
		if s.Length < -Epsilon {
			issues = append(issues, fmt.Sprintf("segment %d of track %s has negative length %g", i, s.Track, s.Length))
		}
		railml.Each(&s.Objects, &s.Elements, func(c railml.Category, el railml.Element) bool {
			off := el.Loc().Offset
			if off < -Epsilon || off > s.Length+Epsilon {
				issues = append(issues, fmt.Sprintf("%s %s at offset %g outside segment %d of track %s (length %g)",
					c, el.Base().ID, off, i, s.Track, s.Length))
			}
			return true
		})
	}
	return issues
}
