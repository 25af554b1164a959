// Package topo converts track-centric infrastructure into a port graph.
//
// # Port Graphs
//
// A [Graph] has three parts:
//
//   - [Segment]: a fragment of a source track between two nodes
//   - [Node]: a buffer stop, open end, macroscopic boundary, switch,
//     crossing or continuation
//   - [Connection]: an edge from one end (A or B) of a segment to a
//     typed [Port] on a node
//
// Segments and nodes are stored in slices and referenced by index. In a
// valid graph every segment end carries exactly one connection; see
// [Graph.Validate].
//
// Ports are Trunk, Left and Right for switches, CrossingPort(end, rail) for
// the two rails of a crossing, Single for terminals and ContA/ContB for
// continuations. [Port.OtherPorts] gives the fixed adjacency between the
// ports of one node.
//
// # Conversion
//
// [Convert] walks each track in document order:
//
//  1. The mileage origin is taken from the begin terminal, the end terminal
//     or the first element carrying an absolute mileage.
//  2. Switches are visited by offset. Each one closes the current segment
//     and opens the next, with the trunk facing the closing segment when
//     the reference rail is outgoing.
//  3. Elements are moved into the segment covering their offset, with
//     offsets made segment-local.
//
// Track ends and switch rails that name each other are collected as
// reference pairs and resolved after all tracks are done. A track end that
// only names another track end is joined through a continuation node.
//
//	g, err := topo.Convert(doc, topo.WithLogger(logger))
//	if errors.Is(err, errors.ErrCodeUnmatchedConnection) {
//	    refs := errors.GetRefs(err)
//	    ...
//	}
//
// Any inconsistency aborts the conversion with an *errors.Error from
// [errors]; no partial graph is returned.
//
// [errors]: github.com/matzehuels/railtopo/pkg/errors
package topo
