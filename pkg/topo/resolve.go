package topo

import (
	"cmp"
	"maps"
	"slices"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/railtopo/pkg/errors"
)

// refKey is a named reference as published by one side: its own id and the
// id it expects from its peer.
type refKey struct {
	id, ref string
}

func (k refKey) reversed() refKey { return refKey{id: k.ref, ref: k.id} }

func compareKeys(a, b refKey) int {
	if c := cmp.Compare(a.id, b.id); c != 0 {
		return c
	}
	return cmp.Compare(a.ref, b.ref)
}

// resolver pairs named references into connections once every track has
// been segmented.
type resolver struct {
	nodes     map[refKey]NodePort
	tracks    map[refKey]End
	published map[string]bool
}

func newResolver() *resolver {
	return &resolver{
		nodes:     make(map[refKey]NodePort),
		tracks:    make(map[refKey]End),
		published: make(map[string]bool),
	}
}

func (r *resolver) addTrack(id, ref string, end End) error {
	k := refKey{id: id, ref: ref}
	if _, dup := r.tracks[k]; dup {
		return errors.Conversion(errors.ErrCodeDuplicateReference, id, ref)
	}
	r.tracks[k] = end
	r.published[id] = true
	return nil
}

func (r *resolver) addNode(id, ref string, np NodePort) error {
	k := refKey{id: id, ref: ref}
	if _, dup := r.nodes[k]; dup {
		return errors.Conversion(errors.ErrCodeDuplicateReference, id, ref)
	}
	r.nodes[k] = np
	r.published[id] = true
	return nil
}

// resolve emits a connection for every node-side reference, then joins the
// remaining track-side references pairwise through continuation nodes. Keys
// are visited in sorted order so the result does not depend on map order.
func (r *resolver) resolve(g *Graph, logger *log.Logger) error {
	logger.Debug("matching named references", "node", len(r.nodes), "track", len(r.tracks))

	for _, k := range slices.SortedFunc(maps.Keys(r.nodes), compareKeys) {
		np := r.nodes[k]
		rev := k.reversed()
		end, ok := r.tracks[rev]
		if !ok {
			return errors.Conversion(errors.ErrCodeUnmatchedConnection, k.ref, k.id)
		}
		delete(r.tracks, rev)
		g.Connect(end.Segment, end.Side, np.Node, np.Port)
	}

	for _, k := range slices.SortedFunc(maps.Keys(r.tracks), compareKeys) {
		first, ok := r.tracks[k]
		if !ok {
			continue // consumed as the reciprocal of an earlier key
		}
		delete(r.tracks, k)
		second, ok := r.tracks[k.reversed()]
		if !ok {
			if r.published[k.ref] {
				return errors.Conversion(errors.ErrCodeTrackContinuationMismatch, k.id, k.ref)
			}
			return errors.Conversion(errors.ErrCodeUnmatchedConnection, k.ref, k.id)
		}
		delete(r.tracks, k.reversed())

		n := g.AddNode(Node{Kind: NodeContinuation})
		g.Connect(first.Segment, first.Side, n, ContA)
		g.Connect(second.Segment, second.Side, n, ContB)
		logger.Debug("continuation", "a", k.id, "b", k.ref, "node", n)
	}
	return nil
}
