package topo

import (
	"cmp"
	"io"
	"math"
	"slices"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/railtopo/pkg/railml"
)

// Epsilon is the tolerance for boundary and containment checks.
const Epsilon = 1e-6

// Option configures [Convert].
type Option func(*options)

type options struct {
	logger *log.Logger
}

// WithLogger sets the logger used for debug output and position warnings.
// By default nothing is logged.
func WithLogger(l *log.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// Convert builds the port graph of doc.
//
// Every track is split at its switches and crossings; named references
// between track ends and switch rails are then paired into connections.
// Convert never modifies doc and either returns a complete graph that passes
// [Graph.Validate] or a single *errors.Error describing the first
// inconsistency found.
func Convert(doc *railml.Document, opts ...Option) (*Graph, error) {
	o := options{logger: log.NewWithOptions(io.Discard, log.Options{})}
	for _, opt := range opts {
		opt(&o)
	}

	c := &converter{g: &Graph{}, refs: newResolver(), log: o.logger}
	tracks := doc.Tracks()
	for i := range tracks {
		if err := c.track(&tracks[i]); err != nil {
			return nil, err
		}
	}
	if err := c.refs.resolve(c.g, c.log); err != nil {
		return nil, err
	}
	if err := c.g.Validate(); err != nil {
		return nil, err
	}
	for _, issue := range c.g.PositionIssues() {
		c.log.Warn(issue)
	}

	c.log.Debug("converted topology",
		"tracks", len(tracks),
		"segments", len(c.g.Segments),
		"nodes", len(c.g.Nodes),
		"connections", len(c.g.Connections))
	return c.g, nil
}

type converter struct {
	g    *Graph
	refs *resolver
	log  *log.Logger
}

func (c *converter) track(t *railml.Track) error {
	origin, known := mileageOrigin(t)
	begin, end := t.Begin.Pos.Offset, t.End.Pos.Offset

	seg := c.g.AddSegment(Segment{Track: t.ID, Offset: origin, MileageKnown: known})
	if err := c.terminal(t.Begin.Connection, End{Segment: seg, Side: A}); err != nil {
		return err
	}

	q := newQueue(t)
	switches := slices.Clone(t.Switches)
	slices.SortStableFunc(switches, func(a, b railml.Switch) int {
		return cmp.Compare(a.Pos.Offset, b.Pos.Offset)
	})

	start, abs := begin, origin
	for _, sw := range switches {
		info, err := interpretSwitch(sw)
		if err != nil {
			return err
		}
		pos := sw.Pos.Offset
		c.log.Debug("switch",
			"id", sw.ID,
			"kind", sw.Kind,
			"pos", pos,
			"deviating", info.deviating,
			"geometry", info.geometry,
			"dir", info.dir)

		q.drain(&c.g.Segments[seg], start, func(off float64) bool { return off < pos })

		node := c.g.AddNode(switchNode(sw, info))
		if err := c.rails(sw, info, node); err != nil {
			return err
		}

		// A switch on a segment boundary does not split; its rails still
		// attach through named references.
		if near(pos, end) {
			break
		}
		if near(pos, start) {
			continue
		}

		closing, opening := info.splitPorts(sw.IsCrossing())
		c.g.Segments[seg].Length = pos - start
		abs += pos - start
		c.g.Connect(seg, B, node, closing)

		seg = c.g.AddSegment(Segment{
			Track:        t.ID,
			Sequence:     c.g.Segments[seg].Sequence + 1,
			Offset:       abs,
			MileageKnown: known,
		})
		c.g.Connect(seg, A, node, opening)
		start = pos
	}

	q.drain(&c.g.Segments[seg], start, func(float64) bool { return true })
	c.g.Segments[seg].Length = end - start
	return c.terminal(t.End.Connection, End{Segment: seg, Side: B})
}

func (c *converter) rails(sw railml.Switch, info switchInfo, node int) error {
	if sw.IsCrossing() {
		return c.refs.addNode(info.ref.ID, info.ref.Ref, NodePort{Node: node, Port: info.railPort(info.ref, true)})
	}
	for _, rail := range sw.Connections {
		np := NodePort{Node: node, Port: info.railPort(rail, false)}
		if err := c.refs.addNode(rail.ID, rail.Ref, np); err != nil {
			return err
		}
	}
	return nil
}

func (c *converter) terminal(conn railml.EndConnection, end End) error {
	var n Node
	switch conn.Kind {
	case railml.EndNamed:
		return c.refs.addTrack(conn.ID, conn.Ref, end)
	case railml.EndBufferStop:
		n = Node{Kind: NodeBufferStop}
	case railml.EndMacroscopicNode:
		n = Node{Kind: NodeMacroscopic, Name: conn.Name}
	default:
		n = Node{Kind: NodeOpenEnd}
	}
	c.g.Connect(end.Segment, end.Side, c.g.AddNode(n), Single)
	return nil
}

// mileageOrigin returns the absolute mileage at the start of t: the begin
// terminal's mileage, else the end terminal's, else that of the first
// element carrying one minus its offset.
func mileageOrigin(t *railml.Track) (float64, bool) {
	if m := t.Begin.Pos.Mileage; m != nil {
		return *m, true
	}
	if m := t.End.Pos.Mileage; m != nil {
		return *m, true
	}
	var origin float64
	var found bool
	railml.Each(&t.Objects, &t.Elements, func(_ railml.Category, el railml.Element) bool {
		if p := el.Loc(); p.Mileage != nil {
			origin, found = *p.Mileage-p.Offset, true
		}
		return !found
	})
	return origin, found
}

func near(a, b float64) bool { return math.Abs(a-b) < Epsilon }

// queue holds offset-sorted copies of a track's elements waiting to be
// assigned to segments.
type queue struct {
	objects  railml.Objects
	elements railml.TrackElements
}

func newQueue(t *railml.Track) *queue {
	o, e := &t.Objects, &t.Elements
	return &queue{
		objects: railml.Objects{
			Signals:                      sortedByOffset(o.Signals),
			Balises:                      sortedByOffset(o.Balises),
			TrainDetectors:               sortedByOffset(o.TrainDetectors),
			TrackCircuitBorders:          sortedByOffset(o.TrackCircuitBorders),
			Derailers:                    sortedByOffset(o.Derailers),
			TrainProtectionElements:      sortedByOffset(o.TrainProtectionElements),
			TrainProtectionElementGroups: sortedByOffset(o.TrainProtectionElementGroups),
		},
		elements: railml.TrackElements{
			PlatformEdges:  sortedByOffset(e.PlatformEdges),
			SpeedChanges:   sortedByOffset(e.SpeedChanges),
			LevelCrossings: sortedByOffset(e.LevelCrossings),
			CrossSections:  sortedByOffset(e.CrossSections),
			GeoMappings:    sortedByOffset(e.GeoMappings),
		},
	}
}

// drain moves every queued element whose offset satisfies take into seg,
// translating offsets so they are relative to start.
func (q *queue) drain(seg *Segment, start float64, take func(float64) bool) {
	o, e := &q.objects, &q.elements
	move(&o.Signals, &seg.Objects.Signals, start, take)
	move(&o.Balises, &seg.Objects.Balises, start, take)
	move(&o.TrainDetectors, &seg.Objects.TrainDetectors, start, take)
	move(&o.TrackCircuitBorders, &seg.Objects.TrackCircuitBorders, start, take)
	move(&o.Derailers, &seg.Objects.Derailers, start, take)
	move(&o.TrainProtectionElements, &seg.Objects.TrainProtectionElements, start, take)
	move(&o.TrainProtectionElementGroups, &seg.Objects.TrainProtectionElementGroups, start, take)
	move(&e.PlatformEdges, &seg.Elements.PlatformEdges, start, take)
	move(&e.SpeedChanges, &seg.Elements.SpeedChanges, start, take)
	move(&e.LevelCrossings, &seg.Elements.LevelCrossings, start, take)
	move(&e.CrossSections, &seg.Elements.CrossSections, start, take)
	move(&e.GeoMappings, &seg.Elements.GeoMappings, start, take)
}

type element[T any] interface {
	*T
	railml.Element
}

func sortedByOffset[T any, P element[T]](s []T) []T {
	out := slices.Clone(s)
	slices.SortStableFunc(out, func(a, b T) int {
		return cmp.Compare(P(&a).Loc().Offset, P(&b).Loc().Offset)
	})
	return out
}

func move[T any, P element[T]](src, dst *[]T, start float64, take func(float64) bool) {
	n := 0
	for n < len(*src) && take(P(&(*src)[n]).Loc().Offset) {
		n++
	}
	for _, v := range (*src)[:n] {
		P(&v).Loc().Offset -= start
		*dst = append(*dst, v)
	}
	*src = (*src)[n:]
}
