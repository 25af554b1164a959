package export

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/paulmach/orb"

	"github.com/matzehuels/railtopo/pkg/errors"
	"github.com/matzehuels/railtopo/pkg/railml"
	"github.com/matzehuels/railtopo/pkg/topo"
)

// Radii written on a merged switch whose drawing side differs from its
// deviating side; any connection radius above the continuation radius
// reproduces the flip on import.
const (
	flippedRadius  = 1000.0
	continueRadius = 500.0
)

// Input is everything the reverse converter needs.
type Input struct {
	Graph *topo.Graph
	// Geometry holds one polyline per segment, running from end A to end B.
	Geometry []orb.LineString
	// Provenance is optional.
	Provenance *Provenance
}

// Convert rebuilds an infrastructure document from a port graph.
//
// Segment ends meeting at one location are grouped; switches and crossings
// are recreated at the end of a host track, continuations become reciprocal
// named references and everything else becomes a terminal. Segments whose
// provenance shows they were split from one source track are merged back
// into that track.
func Convert(in Input) (*railml.Document, error) {
	if in.Graph == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "no graph")
	}
	if err := in.Graph.Validate(); err != nil {
		return nil, err
	}
	if err := checkGeometry(in.Graph, in.Geometry); err != nil {
		return nil, err
	}

	x := newExporter(in)
	x.buildUnits()
	x.placeJoints()
	x.placeLocations()
	return x.document(), nil
}

func checkGeometry(g *topo.Graph, geometry []orb.LineString) error {
	if len(geometry) != len(g.Segments) {
		return errors.New(errors.ErrCodeInvalidGeometry, "%d polylines for %d segments", len(geometry), len(g.Segments))
	}
	for i, ls := range geometry {
		if len(ls) < 2 {
			return errors.Conversion(errors.ErrCodeInvalidGeometry, strconv.Itoa(i))
		}
	}
	return nil
}

type endpoint struct {
	end    topo.End
	pt     orb.Point
	np     topo.NodePort
	mapped bool
}

// unit is one exported track: a single segment, or all segments of one
// source track merged back together.
type unit struct {
	id       string
	segs     []int
	merged   bool
	length   float64
	scale    float64
	begin    *float64
	end      *float64
	switches []railml.Switch
}

type unitEnd struct {
	unit int
	side topo.AB
}

type exporter struct {
	in       Input
	g        *topo.Graph
	ends     map[topo.End]endpoint
	incident map[int][]topo.End
	recs     []*Record

	units   []*unit
	unitOf  map[topo.End]unitEnd
	conns   map[topo.End]railml.EndConnection
	handled map[topo.End]bool
}

func newExporter(in Input) *exporter {
	g := in.Graph
	x := &exporter{
		in:       in,
		g:        g,
		ends:     make(map[topo.End]endpoint, 2*len(g.Segments)),
		incident: make(map[int][]topo.End),
		recs:     make([]*Record, len(g.Segments)),
		unitOf:   make(map[topo.End]unitEnd),
		conns:    make(map[topo.End]railml.EndConnection),
		handled:  make(map[topo.End]bool),
	}
	mapped := g.EndpointMap()
	for i, ls := range in.Geometry {
		for _, side := range []topo.AB{topo.A, topo.B} {
			e := topo.End{Segment: i, Side: side}
			pt := ls[0]
			if side == topo.B {
				pt = ls[len(ls)-1]
			}
			np, ok := mapped[e]
			x.ends[e] = endpoint{end: e, pt: pt, np: np, mapped: ok}
		}
		if r, ok := in.Provenance.lookup(ls); ok {
			x.recs[i] = &r
		}
	}
	for _, c := range g.Connections {
		x.incident[c.NodePort.Node] = append(x.incident[c.NodePort.Node], c.End)
	}
	return x
}

func (x *exporter) buildUnits() {
	groups := make(map[string][]int)
	for i, r := range x.recs {
		if r != nil {
			groups[r.TrackID] = append(groups[r.TrackID], i)
		}
	}
	mergedBy := make(map[int][]int) // first segment -> ordered segments
	inMerged := make(map[int]bool)
	for _, segs := range groups {
		if ordered, ok := x.mergeable(segs); ok {
			mergedBy[ordered[0]] = ordered
			for _, s := range ordered {
				inMerged[s] = true
			}
		}
	}

	var synthesized []int
	for i := range x.g.Segments {
		switch {
		case mergedBy[i] != nil:
			ordered := mergedBy[i]
			first, last := x.recs[ordered[0]], x.recs[ordered[len(ordered)-1]]
			x.addUnit(&unit{id: first.TrackID, segs: ordered, merged: true, begin: first.Begin, end: last.End})
		case inMerged[i]:
			// placed with its first segment
		case x.recs[i] != nil:
			r := x.recs[i]
			x.addUnit(&unit{id: r.SegmentID, segs: []int{i}, begin: r.Begin, end: r.End})
		default:
			synthesized = append(synthesized, len(x.units))
			x.addUnit(&unit{segs: []int{i}})
		}
	}

	// Synthesized ids follow the unit position, skipping any id a
	// provenance record already claimed.
	taken := make(map[string]bool, len(x.units))
	for _, u := range x.units {
		if u.id != "" {
			taken[u.id] = true
		}
	}
	for _, idx := range synthesized {
		n := idx + 1
		for taken[fmt.Sprintf("tr%d", n)] {
			n++
		}
		id := fmt.Sprintf("tr%d", n)
		taken[id] = true
		x.units[idx].id = id
	}
}

func (x *exporter) addUnit(u *unit) {
	for _, s := range u.segs {
		u.length += x.g.Segments[s].Length
	}
	u.scale = 1
	if u.begin != nil && u.end != nil && u.length > 0 {
		u.scale = math.Abs(*u.end-*u.begin) / u.length
	}
	idx := len(x.units)
	x.units = append(x.units, u)
	x.unitOf[topo.End{Segment: u.segs[0], Side: topo.A}] = unitEnd{idx, topo.A}
	x.unitOf[topo.End{Segment: u.segs[len(u.segs)-1], Side: topo.B}] = unitEnd{idx, topo.B}
}

// mergeable reports whether segs form a complete source track whose joints
// are all plain switch or crossing splits, and returns them in sequence.
func (x *exporter) mergeable(segs []int) ([]int, bool) {
	ordered := slices.Clone(segs)
	slices.SortFunc(ordered, func(a, b int) int { return cmp.Compare(x.recs[a].Sequence, x.recs[b].Sequence) })
	if len(ordered) != x.recs[ordered[0]].Segments {
		return nil, false
	}
	for k, s := range ordered {
		if x.recs[s].Sequence != k {
			return nil, false
		}
	}
	for k := 0; k+1 < len(ordered); k++ {
		if _, ok := x.joint(ordered[k], ordered[k+1]); !ok {
			return nil, false
		}
	}
	return ordered, true
}

type joint struct {
	node   topo.Node
	pt     orb.Point
	branch topo.End
	dir    topo.AB
	course railml.Course
	flip   bool
}

// joint inspects the node between consecutive segments prev and next.
func (x *exporter) joint(prev, next int) (joint, bool) {
	a := x.ends[topo.End{Segment: prev, Side: topo.B}]
	b := x.ends[topo.End{Segment: next, Side: topo.A}]
	if !a.mapped || !b.mapped || a.np.Node != b.np.Node || !samePoint(a.pt, b.pt) {
		return joint{}, false
	}
	inc := x.incident[a.np.Node]
	if len(inc) != 3 {
		return joint{}, false
	}
	j := joint{node: x.g.Nodes[a.np.Node], pt: a.pt}
	for _, e := range inc {
		if e != a.end && e != b.end {
			j.branch = e
		}
	}
	bp := x.ends[j.branch].np.Port

	switch j.node.Kind {
	case topo.NodeSwitch:
		var through topo.Port
		switch {
		case a.np.Port == topo.Trunk && isBranch(b.np.Port):
			through, j.dir = b.np.Port, topo.A
		case b.np.Port == topo.Trunk && isBranch(a.np.Port):
			through, j.dir = a.np.Port, topo.B
		default:
			return joint{}, false
		}
		if !isBranch(bp) || bp == through {
			return joint{}, false
		}
		deviating := topo.SideLeft
		j.course = railml.CourseLeft
		if bp == topo.Right {
			deviating, j.course = topo.SideRight, railml.CourseRight
		}
		j.flip = j.node.Side != deviating
	case topo.NodeCrossing:
		d := a.np.Port.End
		if a.np.Port != topo.CrossingPort(d, 0) ||
			b.np.Port != topo.CrossingPort(d.Opposite(), 0) ||
			bp != topo.CrossingPort(d.Opposite(), 1) {
			return joint{}, false
		}
		j.dir = d
	default:
		return joint{}, false
	}
	return j, true
}

func isBranch(p topo.Port) bool { return p == topo.Left || p == topo.Right }

// placeJoints recreates the switch at every internal joint of a merged
// track, carrying only the branch rail.
func (x *exporter) placeJoints() {
	for _, u := range x.units {
		if !u.merged {
			continue
		}
		var cum float64
		for k := 0; k+1 < len(u.segs); k++ {
			cum += x.g.Segments[u.segs[k]].Length
			j, _ := x.joint(u.segs[k], u.segs[k+1])

			kind, prefix := railml.SwitchKindSwitch, "swi"
			if j.node.Kind == topo.NodeCrossing {
				kind, prefix = railml.SwitchKindCrossing, "crs"
			}
			id := locationID(prefix, j.pt)
			rail := railml.SwitchConnection{
				ID:          id + "c1",
				Ref:         x.trackConnID(j.branch),
				Orientation: railml.OrientationOutgoing,
				Course:      j.course,
			}
			if j.dir == topo.B {
				rail.Orientation = railml.OrientationIncoming
			}
			sw := railml.Switch{Kind: kind, ID: id, Pos: u.position(cum*u.scale, j.pt)}
			if kind == railml.SwitchKindSwitch {
				sw.ContinueCourse = railml.CourseStraight
				if j.flip {
					rail.Radius = ptr(flippedRadius)
					sw.ContinueRadius = ptr(continueRadius)
				}
			}
			sw.Connections = []railml.SwitchConnection{rail}
			u.switches = append(u.switches, sw)

			x.conns[j.branch] = railml.Connect(rail.Ref, rail.ID)
			x.handled[j.branch] = true
		}
	}
}

func samePoint(p, q orb.Point) bool {
	return math.Abs(p[0]-q[0]) < topo.Epsilon && math.Abs(p[1]-q[1]) < topo.Epsilon
}

// location is a set of track ends that [samePoint] puts in one place.
type location struct {
	pt  orb.Point
	eps []endpoint
}

// groupByLocation clusters endpoints with samePoint against the first
// point of each cluster, visiting ends in a fixed order so the grouping
// does not depend on map iteration.
func groupByLocation(eps []endpoint) []*location {
	slices.SortFunc(eps, func(a, b endpoint) int {
		if c := cmp.Compare(a.end.Segment, b.end.Segment); c != 0 {
			return c
		}
		return cmp.Compare(a.end.Side, b.end.Side)
	})
	var locs []*location
	for _, ep := range eps {
		i := slices.IndexFunc(locs, func(l *location) bool { return samePoint(l.pt, ep.pt) })
		if i < 0 {
			locs = append(locs, &location{pt: ep.pt})
			i = len(locs) - 1
		}
		locs[i].eps = append(locs[i].eps, ep)
	}
	slices.SortStableFunc(locs, func(a, b *location) int { return comparePoints(a.pt, b.pt) })
	return locs
}

// placeLocations handles every remaining track end, grouped by location.
func (x *exporter) placeLocations() {
	var open []endpoint
	for e := range x.unitOf {
		if !x.handled[e] {
			open = append(open, x.ends[e])
		}
	}

	for _, loc := range groupByLocation(open) {
		eps := loc.eps
		slices.SortFunc(eps, func(a, b endpoint) int {
			if c := cmp.Compare(priority(a), priority(b)); c != 0 {
				return c
			}
			if c := cmp.Compare(a.end.Segment, b.end.Segment); c != 0 {
				return c
			}
			return cmp.Compare(a.end.Side, b.end.Side)
		})

		kind := topo.NodeOpenEnd
		for _, ep := range eps {
			if ep.mapped {
				kind = x.g.Nodes[ep.np.Node].Kind
				break
			}
		}

		switch kind {
		case topo.NodeBufferStop:
			for _, ep := range eps {
				x.conns[ep.end] = railml.EndConnection{Kind: railml.EndBufferStop}
			}
		case topo.NodeMacroscopic:
			for _, ep := range eps {
				name := ""
				if ep.mapped {
					name = x.g.Nodes[ep.np.Node].Name
				}
				x.conns[ep.end] = railml.EndConnection{Kind: railml.EndMacroscopicNode, Name: name}
			}
		case topo.NodeContinuation:
			if len(eps) == 2 {
				id1, id2 := x.trackConnID(eps[0].end), x.trackConnID(eps[1].end)
				x.conns[eps[0].end] = railml.Connect(id1, id2)
				x.conns[eps[1].end] = railml.Connect(id2, id1)
			}
		case topo.NodeSwitch, topo.NodeCrossing:
			x.synthesize(kind, eps)
		}
		// Anything not assigned above defaults to an open end.
	}
}

// synthesize places one switch or crossing for the endpoints meeting at a
// location, hosted on the track bearing the trunk.
func (x *exporter) synthesize(kind topo.NodeKind, eps []endpoint) {
	swKind, prefix := railml.SwitchKindSwitch, "swi"
	if kind == topo.NodeCrossing {
		swKind, prefix = railml.SwitchKindCrossing, "crs"
	}
	pt := eps[0].pt
	id := locationID(prefix, pt)

	host := eps[0]
	for _, ep := range eps {
		if ep.mapped && ep.np.Port == topo.Trunk {
			host = ep
			break
		}
	}
	hu := x.unitOf[host.end]
	u := x.units[hu.unit]
	var off float64
	if hu.side == topo.B {
		off = u.length * u.scale
	}

	sw := railml.Switch{Kind: swKind, ID: id, Pos: u.position(off, pt)}
	if swKind == railml.SwitchKindSwitch {
		sw.ContinueCourse = railml.CourseStraight
	}
	for i, ep := range eps {
		trackConn := x.trackConnID(ep.end)
		swConn := fmt.Sprintf("%sc%d", id, i+1)
		x.conns[ep.end] = railml.Connect(trackConn, swConn)
		sw.Connections = append(sw.Connections, railml.SwitchConnection{
			ID:          swConn,
			Ref:         trackConn,
			Orientation: railml.OrientationIncoming,
			Course:      courseFromPort(ep.np.Port),
		})
	}
	u.switches = append(u.switches, sw)
}

func priority(ep endpoint) int {
	if !ep.mapped {
		return 6
	}
	switch ep.np.Port.Kind {
	case topo.PortTrunk:
		return 0
	case topo.PortLeft:
		return 1
	case topo.PortRight:
		return 2
	case topo.PortCrossing:
		return 3
	case topo.PortContA, topo.PortContB:
		return 4
	}
	return 5
}

func courseFromPort(p topo.Port) railml.Course {
	switch p {
	case topo.Left:
		return railml.CourseLeft
	case topo.Right:
		return railml.CourseRight
	case topo.Trunk:
		return railml.CourseStraight
	}
	return railml.CourseNone
}

func (x *exporter) trackConnID(e topo.End) string {
	ue := x.unitOf[e]
	n := 1
	if ue.side == topo.B {
		n = 2
	}
	return fmt.Sprintf("%sc%d", x.units[ue.unit].id, n)
}

// locationID derives an id such as "swi_3_m2" from a location.
func locationID(prefix string, p orb.Point) string {
	return prefix + "_" + encodeCoord(p[0]) + "_" + encodeCoord(p[1])
}

func encodeCoord(v float64) string {
	sign := ""
	if v < 0 {
		sign, v = "m", -v
	}
	if v == math.Trunc(v) && v < 1e15 {
		return sign + strconv.FormatInt(int64(v), 10)
	}
	return sign + strings.ReplaceAll(strconv.FormatFloat(v, 'f', -1, 64), ".", "p")
}

func (u *unit) mileageAt(off float64) *float64 {
	if u.begin == nil {
		return nil
	}
	return ptr(*u.begin + off)
}

func (u *unit) position(off float64, pt orb.Point) railml.Position {
	return railml.Position{Offset: off, Mileage: u.mileageAt(off), GeoCoord: &pt}
}

func (x *exporter) document() *railml.Document {
	doc := &railml.Document{Infrastructure: &railml.Infrastructure{}}
	if p := x.in.Provenance; p != nil {
		if p.Metadata != nil {
			md := *p.Metadata
			doc.Metadata = &md
		}
		doc.Infrastructure.TrackGroups = slices.Clone(p.TrackGroups)
		doc.Infrastructure.OCPs = slices.Clone(p.OCPs)
		doc.Infrastructure.States = slices.Clone(p.States)
	}
	for i, u := range x.units {
		doc.Infrastructure.Tracks = append(doc.Infrastructure.Tracks, x.track(i, u))
	}
	return doc
}

func (x *exporter) track(idx int, u *unit) railml.Track {
	first, last := u.segs[0], u.segs[len(u.segs)-1]
	t := railml.Track{ID: u.id}

	beginID, endID := u.id+"tb", u.id+"te"
	if r := x.recs[first]; r != nil {
		t.Code, t.Name, t.Description, t.Type, t.MainDir = r.Code, r.Name, r.Description, r.Type, r.MainDir
		if r.Sequence == 0 && r.BeginID != "" {
			beginID = r.BeginID
		}
	}
	if r := x.recs[last]; r != nil && r.Sequence == r.Segments-1 && r.EndID != "" {
		endID = r.EndID
	}

	length := u.length * u.scale
	t.Begin = railml.Terminal{
		ID:         beginID,
		Pos:        u.position(0, x.ends[topo.End{Segment: first, Side: topo.A}].pt),
		Connection: x.connection(idx, topo.A),
	}
	t.End = railml.Terminal{
		ID:         endID,
		Pos:        u.position(length, x.ends[topo.End{Segment: last, Side: topo.B}].pt),
		Connection: x.connection(idx, topo.B),
	}

	t.Switches = slices.Clone(u.switches)
	slices.SortStableFunc(t.Switches, func(a, b railml.Switch) int { return cmp.Compare(a.Pos.Offset, b.Pos.Offset) })

	x.elements(u, &t)
	return t
}

func (x *exporter) connection(idx int, side topo.AB) railml.EndConnection {
	u := x.units[idx]
	e := topo.End{Segment: u.segs[0], Side: topo.A}
	if side == topo.B {
		e = topo.End{Segment: u.segs[len(u.segs)-1], Side: topo.B}
	}
	if c, ok := x.conns[e]; ok {
		return c
	}
	return railml.EndConnection{Kind: railml.EndOpenEnd}
}

// elements copies segment elements onto the track, rescaled to absolute
// offsets, with ids from provenance or synthesized per category.
func (x *exporter) elements(u *unit, t *railml.Track) {
	known := make(map[railml.Category][]string)
	var base float64
	for _, s := range u.segs {
		seg := &x.g.Segments[s]
		var o railml.Objects
		var e railml.TrackElements
		o.Append(seg.Objects)
		e.Append(seg.Elements)
		railml.Each(&o, &e, func(_ railml.Category, el railml.Element) bool {
			el.Loc().Offset += base
			return true
		})
		t.Objects.Append(o)
		t.Elements.Append(e)
		base += seg.Length

		if r := x.recs[s]; r != nil {
			for c, ids := range r.Elements {
				known[c] = append(known[c], ids...)
			}
		} else {
			// Keep positions aligned for the segments that follow.
			for c, n := range railml.Counts(&seg.Objects, &seg.Elements) {
				known[c] = append(known[c], make([]string, n)...)
			}
		}
	}

	index := make(map[railml.Category]int)
	synth := make(map[railml.Category]int)
	railml.Each(&t.Objects, &t.Elements, func(c railml.Category, el railml.Element) bool {
		it := el.Base()
		j := index[c]
		index[c]++
		if ids := known[c]; j < len(ids) && ids[j] != "" {
			it.ID = ids[j]
		} else {
			synth[c]++
			it.ID = fmt.Sprintf("%s%s%02d", u.id, c.Prefix(), synth[c])
		}
		it.Pos.Offset *= u.scale
		it.Pos.Mileage = u.mileageAt(it.Pos.Offset)
		it.Pos.GeoCoord = nil
		return true
	})
}

func ptr[T any](v T) *T { return &v }
