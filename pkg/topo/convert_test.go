package topo

import (
	"fmt"
	"math"
	"math/rand"
	"slices"
	"strings"
	"testing"

	"github.com/matzehuels/railtopo/pkg/errors"
	"github.com/matzehuels/railtopo/pkg/railml"
)

func f64(v float64) *float64 { return &v }

func at(id string, off float64) railml.Item {
	return railml.Item{ID: id, Pos: railml.Position{Offset: off}}
}

func bufferStop() railml.EndConnection { return railml.EndConnection{Kind: railml.EndBufferStop} }

func track(id string, length float64, begin, end railml.EndConnection) railml.Track {
	return railml.Track{
		ID:    id,
		Begin: railml.Terminal{ID: id + "b", Connection: begin},
		End:   railml.Terminal{ID: id + "e", Pos: railml.Position{Offset: length}, Connection: end},
	}
}

func doc(tracks ...railml.Track) *railml.Document {
	return &railml.Document{Infrastructure: &railml.Infrastructure{Tracks: tracks}}
}

// network is a small station: t1 carries a switch toward t2 and continues
// into t3, which carries a crossing toward t4.
func network() *railml.Document {
	t1 := track("t1", 100, bufferStop(), railml.Connect("t1e", "t3b"))
	t1.Begin.Pos.Mileage = f64(1000)
	t1.Switches = []railml.Switch{{
		ID:  "sw1",
		Pos: railml.Position{Offset: 40},
		Connections: []railml.SwitchConnection{
			{ID: "sw1l", Ref: "t2b", Orientation: railml.OrientationOutgoing, Course: railml.CourseLeft},
		},
	}}
	t1.Objects.Signals = []railml.Signal{{Item: at("s3", 90)}, {Item: at("s1", 10)}, {Item: at("s2", 50)}}
	t1.Objects.TrainDetectors = []railml.TrainDetector{{Item: at("d1", 40)}}
	t1.Elements.PlatformEdges = []railml.PlatformEdge{{Item: at("p1", 70)}}

	t2 := track("t2", 50, railml.Connect("t2b", "sw1l"), railml.EndConnection{Kind: railml.EndOpenEnd})
	t2.Objects.Signals = []railml.Signal{{Item: at("s4", 5)}}

	t3 := track("t3", 30, railml.Connect("t3b", "t1e"), railml.EndConnection{Kind: railml.EndMacroscopicNode, Name: "Nord"})
	t3.Switches = []railml.Switch{{
		Kind: railml.SwitchKindCrossing,
		ID:   "cr1",
		Pos:  railml.Position{Offset: 10},
		Connections: []railml.SwitchConnection{
			{ID: "cr1c", Ref: "t4b", Orientation: railml.OrientationIncoming},
		},
	}}
	t3.Objects.TrackCircuitBorders = []railml.TrackCircuitBorder{{Item: at("tcb1", 25)}}

	t4 := track("t4", 20, railml.Connect("t4b", "cr1c"), bufferStop())

	return doc(t1, t2, t3, t4)
}

func TestConvertConcreteExample(t *testing.T) {
	t1 := track("t1", 100, bufferStop(), bufferStop())
	t1.Switches = []railml.Switch{{
		ID:             "sw",
		Pos:            railml.Position{Offset: 40},
		ContinueRadius: f64(0),
		Connections: []railml.SwitchConnection{{
			ID: "swc", Ref: "t2b", Orientation: railml.OrientationOutgoing,
			Course: railml.CourseLeft, Radius: f64(200),
		}},
	}}
	t2 := track("t2", 30, railml.Connect("t2b", "swc"), bufferStop())

	g, err := Convert(doc(t1, t2))
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}

	var t1Segs []Segment
	for _, s := range g.Segments {
		if s.Track == "t1" {
			t1Segs = append(t1Segs, s)
		}
	}
	if len(t1Segs) != 2 || t1Segs[0].Length != 40 || t1Segs[1].Length != 60 {
		t.Fatalf("t1 segments = %+v, want lengths 40 and 60", t1Segs)
	}

	var switches []int
	for i, n := range g.Nodes {
		if n.Kind == NodeSwitch {
			switches = append(switches, i)
		}
	}
	if len(switches) != 1 {
		t.Fatalf("switch nodes = %d, want 1", len(switches))
	}
	sw := switches[0]
	if g.Nodes[sw].Side != SideRight {
		t.Errorf("switch side = %v, want right", g.Nodes[sw].Side)
	}

	ends := g.EndpointMap()
	tests := []struct {
		end  End
		want NodePort
	}{
		{End{0, B}, NodePort{sw, Trunk}},
		{End{1, A}, NodePort{sw, Right}},
		{End{2, A}, NodePort{sw, Left}},
	}
	for _, tt := range tests {
		if got := ends[tt.end]; got != tt.want {
			t.Errorf("endpoint %v = %v, want %v", tt.end, got, tt.want)
		}
	}
}

func TestConvertIncomingSwapsPorts(t *testing.T) {
	t1 := track("t1", 100, bufferStop(), bufferStop())
	t1.Switches = []railml.Switch{{
		ID:  "sw",
		Pos: railml.Position{Offset: 30},
		Connections: []railml.SwitchConnection{{
			ID: "swc", Ref: "t2e", Orientation: railml.OrientationIncoming, Course: railml.CourseRight,
		}},
	}}
	t2 := track("t2", 10, bufferStop(), railml.Connect("t2e", "swc"))

	g, err := Convert(doc(t1, t2))
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	ends := g.EndpointMap()
	if got := ends[End{0, B}].Port; got != Left {
		t.Errorf("closing port = %v, want left", got)
	}
	if got := ends[End{1, A}].Port; got != Trunk {
		t.Errorf("opening port = %v, want trunk", got)
	}
	if got := ends[End{2, B}].Port; got != Right {
		t.Errorf("rail port = %v, want right", got)
	}
}

func TestConvertNetwork(t *testing.T) {
	d := network()
	g, err := Convert(d)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if err := g.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	kinds := map[NodeKind]int{}
	for _, n := range g.Nodes {
		kinds[n.Kind]++
	}
	want := map[NodeKind]int{
		NodeBufferStop:   2,
		NodeOpenEnd:      1,
		NodeMacroscopic:  1,
		NodeSwitch:       1,
		NodeCrossing:     1,
		NodeContinuation: 1,
	}
	for k, n := range want {
		if kinds[k] != n {
			t.Errorf("%v nodes = %d, want %d", k, kinds[k], n)
		}
	}
	for _, n := range g.Nodes {
		if n.Kind == NodeMacroscopic && n.Name != "Nord" {
			t.Errorf("macroscopic name = %q, want Nord", n.Name)
		}
	}

	// t1 splits at 40: signals s1 | s2, s3; the detector at exactly 40
	// belongs to the second segment.
	s0, s1 := g.Segments[0], g.Segments[1]
	if ids := signalIDs(s0); ids != "s1" {
		t.Errorf("segment 0 signals = %s, want s1", ids)
	}
	if ids := signalIDs(s1); ids != "s2,s3" {
		t.Errorf("segment 1 signals = %s, want s2,s3", ids)
	}
	if len(s1.Objects.TrainDetectors) != 1 || s1.Objects.TrainDetectors[0].Pos.Offset != 0 {
		t.Errorf("segment 1 detectors = %+v", s1.Objects.TrainDetectors)
	}
	if s1.Offset != 1040 || !s1.MileageKnown {
		t.Errorf("segment 1 offset = %v (known %v), want 1040", s1.Offset, s1.MileageKnown)
	}
}

func signalIDs(s Segment) string {
	var ids []string
	for _, sig := range s.Objects.Signals {
		ids = append(ids, sig.ID)
	}
	return strings.Join(ids, ",")
}

func TestConvertLengthsAndContainment(t *testing.T) {
	d := network()
	g, err := Convert(d)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}

	sums := map[string]float64{}
	for _, s := range g.Segments {
		sums[s.Track] += s.Length
		railml.Each(&s.Objects, &s.Elements, func(c railml.Category, el railml.Element) bool {
			off := el.Loc().Offset
			if off < -Epsilon || off > s.Length+Epsilon {
				t.Errorf("%v %s offset %v outside [0, %v]", c, el.Base().ID, off, s.Length)
			}
			return true
		})
	}
	for _, tr := range d.Tracks() {
		want := tr.End.Pos.Offset - tr.Begin.Pos.Offset
		if math.Abs(sums[tr.ID]-want) > Epsilon {
			t.Errorf("track %s segment length sum = %v, want %v", tr.ID, sums[tr.ID], want)
		}
	}
	if issues := g.PositionIssues(); len(issues) != 0 {
		t.Errorf("PositionIssues = %v, want none", issues)
	}
}

func TestConvertDoesNotMutateInput(t *testing.T) {
	d := network()
	if _, err := Convert(d); err != nil {
		t.Fatalf("Convert: %v", err)
	}
	sigs := d.Tracks()[0].Objects.Signals
	if sigs[0].ID != "s3" || sigs[0].Pos.Offset != 90 {
		t.Errorf("input signals reordered or shifted: %+v", sigs)
	}
}

func TestConvertErrors(t *testing.T) {
	tests := []struct {
		name     string
		doc      func() *railml.Document
		code     errors.Code
		wantRefs []string
	}{
		{
			name: "dangling reference",
			doc: func() *railml.Document {
				return doc(track("t1", 10, railml.Connect("a", "b"), bufferStop()))
			},
			code:     errors.ErrCodeUnmatchedConnection,
			wantRefs: []string{"b", "a"},
		},
		{
			name: "continuation mismatch",
			doc: func() *railml.Document {
				return doc(
					track("t1", 10, bufferStop(), railml.Connect("a", "b")),
					track("t2", 10, railml.Connect("b", "c"), bufferStop()),
				)
			},
			code:     errors.ErrCodeTrackContinuationMismatch,
			wantRefs: []string{"a", "b"},
		},
		{
			name: "switch rail without track",
			doc: func() *railml.Document {
				t1 := track("t1", 10, bufferStop(), bufferStop())
				t1.Switches = []railml.Switch{{ID: "sw", Pos: railml.Position{Offset: 5},
					Connections: []railml.SwitchConnection{{ID: "x", Ref: "y",
						Orientation: railml.OrientationOutgoing, Course: railml.CourseLeft}}}}
				return doc(t1)
			},
			code:     errors.ErrCodeUnmatchedConnection,
			wantRefs: []string{"y", "x"},
		},
		{
			name: "duplicate reference",
			doc: func() *railml.Document {
				return doc(
					track("t1", 10, railml.Connect("a", "b"), bufferStop()),
					track("t2", 10, railml.Connect("a", "b"), bufferStop()),
				)
			},
			code:     errors.ErrCodeDuplicateReference,
			wantRefs: []string{"a", "b"},
		},
		{
			name: "switch course unknown",
			doc: func() *railml.Document {
				t1 := track("t1", 10, bufferStop(), bufferStop())
				t1.Switches = []railml.Switch{{ID: "sw", Pos: railml.Position{Offset: 5},
					Connections: []railml.SwitchConnection{{ID: "x", Ref: "y", Orientation: railml.OrientationOutgoing}}}}
				return doc(t1)
			},
			code:     errors.ErrCodeSwitchCourseUnknown,
			wantRefs: []string{"sw"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := Convert(tt.doc())
			if g != nil {
				t.Errorf("Convert returned a partial graph")
			}
			if !errors.Is(err, tt.code) {
				t.Fatalf("Convert error = %v, want %s", err, tt.code)
			}
			if got := errors.GetRefs(err); !slices.Equal(got, tt.wantRefs) {
				t.Errorf("refs = %v, want %v", got, tt.wantRefs)
			}
		})
	}
}

func TestConvertContinuation(t *testing.T) {
	g, err := Convert(doc(
		track("t1", 10, bufferStop(), railml.Connect("a", "b")),
		track("t2", 20, railml.Connect("b", "a"), bufferStop()),
	))
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	ends := g.EndpointMap()
	a, b := ends[End{0, B}], ends[End{1, A}]
	if a.Node != b.Node || g.Nodes[a.Node].Kind != NodeContinuation {
		t.Fatalf("ends not joined by a continuation: %v %v", a, b)
	}
	if a.Port != ContA || b.Port != ContB {
		t.Errorf("ports = %v, %v, want contA, contB", a.Port, b.Port)
	}
}

func TestConvertBoundarySwitches(t *testing.T) {
	// Switches at the start and end of t1 do not split it. The one at the
	// end stops switch processing, so sw3 beyond it is ignored.
	t1 := track("t1", 50, railml.Connect("t1b", "sw1t"), railml.Connect("t1e", "sw2t"))
	rail := func(id, ref string, course railml.Course) railml.SwitchConnection {
		return railml.SwitchConnection{ID: id, Ref: ref, Orientation: railml.OrientationIncoming, Course: course}
	}
	t1.Switches = []railml.Switch{
		{ID: "sw2", Pos: railml.Position{Offset: 50}, Connections: []railml.SwitchConnection{
			rail("sw2t", "t1e", railml.CourseStraight), rail("sw2l", "t2b", railml.CourseLeft)}},
		{ID: "sw1", Pos: railml.Position{Offset: 0}, Connections: []railml.SwitchConnection{
			rail("sw1t", "t1b", railml.CourseStraight), rail("sw1r", "t3e", railml.CourseRight)}},
		{ID: "sw3", Pos: railml.Position{Offset: 60}, Connections: []railml.SwitchConnection{
			rail("sw3t", "nowhere", railml.CourseLeft)}},
	}
	t2 := track("t2", 10, railml.Connect("t2b", "sw2l"), bufferStop())
	t3 := track("t3", 10, bufferStop(), railml.Connect("t3e", "sw1r"))

	g, err := Convert(doc(t1, t2, t3))
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if g.Segments[0].Length != 50 || g.Segments[1].Track != "t2" {
		t.Fatalf("t1 was split: %+v", g.Segments)
	}
	ends := g.EndpointMap()
	if p := ends[End{0, A}].Port; p != Trunk {
		t.Errorf("t1 A port = %v, want trunk", p)
	}
	if p := ends[End{2, B}].Port; p != Right {
		t.Errorf("t3 B port = %v, want right", p)
	}
	if ends[End{0, B}].Node != ends[End{1, A}].Node {
		t.Error("t1 end and t2 begin not on the same switch")
	}
}

func TestConvertMileageFromElement(t *testing.T) {
	t1 := track("t1", 100, bufferStop(), bufferStop())
	t1.Objects.Derailers = []railml.Derailer{{Item: railml.Item{ID: "d", Pos: railml.Position{Offset: 20, Mileage: f64(520)}}}}

	g, err := Convert(doc(t1))
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if s := g.Segments[0]; s.Offset != 500 || !s.MileageKnown {
		t.Errorf("segment offset = %v (known %v), want 500", s.Offset, s.MileageKnown)
	}

	g, err = Convert(doc(track("t2", 10, bufferStop(), bufferStop())))
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if s := g.Segments[0]; s.Offset != 0 || s.MileageKnown {
		t.Errorf("segment offset = %v (known %v), want 0 unknown", s.Offset, s.MileageKnown)
	}
}

// canonical renders g independent of segment and node numbering.
func canonical(g *Graph) string {
	label := func(e End) string {
		s := g.Segments[e.Segment]
		return fmt.Sprintf("%s/%d/%s/%g", s.Track, s.Sequence, e.Side, s.Length)
	}
	byNode := make([][]string, len(g.Nodes))
	for _, c := range g.Connections {
		byNode[c.NodePort.Node] = append(byNode[c.NodePort.Node], label(c.End)+"@"+c.NodePort.Port.String())
	}
	nodes := make([]string, len(g.Nodes))
	for i, n := range g.Nodes {
		slices.Sort(byNode[i])
		nodes[i] = fmt.Sprintf("%v(%v,%s)[%s]", n.Kind, n.Side, n.Name, strings.Join(byNode[i], " "))
	}
	slices.Sort(nodes)
	return strings.Join(nodes, "\n")
}

func TestConvertOrderIndependent(t *testing.T) {
	base, err := Convert(network())
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	want := canonical(base)

	for seed := int64(1); seed <= 8; seed++ {
		d := network()
		tracks := d.Infrastructure.Tracks
		r := rand.New(rand.NewSource(seed))
		r.Shuffle(len(tracks), func(i, j int) { tracks[i], tracks[j] = tracks[j], tracks[i] })

		g, err := Convert(d)
		if err != nil {
			t.Fatalf("seed %d: Convert: %v", seed, err)
		}
		if got := canonical(g); got != want {
			t.Errorf("seed %d: graph differs\ngot:\n%s\nwant:\n%s", seed, got, want)
		}
	}
}
