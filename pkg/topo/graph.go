package topo

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/matzehuels/railtopo/pkg/railml"
)

// AB names one of the two ends of a segment.
type AB int

const (
	A AB = iota
	B
)

// Opposite returns the other end.
func (ab AB) Opposite() AB {
	if ab == A {
		return B
	}
	return A
}

func (ab AB) String() string {
	if ab == A {
		return "A"
	}
	return "B"
}

// ParseAB parses "A" or "B".
func ParseAB(s string) (AB, error) {
	switch s {
	case "A":
		return A, nil
	case "B":
		return B, nil
	}
	return A, fmt.Errorf("invalid segment side %q", s)
}

// Side is the left or right hand of a switch.
type Side int

const (
	SideLeft Side = iota
	SideRight
)

// Opposite returns the mirrored side.
func (s Side) Opposite() Side {
	if s == SideLeft {
		return SideRight
	}
	return SideLeft
}

// Port returns the switch branch port on this side.
func (s Side) Port() Port {
	if s == SideLeft {
		return Left
	}
	return Right
}

func (s Side) String() string {
	if s == SideLeft {
		return "left"
	}
	return "right"
}

// PortKind distinguishes the attachment points of a node.
type PortKind int

const (
	PortTrunk PortKind = iota
	PortLeft
	PortRight
	// PortCrossing is one end of one rail of a crossing; see [Port.End] and [Port.Rail].
	PortCrossing
	PortSingle
	PortContA
	PortContB
)

// Port is an attachment point on a node. End and Rail are only meaningful
// for crossing ports.
type Port struct {
	Kind PortKind
	End  AB
	Rail int
}

var (
	Trunk  = Port{Kind: PortTrunk}
	Left   = Port{Kind: PortLeft}
	Right  = Port{Kind: PortRight}
	Single = Port{Kind: PortSingle}
	ContA  = Port{Kind: PortContA}
	ContB  = Port{Kind: PortContB}
)

// CrossingPort returns the port at end of the given crossing rail.
func CrossingPort(end AB, rail int) Port {
	return Port{Kind: PortCrossing, End: end, Rail: rail}
}

// PortLink is a port reachable from another port of the same node, with the
// direction multiplier used when propagating mileage across the node.
type PortLink struct {
	Port Port
	Dir  int
}

// OtherPorts returns the ports topologically adjacent to p.
func (p Port) OtherPorts() []PortLink {
	switch p.Kind {
	case PortTrunk:
		return []PortLink{{Left, 1}, {Right, 1}}
	case PortLeft:
		return []PortLink{{Right, -1}, {Trunk, 1}}
	case PortRight:
		return []PortLink{{Left, -1}, {Trunk, 1}}
	case PortCrossing:
		return []PortLink{{CrossingPort(p.End.Opposite(), p.Rail), 1}}
	case PortContA:
		return []PortLink{{ContB, 1}}
	case PortContB:
		return []PortLink{{ContA, 1}}
	}
	return nil
}

var portNames = map[PortKind]string{
	PortTrunk:  "trunk",
	PortLeft:   "left",
	PortRight:  "right",
	PortSingle: "single",
	PortContA:  "contA",
	PortContB:  "contB",
}

// String renders the port as "trunk", "left", ... or "crossing:A:0".
func (p Port) String() string {
	if p.Kind == PortCrossing {
		return fmt.Sprintf("crossing:%s:%d", p.End, p.Rail)
	}
	if s, ok := portNames[p.Kind]; ok {
		return s
	}
	return fmt.Sprintf("Port(%d)", int(p.Kind))
}

// ParsePort parses the output of [Port.String].
func ParsePort(s string) (Port, error) {
	if rest, ok := strings.CutPrefix(s, "crossing:"); ok {
		end, rail, found := strings.Cut(rest, ":")
		if !found {
			return Port{}, fmt.Errorf("invalid crossing port %q", s)
		}
		ab, err := ParseAB(end)
		if err != nil {
			return Port{}, err
		}
		n, err := strconv.Atoi(rail)
		if err != nil || n < 0 {
			return Port{}, fmt.Errorf("invalid crossing rail in %q", s)
		}
		return CrossingPort(ab, n), nil
	}
	for k, name := range portNames {
		if name == s {
			return Port{Kind: k}, nil
		}
	}
	return Port{}, fmt.Errorf("unknown port %q", s)
}

// NodeKind distinguishes the node variants of a port graph.
type NodeKind int

const (
	NodeBufferStop NodeKind = iota
	NodeOpenEnd
	NodeMacroscopic
	NodeSwitch
	NodeCrossing
	// NodeContinuation joins two segments linked only by reciprocal named
	// references.
	NodeContinuation
)

var nodeKindNames = []string{"bufferStop", "openEnd", "macroscopicNode", "switch", "crossing", "continuation"}

func (k NodeKind) String() string {
	if k >= 0 && int(k) < len(nodeKindNames) {
		return nodeKindNames[k]
	}
	return fmt.Sprintf("NodeKind(%d)", int(k))
}

// ParseNodeKind parses the output of [NodeKind.String].
func ParseNodeKind(s string) (NodeKind, error) {
	for i, n := range nodeKindNames {
		if n == s {
			return NodeKind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown node kind %q", s)
}

// Node is a vertex of the port graph.
type Node struct {
	Kind NodeKind
	// Side is the drawing side of a switch. It may differ from the deviating
	// side when the deviating rail is the gentler curve.
	Side Side
	// Name is the boundary name of a macroscopic node.
	Name string
}

// Segment is a fragment of a source track between two nodes. Element
// offsets are local to the segment.
type Segment struct {
	Track        string
	Sequence     int
	Offset       float64 // absolute mileage at the segment start
	Length       float64
	MileageKnown bool
	Objects      railml.Objects
	Elements     railml.TrackElements
}

// End identifies one end of a segment.
type End struct {
	Segment int
	Side    AB
}

// NodePort identifies a port on a node.
type NodePort struct {
	Node int
	Port Port
}

// Connection attaches a segment end to a node port.
type Connection struct {
	End      End
	NodePort NodePort
}

// Graph is a port graph. Segments and nodes are referenced by index; indices
// are only meaningful within one graph.
type Graph struct {
	Segments    []Segment
	Nodes       []Node
	Connections []Connection
}

// AddNode appends n and returns its index.
func (g *Graph) AddNode(n Node) int {
	g.Nodes = append(g.Nodes, n)
	return len(g.Nodes) - 1
}

// AddSegment appends s and returns its index.
func (g *Graph) AddSegment(s Segment) int {
	g.Segments = append(g.Segments, s)
	return len(g.Segments) - 1
}

// Connect attaches side of segment to port of node.
func (g *Graph) Connect(segment int, side AB, node int, port Port) {
	g.Connections = append(g.Connections, Connection{
		End:      End{Segment: segment, Side: side},
		NodePort: NodePort{Node: node, Port: port},
	})
}

// EndpointMap indexes connections by segment end. When an end has several
// connections the first one wins.
func (g *Graph) EndpointMap() map[End]NodePort {
	m := make(map[End]NodePort, len(g.Connections))
	for _, c := range g.Connections {
		if _, ok := m[c.End]; !ok {
			m[c.End] = c.NodePort
		}
	}
	return m
}
