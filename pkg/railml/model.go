package railml

import (
	"fmt"

	"github.com/paulmach/orb"
)

// Document is the root of an infrastructure description.
type Document struct {
	Metadata       *Metadata       `json:"metadata,omitempty"`
	Infrastructure *Infrastructure `json:"infrastructure,omitempty"`
}

// Tracks returns the document's tracks, or nil when there is no
// infrastructure section.
func (d *Document) Tracks() []Track {
	if d == nil || d.Infrastructure == nil {
		return nil
	}
	return d.Infrastructure.Tracks
}

// Metadata holds Dublin Core descriptors of a document.
type Metadata struct {
	Format              string               `json:"format,omitempty"`
	Identifier          string               `json:"identifier,omitempty"`
	Source              string               `json:"source,omitempty"`
	Title               string               `json:"title,omitempty"`
	Language            string               `json:"language,omitempty"`
	Creator             string               `json:"creator,omitempty"`
	Description         string               `json:"description,omitempty"`
	Rights              string               `json:"rights,omitempty"`
	OrganizationalUnits []OrganizationalUnit `json:"organizationalUnits,omitempty"`
}

// OrganizationalUnit names an infrastructure manager or operator.
type OrganizationalUnit struct {
	ID   string `json:"id"`
	Code string `json:"code,omitempty"`
}

// Infrastructure is the topology-bearing part of a document.
type Infrastructure struct {
	Tracks      []Track      `json:"tracks"`
	TrackGroups []TrackGroup `json:"trackGroups,omitempty"`
	OCPs        []OCP        `json:"ocps,omitempty"`
	States      []State      `json:"states,omitempty"`
}

// TrackGroup groups tracks into a line.
type TrackGroup struct {
	ID                       string     `json:"id"`
	Name                     string     `json:"name,omitempty"`
	InfrastructureManagerRef string     `json:"infrastructureManagerRef,omitempty"`
	LineCategory             string     `json:"lineCategory,omitempty"`
	LineType                 string     `json:"lineType,omitempty"`
	TrackRefs                []TrackRef `json:"trackRefs,omitempty"`
}

// TrackRef references a track from a [TrackGroup].
type TrackRef struct {
	Ref      string `json:"ref"`
	Sequence *int   `json:"sequence,omitempty"`
}

// OCP is an operational control point (station, junction, ...).
type OCP struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
	Type string `json:"type,omitempty"`
}

// State records the operational status of an infrastructure element.
type State struct {
	ID       string `json:"id"`
	Disabled *bool  `json:"disabled,omitempty"`
	Status   string `json:"status,omitempty"`
}

// Track is a stretch of line between two terminals.
//
// Switches and elements are stored in source order; converters sort copies
// by offset and never reorder the track itself.
type Track struct {
	ID          string        `json:"id"`
	Code        string        `json:"code,omitempty"`
	Name        string        `json:"name,omitempty"`
	Description string        `json:"description,omitempty"`
	Type        string        `json:"type,omitempty"`
	MainDir     string        `json:"mainDir,omitempty"`
	Begin       Terminal      `json:"begin"`
	End         Terminal      `json:"end"`
	Switches    []Switch      `json:"switches,omitempty"`
	Elements    TrackElements `json:"trackElements"`
	Objects     Objects       `json:"objects"`
}

// Terminal is one end of a track.
type Terminal struct {
	ID         string        `json:"id"`
	Pos        Position      `json:"pos"`
	Connection EndConnection `json:"connection"`
}

// Position locates a point along a track.
type Position struct {
	Offset   float64    `json:"offset"`
	Mileage  *float64   `json:"mileage,omitempty"`
	GeoCoord *orb.Point `json:"geoCoord,omitempty"`
}

// EndConnectionKind identifies what lies beyond a terminal.
type EndConnectionKind int

const (
	// EndOpenEnd is a track end with nothing attached.
	EndOpenEnd EndConnectionKind = iota
	// EndBufferStop is a physical buffer stop.
	EndBufferStop
	// EndMacroscopicNode is a boundary to a network outside the document.
	EndMacroscopicNode
	// EndNamed is a named reference pair to a switch or another track.
	EndNamed
)

var endConnectionKindNames = []string{"openEnd", "bufferStop", "macroscopicNode", "connection"}

func (k EndConnectionKind) String() string {
	if k >= 0 && int(k) < len(endConnectionKindNames) {
		return endConnectionKindNames[k]
	}
	return fmt.Sprintf("EndConnectionKind(%d)", int(k))
}

// MarshalText implements encoding.TextMarshaler.
func (k EndConnectionKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *EndConnectionKind) UnmarshalText(b []byte) error {
	return parseEnum(string(b), endConnectionKindNames, (*int)(k), "end connection kind")
}

// EndConnection describes the far side of a [Terminal].
//
// For Kind == EndNamed, ID is this terminal's own published id and Ref
// the id published by the peer. Name is the boundary name of a macroscopic
// node.
type EndConnection struct {
	Kind EndConnectionKind `json:"kind"`
	ID   string            `json:"id,omitempty"`
	Ref  string            `json:"ref,omitempty"`
	Name string            `json:"name,omitempty"`
}

// Connect returns a named-reference end connection.
func Connect(id, ref string) EndConnection {
	return EndConnection{Kind: EndNamed, ID: id, Ref: ref}
}

// IsConnection reports whether c is a named reference pair.
func (c EndConnection) IsConnection() bool { return c.Kind == EndNamed }

func parseEnum(s string, names []string, dst *int, what string) error {
	for i, n := range names {
		if n == s {
			*dst = i
			return nil
		}
	}
	return fmt.Errorf("unknown %s %q", what, s)
}
