package railml

import "fmt"

// SwitchKind distinguishes switches from crossings.
type SwitchKind int

const (
	// SwitchKindSwitch is a turnout with a trunk and two branches.
	SwitchKindSwitch SwitchKind = iota
	// SwitchKindCrossing is a level crossing of two independent rails.
	SwitchKindCrossing
)

var switchKindNames = []string{"switch", "crossing"}

func (k SwitchKind) String() string {
	if k >= 0 && int(k) < len(switchKindNames) {
		return switchKindNames[k]
	}
	return fmt.Sprintf("SwitchKind(%d)", int(k))
}

// MarshalText implements encoding.TextMarshaler.
func (k SwitchKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *SwitchKind) UnmarshalText(b []byte) error {
	return parseEnum(string(b), switchKindNames, (*int)(k), "switch kind")
}

// Switch is a switch or crossing placed on a track.
//
// Name and Description are only meaningful for switches, NormalPosition only
// for crossings. ContinueCourse and ContinueRadius describe the rail that
// continues along the host track.
type Switch struct {
	Kind           SwitchKind         `json:"kind"`
	ID             string             `json:"id"`
	Pos            Position           `json:"pos"`
	Name           string             `json:"name,omitempty"`
	Description    string             `json:"description,omitempty"`
	Length         *float64           `json:"length,omitempty"`
	Connections    []SwitchConnection `json:"connections"`
	ContinueCourse Course             `json:"continueCourse,omitempty"`
	ContinueRadius *float64           `json:"continueRadius,omitempty"`
	NormalPosition Course             `json:"normalPosition,omitempty"`
}

// IsCrossing reports whether s is a crossing.
func (s Switch) IsCrossing() bool { return s.Kind == SwitchKindCrossing }

// SwitchConnection is a rail leaving a switch toward another track.
//
// ID is the id published by the switch, Ref the id published by the track
// end it attaches to.
type SwitchConnection struct {
	ID          string      `json:"id"`
	Ref         string      `json:"ref"`
	Orientation Orientation `json:"orientation"`
	Course      Course      `json:"course,omitempty"`
	Radius      *float64    `json:"radius,omitempty"`
	MaxSpeed    *float64    `json:"maxSpeed,omitempty"`
	Passable    *bool       `json:"passable,omitempty"`
}

// Course is the direction a rail takes at a switch.
type Course int

const (
	CourseNone Course = iota
	CourseStraight
	CourseLeft
	CourseRight
)

var courseNames = []string{"", "straight", "left", "right"}

func (c Course) String() string {
	if c >= 0 && int(c) < len(courseNames) {
		return courseNames[c]
	}
	return fmt.Sprintf("Course(%d)", int(c))
}

// MarshalText implements encoding.TextMarshaler.
func (c Course) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Course) UnmarshalText(b []byte) error {
	return parseEnum(string(b), courseNames, (*int)(c), "course")
}

// Opposite returns the mirrored course. Straight and none have no opposite
// and yield CourseNone.
func (c Course) Opposite() Course {
	switch c {
	case CourseLeft:
		return CourseRight
	case CourseRight:
		return CourseLeft
	}
	return CourseNone
}

// IsSide reports whether c is left or right.
func (c Course) IsSide() bool { return c == CourseLeft || c == CourseRight }

// Orientation tells whether a switch connection leaves or joins the host
// track in its running direction.
type Orientation int

const (
	OrientationUnknown Orientation = iota
	OrientationIncoming
	OrientationOutgoing
	OrientationRightAngled
	OrientationOther
)

var orientationNames = []string{"unknown", "incoming", "outgoing", "rightAngled", "other"}

func (o Orientation) String() string {
	if o >= 0 && int(o) < len(orientationNames) {
		return orientationNames[o]
	}
	return fmt.Sprintf("Orientation(%d)", int(o))
}

// MarshalText implements encoding.TextMarshaler.
func (o Orientation) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Orientation) UnmarshalText(b []byte) error {
	return parseEnum(string(b), orientationNames, (*int)(o), "orientation")
}
