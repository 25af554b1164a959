package topo

import (
	"math"

	"github.com/matzehuels/railtopo/pkg/errors"
	"github.com/matzehuels/railtopo/pkg/railml"
)

// switchInfo is the interpretation of a switch or crossing needed to split
// its host track.
type switchInfo struct {
	// ref is the connection whose orientation and radius decide direction
	// and geometry.
	ref       railml.SwitchConnection
	deviating Side
	geometry  Side
	// dir is the host segment side that meets the trunk (A for an outgoing
	// reference connection).
	dir AB
}

func interpretSwitch(sw railml.Switch) (switchInfo, error) {
	if sw.IsCrossing() {
		switch len(sw.Connections) {
		case 0:
			return switchInfo{}, errors.Conversion(errors.ErrCodeSwitchConnectionMissing, sw.ID)
		case 1:
		default:
			return switchInfo{}, errors.Conversion(errors.ErrCodeSwitchConnectionTooMany, sw.ID)
		}
		ref := sw.Connections[0]
		dir, err := direction(sw.ID, ref)
		if err != nil {
			return switchInfo{}, err
		}
		// Crossings have no meaningful sides.
		return switchInfo{ref: ref, deviating: SideLeft, geometry: SideLeft, dir: dir}, nil
	}

	if len(sw.Connections) == 0 {
		return switchInfo{}, errors.Conversion(errors.ErrCodeSwitchConnectionMissing, sw.ID)
	}

	// Documents may list the trunk rail too; the first rail with a side wins.
	ref := sw.Connections[0]
	course := sw.ContinueCourse.Opposite()
	for _, c := range sw.Connections {
		if c.Course.IsSide() {
			ref, course = c, c.Course
			break
		}
	}
	if !course.IsSide() {
		return switchInfo{}, errors.Conversion(errors.ErrCodeSwitchCourseUnknown, sw.ID)
	}

	deviating := sideOf(course)
	geometry := deviating
	if radiusOr(ref.Radius, 0) > radiusOr(sw.ContinueRadius, math.Inf(1)) {
		geometry = deviating.Opposite()
	}

	dir, err := direction(sw.ID, ref)
	if err != nil {
		return switchInfo{}, err
	}
	return switchInfo{ref: ref, deviating: deviating, geometry: geometry, dir: dir}, nil
}

func direction(id string, c railml.SwitchConnection) (AB, error) {
	switch c.Orientation {
	case railml.OrientationOutgoing:
		return A, nil
	case railml.OrientationIncoming:
		return B, nil
	}
	return A, errors.Conversion(errors.ErrCodeSwitchOrientationInvalid, id)
}

func sideOf(c railml.Course) Side {
	if c == railml.CourseRight {
		return SideRight
	}
	return SideLeft
}

func radiusOr(r *float64, def float64) float64 {
	if r == nil {
		return def
	}
	return *r
}

// splitPorts returns the ports facing the closing segment and the new
// segment when sw splits its host track.
func (info switchInfo) splitPorts(crossing bool) (closing, opening Port) {
	if crossing {
		closing, opening = CrossingPort(A, 0), CrossingPort(B, 0)
	} else {
		closing, opening = Trunk, info.deviating.Opposite().Port()
	}
	if info.dir == B {
		closing, opening = opening, closing
	}
	return closing, opening
}

// railPort returns the port a rail connection of the switch attaches to.
func (info switchInfo) railPort(c railml.SwitchConnection, crossing bool) Port {
	if crossing {
		return CrossingPort(info.dir.Opposite(), 1)
	}
	switch c.Course {
	case railml.CourseStraight:
		return Trunk
	case railml.CourseLeft:
		return Left
	case railml.CourseRight:
		return Right
	}
	return info.deviating.Port()
}

func switchNode(sw railml.Switch, info switchInfo) Node {
	if sw.IsCrossing() {
		return Node{Kind: NodeCrossing}
	}
	return Node{Kind: NodeSwitch, Side: info.geometry}
}
