package topo

import (
	"testing"

	"github.com/matzehuels/railtopo/pkg/errors"
	"github.com/matzehuels/railtopo/pkg/railml"
)

func TestInterpretSwitch(t *testing.T) {
	out := railml.OrientationOutgoing
	conn := func(course railml.Course, radius *float64) railml.SwitchConnection {
		return railml.SwitchConnection{ID: "c", Ref: "r", Orientation: out, Course: course, Radius: radius}
	}

	tests := []struct {
		name      string
		sw        railml.Switch
		deviating Side
		geometry  Side
		dir       AB
		code      errors.Code
	}{
		{
			name:      "left",
			sw:        railml.Switch{ID: "s", Connections: []railml.SwitchConnection{conn(railml.CourseLeft, nil)}},
			deviating: SideLeft, geometry: SideLeft, dir: A,
		},
		{
			name:      "right",
			sw:        railml.Switch{ID: "s", Connections: []railml.SwitchConnection{conn(railml.CourseRight, nil)}},
			deviating: SideRight, geometry: SideRight, dir: A,
		},
		{
			name: "radius flips geometry",
			sw: railml.Switch{ID: "s", ContinueRadius: f64(300),
				Connections: []railml.SwitchConnection{conn(railml.CourseLeft, f64(500))}},
			deviating: SideLeft, geometry: SideRight, dir: A,
		},
		{
			name: "smaller radius keeps geometry",
			sw: railml.Switch{ID: "s", ContinueRadius: f64(300),
				Connections: []railml.SwitchConnection{conn(railml.CourseLeft, f64(190))}},
			deviating: SideLeft, geometry: SideLeft, dir: A,
		},
		{
			name: "radius without continuation radius",
			sw: railml.Switch{ID: "s",
				Connections: []railml.SwitchConnection{conn(railml.CourseRight, f64(1e9))}},
			deviating: SideRight, geometry: SideRight, dir: A,
		},
		{
			name: "continuation course fallback",
			sw: railml.Switch{ID: "s", ContinueCourse: railml.CourseLeft,
				Connections: []railml.SwitchConnection{conn(railml.CourseNone, nil)}},
			deviating: SideRight, geometry: SideRight, dir: A,
		},
		{
			name: "first sided rail wins",
			sw: railml.Switch{ID: "s", Connections: []railml.SwitchConnection{
				conn(railml.CourseStraight, nil),
				{ID: "d", Ref: "r2", Orientation: railml.OrientationIncoming, Course: railml.CourseRight},
				conn(railml.CourseLeft, nil),
			}},
			deviating: SideRight, geometry: SideRight, dir: B,
		},
		{
			name: "course unknown",
			sw:   railml.Switch{ID: "s", ContinueCourse: railml.CourseStraight, Connections: []railml.SwitchConnection{conn(railml.CourseStraight, nil)}},
			code: errors.ErrCodeSwitchCourseUnknown,
		},
		{
			name: "orientation invalid",
			sw: railml.Switch{ID: "s", Connections: []railml.SwitchConnection{
				{ID: "c", Ref: "r", Orientation: railml.OrientationRightAngled, Course: railml.CourseLeft}}},
			code: errors.ErrCodeSwitchOrientationInvalid,
		},
		{
			name: "switch without rails",
			sw:   railml.Switch{ID: "s"},
			code: errors.ErrCodeSwitchConnectionMissing,
		},
		{
			name: "crossing without rails",
			sw:   railml.Switch{ID: "s", Kind: railml.SwitchKindCrossing},
			code: errors.ErrCodeSwitchConnectionMissing,
		},
		{
			name: "crossing with two rails",
			sw: railml.Switch{ID: "s", Kind: railml.SwitchKindCrossing,
				Connections: []railml.SwitchConnection{conn(railml.CourseNone, nil), conn(railml.CourseNone, nil)}},
			code: errors.ErrCodeSwitchConnectionTooMany,
		},
		{
			name: "crossing",
			sw: railml.Switch{ID: "s", Kind: railml.SwitchKindCrossing,
				Connections: []railml.SwitchConnection{{ID: "c", Ref: "r", Orientation: railml.OrientationIncoming}}},
			deviating: SideLeft, geometry: SideLeft, dir: B,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := interpretSwitch(tt.sw)
			if tt.code != "" {
				if !errors.Is(err, tt.code) {
					t.Fatalf("error = %v, want %s", err, tt.code)
				}
				if refs := errors.GetRefs(err); len(refs) != 1 || refs[0] != "s" {
					t.Errorf("refs = %v, want [s]", refs)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if info.deviating != tt.deviating {
				t.Errorf("deviating = %v, want %v", info.deviating, tt.deviating)
			}
			if info.geometry != tt.geometry {
				t.Errorf("geometry = %v, want %v", info.geometry, tt.geometry)
			}
			if info.dir != tt.dir {
				t.Errorf("dir = %v, want %v", info.dir, tt.dir)
			}
		})
	}
}

func TestDeviatingPort(t *testing.T) {
	for _, course := range []railml.Course{railml.CourseLeft, railml.CourseRight} {
		sw := railml.Switch{ID: "s", Connections: []railml.SwitchConnection{
			{ID: "c", Ref: "r", Orientation: railml.OrientationOutgoing, Course: course}}}
		info, err := interpretSwitch(sw)
		if err != nil {
			t.Fatalf("interpretSwitch: %v", err)
		}
		want := Left
		if course == railml.CourseRight {
			want = Right
		}
		if got := info.deviating.Port(); got != want {
			t.Errorf("course %v: deviating port = %v, want %v", course, got, want)
		}
		if got := info.railPort(railml.SwitchConnection{}, false); got != want {
			t.Errorf("course %v: default rail port = %v, want %v", course, got, want)
		}
	}
}

func TestSplitPorts(t *testing.T) {
	tests := []struct {
		name             string
		info             switchInfo
		crossing         bool
		closing, opening Port
	}{
		{"switch A", switchInfo{deviating: SideLeft, dir: A}, false, Trunk, Right},
		{"switch B", switchInfo{deviating: SideLeft, dir: B}, false, Right, Trunk},
		{"crossing A", switchInfo{dir: A}, true, CrossingPort(A, 0), CrossingPort(B, 0)},
		{"crossing B", switchInfo{dir: B}, true, CrossingPort(B, 0), CrossingPort(A, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			closing, opening := tt.info.splitPorts(tt.crossing)
			if closing != tt.closing || opening != tt.opening {
				t.Errorf("splitPorts() = %v, %v, want %v, %v", closing, opening, tt.closing, tt.opening)
			}
		})
	}
}
