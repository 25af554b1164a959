package topo_test

import (
	"fmt"

	"github.com/matzehuels/railtopo/pkg/railml"
	"github.com/matzehuels/railtopo/pkg/topo"
)

// A 100 m main line with a left-hand switch at 40 m branching into a 30 m
// siding. The main line is split at the switch.
func ExampleConvert() {
	main := railml.Track{
		ID:    "main",
		Begin: railml.Terminal{ID: "main_b", Connection: railml.EndConnection{Kind: railml.EndBufferStop}},
		End: railml.Terminal{
			ID:         "main_e",
			Pos:        railml.Position{Offset: 100},
			Connection: railml.EndConnection{Kind: railml.EndBufferStop},
		},
		Switches: []railml.Switch{{
			ID:  "w1",
			Pos: railml.Position{Offset: 40},
			Connections: []railml.SwitchConnection{{
				ID: "w1_l", Ref: "siding_b",
				Orientation: railml.OrientationOutgoing, Course: railml.CourseLeft,
			}},
		}},
	}
	siding := railml.Track{
		ID:    "siding",
		Begin: railml.Terminal{ID: "siding_b", Connection: railml.Connect("siding_b", "w1_l")},
		End: railml.Terminal{
			ID:         "siding_e",
			Pos:        railml.Position{Offset: 30},
			Connection: railml.EndConnection{Kind: railml.EndBufferStop},
		},
	}

	g, err := topo.Convert(&railml.Document{
		Infrastructure: &railml.Infrastructure{Tracks: []railml.Track{main, siding}},
	})
	if err != nil {
		fmt.Println(err)
		return
	}

	for _, s := range g.Segments {
		fmt.Printf("%s/%d at %g, length %g\n", s.Track, s.Sequence, s.Offset, s.Length)
	}
	for _, n := range g.Nodes {
		fmt.Println(n.Kind)
	}
	// Output:
	// main/0 at 0, length 40
	// main/1 at 40, length 60
	// siding/0 at 0, length 30
	// bufferStop
	// switch
	// bufferStop
	// bufferStop
}
