package export

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/paulmach/orb"

	"github.com/matzehuels/railtopo/pkg/railml"
	"github.com/matzehuels/railtopo/pkg/topo"
)

// Provenance recovers source identities across a round trip through the
// port graph. It is keyed by the polyline [Signature] of each segment, so
// any geometric edit silently falls back to synthesized ids.
type Provenance struct {
	Metadata    *railml.Metadata    `json:"metadata,omitempty"`
	TrackGroups []railml.TrackGroup `json:"trackGroups,omitempty"`
	OCPs        []railml.OCP        `json:"ocps,omitempty"`
	States      []railml.State      `json:"states,omitempty"`
	Records     map[string]Record   `json:"records"`
}

// Record describes the source of one segment.
type Record struct {
	TrackID   string `json:"trackId"`
	SegmentID string `json:"segmentId"`
	Sequence  int    `json:"sequence"`
	Segments  int    `json:"segments"` // number of segments of the source track

	Code        string `json:"code,omitempty"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	Type        string `json:"type,omitempty"`
	MainDir     string `json:"mainDir,omitempty"`
	BeginID     string `json:"beginId,omitempty"`
	EndID       string `json:"endId,omitempty"`

	// Begin and End are the absolute mileages of the segment ends, when known.
	Begin *float64 `json:"begin,omitempty"`
	End   *float64 `json:"end,omitempty"`

	// Elements lists element ids per category in segment order.
	Elements map[railml.Category][]string `json:"elements,omitempty"`
}

// Signature returns an orientation-free key for a polyline: its pieces,
// each normalized to start at the smaller point, sorted and concatenated.
func Signature(ls orb.LineString) string {
	type piece struct{ a, b orb.Point }
	pieces := make([]piece, 0, len(ls))
	for i := 1; i < len(ls); i++ {
		a, b := ls[i-1], ls[i]
		if comparePoints(b, a) < 0 {
			a, b = b, a
		}
		pieces = append(pieces, piece{a, b})
	}
	slices.SortFunc(pieces, func(p, q piece) int {
		if c := comparePoints(p.a, q.a); c != 0 {
			return c
		}
		return comparePoints(p.b, q.b)
	})

	var sb strings.Builder
	for _, p := range pieces {
		fmt.Fprintf(&sb, "%g:%g:%g:%g,", p.a[0], p.a[1], p.b[0], p.b[1])
	}
	return sb.String()
}

func comparePoints(p, q orb.Point) int {
	if c := cmp.Compare(p[0], q[0]); c != 0 {
		return c
	}
	return cmp.Compare(p[1], q[1])
}

// RecordProvenance builds the provenance table for a graph produced by
// topo.Convert from doc, laid out with geometry.
func RecordProvenance(doc *railml.Document, g *topo.Graph, geometry []orb.LineString) (*Provenance, error) {
	if err := checkGeometry(g, geometry); err != nil {
		return nil, err
	}

	p := &Provenance{Records: make(map[string]Record, len(g.Segments))}
	if doc.Metadata != nil {
		md := *doc.Metadata
		p.Metadata = &md
	}
	if inf := doc.Infrastructure; inf != nil {
		p.TrackGroups = slices.Clone(inf.TrackGroups)
		p.OCPs = slices.Clone(inf.OCPs)
		p.States = slices.Clone(inf.States)
	}

	tracks := make(map[string]*railml.Track)
	all := doc.Tracks()
	for i := range all {
		tracks[all[i].ID] = &all[i]
	}
	counts := make(map[string]int)
	for _, s := range g.Segments {
		counts[s.Track]++
	}

	for i := range g.Segments {
		s := &g.Segments[i]
		rec := Record{
			TrackID:   s.Track,
			SegmentID: s.Track,
			Sequence:  s.Sequence,
			Segments:  counts[s.Track],
			Elements:  make(map[railml.Category][]string),
		}
		if rec.Segments > 1 {
			rec.SegmentID = fmt.Sprintf("%s-%d", s.Track, s.Sequence)
		}
		if t, ok := tracks[s.Track]; ok {
			rec.Code, rec.Name, rec.Description = t.Code, t.Name, t.Description
			rec.Type, rec.MainDir = t.Type, t.MainDir
			rec.BeginID, rec.EndID = t.Begin.ID, t.End.ID
		}
		if s.MileageKnown {
			begin, end := s.Offset, s.Offset+s.Length
			rec.Begin, rec.End = &begin, &end
		}
		railml.Each(&s.Objects, &s.Elements, func(c railml.Category, el railml.Element) bool {
			rec.Elements[c] = append(rec.Elements[c], el.Base().ID)
			return true
		})
		p.Records[Signature(geometry[i])] = rec
	}
	return p, nil
}

func (p *Provenance) lookup(ls orb.LineString) (Record, bool) {
	if p == nil {
		return Record{}, false
	}
	r, ok := p.Records[Signature(ls)]
	return r, ok
}
