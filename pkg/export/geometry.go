package export

import (
	"io"
	"strconv"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/matzehuels/railtopo/pkg/errors"
	"github.com/matzehuels/railtopo/pkg/topo"
)

// segmentProperty is the GeoJSON feature property holding the segment index.
const segmentProperty = "segment"

// GridGeometry lays out g schematically: node i sits at (i, 0) and every
// segment bends through its own row, so no two segments share a polyline.
func GridGeometry(g *topo.Graph) []orb.LineString {
	ends := g.EndpointMap()
	place := func(e topo.End) orb.Point {
		if np, ok := ends[e]; ok {
			return orb.Point{float64(np.Node), 0}
		}
		// Unattached ends get a private spot below the row of nodes.
		return orb.Point{-float64(2*e.Segment + int(e.Side) + 1), -1}
	}

	out := make([]orb.LineString, len(g.Segments))
	for i := range g.Segments {
		a := place(topo.End{Segment: i, Side: topo.A})
		b := place(topo.End{Segment: i, Side: topo.B})
		mid := orb.Point{(a[0] + b[0]) / 2, float64(i + 1)}
		out[i] = orb.LineString{a, mid, b}
	}
	return out
}

// WriteGeometry encodes segment polylines as a GeoJSON feature collection.
func WriteGeometry(w io.Writer, geometry []orb.LineString) error {
	fc := geojson.NewFeatureCollection()
	for i, ls := range geometry {
		f := geojson.NewFeature(ls)
		f.Properties[segmentProperty] = i
		fc.Append(f)
	}
	data, err := fc.MarshalJSON()
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encode geometry")
	}
	_, err = w.Write(data)
	return err
}

// ReadGeometry decodes a feature collection written by [WriteGeometry].
// Features may appear in any order but every segment index must occur once.
func ReadGeometry(r io.Reader) ([]orb.LineString, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode geometry")
	}

	out := make([]orb.LineString, len(fc.Features))
	seen := make([]bool, len(fc.Features))
	for n, f := range fc.Features {
		v, ok := f.Properties[segmentProperty].(float64)
		i := int(v)
		if !ok || float64(i) != v || i < 0 || i >= len(out) || seen[i] {
			return nil, errors.Conversion(errors.ErrCodeInvalidGeometry, strconv.Itoa(n))
		}
		ls, ok := f.Geometry.(orb.LineString)
		if !ok {
			return nil, errors.Conversion(errors.ErrCodeInvalidGeometry, strconv.Itoa(i))
		}
		out[i], seen[i] = ls, true
	}
	return out, nil
}
