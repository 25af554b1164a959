// Package railml provides the track-centric infrastructure model that
// railtopo converts to and from port graphs.
//
// # Overview
//
// The model is a simplified rendition of a railML infrastructure document:
// a [Document] holds optional [Metadata] and an [Infrastructure] with ordered
// [Track] values. Each track has a begin and end [Terminal], an ordered list
// of [Switch] elements at offsets along the track, and positioned elements
// grouped into [Objects] (signals, detectors, ...) and [TrackElements]
// (platform edges, speed changes, ...).
//
// This package is data only. It does not read or write XML; the JSON
// rendition lives in [io], and the topology conversion in [topo].
//
// # Tagged Variants
//
// Terminal connections and switches are closed sum types expressed as a kind
// enum plus payload fields:
//
//	t.Connection = railml.EndConnection{Kind: railml.EndBufferStop}
//	t.Connection = railml.Connect("tr1c2", "tr2c1")
//
//	sw := railml.Switch{Kind: railml.SwitchKindCrossing, ID: "crs1", ...}
//
// # Positions
//
// Every positioned element exposes [Element.Loc], returning its [Position].
// Offsets are measured along the owning track; Mileage is the optional
// absolute chainage and GeoCoord an optional map coordinate.
//
// [Category] enumerates the element categories in a fixed order. Converters
// walk categories in that order whenever the order is observable (mileage
// inference, id synthesis).
//
// [io]: github.com/matzehuels/railtopo/pkg/io
// [topo]: github.com/matzehuels/railtopo/pkg/topo
package railml
