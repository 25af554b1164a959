// Package export turns a port graph back into an infrastructure document.
//
// The graph alone carries no geometry, so [Convert] takes one polyline per
// segment; segment ends meeting at the same point are treated as one
// location. [GridGeometry] produces such a layout for any graph, and
// [ReadGeometry] and [WriteGeometry] exchange it as GeoJSON.
//
// Identities that the forward conversion drops (track ids, element ids,
// mileages, metadata) survive a round trip through an optional
// [Provenance] table recorded with [RecordProvenance]. Without it, ids are
// synthesized from the track index and element category.
package export
