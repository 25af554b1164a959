// Package pkg provides the core libraries for railtopo.
//
// # Overview
//
// railtopo converts between two representations of railway track layouts:
// a track-centric infrastructure document (tracks with positioned switches,
// crossings and elements) and a port graph (segments between nodes with
// named ports). The reverse direction rebuilds a document from a graph and
// a schematic geometry.
//
// # Architecture
//
//	infrastructure document
//	         ↓
//	    [topo] package (segment tracks, resolve references, build graph)
//	         ↓
//	    [export] package (schematic geometry, provenance)
//	         ↓
//	    [export] package (graph + geometry -> document)
//
// # Main Packages
//
// [railml] - The document model: tracks, terminals, switches and the
// positioned element categories.
//
// [topo] - The port graph and the forward conversion. Conversion failures
// are reported with the codes in [errors].
//
// [export] - The reverse conversion, grid geometry and the provenance table
// that restores source identifiers after a round trip.
//
// [io] - JSON and GeoJSON encodings for documents, graphs, geometry and
// provenance.
//
// [render/nodelink] - Graphviz node-link diagrams of a port graph.
//
// [pipeline] - Cached import, export and render runs used by the CLI and the
// HTTP server.
//
// [cache] - File, Redis and null cache backends with a pluggable key scheme.
//
// [observability] - Hooks for metrics and tracing.
//
// [railml]: https://pkg.go.dev/github.com/matzehuels/railtopo/pkg/railml
// [topo]: https://pkg.go.dev/github.com/matzehuels/railtopo/pkg/topo
// [export]: https://pkg.go.dev/github.com/matzehuels/railtopo/pkg/export
// [io]: https://pkg.go.dev/github.com/matzehuels/railtopo/pkg/io
// [errors]: https://pkg.go.dev/github.com/matzehuels/railtopo/pkg/errors
// [render/nodelink]: https://pkg.go.dev/github.com/matzehuels/railtopo/pkg/render/nodelink
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/railtopo/pkg/pipeline
// [cache]: https://pkg.go.dev/github.com/matzehuels/railtopo/pkg/cache
// [observability]: https://pkg.go.dev/github.com/matzehuels/railtopo/pkg/observability
package pkg
