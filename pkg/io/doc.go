// Package io provides JSON import and export for infrastructure documents,
// port graphs and the side files of the reverse conversion.
//
// # Documents
//
// [ReadDocument] and [WriteDocument] use the JSON rendition of
// [railml.Document]: tracks with begin and end terminals, switches and the
// per-category element lists. Enumerations are written as strings:
//
//	{
//	  "infrastructure": {
//	    "tracks": [{
//	      "id": "t1",
//	      "begin": {"id": "t1b", "pos": {"offset": 0}, "connection": {"kind": "bufferStop"}},
//	      "end": {"id": "t1e", "pos": {"offset": 100}, "connection": {"kind": "connection", "id": "t1e", "ref": "t2b"}},
//	      "switches": [],
//	      "objects": {"signals": [{"id": "s1", "pos": {"offset": 10}}]},
//	      "trackElements": {}
//	    }]
//	  }
//	}
//
// # Graphs
//
// [ReadGraph] and [WriteGraph] store a [topo.Graph] as three arrays.
// Segments and nodes are addressed by position; connections name a segment
// side ("A" or "B") and a port ("trunk", "left", "right", "single",
// "contA", "contB" or "crossing:<end>:<rail>"):
//
//	{
//	  "segments": [{"track": "t1", "sequence": 0, "offset": 0, "length": 100}],
//	  "nodes": [{"kind": "bufferStop"}, {"kind": "openEnd"}],
//	  "connections": [
//	    {"segment": 0, "side": "A", "node": 0, "port": "single"},
//	    {"segment": 0, "side": "B", "node": 1, "port": "single"}
//	  ]
//	}
//
// # Side files
//
// The reverse conversion also reads a [export.Provenance] table
// ([ReadProvenance]) and segment geometry as GeoJSON ([ImportGeometry]).
//
// Decoding failures are reported as *errors.Error with code INVALID_FORMAT;
// file system failures are wrapped with the path for context.
package io
