package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/paulmach/orb"

	"github.com/matzehuels/railtopo/pkg/errors"
	"github.com/matzehuels/railtopo/pkg/export"
)

// ReadProvenance decodes a provenance table written by [WriteProvenance].
func ReadProvenance(r io.Reader) (*export.Provenance, error) {
	var p export.Provenance
	if err := json.NewDecoder(r).Decode(&p); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode provenance")
	}
	return &p, nil
}

// WriteProvenance encodes p as indented JSON.
func WriteProvenance(p *export.Provenance, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(p); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ImportProvenance reads a provenance table from the file at path.
func ImportProvenance(path string) (*export.Provenance, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadProvenance(f)
}

// ExportProvenance writes p to a JSON file at path.
func ExportProvenance(p *export.Provenance, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return WriteProvenance(p, f)
}

// ImportGeometry reads GeoJSON segment geometry from the file at path.
func ImportGeometry(path string) ([]orb.LineString, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return export.ReadGeometry(f)
}

// ExportGeometry writes segment geometry as GeoJSON to the file at path.
func ExportGeometry(geometry []orb.LineString, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return export.WriteGeometry(f, geometry)
}
