package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/railtopo/pkg/errors"
	"github.com/matzehuels/railtopo/pkg/railml"
)

// ReadDocument decodes an infrastructure document from r.
//
// Enumerations (end connection kinds, courses, orientations, switch kinds)
// are validated while decoding; a document without an infrastructure
// section is rejected.
func ReadDocument(r io.Reader) (*railml.Document, error) {
	var doc railml.Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode document")
	}
	if doc.Infrastructure == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "document has no infrastructure")
	}
	return &doc, nil
}

// WriteDocument encodes doc as indented JSON.
func WriteDocument(doc *railml.Document, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ImportDocument reads a document from the file at path.
func ImportDocument(path string) (*railml.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadDocument(f)
}

// ExportDocument writes doc to a JSON file at path.
func ExportDocument(doc *railml.Document, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return WriteDocument(doc, f)
}
