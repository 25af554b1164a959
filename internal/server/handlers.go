package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/matzehuels/railtopo/pkg/buildinfo"
	rterrors "github.com/matzehuels/railtopo/pkg/errors"
	"github.com/matzehuels/railtopo/pkg/export"
	rtio "github.com/matzehuels/railtopo/pkg/io"
	"github.com/matzehuels/railtopo/pkg/pipeline"
)

type statsBody struct {
	Tracks      int            `json:"tracks"`
	Segments    int            `json:"segments"`
	Nodes       int            `json:"nodes,omitempty"`
	Connections int            `json:"connections,omitempty"`
	Elements    map[string]int `json:"elements,omitempty"`
	DurationMS  int64          `json:"duration_ms"`
}

type importResponse struct {
	RunID      string          `json:"run_id"`
	Graph      json.RawMessage `json:"graph"`
	GraphHash  string          `json:"graph_hash"`
	Geometry   json.RawMessage `json:"geometry"`
	Provenance json.RawMessage `json:"provenance"`
	Stats      statsBody       `json:"stats"`
	Cached     bool            `json:"cached"`
}

type exportRequest struct {
	Graph      json.RawMessage `json:"graph"`
	Geometry   json.RawMessage `json:"geometry"`
	Provenance json.RawMessage `json:"provenance,omitempty"`
}

type exportResponse struct {
	RunID    string          `json:"run_id"`
	Document json.RawMessage `json:"document"`
	Stats    statsBody       `json:"stats"`
	Cached   bool            `json:"cached"`
}

type healthResponse struct {
	Status string         `json:"status"`
	Build  buildinfo.Info `json:"build"`
}

type errorResponse struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Refs    []string `json:"refs,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Build: buildinfo.Get()})
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	doc, err := rtio.ReadDocument(r.Body)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.conv.Import(r.Context(), doc)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	out := importResponse{
		RunID:     res.RunID,
		GraphHash: res.GraphHash,
		Stats:     toStats(res.Stats),
		Cached:    res.CacheHit,
	}
	if out.Graph, err = raw(func(w io.Writer) error { return rtio.WriteGraph(res.Graph, w) }); err == nil {
		if out.Geometry, err = raw(func(w io.Writer) error { return export.WriteGeometry(w, res.Geometry) }); err == nil {
			out.Provenance, err = raw(func(w io.Writer) error { return rtio.WriteProvenance(res.Provenance, w) })
		}
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, bodyError(err))
		return
	}
	if len(req.Graph) == 0 || len(req.Geometry) == 0 {
		s.writeError(w, r, rterrors.New(rterrors.ErrCodeInvalidInput, "graph and geometry are required"))
		return
	}

	var in pipeline.ExportInput
	var err error
	if in.Graph, err = rtio.ReadGraph(bytes.NewReader(req.Graph)); err != nil {
		s.writeError(w, r, err)
		return
	}
	if in.Geometry, err = export.ReadGeometry(bytes.NewReader(req.Geometry)); err != nil {
		s.writeError(w, r, err)
		return
	}
	if len(req.Provenance) > 0 && !bytes.Equal(req.Provenance, []byte("null")) {
		if in.Provenance, err = rtio.ReadProvenance(bytes.NewReader(req.Provenance)); err != nil {
			s.writeError(w, r, err)
			return
		}
	}

	res, err := s.conv.Export(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	doc, err := raw(func(w io.Writer) error { return rtio.WriteDocument(res.Document, w) })
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, exportResponse{
		RunID:    res.RunID,
		Document: doc,
		Stats:    toStats(res.Stats),
		Cached:   res.CacheHit,
	})
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := pipeline.RenderOptions{Format: q.Get("format")}
	if opts.Format == "" {
		opts.Format = pipeline.FormatSVG
	}
	if err := pipeline.ValidateFormat(opts.Format); err != nil {
		s.writeError(w, r, rterrors.Wrap(rterrors.ErrCodeInvalidInput, err, "%s", err.Error()))
		return
	}
	if v := q.Get("detailed"); v != "" {
		detailed, err := strconv.ParseBool(v)
		if err != nil {
			s.writeError(w, r, rterrors.New(rterrors.ErrCodeInvalidInput, "invalid detailed flag %q", v))
			return
		}
		opts.Detailed = detailed
	}

	g, err := rtio.ReadGraph(r.Body)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	data, cached, err := s.conv.Render(r.Context(), g, opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	contentType := "image/svg+xml"
	if opts.Format == pipeline.FormatDOT {
		contentType = "text/vnd.graphviz; charset=utf-8"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("X-Cache", cacheHeader(cached))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	code := string(rterrors.GetCode(err))
	if code == "" {
		code = http.StatusText(status)
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "err", err)
	} else {
		s.logger.Debug("request rejected", "path", r.URL.Path, "code", code, "err", err)
	}
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: rterrors.UserMessage(err),
		Refs:    rterrors.GetRefs(err),
	})
}

// statusFor maps an error to an HTTP status.
func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	}

	switch rterrors.GetCode(err) {
	case rterrors.ErrCodeInvalidInput, rterrors.ErrCodeInvalidFormat, rterrors.ErrCodeInvalidGeometry:
		return http.StatusBadRequest
	case rterrors.ErrCodeSwitchConnectionMissing,
		rterrors.ErrCodeSwitchConnectionTooMany,
		rterrors.ErrCodeSwitchCourseUnknown,
		rterrors.ErrCodeSwitchOrientationInvalid,
		rterrors.ErrCodeUnmatchedConnection,
		rterrors.ErrCodeTrackContinuationMismatch,
		rterrors.ErrCodeDuplicateReference,
		rterrors.ErrCodeTrackEndpointMissing,
		rterrors.ErrCodeTrackEndpointDuplicate:
		return http.StatusUnprocessableEntity
	case rterrors.ErrCodeNotFound, rterrors.ErrCodeFileNotFound:
		return http.StatusNotFound
	case rterrors.ErrCodeUnsupported:
		return http.StatusNotImplemented
	}
	return http.StatusInternalServerError
}

func bodyError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return err
	}
	return rterrors.Wrap(rterrors.ErrCodeInvalidFormat, err, "decode request: %v", err)
}

func toStats(s pipeline.Stats) statsBody {
	out := statsBody{
		Tracks:      s.Tracks,
		Segments:    s.Segments,
		Nodes:       s.Nodes,
		Connections: s.Connections,
		DurationMS:  s.Duration.Milliseconds(),
	}
	if len(s.Elements) > 0 {
		out.Elements = make(map[string]int, len(s.Elements))
		for c, n := range s.Elements {
			if n > 0 {
				out.Elements[c.String()] = n
			}
		}
	}
	return out
}

func raw(write func(io.Writer) error) (json.RawMessage, error) {
	var buf bytes.Buffer
	if err := write(&buf); err != nil {
		return nil, err
	}
	return bytes.TrimSpace(buf.Bytes()), nil
}

func cacheHeader(hit bool) string {
	if hit {
		return "HIT"
	}
	return "MISS"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
