package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	rterrors "github.com/matzehuels/railtopo/pkg/errors"
	rtio "github.com/matzehuels/railtopo/pkg/io"
	"github.com/matzehuels/railtopo/pkg/observability"
	"github.com/matzehuels/railtopo/pkg/pipeline"
	"github.com/matzehuels/railtopo/pkg/railml"
	"github.com/matzehuels/railtopo/pkg/topo"
)

func testDoc() *railml.Document {
	t1 := railml.Track{
		ID:    "t1",
		Begin: railml.Terminal{ID: "t1b", Connection: railml.EndConnection{Kind: railml.EndBufferStop}},
		End:   railml.Terminal{ID: "t1e", Pos: railml.Position{Offset: 100}, Connection: railml.EndConnection{Kind: railml.EndBufferStop}},
		Switches: []railml.Switch{{
			ID:  "w1",
			Pos: railml.Position{Offset: 40},
			Connections: []railml.SwitchConnection{
				{ID: "w1d", Ref: "t2b", Orientation: railml.OrientationOutgoing, Course: railml.CourseRight},
			},
		}},
	}
	t1.Objects.Signals = []railml.Signal{{Item: railml.Item{ID: "s1", Pos: railml.Position{Offset: 70}}}}
	t2 := railml.Track{
		ID:    "t2",
		Begin: railml.Terminal{ID: "t2b", Connection: railml.Connect("t2b", "w1d")},
		End:   railml.Terminal{ID: "t2e", Pos: railml.Position{Offset: 30}, Connection: railml.EndConnection{Kind: railml.EndOpenEnd}},
	}
	return &railml.Document{Infrastructure: &railml.Infrastructure{Tracks: []railml.Track{t1, t2}}}
}

func newTestServer() *Server {
	runner := pipeline.NewRunner(nil, nil, log.NewWithOptions(&bytes.Buffer{}, log.Options{}))
	return New(runner, Options{})
}

func encodeDoc(t *testing.T, doc *railml.Document) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := rtio.WriteDocument(doc, &buf); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func post(s http.Handler, path, contentType string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s := newTestServer()
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body healthResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Status != "ok" || body.Build.Version == "" {
		t.Errorf("body = %v", body)
	}
}

func TestImportExportRoundTrip(t *testing.T) {
	s := newTestServer()

	rec := post(s, "/v1/import", "application/json", encodeDoc(t, testDoc()))
	if rec.Code != http.StatusOK {
		t.Fatalf("import status = %d: %s", rec.Code, rec.Body)
	}
	var imp importResponse
	if err := json.NewDecoder(rec.Body).Decode(&imp); err != nil {
		t.Fatal(err)
	}
	if imp.RunID == "" || imp.GraphHash == "" {
		t.Error("missing run id or graph hash")
	}
	if imp.Stats.Tracks != 2 || imp.Stats.Segments != 3 {
		t.Errorf("stats = %+v, want 2 tracks, 3 segments", imp.Stats)
	}
	if imp.Stats.Elements["signals"] != 1 {
		t.Errorf("elements = %v, want one signal", imp.Stats.Elements)
	}

	req, _ := json.Marshal(exportRequest{Graph: imp.Graph, Geometry: imp.Geometry, Provenance: imp.Provenance})
	rec = post(s, "/v1/export", "application/json", req)
	if rec.Code != http.StatusOK {
		t.Fatalf("export status = %d: %s", rec.Code, rec.Body)
	}
	var exp exportResponse
	if err := json.NewDecoder(rec.Body).Decode(&exp); err != nil {
		t.Fatal(err)
	}
	doc, err := rtio.ReadDocument(bytes.NewReader(exp.Document))
	if err != nil {
		t.Fatalf("decode exported document: %v", err)
	}
	if n := len(doc.Tracks()); n != 2 {
		t.Errorf("exported %d tracks, want 2", n)
	}
	ids := map[string]bool{}
	for _, tr := range doc.Tracks() {
		ids[tr.ID] = true
	}
	if !ids["t1"] || !ids["t2"] {
		t.Errorf("track ids = %v, want t1 and t2 restored from provenance", ids)
	}
}

func TestRenderDOT(t *testing.T) {
	s := newTestServer()
	g, err := topo.Convert(testDoc())
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := rtio.WriteGraph(g, &buf); err != nil {
		t.Fatal(err)
	}

	rec := post(s, "/v1/render?format=dot&detailed=true", "application/json", buf.Bytes())
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/vnd.graphviz") {
		t.Errorf("Content-Type = %q", ct)
	}
	if !strings.HasPrefix(rec.Body.String(), "graph G") {
		t.Errorf("body does not start with a DOT graph: %q", rec.Body.String())
	}
	if got := rec.Header().Get("X-Cache"); got != "MISS" {
		t.Errorf("X-Cache = %q, want MISS", got)
	}
}

func TestRequestErrors(t *testing.T) {
	s := newTestServer()
	tests := []struct {
		name     string
		path     string
		body     string
		wantCode int
		wantErr  rterrors.Code
	}{
		{"import malformed", "/v1/import", "{", http.StatusBadRequest, rterrors.ErrCodeInvalidFormat},
		{"import empty document", "/v1/import", "{}", http.StatusBadRequest, rterrors.ErrCodeInvalidInput},
		{"export missing geometry", "/v1/export", `{"graph":{}}`, http.StatusBadRequest, rterrors.ErrCodeInvalidInput},
		{"render bad format", "/v1/render?format=pdf", "{}", http.StatusBadRequest, rterrors.ErrCodeInvalidInput},
		{"render bad flag", "/v1/render?detailed=maybe", "{}", http.StatusBadRequest, rterrors.ErrCodeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := post(s, tt.path, "application/json", []byte(tt.body))
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantCode, rec.Body)
			}
			var body errorResponse
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatal(err)
			}
			if body.Code != string(tt.wantErr) {
				t.Errorf("code = %q, want %q", body.Code, tt.wantErr)
			}
		})
	}
}

func TestConversionErrorStatus(t *testing.T) {
	s := newTestServer()
	doc := testDoc()
	doc.Infrastructure.Tracks[1].Begin.Connection = railml.Connect("t2b", "nowhere")

	rec := post(s, "/v1/import", "application/json", encodeDoc(t, doc))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422: %s", rec.Code, rec.Body)
	}
	var body errorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Code == "" || len(body.Refs) == 0 {
		t.Errorf("error body = %+v, want code and refs", body)
	}
}

func TestBodyLimit(t *testing.T) {
	runner := pipeline.NewRunner(nil, nil, nil)
	s := New(runner, Options{MaxBodyBytes: 16})
	rec := post(s, "/v1/import", "application/json", encodeDoc(t, testDoc()))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", rec.Code)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{rterrors.Conversion(rterrors.ErrCodeSwitchCourseUnknown, "w1"), http.StatusUnprocessableEntity},
		{rterrors.Conversion(rterrors.ErrCodeInvalidGeometry, "3"), http.StatusBadRequest},
		{rterrors.New(rterrors.ErrCodeFileNotFound, "gone"), http.StatusNotFound},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{context.Canceled, http.StatusServiceUnavailable},
		{&http.MaxBytesError{Limit: 1}, http.StatusRequestEntityTooLarge},
		{rterrors.New(rterrors.ErrCodeInternal, "boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

type recordingHooks struct {
	observability.NoopHTTPHooks
	mu       sync.Mutex
	statuses []int
}

func (h *recordingHooks) OnResponse(_ context.Context, _, _ string, status int, _ time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.statuses = append(h.statuses, status)
}

func TestHTTPHooks(t *testing.T) {
	hooks := &recordingHooks{}
	observability.SetHTTPHooks(hooks)
	defer observability.Reset()

	s := newTestServer()
	s.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	s.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))

	hooks.mu.Lock()
	defer hooks.mu.Unlock()
	if len(hooks.statuses) != 2 || hooks.statuses[0] != http.StatusOK || hooks.statuses[1] != http.StatusNotFound {
		t.Errorf("statuses = %v, want [200 404]", hooks.statuses)
	}
}

func TestCORS(t *testing.T) {
	runner := pipeline.NewRunner(nil, nil, nil)
	s := New(runner, Options{AllowedOrigins: []string{"http://localhost:5173"}})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
}
