package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/railtopo/pkg/buildinfo"
	"github.com/matzehuels/railtopo/pkg/cache"
	"github.com/matzehuels/railtopo/pkg/errors"
	"github.com/matzehuels/railtopo/pkg/export"
	rtio "github.com/matzehuels/railtopo/pkg/io"
	"github.com/matzehuels/railtopo/pkg/observability"
	"github.com/matzehuels/railtopo/pkg/railml"
	"github.com/matzehuels/railtopo/pkg/topo"
)

// Runner executes conversions with caching.
//
// A Runner holds no per-run state; one Runner may serve concurrent
// requests.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
	// TTL overrides the per-kind cache lifetimes when positive.
	TTL time.Duration
}

// NewRunner creates a runner. A nil cache disables caching, a nil keyer
// selects [cache.DefaultKeyer] and a nil logger the default logger.
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Cache: c, Keyer: keyer, Logger: logger}
}

type converted struct {
	g   *topo.Graph
	err error
}

// Import converts doc into a port graph, lays it out schematically and
// records provenance for a later [Runner.Export].
//
// The conversion runs in its own goroutine on a private copy of doc and
// delivers its result once. Cancelling ctx abandons the wait, not the
// conversion; doc is free to change as soon as Import returns.
func (r *Runner) Import(ctx context.Context, doc *railml.Document) (*ImportResult, error) {
	if doc == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "no document")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res := &ImportResult{RunID: uuid.NewString()}
	logger := r.Logger.With("run", res.RunID)
	start := time.Now()

	docData, err := json.Marshal(doc)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "encode document")
	}
	key := r.Keyer.GraphKey(cache.Hash(docData), cache.GraphKeyOpts{Version: buildinfo.Version})

	g := r.cachedGraph(ctx, key)
	if g != nil {
		res.CacheHit = true
	} else {
		var work railml.Document
		if err := json.Unmarshal(docData, &work); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "copy document")
		}
		observability.Pipeline().OnImportStart(ctx, len(doc.Tracks()))
		done := make(chan converted, 1)
		go func() {
			g, err := topo.Convert(&work, topo.WithLogger(logger))
			done <- converted{g, err}
		}()

		var out converted
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case out = <-done:
		}
		if out.err != nil {
			observability.Pipeline().OnImportComplete(ctx, 0, 0, time.Since(start), out.err)
			return nil, out.err
		}
		g = out.g
		observability.Pipeline().OnImportComplete(ctx, len(g.Segments), len(g.Nodes), time.Since(start), nil)
	}
	res.Graph = g

	var buf bytes.Buffer
	if err := rtio.WriteGraph(g, &buf); err != nil {
		return nil, err
	}
	res.GraphHash = cache.Hash(buf.Bytes())
	if !res.CacheHit {
		r.store(ctx, "graph", key, buf.Bytes(), cache.TTLGraph)
	}

	res.Geometry = export.GridGeometry(g)
	if res.Provenance, err = export.RecordProvenance(doc, g, res.Geometry); err != nil {
		return nil, err
	}

	res.Stats = graphStats(g)
	res.Stats.Tracks = len(doc.Tracks())
	res.Stats.Duration = time.Since(start)
	logger.Info("imported topology",
		"tracks", res.Stats.Tracks,
		"segments", res.Stats.Segments,
		"nodes", res.Stats.Nodes,
		"cached", res.CacheHit,
		"duration", res.Stats.Duration)
	return res, nil
}

func (r *Runner) cachedGraph(ctx context.Context, key string) *topo.Graph {
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil || !hit {
		observability.Cache().OnCacheMiss(ctx, "graph")
		return nil
	}
	g, err := rtio.ReadGraph(bytes.NewReader(data))
	if err != nil {
		r.Logger.Debug("discarding unreadable cache entry", "key", key, "err", err)
		observability.Cache().OnCacheMiss(ctx, "graph")
		return nil
	}
	observability.Cache().OnCacheHit(ctx, "graph")
	return g
}

func (r *Runner) store(ctx context.Context, keyType, key string, data []byte, ttl time.Duration) {
	if r.TTL > 0 {
		ttl = r.TTL
	}
	if err := r.Cache.Set(ctx, key, data, ttl); err != nil {
		r.Logger.Warn("cache write failed", "type", keyType, "err", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, keyType, len(data))
}

// Export rebuilds a document from a graph and its geometry.
func (r *Runner) Export(ctx context.Context, in ExportInput) (*ExportResult, error) {
	if in.Graph == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "no graph")
	}
	res := &ExportResult{RunID: uuid.NewString()}
	logger := r.Logger.With("run", res.RunID)
	start := time.Now()

	key, err := r.documentKey(in)
	if err != nil {
		return nil, err
	}
	if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
		if doc, err := rtio.ReadDocument(bytes.NewReader(data)); err == nil {
			observability.Cache().OnCacheHit(ctx, "document")
			res.Document, res.CacheHit = doc, true
		}
	}

	if res.Document == nil {
		observability.Cache().OnCacheMiss(ctx, "document")
		observability.Pipeline().OnExportStart(ctx, len(in.Graph.Segments))
		doc, err := export.Convert(export.Input{Graph: in.Graph, Geometry: in.Geometry, Provenance: in.Provenance})
		if err != nil {
			observability.Pipeline().OnExportComplete(ctx, 0, time.Since(start), err)
			return nil, err
		}
		observability.Pipeline().OnExportComplete(ctx, len(doc.Tracks()), time.Since(start), nil)
		res.Document = doc

		var buf bytes.Buffer
		if err := rtio.WriteDocument(doc, &buf); err == nil {
			r.store(ctx, "document", key, buf.Bytes(), cache.TTLDocument)
		}
	}

	res.Stats = documentStats(res.Document)
	res.Stats.Segments = len(in.Graph.Segments)
	res.Stats.Duration = time.Since(start)
	logger.Info("exported document",
		"tracks", res.Stats.Tracks,
		"segments", res.Stats.Segments,
		"cached", res.CacheHit,
		"duration", res.Stats.Duration)
	return res, nil
}

func (r *Runner) documentKey(in ExportInput) (string, error) {
	var graph bytes.Buffer
	if err := rtio.WriteGraph(in.Graph, &graph); err != nil {
		return "", err
	}
	var geometry bytes.Buffer
	if err := export.WriteGeometry(&geometry, in.Geometry); err != nil {
		return "", err
	}
	opts := cache.DocumentKeyOpts{
		GeometryHash: cache.Hash(geometry.Bytes()),
		Version:      buildinfo.Version,
	}
	if in.Provenance != nil {
		var prov bytes.Buffer
		if err := rtio.WriteProvenance(in.Provenance, &prov); err != nil {
			return "", err
		}
		opts.ProvenanceHash = cache.Hash(prov.Bytes())
	}
	return r.Keyer.DocumentKey(cache.Hash(graph.Bytes()), opts), nil
}

// RoundTrip imports doc, exports the result with its own geometry and
// provenance, and compares element counts.
func (r *Runner) RoundTrip(ctx context.Context, doc *railml.Document) (*RoundTripResult, error) {
	imp, err := r.Import(ctx, doc)
	if err != nil {
		return nil, err
	}
	exp, err := r.Export(ctx, ExportInput{Graph: imp.Graph, Geometry: imp.Geometry, Provenance: imp.Provenance})
	if err != nil {
		return nil, err
	}
	res := &RoundTripResult{
		Import: imp,
		Export: exp,
		Before: documentStats(doc).Elements,
		After:  exp.Stats.Elements,
	}
	if !res.Matches() {
		r.Logger.Warn("round trip changed the document",
			"tracks_before", imp.Stats.Tracks,
			"tracks_after", exp.Stats.Tracks)
	}
	return res, nil
}

// Close releases the cache.
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}
