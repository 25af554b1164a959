package pipeline

import (
	"bytes"
	"context"
	"time"

	"github.com/matzehuels/railtopo/pkg/cache"
	rtio "github.com/matzehuels/railtopo/pkg/io"
	"github.com/matzehuels/railtopo/pkg/observability"
	"github.com/matzehuels/railtopo/pkg/render/nodelink"
	"github.com/matzehuels/railtopo/pkg/topo"
)

// Render draws g as a node-link diagram and reports whether the artifact
// came from the cache.
func (r *Runner) Render(ctx context.Context, g *topo.Graph, opts RenderOptions) ([]byte, bool, error) {
	if opts.Format == "" {
		opts.Format = FormatSVG
	}
	if err := ValidateFormat(opts.Format); err != nil {
		return nil, false, err
	}

	var buf bytes.Buffer
	if err := rtio.WriteGraph(g, &buf); err != nil {
		return nil, false, err
	}
	key := r.Keyer.ArtifactKey(cache.Hash(buf.Bytes()), cache.ArtifactKeyOpts{Format: opts.Format, Detailed: opts.Detailed})
	if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
		observability.Cache().OnCacheHit(ctx, "artifact")
		return data, true, nil
	}
	observability.Cache().OnCacheMiss(ctx, "artifact")

	start := time.Now()
	observability.Pipeline().OnRenderStart(ctx, opts.Format)
	data, err := render(ctx, g, opts)
	observability.Pipeline().OnRenderComplete(ctx, opts.Format, time.Since(start), err)
	if err != nil {
		return nil, false, err
	}
	r.store(ctx, "artifact", key, data, cache.TTLArtifact)
	r.Logger.Debug("rendered diagram", "format", opts.Format, "bytes", len(data), "duration", time.Since(start))
	return data, false, nil
}

func render(ctx context.Context, g *topo.Graph, opts RenderOptions) ([]byte, error) {
	dot := nodelink.ToDOT(g, nodelink.Options{Detailed: opts.Detailed})
	if opts.Format == FormatDOT {
		return []byte(dot), nil
	}
	return nodelink.RenderSVG(ctx, dot)
}
