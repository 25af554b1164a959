package observability

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	p := NoopPipelineHooks{}
	p.OnImportStart(ctx, 7)
	p.OnImportComplete(ctx, 10, 12, time.Second, nil)
	p.OnExportStart(ctx, 10)
	p.OnExportComplete(ctx, 7, time.Second, nil)
	p.OnRenderStart(ctx, "svg")
	p.OnRenderComplete(ctx, "svg", time.Second, nil)

	c := NoopCacheHooks{}
	c.OnCacheHit(ctx, "graph")
	c.OnCacheMiss(ctx, "document")
	c.OnCacheSet(ctx, "artifact", 1024)

	h := NoopHTTPHooks{}
	h.OnRequest(ctx, "POST", "/v1/import")
	h.OnResponse(ctx, "POST", "/v1/import", 200, time.Second)
}

type recordingCache struct {
	NoopCacheHooks
	mu   sync.Mutex
	hits []string
}

func (r *recordingCache) OnCacheHit(_ context.Context, keyType string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hits = append(r.hits, keyType)
}

func TestGlobalHooksRegistry(t *testing.T) {
	Reset()
	defer Reset()

	if _, ok := Pipeline().(NoopPipelineHooks); !ok {
		t.Error("Pipeline() should default to NoopPipelineHooks")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should default to NoopCacheHooks")
	}
	if _, ok := HTTP().(NoopHTTPHooks); !ok {
		t.Error("HTTP() should default to NoopHTTPHooks")
	}

	rec := &recordingCache{}
	SetCacheHooks(rec)
	Cache().OnCacheHit(context.Background(), "graph")
	if len(rec.hits) != 1 || rec.hits[0] != "graph" {
		t.Errorf("hits = %v, want [graph]", rec.hits)
	}

	SetCacheHooks(nil)
	if Cache() != rec {
		t.Error("SetCacheHooks(nil) replaced registered hooks")
	}

	Reset()
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Reset() did not restore defaults")
	}
}

func TestConcurrentAccess(t *testing.T) {
	Reset()
	defer Reset()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			SetPipelineHooks(NoopPipelineHooks{})
		}()
		go func() {
			defer wg.Done()
			Pipeline().OnImportStart(context.Background(), 1)
		}()
	}
	wg.Wait()
}
