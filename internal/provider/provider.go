// Package provider holds the live schema index shared by the language server
// and the HTTP API. It caches per-document analyses and swaps the index
// wholesale when the schema changes.
package provider

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/grr-sub002/pkg/assist"
	"github.com/google/grr-sub002/pkg/schema"
)

// Options configures the assistants a Provider builds.
type Options struct {
	Platform schema.Platform
	Limit    int
	Logger   *slog.Logger
}

// Provider hands out assistants over the current schema index.
// Readers take one snapshot per request; Swap never blocks them.
type Provider struct {
	current atomic.Pointer[assist.Assistant]
	logger  *slog.Logger

	// optsMu serializes assistant rebuilds.
	opts   Options
	optsMu sync.Mutex

	// Analysis cache keyed by document URI.
	documents   map[string]*Document
	documentsMu sync.RWMutex
}

// New creates a Provider serving idx.
func New(idx *schema.Index, opts Options) *Provider {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	p := &Provider{
		opts:      opts,
		logger:    logger,
		documents: make(map[string]*Document),
	}
	p.current.Store(p.newAssistant(idx))
	return p
}

func (p *Provider) newAssistant(idx *schema.Index) *assist.Assistant {
	opts := []assist.Option{assist.WithLogger(p.logger)}
	if p.opts.Platform != 0 {
		opts = append(opts, assist.WithPlatform(p.opts.Platform))
	}
	if p.opts.Limit != 0 {
		opts = append(opts, assist.WithLimit(p.opts.Limit))
	}
	return assist.New(idx, opts...)
}

// Assistant returns the assistant over the current index.
func (p *Provider) Assistant() *assist.Assistant {
	return p.current.Load()
}

// Index returns the current schema index.
func (p *Provider) Index() *schema.Index {
	return p.current.Load().Index()
}

// Swap replaces the index and drops every cached analysis.
func (p *Provider) Swap(idx *schema.Index) {
	p.optsMu.Lock()
	old := p.current.Swap(p.newAssistant(idx))
	p.optsMu.Unlock()

	p.InvalidateAll()
	p.logger.Info("schema index swapped",
		"old_version", old.Index().Version(),
		"version", idx.Version(),
		"tables", idx.Len())
}

// SetPlatform changes the default target platform and drops every cached
// analysis.
func (p *Provider) SetPlatform(platform schema.Platform) {
	p.optsMu.Lock()
	p.opts.Platform = platform
	p.current.Store(p.newAssistant(p.Index()))
	p.optsMu.Unlock()

	p.InvalidateAll()
	p.logger.Info("target platform changed", "platform", platform.String())
}

// Platform returns the default target platform.
func (p *Provider) Platform() schema.Platform {
	p.optsMu.Lock()
	defer p.optsMu.Unlock()
	return p.opts.Platform
}

// Reload opens the schema at version/path and swaps it in. On failure the
// current index stays in place.
func (p *Provider) Reload(version, path string) error {
	idx, err := schema.Open(version, path)
	if err != nil {
		p.logger.Error("schema reload failed, keeping current index",
			"version", version, "path", path, "error", err)
		return err
	}
	p.Swap(idx)
	return nil
}

// Analyze runs an uncached analysis against the current index.
func (p *Provider) Analyze(ctx context.Context, req assist.Request) (*assist.Result, error) {
	return p.current.Load().Analyze(ctx, req)
}

// GetOrAnalyze returns the cached analysis of a document version, or
// analyzes the content when the cache is missing, older, or built from a
// different index. Cached analyses carry diagnostics only, no suggestions.
func (p *Provider) GetOrAnalyze(ctx context.Context, uri, content string, version int) (*Document, error) {
	a := p.current.Load()

	p.documentsMu.RLock()
	doc, ok := p.documents[uri]
	p.documentsMu.RUnlock()
	if ok && doc.fresh(a, version) {
		return doc, nil
	}

	res, err := a.Analyze(ctx, assist.Request{Text: content, Cursor: len(content), Limit: -1})
	if err != nil {
		return nil, err
	}
	doc = &Document{URI: uri, Version: version, Content: content, Result: res, assistant: a}

	p.documentsMu.Lock()
	defer p.documentsMu.Unlock()

	// A concurrent analysis of a newer version wins.
	if cur, ok := p.documents[uri]; ok && cur.fresh(a, version) && cur.Version > version {
		return cur, nil
	}
	p.documents[uri] = doc
	return doc, nil
}

// Get returns the cached analysis of a document, or nil.
func (p *Provider) Get(uri string) *Document {
	p.documentsMu.RLock()
	defer p.documentsMu.RUnlock()
	return p.documents[uri]
}

// Invalidate drops the cached analysis of one document.
func (p *Provider) Invalidate(uri string) {
	p.documentsMu.Lock()
	defer p.documentsMu.Unlock()
	delete(p.documents, uri)
}

// InvalidateAll drops every cached analysis.
func (p *Provider) InvalidateAll() {
	p.documentsMu.Lock()
	defer p.documentsMu.Unlock()
	p.documents = make(map[string]*Document)
}
