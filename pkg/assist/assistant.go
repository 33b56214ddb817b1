// Package assist analyzes osquery query fragments against a schema index.
//
// The pipeline is tokenize, resolve, check platform compatibility and
// suggest. It produces advisory diagnostics and ranked completions; nothing
// it finds is an error. Scheduler debounces analyses for callers that run
// one per keystroke.
package assist

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/grr-sub002/pkg/lexer"
	"github.com/google/grr-sub002/pkg/schema"
)

// DefaultLimit is the suggestion limit when none is configured.
const DefaultLimit = 20

// ErrNoIndex is returned when an Assistant has no schema index.
var ErrNoIndex = errors.New("assist: no schema index")

// Assistant runs the analysis pipeline against one schema index.
// It is safe for concurrent use.
type Assistant struct {
	idx      *schema.Index
	platform schema.Platform
	limit    int
	logger   *slog.Logger
}

// Option configures an Assistant.
type Option func(*Assistant)

// WithPlatform sets the target platform used when a request names none.
func WithPlatform(p schema.Platform) Option {
	return func(a *Assistant) { a.platform = p }
}

// WithLimit sets the suggestion limit used when a request names none.
func WithLimit(n int) Option {
	return func(a *Assistant) { a.limit = n }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Assistant) {
		if l != nil {
			a.logger = l
		}
	}
}

// New creates an Assistant over idx.
func New(idx *schema.Index, opts ...Option) *Assistant {
	a := &Assistant{
		idx:    idx,
		limit:  DefaultLimit,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Index returns the schema index the assistant works from.
func (a *Assistant) Index() *schema.Index {
	return a.idx
}

// Request is one analysis request.
type Request struct {
	Text string
	// Cursor is a byte offset into Text.
	Cursor int
	// Platform is the target platform. Zero means the assistant default.
	Platform schema.Platform
	// Limit caps suggestions. Zero means the assistant default; a negative
	// limit disables suggestions.
	Limit int
}

// Result is the outcome of one analysis.
type Result struct {
	Version       string
	Platform      schema.Platform
	Lexed         *lexer.Result
	Resolution    *Resolution
	Compatibility Compatibility
	Diagnostics   []Diagnostic
	Suggestions   []Suggestion
}

// Analyze runs the pipeline. It returns an error only when ctx is done or
// the assistant has no index; findings about the query are diagnostics.
func (a *Assistant) Analyze(ctx context.Context, req Request) (*Result, error) {
	if a.idx == nil {
		return nil, ErrNoIndex
	}

	platform := req.Platform
	if platform == 0 {
		platform = a.platform
	}
	limit := req.Limit
	if limit == 0 {
		limit = a.limit
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	lexed := lexer.Tokenize(req.Text, req.Cursor)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res := Resolve(lexed.Tokens, a.idx)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	compat := AnalyzeCompatibility(res.Tables, platform)
	diags := diagnose(req.Text, lexed, res, compat)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	suggestions := []Suggestion{}
	if c := lexed.Cursor; c.Completable() {
		suggestions = Suggest(SuggestRequest{
			Prefix:    c.Prefix,
			Position:  c.Position,
			Qualifier: c.Qualifier,
			Tables:    res.Tables,
			Aliases:   res.Aliases,
			Limit:     limit,
		}, a.idx)
	}

	a.logger.Debug("analyzed query",
		"tables", len(res.Tables),
		"unresolved", len(res.Unresolved),
		"diagnostics", len(diags),
		"suggestions", len(suggestions),
		"position", lexed.Cursor.Position.String(),
	)

	return &Result{
		Version:       a.idx.Version(),
		Platform:      platform,
		Lexed:         lexed,
		Resolution:    res,
		Compatibility: compat,
		Diagnostics:   diags,
		Suggestions:   suggestions,
	}, nil
}
