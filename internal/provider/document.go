package provider

import (
	"github.com/google/grr-sub002/pkg/assist"
)

// Document is a cached analysis of one document version.
type Document struct {
	URI     string
	Version int
	Content string
	Result  *assist.Result

	assistant *assist.Assistant
}

// fresh reports whether the analysis can serve version under a.
func (d *Document) fresh(a *assist.Assistant, version int) bool {
	return d.assistant == a && d.Version >= version
}

// Diagnostics returns the diagnostics of the cached analysis.
func (d *Document) Diagnostics() []assist.Diagnostic {
	if d == nil || d.Result == nil {
		return nil
	}
	return d.Result.Diagnostics
}
