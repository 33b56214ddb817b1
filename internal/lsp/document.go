package lsp

import (
	"sort"
	"sync"
)

// Document is an open query buffer.
type Document struct {
	URI     string
	Content string
	Version int
	// Lines holds the byte offset of each line start.
	Lines []int
}

// DocumentStore holds the open documents.
type DocumentStore struct {
	mu        sync.RWMutex
	documents map[string]*Document
}

// NewDocumentStore creates an empty store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{documents: make(map[string]*Document)}
}

// Open adds a document, replacing any document with the same URI.
func (s *DocumentStore) Open(uri, content string, version int) *Document {
	doc := newDocument(uri, content, version)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents[uri] = doc
	return doc
}

// Update replaces the content of an open document. Updates older than the
// stored version are ignored. It returns the stored document, or nil when
// the URI is not open.
func (s *DocumentStore) Update(uri, content string, version int) *Document {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.documents[uri]
	if !ok {
		return nil
	}
	if version < cur.Version {
		return cur
	}
	// Documents are replaced, never mutated, so readers may keep them.
	doc := newDocument(uri, content, version)
	s.documents[uri] = doc
	return doc
}

// Close removes a document.
func (s *DocumentStore) Close(uri string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.documents, uri)
}

// Get returns an open document, or nil.
func (s *DocumentStore) Get(uri string) *Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.documents[uri]
}

// List returns the URIs of all open documents, sorted.
func (s *DocumentStore) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	uris := make([]string, 0, len(s.documents))
	for uri := range s.documents {
		uris = append(uris, uri)
	}
	sort.Strings(uris)
	return uris
}

func newDocument(uri, content string, version int) *Document {
	return &Document{URI: uri, Content: content, Version: version, Lines: lineOffsets(content)}
}

func lineOffsets(content string) []int {
	offsets := []int{0}
	for i := 0; i < len(content); i++ {
		if content[i] == '\n' {
			offsets = append(offsets, i+1)
		}
	}
	return offsets
}

// PositionToOffset converts an LSP position to a byte offset, clamped to
// the document. Characters count bytes.
func (d *Document) PositionToOffset(pos Position) int {
	if d == nil || len(d.Lines) == 0 {
		return 0
	}

	line := int(pos.Line)
	if line >= len(d.Lines) {
		return len(d.Content)
	}

	end := len(d.Content)
	if line+1 < len(d.Lines) {
		end = d.Lines[line+1] - 1
	}
	return min(d.Lines[line]+int(pos.Character), end)
}

// OffsetToPosition converts a byte offset to an LSP position.
func (d *Document) OffsetToPosition(offset int) Position {
	if d == nil || len(d.Lines) == 0 {
		return Position{}
	}
	offset = min(max(offset, 0), len(d.Content))

	line := sort.SearchInts(d.Lines, offset+1) - 1
	return Position{
		Line:      uint32(line),                   //nolint:gosec // G115: line count fits
		Character: uint32(offset - d.Lines[line]), //nolint:gosec // G115: line length fits
	}
}

// URIToPath converts a file:// URI to a file system path.
func URIToPath(uri string) string {
	const prefix = "file://"
	if len(uri) >= len(prefix) && uri[:len(prefix)] == prefix {
		return uri[len(prefix):]
	}
	return uri
}
