// Package document keeps the text of the documents an editor has open and
// converts between editor positions and byte offsets.
package document

import (
	"errors"
	"sort"
	"sync"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

// ErrUnknownDocument is returned for queries on a document that is not open.
var ErrUnknownDocument = errors.New("unknown document")

// Document is an immutable snapshot of an open document. Edits replace the
// whole snapshot.
type Document struct {
	URI     protocol.DocumentUri
	Version protocol.Integer
	Text    string
	lines   []int
}

// New creates a document snapshot.
func New(uri protocol.DocumentUri, version protocol.Integer, text string) *Document {
	return &Document{URI: uri, Version: version, Text: text, lines: lineStarts(text)}
}

// Store is the set of open documents, safe for concurrent use.
type Store struct {
	mu   sync.RWMutex
	docs map[protocol.DocumentUri]*Document
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{docs: make(map[protocol.DocumentUri]*Document)}
}

// Open records a newly opened document.
func (s *Store) Open(uri protocol.DocumentUri, version protocol.Integer, text string) *Document {
	doc := New(uri, version, text)
	s.mu.Lock()
	s.docs[uri] = doc
	s.mu.Unlock()
	return doc
}

// Replace swaps in the full new text of a document. A document that was
// never opened is added.
func (s *Store) Replace(uri protocol.DocumentUri, version protocol.Integer, text string) *Document {
	return s.Open(uri, version, text)
}

// Close forgets a document. It reports whether the document was open.
func (s *Store) Close(uri protocol.DocumentUri) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.docs[uri]
	delete(s.docs, uri)
	return ok
}

// Get returns the current snapshot of a document.
func (s *Store) Get(uri protocol.DocumentUri) (*Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[uri]
	return doc, ok
}

// URIs returns the open document URIs in sorted order.
func (s *Store) URIs() []protocol.DocumentUri {
	s.mu.RLock()
	uris := make([]protocol.DocumentUri, 0, len(s.docs))
	for uri := range s.docs {
		uris = append(uris, uri)
	}
	s.mu.RUnlock()
	sort.Strings(uris)
	return uris
}
