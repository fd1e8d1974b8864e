// Package extract turns documents into plain text plus structured
// metadata. Format support is pluggable: extractors register against MIME
// types and the engine routes validated input to the right one, then runs
// the shared post-processing pipeline (token reduction, chunking, hooks).
package extract

import (
	"context"
	"sync"
)

// Input is one document handed to an extractor. MimeType is already
// normalized and validated by the engine.
type Input struct {
	Data     []byte
	Path     string
	MimeType string
}

// Extractor pulls text out of one family of document formats.
type Extractor interface {
	// Supports reports whether the extractor handles the normalized mime type.
	Supports(mimeType string) bool
	// Extract produces a result for the input. Implementations fill Content,
	// Metadata, and Images; the engine owns chunking and reduction.
	Extract(ctx context.Context, in Input) (Result, error)
}

// Registry routes mime types to extractors. Later registrations win so
// callers can override the built-ins.
type Registry struct {
	mu         sync.RWMutex
	extractors []Extractor
}

// Register adds an extractor to the registry.
func (r *Registry) Register(e Extractor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.extractors = append(r.extractors, e)
}

// Find returns the most recently registered extractor supporting mimeType.
func (r *Registry) Find(mimeType string) (Extractor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := len(r.extractors) - 1; i >= 0; i-- {
		if r.extractors[i].Supports(mimeType) {
			return r.extractors[i], true
		}
	}
	return nil, false
}
