package scripting

import (
	"context"
)

// Engine represents a scripting engine (e.g., JavaScript).
type Engine interface {
	// Execute executes a script in the context of the document.
	Execute(ctx context.Context, script string) (interface{}, error)

	// RegisterDocument registers the document object model with the engine.
	RegisterDocument(doc DocumentProxy) error
}

// DocumentProxy exposes an extraction result to the scripting engine.
// It provides a safe, controlled API for scripts to inspect and rewrite
// the extracted content.
type DocumentProxy interface {
	// Content returns the extracted text content.
	Content() string

	// SetContent replaces the extracted text content.
	SetContent(content string)

	// MimeType returns the MIME type of the processed document.
	MimeType() string

	// Title returns the document title, if any.
	Title() string

	// SetTitle sets the document title.
	SetTitle(title string)

	// Attribute returns a format-specific metadata field by key.
	Attribute(key string) string

	// SetAttribute sets a format-specific metadata field.
	SetAttribute(key, value string)

	// Log emits a message from the script (if supported by the runner).
	Log(message string)
}
