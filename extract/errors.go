package extract

import (
	"fmt"
	"sort"
	"strings"
)

// ValidationError reports invalid caller input: an unusable configuration,
// an unsupported mime type, or malformed arguments.
type ValidationError struct {
	Message string
	Context map[string]string
}

func (e *ValidationError) Error() string {
	return "extract: " + e.Message + formatContext(e.Context)
}

// ParsingError reports a document that could not be processed by its
// extractor.
type ParsingError struct {
	Message string
	Context map[string]string
	Err     error
}

func (e *ParsingError) Error() string {
	msg := "extract: " + e.Message + formatContext(e.Context)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ParsingError) Unwrap() error { return e.Err }

// MissingDependencyError reports a document format whose extractor depends
// on a backend that is not registered or not installed.
type MissingDependencyError struct {
	Dependency string
}

func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf("extract: missing dependency %s", e.Dependency)
}

// OCRError reports a failure in the OCR engine while extracting an image.
type OCRError struct {
	Engine string
	Err    error
}

func (e *OCRError) Error() string {
	return fmt.Sprintf("extract: ocr engine %s: %v", e.Engine, e.Err)
}

func (e *OCRError) Unwrap() error { return e.Err }

func formatContext(ctx map[string]string) string {
	if len(ctx) == 0 {
		return ""
	}
	keys := make([]string, 0, len(ctx))
	for k := range ctx {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+ctx[k])
	}
	return " (" + strings.Join(parts, " ") + ")"
}
