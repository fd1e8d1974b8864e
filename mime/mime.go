// Package mime validates and detects the MIME types the extraction engine
// understands.
package mime

import (
	"fmt"
	"net/http"
	"path/filepath"
	"sort"
	"strings"
)

// Canonical MIME types for the supported document formats.
const (
	PlainText  = "text/plain"
	Markdown   = "text/markdown"
	HTML       = "text/html"
	PDF        = "application/pdf"
	PowerPoint = "application/vnd.openxmlformats-officedocument.presentationml.presentation"

	JPEG = "image/jpeg"
	PNG  = "image/png"
	GIF  = "image/gif"
	TIFF = "image/tiff"
	WebP = "image/webp"
	BMP  = "image/bmp"
)

var extToMime = map[string]string{
	".txt":  PlainText,
	".text": PlainText,
	".md":   Markdown,
	".html": HTML,
	".htm":  HTML,
	".pdf":  PDF,
	".pptx": PowerPoint,
	".jpg":  JPEG,
	".jpeg": JPEG,
	".png":  PNG,
	".gif":  GIF,
	".tif":  TIFF,
	".tiff": TIFF,
	".webp": WebP,
	".bmp":  BMP,
}

var supported = func() map[string]bool {
	m := make(map[string]bool, len(extToMime))
	for _, mt := range extToMime {
		m[mt] = true
	}
	return m
}()

// UnsupportedTypeError reports a MIME type the engine has no extractor for.
type UnsupportedTypeError struct {
	Mime string
	Path string
}

func (e *UnsupportedTypeError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("mime: unsupported mime type %q for %s", e.Mime, e.Path)
	}
	return fmt.Sprintf("mime: unsupported mime type %q", e.Mime)
}

// IsImage reports whether mt is one of the supported raster image types.
func IsImage(mt string) bool {
	return strings.HasPrefix(Normalize(mt), "image/")
}

// IsSupported reports whether the engine understands mt.
func IsSupported(mt string) bool { return supported[Normalize(mt)] }

// SupportedTypes returns the sorted list of supported MIME types.
func SupportedTypes() []string {
	out := make([]string, 0, len(supported))
	for mt := range supported {
		out = append(out, mt)
	}
	sort.Strings(out)
	return out
}

// Normalize strips parameters such as "; charset=utf-8" and lowercases the
// remaining type.
func Normalize(mt string) string {
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = mt[:i]
	}
	return strings.ToLower(strings.TrimSpace(mt))
}

// FromPath maps a file path to a supported MIME type by extension. The
// extension comparison is case insensitive.
func FromPath(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if mt, ok := extToMime[ext]; ok {
		return mt, nil
	}
	return "", &UnsupportedTypeError{Mime: ext, Path: path}
}

// Validate resolves the effective MIME type for path. When explicit is
// non-empty it is normalized and checked against the supported set;
// otherwise the type is derived from the path extension. Unsupported types
// yield an UnsupportedTypeError.
func Validate(path, explicit string) (string, error) {
	if explicit != "" {
		mt := Normalize(explicit)
		if !supported[mt] {
			return "", &UnsupportedTypeError{Mime: explicit, Path: path}
		}
		return mt, nil
	}
	return FromPath(path)
}

// Detect resolves a MIME type for raw document bytes. The path extension
// wins when it is recognizable; otherwise the content is sniffed.
func Detect(data []byte, path string) (string, error) {
	if path != "" {
		if mt, err := FromPath(path); err == nil {
			return mt, nil
		}
	}
	mt := Normalize(http.DetectContentType(data))
	if supported[mt] {
		return mt, nil
	}
	// Sniffing reports generic text as text/plain with charset parameters
	// already stripped by Normalize; anything else is unsupported.
	return "", &UnsupportedTypeError{Mime: mt, Path: path}
}
