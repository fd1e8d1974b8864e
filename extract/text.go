package extract

import (
	"bytes"
	"context"
	"strings"
	"unicode/utf8"

	"github.com/wudi/extractkit/mime"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// textExtractor handles plain text and markdown-as-plain-text fallback.
type textExtractor struct{}

func (textExtractor) Supports(mimeType string) bool {
	return mimeType == mime.PlainText
}

func (textExtractor) Extract(ctx context.Context, in Input) (Result, error) {
	content, err := decodeText(in.Data)
	if err != nil {
		return Result{}, &ParsingError{
			Message: "could not decode text file",
			Context: map[string]string{"path": in.Path},
			Err:     err,
		}
	}
	return Result{
		Content:  normalizeSpaces(content),
		MimeType: in.MimeType,
		Success:  true,
	}, nil
}

var (
	bomUTF8    = []byte{0xef, 0xbb, 0xbf}
	bomUTF16BE = []byte{0xfe, 0xff}
	bomUTF16LE = []byte{0xff, 0xfe}
)

// decodeText converts raw bytes to a string: BOM-marked UTF-16 is decoded,
// valid UTF-8 passes through, anything else falls back to Latin-1 so no
// input is rejected outright.
func decodeText(data []byte) (string, error) {
	switch {
	case bytes.HasPrefix(data, bomUTF8):
		return string(data[len(bomUTF8):]), nil
	case bytes.HasPrefix(data, bomUTF16BE):
		dec := unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder()
		out, err := dec.Bytes(data)
		if err != nil {
			return "", err
		}
		return string(out), nil
	case bytes.HasPrefix(data, bomUTF16LE):
		dec := unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder()
		out, err := dec.Bytes(data)
		if err != nil {
			return "", err
		}
		return string(out), nil
	case utf8.Valid(data):
		return string(data), nil
	default:
		out, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
		if err != nil {
			return "", err
		}
		return string(out), nil
	}
}

// normalizeSpaces collapses horizontal whitespace runs inside each line and
// limits vertical whitespace to one blank line.
func normalizeSpaces(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	blanks := 0
	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			blanks++
			if blanks <= 1 && len(out) > 0 {
				out = append(out, "")
			}
			continue
		}
		blanks = 0
		out = append(out, strings.Join(fields, " "))
	}
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return strings.Join(out, "\n")
}
