package ocr

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	_ "image/gif"
	_ "image/jpeg"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// InputOption mutates an OCR input before submission.
type InputOption func(*Input)

// WithID sets the caller-provided identifier echoed back in the result.
func WithID(id string) InputOption {
	return func(in *Input) { in.ID = id }
}

// WithLanguages sets language hints on the OCR input.
func WithLanguages(langs ...string) InputOption {
	return func(in *Input) { in.Languages = append([]string(nil), langs...) }
}

// WithRegion sets the recognition region on the OCR input.
func WithRegion(region Region) InputOption {
	return func(in *Input) {
		if region.IsEmpty() {
			in.Region = nil
			return
		}
		in.Region = &region
	}
}

// WithDPI overrides the DPI value on the OCR input.
func WithDPI(dpi int) InputOption {
	return func(in *Input) { in.DPI = dpi }
}

// WithPage sets the zero-based source page index.
func WithPage(page int) InputOption {
	return func(in *Input) { in.PageIndex = page }
}

// WithMetadata sets provider-specific metadata for the input.
func WithMetadata(metadata map[string]string) InputOption {
	return func(in *Input) {
		if len(metadata) == 0 {
			in.Metadata = nil
			return
		}
		in.Metadata = make(map[string]string, len(metadata))
		for k, v := range metadata {
			in.Metadata[k] = v
		}
	}
}

// InputFromImage builds an OCR input from encoded image bytes. Any format
// with a registered decoder is accepted (png, jpeg, and gif from the
// standard library; bmp, tiff, and webp via golang.org/x/image) and the
// payload is re-encoded as PNG so every engine sees one format.
func InputFromImage(data []byte, opts ...InputOption) (Input, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Input{}, fmt.Errorf("decode image: %w", err)
	}
	payload := data
	if format != "png" {
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return Input{}, fmt.Errorf("encode %s image as png: %w", format, err)
		}
		payload = buf.Bytes()
	}
	in := Input{
		Image:  payload,
		Format: ImageFormatPNG,
	}
	for _, opt := range opts {
		opt(&in)
	}
	return in, nil
}
