package extract

import (
	"bytes"
	"context"
	"image"

	"github.com/wudi/extractkit/mime"
	"github.com/wudi/extractkit/ocr"
)

// imageExtractor runs raster images through the configured OCR engine.
// Decoder registration for bmp/tiff/webp comes with the ocr package import.
type imageExtractor struct {
	engine    ocr.Engine
	languages []string
	dpi       int
	psm       int
	whitelist string
}

func (e imageExtractor) Supports(mimeType string) bool {
	return mime.IsImage(mimeType)
}

func (e imageExtractor) Extract(ctx context.Context, in Input) (Result, error) {
	engine := e.engine
	if engine == nil {
		engine = ocr.DefaultEngine()
	}

	opts := []ocr.InputOption{ocr.WithID(in.Path)}
	if len(e.languages) > 0 {
		opts = append(opts, ocr.WithLanguages(e.languages...))
	}
	if e.dpi > 0 {
		opts = append(opts, ocr.WithDPI(e.dpi))
	}
	if e.psm > 0 {
		opts = append(opts, ocr.WithTesseractPSM(e.psm))
	}
	if e.whitelist != "" {
		opts = append(opts, ocr.WithTesseractWhitelist(e.whitelist))
	}
	input, err := ocr.InputFromImage(in.Data, opts...)
	if err != nil {
		return Result{}, &ParsingError{
			Message: "could not decode image file",
			Context: map[string]string{"path": in.Path},
			Err:     err,
		}
	}

	res, err := engine.Recognize(ctx, input)
	if err != nil {
		return Result{}, &OCRError{Engine: engine.Name(), Err: err}
	}

	img := Image{Data: in.Data, Format: in.MimeType}
	if cfg, format, err := image.DecodeConfig(bytes.NewReader(in.Data)); err == nil {
		img.Format = format
		img.Width = cfg.Width
		img.Height = cfg.Height
	}

	return Result{
		Content:  normalizeSpaces(res.PlainText),
		MimeType: in.MimeType,
		Metadata: Metadata{Language: res.Language},
		Images:   []Image{img},
		Success:  true,
	}, nil
}
