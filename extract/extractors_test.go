package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"strings"
	"testing"

	"github.com/wudi/extractkit/mime"
	"github.com/wudi/extractkit/ocr"
)

func TestTextExtractorNormalizes(t *testing.T) {
	in := Input{
		Data:     []byte("hello   world\t!\n\n\n\nnext   line\n"),
		MimeType: mime.PlainText,
	}
	res, err := textExtractor{}.Extract(context.Background(), in)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if want := "hello world !\n\nnext line"; res.Content != want {
		t.Fatalf("Content = %q, want %q", res.Content, want)
	}
	if !res.Success {
		t.Fatal("Success = false")
	}
}

func TestDecodeTextEncodings(t *testing.T) {
	cases := []struct {
		name string
		data []byte
		want string
	}{
		{"utf8", []byte("héllo"), "héllo"},
		{"utf8 bom", append([]byte{0xef, 0xbb, 0xbf}, []byte("héllo")...), "héllo"},
		{"utf16le bom", []byte{0xff, 0xfe, 'h', 0, 'i', 0}, "hi"},
		{"utf16be bom", []byte{0xfe, 0xff, 0, 'h', 0, 'i'}, "hi"},
		{"latin1", []byte{'h', 0xe9, 'l', 'l', 'o'}, "héllo"},
	}
	for _, c := range cases {
		got, err := decodeText(c.data)
		if err != nil {
			t.Errorf("%s: decodeText() error = %v", c.name, err)
			continue
		}
		if got != c.want {
			t.Errorf("%s: decodeText() = %q, want %q", c.name, got, c.want)
		}
	}
}

func TestMarkdownExtractor(t *testing.T) {
	src := "# Title\n\nSome paragraph with *emphasis*.\n\n- first\n- second\n\n```\ncode here\n```\n"
	res, err := markdownExtractor{}.Extract(context.Background(), Input{
		Data:     []byte(src),
		MimeType: mime.Markdown,
	})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if res.Metadata.Title != "Title" {
		t.Errorf("Metadata.Title = %q, want %q", res.Metadata.Title, "Title")
	}
	for _, want := range []string{"# Title", "Some paragraph with emphasis.", "- first", "- second", "code here"} {
		if !strings.Contains(res.Content, want) {
			t.Errorf("Content = %q, missing %q", res.Content, want)
		}
	}
}

func TestHTMLExtractor(t *testing.T) {
	src := `<!DOCTYPE html>
<html lang="en"><head>
<title>Page Title</title>
<meta name="description" content="A test page">
<style>body { color: red }</style>
<script>alert("skip me")</script>
</head><body>
<h1>Main Heading</h1>
<p>First paragraph.</p>
<ul><li>alpha</li><li>beta</li></ul>
<a href="https://example.com">a link</a>
</body></html>`
	res, err := htmlExtractor{}.Extract(context.Background(), Input{
		Data:     []byte(src),
		MimeType: mime.HTML,
	})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if res.Metadata.Title != "Page Title" {
		t.Errorf("Metadata.Title = %q, want %q", res.Metadata.Title, "Page Title")
	}
	if res.Metadata.Language != "en" {
		t.Errorf("Metadata.Language = %q, want en", res.Metadata.Language)
	}
	if res.Metadata.Subject != "A test page" {
		t.Errorf("Metadata.Subject = %q, want description content", res.Metadata.Subject)
	}
	for _, want := range []string{"# Main Heading", "First paragraph.", "- alpha", "- beta", "a link (https://example.com)"} {
		if !strings.Contains(res.Content, want) {
			t.Errorf("Content = %q, missing %q", res.Content, want)
		}
	}
	for _, reject := range []string{"alert", "color: red"} {
		if strings.Contains(res.Content, reject) {
			t.Errorf("Content = %q, contains %q", res.Content, reject)
		}
	}
}

func buildPPTX(t *testing.T, slides map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, body := range slides {
		f, err := w.Create(name)
		if err != nil {
			t.Fatalf("zip create: %v", err)
		}
		if _, err := f.Write([]byte(body)); err != nil {
			t.Fatalf("zip write: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}

const slideXML = `<?xml version="1.0"?>
<p:sld xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"
       xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main">
  <p:txBody><a:p><a:r><a:t>%s</a:t></a:r></a:p></p:txBody>
</p:sld>`

func TestPPTXExtractor(t *testing.T) {
	data := buildPPTX(t, map[string]string{
		"ppt/slides/slide2.xml":           strings.Replace(slideXML, "%s", "Second slide", 1),
		"ppt/slides/slide1.xml":           strings.Replace(slideXML, "%s", "First slide", 1),
		"ppt/notesSlides/notesSlide1.xml": strings.Replace(slideXML, "%s", "Speaker notes", 1),
		"docProps/core.xml":               "<x/>",
	})

	res, err := pptxExtractor{}.Extract(context.Background(), Input{
		Data:     data,
		MimeType: mime.PowerPoint,
	})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if res.Metadata.PageCount != 2 {
		t.Errorf("PageCount = %d, want 2", res.Metadata.PageCount)
	}
	first := strings.Index(res.Content, "First slide")
	second := strings.Index(res.Content, "Second slide")
	if first < 0 || second < 0 || first > second {
		t.Fatalf("slides missing or out of order in %q", res.Content)
	}
	if !strings.Contains(res.Content, "<!-- Slide number: 1 -->") {
		t.Errorf("Content = %q, missing slide marker", res.Content)
	}
	if !strings.Contains(res.Content, "Speaker notes") {
		t.Errorf("Content = %q, missing notes", res.Content)
	}
}

func TestPPTXExtractorRejectsGarbage(t *testing.T) {
	var parseErr *ParsingError
	_, err := pptxExtractor{}.Extract(context.Background(), Input{Data: []byte("nope"), MimeType: mime.PowerPoint})
	if !errors.As(err, &parseErr) {
		t.Fatalf("Extract(garbage) error = %v, want ParsingError", err)
	}

	empty := buildPPTX(t, map[string]string{"docProps/core.xml": "<x/>"})
	_, err = pptxExtractor{}.Extract(context.Background(), Input{Data: empty, MimeType: mime.PowerPoint})
	if !errors.As(err, &parseErr) {
		t.Fatalf("Extract(no slides) error = %v, want ParsingError", err)
	}
}

func TestImageExtractorMeasuresImage(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 6, 4))
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}

	res, err := imageExtractor{engine: stubOCR{text: "scanned words"}}.Extract(context.Background(), Input{
		Data:     buf.Bytes(),
		MimeType: mime.PNG,
	})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if res.Content != "scanned words" {
		t.Fatalf("Content = %q, want OCR text", res.Content)
	}
	if len(res.Images) != 1 {
		t.Fatalf("Images = %d, want 1", len(res.Images))
	}
	got := res.Images[0]
	if got.Format != "png" || got.Width != 6 || got.Height != 4 {
		t.Fatalf("Image = %+v, want png 6x4", got)
	}
}

func TestImageExtractorWrapsEngineFailure(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}

	var ocrErr *OCRError
	_, err := imageExtractor{engine: stubOCR{err: errors.New("engine down")}}.Extract(context.Background(), Input{
		Data:     buf.Bytes(),
		MimeType: mime.PNG,
	})
	if !errors.As(err, &ocrErr) {
		t.Fatalf("Extract() error = %v, want OCRError", err)
	}
	if ocrErr.Engine != "stub" {
		t.Fatalf("OCRError.Engine = %q, want stub", ocrErr.Engine)
	}
}

// captureOCR records the input it was asked to recognize.
type captureOCR struct {
	got ocr.Input
}

func (c *captureOCR) Name() string { return "capture" }

func (c *captureOCR) Recognize(_ context.Context, in ocr.Input) (ocr.Result, error) {
	c.got = in
	return ocr.Result{InputID: in.ID}, nil
}

func TestImageExtractorPassesTesseractVariables(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}

	engine := &captureOCR{}
	ext := imageExtractor{
		engine:    engine,
		languages: []string{"eng"},
		psm:       6,
		whitelist: "0123456789",
	}
	if _, err := ext.Extract(context.Background(), Input{Data: buf.Bytes(), MimeType: mime.PNG}); err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	if got := engine.got.Metadata["tessedit_pageseg_mode"]; got != "6" {
		t.Errorf("page segmentation mode = %q, want 6", got)
	}
	if got := engine.got.Metadata["tessedit_char_whitelist"]; got != "0123456789" {
		t.Errorf("char whitelist = %q, want digits", got)
	}
	if len(engine.got.Languages) != 1 || engine.got.Languages[0] != "eng" {
		t.Errorf("Languages = %v, want [eng]", engine.got.Languages)
	}
}

func TestChunkContent(t *testing.T) {
	content := strings.Repeat("word ", 100) // 500 bytes
	chunks := chunkContent(strings.TrimSpace(content), ChunkConfig{Enabled: true, MaxCharacters: 120})
	if len(chunks) < 4 {
		t.Fatalf("chunks = %d, want >= 4", len(chunks))
	}
	for i, c := range chunks {
		if c.Metadata.ChunkIndex != i {
			t.Errorf("chunk %d: ChunkIndex = %d", i, c.Metadata.ChunkIndex)
		}
		if c.Metadata.TotalChunks != len(chunks) {
			t.Errorf("chunk %d: TotalChunks = %d, want %d", i, c.Metadata.TotalChunks, len(chunks))
		}
		if len(c.Content) > 120 {
			t.Errorf("chunk %d: %d bytes, want <= 120", i, len(c.Content))
		}
		if strings.Contains(c.Content, "wo rd") || strings.HasPrefix(c.Content, " ") {
			t.Errorf("chunk %d split mid-word or kept leading space: %q", i, c.Content)
		}
	}
	if chunkContent("", ChunkConfig{Enabled: true}) != nil {
		t.Fatal("chunkContent(empty) != nil")
	}
}

func TestChunkOffsetsRoundTrip(t *testing.T) {
	content := "alpha beta gamma delta epsilon zeta eta theta"
	chunks := chunkContent(content, ChunkConfig{Enabled: true, MaxCharacters: 16})
	for _, c := range chunks {
		if got := content[c.Metadata.ByteStart:c.Metadata.ByteEnd]; got != c.Content {
			t.Fatalf("offsets [%d:%d] = %q, want %q", c.Metadata.ByteStart, c.Metadata.ByteEnd, got, c.Content)
		}
	}
}
