package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/wudi/extractkit/mime"
)

// pptxExtractor reads PowerPoint archives directly: a .pptx file is a zip
// of XML parts, with the visible text in a:t runs under ppt/slides/.
type pptxExtractor struct{}

func (pptxExtractor) Supports(mimeType string) bool {
	return mimeType == mime.PowerPoint
}

var slidePathRe = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)
var notesPathRe = regexp.MustCompile(`^ppt/notesSlides/notesSlide(\d+)\.xml$`)

func (pptxExtractor) Extract(ctx context.Context, in Input) (Result, error) {
	zr, err := zip.NewReader(bytes.NewReader(in.Data), int64(len(in.Data)))
	if err != nil {
		return Result{}, &ParsingError{
			Message: "could not open pptx archive",
			Context: map[string]string{"path": in.Path},
			Err:     err,
		}
	}

	slides := map[int]*zip.File{}
	notes := map[int]*zip.File{}
	for _, f := range zr.File {
		if m := slidePathRe.FindStringSubmatch(f.Name); m != nil {
			n, _ := strconv.Atoi(m[1])
			slides[n] = f
		} else if m := notesPathRe.FindStringSubmatch(f.Name); m != nil {
			n, _ := strconv.Atoi(m[1])
			notes[n] = f
		}
	}
	if len(slides) == 0 {
		return Result{}, &ParsingError{
			Message: "pptx archive contains no slides",
			Context: map[string]string{"path": in.Path},
		}
	}

	numbers := make([]int, 0, len(slides))
	for n := range slides {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)

	var b strings.Builder
	for _, n := range numbers {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		fmt.Fprintf(&b, "\n\n<!-- Slide number: %d -->\n", n)
		text, err := slideText(slides[n])
		if err != nil {
			return Result{}, &ParsingError{
				Message: "could not parse slide xml",
				Context: map[string]string{"path": in.Path, "slide": strconv.Itoa(n)},
				Err:     err,
			}
		}
		b.WriteString(text)
		if nf, ok := notes[n]; ok {
			noteText, err := slideText(nf)
			if err == nil && strings.TrimSpace(noteText) != "" {
				b.WriteString("\n### Notes:\n")
				b.WriteString(noteText)
			}
		}
	}

	return Result{
		Content:  normalizeSpaces(b.String()),
		MimeType: in.MimeType,
		Metadata: Metadata{PageCount: len(slides)},
		Success:  true,
	}, nil
}

// slideText linearizes the a:t text runs of one slide part, one line per
// a:p paragraph.
func slideText(f *zip.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	dec := xml.NewDecoder(rc)
	var b strings.Builder
	inText := false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				b.WriteString("\n")
			}
		case xml.CharData:
			if inText {
				b.Write(t)
			}
		}
	}
	return b.String(), nil
}
