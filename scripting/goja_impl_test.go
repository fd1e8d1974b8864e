package scripting

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestGojaEngine_ContextCancellation(t *testing.T) {
	engine := NewEngine()

	ctx, cancel := context.WithTimeout(context.Background(), 25*time.Millisecond)
	defer cancel()

	if _, err := engine.Execute(ctx, "while (true) {}"); err == nil || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context deadline error, got %v", err)
	}

	if _, err := engine.Execute(context.Background(), "1 + 1"); err != nil {
		t.Fatalf("engine should recover after cancellation, got %v", err)
	}
}

func TestGojaEngine_ImmediateCancel(t *testing.T) {
	engine := NewEngine()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := engine.Execute(ctx, "42"); err == nil || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled error, got %v", err)
	}
}

type fakeDocument struct {
	content string
	title   string
	attrs   map[string]string
	logs    []string
}

func (d *fakeDocument) Content() string          { return d.content }
func (d *fakeDocument) SetContent(c string)      { d.content = c }
func (d *fakeDocument) MimeType() string         { return "text/plain" }
func (d *fakeDocument) Title() string            { return d.title }
func (d *fakeDocument) SetTitle(t string)        { d.title = t }
func (d *fakeDocument) Attribute(k string) string { return d.attrs[k] }
func (d *fakeDocument) SetAttribute(k, v string) {
	if d.attrs == nil {
		d.attrs = make(map[string]string)
	}
	d.attrs[k] = v
}
func (d *fakeDocument) Log(msg string) { d.logs = append(d.logs, msg) }

func TestGojaEngine_DocumentBinding(t *testing.T) {
	engine := NewEngine()
	doc := &fakeDocument{content: "one two", attrs: map[string]string{"lang": "en"}}

	if err := engine.RegisterDocument(doc); err != nil {
		t.Fatalf("RegisterDocument() error = %v", err)
	}

	script := `
		log("seen " + document.getAttribute("lang"));
		document.content = document.content.split(" ").length + " words";
		document.setAttribute("counted", "yes");
	`
	if _, err := engine.Execute(context.Background(), script); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if doc.content != "2 words" {
		t.Fatalf("content = %q, want %q", doc.content, "2 words")
	}
	if doc.attrs["counted"] != "yes" {
		t.Fatalf("attrs = %v, setAttribute did not reach the document", doc.attrs)
	}
	if len(doc.logs) != 1 || doc.logs[0] != "seen en" {
		t.Fatalf("logs = %v", doc.logs)
	}
}
