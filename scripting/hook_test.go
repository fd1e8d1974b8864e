package scripting

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/wudi/extractkit/extract"
)

func TestHook_RewritesContent(t *testing.T) {
	hook := NewHook(`document.content = document.content.toUpperCase()`)

	res := &extract.Result{Content: "hello", MimeType: "text/plain"}
	if err := hook.Apply(context.Background(), res); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if res.Content != "HELLO" {
		t.Fatalf("Content = %q, want HELLO", res.Content)
	}
}

func TestHook_ReadsMimeTypeAndSetsMetadata(t *testing.T) {
	hook := NewHook(`
		document.title = "Inferred Title";
		document.setAttribute("source-mime", document.mimeType);
	`)

	res := &extract.Result{Content: "body", MimeType: "text/markdown"}
	if err := hook.Apply(context.Background(), res); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if res.Metadata.Title != "Inferred Title" {
		t.Fatalf("Title = %q", res.Metadata.Title)
	}
	if got := res.Metadata.Additional["source-mime"]; got != "text/markdown" {
		t.Fatalf("Additional[source-mime] = %q", got)
	}
}

func TestHook_EmptyScriptIsNoop(t *testing.T) {
	res := &extract.Result{Content: "unchanged"}
	if err := NewHook("").Apply(context.Background(), res); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if res.Content != "unchanged" {
		t.Fatalf("Content = %q", res.Content)
	}
}

func TestHook_ScriptErrorSurfaces(t *testing.T) {
	res := &extract.Result{}
	if err := NewHook(`throw new Error("bad script")`).Apply(context.Background(), res); err == nil {
		t.Fatal("Apply() succeeded, want script error")
	}
}

func TestHook_ContextCancellation(t *testing.T) {
	hook := NewHook(`while (true) {}`)

	ctx, cancel := context.WithTimeout(context.Background(), 25*time.Millisecond)
	defer cancel()

	err := hook.Apply(ctx, &extract.Result{})
	if err == nil || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context deadline error, got %v", err)
	}
}

func TestHook_Fingerprint(t *testing.T) {
	a := NewHook(`document.setContent("a")`)
	b := NewHook(`document.setContent("b")`)

	if a.Fingerprint() != NewHook(a.Script).Fingerprint() {
		t.Fatal("same script must produce the same fingerprint")
	}
	if a.Fingerprint() == b.Fingerprint() {
		t.Fatal("different scripts must produce different fingerprints")
	}
	if a.Fingerprint() == "" {
		t.Fatal("fingerprint must not be empty")
	}
}
