package scripting

import (
	"context"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"

	"github.com/wudi/extractkit/extract"
	"github.com/wudi/extractkit/observability"
)

// Hook runs a user-supplied script against each extraction result. It
// satisfies the extraction engine's post-processing hook contract: the
// script sees a 'document' object and may rewrite its content, title,
// and attributes in place.
//
// A fresh runtime is created per invocation; goja runtimes are not safe
// for concurrent use and results may be processed in parallel.
type Hook struct {
	Script string
	Logger observability.Logger
}

func NewHook(script string) *Hook {
	return &Hook{Script: script, Logger: observability.NopLogger{}}
}

// Fingerprint identifies the script so results rewritten by it stay
// distinguishable in a shared result cache.
func (h *Hook) Fingerprint() string {
	sum := blake2b.Sum256([]byte(h.Script))
	return hex.EncodeToString(sum[:])
}

func (h *Hook) Apply(ctx context.Context, res *extract.Result) error {
	if h.Script == "" {
		return nil
	}
	logger := h.Logger
	if logger == nil {
		logger = observability.NopLogger{}
	}

	engine := NewEngine()
	if err := engine.RegisterDocument(&resultProxy{res: res, logger: logger}); err != nil {
		return fmt.Errorf("scripting: register document: %w", err)
	}
	if _, err := engine.Execute(ctx, h.Script); err != nil {
		return fmt.Errorf("scripting: %w", err)
	}
	return nil
}

// resultProxy adapts an extraction result to the DocumentProxy the
// scripting engine exposes.
type resultProxy struct {
	res    *extract.Result
	logger observability.Logger
}

func (p *resultProxy) Content() string           { return p.res.Content }
func (p *resultProxy) SetContent(content string) { p.res.Content = content }
func (p *resultProxy) MimeType() string          { return p.res.MimeType }
func (p *resultProxy) Title() string             { return p.res.Metadata.Title }
func (p *resultProxy) SetTitle(title string)     { p.res.Metadata.Title = title }

func (p *resultProxy) Attribute(key string) string {
	return p.res.Metadata.Additional[key]
}

func (p *resultProxy) SetAttribute(key, value string) {
	if p.res.Metadata.Additional == nil {
		p.res.Metadata.Additional = make(map[string]string)
	}
	p.res.Metadata.Additional[key] = value
}

func (p *resultProxy) Log(message string) {
	p.logger.Info("script log", observability.String("message", message))
}
