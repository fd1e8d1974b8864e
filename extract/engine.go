package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/wudi/extractkit/cache"
	"github.com/wudi/extractkit/mime"
	"github.com/wudi/extractkit/observability"
	"github.com/wudi/extractkit/ocr"
	"github.com/wudi/extractkit/reduce"
)

// Hook post-processes an extraction result before it is returned. Hooks
// may rewrite the content or amend metadata.
type Hook interface {
	Apply(ctx context.Context, res *Result) error
}

// HookFingerprinter is implemented by hooks whose effect can be summarized
// as a stable identity string. The identity becomes part of the cache key,
// so engines with different hooks can share one store without serving each
// other's rewritten results. Results produced under a hook that has no
// fingerprint are not cached at all.
type HookFingerprinter interface {
	Fingerprint() string
}

// Config assembles an extraction engine.
type Config struct {
	// Chunking controls whether and how content is chunked.
	Chunking ChunkConfig
	// Reduction is applied to content before chunking.
	Reduction reduce.Config
	// OCREngine overrides the process-wide default OCR engine.
	OCREngine ocr.Engine
	// OCRLanguages are language hints passed to the OCR engine.
	OCRLanguages []string
	// OCRDPI is the assumed resolution for OCR inputs; zero means unknown.
	OCRDPI int
	// OCRPSM selects tesseract's page segmentation mode; zero keeps the
	// engine default.
	OCRPSM int
	// OCRWhitelist restricts recognition to the listed characters.
	OCRWhitelist string
	// Cache, when set, stores serialized results keyed by document content.
	Cache    cache.Store
	CacheTTL time.Duration
	// Hook runs after reduction and chunking.
	Hook Hook

	Logger      observability.Logger
	Tracer      observability.Tracer
	ExtractTime observability.Observer
}

// Engine validates MIME types, routes documents to extractors, and runs
// the shared post-processing pipeline.
type Engine struct {
	cfg      Config
	registry *Registry
	logger   observability.Logger
	tracer   observability.Tracer
}

// NewEngine builds an engine with the built-in extractors registered.
func NewEngine(cfg Config) *Engine {
	if cfg.Logger == nil {
		cfg.Logger = observability.NopLogger{}
	}
	if cfg.Tracer == nil {
		cfg.Tracer = observability.NopTracer()
	}
	e := &Engine{
		cfg:      cfg,
		registry: &Registry{},
		logger:   cfg.Logger,
		tracer:   cfg.Tracer,
	}
	e.registry.Register(textExtractor{})
	e.registry.Register(markdownExtractor{})
	e.registry.Register(htmlExtractor{})
	e.registry.Register(pptxExtractor{})
	e.registry.Register(imageExtractor{
		engine:    cfg.OCREngine,
		languages: cfg.OCRLanguages,
		dpi:       cfg.OCRDPI,
		psm:       cfg.OCRPSM,
		whitelist: cfg.OCRWhitelist,
	})
	return e
}

// Register adds an extractor, taking precedence over built-ins for the
// mime types it supports. This is how a PDF backend plugs in.
func (e *Engine) Register(x Extractor) { e.registry.Register(x) }

// ExtractFile extracts the document at path, deriving the MIME type from
// the file extension with a content-sniffing fallback.
func (e *Engine) ExtractFile(ctx context.Context, path string) (Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Result{}, &ParsingError{
			Message: "could not read file",
			Context: map[string]string{"path": path},
			Err:     err,
		}
	}
	mt, err := mime.Validate(path, "")
	if err != nil {
		mt, err = mime.Detect(data, path)
		if err != nil {
			return Result{}, &ValidationError{
				Message: "unsupported document type",
				Context: map[string]string{"path": path, "error": err.Error()},
			}
		}
	}
	return e.extract(ctx, Input{Data: data, Path: path, MimeType: mt})
}

// ExtractBytes extracts an in-memory document. When mimeType is empty the
// content is sniffed.
func (e *Engine) ExtractBytes(ctx context.Context, data []byte, mimeType string) (Result, error) {
	var mt string
	var err error
	if mimeType != "" {
		mt, err = mime.Validate("", mimeType)
	} else {
		mt, err = mime.Detect(data, "")
	}
	if err != nil {
		return Result{}, &ValidationError{
			Message: "unsupported document type",
			Context: map[string]string{"mime_type": mimeType, "error": err.Error()},
		}
	}
	return e.extract(ctx, Input{Data: data, MimeType: mt})
}

func (e *Engine) extract(ctx context.Context, in Input) (Result, error) {
	ctx, span := e.tracer.StartSpan(ctx, "extract")
	defer span.Finish()
	span.SetTag("mime_type", in.MimeType)
	start := time.Now()

	var key string
	if e.cacheable() {
		key = cache.Key(in.Data, e.fingerprint())
		if buf, ok, err := e.cfg.Cache.Get(ctx, key); err == nil && ok {
			var res Result
			if json.Unmarshal(buf, &res) == nil {
				e.logger.Debug("extraction cache hit",
					observability.String("mime_type", in.MimeType),
					observability.String("path", in.Path))
				span.SetTag("cache", "hit")
				return res, nil
			}
		} else if err != nil {
			e.logger.Warn("extraction cache get failed", observability.Error("error", err))
		}
	}

	extractor, ok := e.registry.Find(in.MimeType)
	if !ok {
		err := &MissingDependencyError{Dependency: "extractor for " + in.MimeType}
		span.SetError(err)
		return Result{}, err
	}

	res, err := extractor.Extract(ctx, in)
	if err != nil {
		span.SetError(err)
		return Result{}, err
	}

	if mode := e.cfg.Reduction.Mode; mode != "" && mode != reduce.ModeOff {
		reduced, err := reduce.Reduce(res.Content, e.cfg.Reduction, res.Metadata.Language)
		if err != nil {
			span.SetError(err)
			return Result{}, fmt.Errorf("token reduction: %w", err)
		}
		res.Content = reduced
	}
	if e.cfg.Chunking.Enabled {
		res.Chunks = chunkContent(res.Content, e.cfg.Chunking)
	}
	if e.cfg.Hook != nil {
		if err := e.cfg.Hook.Apply(ctx, &res); err != nil {
			span.SetError(err)
			return Result{}, fmt.Errorf("post-processing hook: %w", err)
		}
	}

	elapsed := time.Since(start)
	if e.cfg.ExtractTime != nil {
		e.cfg.ExtractTime.Observe(elapsed.Seconds())
	}
	if key != "" {
		if buf, err := json.Marshal(res); err == nil {
			if err := e.cfg.Cache.Set(ctx, key, buf, e.cfg.CacheTTL); err != nil {
				e.logger.Warn("extraction cache set failed", observability.Error("error", err))
			}
		}
	}

	e.logger.Debug("document extracted",
		observability.String("mime_type", in.MimeType),
		observability.String("path", in.Path),
		observability.Int("content_bytes", len(res.Content)),
		observability.Int("chunks", len(res.Chunks)),
		observability.Int64("duration_ms", elapsed.Milliseconds()))
	return res, nil
}

// cacheable reports whether results may be stored. A hook without a
// fingerprint makes the output unidentifiable, so caching is off then.
func (e *Engine) cacheable() bool {
	if e.cfg.Cache == nil {
		return false
	}
	if e.cfg.Hook == nil {
		return true
	}
	_, ok := e.cfg.Hook.(HookFingerprinter)
	return ok
}

// fingerprint captures every config knob that changes extraction output,
// for cache key derivation.
func (e *Engine) fingerprint() string {
	var b strings.Builder
	fmt.Fprintf(&b, "reduce=%s/%t/%s;", e.cfg.Reduction.Mode, e.cfg.Reduction.PreserveMarkdown, e.cfg.Reduction.LanguageHint)
	fmt.Fprintf(&b, "chunk=%t/%d/%d;", e.cfg.Chunking.Enabled, e.cfg.Chunking.MaxCharacters, e.cfg.Chunking.Overlap)
	fmt.Fprintf(&b, "ocr=%s/%d/%d/%s;", strings.Join(e.cfg.OCRLanguages, ","), e.cfg.OCRDPI, e.cfg.OCRPSM, e.cfg.OCRWhitelist)
	if f, ok := e.cfg.Hook.(HookFingerprinter); ok {
		fmt.Fprintf(&b, "hook=%s;", f.Fingerprint())
	}
	return b.String()
}
