package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/wudi/extractkit/cache"
	"github.com/wudi/extractkit/config"
	"github.com/wudi/extractkit/dispatch"
	"github.com/wudi/extractkit/extract"
	"github.com/wudi/extractkit/ocr"
	"github.com/wudi/extractkit/ocr/tesseract"
	"github.com/wudi/extractkit/scripting"
	"golang.org/x/time/rate"
)

type options struct {
	configFile  string
	concurrency int
	reduction   string
	chunk       bool
	chunkSize   int
	ocrLangs    []string
	ocrPSM      int
	script      string
	jsonOut     bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "extract: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:   "extract [flags] <file>...",
		Short: "Extract text content from documents",
		Long: `Extract reads documents (plain text, markdown, HTML, PPTX, images)
and emits their text content. Files are processed concurrently under an
admission gate; images go through OCR when a tesseract install is present.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, args)
		},
	}

	cmd.Flags().StringVarP(&opts.configFile, "config", "c", "", "config file (discovered upward from the working directory by default)")
	cmd.Flags().IntVarP(&opts.concurrency, "concurrency", "n", 0, "maximum documents processed at once (0 = config or CPU count)")
	cmd.Flags().StringVarP(&opts.reduction, "reduction", "r", "", "token reduction mode: off, light, moderate")
	cmd.Flags().BoolVar(&opts.chunk, "chunk", false, "split content into chunks")
	cmd.Flags().IntVar(&opts.chunkSize, "chunk-size", 0, "maximum chunk size in characters")
	cmd.Flags().StringSliceVar(&opts.ocrLangs, "ocr-langs", nil, "OCR languages in priority order (e.g. eng,deu)")
	cmd.Flags().IntVar(&opts.ocrPSM, "ocr-psm", 0, "tesseract page segmentation mode (0 = engine default)")
	cmd.Flags().StringVar(&opts.script, "script", "", "JavaScript post-processing hook file")
	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "emit full results as JSON")

	return cmd
}

func run(cmd *cobra.Command, opts options, paths []string) error {
	cfg, err := config.Load(opts.configFile)
	if err != nil {
		return err
	}
	applyFlags(cfg, opts)

	engineCfg, err := buildEngineConfig(cfg)
	if err != nil {
		return err
	}

	d, err := dispatch.New(extract.NewEngine(engineCfg), dispatch.Config{
		Concurrency: cfg.Dispatch.Concurrency,
		RateLimit:   rate.Limit(cfg.Dispatch.RatePerSecond),
		RateBurst:   cfg.Dispatch.RateBurst,
	})
	if err != nil {
		return err
	}

	results := d.ExtractFiles(cmd.Context(), paths)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := d.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("drain: %w", err)
	}

	return emit(cmd, results, opts.jsonOut)
}

func applyFlags(cfg *config.Config, opts options) {
	if opts.concurrency > 0 {
		cfg.Dispatch.Concurrency = opts.concurrency
	}
	if opts.reduction != "" {
		cfg.Reduction.Mode = opts.reduction
	}
	if opts.chunk {
		cfg.Chunking.Enabled = true
	}
	if opts.chunkSize > 0 {
		cfg.Chunking.MaxCharacters = opts.chunkSize
	}
	if len(opts.ocrLangs) > 0 {
		cfg.OCR.Languages = opts.ocrLangs
	}
	if opts.ocrPSM > 0 {
		cfg.OCR.PSM = opts.ocrPSM
	}
	if opts.script != "" {
		cfg.Scripting.HookScript = opts.script
	}
}

func buildEngineConfig(cfg *config.Config) (extract.Config, error) {
	engineCfg := extract.Config{
		Reduction:    cfg.ReduceConfig(),
		Chunking:     cfg.ChunkConfig(),
		OCRLanguages: cfg.OCR.Languages,
		OCRDPI:       cfg.OCR.DPI,
		OCRPSM:       cfg.OCR.PSM,
		OCRWhitelist: cfg.OCR.Whitelist,
	}
	// Validate() already constrained mode and backend values.
	if err := cfg.Validate(); err != nil {
		return extract.Config{}, err
	}

	switch cfg.OCR.Backend {
	case "tesseract":
		eng := tesseract.NewEngine()
		eng.DefaultLanguages = cfg.OCR.Languages
		engineCfg.OCREngine = eng
	default:
		// The tesseract package installs itself as the process-wide
		// default engine on import, so "none" must pin an explicit
		// no-op engine rather than leave the field nil.
		engineCfg.OCREngine = ocr.Disabled()
	}

	switch cfg.Cache.Backend {
	case "memory":
		engineCfg.Cache = cache.NewMemory(cfg.Cache.MaxEntries)
		engineCfg.CacheTTL = cfg.CacheTTL()
	case "redis":
		engineCfg.Cache = cache.NewRedisOptions(cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB)
		engineCfg.CacheTTL = cfg.CacheTTL()
	}

	if cfg.Scripting.HookScript != "" {
		script, err := os.ReadFile(cfg.Scripting.HookScript)
		if err != nil {
			return extract.Config{}, fmt.Errorf("read hook script: %w", err)
		}
		engineCfg.Hook = scripting.NewHook(string(script))
	}

	return engineCfg, nil
}

func emit(cmd *cobra.Command, results []dispatch.FileResult, jsonOut bool) error {
	if jsonOut {
		type fileOutput struct {
			Path   string          `json:"path"`
			Error  string          `json:"error,omitempty"`
			Result *extract.Result `json:"result,omitempty"`
		}
		out := make([]fileOutput, 0, len(results))
		for i := range results {
			fo := fileOutput{Path: results[i].Path}
			if results[i].Err != nil {
				fo.Error = results[i].Err.Error()
			} else {
				fo.Result = &results[i].Result
			}
			out = append(out, fo)
		}
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal results: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
	} else {
		for i := range results {
			if results[i].Err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "== %s ==\nerror: %v\n\n", results[i].Path, results[i].Err)
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "== %s ==\n%s\n\n", results[i].Path, results[i].Result.Content)
		}
	}

	var failed int
	for i := range results {
		if results[i].Err != nil {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(results))
	}
	return nil
}
