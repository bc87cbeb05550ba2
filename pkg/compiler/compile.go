// Package compiler runs the front-end pipeline:
//
//	bytes -> source.File -> token.Unit (raw) -> token.Unit (preprocessed)
//
// It wires configuration, logging and diagnostics into the stages.
package compiler

import (
	"fmt"

	"go.uber.org/zap"

	"chocc/pkg/config"
	"chocc/pkg/cpp"
	"chocc/pkg/diag"
	"chocc/pkg/include"
	"chocc/pkg/lexer"
	"chocc/pkg/source"
	"chocc/pkg/token"
	"chocc/pkg/utils"
	"chocc/pkg/vfs"
)

// Result holds everything produced for one translation unit.
type Result struct {
	File  *source.File
	Raw   *token.Unit
	Unit  *token.Unit // nil after a fatal directive
	Diags *diag.Bag

	// Headers maps every included file name to its contents.
	Headers map[string]*source.File
	Stats   include.Stats
}

// CompileFile loads path and runs every stage. Quoted includes are searched
// relative to the file's directory first.
func CompileFile(path string, cfg *config.Config, log *zap.Logger) (*Result, error) {
	fullPath, _, err := utils.GetPathInfo(path)
	if err != nil {
		return nil, err
	}
	f, err := source.Load(fullPath, SourceOptions(cfg)...)
	if err != nil {
		return nil, err
	}
	return run(f, cfg, log)
}

// CompileSource runs every stage over src.
func CompileSource(name string, src []byte, cfg *config.Config, log *zap.Logger) (*Result, error) {
	return run(source.New(name, src, SourceOptions(cfg)...), cfg, log)
}

// SourceOptions converts the [source] settings.
func SourceOptions(cfg *config.Config) []source.Option {
	var opts []source.Option
	if cfg.Source.Trigraphs {
		opts = append(opts, source.WithTrigraphs())
	}
	if cfg.Source.LenientSplice {
		opts = append(opts, source.WithLenientSplice())
	}
	if cfg.Source.Charset != "" {
		opts = append(opts, source.WithCharset(cfg.Source.Charset))
	}
	return opts
}

// NewSearcher builds the include service described by the [include]
// settings.
func NewSearcher(cfg *config.Config, log *zap.Logger) (*include.Searcher, error) {
	opts := []include.Option{
		include.WithQuotePaths(cfg.Include.QuotePaths...),
		include.WithPaths(cfg.Include.Paths...),
		include.WithSystemPaths(cfg.Include.SystemPaths...),
		include.WithSkip(cfg.Include.Skip...),
		include.WithCacheSize(cfg.Include.CacheSize),
		include.WithLogger(log),
		include.WithSourceOptions(SourceOptions(cfg)...),
	}
	if cfg.Include.Overlay != "" {
		ov := vfs.New(vfs.DefaultQuota)
		if err := ov.LoadFrom(cfg.Include.Overlay); err != nil {
			return nil, fmt.Errorf("loading include overlay: %w", err)
		}
		opts = append(opts, include.WithOverlay(ov))
	}
	return include.NewSearcher(opts...)
}

func run(f *source.File, cfg *config.Config, log *zap.Logger) (*Result, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if log == nil {
		log = zap.NewNop()
	}

	searcher, err := NewSearcher(cfg, log)
	if err != nil {
		return nil, err
	}
	rec := &recorder{Resolver: searcher, files: make(map[string]*source.File)}

	res := &Result{File: f, Diags: diag.NewBag()}

	var lexOpts []lexer.Option
	if cfg.Preprocessor.KeepComments {
		lexOpts = append(lexOpts, lexer.KeepComments())
	}
	res.Raw = lexer.Lex(f, res.Diags, lexOpts...)
	log.Debug("lexed", zap.String("file", f.Name), zap.Int("lines", len(f.Lines)), zap.Int("tokens", res.Raw.Len()))

	pp := cpp.New(
		cpp.WithLogger(log),
		cpp.WithSink(res.Diags),
		cpp.WithResolver(rec),
		cpp.WithMaxIncludeDepth(cfg.Include.MaxDepth),
		cpp.WithMaxExpansionDepth(cfg.Preprocessor.MaxExpansionDepth),
		cpp.WithDefines(cfg.Preprocessor.Defines...),
		cpp.WithUndefs(cfg.Preprocessor.Undefs...),
		cpp.WithPragmas(cfg.Preprocessor.Pragmas...),
	)
	res.Unit, err = pp.Preprocess(res.Raw)
	res.Headers = rec.snapshot()
	res.Stats = searcher.Stats()
	if err != nil {
		return res, err
	}

	log.Debug("preprocessed", zap.String("file", f.Name),
		zap.Int("tokens", res.Unit.Len()),
		zap.Int("errors", res.Diags.ErrorCount()),
		zap.Int("warnings", res.Diags.WarningCount()))
	return res, nil
}

// recorder remembers every file the wrapped Resolver returned, so
// diagnostics in headers can be printed with their source line.
type recorder struct {
	include.Resolver
	files map[string]*source.File
}

func (r *recorder) Resolve(name string, angled bool, from string) (*source.File, error) {
	f, err := r.Resolver.Resolve(name, angled, from)
	if err == nil {
		r.files[f.Name] = f
	}
	return f, err
}

func (r *recorder) snapshot() map[string]*source.File {
	out := make(map[string]*source.File, len(r.files))
	for k, v := range r.files {
		out[k] = v
	}
	return out
}
