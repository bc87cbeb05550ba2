// Package include resolves #include names to source files.
package include

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/gobwas/glob"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"chocc/pkg/source"
	"chocc/pkg/utils"
	"chocc/pkg/vfs"
)

// ErrNotFound is returned when no search directory holds the header.
var ErrNotFound = errors.New("header not found")

// DefaultCacheSize is the number of header files kept in memory.
const DefaultCacheSize = 128

// Resolver turns the name in an #include directive into a loaded file. from
// is the name of the including file; angled is set for the <name> form.
type Resolver interface {
	Resolve(name string, angled bool, from string) (*source.File, error)
}

// Searcher resolves headers against an overlay and a list of directories.
// The quoted form searches the including file's directory and QuotePaths
// first; both forms then search Paths and SystemPaths. Searcher is safe for
// concurrent use.
type Searcher struct {
	QuotePaths  []string
	Paths       []string
	SystemPaths []string

	overlay  *vfs.Overlay
	skip     []glob.Glob
	cache    *lru.Cache[string, []byte]
	log      *zap.Logger
	loadOpts []source.Option

	hits, misses, bytesRead, overlayHits atomic.Int64
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithQuotePaths adds directories searched only for "name" includes.
func WithQuotePaths(dirs ...string) Option {
	return func(s *Searcher) error {
		s.QuotePaths = append(s.QuotePaths, dirs...)
		return nil
	}
}

// WithPaths adds -I directories.
func WithPaths(dirs ...string) Option {
	return func(s *Searcher) error {
		s.Paths = append(s.Paths, dirs...)
		return nil
	}
}

// WithSystemPaths adds directories searched last.
func WithSystemPaths(dirs ...string) Option {
	return func(s *Searcher) error {
		s.SystemPaths = append(s.SystemPaths, dirs...)
		return nil
	}
}

// WithOverlay makes the searcher look up names in o before the file system.
func WithOverlay(o *vfs.Overlay) Option {
	return func(s *Searcher) error {
		s.overlay = o
		return nil
	}
}

// WithSkip resolves headers whose name matches one of the glob patterns to
// an empty file.
func WithSkip(patterns ...string) Option {
	return func(s *Searcher) error {
		for _, p := range patterns {
			g, err := glob.Compile(p, '/')
			if err != nil {
				return fmt.Errorf("skip pattern %q: %w", p, err)
			}
			s.skip = append(s.skip, g)
		}
		return nil
	}
}

// WithCacheSize sets how many header files are kept in memory.
func WithCacheSize(n int) Option {
	return func(s *Searcher) error {
		c, err := lru.New[string, []byte](n)
		if err != nil {
			return fmt.Errorf("header cache: %w", err)
		}
		s.cache = c
		return nil
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(s *Searcher) error {
		s.log = l
		return nil
	}
}

// WithSourceOptions sets the options headers are loaded with.
func WithSourceOptions(opts ...source.Option) Option {
	return func(s *Searcher) error {
		s.loadOpts = opts
		return nil
	}
}

// NewSearcher builds a Searcher.
func NewSearcher(opts ...Option) (*Searcher, error) {
	s := &Searcher{log: zap.NewNop()}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	if s.cache == nil {
		if err := WithCacheSize(DefaultCacheSize)(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Resolve implements Resolver.
func (s *Searcher) Resolve(name string, angled bool, from string) (*source.File, error) {
	for _, g := range s.skip {
		if g.Match(name) {
			s.log.Debug("skipping header", zap.String("name", name))
			return source.New(name, nil), nil
		}
	}

	if s.overlay != nil && !filepath.IsAbs(name) {
		if data, err := s.overlay.Read(name); err == nil {
			s.overlayHits.Add(1)
			s.log.Debug("header from overlay", zap.String("name", name))
			return source.New(name, data, s.loadOpts...), nil
		}
	}

	var dirs []string
	if !angled {
		if from != "" {
			dirs = append(dirs, filepath.Dir(from))
		}
		dirs = append(dirs, s.QuotePaths...)
	}
	dirs = append(dirs, s.Paths...)
	dirs = append(dirs, s.SystemPaths...)

	for _, p := range utils.SearchCandidates(name, dirs...) {
		if data, ok := s.cache.Get(p); ok {
			s.hits.Add(1)
			s.log.Debug("header cache hit", zap.String("path", p))
			return source.New(p, data, s.loadOpts...), nil
		}
		if !utils.IsRegularFile(p) {
			continue
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, &source.AccessError{Path: p, Err: err}
		}
		s.misses.Add(1)
		s.bytesRead.Add(int64(len(data)))
		s.cache.Add(p, data)
		s.log.Debug("resolved header", zap.String("name", name), zap.String("path", p), zap.Bool("angled", angled))
		return source.New(p, data, s.loadOpts...), nil
	}

	s.log.Debug("header not found", zap.String("name", name), zap.Strings("dirs", dirs))
	return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
}

// Stats describes the work a Searcher has done.
type Stats struct {
	CacheHits   int64
	FilesRead   int64
	BytesRead   int64
	CachedFiles int

	// OverlayHeaders lists the overlay's contents; OverlayBytes is their
	// total size and OverlayHits counts includes served from it.
	OverlayHeaders []string
	OverlayBytes   int
	OverlayHits    int64
}

// Stats returns the current counters.
func (s *Searcher) Stats() Stats {
	st := Stats{
		CacheHits:   s.hits.Load(),
		FilesRead:   s.misses.Load(),
		BytesRead:   s.bytesRead.Load(),
		CachedFiles: s.cache.Len(),
		OverlayHits: s.overlayHits.Load(),
	}
	if s.overlay != nil {
		st.OverlayHeaders = s.overlay.List()
		st.OverlayBytes = s.overlay.UsedBytes()
	}
	return st
}
