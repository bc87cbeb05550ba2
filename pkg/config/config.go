// Package config loads driver settings from an ini file.
package config

import (
	"fmt"
	"strings"

	ini "gopkg.in/ini.v1"

	"chocc/pkg/cpp"
	"chocc/pkg/include"
	"chocc/pkg/utils"
)

// Source configures how files are read.
type Source struct {
	Trigraphs     bool
	LenientSplice bool
	Charset       string
}

// Include configures header resolution.
type Include struct {
	QuotePaths  []string
	Paths       []string
	SystemPaths []string
	Skip        []string
	Overlay     string // directory loaded into the in-memory overlay
	MaxDepth    int
	CacheSize   int
}

// Preprocessor configures macro processing.
type Preprocessor struct {
	Defines           []string
	Undefs            []string
	MaxExpansionDepth int
	Pragmas           []string
	KeepComments      bool
}

// Log configures the logger.
type Log struct {
	Level       string
	Development bool
}

// Config is the complete driver configuration.
type Config struct {
	Source       Source
	Include      Include
	Preprocessor Preprocessor
	Log          Log
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Include: Include{
			MaxDepth:  cpp.DefaultMaxIncludeDepth,
			CacheSize: include.DefaultCacheSize,
		},
		Preprocessor: Preprocessor{
			MaxExpansionDepth: cpp.DefaultMaxExpansionDepth,
			Pragmas:           append([]string(nil), cpp.DefaultPragmas...),
		},
		Log: Log{Level: "info"},
	}
}

// Load reads the ini file at path. Keys that are absent keep their default
// values.
func Load(path string) (*Config, error) {
	f, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading config %s: %w", path, err)
	}
	return parse(f)
}

// Parse reads configuration from ini-formatted data.
func Parse(data []byte) (*Config, error) {
	f, err := ini.Load(data)
	if err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return parse(f)
}

func parse(f *ini.File) (*Config, error) {
	c := Default()

	sec := f.Section("source")
	c.Source.Trigraphs = sec.Key("TRIGRAPHS").MustBool(false)
	c.Source.LenientSplice = sec.Key("LENIENT_SPLICE").MustBool(false)
	c.Source.Charset = sec.Key("CHARSET").MustString("")

	sec = f.Section("include")
	c.Include.QuotePaths = list(sec, "QUOTE_PATHS")
	c.Include.Paths = list(sec, "PATHS")
	c.Include.SystemPaths = list(sec, "SYSTEM_PATHS")
	c.Include.Skip = list(sec, "SKIP")
	c.Include.Overlay = sec.Key("OVERLAY").MustString("")
	c.Include.MaxDepth = sec.Key("MAX_DEPTH").MustInt(c.Include.MaxDepth)
	c.Include.CacheSize = sec.Key("CACHE_SIZE").MustInt(c.Include.CacheSize)

	sec = f.Section("preprocessor")
	c.Preprocessor.Defines = list(sec, "DEFINE")
	c.Preprocessor.Undefs = list(sec, "UNDEF")
	c.Preprocessor.MaxExpansionDepth = sec.Key("MAX_EXPANSION_DEPTH").MustInt(c.Preprocessor.MaxExpansionDepth)
	if sec.HasKey("PRAGMAS") {
		c.Preprocessor.Pragmas = list(sec, "PRAGMAS")
	}
	c.Preprocessor.KeepComments = sec.Key("KEEP_COMMENTS").MustBool(false)

	sec = f.Section("log")
	c.Log.Level = strings.ToLower(sec.Key("LEVEL").MustString(c.Log.Level))
	c.Log.Development = sec.Key("DEVELOPMENT").MustBool(false)

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func list(sec *ini.Section, key string) []string {
	return utils.SplitList(sec.Key(key).String())
}

// Validate checks the limits.
func (c *Config) Validate() error {
	switch {
	case c.Include.MaxDepth < 1:
		return fmt.Errorf("include MAX_DEPTH must be positive, got %d", c.Include.MaxDepth)
	case c.Include.CacheSize < 1:
		return fmt.Errorf("include CACHE_SIZE must be positive, got %d", c.Include.CacheSize)
	case c.Preprocessor.MaxExpansionDepth < 1:
		return fmt.Errorf("preprocessor MAX_EXPANSION_DEPTH must be positive, got %d", c.Preprocessor.MaxExpansionDepth)
	}
	return nil
}
