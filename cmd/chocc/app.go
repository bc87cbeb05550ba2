package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"chocc/pkg/compiler"
	"chocc/pkg/config"
	"chocc/pkg/diag"
	"chocc/pkg/lexer"
	"chocc/pkg/logging"
	"chocc/pkg/source"
	"chocc/pkg/token"
	"chocc/pkg/utils"
)

func newApp(stdout, stderr io.Writer) *cli.App {
	app := cli.NewApp()
	app.Name = "chocc"
	app.Usage = "C source loader, lexer and preprocessor"
	app.Writer = stdout
	app.ErrWriter = stderr
	app.DisableSliceFlagSeparator = true
	app.Flags = globalFlags()
	app.Commands = []*cli.Command{
		cmdLines(),
		cmdLex(),
		cmdPreprocess(),
	}
	return app
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Load settings from an ini `FILE`",
		},
		&cli.BoolFlag{
			Name:  "debug",
			Usage: "Log debug output to stderr",
		},
		&cli.StringSliceFlag{
			Name:    "include",
			Aliases: []string{"I"},
			Usage:   "Add `DIR` to the include search path",
		},
		&cli.StringSliceFlag{
			Name:    "define",
			Aliases: []string{"D"},
			Usage:   "Define a macro: NAME, NAME=VALUE or NAME(ARGS)=BODY",
		},
		&cli.StringSliceFlag{
			Name:    "undef",
			Aliases: []string{"U"},
			Usage:   "Remove a predefined or -D macro",
		},
		&cli.BoolFlag{
			Name:  "trigraphs",
			Usage: "Replace ??x trigraph sequences",
		},
		&cli.StringFlag{
			Name:  "charset",
			Usage: "Decode input from `CHARSET` (\"auto\" to detect)",
		},
		&cli.StringFlag{
			Name:  "color",
			Value: "auto",
			Usage: "Color diagnostics: auto, always or never",
		},
	}
}

func cmdLines() *cli.Command {
	return &cli.Command{
		Name:      "lines",
		Usage:     "Print the logical lines of a file after splicing",
		ArgsUsage: "FILE",
		Action:    runLines,
	}
}

func cmdLex() *cli.Command {
	return &cli.Command{
		Name:      "lex",
		Usage:     "Print the raw tokens of a file",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "comments", Usage: "Keep comment tokens"},
		},
		Action: runLex,
	}
}

func cmdPreprocess() *cli.Command {
	return &cli.Command{
		Name:      "pp",
		Aliases:   []string{"preprocess"},
		Usage:     "Preprocess a file",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "tokens", Usage: "Print one token per line instead of text"},
			&cli.BoolFlag{Name: "stats", Usage: "Print include statistics to stderr"},
		},
		Action: runPreprocess,
	}
}

// setup loads the configuration, applies command-line overrides and builds
// the logger.
func setup(c *cli.Context) (*config.Config, *zap.Logger, error) {
	cfg := config.Default()
	if path := c.String("config"); path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return nil, nil, err
		}
	}

	cfg.Include.Paths = append(cfg.Include.Paths, c.StringSlice("include")...)
	cfg.Preprocessor.Defines = append(cfg.Preprocessor.Defines, c.StringSlice("define")...)
	cfg.Preprocessor.Undefs = append(cfg.Preprocessor.Undefs, c.StringSlice("undef")...)
	if c.IsSet("trigraphs") {
		cfg.Source.Trigraphs = c.Bool("trigraphs")
	}
	if c.IsSet("charset") {
		cfg.Source.Charset = c.String("charset")
	}
	if c.Bool("debug") {
		cfg.Log.Level = "debug"
		cfg.Log.Development = true
	}

	log, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

func fileArg(c *cli.Context) (string, error) {
	if c.NArg() != 1 {
		return "", fmt.Errorf("%s: expected exactly one FILE argument", c.Command.Name)
	}
	return c.Args().First(), nil
}

func useColor(c *cli.Context) bool {
	switch c.String("color") {
	case "always":
		return true
	case "never":
		return false
	}
	f, ok := c.App.ErrWriter.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

func newPrinter(c *cli.Context, files ...*source.File) *diag.Printer {
	p := diag.NewPrinter(c.App.ErrWriter, useColor(c))
	for _, f := range files {
		p.AddSource(f)
	}
	return p
}

func load(c *cli.Context, cfg *config.Config) (*source.File, error) {
	path, err := fileArg(c)
	if err != nil {
		return nil, err
	}
	full, _, err := utils.GetPathInfo(path)
	if err != nil {
		return nil, err
	}
	return source.Load(full, compiler.SourceOptions(cfg)...)
}

func runLines(c *cli.Context) error {
	cfg, log, err := setup(c)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	f, err := load(c, cfg)
	if err != nil {
		return err
	}

	w := bufio.NewWriter(c.App.Writer)
	defer w.Flush()
	for _, ln := range f.Lines {
		splice, dir := ' ', ' '
		if ln.Spliced {
			splice = '+'
		}
		if ln.Directive {
			dir = '#'
		}
		fmt.Fprintf(w, "%4d %c%c| %s\n", ln.Number, splice, dir, ln.Text)
	}
	if n := len(f.Lines); n > 0 && f.Lines[n-1].Unterminated {
		fmt.Fprintf(c.App.ErrWriter, "%s:%d: warning: backslash-newline at end of file\n", f.Name, n)
	}
	return nil
}

func runLex(c *cli.Context) error {
	cfg, log, err := setup(c)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	f, err := load(c, cfg)
	if err != nil {
		return err
	}

	var opts []lexer.Option
	if c.Bool("comments") || cfg.Preprocessor.KeepComments {
		opts = append(opts, lexer.KeepComments())
	}
	bag := diag.NewBag()
	u := lexer.Lex(f, bag, opts...)

	w := bufio.NewWriter(c.App.Writer)
	for _, t := range u.Tokens() {
		fmt.Fprintln(w, t)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return report(c, bag, f)
}

func runPreprocess(c *cli.Context) error {
	cfg, log, err := setup(c)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	path, err := fileArg(c)
	if err != nil {
		return err
	}
	res, err := compiler.CompileFile(path, cfg, log)
	if res == nil {
		return err
	}

	files := []*source.File{res.File}
	for _, h := range res.Headers {
		files = append(files, h)
	}
	if c.Bool("stats") {
		printStats(c.App.ErrWriter, res)
	}
	if err != nil {
		_ = report(c, res.Diags, files...)
		return err
	}

	if c.Bool("tokens") {
		w := bufio.NewWriter(c.App.Writer)
		for _, t := range res.Unit.Tokens() {
			fmt.Fprintln(w, t)
		}
		if err := w.Flush(); err != nil {
			return err
		}
	} else if err := render(c.App.Writer, res.Unit); err != nil {
		return err
	}
	return report(c, res.Diags, files...)
}

// report prints the collected diagnostics and fails when any is an error.
func report(c *cli.Context, bag *diag.Bag, files ...*source.File) error {
	if bag.Len() == 0 {
		return nil
	}
	p := newPrinter(c, files...)
	for _, d := range bag.Diagnostics() {
		p.Print(d)
	}
	p.Summary(bag)
	if bag.HasErrors() {
		return errors.New("compilation failed")
	}
	return nil
}

func printStats(w io.Writer, res *compiler.Result) {
	s := res.Stats
	tokens := 0
	if res.Unit != nil {
		tokens = res.Unit.Len()
	}
	fmt.Fprintf(w, "%s tokens, %s headers read (%s), %s cache hits\n",
		humanize.Comma(int64(tokens)),
		humanize.Comma(s.FilesRead),
		humanize.IBytes(uint64(s.BytesRead)),
		humanize.Comma(s.CacheHits))
	if len(s.OverlayHeaders) > 0 {
		fmt.Fprintf(w, "%s overlay headers (%s), %s used\n",
			humanize.Comma(int64(len(s.OverlayHeaders))),
			humanize.IBytes(uint64(s.OverlayBytes)),
			humanize.Comma(s.OverlayHits))
	}
}

// render writes u as text. Tokens that were on one source line stay on one
// output line, separated by single spaces.
func render(w io.Writer, u *token.Unit) error {
	bw := bufio.NewWriter(w)
	atStart := true
	line := 0
	for _, t := range u.Tokens() {
		switch {
		case t.Kind == token.EOF:
			continue
		case t.Kind == token.Newline:
			bw.WriteByte('\n')
			atStart = true
			continue
		case !atStart && (t.Line != line || t.Kind == token.DirectiveHash):
			bw.WriteByte('\n')
			atStart = true
		}
		if !atStart {
			bw.WriteByte(' ')
		}
		bw.WriteString(t.Text)
		atStart = false
		line = t.Line
	}
	if !atStart {
		bw.WriteByte('\n')
	}
	return bw.Flush()
}
