package compiler

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chocc/pkg/config"
	"chocc/pkg/cpp"
	"chocc/pkg/diag"
	"chocc/pkg/source"
	"chocc/pkg/token"
)

func writeFile(t *testing.T, dir, name, src string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(src), 0o644))
	return p
}

func TestCompileSource(t *testing.T) {
	res, err := CompileSource("t.c", []byte("#define TWO 2\nint x = TWO;\n"), nil, nil)
	require.NoError(t, err)

	assert.Len(t, res.File.Lines, 2)
	assert.Equal(t, token.DirectiveHash, res.Raw.At(0).Kind)
	assert.Equal(t, "int x = 2 ;", res.Unit.String())
	assert.Zero(t, res.Diags.Len())
	assert.Empty(t, res.Headers)
}

func TestCompileFileIncludesRelativeToSource(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "src/local.h", "#define LOCAL 1\n")
	writeFile(t, dir, "inc/lib.h", "int lib(void);\n")
	main := writeFile(t, dir, "src/main.c", "#include \"local.h\"\n#include <lib.h>\nint v = LOCAL;\n")

	cfg := config.Default()
	cfg.Include.Paths = []string{filepath.Join(dir, "inc")}

	res, err := CompileFile(main, cfg, nil)
	require.NoError(t, err)
	assert.Zero(t, res.Diags.Len(), "%v", res.Diags.Diagnostics())
	assert.Equal(t, "int lib ( void ) ; int v = 1 ;", res.Unit.String())
	assert.Len(t, res.Headers, 2)
	assert.Equal(t, int64(2), res.Stats.FilesRead)
}

func TestCompileFileMissing(t *testing.T) {
	_, err := CompileFile(filepath.Join(t.TempDir(), "nope.c"), nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, source.ErrFileAccess)
}

func TestCompileConfigIsApplied(t *testing.T) {
	overlay := t.TempDir()
	writeFile(t, overlay, "gen/config.h", "#define GENERATED 5\n")

	cfg, err := config.Parse([]byte(`
[source]
TRIGRAPHS = true
[include]
SKIP    = sys/*.h
OVERLAY = ` + overlay + `
[preprocessor]
DEFINE = MODE=3
UNDEF  = __chocc__
`))
	require.NoError(t, err)

	src := "??=include <sys/types.h>\n#include \"gen/config.h\"\nMODE GENERATED __chocc__\n"
	res, err := CompileSource("t.c", []byte(src), cfg, nil)
	require.NoError(t, err)
	assert.Zero(t, res.Diags.Len(), "%v", res.Diags.Diagnostics())
	assert.Equal(t, "3 5 __chocc__", res.Unit.String())
	assert.Equal(t, []string{"gen/config.h"}, res.Stats.OverlayHeaders)
	assert.Equal(t, int64(1), res.Stats.OverlayHits)
}

func TestCompileFatal(t *testing.T) {
	res, err := CompileSource("t.c", []byte("#error nope\n"), nil, nil)
	require.Error(t, err)
	assert.True(t, cpp.IsFatal(err))
	require.NotNil(t, res)
	assert.Nil(t, res.Unit)
	assert.Len(t, res.Diags.OfKind(diag.FatalDirective), 1)
}

func TestCompileKeepsDiagnostics(t *testing.T) {
	res, err := CompileSource("t.c", []byte("char *s = \"open;\n#include \"none.h\"\n"), nil, nil)
	require.NoError(t, err)
	assert.Len(t, res.Diags.OfKind(diag.LexicalError), 1)
	assert.Len(t, res.Diags.OfKind(diag.DirectiveError), 1)
	assert.Error(t, res.Diags.Err())
}
