package cpp

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chocc/pkg/diag"
	"chocc/pkg/include"
	"chocc/pkg/vfs"
)

func overlayResolver(t *testing.T, files map[string]string, opts ...include.Option) *include.Searcher {
	t.Helper()
	ov := vfs.New(vfs.DefaultQuota)
	for name, src := range files {
		require.NoError(t, ov.Write(name, []byte(src)))
	}
	s, err := include.NewSearcher(append([]include.Option{include.WithOverlay(ov)}, opts...)...)
	require.NoError(t, err)
	return s
}

func TestInclude(t *testing.T) {
	r := overlayResolver(t, map[string]string{
		"defs.h":  "#ifndef DEFS_H\n#define DEFS_H\n#define N 3\nint shared;\n#endif\n",
		"once.h":  "#pragma once\nint once;\n",
		"where.h": "__FILE__ __LINE__\n",
	})

	out, bag := pp(t, `#include "defs.h"
#include "defs.h"
#include "once.h"
#include "once.h"
#define HDR "where.h"
#include HDR
int a[N]; __FILE__`, WithResolver(r))
	require.Zero(t, bag.Len(), "%v", bag.Diagnostics())
	assert.Equal(t, `int shared ; int once ; "where.h" 1 int a [ 3 ] ; "t.c"`, out.String())
}

func TestIncludeSearchPaths(t *testing.T) {
	sys := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(sys, "sys.h"), []byte("#define SYS 42\n"), 0o644))

	s, err := include.NewSearcher(include.WithSystemPaths(sys))
	require.NoError(t, err)

	out, bag := pp(t, "#include <sys.h>\nSYS", WithResolver(s))
	require.Zero(t, bag.Len(), "%v", bag.Diagnostics())
	assert.Equal(t, "42", out.String())
}

func TestIncludeNotFound(t *testing.T) {
	r := overlayResolver(t, nil)
	out, bag := pp(t, "#include \"nope.h\"\n#include <also.h>\n#include\nint x;", WithResolver(r))
	assert.Equal(t, "int x ;", out.String())
	assert.Equal(t, []string{
		"'nope.h' file not found",
		"'also.h' file not found",
		`#include expects "FILENAME" or <FILENAME>`,
	}, messages(bag.OfKind(diag.DirectiveError)))

	_, bag = pp(t, "#include \"nope.h\"")
	assert.Equal(t, 1, bag.ErrorCount())
}

func TestIncludeDepthIsFatal(t *testing.T) {
	r := overlayResolver(t, map[string]string{"self.h": "#include \"self.h\"\n"})
	out, bag, err := run(t, "#include \"self.h\"", WithResolver(r), WithMaxIncludeDepth(5))
	require.Error(t, err)
	assert.True(t, IsFatal(err))
	assert.Nil(t, out)
	assert.Len(t, bag.OfKind(diag.FatalDirective), 1)
}

func TestConditionalsDoNotCrossFiles(t *testing.T) {
	r := overlayResolver(t, map[string]string{
		"open.h":  "#if 1\nopen\n",
		"close.h": "#endif\n",
	})
	out, bag := pp(t, "#if 1\n#include \"open.h\"\n#include \"close.h\"\nmain\n#endif", WithResolver(r))
	assert.Equal(t, "open main", out.String())

	ds := bag.OfKind(diag.DirectiveError)
	require.Len(t, ds, 2)
	assert.Equal(t, "unterminated conditional directive", ds[0].Message)
	assert.Equal(t, "open.h", ds[0].File)
	assert.Equal(t, "#endif without #if", ds[1].Message)
	assert.Equal(t, "close.h", ds[1].File)
}
