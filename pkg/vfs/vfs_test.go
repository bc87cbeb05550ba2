package vfs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOverlay_Write(t *testing.T) {
	tests := []struct {
		name         string
		filename     string
		data         []byte
		quota        int
		expectError  error
		expectedUsed int
	}{
		{
			name:         "Valid write",
			filename:     "stdio.h",
			data:         []byte("int puts(const char *);"),
			expectedUsed: 23,
		},
		{
			name:         "Nested header",
			filename:     "sys/types.h",
			data:         []byte{1, 2, 3},
			expectedUsed: 3,
		},
		{
			name:         "Leading dot slash",
			filename:     "./config.h",
			data:         []byte{1},
			expectedUsed: 1,
		},
		{
			name:        "Invalid characters",
			filename:    "bad name!.h",
			data:        []byte{1},
			expectError: ErrInvalidFilename,
		},
		{
			name:        "Path traversal",
			filename:    "../passwd",
			data:        []byte{1},
			expectError: ErrInvalidFilename,
		},
		{
			name:        "Absolute path",
			filename:    "/etc/passwd",
			data:        []byte{1},
			expectError: ErrInvalidFilename,
		},
		{
			name:        "Quota exceeded",
			filename:    "big.h",
			data:        make([]byte, 11),
			quota:       10,
			expectError: ErrQuotaExceeded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := New(tt.quota)
			err := o.Write(tt.filename, tt.data)
			if tt.expectError != nil {
				assert.ErrorIs(t, err, tt.expectError)
				assert.Zero(t, o.UsedBytes())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectedUsed, o.UsedBytes())

			got, err := o.Read(tt.filename)
			require.NoError(t, err)
			assert.Equal(t, tt.data, got)
		})
	}
}

func TestOverlay_Read(t *testing.T) {
	o := New(0)
	require.NoError(t, o.Write("a.h", []byte("x")))

	_, err := o.Read("missing.h")
	assert.ErrorIs(t, err, ErrFileNotFound)

	_, err = o.Read("../a.h")
	assert.ErrorIs(t, err, ErrInvalidFilename)
}

func TestOverlay_Replace(t *testing.T) {
	o := New(0)
	require.NoError(t, o.Write("u.h", []byte{1, 2, 3, 4, 5}))
	require.NoError(t, o.Write("u.h", []byte{1, 2}))
	assert.Equal(t, 2, o.UsedBytes())
	assert.Equal(t, []string{"u.h"}, o.List())
}

func TestOverlay_DeepCopy(t *testing.T) {
	o := New(0)
	data := []byte{1, 2, 3}
	require.NoError(t, o.Write("m.h", data))
	data[0] = 99

	got, err := o.Read("m.h")
	require.NoError(t, err)
	assert.Equal(t, byte(1), got[0])
}

func TestOverlay_QuotaExact(t *testing.T) {
	o := New(10)
	require.NoError(t, o.Write("a.h", make([]byte, 9)))
	assert.ErrorIs(t, o.Write("b.h", []byte{1, 2}), ErrQuotaExceeded)
	require.NoError(t, o.Write("b.h", []byte{1}))
	assert.Equal(t, 10, o.UsedBytes())
}

func TestOverlay_List(t *testing.T) {
	o := New(0)
	assert.Empty(t, o.List())
	require.NoError(t, o.Write("z.h", []byte("z")))
	require.NoError(t, o.Write("sys/a.h", []byte("a")))
	assert.Equal(t, []string{"sys/a.h", "z.h"}, o.List())
	assert.Equal(t, 2, o.UsedBytes())
}

func TestOverlay_LoadFrom(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sys"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "top.h"), []byte("#define TOP 1\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sys", "types.h"), []byte("typedef int t;\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sys", "bad name.h"), []byte("x"), 0o644))

	o := New(0)
	require.NoError(t, o.LoadFrom(dir))
	assert.Equal(t, []string{"sys/types.h", "top.h"}, o.List())

	data, err := o.Read("sys/types.h")
	require.NoError(t, err)
	assert.Equal(t, "typedef int t;\n", string(data))

	assert.NoError(t, o.LoadFrom(filepath.Join(dir, "missing")))
}
