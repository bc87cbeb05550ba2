// Package vfs is an in-memory header store consulted before the host file
// system when resolving #include names.
package vfs

import (
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
)

// DefaultQuota is the default capacity of an Overlay in bytes (16 MiB).
const DefaultQuota = 16 << 20

// validName accepts slash-separated header names such as "sys/types.h".
var validName = regexp.MustCompile(`^[A-Za-z0-9_.+-]+(/[A-Za-z0-9_.+-]+)*$`)

var (
	ErrFileNotFound    = errors.New("file not found")
	ErrInvalidFilename = errors.New("invalid filename")
	ErrQuotaExceeded   = errors.New("overlay quota exceeded")
)

// Overlay maps header names to their contents. It is safe for concurrent
// use.
type Overlay struct {
	mu        sync.RWMutex
	files     map[string][]byte
	usedBytes int
	quota     int
}

// New creates an empty Overlay holding at most quota bytes. A quota of zero
// or less selects DefaultQuota.
func New(quota int) *Overlay {
	if quota <= 0 {
		quota = DefaultQuota
	}
	return &Overlay{
		files: make(map[string][]byte),
		quota: quota,
	}
}

// validate normalizes name and rejects anything that could escape the
// overlay root.
func validate(name string) (string, error) {
	name = strings.TrimPrefix(path.Clean(filepath.ToSlash(name)), "./")
	if !validName.MatchString(name) {
		return "", ErrInvalidFilename
	}
	for _, seg := range strings.Split(name, "/") {
		if seg == "." || seg == ".." {
			return "", ErrInvalidFilename
		}
	}
	return name, nil
}

// Write stores a copy of data under name, replacing any previous content.
func (o *Overlay) Write(name string, data []byte) error {
	name, err := validate(name)
	if err != nil {
		return err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	oldSize := len(o.files[name])
	if o.usedBytes-oldSize+len(data) > o.quota {
		return ErrQuotaExceeded
	}

	buf := make([]byte, len(data))
	copy(buf, data)
	o.files[name] = buf
	o.usedBytes += len(data) - oldSize
	return nil
}

// Read returns the content stored under name. The slice must not be
// modified.
func (o *Overlay) Read(name string) ([]byte, error) {
	name, err := validate(name)
	if err != nil {
		return nil, err
	}

	o.mu.RLock()
	defer o.mu.RUnlock()

	data, ok := o.files[name]
	if !ok {
		return nil, ErrFileNotFound
	}
	return data, nil
}

// UsedBytes returns the total size of all stored headers.
func (o *Overlay) UsedBytes() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.usedBytes
}

// List returns the sorted names of all stored headers.
func (o *Overlay) List() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()

	names := make([]string, 0, len(o.files))
	for name := range o.files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoadFrom adds every file below dir, named by its slash-separated path
// relative to dir. Files with names the overlay cannot hold are skipped.
// A missing dir is not an error.
func (o *Overlay) LoadFrom(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil
	}

	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		if _, err := validate(rel); err != nil {
			return nil
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		return o.Write(rel, data)
	})
}
