package hierarchy

import (
	"archive/zip"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// classpathEntry is one element of the lazy lookup path.
type classpathEntry interface {
	// load returns the raw class bytes for an internal name. found is
	// false when this entry simply does not contain the class.
	load(name string) (data []byte, found bool, err error)
}

func newClasspathEntry(path string) classpathEntry {
	lower := strings.ToLower(path)
	if strings.HasSuffix(lower, ".jar") || strings.HasSuffix(lower, ".zip") {
		return &jarEntry{path: path}
	}
	return dirEntry{root: path}
}

type dirEntry struct {
	root string
}

func (d dirEntry) load(name string) ([]byte, bool, error) {
	p := filepath.Join(d.root, filepath.FromSlash(name)+".class")
	data, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// jarEntry opens its archive on first use and keeps it open; the index
// maps internal class names to archive members.
type jarEntry struct {
	path string

	once  sync.Once
	rc    *zip.ReadCloser
	index map[string]*zip.File
	err   error
}

func (j *jarEntry) open() {
	rc, err := zip.OpenReader(j.path)
	if err != nil {
		j.err = err
		return
	}
	j.rc = rc
	j.index = make(map[string]*zip.File, len(rc.File))
	for _, f := range rc.File {
		if strings.HasSuffix(f.Name, ".class") {
			j.index[strings.TrimSuffix(f.Name, ".class")] = f
		}
	}
}

func (j *jarEntry) load(name string) ([]byte, bool, error) {
	j.once.Do(j.open)
	if j.err != nil {
		return nil, false, j.err
	}
	f, ok := j.index[name]
	if !ok {
		return nil, false, nil
	}
	r, err := f.Open()
	if err != nil {
		return nil, false, err
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (j *jarEntry) Close() error {
	if j.rc == nil {
		return nil
	}
	return j.rc.Close()
}

// Close releases any archives the lookup path has opened.
func (r *Resolver) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var first error
	for _, entry := range r.path {
		if c, ok := entry.(io.Closer); ok {
			if err := c.Close(); err != nil && first == nil {
				first = err
			}
		}
	}
	return first
}
