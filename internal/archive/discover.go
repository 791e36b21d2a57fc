package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/starford/chatnotes/internal/apperr"
)

// Source is one JSON document to read: a file on disk or a zip entry.
type Source struct {
	Name string
	open func() (io.ReadCloser, error)
}

// Open returns a reader over the source.
func (s Source) Open() (io.ReadCloser, error) {
	return s.open()
}

// Set is a discovered list of sources. Close releases any open archive.
type Set struct {
	Sources []Source
	closer  io.Closer
}

// Close releases resources held by the set.
func (s *Set) Close() error {
	if s == nil || s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// Discover resolves source into JSON documents: a .json file, a directory of
// *.json files in name order, or a .zip archive whose .json entries are read
// in place. A missing source is fatal.
func Discover(source string) (*Set, error) {
	info, err := os.Stat(source)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: source not found: %s", apperr.ErrFatal, source)
		}
		return nil, fmt.Errorf("%w: stat source: %v", apperr.ErrFatal, err)
	}
	if info.IsDir() {
		return discoverDir(source)
	}
	switch strings.ToLower(filepath.Ext(source)) {
	case ".json":
		return &Set{Sources: []Source{fileSource(source)}}, nil
	case ".zip":
		return discoverZip(source)
	}
	return &Set{}, nil
}

func discoverDir(dir string) (*Set, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: read dir: %v", apperr.ErrFatal, err)
	}
	set := &Set{}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		set.Sources = append(set.Sources, fileSource(filepath.Join(dir, e.Name())))
	}
	return set, nil
}

func fileSource(p string) Source {
	return Source{
		Name: filepath.Base(p),
		open: func() (io.ReadCloser, error) { return os.Open(p) },
	}
}

// discoverZip lists .json entries by base name only, so entry paths can
// never point outside the archive.
func discoverZip(p string) (*Set, error) {
	zr, err := zip.OpenReader(p)
	if errors.Is(err, zip.ErrInsecurePath) && zr != nil {
		err = nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: open zip: %v", apperr.ErrFatal, err)
	}
	set := &Set{closer: zr}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || !strings.HasSuffix(f.Name, ".json") {
			continue
		}
		name := path.Base(f.Name)
		if strings.HasPrefix(name, "._") {
			continue
		}
		set.Sources = append(set.Sources, Source{Name: name, open: f.Open})
	}
	return set, nil
}
