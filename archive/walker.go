// Package archive walks style sources stored inside zip containers (epub
// books, theme packages and such).
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"path"
	"strings"
)

// WalkFunc is called for every matching entry. The archive argument is the
// path passed to Walk, name is the entry path inside archive and data is its
// complete content.
type WalkFunc func(archive, name string, data []byte) error

// MatchFunc selects entries to visit by their path inside archive.
type MatchFunc func(name string) bool

// ByExtension returns MatchFunc accepting names with one of the extensions
// (with leading dot), compared case insensitively.
func ByExtension(exts ...string) MatchFunc {
	return func(name string) bool {
		ext := strings.ToLower(path.Ext(name))
		for _, e := range exts {
			if ext == strings.ToLower(e) {
				return true
			}
		}
		return false
	}
}

// Walk visits files in the archive located under prefix and accepted by
// match (nil accepts everything), in archive order. Entries with absolute
// paths or ".." components make the whole archive invalid.
func Walk(archive, prefix string, match MatchFunc, walkFn WalkFunc) error {
	r, err := zip.OpenReader(archive)
	if err != nil {
		return err
	}
	defer r.Close()

	prefix = strings.TrimPrefix(path.Clean("/"+prefix), "/")

	for _, f := range r.File {
		name := f.Name
		if !isSafePath(name) {
			return fmt.Errorf("zip entry %q: unsafe path (absolute or contains path traversal)", name)
		}
		if f.FileInfo().IsDir() || !underPrefix(name, prefix) {
			continue
		}
		if match != nil && !match(name) {
			continue
		}
		data, err := readEntry(f)
		if err != nil {
			return fmt.Errorf("zip entry %q: %w", name, err)
		}
		if err := walkFn(archive, name, data); err != nil {
			return err
		}
	}
	return nil
}

// underPrefix checks that name is either prefix itself or located in prefix
// directory, so "css" does not select "css2/a.css".
func underPrefix(name, prefix string) bool {
	if len(prefix) == 0 || name == prefix {
		return true
	}
	return strings.HasPrefix(name, prefix+"/")
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// isSafePath returns false for paths that could escape the extraction
// directory: absolute paths and those containing ".." components.
func isSafePath(name string) bool {
	if path.IsAbs(name) || strings.HasPrefix(name, `\`) {
		return false
	}
	for _, part := range strings.Split(name, "/") {
		if part == ".." {
			return false
		}
	}
	return true
}
