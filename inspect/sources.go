package inspect

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"

	"rcss/archive"
	"rcss/stylesheet"
)

type sourceKind int

const (
	kindCSS sourceKind = iota
	kindHTML
	kindXML
)

func (k sourceKind) String() string {
	switch k {
	case kindHTML:
		return "html"
	case kindXML:
		return "xml"
	}
	return "css"
}

var (
	extKinds = map[string]sourceKind{
		".css":   kindCSS,
		".html":  kindHTML,
		".htm":   kindHTML,
		".xhtml": kindHTML,
		".svg":   kindXML,
		".fb2":   kindXML,
		".xml":   kindXML,
	}

	htmlType = filetype.NewType("html", "text/html")
	xmlType  = filetype.NewType("xml", "application/xml")
)

func init() {
	filetype.AddMatcher(htmlType, htmlMatcher)
	filetype.AddMatcher(xmlType, xmlMatcher)
}

// sniffLen is how much of the file content is looked at to detect its type.
const sniffLen = 512

func markupHead(buf []byte) []byte {
	buf = buf[:min(len(buf), sniffLen)]
	buf = bytes.TrimPrefix(buf, []byte{0xEF, 0xBB, 0xBF})
	return bytes.ToLower(bytes.TrimSpace(buf))
}

func htmlMatcher(buf []byte) bool {
	head := markupHead(buf)
	return bytes.HasPrefix(head, []byte("<!doctype html")) ||
		bytes.HasPrefix(head, []byte("<html")) ||
		(bytes.HasPrefix(head, []byte("<?xml")) && bytes.Contains(head, []byte("<html")))
}

func xmlMatcher(buf []byte) bool {
	head := markupHead(buf)
	return bytes.HasPrefix(head, []byte("<?xml")) || bytes.HasPrefix(head, []byte("<svg")) || bytes.HasPrefix(head, []byte("<fictionbook"))
}

// detectKind selects front end for source by its extension, unknown
// extensions are resolved by looking at content. Anything unrecognized is
// treated as CSS.
func detectKind(name string, data []byte) sourceKind {
	if k, ok := extKinds[strings.ToLower(path.Ext(name))]; ok {
		return k
	}
	switch {
	case filetype.IsType(data, htmlType):
		return kindHTML
	case filetype.IsType(data, xmlType):
		return kindXML
	}
	return kindCSS
}

// archiveExts select entries of archives, generic xml there is mostly
// container metadata.
var archiveExts = []string{".css", ".html", ".htm", ".xhtml", ".svg", ".fb2"}

// source is a single style source read from file system or archive.
type source struct {
	name string
	data []byte
}

func isArchive(name string) (bool, error) {
	f, err := os.Open(name)
	if err != nil {
		return false, err
	}
	defer f.Close()

	head := make([]byte, 262)
	n, err := f.Read(head)
	if err != nil && n == 0 {
		// empty file cannot be an archive
		return false, nil
	}
	return filetype.IsArchive(head[:n]), nil
}

// collect resolves command line argument into sources and calls visit for
// each of them in order. Argument could be a path to a file, to a directory
// (walked recursively, only files with known extensions are considered) or
// path to zip archive (epub) optionally followed by path inside of it.
func collect(ctx context.Context, arg string, log *zap.Logger, visit func(source) error) error {
	src, err := filepath.Abs(arg)
	if err != nil {
		return err
	}

	var head, tail string
	for head = src; len(head) != 0; head, tail = filepath.Split(head) {
		if err := ctx.Err(); err != nil {
			return err
		}

		head = strings.TrimSuffix(head, string(filepath.Separator))

		fi, err := os.Stat(head)
		if err != nil {
			// does not exists - probably path in archive
			continue
		}

		if fi.Mode().IsDir() {
			if len(tail) != 0 {
				// directory cannot have tail - it would be simple file
				return fmt.Errorf("input source was not found (%s) => (%s)", head, strings.TrimPrefix(src, head))
			}
			return collectDir(ctx, head, log, visit)
		}
		if !fi.Mode().IsRegular() {
			return fmt.Errorf("unexpected path mode for (%s) => (%s)", head, strings.TrimPrefix(src, head))
		}

		arc, err := isArchive(head)
		if err != nil {
			return fmt.Errorf("unable to check archive type: %w", err)
		}
		if arc {
			inner := strings.TrimPrefix(strings.TrimPrefix(src, head), string(filepath.Separator))
			return collectArchive(ctx, head, filepath.ToSlash(inner), visit)
		}
		if len(tail) != 0 {
			return fmt.Errorf("input is not an archive (%s) => (%s)", head, strings.TrimPrefix(src, head))
		}

		data, err := os.ReadFile(head)
		if err != nil {
			return fmt.Errorf("unable to read source: %w", err)
		}
		return visit(source{name: head, data: data})
	}
	return fmt.Errorf("input source was not found (%s)", arg)
}

func collectDir(ctx context.Context, dir string, log *zap.Logger, visit func(source) error) error {
	count := 0
	err := filepath.WalkDir(dir, func(name string, d fs.DirEntry, err error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err != nil {
			log.Warn("Skipping path", zap.String("path", name), zap.Error(err))
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if _, ok := extKinds[strings.ToLower(filepath.Ext(name))]; ok {
			data, err := os.ReadFile(name)
			if err != nil {
				log.Warn("Skipping file", zap.String("file", name), zap.Error(err))
				return nil
			}
			count++
			return visit(source{name: name, data: data})
		}
		arc, err := isArchive(name)
		if err != nil {
			log.Warn("Skipping file", zap.String("file", name), zap.Error(err))
			return nil
		}
		if arc {
			if err := collectArchive(ctx, name, "", visit); err != nil {
				log.Error("Unable to process archive", zap.String("file", name), zap.Error(err))
			}
			count++
		}
		return nil
	})
	if err == nil && count == 0 {
		log.Debug("Nothing to process", zap.String("dir", dir))
	}
	return err
}

func collectArchive(ctx context.Context, name, inner string, visit func(source) error) error {
	return archive.Walk(name, inner, archive.ByExtension(archiveExts...), func(arc, entry string, data []byte) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return visit(source{name: filepath.Join(arc, filepath.FromSlash(entry)), data: data})
	})
}

// load parses source with front end selected by its kind. Fallback encoding
// is used for CSS which does not declare its own.
func load(p *stylesheet.Parser, src source, fallback encoding.Encoding) (*stylesheet.Stylesheet, error) {
	switch detectKind(src.name, src.data) {
	case kindHTML:
		r, err := charset.NewReader(bytes.NewReader(src.data), "text/html")
		if err != nil {
			return nil, fmt.Errorf("unable to detect html encoding: %w", err)
		}
		return p.ParseHTML(r, src.name)
	case kindXML:
		return p.ParseXML(bytes.NewReader(src.data), src.name)
	}
	data, err := stylesheet.DecodeFallback(src.data, fallback)
	if err != nil {
		return nil, err
	}
	return p.Parse(data, src.name), nil
}
