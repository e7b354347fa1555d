package datasource

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/folio/internal/ir"
	"github.com/roach88/folio/internal/site"
)

// Attributes added to every loaded document.
const (
	AttrContentFilename = "content_filename"
	AttrExtension       = "extension"
)

// FrontMatterError reports malformed front matter.
type FrontMatterError struct {
	Filename string
	Message  string
}

func (e *FrontMatterError) Error() string {
	return fmt.Sprintf("%s: front matter: %s", e.Filename, e.Message)
}

// FS loads items and layouts from the directories named by a Config.
type FS struct {
	cfg Config
}

// NewFS returns a filesystem data source.
func NewFS(cfg Config) *FS {
	return &FS{cfg: cfg}
}

// Load reads every item and layout into a new draft. A missing layouts
// directory is treated as empty; a missing content directory is an error.
func (s *FS) Load(ctx context.Context) (*site.Draft, error) {
	draft := site.NewDraft()
	conf, err := s.cfg.SiteConfig()
	if err != nil {
		return nil, err
	}
	draft.Config = conf

	if err := s.walk(ctx, s.cfg.ContentPath(), true, func(id ir.Identifier, c ir.Content, attrs ir.IRObject) error {
		return draft.AddItem(&site.DraftItem{Identifier: id, Content: c, Attributes: attrs})
	}); err != nil {
		return nil, fmt.Errorf("load items: %w", err)
	}
	if err := s.walk(ctx, s.cfg.LayoutsPath(), false, func(id ir.Identifier, c ir.Content, attrs ir.IRObject) error {
		return draft.AddLayout(&site.DraftLayout{Identifier: id, Content: c, Attributes: attrs})
	}); err != nil {
		return nil, fmt.Errorf("load layouts: %w", err)
	}

	slog.Debug("site read from disk",
		"content_dir", s.cfg.ContentPath(),
		"items", len(draft.Items()),
		"layouts", len(draft.Layouts()))
	return draft, nil
}

type addFunc func(id ir.Identifier, c ir.Content, attrs ir.IRObject) error

func (s *FS) walk(ctx context.Context, dir string, required bool, add addFunc) error {
	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) && !required {
			return nil
		}
		return err
	}
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if path != dir && ignored(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		id := ir.Identifier("/" + filepath.ToSlash(rel))
		c, attrs, err := s.read(path)
		if err != nil {
			return err
		}
		attrs[AttrContentFilename] = ir.IRString(s.siteRelative(path))
		attrs[AttrExtension] = ir.IRString(extension(path))
		return add(id, c, attrs)
	})
}

// siteRelative keeps content_filename stable when the site moves.
func (s *FS) siteRelative(path string) string {
	if s.cfg.Root == "" {
		return filepath.ToSlash(path)
	}
	rel, err := filepath.Rel(s.cfg.Root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// ignored skips hidden files and editor backups.
func ignored(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasSuffix(name, "~")
}

func extension(path string) string {
	return strings.TrimPrefix(filepath.Ext(path), ".")
}

func (s *FS) read(path string) (ir.Content, ir.IRObject, error) {
	if !s.cfg.IsText(extension(path)) {
		return ir.NewBinaryContent(path), ir.IRObject{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return ir.Content{}, nil, err
	}
	attrs, body, err := ParseFrontMatter(path, data)
	if err != nil {
		return ir.Content{}, nil, err
	}
	return ir.NewTextualContent(body, path), attrs, nil
}

// ParseFrontMatter splits data into YAML front matter and body. Front
// matter starts on the first line with "---" and ends at the next line
// that is exactly "---". Data without an opening delimiter has no
// attributes.
func ParseFrontMatter(filename string, data []byte) (ir.IRObject, string, error) {
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	first, rest, ok := strings.Cut(text, "\n")
	if strings.TrimRight(first, " \t") != "---" {
		return ir.IRObject{}, text, nil
	}
	if !ok {
		return nil, "", &FrontMatterError{Filename: filename, Message: "no closing ---"}
	}

	var header string
	var body string
	found := false
	offset := 0
	for offset <= len(rest) {
		line, tail, more := strings.Cut(rest[offset:], "\n")
		if strings.TrimRight(line, " \t") == "---" {
			header = rest[:offset]
			body = tail
			if !more {
				body = ""
			}
			found = true
			break
		}
		if !more {
			break
		}
		offset += len(line) + 1
	}
	if !found {
		return nil, "", &FrontMatterError{Filename: filename, Message: "no closing ---"}
	}

	m := map[string]any{}
	decoder := yaml.NewDecoder(bytes.NewReader([]byte(header)))
	if err := decoder.Decode(&m); err != nil && !errors.Is(err, io.EOF) {
		return nil, "", &FrontMatterError{Filename: filename, Message: err.Error()}
	}
	attrs, err := ir.ObjectFromMap(m)
	if err != nil {
		return nil, "", &FrontMatterError{Filename: filename, Message: err.Error()}
	}
	return attrs, strings.TrimPrefix(body, "\n"), nil
}
