package ir

import (
	"fmt"
	"path"
	"strings"
)

// Identifier is the hierarchical, path-like key of an item or layout,
// e.g. "/blog/2024/hello.md". Identifiers always start with a slash and
// never end with one (except the root "/").
type Identifier string

// String returns the identifier as a plain string.
func (id Identifier) String() string {
	return string(id)
}

// Validate reports whether the identifier is well formed.
func (id Identifier) Validate() error {
	s := string(id)
	switch {
	case s == "":
		return fmt.Errorf("identifier is empty")
	case !strings.HasPrefix(s, "/"):
		return fmt.Errorf("identifier %q must start with a slash", s)
	case len(s) > 1 && strings.HasSuffix(s, "/"):
		return fmt.Errorf("identifier %q must not end with a slash", s)
	case strings.Contains(s, "//"):
		return fmt.Errorf("identifier %q contains an empty component", s)
	}
	return nil
}

// Ext returns the last extension without the dot ("md" for "/a.md").
func (id Identifier) Ext() string {
	ext := path.Ext(path.Base(string(id)))
	return strings.TrimPrefix(ext, ".")
}

// WithoutExt strips the last extension ("/a.tar.gz" -> "/a.tar").
func (id Identifier) WithoutExt() string {
	s := string(id)
	return strings.TrimSuffix(s, path.Ext(path.Base(s)))
}

// WithoutExts strips every extension ("/a.tar.gz" -> "/a").
func (id Identifier) WithoutExts() string {
	dir, base := path.Split(string(id))
	if i := strings.Index(base, "."); i > 0 {
		base = base[:i]
	}
	return dir + base
}

// Components returns the slash separated components.
func (id Identifier) Components() []string {
	trimmed := strings.Trim(string(id), "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

// Dir returns the directory part ("/blog/a.md" -> "/blog").
func (id Identifier) Dir() string {
	return path.Dir(string(id))
}
