package ir

import (
	"fmt"
	"os"
	"sync"
)

// Content is an immutable textual or binary content value.
//
// Textual content is held in memory and may be loaded lazily. Binary content
// is referenced by filename and never read into memory by the core.
type Content struct {
	binary   bool
	filename string
	text     *lazyText
}

type lazyText struct {
	once sync.Once
	load func() (string, error)
	val  string
	err  error
}

func (l *lazyText) get() (string, error) {
	l.once.Do(func() {
		if l.load != nil {
			l.val, l.err = l.load()
			l.load = nil
		}
	})
	return l.val, l.err
}

// NewTextualContent returns textual content with the given string.
// filename is optional and only used for diagnostics.
func NewTextualContent(s, filename string) Content {
	return Content{filename: filename, text: &lazyText{val: s, load: nil}}
}

// NewLazyTextualContent returns textual content whose string is read from
// filename on first access.
func NewLazyTextualContent(filename string) Content {
	return Content{
		filename: filename,
		text: &lazyText{load: func() (string, error) {
			data, err := os.ReadFile(filename)
			if err != nil {
				return "", fmt.Errorf("read content %s: %w", filename, err)
			}
			return string(data), nil
		}},
	}
}

// NewBinaryContent returns binary content backed by filename.
func NewBinaryContent(filename string) Content {
	return Content{binary: true, filename: filename}
}

// IsBinary reports whether the content is binary.
func (c Content) IsBinary() bool {
	return c.binary
}

// IsZero reports whether c is the zero Content.
func (c Content) IsZero() bool {
	return !c.binary && c.text == nil && c.filename == ""
}

// Filename returns the backing file for binary content, or the source file
// of textual content if known.
func (c Content) Filename() string {
	return c.filename
}

// Text returns the string of textual content.
func (c Content) Text() (string, error) {
	if c.binary {
		return "", fmt.Errorf("binary content %s has no text", c.filename)
	}
	if c.text == nil {
		return "", nil
	}
	return c.text.get()
}

// Kind returns "binary" or "textual".
func (c Content) Kind() string {
	if c.binary {
		return "binary"
	}
	return "textual"
}
