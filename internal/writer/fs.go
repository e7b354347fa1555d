// Package writer puts compiled snapshots on disk and prunes output files
// no rep produces.
package writer

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/roach88/folio/internal/ir"
)

const bufSize = 64 * 1024

// FS writes snapshot content below an output directory. Files whose bytes
// already match are left alone, so their mtime survives a rebuild.
type FS struct {
	root  string
	permF os.FileMode
	permD os.FileMode
}

// New returns a writer rooted at outputDir.
func New(outputDir string) (*FS, error) {
	if strings.TrimSpace(outputDir) == "" {
		return nil, errors.New("writer: output directory is required")
	}
	return &FS{root: outputDir, permF: 0o644, permD: 0o755}, nil
}

// Root returns the output directory.
func (w *FS) Root() string { return w.root }

// Write writes c to path, which must lie below the output directory. It
// reports whether the file changed.
func (w *FS) Write(path string, c ir.Content) (bool, error) {
	if err := w.checkPath(path); err != nil {
		return false, err
	}

	src, err := open(c)
	if err != nil {
		return false, err
	}
	defer src.Close()

	same, err := sameBytes(path, c)
	if err != nil {
		return false, err
	}
	if same {
		return false, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), w.permD); err != nil {
		return false, fmt.Errorf("create output directory: %w", err)
	}
	if err := w.writeAtomic(path, src); err != nil {
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	return true, nil
}

func (w *FS) checkPath(path string) error {
	rel, err := filepath.Rel(w.root, path)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("writer: %s is outside %s", path, w.root)
	}
	return nil
}

// writeAtomic writes to a temp file in the destination directory and
// renames it over path.
func (w *FS) writeAtomic(path string, r io.Reader) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	_ = os.Chmod(tmpPath, w.permF)

	bw := bufio.NewWriterSize(tmp, bufSize)
	if _, err := io.Copy(bw, r); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := bw.Flush(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}

// open returns a reader over the bytes of c.
func open(c ir.Content) (io.ReadCloser, error) {
	if c.IsBinary() {
		f, err := os.Open(c.Filename())
		if err != nil {
			return nil, fmt.Errorf("open binary content: %w", err)
		}
		return f, nil
	}
	s, err := c.Text()
	if err != nil {
		return nil, err
	}
	return io.NopCloser(strings.NewReader(s)), nil
}

// sameBytes reports whether the file at path holds exactly the bytes of c.
func sameBytes(path string, c ir.Content) (bool, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !info.Mode().IsRegular() {
		return false, nil
	}

	if !c.IsBinary() {
		s, err := c.Text()
		if err != nil {
			return false, err
		}
		if int64(len(s)) != info.Size() {
			return false, nil
		}
		existing, err := os.ReadFile(path)
		if err != nil {
			return false, err
		}
		return string(existing) == s, nil
	}

	srcInfo, err := os.Stat(c.Filename())
	if err != nil {
		return false, err
	}
	if srcInfo.Size() != info.Size() {
		return false, nil
	}
	if os.SameFile(srcInfo, info) {
		return true, nil
	}
	return sameFileContents(c.Filename(), path)
}

func sameFileContents(a, b string) (bool, error) {
	fa, err := os.Open(a)
	if err != nil {
		return false, err
	}
	defer fa.Close()
	fb, err := os.Open(b)
	if err != nil {
		return false, err
	}
	defer fb.Close()

	ra := bufio.NewReaderSize(fa, bufSize)
	rb := bufio.NewReaderSize(fb, bufSize)
	bufA := make([]byte, bufSize)
	bufB := make([]byte, bufSize)
	for {
		na, errA := io.ReadFull(ra, bufA)
		nb, errB := io.ReadFull(rb, bufB)
		if na != nb || !bytes.Equal(bufA[:na], bufB[:nb]) {
			return false, nil
		}
		doneA := errors.Is(errA, io.EOF) || errors.Is(errA, io.ErrUnexpectedEOF)
		doneB := errors.Is(errB, io.EOF) || errors.Is(errB, io.ErrUnexpectedEOF)
		if doneA || doneB {
			return doneA && doneB, nil
		}
		if errA != nil {
			return false, errA
		}
		if errB != nil {
			return false, errB
		}
	}
}
