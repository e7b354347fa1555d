package content

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/roach88/folio/internal/ir"
)

const bucketEntries = "compiled_content"

// Cache persists the compiled snapshots of reps between runs in a bbolt
// file. Textual snapshots are stored inline; binary snapshots are
// hard-linked (or copied) into a directory and stored by path.
//
// Entries are keyed by rep reference and carry a fingerprint; a lookup
// with another fingerprint is a miss. Put only stages an entry, and Persist
// writes the staged entries that differ from what is stored.
type Cache struct {
	db        *bolt.DB
	binaryDir string
	pending   map[ir.Reference]pendingEntry
}

type pendingEntry struct {
	fingerprint string
	snapshots   map[string]ir.Content
}

type entry struct {
	Fingerprint string                   `json:"fingerprint"`
	Snapshots   map[string]snapshotEntry `json:"snapshots"`
}

type snapshotEntry struct {
	Binary bool   `json:"binary,omitempty"`
	Text   string `json:"text,omitempty"`
	Path   string `json:"path,omitempty"`
	Digest string `json:"digest,omitempty"`
}

// OpenCache opens or creates the cache database at path. Binary snapshots
// are kept under binaryDir.
func OpenCache(path, binaryDir string) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	db, err := bolt.Open(path, 0o644, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open compiled content cache: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketEntries))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize compiled content cache: %w", err)
	}
	return &Cache{db: db, binaryDir: binaryDir, pending: map[ir.Reference]pendingEntry{}}, nil
}

// Close closes the database. Staged entries that were not persisted are lost.
func (c *Cache) Close() error {
	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	return err
}

// Get returns the stored snapshots of rep when the stored fingerprint
// equals fingerprint.
func (c *Cache) Get(rep ir.Reference, fingerprint string) (map[string]ir.Content, bool, error) {
	e, ok, err := c.load(rep)
	if err != nil || !ok || e.Fingerprint != fingerprint {
		return nil, false, err
	}

	out := make(map[string]ir.Content, len(e.Snapshots))
	for name, s := range e.Snapshots {
		if !s.Binary {
			out[name] = ir.NewTextualContent(s.Text, "")
			continue
		}
		if _, err := os.Stat(s.Path); err != nil {
			slog.Debug("cached binary snapshot missing", "rep", rep, "snapshot", name, "path", s.Path)
			return nil, false, nil
		}
		out[name] = ir.NewBinaryContent(s.Path)
	}
	return out, true, nil
}

// Put stages the snapshots of rep for Persist.
func (c *Cache) Put(rep ir.Reference, fingerprint string, snapshots map[string]ir.Content) {
	c.pending[rep] = pendingEntry{fingerprint: fingerprint, snapshots: snapshots}
}

// Persist writes staged entries that differ from the stored ones and
// removes entries of reps not in live. A nil live keeps every entry. It
// returns the reps whose entry was written.
func (c *Cache) Persist(live []ir.Reference) ([]ir.Reference, error) {
	var written []ir.Reference
	keys := make([]ir.Reference, 0, len(c.pending))
	for k := range c.pending {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	err := c.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketEntries))
		for _, rep := range keys {
			p := c.pending[rep]
			e, err := c.buildEntry(rep, p)
			if err != nil {
				return err
			}
			if prev := b.Get([]byte(rep)); prev != nil && sameEntry(prev, e) {
				continue
			}
			if err := c.storeBinaries(rep, &e, p); err != nil {
				return err
			}
			data, err := json.Marshal(e)
			if err != nil {
				return fmt.Errorf("encode cache entry %s: %w", rep, err)
			}
			if err := b.Put([]byte(rep), data); err != nil {
				return fmt.Errorf("write cache entry %s: %w", rep, err)
			}
			written = append(written, rep)
		}

		if live == nil {
			return nil
		}
		var stale [][]byte
		cur := b.Cursor()
		for k, _ := cur.First(); k != nil; k, _ = cur.Next() {
			if !slices.Contains(live, ir.Reference(k)) {
				stale = append(stale, slices.Clone(k))
			}
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return fmt.Errorf("prune cache entry %s: %w", k, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	c.pending = map[ir.Reference]pendingEntry{}
	return written, nil
}

func (c *Cache) load(rep ir.Reference) (entry, bool, error) {
	var e entry
	var found bool
	err := c.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(bucketEntries)).Get([]byte(rep))
		if v == nil {
			return nil
		}
		found = true
		return json.Unmarshal(v, &e)
	})
	if err != nil {
		return entry{}, false, fmt.Errorf("read cache entry %s: %w", rep, err)
	}
	return e, found, nil
}

// buildEntry describes p without touching the binary directory. Binary
// snapshots are identified by the digest of their bytes.
func (c *Cache) buildEntry(rep ir.Reference, p pendingEntry) (entry, error) {
	e := entry{Fingerprint: p.fingerprint, Snapshots: make(map[string]snapshotEntry, len(p.snapshots))}
	for name, content := range p.snapshots {
		if !content.IsBinary() {
			text, err := content.Text()
			if err != nil {
				return entry{}, fmt.Errorf("cache %s snapshot %s: %w", rep, name, err)
			}
			e.Snapshots[name] = snapshotEntry{Text: text}
			continue
		}
		digest, err := fileDigest(content.Filename())
		if err != nil {
			return entry{}, fmt.Errorf("cache %s snapshot %s: %w", rep, name, err)
		}
		e.Snapshots[name] = snapshotEntry{Binary: true, Path: c.binaryPath(rep, name), Digest: digest}
	}
	return e, nil
}

func (c *Cache) storeBinaries(rep ir.Reference, e *entry, p pendingEntry) error {
	for name, s := range e.Snapshots {
		if !s.Binary {
			continue
		}
		src := p.snapshots[name].Filename()
		if src == s.Path {
			continue
		}
		if err := LinkOrCopy(src, s.Path); err != nil {
			return fmt.Errorf("cache %s snapshot %s: %w", rep, name, err)
		}
	}
	return nil
}

func (c *Cache) binaryPath(rep ir.Reference, snapshot string) string {
	sum := sha256.Sum256([]byte(string(rep) + "\x00" + snapshot))
	return filepath.Join(c.binaryDir, hex.EncodeToString(sum[:16]))
}

func sameEntry(stored []byte, e entry) bool {
	var prev entry
	if err := json.Unmarshal(stored, &prev); err != nil {
		return false
	}
	if prev.Fingerprint != e.Fingerprint || len(prev.Snapshots) != len(e.Snapshots) {
		return false
	}
	for name, s := range e.Snapshots {
		if prev.Snapshots[name] != s {
			return false
		}
	}
	return true
}

func fileDigest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// LinkOrCopy places src at dst, replacing dst. It hard-links when possible
// and copies otherwise (e.g. across devices).
func LinkOrCopy(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	if err := os.Remove(dst); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if err := os.Link(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
