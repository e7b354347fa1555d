// Package checksum computes the structural fingerprints used to detect
// changes between runs, and holds the previous and current fingerprints.
package checksum

import (
	"fmt"
	"os"
	"strings"

	"github.com/roach88/folio/internal/ir"
	"github.com/roach88/folio/internal/rules"
	"github.com/roach88/folio/internal/site"
	"github.com/roach88/folio/internal/store"
)

// ForContent returns the content checksum. Textual content is hashed by
// its bytes, binary content by file size and modification time.
func ForContent(c ir.Content) (string, error) {
	if c.IsBinary() {
		fi, err := os.Stat(c.Filename())
		if err != nil {
			return "", fmt.Errorf("checksum binary content: %w", err)
		}
		return ir.Checksum(ir.IRObject{
			"size":  ir.IRInt(fi.Size()),
			"mtime": ir.IRInt(fi.ModTime().UnixNano()),
		})
	}
	text, err := c.Text()
	if err != nil {
		return "", fmt.Errorf("checksum textual content: %w", err)
	}
	return ir.HashBytes(ir.DomainContent, []byte(text)), nil
}

// ForAttributes returns the checksum of attrs as a whole and per key.
func ForAttributes(attrs ir.IRObject) (string, map[string]string, error) {
	whole, err := ir.Checksum(attrs)
	if err != nil {
		return "", nil, fmt.Errorf("checksum attributes: %w", err)
	}
	perKey := make(map[string]string, len(attrs))
	for _, k := range attrs.SortedKeys() {
		sum, err := ir.Checksum(attrs[k])
		if err != nil {
			return "", nil, fmt.Errorf("checksum attribute %q: %w", k, err)
		}
		perKey[k] = sum
	}
	return whole, perKey, nil
}

// document is what items and layouts have in common.
type document interface {
	Content() ir.Content
	Attributes() ir.IRObject
}

// ForDocument returns the record of an item or layout.
func ForDocument(d document) (store.ChecksumRecord, error) {
	content, err := ForContent(d.Content())
	if err != nil {
		return store.ChecksumRecord{}, err
	}
	attrs, perKey, err := ForAttributes(d.Attributes())
	if err != nil {
		return store.ChecksumRecord{}, err
	}
	full, err := ir.Checksum(ir.IRObject{
		"content":    ir.IRString(content),
		"attributes": ir.IRString(attrs),
	})
	if err != nil {
		return store.ChecksumRecord{}, err
	}
	return store.ChecksumRecord{
		Full:          full,
		Content:       content,
		Attributes:    attrs,
		AttributeSums: perKey,
	}, nil
}

// ForConfig returns the record of the config. The config has no content;
// its keys are checksummed like attributes.
func ForConfig(config ir.IRObject) (store.ChecksumRecord, error) {
	attrs, perKey, err := ForAttributes(config)
	if err != nil {
		return store.ChecksumRecord{}, err
	}
	return store.ChecksumRecord{Full: attrs, Attributes: attrs, AttributeSums: perKey}, nil
}

// ForSnippet returns the record of a code snippet.
func ForSnippet(s rules.CodeSnippet) store.ChecksumRecord {
	sum := ir.HashBytes(ir.DomainChecksum, []byte(s.Source))
	return store.ChecksumRecord{Full: sum, Content: sum}
}

// ForCollection returns the record of an identifier collection. Its content
// checksum changes when an identifier is added or removed.
func ForCollection(identifiers []string) store.ChecksumRecord {
	sum := ir.HashBytes(ir.DomainChecksum, []byte(strings.Join(identifiers, "\n")))
	return store.ChecksumRecord{Full: sum, Content: sum}
}

// Compute returns the records of every object of s plus the code snippets.
func Compute(s *site.Site, snippets []rules.CodeSnippet) (map[ir.Reference]store.ChecksumRecord, error) {
	out := make(map[ir.Reference]store.ChecksumRecord, len(s.Items())+len(s.Layouts())+len(snippets)+3)

	for _, it := range s.Items() {
		rec, err := ForDocument(it)
		if err != nil {
			return nil, fmt.Errorf("item %s: %w", it.Identifier(), err)
		}
		out[it.Reference()] = rec
	}
	for _, l := range s.Layouts() {
		rec, err := ForDocument(l)
		if err != nil {
			return nil, fmt.Errorf("layout %s: %w", l.Identifier(), err)
		}
		out[l.Reference()] = rec
	}

	cfg, err := ForConfig(s.Config())
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	out[ir.ConfigRef] = cfg

	for _, sn := range snippets {
		out[ir.CodeSnippetRef(sn.Name)] = ForSnippet(sn)
	}
	out[ir.ItemsRef] = ForCollection(s.ItemIdentifiers())
	out[ir.LayoutsRef] = ForCollection(s.LayoutIdentifiers())
	return out, nil
}
