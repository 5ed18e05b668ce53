// Package cache persists finished analysis runs on disk, keyed by the
// compilation content digest. A hit lets the driver skip the run and
// replay the recorded diagnostics.
package cache

import (
	"encoding/hex"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"prism/internal/compilation"
	"prism/internal/diag"
	"prism/internal/source"
)

// schemaVersion invalidates stored payloads when the format changes.
const schemaVersion uint16 = 1

// DiskCache stores analysis payloads under a directory, one msgpack file
// per compilation digest. Safe for concurrent use.
type DiskCache struct {
	mu  sync.RWMutex
	dir string
}

// Note mirrors diag.Note in a serializable form.
type Note struct {
	File       uint32
	Start, End uint32
	Msg        string
}

// Entry is one recorded diagnostic.
type Entry struct {
	Severity   uint8
	Code       uint16
	Analyzer   string
	Message    string
	File       uint32
	Start, End uint32
	Notes      []Note
}

// Payload is the cached result of one analysis run.
type Payload struct {
	Schema      uint16
	Digest      string
	Diagnostics []Entry
}

// Open initializes a cache rooted at dir. An empty dir selects the
// standard user cache location.
func Open(dir string) (*DiskCache, error) {
	if dir == "" {
		base := os.Getenv("XDG_CACHE_HOME")
		if base == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, err
			}
			base = filepath.Join(home, ".cache")
		}
		dir = filepath.Join(base, "prism")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskCache{dir: dir}, nil
}

func (c *DiskCache) pathFor(key compilation.Digest) string {
	return filepath.Join(c.dir, "runs", hex.EncodeToString(key[:])+".mp")
}

// Put serializes the payload and atomically replaces any previous entry.
func (c *DiskCache) Put(key compilation.Digest, payload *Payload) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	if err := msgpack.NewEncoder(f).Encode(payload); err != nil {
		f.Close()
		os.Remove(f.Name())
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return err
	}
	return os.Rename(f.Name(), p)
}

// Get reads the payload for the key. Returns false without error on a
// miss or a schema mismatch.
func (c *DiskCache) Get(key compilation.Digest, out *Payload) (bool, error) {
	if c == nil {
		return false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	defer f.Close()

	if err := msgpack.NewDecoder(f).Decode(out); err != nil {
		return false, err
	}
	if out.Schema != schemaVersion {
		return false, nil
	}
	return true, nil
}

// Encode converts a bag into a storable payload.
func Encode(digest compilation.Digest, items []diag.Diagnostic) *Payload {
	p := &Payload{Schema: schemaVersion, Digest: digest.String()}
	for _, d := range items {
		e := Entry{
			Severity: uint8(d.Severity),
			Code:     uint16(d.Code),
			Analyzer: d.Analyzer,
			Message:  d.Message,
			File:     uint32(d.Primary.File),
			Start:    d.Primary.Start,
			End:      d.Primary.End,
		}
		for _, n := range d.Notes {
			e.Notes = append(e.Notes, Note{
				File: uint32(n.Span.File), Start: n.Span.Start, End: n.Span.End, Msg: n.Msg,
			})
		}
		p.Diagnostics = append(p.Diagnostics, e)
	}
	return p
}

// Decode converts a payload back into diagnostics.
func Decode(p *Payload) []diag.Diagnostic {
	out := make([]diag.Diagnostic, 0, len(p.Diagnostics))
	for _, e := range p.Diagnostics {
		d := diag.Diagnostic{
			Severity: diag.Severity(e.Severity),
			Code:     diag.Code(e.Code),
			Analyzer: e.Analyzer,
			Message:  e.Message,
			Primary:  source.Span{File: source.FileID(e.File), Start: e.Start, End: e.End},
		}
		for _, n := range e.Notes {
			d.Notes = append(d.Notes, diag.Note{
				Span: source.Span{File: source.FileID(n.File), Start: n.Start, End: n.End},
				Msg:  n.Msg,
			})
		}
		out = append(out, d)
	}
	return out
}
