// Package lookup implements sparse-indexed lookups over gzip-compressed
// tab-separated reference tables (OUI vendor, ADS-B ICAO, Bluetooth OID),
// grounded on the original kis_adsb_icao/kis_bt_oid sparse-index-every-N-
// lines design: a full linear scan of a compressed multi-megabyte table
// is too slow per lookup, so a sparse index of (key, byte offset) pairs
// is built once at load time and binary-searched, then a short forward
// scan from the nearest index entry finds the exact record.
package lookup

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// indexEntry pins a sorted key to the byte offset of the line it starts.
type indexEntry struct {
	key uint64
	pos int64
}

// indexStride mirrors the original's "every 50th line" sparse index.
const indexStride = 50

// Table is a sorted-key, tab-separated, gzip-backed lookup table. Records
// are addressed by a uint64 key (a MAC OUI as a 24-bit integer, an ICAO
// 24-bit address, or a Bluetooth OID) and parsed lazily via parse.
type Table[V any] struct {
	path  string
	index []indexEntry
	cache *lru[V]

	parse   func(fields []string) (V, error)
	keyOf   func(fields []string) (uint64, error)
	unknown V
}

// Options configures how a Table interprets each line of its source.
type Options[V any] struct {
	// KeyOf extracts the sort/lookup key from a line's tab-split fields.
	KeyOf func(fields []string) (uint64, error)
	// Parse builds the value record from a line's fields.
	Parse func(fields []string) (V, error)
	// Unknown is returned (with ok=false) when no record matches.
	Unknown V
	// CacheSize bounds the in-memory LRU cache of resolved records.
	// Defaults to 4096 when zero.
	CacheSize int
}

// Open builds a Table by streaming path once to construct the sparse
// index, then closes the initial reader; later lookups reopen the file
// and skip forward in the decompressed stream to the indexed offset,
// without holding a single decompressor across the table's lifetime
// (Go's gzip.Reader does not support arbitrary seeks backward).
func Open[V any](path string, opts Options[V]) (*Table[V], error) {
	cacheSize := opts.CacheSize
	if cacheSize == 0 {
		cacheSize = 4096
	}
	t := &Table[V]{
		path:    path,
		cache:   newLRU[V](cacheSize),
		parse:   opts.Parse,
		keyOf:   opts.KeyOf,
		unknown: opts.Unknown,
	}
	if err := t.buildIndex(); err != nil {
		return nil, err
	}
	return t, nil
}

// CacheStats reports the resolved-record LRU cache's cumulative counters.
func (t *Table[V]) CacheStats() Stats {
	return t.cache.stats()
}

func (t *Table[V]) buildIndex() error {
	f, err := os.Open(t.path)
	if err != nil {
		return fmt.Errorf("lookup: open %s: %w", t.path, err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("lookup: gzip %s: %w", t.path, err)
	}
	defer gz.Close()

	br := bufio.NewReader(gz)

	var (
		lineNo  int
		pos     int64
		lastKey uint64
		first   = true
	)

	for {
		startPos := pos
		line, err := br.ReadString('\n')
		pos += int64(len(line))
		if line != "" {
			if err2 := t.maybeIndex(line, lineNo, startPos, &lastKey, &first); err2 != nil {
				return err2
			}
			lineNo++
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("lookup: read %s: %w", t.path, err)
		}
	}
	return nil
}

func (t *Table[V]) maybeIndex(line string, lineNo int, pos int64, lastKey *uint64, first *bool) error {
	trimmed := strings.TrimRight(line, "\r\n")
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return nil
	}
	if lineNo%indexStride != 0 {
		return nil
	}
	fields := strings.Split(trimmed, "\t")
	key, err := t.keyOf(fields)
	if err != nil {
		return fmt.Errorf("lookup: bad key in %s at line %d: %w", t.path, lineNo, err)
	}
	if !*first && key < *lastKey {
		return fmt.Errorf("lookup: %s is not sorted ascending at line %d", t.path, lineNo)
	}
	*lastKey = key
	*first = false
	t.index = append(t.index, indexEntry{key: key, pos: pos})
	return nil
}

// Lookup finds the record whose key matches exactly, scanning forward
// from the nearest indexed offset below the target key.
func (t *Table[V]) Lookup(key uint64) (V, bool) {
	if v, ok := t.cache.get(key); ok {
		return v, true
	}

	if len(t.index) == 0 {
		return t.unknown, false
	}

	i := sort.Search(len(t.index), func(i int) bool { return t.index[i].key > key })
	if i == 0 {
		return t.unknown, false
	}
	start := t.index[i-1].pos

	f, err := os.Open(t.path)
	if err != nil {
		return t.unknown, false
	}
	defer f.Close()
	gz, err := gzip.NewReader(f)
	if err != nil {
		return t.unknown, false
	}
	defer gz.Close()
	// Index offsets count decompressed bytes, so skip forward in the
	// decompressed stream rather than seeking the compressed file.
	if _, err := io.CopyN(io.Discard, gz, start); err != nil {
		return t.unknown, false
	}

	br := bufio.NewReader(gz)
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			trimmed := strings.TrimRight(line, "\r\n")
			if trimmed != "" && !strings.HasPrefix(trimmed, "#") {
				fields := strings.Split(trimmed, "\t")
				k, kerr := t.keyOf(fields)
				if kerr == nil {
					if k == key {
						v, perr := t.parse(fields)
						if perr != nil {
							break
						}
						t.cache.set(key, v)
						return v, true
					}
					if k > key {
						break
					}
				}
			}
		}
		if err != nil {
			break
		}
	}
	return t.unknown, false
}

// parseHexKey parses a hex string (with or without a leading "0x") into
// a uint64 key, used by both the OUI and ICAO key extractors.
func parseHexKey(s string) (uint64, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	return strconv.ParseUint(s, 16, 64)
}
