// Package certstore persists canonical IPAddrBlocks values keyed by
// certificate identity, backed by LevelDB and msgpack, the way the
// teacher's iporgdb persists IP-to-organisation records.
package certstore

import (
	"fmt"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/wingedpig/rfc3779/pkg/addr"
	"github.com/wingedpig/rfc3779/pkg/blocks"
	"github.com/wingedpig/rfc3779/pkg/family"
)

// Error is this package's sentinel error type.
type Error string

func (e Error) Error() string { return string(e) }

const (
	// ErrClosed is returned by any operation on a closed DB.
	ErrClosed Error = "certstore: database is closed"
	// ErrNotCanonical is returned by PutCanonical when asked to store
	// a value that is not already in canonical form.
	ErrNotCanonical Error = "certstore: value is not in canonical form"
)

// DB wraps a LevelDB instance holding one canonical IPAddrBlocks
// value per certificate key (typically a subject key identifier or
// serial number, left to the caller's choice of key bytes).
type DB struct {
	db     *leveldb.DB
	mu     sync.RWMutex
	path   string
	closed bool
}

// Open opens or creates a LevelDB database at path.
func Open(path string) (*DB, error) {
	opts := &opt.Options{
		Compression: opt.SnappyCompression,
		WriteBuffer: 16 * 1024 * 1024,
	}

	db, err := leveldb.OpenFile(path, opts)
	if err != nil {
		return nil, fmt.Errorf("certstore: failed to open database: %w", err)
	}

	return &DB{db: db, path: path}, nil
}

// Close closes the database. It is an error to call Close twice.
func (d *DB) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrClosed
	}
	d.closed = true
	return d.db.Close()
}

// Path returns the database's filesystem path.
func (d *DB) Path() string {
	return d.path
}

// wireFamily is the msgpack-serialisable shape of one family, storing
// each prefix-or-range as raw min/max bytes plus a prefix-length hint
// (-1 for a true range) rather than the in-memory bit-string form.
type wireFamily struct {
	AFI     uint16
	SAFI    *uint8
	Inherit bool
	Entries []wireEntry
}

type wireEntry struct {
	Min       []byte
	Max       []byte
	PrefixLen int // -1 if this entry is a range, not a prefix
}

// PutCanonical stores b under key, failing if b is not already
// canonical: the store only ever holds values a path validator can
// trust without re-checking.
func (d *DB) PutCanonical(key []byte, b *blocks.IPAddrBlocks) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return ErrClosed
	}
	if !b.IsCanonical() {
		return ErrNotCanonical
	}

	wire, err := encodeBlocks(b)
	if err != nil {
		return err
	}
	return d.db.Put(key, wire, nil)
}

// GetCanonical retrieves the value stored under key, or (nil, nil)
// if no such key exists.
func (d *DB) GetCanonical(key []byte) (*blocks.IPAddrBlocks, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return nil, ErrClosed
	}

	data, err := d.db.Get(key, nil)
	if err == leveldb.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("certstore: get failed: %w", err)
	}
	return decodeBlocks(data)
}

// Stats reports the number of keys currently stored.
type Stats struct {
	Keys int
}

// Stats scans the whole keyspace to count entries. It's intended for
// diagnostics and tests, not hot paths.
func (d *DB) Stats() (Stats, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return Stats{}, ErrClosed
	}

	iter := d.db.NewIterator(nil, nil)
	defer iter.Release()

	var n int
	for iter.Next() {
		n++
	}
	if err := iter.Error(); err != nil {
		return Stats{}, fmt.Errorf("certstore: iteration failed: %w", err)
	}
	return Stats{Keys: n}, nil
}

func encodeBlocks(b *blocks.IPAddrBlocks) ([]byte, error) {
	wire := make([]wireFamily, 0, len(b.Families))
	for _, f := range b.Families {
		wf := wireFamily{AFI: f.Key.AFI, SAFI: f.Key.SAFI, Inherit: f.Inherit}
		if !f.Inherit {
			rawLen, ok := f.Key.RawLen()
			if !ok {
				return nil, fmt.Errorf("certstore: cannot encode unknown AFI %d", f.Key.AFI)
			}
			for _, e := range f.Entries {
				min, max, err := addr.ExtractMinMax(e, rawLen)
				if err != nil {
					return nil, err
				}
				pl := -1
				if e.Kind == addr.Prefix {
					pl = e.Pfx.PrefixLen()
				}
				wf.Entries = append(wf.Entries, wireEntry{Min: min, Max: max, PrefixLen: pl})
			}
		}
		wire = append(wire, wf)
	}
	return msgpack.Marshal(wire)
}

func decodeBlocks(data []byte) (*blocks.IPAddrBlocks, error) {
	var wire []wireFamily
	if err := msgpack.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("certstore: failed to unmarshal: %w", err)
	}

	out := &blocks.IPAddrBlocks{}
	for _, wf := range wire {
		f := &family.Family{Key: family.NewAFISAFI(wf.AFI, wf.SAFI)}
		if wf.Inherit {
			if err := f.SetInheritance(); err != nil {
				return nil, err
			}
			out.Families = append(out.Families, f)
			continue
		}
		for _, we := range wf.Entries {
			var err error
			if we.PrefixLen >= 0 {
				err = f.AppendPrefix(we.Min, we.PrefixLen)
			} else {
				err = f.AppendRange(we.Min, we.Max, len(we.Min))
			}
			if err != nil {
				return nil, err
			}
		}
		out.Families = append(out.Families, f)
	}
	return out, nil
}
