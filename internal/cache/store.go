package cache

import (
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

// ErrClosed is returned for operations on a closed store.
var ErrClosed = errors.New("cache store is closed")

const indexFile = "cache.index"

// Stats holds store metrics for the cache CLI.
type Stats struct {
	Items    int64
	Bytes    int64 // size on disk (compressed)
	RawBytes int64 // size before compression
	Hits     int64
	Misses   int64
}

// entry is one record of the on-disk index. Exported fields because
// the index is gob-encoded.
type entry struct {
	Key        string
	File       string
	Size       int64
	RawSize    int64
	Compressed bool
	CreatedAt  time.Time
}

// Store is a persistent key/value store for audio clips. Writes are
// atomic (temp file plus rename) so concurrent readers never observe
// partially written bytes; identical keys are assumed to always map to
// byte-identical audio, so entries are never updated in place.
type Store struct {
	dir string

	mu     sync.RWMutex
	index  map[string]*entry
	stats  Stats
	closed bool

	compress bool
	encoder  *zstd.Encoder
	decoder  *zstd.Decoder
}

// Option configures a Store.
type Option func(*Store)

// WithoutCompression disables zstd compression of stored clips.
func WithoutCompression() Option {
	return func(s *Store) {
		s.compress = false
	}
}

// Open opens (or creates) a store rooted at dir and loads its index.
// An unreadable index is discarded rather than failing the open; the
// affected entries simply re-synthesize.
func Open(dir string, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("unable to create cache directory: %w", err)
	}

	s := &Store{
		dir:      dir,
		index:    make(map[string]*entry),
		compress: true,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.compress {
		var err error
		if s.encoder, err = zstd.NewWriter(nil); err != nil {
			return nil, fmt.Errorf("unable to create zstd encoder: %w", err)
		}
		if s.decoder, err = zstd.NewReader(nil); err != nil {
			return nil, fmt.Errorf("unable to create zstd decoder: %w", err)
		}
	}

	if err := s.loadIndex(); err != nil {
		s.index = make(map[string]*entry)
	}
	s.recount()

	return s, nil
}

// Get returns the stored bytes for key. A missing or unreadable file
// drops the entry and counts as a miss so the caller re-synthesizes.
func (s *Store) Get(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, false
	}
	e, ok := s.index[key]
	if !ok {
		s.stats.Misses++
		return nil, false
	}

	data, err := os.ReadFile(filepath.Join(s.dir, e.File))
	if err != nil {
		s.dropLocked(key)
		s.stats.Misses++
		return nil, false
	}
	if e.Compressed {
		if s.decoder == nil {
			s.dropLocked(key)
			s.stats.Misses++
			return nil, false
		}
		raw, err := s.decoder.DecodeAll(data, nil)
		if err != nil {
			s.dropLocked(key)
			s.stats.Misses++
			return nil, false
		}
		data = raw
	}

	s.stats.Hits++
	return data, true
}

// Put stores value under key. Existing entries are left untouched.
func (s *Store) Put(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if _, ok := s.index[key]; ok {
		return nil
	}

	data := value
	compressed := false
	if s.compress && len(value) > 1024 {
		if c := s.encoder.EncodeAll(value, nil); len(c) < len(value) {
			data = c
			compressed = true
		}
	}

	name := key + ".clip"
	if err := writeAtomic(filepath.Join(s.dir, name), data); err != nil {
		return fmt.Errorf("unable to write cache entry: %w", err)
	}

	s.index[key] = &entry{
		Key:        key,
		File:       name,
		Size:       int64(len(data)),
		RawSize:    int64(len(value)),
		Compressed: compressed,
		CreatedAt:  time.Now(),
	}
	s.recount()
	return nil
}

// Contains reports whether key is indexed, without touching hit stats.
func (s *Store) Contains(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.index[key]
	return ok
}

// Delete removes an entry. Deleting a missing key is a no-op.
func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.dropLocked(key)
	return nil
}

// Prune removes entries older than maxAge and returns how many.
func (s *Store) Prune(maxAge time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for key, e := range s.index {
		if e.CreatedAt.Before(cutoff) {
			s.dropLocked(key)
			removed++
		}
	}
	return removed
}

// Clear removes every entry.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	for key := range s.index {
		s.dropLocked(key)
	}
	return s.saveIndexLocked()
}

// Len returns the number of stored entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.index)
}

// Stats returns a snapshot of the store metrics.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

// Close persists the index. The store is unusable afterwards.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.saveIndexLocked()
}

func (s *Store) dropLocked(key string) {
	e, ok := s.index[key]
	if !ok {
		return
	}
	os.Remove(filepath.Join(s.dir, e.File))
	delete(s.index, key)
	s.recount()
}

func (s *Store) recount() {
	s.stats.Items = int64(len(s.index))
	s.stats.Bytes = 0
	s.stats.RawBytes = 0
	for _, e := range s.index {
		s.stats.Bytes += e.Size
		s.stats.RawBytes += e.RawSize
	}
}

func (s *Store) loadIndex() error {
	f, err := os.Open(filepath.Join(s.dir, indexFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close() //nolint:errcheck
	return gob.NewDecoder(f).Decode(&s.index)
}

func (s *Store) saveIndexLocked() error {
	path := filepath.Join(s.dir, indexFile)
	tmp := path + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	err = gob.NewEncoder(f).Encode(s.index)
	cerr := f.Close()
	if err != nil || cerr != nil {
		os.Remove(tmp)
		if err != nil {
			return err
		}
		return cerr
	}
	return os.Rename(tmp, path)
}

func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	_, werr := f.Write(data)
	cerr := f.Close()
	if werr != nil || cerr != nil {
		os.Remove(tmp)
		if werr != nil {
			return werr
		}
		return cerr
	}
	return os.Rename(tmp, path)
}
