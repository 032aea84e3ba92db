// Package store caches correlation search results in BadgerDB.
//
// A correlation search over a 2^26 cycle takes seconds; re-running an attack
// against the same keystream with the same register settings reuses the
// candidate list instead. Entries are keyed by a SHA3 digest of everything
// that determines the search result.
package store

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"

	geffe "github.com/BackendStack21/geffe-go"
	"github.com/BackendStack21/geffe-go/stages/correlation"
	"github.com/BackendStack21/geffe-go/utils"
)

const keyPrefix = "candidates/"

// Config holds configuration for a cache.
type Config struct {
	// Path is the directory for BadgerDB files. Ignored when InMemory is true.
	Path string
	// InMemory keeps the cache in RAM only. Useful for testing.
	InMemory bool
	// SyncWrites makes every Put durable before returning.
	SyncWrites bool
	// Logger receives BadgerDB's own log lines. nil silences them.
	Logger *slog.Logger
}

// Cache stores candidate lists. It is safe for concurrent use.
type Cache struct {
	db *badger.DB
}

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// Open opens the cache at cfg.Path, creating the directory if needed.
func Open(cfg Config) (*Cache, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent cache")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create cache directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	return &Cache{db: db}, nil
}

// Close flushes and closes the database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Key identifies a correlation search: the register's degree, taps and
// threshold plus the keystream bits it is compared against. The register
// name and cycle hint do not affect the result and are left out.
func Key(reg geffe.RegisterParams, z geffe.Sequence) string {
	meta := make([]byte, 0, 8+4*len(reg.Taps))
	meta = binary.LittleEndian.AppendUint32(meta, uint32(reg.Degree))
	meta = binary.LittleEndian.AppendUint32(meta, uint32(reg.Threshold))
	for _, t := range reg.Taps {
		meta = binary.LittleEndian.AppendUint32(meta, uint32(t))
	}
	sum := utils.HashConcat([]byte(keyPrefix), meta, z)
	return keyPrefix + hex.EncodeToString(sum)
}

// Get returns the cached candidates for key. ok is false on a miss.
func (c *Cache) Get(key string) (cands []geffe.Candidate, ok bool, err error) {
	err = c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			cands, err = correlation.DeserializeCandidates(val)
			if err != nil {
				return fmt.Errorf("decode cached candidates: %w", err)
			}
			ok = true
			return nil
		})
	})
	if err != nil {
		return nil, false, err
	}
	return cands, ok, nil
}

// Put stores candidates under key, replacing any previous entry.
func (c *Cache) Put(key string, cands []geffe.Candidate) error {
	val := correlation.SerializeCandidates(cands)
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), val)
	})
}

// Delete removes key. Missing keys are not an error.
func (c *Cache) Delete(key string) error {
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

// Len counts cached candidate lists.
func (c *Cache) Len() (int, error) {
	n := 0
	err := c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}
