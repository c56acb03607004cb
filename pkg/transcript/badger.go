package transcript

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"iter"
	"log"
	"sync"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/vmihailenco/msgpack/v5"
)

// Keys are "transcript:<session>:<seq>" with the sequence number zero
// padded so lexicographic iteration yields append order.
const (
	keyPrefix = "transcript:"
	seqWidth  = 20
)

func recordKey(sessionID string, seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%s:%0*d", keyPrefix, sessionID, seqWidth, seq))
}

func sessionPrefix(sessionID string) []byte {
	return []byte(keyPrefix + sessionID + ":")
}

// BadgerStore is a Store backed by BadgerDB v4 with msgpack-encoded
// records.
type BadgerStore struct {
	db *badger.DB

	mu   sync.Mutex
	next map[string]uint64
}

// BadgerOptions configures the BadgerDB store.
type BadgerOptions struct {
	// Dir is the directory for BadgerDB data files. Required unless
	// InMemory is set.
	Dir string

	// InMemory runs BadgerDB without disk persistence. Useful for testing
	// with the real engine.
	InMemory bool

	// Logger sets the badger logger. If nil, a quiet logger that only
	// reports warnings and errors is used.
	Logger badger.Logger
}

// NewBadger opens a BadgerDB-backed transcript store.
func NewBadger(opts BadgerOptions) (*BadgerStore, error) {
	if !opts.InMemory && opts.Dir == "" {
		return nil, errors.New("transcript: BadgerOptions.Dir is required for on-disk mode")
	}
	dbOpts := badger.DefaultOptions(opts.Dir)
	if opts.InMemory {
		dbOpts = dbOpts.WithInMemory(true)
	}
	if opts.Logger != nil {
		dbOpts = dbOpts.WithLogger(opts.Logger)
	} else {
		dbOpts = dbOpts.WithLogger(quietLogger{})
	}
	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, err
	}
	return &BadgerStore{db: db, next: make(map[string]uint64)}, nil
}

func (s *BadgerStore) Append(_ context.Context, sessionID string, rec Record) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seq, ok := s.next[sessionID]
	if !ok {
		last, err := s.lastSeq(sessionID)
		if err != nil {
			return 0, err
		}
		seq = last
	}
	rec.Seq = seq

	val, err := msgpack.Marshal(&rec)
	if err != nil {
		return 0, fmt.Errorf("transcript: encode record: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(recordKey(sessionID, seq), val)
	})
	if err != nil {
		return 0, err
	}
	s.next[sessionID] = seq + 1
	return seq, nil
}

// lastSeq scans backwards for the next free sequence number. Called once
// per session per process; later appends use the cached counter.
func (s *BadgerStore) lastSeq(sessionID string) (uint64, error) {
	prefix := sessionPrefix(sessionID)
	var next uint64
	err := s.db.View(func(txn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Reverse = true
		iterOpts.Prefix = prefix
		it := txn.NewIterator(iterOpts)
		defer it.Close()

		// Seek past the last key in the prefix range.
		seek := append(append([]byte(nil), prefix...), 0xff)
		it.Seek(seek)
		if !it.ValidForPrefix(prefix) {
			return nil
		}
		return it.Item().Value(func(val []byte) error {
			var rec Record
			if err := msgpack.Unmarshal(val, &rec); err != nil {
				return fmt.Errorf("transcript: decode record: %w", err)
			}
			next = rec.Seq + 1
			return nil
		})
	})
	return next, err
}

func (s *BadgerStore) List(_ context.Context, sessionID string) iter.Seq2[Record, error] {
	prefix := sessionPrefix(sessionID)
	return func(yield func(Record, error) bool) {
		err := s.db.View(func(txn *badger.Txn) error {
			iterOpts := badger.DefaultIteratorOptions
			iterOpts.Prefix = prefix
			it := txn.NewIterator(iterOpts)
			defer it.Close()

			for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
				val, err := it.Item().ValueCopy(nil)
				if err != nil {
					if !yield(Record{}, err) {
						return nil
					}
					continue
				}
				var rec Record
				if err := msgpack.Unmarshal(val, &rec); err != nil {
					if !yield(Record{}, fmt.Errorf("transcript: decode record: %w", err)) {
						return nil
					}
					continue
				}
				if !yield(rec, nil) {
					return nil
				}
			}
			return nil
		})
		if err != nil {
			yield(Record{}, err)
		}
	}
}

func (s *BadgerStore) Sessions(_ context.Context) iter.Seq2[string, error] {
	prefix := []byte(keyPrefix)
	return func(yield func(string, error) bool) {
		err := s.db.View(func(txn *badger.Txn) error {
			iterOpts := badger.DefaultIteratorOptions
			iterOpts.Prefix = prefix
			iterOpts.PrefetchValues = false
			it := txn.NewIterator(iterOpts)
			defer it.Close()

			var last string
			for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
				key := it.Item().Key()
				rest := key[len(prefix):]
				i := bytes.LastIndexByte(rest, ':')
				if i < 0 {
					continue
				}
				id := string(rest[:i])
				if id == last {
					continue
				}
				last = id
				if !yield(id, nil) {
					return nil
				}
			}
			return nil
		})
		if err != nil {
			yield("", err)
		}
	}
}

func (s *BadgerStore) Purge(_ context.Context, sessionID string) error {
	prefix := sessionPrefix(sessionID)
	var keys [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Prefix = prefix
		iterOpts.PrefetchValues = false
		it := txn.NewIterator(iterOpts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return err
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, k := range keys {
		if err := wb.Delete(k); err != nil {
			return err
		}
	}
	if err := wb.Flush(); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.next, sessionID)
	s.mu.Unlock()
	return nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// quietLogger suppresses badger's info and debug output.
type quietLogger struct{}

func (quietLogger) Errorf(f string, v ...interface{})   { log.Printf("[badger] ERROR: "+f, v...) }
func (quietLogger) Warningf(f string, v ...interface{}) { log.Printf("[badger] WARN: "+f, v...) }
func (quietLogger) Infof(string, ...interface{})        {}
func (quietLogger) Debugf(string, ...interface{})       {}
