// Package userdict persists the words a user adds at runtime so they survive
// restarts. Words are folded the same way the dictionary folds them.
package userdict

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgraph-io/badger/v3"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/bastiangx/revisa/internal/logger"
	"github.com/bastiangx/revisa/pkg/dictionary"
)

const wordKeyPrefix = "word:"

// Entry is a stored word.
type Entry struct {
	Word    string    `msgpack:"-"`
	AddedAt time.Time `msgpack:"added_at"`
	Count   int       `msgpack:"count"`
}

// Store is a badger backed set of custom words.
type Store struct {
	db     *badger.DB
	logger *log.Logger
}

// badgerLogger routes badger's own logging through charm log. Badger's info
// output is startup noise, so it is demoted to debug.
type badgerLogger struct {
	l *log.Logger
}

func (b badgerLogger) Errorf(f string, v ...interface{})   { b.l.Errorf(strings.TrimSpace(f), v...) }
func (b badgerLogger) Warningf(f string, v ...interface{}) { b.l.Warnf(strings.TrimSpace(f), v...) }
func (b badgerLogger) Infof(f string, v ...interface{})    { b.l.Debugf(strings.TrimSpace(f), v...) }
func (b badgerLogger) Debugf(f string, v ...interface{})   { b.l.Debugf(strings.TrimSpace(f), v...) }

// Open opens or creates the store in dir.
func Open(dir string) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("userdict: directory must not be empty")
	}
	return open(badger.DefaultOptions(dir))
}

// OpenInMemory returns a store that lives only as long as the process.
func OpenInMemory() (*Store, error) {
	return open(badger.DefaultOptions("").WithInMemory(true))
}

func open(opts badger.Options) (*Store, error) {
	l := logger.New("userdict")
	db, err := badger.Open(opts.WithLogger(badgerLogger{l}))
	if err != nil {
		return nil, fmt.Errorf("failed to open user dictionary: %w", err)
	}
	return &Store{db: db, logger: l}, nil
}

func key(word string) []byte {
	return []byte(wordKeyPrefix + word)
}

// Add records word. It reports whether the word was new; adding a known word
// bumps its count.
func (s *Store) Add(word string) (bool, error) {
	w := dictionary.Fold(strings.TrimSpace(word))
	if w == "" {
		return false, errors.New("userdict: empty word")
	}

	added := false
	err := s.db.Update(func(txn *badger.Txn) error {
		entry := Entry{AddedAt: time.Now().UTC()}
		item, err := txn.Get(key(w))
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
			added = true
		case err != nil:
			return err
		default:
			if err := item.Value(func(val []byte) error {
				return msgpack.Unmarshal(val, &entry)
			}); err != nil {
				return err
			}
		}
		entry.Count++

		val, err := msgpack.Marshal(&entry)
		if err != nil {
			return err
		}
		return txn.Set(key(w), val)
	})
	if err != nil {
		return false, fmt.Errorf("failed to store %q: %w", w, err)
	}
	if added {
		s.logger.Debugf("Stored custom word %q", w)
	}
	return added, nil
}

// Get returns the entry for word.
func (s *Store) Get(word string) (Entry, bool, error) {
	w := dictionary.Fold(strings.TrimSpace(word))
	var entry Entry
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(w))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			return msgpack.Unmarshal(val, &entry)
		})
	})
	if err != nil {
		return Entry{}, false, fmt.Errorf("failed to read %q: %w", w, err)
	}
	entry.Word = w
	return entry, found, nil
}

// Entries returns every stored word in key order.
func (s *Store) Entries() ([]Entry, error) {
	var entries []Entry
	prefix := []byte(wordKeyPrefix)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			entry := Entry{Word: strings.TrimPrefix(string(item.Key()), wordKeyPrefix)}
			if err := item.Value(func(val []byte) error {
				return msgpack.Unmarshal(val, &entry)
			}); err != nil {
				s.logger.Warnf("Skipping unreadable entry %q: %v", entry.Word, err)
				continue
			}
			entries = append(entries, entry)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list user dictionary: %w", err)
	}
	return entries, nil
}

// Words returns every stored word in key order.
func (s *Store) Words() ([]string, error) {
	entries, err := s.Entries()
	if err != nil {
		return nil, err
	}
	words := make([]string, len(entries))
	for i, e := range entries {
		words[i] = e.Word
	}
	return words, nil
}

// Close flushes and closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
