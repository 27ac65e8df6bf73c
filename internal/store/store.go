// Package store is an in-memory document store with the four
// primitives the game layer relies on: get/set of structured records,
// per-document push subscriptions, serializable read-modify-write
// transactions with conflict detection, and multi-document atomicity.
// Documents are stored as JSON so no caller ever holds a mutable
// reference into the shared record.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
)

var (
	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("store: document not found")

	// ErrConflict is returned by a transaction attempt whose read set
	// was modified before commit. RunTransaction retries these.
	ErrConflict = errors.New("store: concurrent modification")
)

// MaxTxAttempts bounds transparent conflict retries before the
// conflict surfaces to the caller.
const MaxTxAttempts = 5

// Event is a committed change pushed to subscribers of a document.
type Event struct {
	Key     string
	Version uint64
	Data    json.RawMessage
	Deleted bool
}

// Decode unmarshals the event payload into out.
func (e Event) Decode(out any) error {
	if e.Deleted {
		return ErrNotFound
	}
	return json.Unmarshal(e.Data, out)
}

type document struct {
	version uint64
	data    json.RawMessage
}

type subscriber struct {
	key string
	ch  chan Event
}

// Store holds versioned documents keyed by string.
type Store struct {
	mu     sync.Mutex
	docs   map[string]*document
	subs   map[*subscriber]struct{}
	logger *log.Logger
}

// New creates an empty store.
func New(logger *log.Logger) *Store {
	return &Store{
		docs:   make(map[string]*document),
		subs:   make(map[*subscriber]struct{}),
		logger: logger.WithPrefix("store"),
	}
}

// Get unmarshals the document at key into out and returns its version.
func (s *Store) Get(key string, out any) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[key]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if out != nil {
		if err := json.Unmarshal(doc.data, out); err != nil {
			return 0, err
		}
	}
	return doc.version, nil
}

// Exists reports whether a document is present.
func (s *Store) Exists(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.docs[key]
	return ok
}

// Subscribe registers for committed changes to key. Delivery is
// asynchronous and lossy under backpressure: each event is a full
// snapshot, so a slow consumer only ever misses intermediate states.
// The returned cancel func releases the subscription.
func (s *Store) Subscribe(key string) (<-chan Event, func()) {
	sub := &subscriber{key: key, ch: make(chan Event, 16)}

	s.mu.Lock()
	s.subs[sub] = struct{}{}
	// Deliver the current state so subscribers never start blind.
	if doc, ok := s.docs[key]; ok {
		sub.ch <- Event{Key: key, Version: doc.version, Data: doc.data}
	}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		delete(s.subs, sub)
		s.mu.Unlock()
	}
	return sub.ch, cancel
}

// notifyLocked pushes an event to matching subscribers. Caller holds mu.
func (s *Store) notifyLocked(ev Event) {
	for sub := range s.subs {
		if sub.key != ev.Key {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			s.logger.Warn("subscriber buffer full, dropping snapshot", "key", ev.Key)
		}
	}
}

// Tx is one transaction attempt. Reads record the observed version of
// every document touched (0 for absent documents); writes and deletes
// are buffered until commit.
type Tx struct {
	store   *Store
	reads   map[string]uint64
	writes  map[string]json.RawMessage
	deletes map[string]bool
}

// Get reads a document inside the transaction. It returns false
// without error when the document does not exist; the absence itself
// joins the read set, so a concurrent create still conflicts.
func (tx *Tx) Get(key string, out any) (bool, error) {
	if data, ok := tx.writes[key]; ok {
		return true, json.Unmarshal(data, out)
	}
	if tx.deletes[key] {
		return false, nil
	}

	tx.store.mu.Lock()
	doc, ok := tx.store.docs[key]
	var version uint64
	var data json.RawMessage
	if ok {
		version, data = doc.version, doc.data
	}
	tx.store.mu.Unlock()

	if prev, seen := tx.reads[key]; seen && prev != version {
		// The document moved between two reads of the same attempt;
		// this attempt can never commit.
		return false, ErrConflict
	}
	tx.reads[key] = version

	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(data, out)
}

// Set buffers a write of v at key.
func (tx *Tx) Set(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	delete(tx.deletes, key)
	tx.writes[key] = data
	return nil
}

// Delete buffers removal of the document at key.
func (tx *Tx) Delete(key string) {
	delete(tx.writes, key)
	tx.deletes[key] = true
}

// commit validates the read set under the lock and applies the write
// set atomically. Returns ErrConflict when any read document changed.
func (tx *Tx) commit() error {
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()

	for key, version := range tx.reads {
		var current uint64
		if doc, ok := tx.store.docs[key]; ok {
			current = doc.version
		}
		if current != version {
			return ErrConflict
		}
	}

	for key, data := range tx.writes {
		doc, ok := tx.store.docs[key]
		if !ok {
			doc = &document{}
			tx.store.docs[key] = doc
		}
		doc.version++
		doc.data = data
		tx.store.notifyLocked(Event{Key: key, Version: doc.version, Data: data})
	}
	for key := range tx.deletes {
		doc, ok := tx.store.docs[key]
		if !ok {
			continue
		}
		delete(tx.store.docs, key)
		tx.store.notifyLocked(Event{Key: key, Version: doc.version + 1, Deleted: true})
	}
	return nil
}

// RunTransaction executes fn optimistically, retrying up to
// MaxTxAttempts when a conflicting commit invalidates the read set.
// fn must be side-effect free apart from Tx operations: it may run
// several times. A failed transaction has zero partial effect.
func (s *Store) RunTransaction(ctx context.Context, fn func(tx *Tx) error) error {
	for attempt := 1; attempt <= MaxTxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		tx := &Tx{
			store:   s,
			reads:   make(map[string]uint64),
			writes:  make(map[string]json.RawMessage),
			deletes: make(map[string]bool),
		}
		err := fn(tx)
		if err == nil {
			err = tx.commit()
		}
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrConflict) {
			return err
		}
		s.logger.Debug("transaction conflict, retrying", "attempt", attempt)
	}
	return ErrConflict
}
