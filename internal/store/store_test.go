package store

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore() *Store {
	return New(log.New(io.Discard))
}

type counter struct {
	Value int `json:"value"`
}

func TestGetMissing(t *testing.T) {
	s := newTestStore()
	_, err := s.Get("nope", &counter{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTransactionSetAndGet(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	err := s.RunTransaction(ctx, func(tx *Tx) error {
		return tx.Set("c", counter{Value: 1})
	})
	require.NoError(t, err)

	var c counter
	version, err := s.Get("c", &c)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Value)
	assert.Equal(t, uint64(1), version)
}

func TestTransactionReadModifyWrite(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	require.NoError(t, s.RunTransaction(ctx, func(tx *Tx) error {
		return tx.Set("c", counter{Value: 0})
	}))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.RunTransaction(ctx, func(tx *Tx) error {
				var c counter
				if _, err := tx.Get("c", &c); err != nil {
					return err
				}
				c.Value++
				return tx.Set("c", c)
			})
			// Under 10-way contention a goroutine may exhaust its
			// retry budget; that is the documented contract.
			if err != nil {
				assert.ErrorIs(t, err, ErrConflict)
			}
		}()
	}
	wg.Wait()

	var c counter
	_, err := s.Get("c", &c)
	require.NoError(t, err)
	assert.Greater(t, c.Value, 0)
	assert.LessOrEqual(t, c.Value, 10)
}

func TestTransactionConflictDetected(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	require.NoError(t, s.RunTransaction(ctx, func(tx *Tx) error {
		return tx.Set("c", counter{Value: 0})
	}))

	attempts := 0
	err := s.RunTransaction(ctx, func(tx *Tx) error {
		attempts++
		var c counter
		if _, err := tx.Get("c", &c); err != nil {
			return err
		}
		if attempts == 1 {
			// Interleave a competing commit after the read.
			require.NoError(t, s.RunTransaction(ctx, func(other *Tx) error {
				var oc counter
				if _, err := other.Get("c", &oc); err != nil {
					return err
				}
				oc.Value = 99
				return other.Set("c", oc)
			}))
		}
		c.Value++
		return tx.Set("c", c)
	})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts, "first attempt should conflict and retry")

	var c counter
	_, err = s.Get("c", &c)
	require.NoError(t, err)
	assert.Equal(t, 100, c.Value)
}

func TestTransactionAbortHasNoEffect(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	wantErr := assert.AnError
	err := s.RunTransaction(ctx, func(tx *Tx) error {
		if err := tx.Set("c", counter{Value: 5}); err != nil {
			return err
		}
		return wantErr
	})
	assert.ErrorIs(t, err, wantErr)
	assert.False(t, s.Exists("c"))
}

func TestTransactionObservesAbsence(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	attempts := 0
	err := s.RunTransaction(ctx, func(tx *Tx) error {
		attempts++
		var c counter
		found, err := tx.Get("c", &c)
		if err != nil {
			return err
		}
		if attempts == 1 {
			require.False(t, found)
			// Competing create invalidates the observed absence.
			require.NoError(t, s.RunTransaction(ctx, func(other *Tx) error {
				return other.Set("c", counter{Value: 7})
			}))
		}
		c.Value++
		return tx.Set("c", c)
	})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)

	var c counter
	_, err = s.Get("c", &c)
	require.NoError(t, err)
	assert.Equal(t, 8, c.Value)
}

func TestMultiDocumentAtomicity(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	err := s.RunTransaction(ctx, func(tx *Tx) error {
		if err := tx.Set("a", counter{Value: 1}); err != nil {
			return err
		}
		return tx.Set("b", counter{Value: 2})
	})
	require.NoError(t, err)
	assert.True(t, s.Exists("a"))
	assert.True(t, s.Exists("b"))

	err = s.RunTransaction(ctx, func(tx *Tx) error {
		tx.Delete("a")
		return tx.Set("b", counter{Value: 3})
	})
	require.NoError(t, err)
	assert.False(t, s.Exists("a"))

	var b counter
	_, err = s.Get("b", &b)
	require.NoError(t, err)
	assert.Equal(t, 3, b.Value)
}

func TestSubscribeDeliversCommits(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	ch, cancel := s.Subscribe("c")
	defer cancel()

	require.NoError(t, s.RunTransaction(ctx, func(tx *Tx) error {
		return tx.Set("c", counter{Value: 11})
	}))

	select {
	case ev := <-ch:
		var c counter
		require.NoError(t, ev.Decode(&c))
		assert.Equal(t, 11, c.Value)
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}
}

func TestSubscribeDeliversCurrentStateAndDeletes(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	require.NoError(t, s.RunTransaction(ctx, func(tx *Tx) error {
		return tx.Set("c", counter{Value: 1})
	}))

	ch, cancel := s.Subscribe("c")
	defer cancel()

	ev := <-ch
	var c counter
	require.NoError(t, ev.Decode(&c))
	assert.Equal(t, 1, c.Value)

	require.NoError(t, s.RunTransaction(ctx, func(tx *Tx) error {
		tx.Delete("c")
		return nil
	}))

	select {
	case ev := <-ch:
		assert.True(t, ev.Deleted)
	case <-time.After(time.Second):
		t.Fatal("no delete event delivered")
	}
}

func TestRunTransactionRespectsContext(t *testing.T) {
	s := newTestStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.RunTransaction(ctx, func(tx *Tx) error {
		return tx.Set("c", counter{Value: 1})
	})
	assert.ErrorIs(t, err, context.Canceled)
}
