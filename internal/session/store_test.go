package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vacciassist/internal/domain"
)

func newTestStore() *Store {
	return NewStore(func() *Session {
		return newFixture(Config{Greeting: "hi"}).session
	})
}

func TestStoreCreateAndWith(t *testing.T) {
	st := newTestStore()
	id := st.Create()
	require.NotEmpty(t, id)
	assert.Equal(t, 1, st.Len())

	err := st.With(id, func(s *Session) error {
		_, err := s.Ask(context.Background(), "hello")
		return err
	})
	require.NoError(t, err)

	var msgs []domain.Message
	require.NoError(t, st.With(id, func(s *Session) error {
		msgs = s.Messages()
		return nil
	}))
	assert.Len(t, msgs, 3)
}

func TestStoreSessionsAreIsolated(t *testing.T) {
	st := newTestStore()
	a, b := st.Create(), st.Create()
	require.NotEqual(t, a, b)

	require.NoError(t, st.With(a, func(s *Session) error {
		_, err := s.Upload(context.Background(), "leaflet.txt", []byte(leaflet))
		return err
	}))
	require.NoError(t, st.With(b, func(s *Session) error {
		assert.False(t, s.HasIndex())
		assert.Len(t, s.Messages(), 1)
		return nil
	}))
}

func TestStoreUnknownSession(t *testing.T) {
	st := newTestStore()

	err := st.With("missing", func(*Session) error { return nil })
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	assert.ErrorIs(t, st.Delete("missing"), domain.ErrSessionNotFound)
}

func TestStoreDelete(t *testing.T) {
	st := newTestStore()
	id := st.Create()

	require.NoError(t, st.Delete(id))
	assert.Zero(t, st.Len())
	assert.ErrorIs(t, st.With(id, func(*Session) error { return nil }), domain.ErrSessionNotFound)
}

func TestStoreSweep(t *testing.T) {
	st := newTestStore()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	st.now = func() time.Time { return now }

	stale := st.Create()
	now = now.Add(20 * time.Minute)
	fresh := st.Create()
	now = now.Add(20 * time.Minute)

	assert.Equal(t, 1, st.Sweep(30*time.Minute))
	assert.ErrorIs(t, st.With(stale, func(*Session) error { return nil }), domain.ErrSessionNotFound)
	assert.NoError(t, st.With(fresh, func(*Session) error { return nil }))
}

func TestStoreSerialisesAccessPerSession(t *testing.T) {
	st := newTestStore()
	id := st.Create()

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = st.With(id, func(s *Session) error {
				_, err := s.Ask(context.Background(), "again")
				return err
			})
		}()
	}
	wg.Wait()

	require.NoError(t, st.With(id, func(s *Session) error {
		assert.Len(t, s.Messages(), 41)
		return nil
	}))
}
