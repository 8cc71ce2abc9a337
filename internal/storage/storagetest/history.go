// ABOUTME: Conformance checks shared by every HistoryStore backend's tests
// ABOUTME: Covers ordering, limits, isolation, atomic turns and concurrent appends
package storagetest

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/harper/docchat/internal/models"
	"github.com/harper/docchat/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// HistoryFactory returns an empty store; the suite closes it.
type HistoryFactory func(t *testing.T) storage.HistoryStore

// RunHistoryStoreTests runs the shared HistoryStore behaviour against a backend.
func RunHistoryStoreTests(t *testing.T, open HistoryFactory) {
	ctx := context.Background()

	t.Run("append then read preserves order", func(t *testing.T) {
		store := open(t)
		defer func() { _ = store.Close() }()
		session := models.NewSessionID()

		want := []string{"q1", "a1", "q2", "a2", "q3"}
		var last int64
		for i, content := range want {
			role := models.RoleUser
			if i%2 == 1 {
				role = models.RoleAssistant
			}
			entry, err := store.Append(ctx, session, role, content)
			require.NoError(t, err)
			assert.Greater(t, entry.Position, last, "positions must increase")
			last = entry.Position
		}

		entries, err := store.Read(ctx, session, 0)
		require.NoError(t, err)
		assert.Equal(t, want, contents(entries))
		for _, e := range entries {
			assert.Equal(t, session, e.SessionID)
			assert.False(t, e.CreatedAt.IsZero())
		}
	})

	t.Run("limit keeps most recent oldest-first", func(t *testing.T) {
		store := open(t)
		defer func() { _ = store.Close() }()
		session := models.NewSessionID()

		for i := 1; i <= 6; i++ {
			_, err := store.Append(ctx, session, models.RoleUser, fmt.Sprintf("m%d", i))
			require.NoError(t, err)
		}

		entries, err := store.Read(ctx, session, 3)
		require.NoError(t, err)
		assert.Equal(t, []string{"m4", "m5", "m6"}, contents(entries))

		entries, err = store.Read(ctx, session, 100)
		require.NoError(t, err)
		assert.Len(t, entries, 6)
	})

	t.Run("unknown session reads empty", func(t *testing.T) {
		store := open(t)
		defer func() { _ = store.Close() }()

		entries, err := store.Read(ctx, models.NewSessionID(), 10)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("zero session is rejected", func(t *testing.T) {
		store := open(t)
		defer func() { _ = store.Close() }()

		_, err := store.Append(ctx, models.SessionID{}, models.RoleUser, "hi")
		assert.ErrorIs(t, err, storage.ErrUnscoped)
		_, err = store.Read(ctx, models.SessionID{}, 0)
		assert.ErrorIs(t, err, storage.ErrUnscoped)
		_, err = store.AppendTurn(ctx, models.SessionID{}, "q", "a")
		assert.ErrorIs(t, err, storage.ErrUnscoped)
		_, err = store.Clear(ctx, models.SessionID{})
		assert.ErrorIs(t, err, storage.ErrUnscoped)
	})

	t.Run("invalid entries are rejected without side effects", func(t *testing.T) {
		store := open(t)
		defer func() { _ = store.Close() }()
		session := models.NewSessionID()

		_, err := store.Append(ctx, session, models.RoleSystem, "x")
		assert.Error(t, err)
		_, err = store.AppendTurn(ctx, session, "question", "  ")
		assert.Error(t, err)

		entries, err := store.Read(ctx, session, 0)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("append turn stores user then assistant", func(t *testing.T) {
		store := open(t)
		defer func() { _ = store.Close() }()
		session := models.NewSessionID()

		turn, err := store.AppendTurn(ctx, session, "Who wrote it?", "Ada Lovelace.")
		require.NoError(t, err)
		require.Len(t, turn, 2)
		assert.Equal(t, models.RoleUser, turn[0].Role)
		assert.Equal(t, models.RoleAssistant, turn[1].Role)
		assert.Less(t, turn[0].Position, turn[1].Position)

		entries, err := store.Read(ctx, session, 0)
		require.NoError(t, err)
		assert.Equal(t, []string{"Who wrote it?", "Ada Lovelace."}, contents(entries))
	})

	t.Run("sessions are isolated", func(t *testing.T) {
		store := open(t)
		defer func() { _ = store.Close() }()
		a, b := models.NewSessionID(), models.NewSessionID()

		_, err := store.AppendTurn(ctx, a, "qa", "aa")
		require.NoError(t, err)
		_, err = store.AppendTurn(ctx, b, "qb", "ab")
		require.NoError(t, err)

		entries, err := store.Read(ctx, a, 0)
		require.NoError(t, err)
		assert.Equal(t, []string{"qa", "aa"}, contents(entries))
		for _, e := range entries {
			assert.Equal(t, a, e.SessionID)
		}
	})

	t.Run("concurrent turns keep pairs adjacent", func(t *testing.T) {
		store := open(t)
		defer func() { _ = store.Close() }()
		session := models.NewSessionID()

		const turns = 10
		var wg sync.WaitGroup
		errs := make(chan error, turns)
		for i := 0; i < turns; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, err := store.AppendTurn(ctx, session, fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i))
				errs <- err
			}(i)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		entries, err := store.Read(ctx, session, 0)
		require.NoError(t, err)
		require.Len(t, entries, 2*turns)
		for i := 0; i < len(entries); i += 2 {
			assert.Equal(t, models.RoleUser, entries[i].Role)
			assert.Equal(t, models.RoleAssistant, entries[i+1].Role)
			assert.Equal(t, "a"+entries[i].Content[1:], entries[i+1].Content)
			if i > 0 {
				assert.Greater(t, entries[i].Position, entries[i-1].Position)
			}
		}
	})

	t.Run("clear removes only that session", func(t *testing.T) {
		store := open(t)
		defer func() { _ = store.Close() }()
		a, b := models.NewSessionID(), models.NewSessionID()

		_, err := store.AppendTurn(ctx, a, "qa", "aa")
		require.NoError(t, err)
		_, err = store.AppendTurn(ctx, b, "qb", "ab")
		require.NoError(t, err)

		n, err := store.Clear(ctx, a)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		entries, err := store.Read(ctx, a, 0)
		require.NoError(t, err)
		assert.Empty(t, entries)
		entries, err = store.Read(ctx, b, 0)
		require.NoError(t, err)
		assert.Len(t, entries, 2)
	})

	t.Run("list sessions", func(t *testing.T) {
		store := open(t)
		defer func() { _ = store.Close() }()
		a, b := models.NewSessionID(), models.NewSessionID()

		_, err := store.AppendTurn(ctx, a, "qa", "aa")
		require.NoError(t, err)
		_, err = store.Append(ctx, b, models.RoleUser, "qb")
		require.NoError(t, err)

		sessions, err := store.ListSessions(ctx)
		require.NoError(t, err)
		counts := map[models.SessionID]int{}
		for _, s := range sessions {
			counts[s.SessionID] = s.Entries
			assert.False(t, s.LastActivity.IsZero())
		}
		assert.Equal(t, 2, counts[a])
		assert.Equal(t, 1, counts[b])
	})
}

func contents(entries []models.HistoryEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Content)
	}
	return out
}
