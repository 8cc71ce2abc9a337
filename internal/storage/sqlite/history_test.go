// ABOUTME: Tests for SQLite conversation history storage
// ABOUTME: Runs the shared conformance suite and checks durability across restarts
package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/harper/docchat/internal/models"
	"github.com/harper/docchat/internal/storage"
	"github.com/harper/docchat/internal/storage/storagetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryStore_Conformance(t *testing.T) {
	storagetest.RunHistoryStoreTests(t, func(t *testing.T) storage.HistoryStore {
		db, err := OpenInMemory()
		require.NoError(t, err)
		return NewHistoryStore(db)
	})
}

func TestHistoryStore_SurvivesRestart(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "docchat.db")
	session := models.MustSessionID("S1")

	db, err := Open(path)
	require.NoError(t, err)
	store := NewHistoryStore(db)
	_, err = store.AppendTurn(ctx, session, "Who wrote notes on the Analytical Engine?", "Ada Lovelace.")
	require.NoError(t, err)
	_, err = store.Append(ctx, session, models.RoleUser, "Where was she born?")
	require.NoError(t, err)
	require.NoError(t, store.Close())

	db, err = Open(path)
	require.NoError(t, err)
	store = NewHistoryStore(db)
	defer func() { _ = store.Close() }()

	entries, err := store.Read(ctx, session, 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "Who wrote notes on the Analytical Engine?", entries[0].Content)
	assert.Equal(t, "Ada Lovelace.", entries[1].Content)
	assert.Equal(t, "Where was she born?", entries[2].Content)

	next, err := store.Append(ctx, session, models.RoleAssistant, "London.")
	require.NoError(t, err)
	assert.Greater(t, next.Position, entries[2].Position, "positions keep increasing after restart")
}

func TestHistoryStore_ClearDoesNotReusePositions(t *testing.T) {
	ctx := context.Background()
	db, err := OpenInMemory()
	require.NoError(t, err)
	store := NewHistoryStore(db)
	defer func() { _ = store.Close() }()
	session := models.MustSessionID("S1")

	first, err := store.Append(ctx, session, models.RoleUser, "one")
	require.NoError(t, err)
	_, err = store.Clear(ctx, session)
	require.NoError(t, err)

	second, err := store.Append(ctx, session, models.RoleUser, "two")
	require.NoError(t, err)
	assert.Greater(t, second.Position, first.Position)
}
