// ABOUTME: Tests for model-free session administration
// ABOUTME: History, listing and reset work without any completer or embedder
package core

import (
	"context"
	"testing"

	"github.com/harper/docchat/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessions_WithoutModels(t *testing.T) {
	s := newTestStack(t, &scriptedCompleter{})
	ctx := context.Background()

	_, err := s.history.AppendTurn(ctx, models.MustSessionID("A"), "q1", "a1")
	require.NoError(t, err)
	_, err = s.history.AppendTurn(ctx, models.MustSessionID("B"), "q2", "a2")
	require.NoError(t, err)

	sessions := NewSessions(s.history, nil)

	list, err := sessions.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "B", list[0].SessionID.String(), "most recently active first")

	entries, err := sessions.History(ctx, "A", 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "q1", entries[0].Content)

	res, err := sessions.Reset(ctx, "A", true)
	require.NoError(t, err)
	assert.Equal(t, 2, res.EntriesDeleted)
	assert.Zero(t, res.ChunksDeleted, "no index configured")

	_, err = sessions.Reset(ctx, "", false)
	assert.True(t, IsValidation(err))

	_, err = sessions.Documents(ctx, "A")
	assert.Equal(t, KindConfig, KindOf(err), "no index configured")
}

func TestSessions_DeleteDocument(t *testing.T) {
	s := newTestStack(t, &scriptedCompleter{})
	ctx := context.Background()
	s.ingest(t, "S1", "ada", adaBio)
	s.ingest(t, "S1", "plants", distraction)
	s.ingest(t, "S2", "ada", adaBio)

	n, err := s.orch.DeleteDocument(ctx, "S1", "ada")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	docs, err := s.orch.Documents(ctx, "S1")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "plants", docs[0].DocumentRef)

	other, err := s.orch.Documents(ctx, "S2")
	require.NoError(t, err)
	assert.Len(t, other, 1)

	_, err = s.orch.DeleteDocument(ctx, "S1", " ")
	assert.True(t, IsValidation(err))
	_, err = s.orch.Documents(ctx, "")
	assert.True(t, IsValidation(err))
}
