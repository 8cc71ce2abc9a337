// ABOUTME: Tests for deterministic chunk identifiers
// ABOUTME: Verifies IDs are stable and distinct across session, document and position
package models

import "testing"

func TestChunkID(t *testing.T) {
	s1 := MustSessionID("S1")
	s2 := MustSessionID("S2")

	base := ChunkID(s1, "doc-a", 0)
	if base != ChunkID(s1, "doc-a", 0) {
		t.Error("ChunkID should be deterministic")
	}

	others := map[string]string{
		"other session":  ChunkID(s2, "doc-a", 0),
		"other document": ChunkID(s1, "doc-b", 0),
		"other position": ChunkID(s1, "doc-a", 1),
	}
	for name, id := range others {
		if id == base {
			t.Errorf("%s produced the same id %s", name, id)
		}
	}
}

func TestChunkID_NoSeparatorCollision(t *testing.T) {
	s := MustSessionID("a")
	if ChunkID(MustSessionID("ab"), "c", 0) == ChunkID(s, "bc", 0) {
		t.Error("session and document ref collided")
	}
	if ChunkID(s, "doc1", 1) == ChunkID(s, "doc", 11) {
		t.Error("document ref and position collided")
	}
}
