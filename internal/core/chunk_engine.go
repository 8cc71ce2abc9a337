// ABOUTME: ChunkEngine splits extracted document text into overlapping windows for embedding
// ABOUTME: Windows prefer paragraph, line, sentence, then word boundaries and are produced lazily
package core

import (
	"iter"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 100
)

// boundaries are tried in order when a window must end before the text does.
var boundaries = []string{"\n\n", "\n", ". ", "! ", "? ", "; ", " "}

// ChunkEngine produces overlapping text windows measured in runes.
type ChunkEngine struct {
	size    int
	overlap int
}

// ChunkOption configures a ChunkEngine.
type ChunkOption func(*ChunkEngine)

// WithChunkSize sets the maximum window length in runes.
func WithChunkSize(size int) ChunkOption {
	return func(ce *ChunkEngine) {
		if size > 0 {
			ce.size = size
		}
	}
}

// WithChunkOverlap sets how many runes consecutive windows share.
func WithChunkOverlap(overlap int) ChunkOption {
	return func(ce *ChunkEngine) {
		if overlap >= 0 {
			ce.overlap = overlap
		}
	}
}

// NewChunkEngine creates a ChunkEngine. An overlap that would prevent progress
// is clamped to a quarter of the window.
func NewChunkEngine(opts ...ChunkOption) *ChunkEngine {
	ce := &ChunkEngine{size: DefaultChunkSize, overlap: DefaultChunkOverlap}
	for _, opt := range opts {
		opt(ce)
	}
	if ce.overlap >= ce.size {
		ce.overlap = ce.size / 4
	}
	return ce
}

// Size returns the maximum window length in runes.
func (ce *ChunkEngine) Size() int { return ce.size }

// Overlap returns the shared context between consecutive windows in runes.
func (ce *ChunkEngine) Overlap() int { return ce.overlap }

// Split returns the windows of text. The sequence is finite, deterministic and
// may be ranged over any number of times.
func (ce *ChunkEngine) Split(text string) iter.Seq[string] {
	size, overlap := ce.size, ce.overlap
	return func(yield func(string) bool) {
		runes := []rune(text)
		start := 0
		for start < len(runes) {
			end := min(start+size, len(runes))
			if end < len(runes) {
				end = breakPoint(runes, start+overlap+1, end)
			}

			if chunk := strings.TrimSpace(string(runes[start:end])); chunk != "" {
				if !yield(chunk) {
					return
				}
			}
			if end == len(runes) {
				return
			}
			start = alignToWord(runes, end-overlap, end)
		}
	}
}

// Collect materializes Split into a slice.
func (ce *ChunkEngine) Collect(text string) []string {
	var chunks []string
	for chunk := range ce.Split(text) {
		chunks = append(chunks, chunk)
	}
	return chunks
}

// SplitText is the functional form of ChunkEngine.Split.
func SplitText(text string, size, overlap int) iter.Seq[string] {
	return NewChunkEngine(WithChunkSize(size), WithChunkOverlap(overlap)).Split(text)
}

// breakPoint returns the exclusive end of a window that must finish at or before
// hardEnd. The end is placed just after the highest-priority boundary found at
// or after minEnd, or at hardEnd when none exists.
func breakPoint(runes []rune, minEnd, hardEnd int) int {
	if minEnd >= hardEnd {
		return hardEnd
	}
	lo := max(minEnd-1, 0)
	window := string(runes[lo:hardEnd])
	for _, sep := range boundaries {
		idx := strings.LastIndex(window, sep)
		if idx < 0 {
			continue
		}
		end := lo + utf8.RuneCountInString(window[:idx+len(sep)])
		if end >= minEnd && end <= hardEnd {
			return end
		}
	}
	return hardEnd
}

// alignToWord moves a window start forward past a partial word, staying before limit.
func alignToWord(runes []rune, start, limit int) int {
	if start <= 0 || unicode.IsSpace(runes[start-1]) {
		return start
	}
	for i := start; i < limit; i++ {
		if unicode.IsSpace(runes[i]) {
			return i + 1
		}
	}
	return start
}
