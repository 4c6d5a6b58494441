package chunker

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleText(sentences int) string {
	var b strings.Builder
	for i := 0; i < sentences; i++ {
		fmt.Fprintf(&b, "Sentence number %d talks about topic %d in detail. ", i, i%7)
		if i%5 == 4 {
			b.WriteString("\n\n")
		}
	}
	return b.String()
}

func TestChunk_EmptyInput(t *testing.T) {
	for _, in := range []string{"", "   ", "\n\n\t\r\n"} {
		assert.Empty(t, Chunk(in, 50, 10), "input %q", in)
	}
}

func TestChunk_ShortTextIsSingleChunk(t *testing.T) {
	text := "The school was founded in 1975. It has three academic tracks: Science, Social Studies, and Language."

	chunks := Chunk(text, 300, 50)
	require.Len(t, chunks, 1)
	assert.Equal(t, 0, chunks[0].Index)
	assert.Equal(t, text, chunks[0].Text)
	assert.Equal(t, CountTokens(text), chunks[0].TokenCount)
}

func TestChunk_Deterministic(t *testing.T) {
	text := sampleText(60)

	first := Chunk(text, 40, 8)
	second := Chunk(text, 40, 8)
	assert.Equal(t, first, second)
}

func TestChunk_RespectsMaxTokensAndIndexes(t *testing.T) {
	text := sampleText(80)

	chunks := Chunk(text, 32, 6)
	require.Greater(t, len(chunks), 1)

	for i, c := range chunks {
		assert.Equal(t, i, c.Index)
		assert.LessOrEqual(t, c.TokenCount, 32)
		assert.Equal(t, CountTokens(c.Text), c.TokenCount)
		assert.NotEmpty(t, strings.TrimSpace(c.Text))
	}
}

func TestChunk_ConsecutiveChunksOverlap(t *testing.T) {
	text := sampleText(40)
	const overlap = 5

	chunks := Chunk(text, 30, overlap)
	require.Greater(t, len(chunks), 2)

	for i := 1; i < len(chunks); i++ {
		prev := strings.Fields(chunks[i-1].Text)
		next := strings.Fields(chunks[i].Text)
		assert.Equal(t, prev[len(prev)-overlap:], next[:overlap], "chunk %d", i)
	}
}

func TestChunk_ZeroOverlap(t *testing.T) {
	text := sampleText(30)

	chunks := Chunk(text, 25, 0)
	var total int
	for _, c := range chunks {
		total += c.TokenCount
	}
	assert.Equal(t, CountTokens(text), total)
}

func TestChunk_SplitsOversizedSentence(t *testing.T) {
	words := make([]string, 95)
	for i := range words {
		words[i] = fmt.Sprintf("w%d", i)
	}
	text := strings.Join(words, " ")

	chunks := Chunk(text, 20, 0)
	require.Len(t, chunks, 5)
	assert.Equal(t, 15, chunks[4].TokenCount)
	assert.True(t, strings.HasPrefix(chunks[0].Text, "w0 w1"))
}

func TestChunk_EndsOnSentenceBoundary(t *testing.T) {
	text := sampleText(20)

	chunks := Chunk(text, 30, 0)
	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.True(t, strings.HasSuffix(c.Text, "."), "chunk %q", c.Text)
	}
}

func TestChunk_KeepsParagraphBreaks(t *testing.T) {
	text := "First paragraph here.\n\nSecond paragraph here."

	chunks := Chunk(text, 100, 0)
	require.Len(t, chunks, 1)
	assert.Equal(t, "First paragraph here.\n\nSecond paragraph here.", chunks[0].Text)
}

func TestNew_NormalisesParameters(t *testing.T) {
	c := New(WithMaxTokens(0), WithOverlap(-3))
	assert.Equal(t, DefaultMaxTokens, c.MaxTokens())
	assert.Equal(t, DefaultOverlapTokens, c.OverlapTokens())

	c = New(WithMaxTokens(40), WithOverlap(40))
	assert.Equal(t, 10, c.OverlapTokens())
}

func TestEndsSentence(t *testing.T) {
	cases := map[string]bool{
		"1975.":   true,
		"done!":   true,
		"why?":    true,
		`said."`:  true,
		"e.g.":    false,
		"J.":      false,
		"word":    false,
		"U.S.":    false,
		"(end).)": true,
	}
	for word, want := range cases {
		assert.Equal(t, want, endsSentence(word), word)
	}
}
