// Package chunker splits document text into overlapping, sentence-aligned
// segments sized in approximate tokens.
package chunker

import (
	"strings"
	"unicode"

	"github.com/futig/rag-backend/internal/entity"
)

const (
	DefaultMaxTokens     = 300
	DefaultOverlapTokens = 50
)

// Chunker packs sentences into chunks of at most maxTokens tokens.
// A token is a whitespace-separated word.
type Chunker struct {
	maxTokens int
	overlap   int
}

// Option configures the chunker.
type Option func(*Chunker)

// WithMaxTokens sets the upper bound of tokens per chunk.
func WithMaxTokens(n int) Option {
	return func(c *Chunker) {
		if n > 0 {
			c.maxTokens = n
		}
	}
}

// WithOverlap sets how many trailing tokens of a chunk are repeated at the start of the next one.
func WithOverlap(n int) Option {
	return func(c *Chunker) {
		if n >= 0 {
			c.overlap = n
		}
	}
}

func New(opts ...Option) *Chunker {
	c := &Chunker{
		maxTokens: DefaultMaxTokens,
		overlap:   DefaultOverlapTokens,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.overlap >= c.maxTokens {
		c.overlap = c.maxTokens / 4
	}

	return c
}

// Chunk is a shorthand for New(WithMaxTokens(maxTokens), WithOverlap(overlapTokens)).Chunk(text).
// A negative overlap disables it.
func Chunk(text string, maxTokens, overlapTokens int) []entity.TextChunk {
	if overlapTokens < 0 {
		overlapTokens = 0
	}
	return New(WithMaxTokens(maxTokens), WithOverlap(overlapTokens)).Chunk(text)
}

// CountTokens returns the approximate token count used for chunk sizing.
func CountTokens(text string) int {
	return len(strings.Fields(text))
}

func (c *Chunker) MaxTokens() int     { return c.maxTokens }
func (c *Chunker) OverlapTokens() int { return c.overlap }

type segment struct {
	words     []string
	paragraph int
}

// Chunk splits text into ordered chunks. Empty or whitespace-only text yields no chunks.
func (c *Chunker) Chunk(text string) []entity.TextChunk {
	units := c.units(text)
	if len(units) == 0 {
		return []entity.TextChunk{}
	}

	var (
		chunks   []entity.TextChunk
		current  []segment
		tokens   int
		newUnits int
	)

	for _, u := range units {
		if tokens+len(u.words) > c.maxTokens && newUnits > 0 {
			chunks = append(chunks, render(current, len(chunks), tokens))

			carry := c.overlap
			if room := c.maxTokens - len(u.words); carry > room {
				carry = room
			}

			tail := trailingWords(current, carry)
			current, tokens, newUnits = nil, 0, 0
			if len(tail.words) > 0 {
				current = append(current, tail)
				tokens = len(tail.words)
			}
		}

		current = append(current, u)
		tokens += len(u.words)
		newUnits++
	}

	if newUnits > 0 {
		chunks = append(chunks, render(current, len(chunks), tokens))
	}

	return chunks
}

// units splits text into paragraphs, then sentences. Sentences longer
// than maxTokens are cut into maxTokens-sized pieces.
func (c *Chunker) units(text string) []segment {
	var out []segment

	for p, paragraph := range paragraphs(text) {
		for _, sentence := range sentences(paragraph) {
			for len(sentence) > c.maxTokens {
				out = append(out, segment{words: sentence[:c.maxTokens], paragraph: p})
				sentence = sentence[c.maxTokens:]
			}
			if len(sentence) > 0 {
				out = append(out, segment{words: sentence, paragraph: p})
			}
		}
	}

	return out
}

func paragraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	var (
		out     []string
		current []string
	)
	flush := func() {
		if len(current) > 0 {
			out = append(out, strings.Join(current, " "))
			current = nil
		}
	}

	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		current = append(current, line)
	}
	flush()

	return out
}

func sentences(paragraph string) [][]string {
	var (
		out     [][]string
		current []string
	)

	for _, word := range strings.Fields(paragraph) {
		current = append(current, word)
		if endsSentence(word) {
			out = append(out, current)
			current = nil
		}
	}
	if len(current) > 0 {
		out = append(out, current)
	}

	return out
}

func endsSentence(word string) bool {
	trimmed := strings.TrimRightFunc(word, func(r rune) bool {
		return r == '"' || r == '\'' || r == ')' || r == ']' || r == '»' || r == '”'
	})
	if trimmed == "" {
		return false
	}

	last := []rune(trimmed)
	r := last[len(last)-1]
	if r != '.' && r != '!' && r != '?' && r != '…' {
		return false
	}

	// "e.g." or a lone initial such as "J." rarely ends a sentence.
	if len(last) == 2 && unicode.IsUpper(last[0]) {
		return false
	}
	return !strings.Contains(trimmed[:len(trimmed)-1], ".")
}

func trailingWords(segments []segment, n int) segment {
	if n <= 0 || len(segments) == 0 {
		return segment{}
	}

	var all []string
	for _, s := range segments {
		all = append(all, s.words...)
	}
	if n > len(all) {
		n = len(all)
	}

	words := make([]string, n)
	copy(words, all[len(all)-n:])

	return segment{words: words, paragraph: segments[len(segments)-1].paragraph}
}

func render(segments []segment, index, tokens int) entity.TextChunk {
	var b strings.Builder
	for i, s := range segments {
		if i > 0 {
			if s.paragraph != segments[i-1].paragraph {
				b.WriteString("\n\n")
			} else {
				b.WriteByte(' ')
			}
		}
		b.WriteString(strings.Join(s.words, " "))
	}

	return entity.TextChunk{
		Index:      index,
		Text:       b.String(),
		TokenCount: tokens,
	}
}
