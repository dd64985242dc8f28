package chunker

import (
	"regexp"
	"strings"
)

// SentenceChunker splits oversized text into sentence-aligned pieces with overlap.
// Text that already fits within maxChars is returned whole.
type SentenceChunker struct {
	maxChars         int
	overlapSentences int
	splitter         *regexp.Regexp
}

func NewSentenceChunker(maxChars, overlapSentences int) *SentenceChunker {
	if maxChars <= 0 {
		maxChars = 2000
	}
	if overlapSentences < 0 {
		overlapSentences = 0
	}
	return &SentenceChunker{
		maxChars:         maxChars,
		overlapSentences: overlapSentences,
		splitter:         regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`),
	}
}

// Split returns the pieces of text in order. Blank text yields no pieces.
func (c *SentenceChunker) Split(text string) []string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	if len(trimmed) <= c.maxChars {
		return []string{trimmed}
	}
	sentences := c.sentences(trimmed)

	var pieces []string
	i := 0
	for i < len(sentences) {
		end := i + 1
		size := len(sentences[i])
		for end < len(sentences) && size+1+len(sentences[end]) <= c.maxChars {
			size += 1 + len(sentences[end])
			end++
		}
		pieces = append(pieces, strings.Join(sentences[i:end], " "))
		if end == len(sentences) {
			break
		}
		next := end - c.overlapSentences
		if next <= i {
			next = i + 1
		}
		i = next
	}
	return pieces
}

func (c *SentenceChunker) sentences(text string) []string {
	loc := c.splitter.FindAllStringIndex(text, -1)
	var out []string
	last := 0
	for _, l := range loc {
		if s := strings.TrimSpace(text[l[0]:l[1]]); s != "" {
			out = append(out, s)
		}
		last = l[1]
	}
	if tail := strings.TrimSpace(text[last:]); tail != "" {
		out = append(out, tail)
	}
	return out
}
