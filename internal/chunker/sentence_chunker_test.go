package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplit_ShortTextUnchanged(t *testing.T) {
	c := NewSentenceChunker(100, 1)
	assert.Equal(t, []string{"One. Two."}, c.Split("  One. Two.  "))
	assert.Nil(t, c.Split("   "))
}

func TestSplit_GroupsSentencesWithOverlap(t *testing.T) {
	c := NewSentenceChunker(32, 1)
	pieces := c.Split("Alpha one here. Beta two here. Gamma three here. Delta four")

	assert.Equal(t, []string{
		"Alpha one here. Beta two here.",
		"Beta two here. Gamma three here.",
		"Gamma three here. Delta four",
	}, pieces)
}

func TestSplit_NoOverlapCoversAllSentencesOnce(t *testing.T) {
	c := NewSentenceChunker(21, 0)
	text := "Aaaa aaaa. Bbbb bbbb. Cccc cccc. Dddd dddd."
	pieces := c.Split(text)

	assert.Equal(t, []string{"Aaaa aaaa. Bbbb bbbb.", "Cccc cccc. Dddd dddd."}, pieces)
	assert.Equal(t, text, strings.Join(pieces, " "))
}

func TestSplit_OverlapLargerThanPieceTerminates(t *testing.T) {
	c := NewSentenceChunker(12, 5)
	pieces := c.Split("First one. Second one. Third one.")
	assert.Equal(t, []string{"First one.", "Second one.", "Third one."}, pieces)
}

func TestSplit_OversizedSentenceKeptWhole(t *testing.T) {
	c := NewSentenceChunker(5, 0)
	pieces := c.Split("This sentence is long. Ok.")
	assert.Equal(t, []string{"This sentence is long.", "Ok."}, pieces)
}
