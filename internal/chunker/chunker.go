package chunker

import (
	"fmt"
	"unicode"
)

// Chunker splits text into overlapping windows of at most Size runes.
// Within each window it prefers to break at the largest structural boundary
// available: paragraph, then sentence, then word, then a hard rune cut.
// Every chunk after the first starts exactly Overlap runes before the end of
// the previous chunk, so stripping the first Overlap runes from each chunk
// after the first and concatenating reconstructs the input.
type Chunker struct {
	size    int
	overlap int
}

// New validates the chunking parameters. Overlap must stay strictly below
// size, otherwise chunking would make no forward progress.
func New(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("chunk overlap must be in [0, %d), got %d", size, overlap)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Chunk splits text into ordered chunks. Empty input yields nil.
// The result is deterministic for a given input and configuration.
func (c *Chunker) Chunk(text string) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	var chunks []string
	start := 0
	for {
		if len(runes)-start <= c.size {
			chunks = append(chunks, string(runes[start:]))
			return chunks
		}
		end := c.breakpoint(runes, start)
		chunks = append(chunks, string(runes[start:end]))
		start = end - c.overlap
	}
}

// breakpoint returns the cut position for the chunk starting at start.
// Candidates are limited to (start+overlap, start+size] so that the next
// chunk always begins after start.
func (c *Chunker) breakpoint(runes []rune, start int) int {
	limit := start + c.size
	min := start + c.overlap + 1

	if end := lastParagraphEnd(runes, min, limit); end >= min {
		return end
	}
	if end := lastSentenceEnd(runes, min, limit); end >= min {
		return end
	}
	if end := lastWordEnd(runes, min, limit); end >= min {
		return end
	}
	return limit
}

// lastParagraphEnd finds the position just after the last blank-line
// separator in runes[min:limit], or -1.
func lastParagraphEnd(runes []rune, min, limit int) int {
	for i := limit; i >= min; i-- {
		if runes[i-1] == '\n' && i >= 2 && runes[i-2] == '\n' {
			return i
		}
	}
	return -1
}

// lastSentenceEnd finds the position just after the last sentence-ending
// punctuation followed by whitespace in runes[min:limit], or -1.
func lastSentenceEnd(runes []rune, min, limit int) int {
	for i := limit; i >= min; i-- {
		if !unicode.IsSpace(runes[i-1]) {
			continue
		}
		if i >= 2 && isSentenceEnd(runes[i-2]) {
			return i
		}
	}
	return -1
}

// lastWordEnd finds the position just after the last whitespace rune in
// runes[min:limit], or -1.
func lastWordEnd(runes []rune, min, limit int) int {
	for i := limit; i >= min; i-- {
		if unicode.IsSpace(runes[i-1]) {
			return i
		}
	}
	return -1
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
