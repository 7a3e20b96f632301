// Package chunk splits long page text into overlapping fixed-size windows
// for embedding. Chunking is a pure function: the same input always yields
// the same windows at the same offsets.
package chunk

import "fmt"

const (
	// DefaultSize is the window length in bytes used unless configured
	// otherwise.
	DefaultSize = 1000

	// DefaultOverlap is how many bytes consecutive windows share.
	DefaultOverlap = 100
)

// Window is one slice of the input text. Start is the byte offset of the
// window within the input, which feeds deterministic chunk identity.
type Window struct {
	Start int
	Text  string
}

// Split cuts text into windows of at most size bytes, each starting
// size-overlap bytes after the previous one. The final window is truncated
// at the end of the text. A negative overlap is treated as zero; an overlap
// of size or more would make the step non-positive and loop forever, so it
// is rejected.
func Split(text string, size, overlap int) ([]Window, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		return nil, fmt.Errorf("chunk overlap %d must be smaller than size %d", overlap, size)
	}

	if len(text) == 0 {
		return nil, nil
	}

	step := size - overlap
	var windows []Window
	for start := 0; start < len(text); start += step {
		end := min(start+size, len(text))
		windows = append(windows, Window{Start: start, Text: text[start:end]})
	}
	return windows, nil
}
