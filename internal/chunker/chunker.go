// Package chunker splits page text into bounded, overlapping chunks for
// embedding.
package chunker

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Defaults used when ingesting documents.
const (
	DefaultSeparator = "\n"
	DefaultSize      = 1000
	DefaultOverlap   = 200
)

// ErrInvalidConfig is wrapped by every configuration error returned by New.
var ErrInvalidConfig = errors.New("chunker: invalid configuration")

// Chunk is a substring of the input: Text == input[Start:End].
type Chunk struct {
	Text  string
	Start int
	End   int
}

// Splitter cuts text at a separator and packs the pieces into chunks of at
// most Size bytes, repeating up to Overlap bytes of trailing context at the
// start of the next chunk.
type Splitter struct {
	separator string
	size      int
	overlap   int
}

// New validates the configuration and returns a Splitter.
func New(separator string, size, overlap int) (*Splitter, error) {
	switch {
	case separator == "":
		return nil, fmt.Errorf("%w: empty separator", ErrInvalidConfig)
	case size <= 0:
		return nil, fmt.Errorf("%w: chunk size %d must be positive", ErrInvalidConfig, size)
	case overlap < 0:
		return nil, fmt.Errorf("%w: overlap %d must not be negative", ErrInvalidConfig, overlap)
	case overlap >= size:
		return nil, fmt.Errorf("%w: overlap %d must be smaller than chunk size %d", ErrInvalidConfig, overlap, size)
	}
	return &Splitter{separator: separator, size: size, overlap: overlap}, nil
}

// Default returns a Splitter with the default separator, size and overlap.
func Default() *Splitter {
	return &Splitter{separator: DefaultSeparator, size: DefaultSize, overlap: DefaultOverlap}
}

// Size returns the maximum chunk length in bytes.
func (s *Splitter) Size() int { return s.size }

// Overlap returns the overlap between consecutive chunks in bytes.
func (s *Splitter) Overlap() int { return s.overlap }

type span struct{ start, end int }

func (sp span) len() int { return sp.end - sp.start }

// Split returns the chunks of text in order. Chunks cover text without gaps:
// every chunk starts at or before the end of the previous one.
func (s *Splitter) Split(text string) []Chunk {
	if text == "" {
		return nil
	}

	var chunks []Chunk
	emit := func(start, end int) {
		chunks = append(chunks, Chunk{Text: text[start:end], Start: start, End: end})
	}

	var window []span
	windowLen := 0
	for _, u := range s.units(text) {
		if u.len() > s.size {
			if len(window) > 0 {
				emit(window[0].start, window[len(window)-1].end)
				window, windowLen = nil, 0
			}
			s.slide(text, u, emit)
			continue
		}
		if len(window) > 0 && windowLen+u.len() > s.size {
			emit(window[0].start, window[len(window)-1].end)
			// keep the tail that fits in the overlap and leaves room for u
			for len(window) > 0 && (windowLen > s.overlap || windowLen+u.len() > s.size) {
				windowLen -= window[0].len()
				window = window[1:]
			}
		}
		window = append(window, u)
		windowLen += u.len()
	}
	if len(window) > 0 {
		emit(window[0].start, window[len(window)-1].end)
	}
	return chunks
}

// units cuts text after every separator; the units concatenate back to text.
func (s *Splitter) units(text string) []span {
	var out []span
	pos := 0
	for pos < len(text) {
		i := strings.Index(text[pos:], s.separator)
		if i < 0 {
			out = append(out, span{pos, len(text)})
			break
		}
		end := pos + i + len(s.separator)
		out = append(out, span{pos, end})
		pos = end
	}
	return out
}

// slide cuts a unit longer than the chunk size with a window of s.size bytes
// moving by s.size-s.overlap, keeping cuts on rune boundaries.
func (s *Splitter) slide(text string, u span, emit func(start, end int)) {
	step := s.size - s.overlap
	start := u.start
	for {
		end := start + s.size
		if end >= u.end {
			emit(start, u.end)
			return
		}
		if e := runeFloor(text, end); e > start {
			end = e
		}
		emit(start, end)

		next := runeCeil(text, start+step)
		if next > end {
			next = end
		}
		start = next
	}
}

func runeFloor(text string, i int) int {
	for i > 0 && i < len(text) && !utf8.RuneStart(text[i]) {
		i--
	}
	return i
}

func runeCeil(text string, i int) int {
	for i < len(text) && !utf8.RuneStart(text[i]) {
		i++
	}
	return i
}

// Reconstruct joins the non-overlapping part of every chunk. For chunks
// produced by Split it returns the original text.
func Reconstruct(chunks []Chunk) string {
	var b strings.Builder
	end := 0
	for _, c := range chunks {
		if c.End <= end {
			continue
		}
		from := c.Start
		if from < end {
			from = end
		}
		b.WriteString(c.Text[from-c.Start:])
		end = c.End
	}
	return b.String()
}
