package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsInvalidConfig(t *testing.T) {
	cases := []struct {
		name          string
		sep           string
		size, overlap int
	}{
		{"empty separator", "", 10, 2},
		{"zero size", "\n", 0, 0},
		{"negative size", "\n", -5, 0},
		{"negative overlap", "\n", 10, -1},
		{"overlap equals size", "\n", 10, 10},
		{"overlap exceeds size", "\n", 10, 11},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.sep, tc.size, tc.overlap)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}

	s, err := New("\n", 1000, 200)
	require.NoError(t, err)
	assert.Equal(t, 1000, s.Size())
	assert.Equal(t, 200, s.Overlap())
}

func TestSplitSingleUnitSlidingWindow(t *testing.T) {
	text := strings.Repeat("x", 2500)
	chunks := Default().Split(text)

	require.Len(t, chunks, 3)
	bounds := make([][2]int, len(chunks))
	for i, c := range chunks {
		bounds[i] = [2]int{c.Start, c.End}
		assert.Equal(t, text[c.Start:c.End], c.Text)
	}
	assert.Equal(t, [][2]int{{0, 1000}, {800, 1800}, {1600, 2500}}, bounds)
}

func TestSplitSingleUnitChunkCount(t *testing.T) {
	const size, overlap = 1000, 200
	s, err := New("\n", size, overlap)
	require.NoError(t, err)

	for l := overlap + 1; l <= 6000; l += 37 {
		want := (l - overlap + (size - overlap) - 1) / (size - overlap) // ceil((L-O)/(C-O))
		got := len(s.Split(strings.Repeat("y", l)))
		assert.Equal(t, want, got, "length %d", l)
	}
}

func TestSplitPacksLinesWithOverlap(t *testing.T) {
	line := strings.Repeat("a", 99) + "\n"
	text := strings.Repeat(line, 30)

	chunks := Default().Split(text)

	require.Len(t, chunks, 4)
	starts := make([]int, len(chunks))
	for i, c := range chunks {
		starts[i] = c.Start
		assert.LessOrEqual(t, len(c.Text), 1000)
	}
	assert.Equal(t, []int{0, 800, 1600, 2400}, starts)
	assert.Equal(t, 3000, chunks[3].End)
	for i := 1; i < len(chunks); i++ {
		assert.Equal(t, 200, chunks[i-1].End-chunks[i].Start, "overlap between chunk %d and %d", i-1, i)
	}
}

func TestSplitReconstructs(t *testing.T) {
	texts := []string{
		"",
		"short",
		"one\ntwo\nthree\n",
		strings.Repeat("lorem ipsum dolor\n", 200),
		strings.Repeat("z", 3333) + "\n" + strings.Repeat("short line\n", 150) + strings.Repeat("q", 1200),
		strings.Repeat("\n", 50),
	}
	s, err := New("\n", 120, 30)
	require.NoError(t, err)
	for _, text := range texts {
		chunks := s.Split(text)
		assert.Equal(t, text, Reconstruct(chunks))
		for i, c := range chunks {
			assert.LessOrEqual(t, len(c.Text), 120)
			if i > 0 {
				assert.LessOrEqual(t, c.Start, chunks[i-1].End, "gap before chunk %d", i)
				assert.Greater(t, c.End, chunks[i-1].End, "chunk %d makes no progress", i)
			}
		}
	}
}

func TestSplitKeepsRunesWhole(t *testing.T) {
	text := strings.Repeat("é", 1000)
	s, err := New("\n", 101, 10)
	require.NoError(t, err)

	chunks := s.Split(text)
	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.True(t, utf8.ValidString(c.Text), "chunk %d-%d splits a rune", c.Start, c.End)
	}
	assert.Equal(t, text, Reconstruct(chunks))
}

func TestSplitIsDeterministic(t *testing.T) {
	text := strings.Repeat("The quick brown fox.\nJumps over the lazy dog.\n", 80)
	assert.Equal(t, Default().Split(text), Default().Split(text))
}
