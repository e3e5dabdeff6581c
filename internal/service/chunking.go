package service

import (
	"errors"
	"strings"
	"unicode/utf8"
)

const (
	DefaultChunkSize    = 800
	DefaultChunkOverlap = 80
)

// DefaultSeparators are tried in order; the empty separator splits into
// single characters and guarantees no chunk exceeds the size.
var DefaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}

var ErrInvalidChunkConfig = errors.New("invalid chunk configuration")

// TextChunker splits text recursively on a prioritized list of separators.
// Lengths are measured in runes.
type TextChunker struct {
	size       int
	overlap    int
	separators []string
}

// ChunkOption configures a TextChunker.
type ChunkOption func(*TextChunker)

// WithChunkSize sets the maximum chunk length.
func WithChunkSize(size int) ChunkOption {
	return func(c *TextChunker) { c.size = size }
}

// WithChunkOverlap sets how many trailing runes of a chunk may be repeated
// at the start of the next one.
func WithChunkOverlap(overlap int) ChunkOption {
	return func(c *TextChunker) { c.overlap = overlap }
}

// WithSeparators replaces the separator list. A trailing "" is appended when
// missing.
func WithSeparators(seps ...string) ChunkOption {
	return func(c *TextChunker) {
		out := append([]string(nil), seps...)
		if len(out) == 0 || out[len(out)-1] != "" {
			out = append(out, "")
		}
		c.separators = out
	}
}

// NewTextChunker creates a chunker with the default 800/80 settings unless
// overridden.
func NewTextChunker(opts ...ChunkOption) (*TextChunker, error) {
	c := &TextChunker{
		size:       DefaultChunkSize,
		overlap:    DefaultChunkOverlap,
		separators: DefaultSeparators,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.size <= 0 || c.overlap < 0 || c.overlap >= c.size {
		return nil, ErrInvalidChunkConfig
	}
	return c, nil
}

// Split returns the ordered chunks of text. Empty or whitespace-only input
// yields no chunks.
func (c *TextChunker) Split(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	return c.split(text, c.separators)
}

func (c *TextChunker) split(text string, separators []string) []string {
	var out []string

	separator := separators[len(separators)-1]
	var rest []string
	for i, s := range separators {
		if s == "" {
			separator = ""
			break
		}
		if strings.Contains(text, s) {
			separator = s
			rest = separators[i+1:]
			break
		}
	}

	var good []string
	for _, piece := range splitKeepingSeparator(text, separator) {
		if runeLen(piece) < c.size {
			good = append(good, piece)
			continue
		}
		if len(good) > 0 {
			out = append(out, c.merge(good)...)
			good = nil
		}
		if len(rest) > 0 {
			out = append(out, c.split(piece, rest)...)
		} else if trimmed := strings.TrimSpace(piece); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(good) > 0 {
		out = append(out, c.merge(good)...)
	}

	return out
}

// merge greedily packs pieces up to the chunk size. When a chunk is emitted,
// pieces are dropped from its front until at most overlap runes remain, and
// those carry into the next chunk.
func (c *TextChunker) merge(pieces []string) []string {
	var (
		docs    []string
		current []string
		total   int
	)

	for _, p := range pieces {
		n := runeLen(p)
		if total+n > c.size && len(current) > 0 {
			if doc := strings.TrimSpace(strings.Join(current, "")); doc != "" {
				docs = append(docs, doc)
			}
			for total > c.overlap || (total+n > c.size && total > 0) {
				total -= runeLen(current[0])
				current = current[1:]
			}
		}
		current = append(current, p)
		total += n
	}

	if doc := strings.TrimSpace(strings.Join(current, "")); doc != "" {
		docs = append(docs, doc)
	}
	return docs
}

// splitKeepingSeparator splits text on sep and attaches each separator to
// the start of the piece that follows it. Empty pieces are dropped.
func splitKeepingSeparator(text, sep string) []string {
	if sep == "" {
		out := make([]string, 0, len(text))
		for _, r := range text {
			out = append(out, string(r))
		}
		return out
	}

	parts := strings.Split(text, sep)
	out := make([]string, 0, len(parts))
	if parts[0] != "" {
		out = append(out, parts[0])
	}
	for _, p := range parts[1:] {
		out = append(out, sep+p)
	}
	return out
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
