// Package chunker splits long text into bounded, overlapping chunks,
// preferring paragraph, line, sentence and word boundaries in that order.
package chunker

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/Hamza-cpp/research-assistant/internal/domain"
)

// DefaultSeparators go from coarsest to finest. The empty separator means
// character-level slicing and always terminates the recursion.
var DefaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// ErrInvalidOptions reports unusable size/overlap parameters.
var ErrInvalidOptions = errors.New("invalid chunker options")

// Options configures Split. Sizes are counted in runes.
type Options struct {
	MaxSize    int
	Overlap    int
	Separators []string
}

// Validate checks the size constraints.
func (o Options) Validate() error {
	switch {
	case o.MaxSize <= 0:
		return fmt.Errorf("%w: max size must be positive, got %d", ErrInvalidOptions, o.MaxSize)
	case o.Overlap < 0:
		return fmt.Errorf("%w: overlap must not be negative, got %d", ErrInvalidOptions, o.Overlap)
	case o.Overlap >= o.MaxSize:
		return fmt.Errorf("%w: overlap %d must be smaller than max size %d", ErrInvalidOptions, o.Overlap, o.MaxSize)
	}
	return nil
}

// Split cuts text into chunks of at most MaxSize runes of own content, each
// chunk after the first prefixed with up to Overlap runes of the previous one.
// The result is deterministic and Reassemble(Split(text)) == text.
func Split(text string, opts Options) ([]domain.Chunk, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if text == "" {
		return []domain.Chunk{}, nil
	}

	separators := opts.Separators
	if len(separators) == 0 {
		separators = DefaultSeparators
	}

	segments := splitRecursive(text, separators, opts.MaxSize)

	chunks := make([]domain.Chunk, 0, len(segments))
	offset := 0
	for i, segment := range segments {
		prefix := ""
		if i > 0 && opts.Overlap > 0 {
			prefix = tail(chunks[i-1].Content, opts.Overlap)
		}
		chunks = append(chunks, domain.Chunk{
			Content:       prefix + segment,
			StartOffset:   offset,
			SequenceIndex: i,
			OverlapLen:    utf8.RuneCountInString(prefix),
		})
		offset += utf8.RuneCountInString(segment)
	}

	return chunks, nil
}

// Reassemble strips overlap prefixes and joins chunk contents back together.
func Reassemble(chunks []domain.Chunk) string {
	var b strings.Builder
	for _, chunk := range chunks {
		b.WriteString(dropRunes(chunk.Content, chunk.OverlapLen))
	}
	return b.String()
}

// splitRecursive returns segments whose concatenation equals text and whose
// rune length is at most max.
func splitRecursive(text string, separators []string, max int) []string {
	if utf8.RuneCountInString(text) <= max {
		return []string{text}
	}

	for i, sep := range separators {
		if sep == "" {
			return splitRunes(text, max)
		}
		if !strings.Contains(text, sep) {
			continue
		}

		finer := separators[i+1:]
		var (
			out     []string
			current strings.Builder
			size    int
		)
		flush := func() {
			if size > 0 {
				out = append(out, current.String())
				current.Reset()
				size = 0
			}
		}

		for _, piece := range strings.SplitAfter(text, sep) {
			if piece == "" {
				continue
			}
			n := utf8.RuneCountInString(piece)
			if n > max {
				flush()
				out = append(out, splitRecursive(piece, finer, max)...)
				continue
			}
			if size+n > max {
				flush()
			}
			current.WriteString(piece)
			size += n
		}
		flush()
		return out
	}

	return splitRunes(text, max)
}

// splitRunes slices on byte offsets so invalid UTF-8 bytes pass through
// unchanged; each one counts as a single rune.
func splitRunes(text string, max int) []string {
	var out []string
	for len(text) > 0 {
		end := 0
		for n := 0; n < max && end < len(text); n++ {
			_, width := utf8.DecodeRuneInString(text[end:])
			end += width
		}
		out = append(out, text[:end])
		text = text[end:]
	}
	return out
}

func tail(s string, n int) string {
	count := utf8.RuneCountInString(s)
	if count <= n {
		return s
	}
	return dropRunes(s, count-n)
}

func dropRunes(s string, n int) string {
	for i := range s {
		if n == 0 {
			return s[i:]
		}
		n--
	}
	return ""
}
