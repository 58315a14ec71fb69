// Package chunking packs text units (sentences or paragraphs) into
// size-bounded chunks that overlap by a fixed number of units.
package chunking

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Unit selects how text is split before packing.
type Unit int

const (
	// Sentences is used for flat text such as catalog item documents.
	Sentences Unit = iota
	// Paragraphs is used for section bodies: each line or block is a unit.
	Paragraphs
)

func (u Unit) separator() string {
	if u == Paragraphs {
		return "\n"
	}
	return " "
}

// Chunker splits text into chunks of at most maxSize runes. Overlap is a
// number of units, never characters.
type Chunker struct {
	maxSize int
	overlap int
	unit    Unit
}

// Option configures a Chunker.
type Option func(*Chunker)

// WithUnit sets the unit the chunker splits on. Default is Sentences.
func WithUnit(u Unit) Option {
	return func(c *Chunker) {
		c.unit = u
	}
}

// New creates a Chunker. It panics when maxSize is not positive or overlap is
// negative: both are programming errors, not input errors.
func New(maxSize, overlap int, opts ...Option) *Chunker {
	validate(maxSize, overlap)
	c := &Chunker{
		maxSize: maxSize,
		overlap: overlap,
		unit:    Sentences,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// MaxSize returns the configured maximum chunk size in runes.
func (c *Chunker) MaxSize() int { return c.maxSize }

// Piece is one packed chunk. Overlap counts the leading units repeated from
// the previous piece; dropping them restores the original unit sequence.
type Piece struct {
	Text    string
	Overlap int
}

// Chunk splits text into units and packs them.
func (c *Chunker) Chunk(text string) []string {
	return texts(c.ChunkPieces(text))
}

// ChunkPieces is Chunk with the overlap count of every chunk.
func (c *Chunker) ChunkPieces(text string) []Piece {
	var units []string
	if c.unit == Paragraphs {
		units = SplitParagraphs(text)
	} else {
		units = SplitSentences(text)
	}
	return PackPieces(units, c.maxSize, c.overlap, c.unit.separator())
}

// ChunkUnits packs units that the caller already split.
func (c *Chunker) ChunkUnits(units []string) []string {
	return Pack(units, c.maxSize, c.overlap, c.unit.separator())
}

// Pack accumulates units greedily into chunks joined by sep. When adding the
// next unit would push the buffer past maxSize, the buffer is emitted and the
// next one is seeded with the last overlap units of the emitted chunk.
// Consecutive chunks share exactly overlap units whenever those units plus
// the next unit fit in maxSize; otherwise seeded units are dropped oldest
// first until they do. A single unit longer than maxSize becomes its own
// chunk unsplit. The final non-empty buffer is always emitted.
func Pack(units []string, maxSize, overlap int, sep string) []string {
	return texts(PackPieces(units, maxSize, overlap, sep))
}

// PackPieces is Pack with the number of seeded units of every chunk.
func PackPieces(units []string, maxSize, overlap int, sep string) []Piece {
	validate(maxSize, overlap)

	sepLen := utf8.RuneCountInString(sep)
	var (
		pieces []Piece
		buf    []string
		seeded int
		size   int
	)

	for _, u := range units {
		ul := utf8.RuneCountInString(u)

		if len(buf) > 0 && size+sepLen+ul > maxSize {
			pieces = append(pieces, Piece{Text: strings.Join(buf, sep), Overlap: seeded})

			buf = tail(buf, overlap)
			size = joinedLen(buf, sepLen)
			for len(buf) > 0 && size+sepLen+ul > maxSize {
				buf = buf[1:]
				size = joinedLen(buf, sepLen)
			}
			seeded = len(buf)
		}

		if len(buf) == 0 {
			size = ul
		} else {
			size += sepLen + ul
		}
		buf = append(buf, u)
	}

	if len(buf) > 0 {
		pieces = append(pieces, Piece{Text: strings.Join(buf, sep), Overlap: seeded})
	}
	return pieces
}

func texts(pieces []Piece) []string {
	if len(pieces) == 0 {
		return nil
	}
	out := make([]string, len(pieces))
	for i, p := range pieces {
		out[i] = p.Text
	}
	return out
}

func validate(maxSize, overlap int) {
	if maxSize <= 0 {
		panic(fmt.Sprintf("chunking: max size must be positive, got %d", maxSize))
	}
	if overlap < 0 {
		panic(fmt.Sprintf("chunking: overlap must not be negative, got %d", overlap))
	}
}

func tail(units []string, n int) []string {
	if n <= 0 {
		return nil
	}
	start := max(len(units)-n, 0)
	return append([]string(nil), units[start:]...)
}

func joinedLen(units []string, sepLen int) int {
	if len(units) == 0 {
		return 0
	}
	n := sepLen * (len(units) - 1)
	for _, u := range units {
		n += utf8.RuneCountInString(u)
	}
	return n
}
