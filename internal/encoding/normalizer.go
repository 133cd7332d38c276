// Package encoding converts the registry files from their legacy single-byte
// encoding (ISO-8859-1) to UTF-8 as a stream, so files of any size are
// processed under a fixed memory ceiling.
package encoding

import (
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// DefaultChunkSize is how many source bytes are read per chunk. The output
// buffer is at most utf8.UTFMax times this, which bounds peak memory
// regardless of input file size.
const DefaultChunkSize = 64 * 1024

// Normalizer is an io.Reader that decodes a single-byte source stream into
// UTF-8. The source encoding is single-byte, so a chunk boundary can never
// split an input character; output runes are always encoded whole into the
// internal buffer, so no Read ever exposes a partial UTF-8 sequence that a
// subsequent chunk would have to complete.
//
// Bytes outside the source mapping decode to U+FFFD and are counted instead
// of failing the file; the published archives are known to contain isolated
// corrupt bytes.
type Normalizer struct {
	src           io.Reader
	cm            *charmap.Charmap
	chunk         []byte
	pending       []byte
	err           error
	substitutions int64
}

// NewNormalizer returns a normalizer reading ISO-8859-1 from r with the
// default chunk size.
func NewNormalizer(r io.Reader) *Normalizer {
	return NewNormalizerSize(r, charmap.ISO8859_1, DefaultChunkSize)
}

// NewNormalizerSize returns a normalizer with an explicit source charmap and
// chunk size. Chunk size is clamped to at least 1.
func NewNormalizerSize(r io.Reader, cm *charmap.Charmap, chunkSize int) *Normalizer {
	if chunkSize < 1 {
		chunkSize = 1
	}
	return &Normalizer{
		src:   r,
		cm:    cm,
		chunk: make([]byte, chunkSize),
	}
}

// Read implements io.Reader, serving UTF-8 bytes decoded from the source.
func (n *Normalizer) Read(p []byte) (int, error) {
	for len(n.pending) == 0 {
		if n.err != nil {
			return 0, n.err
		}
		n.fill()
	}
	copied := copy(p, n.pending)
	n.pending = n.pending[copied:]
	return copied, nil
}

// fill reads one source chunk and decodes it into the pending buffer.
func (n *Normalizer) fill() {
	read, err := n.src.Read(n.chunk)
	if read > 0 {
		out := make([]byte, 0, read*utf8.UTFMax)
		var runeBuf [utf8.UTFMax]byte
		for _, b := range n.chunk[:read] {
			r := n.cm.DecodeByte(b)
			if r == utf8.RuneError {
				n.substitutions++
			}
			size := utf8.EncodeRune(runeBuf[:], r)
			out = append(out, runeBuf[:size]...)
		}
		n.pending = out
	}
	if err != nil {
		n.err = err
	}
}

// Substitutions reports how many source bytes had no mapping and were
// replaced with U+FFFD.
func (n *Normalizer) Substitutions() int64 {
	return n.substitutions
}
