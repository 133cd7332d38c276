package encoding

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

func normalizeAll(t *testing.T, input []byte, chunkSize int) ([]byte, *Normalizer) {
	t.Helper()
	n := NewNormalizerSize(bytes.NewReader(input), charmap.ISO8859_1, chunkSize)
	out, err := io.ReadAll(n)
	require.NoError(t, err)
	return out, n
}

func TestNormalizer_Latin1ToUTF8(t *testing.T) {
	// "SÃO PAULO;AÇAÍ" in ISO-8859-1.
	input := []byte{'S', 0xC3, 'O', ' ', 'P', 'A', 'U', 'L', 'O', ';', 'A', 0xC7, 'A', 0xCD}

	out, n := normalizeAll(t, input, DefaultChunkSize)
	assert.Equal(t, "SÃO PAULO;AÇAÍ", string(out))
	assert.EqualValues(t, 0, n.Substitutions())
}

func TestNormalizer_ChunkBoundaryIndependence(t *testing.T) {
	// Mixed ASCII and high bytes, long enough to straddle several chunks.
	input := bytes.Repeat([]byte{'A', 0xE7, ';', 0xC3, 'O', '\n'}, 100)

	whole, _ := normalizeAll(t, input, len(input))
	for _, chunkSize := range []int{1, 2, 3, 5, 7, 64, 1024} {
		chunked, _ := normalizeAll(t, input, chunkSize)
		assert.Equal(t, whole, chunked, "chunk size %d must not change output", chunkSize)
	}
}

func TestNormalizer_UnmappedByteIsSubstituted(t *testing.T) {
	// 0x81 has no assignment in Windows-1252; the file must continue with a
	// replacement character rather than abort.
	input := []byte{'O', 'K', 0x81, 'O', 'K'}

	n := NewNormalizerSize(bytes.NewReader(input), charmap.Windows1252, 2)
	out, err := io.ReadAll(n)
	require.NoError(t, err)

	assert.Equal(t, "OK�OK", string(out))
	assert.EqualValues(t, 1, n.Substitutions())
}

func TestNormalizer_EmptyInput(t *testing.T) {
	out, n := normalizeAll(t, nil, 16)
	assert.Empty(t, out)
	assert.EqualValues(t, 0, n.Substitutions())
}

func TestNormalizer_SmallDestinationBuffer(t *testing.T) {
	input := []byte{0xC7, 0xC7, 0xC7}
	n := NewNormalizerSize(bytes.NewReader(input), charmap.ISO8859_1, 3)

	var out strings.Builder
	buf := make([]byte, 1)
	for {
		read, err := n.Read(buf)
		out.Write(buf[:read])
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
	}
	assert.Equal(t, "ÇÇÇ", out.String())
}
