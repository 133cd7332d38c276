package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanner_ExactArity(t *testing.T) {
	sc := NewScanner(strings.NewReader("0111301;Cultivo de arroz\n"), 2)

	record, ok := sc.Next()
	require.True(t, ok)
	assert.Equal(t, RawRecord{"0111301", "Cultivo de arroz"}, record)

	_, ok = sc.Next()
	assert.False(t, ok)
	assert.NoError(t, sc.Err())
	assert.EqualValues(t, 0, sc.Dropped())
}

func TestScanner_ShortRecordIsPadded(t *testing.T) {
	// The official files sometimes omit trailing optional fields.
	sc := NewScanner(strings.NewReader("00000001;ACME;2062\n"), 7)

	record, ok := sc.Next()
	require.True(t, ok)
	assert.Equal(t, RawRecord{"00000001", "ACME", "2062", "", "", "", ""}, record)
	assert.EqualValues(t, 0, sc.Dropped())
}

func TestScanner_TrailingDelimiter(t *testing.T) {
	sc := NewScanner(strings.NewReader("0111301;Cultivo de arroz;\n"), 2)

	record, ok := sc.Next()
	require.True(t, ok)
	assert.Equal(t, RawRecord{"0111301", "Cultivo de arroz"}, record)
	assert.EqualValues(t, 0, sc.Dropped())
}

func TestScanner_OverlongRecordIsDropped(t *testing.T) {
	input := "a;b;c;d;e\n" + "ok1;ok2\n"
	sc := NewScanner(strings.NewReader(input), 2)

	record, ok := sc.Next()
	require.True(t, ok, "scanner must continue past the malformed record")
	assert.Equal(t, RawRecord{"ok1", "ok2"}, record)

	_, ok = sc.Next()
	assert.False(t, ok)
	assert.EqualValues(t, 1, sc.Dropped())
}

func TestScanner_SkipsEmptyLines(t *testing.T) {
	sc := NewScanner(strings.NewReader("\n\n01;um\n\n02;dois\n"), 2)

	var records []RawRecord
	for {
		record, ok := sc.Next()
		if !ok {
			break
		}
		records = append(records, record)
	}
	require.NoError(t, sc.Err())
	assert.Equal(t, []RawRecord{{"01", "um"}, {"02", "dois"}}, records)
}

func TestScanner_NoQuoting(t *testing.T) {
	// The source format does not quote; a quote character is literal data.
	sc := NewScanner(strings.NewReader(`01;"literal quotes"`+"\n"), 2)

	record, ok := sc.Next()
	require.True(t, ok)
	assert.Equal(t, RawRecord{"01", `"literal quotes"`}, record)
}
