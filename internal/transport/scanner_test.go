package transport

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chunkReader returns each chunk from exactly one Read call, mimicking a
// network stream with arbitrary packet boundaries.
type chunkReader struct {
	chunks []string
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if len(r.chunks) == 0 {
		return 0, io.EOF
	}
	chunk := r.chunks[0]
	r.chunks = r.chunks[1:]
	return copy(p, chunk), nil
}

func TestRecordScannerSplitAcrossReads(t *testing.T) {
	scanner := NewRecordScanner(&chunkReader{chunks: []string{
		"{\"a\":1}\n{\"b\":", "2}\n",
	}})

	first, err := scanner.Next()
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(first))

	second, err := scanner.Next()
	require.NoError(t, err)
	assert.JSONEq(t, `{"b":2}`, string(second))

	_, err = scanner.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestRecordScannerMultipleRecordsPerRead(t *testing.T) {
	scanner := NewRecordScanner(strings.NewReader("{\"a\":1}\n{\"b\":2}\n{\"c\":3}\n"))

	var records []string
	for {
		record, err := scanner.Next()
		if err != nil {
			assert.ErrorIs(t, err, io.EOF)
			break
		}
		records = append(records, string(record))
	}
	assert.Equal(t, []string{`{"a":1}`, `{"b":2}`, `{"c":3}`}, records)
}

func TestRecordScannerSkipsBlankLines(t *testing.T) {
	scanner := NewRecordScanner(strings.NewReader("\n{\"a\":1}\n\n"))

	record, err := scanner.Next()
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(record))

	_, err = scanner.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestRecordScannerSurfacesUnterminatedTrailingRecord(t *testing.T) {
	scanner := NewRecordScanner(strings.NewReader("{\"a\":1}\n{\"b\":2}"))

	record, err := scanner.Next()
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(record))

	record, err = scanner.Next()
	require.NoError(t, err)
	assert.JSONEq(t, `{"b":2}`, string(record))

	_, err = scanner.Next()
	assert.ErrorIs(t, err, io.EOF)
}

type failingReader struct{}

func (failingReader) Read(p []byte) (int, error) {
	return 0, errors.New("connection reset")
}

func TestRecordScannerPropagatesReadErrors(t *testing.T) {
	scanner := NewRecordScanner(failingReader{})

	_, err := scanner.Next()
	assert.EqualError(t, err, "connection reset")
}
