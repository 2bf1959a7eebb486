package extract

// reader.go prepares raw file bytes for the CSV parser without loading the
// whole file into memory. A leading byte order mark selects the decoding
// (UTF-8, UTF-16LE or UTF-16BE) and is dropped; without one the input is
// read as UTF-8. Invalid sequences become U+FFFD.

import (
	"io"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// countingReader tracks bytes read.
type countingReader struct {
	reader    io.Reader
	BytesRead int64
}

// Read implements io.Reader.
func (r *countingReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.BytesRead += int64(n)
	return n, err
}

// newDecoder wraps r so the output is valid UTF-8 with no BOM.
func newDecoder(r io.Reader) io.Reader {
	return transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
}

// wrapSource returns the decoded reader to parse and the counter of raw
// bytes consumed from r.
func wrapSource(r io.Reader) (io.Reader, *countingReader) {
	counter := &countingReader{reader: r}
	return newDecoder(counter), counter
}
