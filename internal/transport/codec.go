// Package transport contains the built-in api.Transport implementations:
// the HTTP store-endpoint client, a SQLite archive, and an in-memory
// recorder for tests and development.
package transport

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"

	"github.com/klauspost/compress/gzip"

	"github.com/petrijr/raven/pkg/api"
)

// ErrTooLarge is returned by DecompressLimit when the decoded data exceeds
// the limit.
var ErrTooLarge = errors.New("transport: decompressed body too large")

// EncodeEvent serializes an Event to JSON.
func EncodeEvent(ev *api.Event) ([]byte, error) {
	return json.Marshal(ev)
}

// DecodeEvent parses JSON produced by EncodeEvent.
func DecodeEvent(data []byte) (*api.Event, error) {
	var ev api.Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

// Compress gzips data.
func Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decompress reverses Compress.
func Decompress(r io.Reader) ([]byte, error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}

// DecompressLimit is Decompress that stops after limit decoded bytes and
// returns ErrTooLarge if the stream holds more.
func DecompressLimit(r io.Reader, limit int64) ([]byte, error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	data, err := io.ReadAll(io.LimitReader(zr, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, ErrTooLarge
	}
	return data, nil
}
