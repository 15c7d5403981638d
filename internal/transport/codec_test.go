package transport

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecompressLimit(t *testing.T) {
	data := bytes.Repeat([]byte("a"), 100)
	gz, err := Compress(data)
	require.NoError(t, err)

	got, err := DecompressLimit(bytes.NewReader(gz), 100)
	require.NoError(t, err)
	require.Equal(t, data, got)

	_, err = DecompressLimit(bytes.NewReader(gz), 99)
	require.ErrorIs(t, err, ErrTooLarge)

	_, err = DecompressLimit(bytes.NewReader([]byte("not gzip")), 100)
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrTooLarge)
}
