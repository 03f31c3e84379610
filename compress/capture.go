// Package compress opens capture files that were compressed after
// recording. The trimmer needs random access, so a compressed capture is
// decompressed into an unlinked temporary file once up front; everything
// downstream sees an ordinary seekable file.
//
// Dispatch is by file extension: ".zst" (Zstandard frames) and ".lz4" (LZ4
// frames) are recognized, anything else is opened as-is.
package compress

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// OpenCapture opens the capture at path, transparently decompressing it if
// the extension marks it as compressed. The returned file is positioned at
// offset zero. Temporary files backing decompressed captures are unlinked
// immediately, so closing the file releases all resources.
func OpenCapture(path string) (*os.File, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".zst":
		return decompressToTemp(path, newZstdReader)
	case ".lz4":
		return decompressToTemp(path, newLZ4Reader)
	default:
		return os.Open(path)
	}
}

func newZstdReader(r io.Reader) (io.Reader, func(), error) {
	// Single-threaded: the copy below is sequential anyway.
	dec, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, nil, err
	}

	return dec.IOReadCloser(), dec.Close, nil
}

func newLZ4Reader(r io.Reader) (io.Reader, func(), error) {
	return lz4.NewReader(r), func() {}, nil
}

func decompressToTemp(path string, newReader func(io.Reader) (io.Reader, func(), error)) (*os.File, error) {
	src, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	reader, closeReader, err := newReader(src)
	if err != nil {
		return nil, fmt.Errorf("open compressed capture %s: %w", path, err)
	}
	defer closeReader()

	tmp, err := os.CreateTemp("", "perftrim-*.data")
	if err != nil {
		return nil, fmt.Errorf("temp file for %s: %w", path, err)
	}
	// Unlink now so the file disappears with its last descriptor.
	_ = os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, reader); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("decompress %s: %w", path, err)
	}

	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("rewind decompressed capture %s: %w", path, err)
	}

	return tmp, nil
}
