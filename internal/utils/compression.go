package utils

import (
	"bytes"
	"time"

	"github.com/klauspost/compress/gzip"
)

// GzipCompress compresses data using gzip at best compression.
// The header carries no name and a modification time of 0, so equal input
// always yields equal output.
func GzipCompress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return nil, err
	}
	w.Header.ModTime = time.Unix(0, 0)

	if _, err := w.Write(data); err != nil {
		return nil, err
	}

	if err := w.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
