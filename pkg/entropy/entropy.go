// Package entropy reads the per-run random filler buffers.
package entropy

import (
	"crypto/rand"
	"fmt"
	"io"
)

// Read fills a new n byte buffer from r.
func Read(r io.Reader, n int) ([]byte, error) {
	buf := make([]byte, n)
	_, err := io.ReadFull(r, buf)
	if err != nil {
		return nil, fmt.Errorf("could not read %d bytes of entropy: %w", n, err)
	}
	return buf, nil
}

// System reads n bytes from the operating system's entropy source.
func System(n int) ([]byte, error) {
	return Read(rand.Reader, n)
}
