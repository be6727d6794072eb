package storage

import (
	"io"
)

/**
 * A Provider is a fixed origin byte store addressed by offset. Corruption
 * and searching both operate on one.
 *
 */
type Provider interface {
	io.ReaderAt
	io.WriterAt
	Size() uint64
	Flush() error
	Close() error
}
