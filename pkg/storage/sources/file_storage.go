package sources

import (
	"fmt"
	"io"
	"os"
)

/**
 * File storage provider over an existing file, opened for in-place update.
 * The size is captured once when the file is opened.
 *
 */
type FileStorage struct {
	fp   *os.File
	size int64
}

func NewFileStorage(f string) (*FileStorage, error) {
	return openFileStorage(f, os.O_RDWR)
}

// NewFileStorageReadOnly also works on block devices, whose stat size is 0.
func NewFileStorageReadOnly(f string) (*FileStorage, error) {
	return openFileStorage(f, os.O_RDONLY)
}

func openFileStorage(f string, flag int) (*FileStorage, error) {
	fp, err := os.OpenFile(f, flag, 0)
	if err != nil {
		return nil, err
	}
	size, err := fp.Seek(0, io.SeekEnd)
	if err != nil {
		fp.Close()
		return nil, fmt.Errorf("could not size %s: %w", f, err)
	}
	return &FileStorage{
		fp:   fp,
		size: size,
	}, nil
}

func (i *FileStorage) Name() string {
	return i.fp.Name()
}

func (i *FileStorage) Close() error {
	return i.fp.Close()
}

func (i *FileStorage) ReadAt(buffer []byte, offset int64) (int, error) {
	return i.fp.ReadAt(buffer, offset)
}

// Writes past the captured size extend the file, same as a seek and write.
func (i *FileStorage) WriteAt(buffer []byte, offset int64) (int, error) {
	return i.fp.WriteAt(buffer, offset)
}

func (i *FileStorage) Flush() error {
	return i.fp.Sync()
}

func (i *FileStorage) Size() uint64 {
	return uint64(i.size)
}
