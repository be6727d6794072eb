package sources

import (
	"io"
	"sync"
)

/**
 * Simple memory based storage provider. Like a file, a write beyond the end
 * grows it.
 *
 */
type MemoryStorage struct {
	data []byte
	lock sync.RWMutex
}

func NewMemoryStorage(size int) *MemoryStorage {
	return &MemoryStorage{
		data: make([]byte, size),
	}
}

func NewMemoryStorageFrom(data []byte) *MemoryStorage {
	return &MemoryStorage{
		data: append([]byte(nil), data...),
	}
}

func (i *MemoryStorage) ReadAt(buffer []byte, offset int64) (int, error) {
	i.lock.RLock()
	defer i.lock.RUnlock()
	if offset >= int64(len(i.data)) {
		return 0, io.EOF
	}
	n := copy(buffer, i.data[offset:])
	if n < len(buffer) {
		return n, io.EOF
	}
	return n, nil
}

func (i *MemoryStorage) WriteAt(buffer []byte, offset int64) (int, error) {
	i.lock.Lock()
	defer i.lock.Unlock()
	end := offset + int64(len(buffer))
	if end > int64(len(i.data)) {
		i.data = append(i.data, make([]byte, end-int64(len(i.data)))...)
	}
	n := copy(i.data[offset:], buffer)
	return n, nil
}

// Bytes returns a copy of the current contents.
func (i *MemoryStorage) Bytes() []byte {
	i.lock.RLock()
	defer i.lock.RUnlock()
	return append([]byte(nil), i.data...)
}

func (i *MemoryStorage) Flush() error {
	return nil
}

func (i *MemoryStorage) Size() uint64 {
	i.lock.RLock()
	defer i.lock.RUnlock()
	return uint64(len(i.data))
}

func (i *MemoryStorage) Close() error {
	return nil
}
