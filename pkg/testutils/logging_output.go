package testutils

import (
	"bytes"
	"sync"
)

// SafeWriteBuffer collects log or audit output written from several goroutines.
type SafeWriteBuffer struct {
	bufferLock sync.Mutex
	buffer     bytes.Buffer
}

func (swb *SafeWriteBuffer) Write(p []byte) (n int, err error) {
	swb.bufferLock.Lock()
	defer swb.bufferLock.Unlock()
	return swb.buffer.Write(p)
}

func (swb *SafeWriteBuffer) String() string {
	swb.bufferLock.Lock()
	defer swb.bufferLock.Unlock()
	return swb.buffer.String()
}

// Lines returns the non-empty lines written so far.
func (swb *SafeWriteBuffer) Lines() []string {
	swb.bufferLock.Lock()
	defer swb.bufferLock.Unlock()
	var lines []string
	for _, l := range bytes.Split(swb.buffer.Bytes(), []byte("\n")) {
		if len(l) > 0 {
			lines = append(lines, string(l))
		}
	}
	return lines
}
