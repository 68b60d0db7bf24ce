// Package bytes provides a goroutine-safe buffer for tests that write output
// from multiple goroutines, such as progress spinners.
package bytes

import (
	"bytes"
	"sync"
)

// A Buffer is a bytes.Buffer whose Write and String methods are guarded by a
// mutex. The zero value is an empty buffer ready to use.
type Buffer struct {
	mu sync.Mutex
	bytes.Buffer
}

func (b *Buffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.Buffer.Write(p)
}

func (b *Buffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.Buffer.String()
}

// Close does nothing; it exists so a Buffer can stand in for an io.ReadCloser.
func (b *Buffer) Close() error {
	return nil
}
