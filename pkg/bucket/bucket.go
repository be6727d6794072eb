// Package bucket spreads files over numbered subdirectories so no single
// directory hits the filesystem's entry limit.
package bucket

import (
	"errors"
	"fmt"

	"github.com/dnaforensics/scar/pkg/volume"
)

const (
	FileCapacity      = 1000
	SyntheticCapacity = 100
)

var ErrCapacity = errors.New("bucket capacity must be positive")

// Name is the directory name of bucket index.
func Name(index int) string {
	return fmt.Sprintf("%04d", index)
}

// Index is the bucket the count'th placed item (from 0) belongs in.
func Index(count int, capacity int) int {
	return count / capacity
}

/**
 * Buckets hands out the bucket for each placed item, creating the directory
 * the first time its index comes up. A directory that already exists is
 * reused.
 *
 */
type Buckets struct {
	vol      volume.Volume
	capacity int
	current  int
	name     string
}

func New(vol volume.Volume, capacity int) (*Buckets, error) {
	if capacity <= 0 {
		return nil, ErrCapacity
	}
	return &Buckets{
		vol:      vol,
		capacity: capacity,
		current:  -1,
	}, nil
}

// Place returns the bucket for item count and whether it was just created.
func (b *Buckets) Place(count int) (string, bool, error) {
	idx := Index(count, b.capacity)
	if idx == b.current {
		return b.name, false, nil
	}

	name := Name(idx)
	created := false
	if !b.vol.IsDir(name) {
		err := b.vol.Mkdir(name)
		if err != nil {
			return "", false, fmt.Errorf("could not create bucket %s: %w", b.vol.Path(name), err)
		}
		created = true
	}
	b.current = idx
	b.name = name
	return name, created, nil
}
