// Package volume abstracts the destination a fill writes into: a mounted
// directory, or a FAT32 filesystem inside an unmounted image file.
package volume

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dnaforensics/scar/pkg/outcome"
)

var ErrNotDirectory = errors.New("not a directory")

// Names passed to a Volume are slash separated and relative to its root.
type Volume interface {
	// Path is how name is shown to the user.
	Path(name string) string
	Mkdir(name string) error
	IsDir(name string) bool
	Create(name string, perm os.FileMode) (io.WriteCloser, error)
	// SameFile reports whether src on the host already is name.
	SameFile(src string, name string) bool
	Close() error
}

/**
 * CopyIn copies the host file src to name on the volume, replacing any
 * existing file.
 *
 */
func CopyIn(v Volume, src string, name string) (int64, error) {
	if v.SameFile(src, name) {
		return 0, fmt.Errorf("%s and %s: %w", src, v.Path(name), outcome.ErrSameFile)
	}

	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	out, err := v.Create(name, 0666)
	if err != nil {
		return 0, err
	}

	n, err := io.Copy(out, in)
	cerr := out.Close()
	if err != nil {
		return n, err
	}
	return n, cerr
}
