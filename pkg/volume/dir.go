package volume

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/shirou/gopsutil/v3/disk"
)

/**
 * Dir is a volume rooted at a host directory, normally a mount point.
 *
 */
type Dir struct {
	root string
}

func NewDir(root string) (*Dir, error) {
	fi, err := os.Stat(root)
	if err != nil || !fi.IsDir() {
		return nil, fmt.Errorf("%s: %w", root, ErrNotDirectory)
	}
	return &Dir{root: root}, nil
}

func (d *Dir) Root() string {
	return d.root
}

func (d *Dir) Path(name string) string {
	return filepath.Join(d.root, filepath.FromSlash(name))
}

func (d *Dir) Mkdir(name string) error {
	return os.Mkdir(d.Path(name), 0777)
}

func (d *Dir) IsDir(name string) bool {
	fi, err := os.Stat(d.Path(name))
	return err == nil && fi.IsDir()
}

func (d *Dir) Create(name string, perm os.FileMode) (io.WriteCloser, error) {
	return os.OpenFile(d.Path(name), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
}

func (d *Dir) SameFile(src string, name string) bool {
	a, err := os.Stat(src)
	if err != nil {
		return false
	}
	b, err := os.Stat(d.Path(name))
	if err != nil {
		return false
	}
	return os.SameFile(a, b)
}

func (d *Dir) Close() error {
	return nil
}

// Usage reports how full the filesystem holding the root is.
func (d *Dir) Usage() (*disk.UsageStat, error) {
	return disk.Usage(d.root)
}
