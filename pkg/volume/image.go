package volume

import (
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	diskfs "github.com/diskfs/go-diskfs"
	"github.com/diskfs/go-diskfs/backend"
	"github.com/diskfs/go-diskfs/backend/file"
	"github.com/diskfs/go-diskfs/disk"
	"github.com/diskfs/go-diskfs/filesystem"
	"golang.org/x/sys/unix"
)

/**
 * Image is a volume inside a disk image, written through go-diskfs without
 * mounting it. Partition 0 means the filesystem spans the whole image.
 *
 */
type Image struct {
	path    string
	backend backend.Storage
	disk    *disk.Disk
	fs      filesystem.FileSystem
}

// CreateImage makes a raw image of size bytes holding one FAT32 filesystem.
func CreateImage(name string, size int64, label string) error {
	b, err := file.CreateFromPath(name, size)
	if err != nil {
		return fmt.Errorf("could not create image %s: %w", name, err)
	}
	defer b.Close()

	d, err := diskfs.OpenBackend(b)
	if err != nil {
		return fmt.Errorf("could not open image %s: %w", name, err)
	}

	_, err = d.CreateFilesystem(disk.FilesystemSpec{
		Partition:   0,
		FSType:      filesystem.TypeFat32,
		VolumeLabel: label,
	})
	if err != nil {
		return fmt.Errorf("could not create filesystem on %s: %w", name, err)
	}
	return nil
}

func OpenImage(name string, partition int) (*Image, error) {
	b, err := file.OpenFromPath(name, false)
	if err != nil {
		return nil, fmt.Errorf("could not open image %s: %w", name, err)
	}

	d, err := diskfs.OpenBackend(b)
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("could not open image %s: %w", name, err)
	}

	fs, err := d.GetFilesystem(partition)
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("no filesystem in %s partition %d: %w", name, partition, err)
	}

	return &Image{
		path:    name,
		backend: b,
		disk:    d,
		fs:      fs,
	}, nil
}

func (i *Image) abs(name string) string {
	return path.Join("/", name)
}

func (i *Image) Path(name string) string {
	return i.path + ":" + i.abs(name)
}

func (i *Image) Mkdir(name string) error {
	return imageError(i.fs.Mkdir(i.abs(name)))
}

func (i *Image) IsDir(name string) bool {
	_, err := i.fs.ReadDir(i.abs(name))
	return err == nil
}

func (i *Image) Create(name string, _ os.FileMode) (io.WriteCloser, error) {
	f, err := i.fs.OpenFile(i.abs(name), os.O_CREATE|os.O_RDWR|os.O_TRUNC)
	if err != nil {
		return nil, imageError(err)
	}
	return &imageFile{f: f}, nil
}

type imageFile struct {
	f filesystem.File
}

func (f *imageFile) Write(p []byte) (int, error) {
	n, err := f.f.Write(p)
	return n, imageError(err)
}

func (f *imageFile) Close() error {
	return imageError(f.f.Close())
}

// go-diskfs reports an exhausted FAT as a plain error. Tag it with ENOSPC
// so it classifies the same as a full mounted device.
func imageError(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "space") || strings.Contains(msg, "insufficient") || strings.Contains(msg, "no free") {
		return fmt.Errorf("%w: %w", unix.ENOSPC, err)
	}
	return err
}

// Files inside an image are never host files.
func (i *Image) SameFile(string, string) bool {
	return false
}

// ReadFile returns the contents of name inside the image.
func (i *Image) ReadFile(name string) ([]byte, error) {
	f, err := i.fs.OpenFile(i.abs(name), os.O_RDONLY)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// ReadDir lists the entry names in directory name.
func (i *Image) ReadDir(name string) ([]string, error) {
	entries, err := i.fs.ReadDir(i.abs(name))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names, nil
}

func (i *Image) Close() error {
	return i.backend.Close()
}
