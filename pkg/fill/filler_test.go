package fill

import (
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dnaforensics/scar/pkg/candidates"
	"github.com/dnaforensics/scar/pkg/outcome"
	"github.com/dnaforensics/scar/pkg/testutils"
	"github.com/dnaforensics/scar/pkg/volume"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func makeCorpus(t *testing.T, n int, size int) (string, []string) {
	dir := t.TempDir()
	var names []string
	for i := 0; i < n; i++ {
		// Spread over two levels so the walk has something to recurse into.
		sub := filepath.Join(dir, fmt.Sprintf("set%d", i%2))
		require.NoError(t, os.MkdirAll(sub, 0777))
		name := filepath.Join(sub, fmt.Sprintf("f%04d.jpg", i))
		data := make([]byte, size)
		for j := range data {
			data[j] = byte(i + j)
		}
		require.NoError(t, os.WriteFile(name, data, 0666))
		names = append(names, name)
	}
	// Not a match.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0666))
	return dir, names
}

func TestFillExhaustsCorpus(t *testing.T) {
	corpus, names := makeCorpus(t, 7, 100)
	cands, err := candidates.Walk(corpus, "*jpg", nil)
	require.NoError(t, err)

	dest := t.TempDir()
	vol, err := volume.NewDir(dest)
	require.NoError(t, err)

	out := &testutils.SafeWriteBuffer{}
	f, err := NewFiller(vol, cands, NewConfig().
		WithCapacity(3).
		WithOutput(out).
		WithRand(rand.New(rand.NewPCG(1, 2))))
	require.NoError(t, err)

	r := f.Run()
	assert.True(t, r.Exhausted)
	assert.Equal(t, outcome.Success, r.Outcome)
	assert.NoError(t, r.Err)
	assert.Equal(t, 7, r.Copied)
	assert.Equal(t, int64(700), r.Bytes)
	assert.Equal(t, 3, r.Buckets)

	counts := map[string]int{}
	seen := map[string]bool{}
	for _, b := range []string{"0000", "0001", "0002"} {
		entries, err := os.ReadDir(filepath.Join(dest, b))
		require.NoError(t, err)
		counts[b] = len(entries)
		for _, e := range entries {
			assert.False(t, seen[e.Name()], "copied twice: %s", e.Name())
			seen[e.Name()] = true
		}
	}
	assert.Equal(t, map[string]int{"0000": 3, "0001": 3, "0002": 1}, counts)
	for _, n := range names {
		assert.True(t, seen[filepath.Base(n)])
	}
	_, err = os.Stat(filepath.Join(dest, "0003"))
	assert.True(t, os.IsNotExist(err))

	copies := 0
	for _, l := range out.Lines() {
		if strings.HasPrefix(l, "Copying ") {
			copies++
		}
	}
	assert.Equal(t, 7, copies)
	assert.Contains(t, out.String(), "Created "+filepath.Join(dest, "0000"))
}

// fullVolume accepts budget bytes across all files and then reports ENOSPC.
type fullVolume struct {
	*volume.Dir
	budget int64
}

type fullWriter struct {
	io.WriteCloser
	v *fullVolume
}

func (v *fullVolume) Create(name string, perm os.FileMode) (io.WriteCloser, error) {
	w, err := v.Dir.Create(name, perm)
	if err != nil {
		return nil, err
	}
	return &fullWriter{WriteCloser: w, v: v}, nil
}

func (w *fullWriter) Write(p []byte) (int, error) {
	if int64(len(p)) > w.v.budget {
		n, _ := w.WriteCloser.Write(p[:w.v.budget])
		w.v.budget = 0
		return n, &os.PathError{Op: "write", Path: "full", Err: unix.ENOSPC}
	}
	w.v.budget -= int64(len(p))
	return w.WriteCloser.Write(p)
}

func TestFillStopsWhenFull(t *testing.T) {
	corpus, _ := makeCorpus(t, 20, 1000)
	cands, err := candidates.Walk(corpus, "*jpg", nil)
	require.NoError(t, err)

	dir, err := volume.NewDir(t.TempDir())
	require.NoError(t, err)
	vol := &fullVolume{Dir: dir, budget: 4500}

	out := &testutils.SafeWriteBuffer{}
	f, err := NewFiller(vol, cands, NewConfig().
		WithOutput(out).
		WithRand(rand.New(rand.NewPCG(3, 4))))
	require.NoError(t, err)

	r := f.Run()
	assert.False(t, r.Exhausted)
	assert.Equal(t, outcome.DeviceFull, r.Outcome)
	assert.Equal(t, 4, r.Copied)
	assert.Equal(t, 15, cands.Len())
	lines := out.Lines()
	assert.Equal(t, "Device is full.", lines[len(lines)-1])
}

func TestFillNeedsRand(t *testing.T) {
	vol, err := volume.NewDir(t.TempDir())
	require.NoError(t, err)
	_, err = NewFiller(vol, candidates.New(nil), NewConfig())
	assert.Error(t, err)
}

// A 10MB FAT32 image and more small files than fit.
func TestFillImageUntilFull(t *testing.T) {
	if testing.Short() {
		t.Skip("fills a disk image")
	}
	corpus, _ := makeCorpus(t, 300, 48*1024)
	cands, err := candidates.Walk(corpus, "*jpg", nil)
	require.NoError(t, err)

	name := filepath.Join(t.TempDir(), "tiny.img")
	require.NoError(t, volume.CreateImage(name, 10*1024*1024, "SCAR"))
	img, err := volume.OpenImage(name, 0)
	require.NoError(t, err)
	t.Cleanup(func() {
		img.Close()
	})

	f, err := NewFiller(img, cands, NewConfig().WithRand(rand.New(rand.NewPCG(5, 6))))
	require.NoError(t, err)

	r := f.Run()
	assert.False(t, r.Exhausted)
	assert.True(t, r.Outcome.Stopped())
	assert.Error(t, r.Err)
	assert.Greater(t, r.Copied, 0)
	assert.Less(t, r.Copied, 300)

	entries, err := img.ReadDir("0000")
	require.NoError(t, err)
	assert.LessOrEqual(t, len(entries), 1000)
	assert.False(t, img.IsDir("0001"))
}
