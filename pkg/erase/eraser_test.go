package erase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"github.com/dnaforensics/scar/pkg/candidates"
	"github.com/dnaforensics/scar/pkg/outcome"
	"github.com/dnaforensics/scar/pkg/sector"
	"github.com/dnaforensics/scar/pkg/testutils"
	"github.com/dnaforensics/scar/pkg/volume"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingFlusher struct {
	count int
	err   error
}

func (f *countingFlusher) Flush() error {
	f.count++
	return f.err
}

type recordingArchiver struct {
	prefix string
	files  []string
	err    error
}

func (a *recordingArchiver) Store(_ context.Context, prefix string, files []string) error {
	a.prefix = prefix
	a.files = files
	return a.err
}

func content(i int, size int) []byte {
	data := make([]byte, size)
	for j := range data {
		data[j] = byte((i*31 + j) % 251)
	}
	return data
}

// makeTarget writes n matching files spread over two buckets, plus one that
// does not match.
func makeTarget(t *testing.T, n int, size int) (string, map[string][]byte) {
	dir := t.TempDir()
	files := map[string][]byte{}
	for i := 0; i < n; i++ {
		sub := filepath.Join(dir, fmt.Sprintf("%04d", i%2))
		require.NoError(t, os.MkdirAll(sub, 0777))
		name := filepath.Join(sub, fmt.Sprintf("img%02d.jpg", i))
		files[name] = content(i, size)
		require.NoError(t, os.WriteFile(name, files[name], 0666))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "keep.txt"), []byte("keep"), 0666))
	return dir, files
}

func newRef(t *testing.T) *volume.Dir {
	ref, err := volume.NewDir(t.TempDir())
	require.NoError(t, err)
	return ref
}

func TestEraseAllWithoutCorruption(t *testing.T) {
	target, files := makeTarget(t, 10, 3000)
	ref := newRef(t)
	flusher := &countingFlusher{}
	out := &testutils.SafeWriteBuffer{}

	e, err := NewEraser(target, ref, NewConfig().
		WithNumFiles(10).
		WithFlusher(flusher).
		WithOutput(out).
		WithRand(rand.New(rand.NewPCG(1, 1))))
	require.NoError(t, err)

	res, err := e.Run(context.TODO())
	require.NoError(t, err)
	assert.NoError(t, res.SelectErr)
	assert.Equal(t, 10, len(res.Kill))
	assert.Equal(t, 10, res.Deleted)
	assert.Empty(t, res.Corrupted)
	assert.Equal(t, 3, flusher.count)

	for name, data := range files {
		_, err := os.Stat(name)
		assert.True(t, os.IsNotExist(err), name)

		copied, err := os.ReadFile(filepath.Join(ref.Root(), filepath.Base(name)))
		require.NoError(t, err)
		assert.Equal(t, data, copied)
	}

	_, err = os.Stat(filepath.Join(target, "keep.txt"))
	assert.NoError(t, err)
	assert.NotContains(t, out.String(), "Deleting partial file content")
	assert.Contains(t, out.String(), "Copying ")
	assert.Contains(t, out.String(), "Deleting original file ")
}

func TestCorruptHalfOfOneFile(t *testing.T) {
	target, files := makeTarget(t, 1, 2048)
	ref := newRef(t)
	junk := bytes.Repeat([]byte{0xff}, sector.Size)

	e, err := NewEraser(target, ref, NewConfig().
		WithNumFiles(1).
		WithPercent(50).
		WithJunk(junk).
		WithFlusher(&countingFlusher{}).
		WithRand(rand.New(rand.NewPCG(2, 2))))
	require.NoError(t, err)

	require.NoError(t, e.Select())
	kill := e.Kill()
	require.Equal(t, 1, len(kill))
	original := files[kill[0]]

	reports, err := e.Corrupt()
	require.NoError(t, err)
	r := reports[kill[0]]
	require.NotNil(t, r)
	assert.Equal(t, int64(4), r.Sectors)
	assert.Equal(t, 2, len(r.Order))

	data, err := os.ReadFile(kill[0])
	require.NoError(t, err)
	require.Equal(t, 2048, len(data))

	corrupted := 0
	for s := 0; s < 4; s++ {
		sec := data[s*sector.Size : (s+1)*sector.Size]
		orig := original[s*sector.Size : (s+1)*sector.Size]
		if bytes.Equal(sec, orig) {
			continue
		}
		corrupted++
		assert.Equal(t, junk[:256], sec[:256])
		assert.Equal(t, orig[256:], sec[256:])
	}
	assert.Equal(t, 2, corrupted)

	// The reference copy was taken before corruption.
	copied, err := os.ReadFile(filepath.Join(ref.Root(), filepath.Base(kill[0])))
	require.NoError(t, err)
	assert.Equal(t, original, copied)

	n, err := e.Delete()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSelectNoDuplicates(t *testing.T) {
	target, _ := makeTarget(t, 8, 100)

	e, err := NewEraser(target, newRef(t), NewConfig().
		WithNumFiles(5).
		WithRand(rand.New(rand.NewPCG(42, 42))))
	require.NoError(t, err)
	require.NoError(t, e.Select())

	kill := e.Kill()
	assert.Equal(t, 5, len(kill))
	seen := map[string]bool{}
	for _, k := range kill {
		assert.False(t, seen[k], "picked twice: %s", k)
		seen[k] = true
	}
}

func TestSelectRunsOutOfFiles(t *testing.T) {
	target, files := makeTarget(t, 4, 100)
	flusher := &countingFlusher{}
	out := &testutils.SafeWriteBuffer{}

	e, err := NewEraser(target, newRef(t), NewConfig().
		WithNumFiles(6).
		WithFlusher(flusher).
		WithOutput(out).
		WithRand(rand.New(rand.NewPCG(3, 3))))
	require.NoError(t, err)

	res, err := e.Run(context.TODO())
	require.NoError(t, err)
	assert.ErrorIs(t, res.SelectErr, candidates.ErrEmpty)
	assert.Equal(t, outcome.OtherIOError, res.SelectOutcome)
	assert.Contains(t, out.String(), "No more files to select.\n")
	assert.Equal(t, 4, len(res.Kill))
	assert.Equal(t, 4, res.Deleted)
	assert.Equal(t, 3, flusher.count)
	for name := range files {
		_, err := os.Stat(name)
		assert.True(t, os.IsNotExist(err))
	}
}

func TestSelectCopyFailureOutcome(t *testing.T) {
	target, files := makeTarget(t, 3, 100)
	ref := newRef(t)
	for name := range files {
		require.NoError(t, ref.Mkdir(filepath.Base(name)))
	}
	out := &testutils.SafeWriteBuffer{}

	e, err := NewEraser(target, ref, NewConfig().
		WithNumFiles(2).
		WithFlusher(&countingFlusher{}).
		WithOutput(out).
		WithRand(rand.New(rand.NewPCG(5, 5))))
	require.NoError(t, err)

	res, err := e.Run(context.TODO())
	require.NoError(t, err)
	assert.Equal(t, outcome.DestinationIsDirectory, res.SelectOutcome)
	assert.Equal(t, 0, len(res.Kill))
	assert.Contains(t, out.String(), "Destination is a directory.\n")
	assert.NotContains(t, out.String(), "<nil>")

	// Nothing was selected, so nothing goes.
	for name := range files {
		_, err := os.Stat(name)
		assert.NoError(t, err)
	}
}

func TestDeleteFailureIsFatal(t *testing.T) {
	target, _ := makeTarget(t, 3, 100)

	e, err := NewEraser(target, newRef(t), NewConfig().
		WithNumFiles(3).
		WithRand(rand.New(rand.NewPCG(4, 4))))
	require.NoError(t, err)
	require.NoError(t, e.Select())

	kill := e.Kill()
	require.NoError(t, os.Remove(kill[1]))

	n, err := e.Delete()
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Equal(t, 1, n)
	_, err = os.Stat(kill[2])
	assert.NoError(t, err)
}

func TestFlushFailureIsNotFatal(t *testing.T) {
	target, _ := makeTarget(t, 2, 100)
	flusher := &countingFlusher{err: errors.New("no sync")}

	e, err := NewEraser(target, newRef(t), NewConfig().
		WithNumFiles(2).
		WithFlusher(flusher).
		WithRand(rand.New(rand.NewPCG(5, 5))))
	require.NoError(t, err)

	res, err := e.Run(context.TODO())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Deleted)
	assert.Equal(t, 3, flusher.count)
}

func TestArchiveReferenceCopies(t *testing.T) {
	target, _ := makeTarget(t, 3, 100)
	ref := newRef(t)
	archiver := &recordingArchiver{}

	e, err := NewEraser(target, ref, NewConfig().
		WithNumFiles(3).
		WithFlusher(&countingFlusher{}).
		WithArchiver(archiver).
		WithRand(rand.New(rand.NewPCG(6, 6))))
	require.NoError(t, err)

	res, err := e.Run(context.TODO())
	require.NoError(t, err)
	assert.NoError(t, res.ArchiveErr)
	assert.Equal(t, e.UUID().String(), archiver.prefix)
	require.Equal(t, 3, len(archiver.files))
	for i, k := range res.Kill {
		assert.Equal(t, filepath.Join(ref.Root(), filepath.Base(k)), archiver.files[i])
	}

	archiver.err = errors.New("unreachable")
	target, _ = makeTarget(t, 1, 100)
	e, err = NewEraser(target, newRef(t), NewConfig().
		WithNumFiles(1).
		WithFlusher(&countingFlusher{}).
		WithArchiver(archiver).
		WithRand(rand.New(rand.NewPCG(7, 7))))
	require.NoError(t, err)

	res, err = e.Run(context.TODO())
	require.NoError(t, err)
	assert.Error(t, res.ArchiveErr)
	assert.Equal(t, 1, res.Deleted)
}

func TestNewEraserValidates(t *testing.T) {
	target := t.TempDir()
	ref := newRef(t)
	rnd := rand.New(rand.NewPCG(1, 1))

	_, err := NewEraser(target, ref, NewConfig().WithRand(rnd).WithPercent(101))
	assert.ErrorIs(t, err, ErrPercent)

	_, err = NewEraser(target, ref, NewConfig().WithRand(rnd).WithPercent(50))
	assert.ErrorIs(t, err, sector.ErrJunkSize)

	_, err = NewEraser(target, ref, NewConfig().WithRand(rnd).WithNumFiles(-1))
	assert.Error(t, err)

	_, err = NewEraser(filepath.Join(target, "missing"), ref, NewConfig().WithRand(rnd))
	assert.ErrorIs(t, err, volume.ErrNotDirectory)

	_, err = NewEraser(target, ref, NewConfig())
	assert.Error(t, err)
}
