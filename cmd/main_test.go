package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exitCode(t *testing.T, args ...string) int {
	scarConf = filepath.Join(t.TempDir(), "none.conf")
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	if err == nil {
		return 0
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return 1
}

func TestUsageErrors(t *testing.T) {
	dir := t.TempDir()

	assert.Equal(t, 1, exitCode(t, "fillup"))
	assert.Equal(t, 1, exitCode(t, "fillup", dir, dir))
	assert.Equal(t, 1, exitCode(t, "fillup", filepath.Join(dir, "missing")))
	assert.Equal(t, 1, exitCode(t, "maxout"))
	assert.Equal(t, 1, exitCode(t, "maxout", filepath.Join(dir, "missing")))

	assert.Equal(t, 1, exitCode(t, "erase", dir))
	assert.Equal(t, 1, exitCode(t, "erase", dir, dir, "1", "2", "3"))
	assert.Equal(t, 1, exitCode(t, "erase", dir, dir, "101"))
	assert.Equal(t, 1, exitCode(t, "erase", dir, dir, "half"))
	assert.Equal(t, 1, exitCode(t, "erase", dir, dir, "10", "-1"))
	assert.Equal(t, 1, exitCode(t, "erase", dir, filepath.Join(dir, "missing")))

	assert.Equal(t, 1, exitCode(t, "mkimage", filepath.Join(dir, "x.img"), "lots"))
}

func TestFillupBadCorpus(t *testing.T) {
	t.Cleanup(func() {
		fillupCorpus = ""
	})
	dir := t.TempDir()

	// A corpus that is not there must not look like an empty one.
	assert.Equal(t, 1, exitCode(t, "fillup", "--corpus", filepath.Join(dir, "nocorpus"), dir))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, 0, len(entries))
}

func TestSearchExitCodes(t *testing.T) {
	dir := t.TempDir()

	assert.Equal(t, 1, exitCode(t, "search", "stray", "-d", filepath.Join(dir, "dev")))
	assert.Equal(t, 1, exitCode(t, "search", "-d", filepath.Join(dir, "dev"), "-c", "1000"))
	assert.Equal(t, 2, exitCode(t, "search", "-d", filepath.Join(dir, "dev"), "-c", "1048576", "-p", dir))

	dev := filepath.Join(dir, "dev")
	require.NoError(t, os.WriteFile(dev, make([]byte, 4096), 0666))
	assert.Equal(t, 2, exitCode(t, "search", "-d", dev, "-p", filepath.Join(dir, "nopatterns")))
	assert.Equal(t, 0, exitCode(t, "search", "-d", dev, "-p", t.TempDir()))
}

func TestEraseNothing(t *testing.T) {
	target := t.TempDir()
	ref := t.TempDir()
	keep := filepath.Join(target, "a.jpg")
	require.NoError(t, os.WriteFile(keep, []byte("jpeg"), 0666))

	// Zero files selected still runs every phase.
	assert.Equal(t, 0, exitCode(t, "erase", "--seed", "7", target, ref, "0", "0"))
	_, err := os.Stat(keep)
	assert.NoError(t, err)
}
