// Package candidates holds the pool of files a run picks from.
package candidates

import (
	"errors"
	"fmt"
	"io/fs"
	"math/rand/v2"
	"os"
	"path/filepath"

	"github.com/loopholelabs/logging/types"
)

var (
	ErrEmpty   = errors.New("no candidate files left")
	ErrNotRoot = errors.New("not a directory")
)

/**
 * Set is an unordered pool of paths sampled without replacement.
 * Removal swaps the last entry into the hole.
 *
 */
type Set struct {
	paths []string
}

func New(paths []string) *Set {
	return &Set{
		paths: append([]string(nil), paths...),
	}
}

/**
 * Walk collects every non-directory under root whose base name matches the
 * glob pattern. Unreadable directories below root are skipped; a root that
 * is missing, unreadable or not a directory is an error.
 *
 */
func Walk(root string, pattern string, log types.Logger) (*Set, error) {
	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("bad pattern %q: %w", pattern, err)
	}

	fi, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}
	if !fi.IsDir() {
		return nil, fmt.Errorf("failed to walk %s: %w", root, ErrNotRoot)
	}

	s := &Set{}
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			if log != nil {
				log.Debug().Str("path", path).Err(err).Msg("skipping unreadable path")
			}
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		// Pattern already validated.
		if ok, _ := filepath.Match(pattern, d.Name()); ok {
			s.paths = append(s.paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}

	if log != nil {
		log.Debug().Str("root", root).Str("pattern", pattern).Int("files", len(s.paths)).Msg("candidates collected")
	}
	return s, nil
}

func (s *Set) Len() int {
	return len(s.paths)
}

// Paths returns a copy of the remaining candidates.
func (s *Set) Paths() []string {
	return append([]string(nil), s.paths...)
}

// Take removes and returns a uniformly chosen candidate.
func (s *Set) Take(rnd *rand.Rand) (string, error) {
	if len(s.paths) == 0 {
		return "", ErrEmpty
	}
	i := rnd.IntN(len(s.paths))
	p := s.paths[i]
	last := len(s.paths) - 1
	s.paths[i] = s.paths[last]
	s.paths = s.paths[:last]
	return p, nil
}
