// Package erase simulates deleting a set of files from a device, optionally
// overwriting part of their content first, while keeping reference copies so
// a searcher can later tell what is left of them.
package erase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"path/filepath"

	"github.com/dnaforensics/scar/pkg/candidates"
	"github.com/dnaforensics/scar/pkg/flush"
	"github.com/dnaforensics/scar/pkg/metrics"
	"github.com/dnaforensics/scar/pkg/outcome"
	"github.com/dnaforensics/scar/pkg/sector"
	"github.com/dnaforensics/scar/pkg/storage/sources"
	"github.com/dnaforensics/scar/pkg/volume"
	"github.com/google/uuid"
	"github.com/loopholelabs/logging/types"
)

const (
	Tool            = "erase"
	DefaultNumFiles = 100
	DefaultPattern  = "*jpg"
)

var ErrPercent = sector.ErrPercent

// Archiver keeps the reference copies somewhere off the machine.
type Archiver interface {
	Store(ctx context.Context, prefix string, files []string) error
}

type Config struct {
	Logger   types.Logger
	Metrics  metrics.Recorder
	Output   io.Writer
	Rand     *rand.Rand
	Flusher  flush.Flusher
	Archiver Archiver
	Pattern  string
	Percent  int
	NumFiles int
	Junk     []byte
}

func NewConfig() *Config {
	return &Config{
		Logger:   nil,
		Metrics:  nil,
		Output:   io.Discard,
		Rand:     nil,
		Flusher:  flush.System{},
		Archiver: nil,
		Pattern:  DefaultPattern,
		Percent:  0,
		NumFiles: DefaultNumFiles,
		Junk:     nil,
	}
}

func (c *Config) WithLogger(log types.Logger) *Config {
	c.Logger = log
	return c
}

func (c *Config) WithMetrics(m metrics.Recorder) *Config {
	c.Metrics = m
	return c
}

func (c *Config) WithOutput(w io.Writer) *Config {
	c.Output = w
	return c
}

func (c *Config) WithRand(rnd *rand.Rand) *Config {
	c.Rand = rnd
	return c
}

func (c *Config) WithFlusher(f flush.Flusher) *Config {
	c.Flusher = f
	return c
}

func (c *Config) WithArchiver(a Archiver) *Config {
	c.Archiver = a
	return c
}

func (c *Config) WithPattern(pattern string) *Config {
	c.Pattern = pattern
	return c
}

func (c *Config) WithPercent(percent int) *Config {
	c.Percent = percent
	return c
}

func (c *Config) WithNumFiles(n int) *Config {
	c.NumFiles = n
	return c
}

// WithJunk sets the sector of filler written over corrupted content.
func (c *Config) WithJunk(junk []byte) *Config {
	c.Junk = junk
	return c
}

type Result struct {
	// Kill lists the selected files in the order they were picked.
	Kill []string
	// SelectErr is what cut selection short, if anything.
	SelectErr     error
	SelectOutcome outcome.Outcome
	ArchiveErr    error
	Corrupted     map[string]*sector.Report
	Deleted       int
}

/**
 * Eraser runs the three phases over one target directory. Selection copies
 * each chosen file into the reference directory and adds it to the kill
 * list. Corruption overwrites part of every listed file in place. Deletion
 * removes them. Every phase ends with a flush so the device sees it.
 *
 */
type Eraser struct {
	uuid      uuid.UUID
	target    string
	ref       *volume.Dir
	rnd       *rand.Rand
	flusher   flush.Flusher
	archiver  Archiver
	pattern   string
	percent   int
	numFiles  int
	corrupter *sector.Corrupter
	out       io.Writer
	log       types.Logger
	metrics   metrics.Recorder

	kill []string
	refs []string
}

func NewEraser(target string, ref *volume.Dir, config *Config) (*Eraser, error) {
	if config.Rand == nil {
		return nil, errors.New("no random source")
	}
	if config.Percent < 0 || config.Percent > 100 {
		return nil, fmt.Errorf("%w: %d", ErrPercent, config.Percent)
	}
	if config.NumFiles < 0 {
		return nil, fmt.Errorf("number of files must not be negative: %d", config.NumFiles)
	}
	fi, err := os.Stat(target)
	if err != nil || !fi.IsDir() {
		return nil, fmt.Errorf("%s: %w", target, volume.ErrNotDirectory)
	}

	e := &Eraser{
		uuid:     uuid.New(),
		target:   target,
		ref:      ref,
		rnd:      config.Rand,
		flusher:  config.Flusher,
		archiver: config.Archiver,
		pattern:  config.Pattern,
		percent:  config.Percent,
		numFiles: config.NumFiles,
		out:      config.Output,
		log:      config.Logger,
		metrics:  config.Metrics,
	}
	if e.out == nil {
		e.out = io.Discard
	}
	if e.flusher == nil {
		e.flusher = flush.System{}
	}

	if e.percent > 0 {
		e.corrupter, err = sector.NewCorrupter(e.percent, config.Junk, e.rnd, e.log)
		if err != nil {
			return nil, err
		}
	}
	return e, nil
}

func (e *Eraser) UUID() uuid.UUID {
	return e.uuid
}

// Kill returns a copy of the kill list.
func (e *Eraser) Kill() []string {
	return append([]string(nil), e.kill...)
}

/**
 * Select picks numFiles distinct matching files under the target, copying
 * each into the reference directory before listing it. The first failure
 * ends selection; whatever was listed up to then stays listed.
 *
 */
func (e *Eraser) Select() error {
	cands, err := candidates.Walk(e.target, e.pattern, e.log)
	if err != nil {
		return err
	}

	for i := 0; i < e.numFiles; i++ {
		src, err := cands.Take(e.rnd)
		if err != nil {
			return fmt.Errorf("selected %d of %d: %w", i, e.numFiles, err)
		}

		fmt.Fprintf(e.out, "Copying %s to %s\n", src, e.ref.Root())
		name := filepath.Base(src)
		n, err := volume.CopyIn(e.ref, src, name)
		if err != nil {
			return fmt.Errorf("could not copy %s: %w", src, err)
		}

		e.kill = append(e.kill, src)
		e.refs = append(e.refs, e.ref.Path(name))
		if e.metrics != nil {
			e.metrics.FileSelected(n)
		}
	}
	return nil
}

/**
 * Corrupt overwrites part of every file on the kill list. Any failure is
 * returned straight away.
 *
 */
func (e *Eraser) Corrupt() (map[string]*sector.Report, error) {
	reports := make(map[string]*sector.Report, len(e.kill))
	if e.corrupter == nil {
		return reports, nil
	}

	fmt.Fprintf(e.out, "Deleting partial file content, %d%% of them\n", e.percent)
	for _, k := range e.kill {
		r, err := e.corruptFile(k)
		if err != nil {
			return reports, err
		}
		reports[k] = r
		fmt.Fprintf(e.out, "Corrupted %d of %d sectors in %s\n", len(r.Order), r.Sectors, k)
		if e.metrics != nil {
			e.metrics.SectorsCorrupted(int64(len(r.Order)), r.BytesWritten())
		}
	}
	return reports, nil
}

func (e *Eraser) corruptFile(name string) (*sector.Report, error) {
	prov, err := sources.NewFileStorage(name)
	if err != nil {
		return nil, fmt.Errorf("could not open %s: %w", name, err)
	}

	r, err := e.corrupter.Corrupt(prov)
	cerr := prov.Close()
	if err != nil {
		return nil, fmt.Errorf("could not corrupt %s: %w", name, err)
	}
	if cerr != nil {
		return nil, fmt.Errorf("could not close %s: %w", name, cerr)
	}
	return r, nil
}

// Delete removes every file on the kill list, in order.
func (e *Eraser) Delete() (int, error) {
	for i, k := range e.kill {
		fmt.Fprintf(e.out, "Deleting original file %s\n", k)
		err := os.Remove(k)
		if err != nil {
			return i, err
		}
		if e.metrics != nil {
			e.metrics.FileDeleted()
		}
	}
	return len(e.kill), nil
}

func (e *Eraser) flush(phase string) {
	err := e.flusher.Flush()
	if e.metrics != nil {
		e.metrics.Flushed(phase, err)
	}
	if err != nil {
		fmt.Fprintf(e.out, "Flush after %s failed: %v\n", phase, err)
		if e.log != nil {
			e.log.Error().Str("uuid", e.uuid.String()).Str("phase", phase).Err(err).Msg("flush failed")
		}
	}
}

/**
 * Run does all three phases. Selection and archive failures are reported in
 * the Result; corruption and deletion failures stop the run and are
 * returned.
 *
 */
func (e *Eraser) Run(ctx context.Context) (*Result, error) {
	res := &Result{}

	if e.log != nil {
		e.log.Info().
			Str("uuid", e.uuid.String()).
			Str("target", e.target).
			Str("reference", e.ref.Root()).
			Int("percent", e.percent).
			Int("numfiles", e.numFiles).
			Msg("erase started")
	}

	res.SelectErr = e.Select()
	res.Kill = e.Kill()
	res.SelectOutcome = outcome.Classify(res.SelectErr)
	if e.metrics != nil {
		e.metrics.Stopped(Tool, res.SelectOutcome)
	}
	if res.SelectErr != nil {
		if errors.Is(res.SelectErr, candidates.ErrEmpty) {
			fmt.Fprintf(e.out, "No more files to select.\n")
		} else {
			fmt.Fprintf(e.out, "%s\n", res.SelectOutcome.Message())
		}
		fmt.Fprintf(e.out, "%v\n", res.SelectErr)
		if e.log != nil {
			e.log.Error().Str("uuid", e.uuid.String()).Int("selected", len(e.kill)).Err(res.SelectErr).Msg("selection cut short")
		}
	}
	e.flush("select")

	if e.archiver != nil && len(e.refs) > 0 {
		res.ArchiveErr = e.archiver.Store(ctx, e.uuid.String(), e.refs)
		if res.ArchiveErr != nil {
			fmt.Fprintf(e.out, "Archive failed: %v\n", res.ArchiveErr)
			if e.log != nil {
				e.log.Error().Str("uuid", e.uuid.String()).Err(res.ArchiveErr).Msg("archive failed")
			}
		} else {
			fmt.Fprintf(e.out, "Archived %d reference files under %s\n", len(e.refs), e.uuid)
		}
	}

	var err error
	res.Corrupted, err = e.Corrupt()
	if err != nil {
		return res, err
	}
	e.flush("corrupt")

	res.Deleted, err = e.Delete()
	if err != nil {
		return res, err
	}
	e.flush("delete")

	if e.log != nil {
		e.log.Info().
			Str("uuid", e.uuid.String()).
			Int("deleted", res.Deleted).
			Msg("erase finished")
	}
	return res, nil
}
