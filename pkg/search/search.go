// Package search looks for what is left of reference files on a device. Each
// whole sector of a pattern file is compared against every sector of the
// device and given the best score it reached.
package search

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dnaforensics/scar/pkg/metrics"
	"github.com/dnaforensics/scar/pkg/sector"
	"github.com/dnaforensics/scar/pkg/storage"
	"github.com/dnaforensics/scar/pkg/storage/sources"
	"github.com/loopholelabs/logging/types"
	"golang.org/x/sync/errgroup"
)

var (
	ErrChunkSize = fmt.Errorf("chunk size must be a positive multiple of %d", sector.Size)
	ErrWorkers   = errors.New("at least one worker is needed")
	ErrDevice    = errors.New("could not open device")
	ErrPatterns  = errors.New("could not read pattern directory")
)

// Observer follows progress. Calls come from several workers at once.
// Every Started pattern ends with exactly one Finished or Aborted.
type Observer interface {
	Started(name string, sectors int)
	Scanned(name string, sectors int)
	Finished(r *Result)
	Aborted(name string, err error)
}

type Config struct {
	Logger    types.Logger
	Metrics   metrics.Recorder
	Observer  Observer
	Device    string
	Patterns  string
	Workers   int
	DiskChunk int
	FileChunk int
}

func NewConfig() *Config {
	return &Config{
		Logger:    nil,
		Metrics:   nil,
		Observer:  nil,
		Device:    "",
		Patterns:  "./patterns",
		Workers:   8,
		DiskChunk: 1024 * 1024,
		FileChunk: 64 * 1024,
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

func (c *Config) WithObserver(o Observer) *Config {
	c.Observer = o
	return c
}

func (c *Config) Validate() error {
	if c.DiskChunk <= 0 || c.DiskChunk%sector.Size != 0 {
		return fmt.Errorf("disk chunk %d: %w", c.DiskChunk, ErrChunkSize)
	}
	if c.FileChunk <= 0 || c.FileChunk%sector.Size != 0 {
		return fmt.Errorf("file chunk %d: %w", c.FileChunk, ErrChunkSize)
	}
	if c.Workers < 1 {
		return ErrWorkers
	}
	return nil
}

// Patterns lists every regular, non-hidden file directly inside dir, by name.
func Patterns(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrPatterns, dir, err)
	}
	var names []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") || !e.Type().IsRegular() {
			continue
		}
		names = append(names, filepath.Join(dir, e.Name()))
	}
	return names, nil
}

type Searcher struct {
	config *Config
	device storage.Provider
	size   int64
	log    types.Logger
}

func NewSearcher(config *Config) (*Searcher, error) {
	err := config.Validate()
	if err != nil {
		return nil, err
	}
	dev, err := sources.NewFileStorageReadOnly(config.Device)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrDevice, config.Device, err)
	}
	return &Searcher{
		config: config,
		device: dev,
		size:   int64(dev.Size()),
		log:    config.Logger,
	}, nil
}

// NewSearcherOn searches an already open device.
func NewSearcherOn(device storage.Provider, config *Config) (*Searcher, error) {
	err := config.Validate()
	if err != nil {
		return nil, err
	}
	return &Searcher{
		config: config,
		device: device,
		size:   int64(device.Size()),
		log:    config.Logger,
	}, nil
}

func (s *Searcher) Close() error {
	return s.device.Close()
}

/**
 * Run scores every pattern in the pattern directory, Workers at a time,
 * writing each report line to out as soon as its pattern is done. A pattern
 * that cannot be read is logged and left out.
 *
 */
func (s *Searcher) Run(ctx context.Context, out io.Writer) ([]*Result, error) {
	names, err := Patterns(s.config.Patterns)
	if err != nil {
		return nil, err
	}

	if s.log != nil {
		s.log.Info().
			Str("device", s.config.Device).
			Int64("size", s.size).
			Int("patterns", len(names)).
			Int("workers", s.config.Workers).
			Msg("search started")
	}

	var lock sync.Mutex
	var results []*Result

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.Workers)
	for _, name := range names {
		g.Go(func() error {
			r, err := s.ScanPattern(gctx, name)
			if errors.Is(err, context.Canceled) {
				return err
			}
			if err != nil {
				if s.log != nil {
					s.log.Error().Str("pattern", name).Err(err).Msg("pattern skipped")
				}
				return nil
			}

			lock.Lock()
			defer lock.Unlock()
			results = append(results, r)
			fmt.Fprintln(out, r.String())
			return nil
		})
	}
	err = g.Wait()
	return results, err
}

/**
 * ScanPattern scores one pattern file. The pattern is read FileChunk bytes
 * at a time and every chunk is compared against the whole device, read
 * DiskChunk bytes at a time. The trailing partial sector of the pattern is
 * not scored.
 *
 */
func (s *Searcher) ScanPattern(ctx context.Context, name string) (*Result, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}

	r := &Result{
		Name:   name,
		Scores: make([]uint8, fi.Size()/sector.Size),
	}
	if s.config.Observer != nil {
		s.config.Observer.Started(name, len(r.Scores))
	}

	err = s.scanFile(ctx, f, r)
	if err != nil {
		if s.config.Observer != nil {
			s.config.Observer.Aborted(name, err)
		}
		return nil, err
	}

	if s.config.Observer != nil {
		s.config.Observer.Finished(r)
	}
	if s.config.Metrics != nil {
		s.config.Metrics.PatternScored(len(r.Scores), r.Mean())
	}
	if s.log != nil {
		s.log.Debug().Str("pattern", name).Int("sectors", len(r.Scores)).Int("mean", r.Mean()).Msg("pattern scored")
	}
	return r, nil
}

// scanFile fills in r.Scores from f, one file chunk at a time.
func (s *Searcher) scanFile(ctx context.Context, f io.Reader, r *Result) error {
	fbuf := make([]byte, s.config.FileChunk)
	dbuf := make([]byte, s.config.DiskChunk)
	first := 0
	for first < len(r.Scores) {
		n, err := io.ReadFull(f, fbuf)
		if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
			return err
		}
		count := n / sector.Size
		if count > len(r.Scores)-first {
			count = len(r.Scores) - first
		}
		if count == 0 {
			break
		}

		err = s.scanChunk(ctx, fbuf[:count*sector.Size], r.Scores[first:first+count], dbuf)
		if err != nil {
			return err
		}
		first += count
		if s.config.Observer != nil {
			s.config.Observer.Scanned(r.Name, count)
		}
	}
	return nil
}

// scanChunk raises scores to the best match of each chunk sector anywhere on
// the device. It stops early once every sector in the chunk is at Full.
func (s *Searcher) scanChunk(ctx context.Context, chunk []byte, scores []uint8, dbuf []byte) error {
	for off := int64(0); off < s.size; off += int64(len(dbuf)) {
		err := ctx.Err()
		if err != nil {
			return err
		}

		n, err := s.device.ReadAt(dbuf, off)
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("could not read device at %d: %w", off, err)
		}
		disk := dbuf[:n-n%sector.Size]

		done := true
		for i := range scores {
			if scores[i] >= Full {
				continue
			}
			p := chunk[i*sector.Size : (i+1)*sector.Size]
			for d := 0; d < len(disk); d += sector.Size {
				score := Score(MatchTail(disk[d:d+sector.Size], p))
				if score > scores[i] {
					scores[i] = score
					if score == Full {
						break
					}
				}
			}
			if scores[i] < Full {
				done = false
			}
		}
		if done {
			break
		}
	}
	return nil
}
