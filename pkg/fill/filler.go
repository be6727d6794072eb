// Package fill copies real files from a corpus onto a volume until the
// volume refuses to take any more.
package fill

import (
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"path"
	"path/filepath"

	"github.com/dnaforensics/scar/pkg/bucket"
	"github.com/dnaforensics/scar/pkg/candidates"
	"github.com/dnaforensics/scar/pkg/metrics"
	"github.com/dnaforensics/scar/pkg/outcome"
	"github.com/dnaforensics/scar/pkg/volume"
	"github.com/google/uuid"
	"github.com/loopholelabs/logging/types"
)

const Tool = "fillup"

type Config struct {
	Logger   types.Logger
	Metrics  metrics.Recorder
	Output   io.Writer
	Rand     *rand.Rand
	Capacity int
}

func NewConfig() *Config {
	return &Config{
		Logger:   nil,
		Metrics:  nil,
		Output:   io.Discard,
		Rand:     nil,
		Capacity: bucket.FileCapacity,
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

func (c *Config) WithCapacity(capacity int) *Config {
	c.Capacity = capacity
	return c
}

// Result is how a fill ended.
type Result struct {
	Outcome   outcome.Outcome
	Err       error
	Copied    int
	Bytes     int64
	Buckets   int
	Exhausted bool
}

type Filler struct {
	uuid    uuid.UUID
	vol     volume.Volume
	cands   *candidates.Set
	buckets *bucket.Buckets
	rnd     *rand.Rand
	out     io.Writer
	log     types.Logger
	metrics metrics.Recorder
}

func NewFiller(vol volume.Volume, cands *candidates.Set, config *Config) (*Filler, error) {
	if config.Rand == nil {
		return nil, errors.New("no random source")
	}
	b, err := bucket.New(vol, config.Capacity)
	if err != nil {
		return nil, err
	}
	out := config.Output
	if out == nil {
		out = io.Discard
	}
	return &Filler{
		uuid:    uuid.New(),
		vol:     vol,
		cands:   cands,
		buckets: b,
		rnd:     config.Rand,
		out:     out,
		log:     config.Logger,
		metrics: config.Metrics,
	}, nil
}

/**
 * Run copies candidates in random order into buckets until a copy fails or
 * the candidates run out. Either way the run has finished; the Result says
 * which.
 *
 */
func (f *Filler) Run() *Result {
	r := &Result{}

	if f.log != nil {
		f.log.Info().Str("uuid", f.uuid.String()).Int("candidates", f.cands.Len()).Msg("fill started")
	}

	for {
		src, err := f.cands.Take(f.rnd)
		if errors.Is(err, candidates.ErrEmpty) {
			r.Exhausted = true
			fmt.Fprintf(f.out, "No more source files to copy.\n")
			break
		}

		b, created, err := f.buckets.Place(r.Copied)
		if err != nil {
			f.stop(r, err)
			break
		}
		if created {
			r.Buckets++
			fmt.Fprintf(f.out, "Created %s\n", f.vol.Path(b))
			if f.metrics != nil {
				f.metrics.BucketCreated(Tool)
			}
		}

		dst := path.Join(b, filepath.Base(src))
		fmt.Fprintf(f.out, "Copying %s to %s\n", src, f.vol.Path(dst))
		n, err := volume.CopyIn(f.vol, src, dst)
		if err != nil {
			f.stop(r, err)
			break
		}

		r.Copied++
		r.Bytes += n
		if f.metrics != nil {
			f.metrics.FilePlaced(Tool, n)
		}
	}

	if f.metrics != nil {
		f.metrics.Stopped(Tool, r.Outcome)
	}
	if f.log != nil {
		f.log.Info().
			Str("uuid", f.uuid.String()).
			Int("copied", r.Copied).
			Int64("bytes", r.Bytes).
			Str("outcome", r.Outcome.String()).
			Msg("fill finished")
	}
	return r
}

func (f *Filler) stop(r *Result, err error) {
	r.Outcome = outcome.Classify(err)
	r.Err = err
	fmt.Fprintf(f.out, "%s\n", r.Outcome.Message())
	if f.log != nil {
		f.log.Debug().Str("uuid", f.uuid.String()).Err(err).Msg("fill stopped")
	}
}
