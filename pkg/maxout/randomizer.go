// Package maxout fills a volume with files of random size and content, for
// when there are not enough real files to fill it.
package maxout

import (
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"path"

	"github.com/dnaforensics/scar/pkg/bucket"
	"github.com/dnaforensics/scar/pkg/metrics"
	"github.com/dnaforensics/scar/pkg/outcome"
	"github.com/dnaforensics/scar/pkg/volume"
	"github.com/google/uuid"
	"github.com/loopholelabs/logging/types"
)

const (
	Tool      = "maxout"
	ChunkSize = 64 * 1024
)

// Sizes bounds the two size ranges a file is drawn from.
type Sizes struct {
	Large int64
	Small int64
}

// DefaultSizes stays under the FAT32 file size limit.
func DefaultSizes() Sizes {
	return Sizes{
		Large: 4 * 1024 * 1024 * 1024,
		Small: 4 * 1024 * 1024,
	}
}

// Draw picks [0, Large) or [0, Small) with equal odds, then a size in it.
func (s Sizes) Draw(rnd *rand.Rand) (int64, bool) {
	if rnd.IntN(2) == 0 {
		return rnd.Int64N(s.Large), true
	}
	return rnd.Int64N(s.Small), false
}

// Name is two six digit numbers, e.g. 004211_938400.
func Name(rnd *rand.Rand) string {
	a := rnd.IntN(1000000)
	b := rnd.IntN(1000000)
	return fmt.Sprintf("%06d_%06d", a, b)
}

type Config struct {
	Logger   types.Logger
	Metrics  metrics.Recorder
	Output   io.Writer
	Rand     *rand.Rand
	Capacity int
	Sizes    Sizes
	Buffer   []byte
}

func NewConfig() *Config {
	return &Config{
		Logger:   nil,
		Metrics:  nil,
		Output:   io.Discard,
		Rand:     nil,
		Capacity: bucket.SyntheticCapacity,
		Sizes:    DefaultSizes(),
		Buffer:   nil,
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

func (c *Config) WithSizes(s Sizes) *Config {
	c.Sizes = s
	return c
}

// WithBuffer sets the random content every file is cut from.
func (c *Config) WithBuffer(buf []byte) *Config {
	c.Buffer = buf
	return c
}

type Result struct {
	Outcome outcome.Outcome
	Err     error
	Files   int
	Bytes   int64
	Buckets int
	// Last is the file being written when the run stopped.
	Last string
}

type Randomizer struct {
	uuid    uuid.UUID
	vol     volume.Volume
	buckets *bucket.Buckets
	rnd     *rand.Rand
	sizes   Sizes
	buffer  []byte
	out     io.Writer
	log     types.Logger
	metrics metrics.Recorder
}

func NewRandomizer(vol volume.Volume, config *Config) (*Randomizer, error) {
	if config.Rand == nil {
		return nil, errors.New("no random source")
	}
	if len(config.Buffer) == 0 {
		return nil, errors.New("no content buffer")
	}
	if config.Sizes.Large <= 0 || config.Sizes.Small <= 0 {
		return nil, errors.New("size bounds must be positive")
	}
	b, err := bucket.New(vol, config.Capacity)
	if err != nil {
		return nil, err
	}
	out := config.Output
	if out == nil {
		out = io.Discard
	}
	return &Randomizer{
		uuid:    uuid.New(),
		vol:     vol,
		buckets: b,
		rnd:     config.Rand,
		sizes:   config.Sizes,
		buffer:  config.Buffer,
		out:     out,
		log:     config.Logger,
		metrics: config.Metrics,
	}, nil
}

/**
 * Run writes synthetic files until the first error, which is reported and
 * ends the run. There is no other way for it to end.
 *
 */
func (r *Randomizer) Run() *Result {
	res := &Result{}

	if r.log != nil {
		r.log.Info().Str("uuid", r.uuid.String()).Int("chunk", len(r.buffer)).Msg("maxout started")
	}

	for {
		b, created, err := r.buckets.Place(res.Files)
		if err != nil {
			r.stop(res, err)
			break
		}
		if created {
			res.Buckets++
			fmt.Fprintf(r.out, "Created %s\n", r.vol.Path(b))
			if r.metrics != nil {
				r.metrics.BucketCreated(Tool)
			}
		}

		name := path.Join(b, Name(r.rnd))
		size, large := r.sizes.Draw(r.rnd)
		res.Last = name

		fmt.Fprintf(r.out, "Writing %s (%d bytes)\n", r.vol.Path(name), size)
		if r.log != nil {
			band := "small"
			if large {
				band = "large"
			}
			r.log.Trace().Str("name", name).Int64("size", size).Str("range", band).Msg("size drawn")
		}

		n, err := writeSynthetic(r.vol, name, size, r.buffer)
		res.Bytes += n
		if err != nil {
			r.stop(res, err)
			break
		}

		res.Files++
		if r.metrics != nil {
			r.metrics.FilePlaced(Tool, n)
		}
	}

	if r.metrics != nil {
		r.metrics.Stopped(Tool, res.Outcome)
	}
	if r.log != nil {
		r.log.Info().
			Str("uuid", r.uuid.String()).
			Int("files", res.Files).
			Int64("bytes", res.Bytes).
			Str("outcome", res.Outcome.String()).
			Msg("maxout finished")
	}
	return res
}

func (r *Randomizer) stop(res *Result, err error) {
	res.Outcome = outcome.Classify(err)
	res.Err = err
	fmt.Fprintf(r.out, "%T\n%s\n%v\n", err, res.Outcome, err)
}

/**
 * writeSynthetic writes size bytes to name: the whole buffer once per full
 * chunk, then the first size%len(buf) bytes of it. Existing files are
 * replaced.
 *
 */
func writeSynthetic(vol volume.Volume, name string, size int64, buf []byte) (int64, error) {
	w, err := vol.Create(name, 0777)
	if err != nil {
		return 0, err
	}

	chunk := int64(len(buf))
	written := int64(0)
	for i := int64(0); i < size/chunk; i++ {
		n, err := w.Write(buf)
		written += int64(n)
		if err != nil {
			w.Close()
			return written, err
		}
	}

	rem := size % chunk
	if rem > 0 {
		n, err := w.Write(buf[:rem])
		written += int64(n)
		if err != nil {
			w.Close()
			return written, err
		}
	}

	return written, w.Close()
}
