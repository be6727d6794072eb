// Package sector implements partial sector overwrite of a file.
//
// A file of B bytes is treated as ceil(B/512) sectors, regardless of the
// block size of the filesystem holding it. The searcher scores reference
// files against a device image with the same 512 byte addressing, so none of
// the arithmetic here may change.
package sector

import (
	"errors"
	"fmt"
	"io"
	"math/rand/v2"

	"github.com/dnaforensics/scar/pkg/storage"
	"github.com/dnaforensics/scar/pkg/storage/util"
	"github.com/loopholelabs/logging/types"
)

const Size = 512

var (
	ErrPercent  = errors.New("percent must be between 0 and 100")
	ErrJunkSize = fmt.Errorf("junk buffer must be %d bytes", Size)
)

// Count returns the number of sectors spanned by a file of the given size.
func Count(bytes int64) int64 {
	return (bytes + Size - 1) / Size
}

// Targets returns how many sectors are overwritten at the given percent.
func Targets(sectors int64, percent int) int64 {
	return int64(percent) * sectors / 100
}

// FillLength returns how many bytes at the start of each chosen sector are
// overwritten at the given percent.
func FillLength(percent int) int {
	return percent * Size / 100
}

/**
 * Corrupter overwrites a random subset of a file's sectors.
 *
 * The percent drives both the fraction of sectors chosen and the fraction of
 * each chosen sector that is overwritten. At 60 percent, 60% of the sectors
 * get their first 307 bytes replaced by junk and keep the rest.
 *
 */
type Corrupter struct {
	percent int
	junk    []byte
	rnd     *rand.Rand
	log     types.Logger
}

func NewCorrupter(percent int, junk []byte, rnd *rand.Rand, log types.Logger) (*Corrupter, error) {
	if percent < 0 || percent > 100 {
		return nil, fmt.Errorf("%w: %d", ErrPercent, percent)
	}
	if len(junk) != Size {
		return nil, ErrJunkSize
	}
	return &Corrupter{
		percent: percent,
		junk:    junk,
		rnd:     rnd,
		log:     log,
	}, nil
}

// Report describes what a single Corrupt call did.
type Report struct {
	Bytes   int64
	Sectors int64
	Targets int64
	Fill    int
	Order   []int64
	Touched *util.Bitfield
}

// BytesWritten is the total junk written.
func (r *Report) BytesWritten() int64 {
	return int64(len(r.Order)) * int64(r.Fill)
}

/**
 * Corrupt overwrites Targets(sectors, percent) distinct sectors of prov.
 *
 * Sectors are drawn uniformly without replacement. Each write puts the first
 * FillLength(percent) junk bytes at index*512. A write into a partial final
 * sector may extend the file.
 *
 */
func (c *Corrupter) Corrupt(prov storage.Provider) (*Report, error) {
	bytes := int64(prov.Size())
	sectors := Count(bytes)

	r := &Report{
		Bytes:   bytes,
		Sectors: sectors,
		Targets: Targets(sectors, c.percent),
		Fill:    FillLength(c.percent),
		Touched: util.NewBitfield(int(sectors)),
	}
	r.Order = make([]int64, 0, r.Targets)

	if r.Targets == 0 {
		return r, nil
	}

	remaining := make([]int64, sectors)
	for i := range remaining {
		remaining[i] = int64(i)
	}

	fill := c.junk[:r.Fill]
	for len(r.Order) < int(r.Targets) {
		pick := c.rnd.IntN(len(remaining))
		s := remaining[pick]
		last := len(remaining) - 1
		remaining[pick] = remaining[last]
		remaining = remaining[:last]

		n, err := prov.WriteAt(fill, s*Size)
		if err == nil && n != len(fill) {
			err = io.ErrShortWrite
		}
		if err != nil {
			return r, fmt.Errorf("could not overwrite sector %d: %w", s, err)
		}
		r.Touched.SetBit(int(s))
		r.Order = append(r.Order, s)
	}

	if c.log != nil {
		c.log.Trace().
			Int64("bytes", bytes).
			Int64("sectors", sectors).
			Int64("targets", r.Targets).
			Int("fill", r.Fill).
			Msg("sectors overwritten")
	}
	return r, nil
}
