package util

import (
	"math/bits"
)

/**
 * Fixed size set of bit positions, used to record which sectors of a file
 * have been written.
 *
 */
type Bitfield struct {
	data []uint64
}

func NewBitfield(size int) *Bitfield {
	return &Bitfield{
		data: make([]uint64, (size+63)>>6),
	}
}

func (bf *Bitfield) SetBit(i int) {
	bf.data[i>>6] |= 1 << (i & 63)
}

func (bf *Bitfield) BitSet(i int) bool {
	return bf.data[i>>6]&(1<<(i&63)) != 0
}

// Count returns the number of set bits.
func (bf *Bitfield) Count() int {
	count := 0
	for _, v := range bf.data {
		count += bits.OnesCount64(v)
	}
	return count
}

// Collect returns the positions of all set bits in ascending order.
func (bf *Bitfield) Collect() []int {
	positions := make([]int, 0, bf.Count())
	for p, v := range bf.data {
		for v != 0 {
			b := bits.TrailingZeros64(v)
			positions = append(positions, p<<6+b)
			v &= v - 1
		}
	}
	return positions
}
