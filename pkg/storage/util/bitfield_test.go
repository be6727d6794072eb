package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBitfieldSetBit(t *testing.T) {
	bf := NewBitfield(1000)

	bf.SetBit(99)

	assert.Equal(t, true, bf.BitSet(99))
	assert.Equal(t, false, bf.BitSet(100))

	bf.SetBit(99) // Check it doesn't do anything
	bf.SetBit(100)

	assert.Equal(t, true, bf.BitSet(99))
	assert.Equal(t, true, bf.BitSet(100))
	assert.Equal(t, 2, bf.Count())
}

func TestBitfieldCollect(t *testing.T) {
	bf := NewBitfield(200)
	for _, b := range []int{199, 0, 63, 64, 128} {
		bf.SetBit(b)
	}

	assert.Equal(t, 5, bf.Count())
	assert.Equal(t, []int{0, 63, 64, 128, 199}, bf.Collect())
}

func TestBitfieldEmpty(t *testing.T) {
	bf := NewBitfield(0)
	assert.Equal(t, 0, bf.Count())
	assert.Equal(t, []int{}, bf.Collect())
}
