package search

import (
	"encoding/binary"

	"github.com/dnaforensics/scar/pkg/sector"
)

const (
	wordSize = 8
	// Full is the score of a sector found intact.
	Full = 10
)

/**
 * MatchTail compares the pattern sector p against the device sector t from
 * the end, a word at a time, and returns how many trailing bytes agree.
 * Comparison stops at the first differing word. A run made only of zero
 * words counts as no match at all.
 *
 * Both sectors must be sector.Size bytes.
 *
 */
func MatchTail(t []byte, p []byte) int {
	matched := 0
	allZero := true
	for off := len(p) - wordSize; off >= 0; off -= wordSize {
		pw := binary.LittleEndian.Uint64(p[off:])
		if pw != binary.LittleEndian.Uint64(t[off:]) {
			break
		}
		matched += wordSize
		if pw != 0 {
			allZero = false
		}
	}
	if allZero {
		return 0
	}
	return matched
}

// Score maps a matched byte count to 0..Full.
func Score(matched int) uint8 {
	return uint8(matched * Full / sector.Size)
}
