package search

import (
	"fmt"
	"strings"
)

// Result holds the best score found for each whole sector of one pattern.
type Result struct {
	Name   string
	Scores []uint8
}

func (r *Result) Sectors() int {
	return len(r.Scores)
}

// Mean is the integer average score, 0 for a pattern with no whole sector.
func (r *Result) Mean() int {
	if len(r.Scores) == 0 {
		return 0
	}
	total := 0
	for _, s := range r.Scores {
		total += int(s)
	}
	return total / len(r.Scores)
}

// Complete reports whether every sector was found intact.
func (r *Result) Complete() bool {
	for _, s := range r.Scores {
		if s < Full {
			return false
		}
	}
	return true
}

func digit(score int) byte {
	if score >= Full {
		return '*'
	}
	return byte('0' + score)
}

// String is the report line, e.g. "p/a.jpg: sectors = 3 score = 6 by sector = *80".
func (r *Result) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: sectors = %d score = %c by sector = ", r.Name, len(r.Scores), digit(r.Mean()))
	for _, s := range r.Scores {
		b.WriteByte(digit(int(s)))
	}
	return b.String()
}
