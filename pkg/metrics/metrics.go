package metrics

import (
	"github.com/dnaforensics/scar/pkg/outcome"
)

// Recorder receives counts from a run. A nil Recorder records nothing.
type Recorder interface {
	Shutdown()

	FilePlaced(tool string, bytes int64)
	BucketCreated(tool string)
	Stopped(tool string, o outcome.Outcome)

	FileSelected(bytes int64)
	SectorsCorrupted(sectors int64, bytes int64)
	FileDeleted()
	Flushed(phase string, err error)

	PatternScored(sectors int, mean int)
}
