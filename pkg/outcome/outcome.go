// Package outcome classifies the result of a write onto the target device.
//
// Filling a device is expected to end in failure: running out of space is
// how a fill completes. Each utility maps the error that stopped it to an
// Outcome and reports it, rather than treating it as a crash.
package outcome

import (
	"errors"
	"io/fs"

	"golang.org/x/sys/unix"
)

type Outcome int

const (
	Success Outcome = iota
	DeviceFull
	PermissionDenied
	SameFile
	DestinationIsDirectory
	OtherIOError
)

var ErrSameFile = errors.New("source and destination are the same file")

var names = map[Outcome]string{
	Success:                "success",
	DeviceFull:             "device full",
	PermissionDenied:       "permission denied",
	SameFile:               "same file",
	DestinationIsDirectory: "destination is directory",
	OtherIOError:           "other I/O error",
}

var messages = map[Outcome]string{
	Success:                "",
	DeviceFull:             "Device is full.",
	PermissionDenied:       "Permission denied.",
	SameFile:               "Source and destination are the same file.",
	DestinationIsDirectory: "Destination is a directory.",
	OtherIOError:           "Error occurred while copying file.",
}

func (o Outcome) String() string {
	if n, ok := names[o]; ok {
		return n
	}
	return "unknown"
}

// Message is the line printed when a copy loop stops with this outcome.
func (o Outcome) Message() string {
	return messages[o]
}

// Stopped reports whether the outcome ends a fill loop.
func (o Outcome) Stopped() bool {
	return o != Success
}

func Classify(err error) Outcome {
	switch {
	case err == nil:
		return Success
	case errors.Is(err, ErrSameFile):
		return SameFile
	case errors.Is(err, unix.EISDIR):
		return DestinationIsDirectory
	case errors.Is(err, fs.ErrPermission):
		return PermissionDenied
	case errors.Is(err, unix.ENOSPC), errors.Is(err, unix.EDQUOT), errors.Is(err, unix.EFBIG):
		return DeviceFull
	}
	return OtherIOError
}
