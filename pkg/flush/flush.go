// Package flush forces pending writes out to the device.
//
// A file deleted while its data still sits in the page cache may never reach
// the disk, which would leave nothing for a recovery tool to find.
package flush

import (
	"fmt"
	"os/exec"
	"strings"

	"golang.org/x/sys/unix"
)

type Flusher interface {
	Flush() error
}

// System flushes every filesystem with sync(2).
type System struct{}

func (System) Flush() error {
	unix.Sync()
	return nil
}

func (System) String() string {
	return "sync(2)"
}

// Command runs an external program, e.g. /bin/sync.
type Command struct {
	Path string
	Args []string
}

func (c *Command) Flush() error {
	out, err := exec.Command(c.Path, c.Args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s failed: %w (%s)", c.String(), err, strings.TrimSpace(string(out)))
	}
	return nil
}

func (c *Command) String() string {
	return strings.Join(append([]string{c.Path}, c.Args...), " ")
}

// New returns a Command for a non-empty command line, else System.
func New(command string) Flusher {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return System{}
	}
	return &Command{
		Path: fields[0],
		Args: fields[1:],
	}
}
