package progress

import (
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
)

// Snapshot is an immutable view of one in-flight transfer. The download
// loop emits one snapshot per chunk read and a terminal Done signal when
// the transfer ends, successfully or not.
type Snapshot struct {
	ID         string
	Total      int
	Downloaded int
}

func (s Snapshot) Percent() int {
	if s.Total == 0 {
		return 0
	}

	return s.Downloaded * 100 / s.Total
}

type Observer interface {
	Update(s Snapshot)
	Done(id string)
}

// Console renders transfer progress to a terminal, rewriting the line
// in place when the writer is a TTY and falling back to no per-chunk
// output otherwise.
type Console struct {
	out io.Writer
	tty bool
}

func NewConsole() *Console {
	return &Console{
		out: os.Stderr,
		tty: isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()),
	}
}

func (c *Console) Update(s Snapshot) {
	if !c.tty {
		return
	}

	fmt.Fprintf(
		c.out,
		"\r%s: %3d%% (%s / %s)",
		s.ID,
		s.Percent(),
		humanize.Bytes(uint64(s.Downloaded)), //nolint:gosec
		humanize.Bytes(uint64(s.Total)),      //nolint:gosec
	)
}

func (c *Console) Done(_ string) {
	if !c.tty {
		return
	}

	fmt.Fprint(c.out, "\n")
}

// Nop discards all progress signals.
type Nop struct{}

func (Nop) Update(_ Snapshot) {}

func (Nop) Done(_ string) {}
