// Package client provides the interactive, terminal-facing half of a muxd
// client: raw-mode toggling, terminal size probing, and a copy loop that
// drives an rpc.Attachment from the controlling terminal.
package client

import (
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	"muxd/internal/rpc"
	"muxd/internal/socketdir"
)

// DefaultAddr returns the default daemon control socket address.
func DefaultAddr() string {
	return "unix://" + socketdir.Path(socketdir.TypeDaemon, "default")
}

// IsInteractive reports whether stdout is attached to a terminal, the same
// check the CLI uses to decide whether to enter raw mode or persist color
// hints.
func IsInteractive() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

// ColorProfile reports the detected color profile of stdout. Nothing in this
// module calls it; the attach data path passes bytes through verbatim.
func ColorProfile() termenv.Profile {
	return termenv.NewOutput(os.Stdout).Profile
}

// rawModeGuard restores the terminal to its original mode on Restore.
type rawModeGuard struct {
	fd    int
	state *term.State
}

// EnterRaw puts the controlling terminal into raw mode, returning a guard
// whose Restore undoes it. Returns an error (not a guard) if stdin isn't a
// terminal.
func EnterRaw() (*rawModeGuard, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, errors.New("client: stdin is not a terminal")
	}
	state, err := term.MakeRaw(fd)
	if err != nil {
		return nil, err
	}
	return &rawModeGuard{fd: fd, state: state}, nil
}

// Restore returns the terminal to its pre-raw-mode state.
func (g *rawModeGuard) Restore() error {
	if g == nil {
		return nil
	}
	return term.Restore(g.fd, g.state)
}

// TerminalSize returns stdout's current size in columns and rows.
func TerminalSize() (cols, rows int, err error) {
	return term.GetSize(int(os.Stdout.Fd()))
}

// RunInteractiveAttach copies stdin to the attachment's input and the
// attachment's output to stdout until the session exits, the attachment is
// detached, or stdin reaches EOF (Ctrl-\ equivalent isn't handled here; the
// caller decides the detach keystroke, if any). It also tracks SIGWINCH to
// keep the remote PTY's size in sync with the local terminal, matching the
// resize-on-attach and resize-on-SIGWINCH behavior the teacher's attach
// client implements against its own VT.
func RunInteractiveAttach(att *rpc.Attachment) error {
	if len(att.BufferedOutput) > 0 {
		os.Stdout.Write(att.BufferedOutput)
	}

	winch := make(chan os.Signal, 1)
	signal.Notify(winch, syscall.SIGWINCH)
	defer signal.Stop(winch)

	inputErr := make(chan error, 1)
	go func() {
		buf := make([]byte, 4096)
		for {
			n, err := os.Stdin.Read(buf)
			if n > 0 {
				if werr := att.Input(buf[:n]); werr != nil {
					inputErr <- werr
					return
				}
			}
			if err != nil {
				if err == io.EOF {
					err = nil
				}
				inputErr <- err
				return
			}
		}
	}()

	for {
		select {
		case chunk, ok := <-att.Output():
			if !ok {
				return drainErr(att)
			}
			os.Stdout.Write(chunk)
		case err := <-inputErr:
			att.Detach()
			return err
		case <-winch:
			if cols, rows, err := TerminalSize(); err == nil {
				att.Resize(cols, rows)
			}
		}
	}
}

func drainErr(att *rpc.Attachment) error {
	select {
	case err := <-att.Err():
		return err
	default:
		return nil
	}
}
