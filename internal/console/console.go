// Package console is the line-oriented front end for a BLE session: one
// command to start scanning, and every other line is sent as a message.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Commands recognized on input.
const (
	CmdScan = "/scan"
	CmdQuit = "/quit"
	CmdHelp = "/help"
)

// MaxLineBytes is the longest line forwarded to the Controller. Longer lines
// are dropped and reading continues with the next one.
const MaxLineBytes = 64 * 1024

// Controller is the part of ble.Session the console drives.
type Controller interface {
	StartScan()
	SendMessage(text string)
}

// Console reads lines from in and forwards them to a Controller.
type Console struct {
	ctrl Controller
	in   io.Reader
	out  io.Writer
}

// New creates a Console. Panics if ctrl is nil (programmer error).
func New(ctrl Controller, in io.Reader, out io.Writer) *Console {
	if ctrl == nil {
		panic("console: New called with nil controller")
	}
	if out == nil {
		out = io.Discard
	}
	return &Console{ctrl: ctrl, in: in, out: out}
}

// Run processes input until EOF, /quit, or ctx is cancelled. A blocked read
// is not interrupted by ctx; cancellation takes effect on the next line.
func (c *Console) Run(ctx context.Context) error {
	r := bufio.NewReader(c.in)
	for {
		raw, tooLong, err := readLine(r, MaxLineBytes)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("console: read input: %w", err)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if tooLong {
			slog.Warn("[console] line too long, skipped", "limit", MaxLineBytes)
			fmt.Fprintf(c.out, "line longer than %d bytes, not sent\n", MaxLineBytes)
			continue
		}

		line := strings.TrimRight(raw, "\r")
		switch strings.TrimSpace(line) {
		case CmdQuit:
			return nil
		case CmdScan:
			c.ctrl.StartScan()
		case CmdHelp:
			c.printHelp()
		default:
			c.ctrl.SendMessage(line)
		}
	}
}

// readLine reads one line without its terminator. A line longer than limit
// is consumed in full and reported with tooLong set and an empty line.
func readLine(r *bufio.Reader, limit int) (line string, tooLong bool, err error) {
	var buf []byte
	for {
		chunk, isPrefix, rerr := r.ReadLine()
		if rerr != nil {
			return "", false, rerr
		}
		if !tooLong {
			if len(buf)+len(chunk) > limit {
				tooLong = true
				buf = nil
			} else {
				buf = append(buf, chunk...)
			}
		}
		if !isPrefix {
			return string(buf), tooLong, nil
		}
	}
}

func (c *Console) printHelp() {
	fmt.Fprintf(c.out, "  %-6s start scanning for the display\n", CmdScan)
	fmt.Fprintf(c.out, "  %-6s exit\n", CmdQuit)
	fmt.Fprintln(c.out, "  any other line is written to the display")
}
