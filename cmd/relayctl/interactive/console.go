// Package interactive provides the readline console for relayctl:
// manual relay switching with immediate pushes to the board.
package interactive

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"github.com/schaapsound/relayd/pkg/relay"
)

// Session is the device connection as the console sees it.
type Session interface {
	Push(mask relay.Mask) error
	Close() error
}

// Opener acquires a fresh device session after a push failure.
type Opener func() (Session, error)

// Console drives an interactive relay-switching session.
type Console struct {
	open Opener
	sess Session
	mask relay.Mask
	rl   *readline.Instance
}

// New creates a console over an already-open session. The mask passed
// in is the state the board is currently known to be in.
func New(sess Session, open Opener, mask relay.Mask) (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "relay> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete: readline.NewPrefixCompleter(
			readline.PcItem("on"),
			readline.PcItem("off"),
			readline.PcItem("mask"),
			readline.PcItem("status"),
			readline.PcItem("help"),
			readline.PcItem("exit"),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	return &Console{open: open, sess: sess, mask: mask, rl: rl}, nil
}

// Run reads and executes commands until exit or EOF.
func (c *Console) Run() error {
	defer c.rl.Close()
	defer c.sess.Close()

	for {
		line, err := c.rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "exit", "quit":
			return nil
		case "help":
			c.printHelp()
		case "status":
			c.printStatus()
		case "on":
			c.switchChannels(fields[1:], true)
		case "off":
			c.switchChannels(fields[1:], false)
		case "mask":
			c.setMask(fields[1:])
		default:
			fmt.Fprintf(c.rl.Stderr(), "unknown command %q, try help\n", fields[0])
		}
	}
}

func (c *Console) printHelp() {
	fmt.Fprint(c.rl.Stdout(), `Commands:
  on <ch> [ch...]   switch channels on (1-8)
  off <ch> [ch...]  switch channels off
  mask <value>      set all channels at once (e.g. 0x05, 0b00000101, 5)
  status            show the current mask
  help              this text
  exit              close the board connection and quit
`)
}

func (c *Console) printStatus() {
	fmt.Fprintf(c.rl.Stdout(), "mask %s (0x%02x)\n", c.mask, uint8(c.mask))
	for ch := relay.MinChannel; ch <= relay.MaxChannel; ch++ {
		state := "off"
		if c.mask.Test(ch) {
			state = "on "
		}
		fmt.Fprintf(c.rl.Stdout(), "  channel %d: %s\n", ch, state)
	}
}

func (c *Console) switchChannels(args []string, on bool) {
	if len(args) == 0 {
		fmt.Fprintln(c.rl.Stderr(), "need at least one channel number")
		return
	}
	next := c.mask
	for _, a := range args {
		ch, err := strconv.Atoi(a)
		if err != nil || ch < relay.MinChannel || ch > relay.MaxChannel {
			fmt.Fprintf(c.rl.Stderr(), "invalid channel %q (valid: %d-%d)\n", a, relay.MinChannel, relay.MaxChannel)
			return
		}
		if on {
			next.Set(ch)
		} else {
			next.Clear(ch)
		}
	}
	c.push(next)
}

func (c *Console) setMask(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(c.rl.Stderr(), "usage: mask <value>")
		return
	}
	v, err := strconv.ParseUint(args[0], 0, 8)
	if err != nil {
		fmt.Fprintf(c.rl.Stderr(), "invalid mask %q\n", args[0])
		return
	}
	c.push(relay.Mask(v))
}

// push writes the mask to the board, reopening the connection once if
// the session was lost mid-handshake.
func (c *Console) push(next relay.Mask) {
	err := c.sess.Push(next)
	if err != nil {
		fmt.Fprintf(c.rl.Stderr(), "push failed (%v), reopening board\n", err)
		sess, openErr := c.open()
		if openErr != nil {
			fmt.Fprintf(c.rl.Stderr(), "reopen failed: %v\n", openErr)
			return
		}
		c.sess = sess
		if err = c.sess.Push(next); err != nil {
			fmt.Fprintf(c.rl.Stderr(), "push failed again: %v\n", err)
			return
		}
	}
	c.mask = next
	fmt.Fprintf(c.rl.Stdout(), "mask %s (0x%02x)\n", c.mask, uint8(c.mask))
}
