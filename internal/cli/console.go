package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/chzyer/readline"
	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/rudransh-shrivastava/pairlink/internal/msglog"
	"github.com/rudransh-shrivastava/pairlink/internal/session"
	"github.com/rudransh-shrivastava/pairlink/internal/transfer"
	"github.com/sirupsen/logrus"
)

// ErrRestart is returned by Run when the user reset the session and wants
// to negotiate again.
var ErrRestart = errors.New("session reset by user")

// LineReader is satisfied by *readline.Instance.
type LineReader interface {
	Readline() (string, error)
}

var (
	peerLabel  = color.New(color.FgCyan, color.Bold).SprintFunc()
	selfLabel  = color.New(color.FgGreen).SprintFunc()
	noticeText = color.New(color.FgMagenta).SprintFunc()
	errorText  = color.New(color.FgRed).SprintFunc()
)

type Console struct {
	peer   Peer
	in     LineReader
	out    io.Writer
	logger *logrus.Logger

	mu        sync.Mutex
	printed   int
	lastState session.State
}

func NewConsole(peer Peer, in LineReader, out io.Writer, logger *logrus.Logger) *Console {
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	return &Console{peer: peer, in: in, out: out, logger: logger, lastState: session.Connected}
}

// Run reads commands until the user quits, input ends or the session is
// reset with /reset.
func (c *Console) Run(ctx context.Context) error {
	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go c.watch(watchCtx)

	c.printHelp()
	for {
		line, err := c.in.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if line == "" {
				return nil
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		quit, err := c.handleLine(ctx, strings.TrimSpace(line))
		if err != nil {
			return err
		}
		if quit {
			return nil
		}
	}
}

func (c *Console) handleLine(ctx context.Context, line string) (bool, error) {
	switch {
	case line == "":
		return false, nil
	case line == "/quit" || line == "/exit":
		return true, nil
	case line == "/help":
		c.printHelp()
	case line == "/status":
		snap := c.peer.Snapshot()
		c.printf("%s %s as %s, attempt %s\n", noticeText("status:"), snap.State, snap.Role, snap.ID)
	case line == "/reset":
		c.peer.Reset()
		return false, ErrRestart
	case strings.HasPrefix(line, "/send"):
		path := strings.TrimSpace(strings.TrimPrefix(line, "/send"))
		if path == "" {
			c.printf("%s\n", errorText("usage: /send <path>"))
			return false, nil
		}
		c.sendFile(ctx, path)
	case strings.HasPrefix(line, "/"):
		c.printf("%s %s\n", errorText("unknown command"), line)
	default:
		if err := c.peer.SendText(line); err != nil {
			c.printf("%s %v\n", errorText("not sent:"), err)
		}
	}
	return false, nil
}

func (c *Console) sendFile(ctx context.Context, path string) {
	src, err := transfer.OpenFile(path)
	if err != nil {
		c.printf("%s %v\n", errorText("cannot send:"), err)
		return
	}

	go func() {
		defer func() { _ = src.Close() }()
		if err := c.peer.SendFile(ctx, src); err != nil {
			c.printf("%s %s: %v\n", errorText("transfer failed:"), src.Info().Name, err)
		}
	}()
}

func (c *Console) watch(ctx context.Context) {
	c.render()
	for {
		select {
		case <-c.peer.Updates():
			c.render()
		case <-ctx.Done():
			return
		}
	}
}

// render prints log entries not shown yet and any state change.
func (c *Console) render() {
	snap := c.peer.Snapshot()

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(snap.Messages) < c.printed {
		c.printed = 0
	}
	for _, m := range snap.Messages[c.printed:] {
		c.printMessage(m)
	}
	c.printed = len(snap.Messages)

	if snap.State != c.lastState {
		switch snap.State {
		case session.Failed:
			fmt.Fprintf(c.out, "%s %s\n", errorText("session failed:"), snap.LastError)
		case session.Disconnected:
			fmt.Fprintf(c.out, "%s\n", noticeText("peer disconnected, /reset to start over"))
		default:
			fmt.Fprintf(c.out, "%s %s\n", noticeText("session"), snap.State)
		}
		c.lastState = snap.State
	}
}

func (c *Console) printMessage(m msglog.Message) {
	ts := m.Timestamp.Format("15:04:05")
	switch {
	case m.Kind == msglog.KindText && m.Sender == msglog.Remote:
		fmt.Fprintf(c.out, "[%s] %s %s\n", ts, peerLabel("peer:"), m.Content)
	case m.Kind == msglog.KindText:
		// Already visible at the prompt.
	case m.Sender == msglog.Remote:
		fmt.Fprintf(c.out, "[%s] %s %s (%s, %s) saved to %s\n",
			ts, peerLabel("peer sent"), m.File.Name, humanize.Bytes(uint64(m.File.Size)), mimeOrUnknown(m.File.MimeType), m.Handle)
	default:
		fmt.Fprintf(c.out, "[%s] %s %s (%s)\n", ts, selfLabel("sent"), m.File.Name, humanize.Bytes(uint64(m.File.Size)))
	}
	if m.Kind == msglog.KindFile && m.Digest != "" {
		c.logger.Debugf("%s blake3 %s", m.File.Name, m.Digest)
	}
}

func (c *Console) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}

func (c *Console) printHelp() {
	c.printf("%s\n", noticeText("Type a message and press enter to send it."))
	c.printf("  /send <path>  send a file\n")
	c.printf("  /status       show the session state\n")
	c.printf("  /reset        drop this session and negotiate again\n")
	c.printf("  /quit         leave\n")
}

func mimeOrUnknown(m string) string {
	if m == "" {
		return "unknown type"
	}
	return m
}

// NewReadline builds the prompt used for commands and pasted descriptions.
func NewReadline(prompt, historyFile string) (*readline.Instance, error) {
	completer := readline.NewPrefixCompleter(
		readline.PcItem("/send"),
		readline.PcItem("/status"),
		readline.PcItem("/reset"),
		readline.PcItem("/help"),
		readline.PcItem("/quit"),
	)
	return readline.NewEx(&readline.Config{
		Prompt:          prompt,
		HistoryFile:     historyFile,
		AutoComplete:    completer,
		InterruptPrompt: "^C",
		EOFPrompt:       "/quit",
	})
}

// ReadBlob prompts until a non-empty line arrives.
func ReadBlob(in LineReader) (string, error) {
	for {
		line, err := in.Readline()
		if err != nil {
			return "", err
		}
		if line = strings.TrimSpace(line); line != "" {
			return line, nil
		}
	}
}
