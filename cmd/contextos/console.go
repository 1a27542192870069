package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"contextos/internal/pipeline"
	"contextos/internal/session"
	"contextos/internal/types"
)

// console is the stdin/stdout presentation layer: it prints session
// events as they happen and turns typed commands into handler calls.
type console struct {
	mu  sync.Mutex
	out io.Writer
}

func newConsole(out io.Writer) *console {
	return &console{out: out}
}

func (c *console) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}

// SessionUpdated implements session.Listener.
func (c *console) SessionUpdated(s *types.Session) {
	last := ""
	if n := len(s.MessagesToUser); n > 0 {
		last = s.MessagesToUser[n-1].Text()
	}
	c.printf("\n[%s] %s (%s)\n%s\n> ", s.Level, s.Title, shortID(s.Metadata.UUID), last)
}

// SessionCompleted implements session.Listener.
func (c *console) SessionCompleted(s *types.Session) {
	c.printf("\n[%s] %s (%s) %s\n> ", s.Level, s.Title, shortID(s.Metadata.UUID), s.Status)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

const consoleHelp = `commands:
  send <text>           inject a text signal
  sessions              list known sessions
  read <id>             mark a session read
  input <id> <text>     send a user turn to a session
  finish <id>           end a session
  quit                  shut down`

// runLoop reads commands until EOF, "quit", or ctx cancellation.
func (c *console) runLoop(ctx context.Context, stop context.CancelFunc, pipe *pipeline.Pipeline, handler *session.Handler) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	c.printf("%s\n> ", consoleHelp)
	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if !c.handle(line, pipe, handler) {
				stop()
				return
			}
			c.printf("> ")
		}
	}
}

// handle runs one command line. Returns false to quit.
func (c *console) handle(line string, pipe *pipeline.Pipeline, handler *session.Handler) bool {
	cmd, rest, _ := strings.Cut(strings.TrimSpace(line), " ")
	rest = strings.TrimSpace(rest)

	switch strings.ToLower(cmd) {
	case "":
	case "quit", "exit":
		return false
	case "help":
		c.printf("%s\n", consoleHelp)
	case "send":
		if rest == "" {
			c.printf("usage: send <text>\n")
			break
		}
		pipe.RouteSignal(types.NewSignal("console", types.SignalEvent, types.TextContent(rest)))
	case "sessions":
		c.listSessions(handler)
	case "read":
		if id, ok := c.resolveID(handler, rest); ok {
			handler.MarkRead(id)
		}
	case "input":
		idArg, text, _ := strings.Cut(rest, " ")
		text = strings.TrimSpace(text)
		if idArg == "" || text == "" {
			c.printf("usage: input <id> <text>\n")
			break
		}
		if id, ok := c.resolveID(handler, idArg); ok {
			handler.OnUserInput(id, text)
		}
	case "finish":
		if id, ok := c.resolveID(handler, rest); ok {
			handler.OnUserInput(id, "/finish")
		}
	default:
		c.printf("unknown command %q (try: help)\n", cmd)
	}
	return true
}

func (c *console) listSessions(handler *session.Handler) {
	all := handler.Sessions()
	if len(all) == 0 {
		c.printf("no sessions\n")
		return
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].Metadata.CreatedAt.Before(all[j].Metadata.CreatedAt)
	})
	for _, s := range all {
		read := "unread"
		if s.IsRead {
			read = "read"
		}
		c.printf("%s  %-9s %-7s %-6s %s\n", shortID(s.Metadata.UUID), s.Status, s.Level, read, s.Title)
	}
}

// resolveID matches a typed prefix against known session IDs.
func (c *console) resolveID(handler *session.Handler, prefix string) (string, bool) {
	if prefix == "" {
		c.printf("missing session id\n")
		return "", false
	}
	var matches []string
	for _, s := range handler.Sessions() {
		if strings.HasPrefix(s.Metadata.UUID, prefix) {
			matches = append(matches, s.Metadata.UUID)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], true
	case 0:
		c.printf("no session matches %q\n", prefix)
		return "", false
	default:
		c.printf("ambiguous id %q (%d matches)\n", prefix, len(matches))
		return "", false
	}
}
