package migrate

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
)

// ErrCancelled is returned by a Prompter when the user aborts input
// (end of input or interrupt).
var ErrCancelled = errors.New("cancelled by user")

// Question keys
const (
	KeySource       = "source"
	KeyHost         = "host"
	KeyPort         = "port"
	KeyDatabasePath = "database_path"
	KeyAPIKey       = "api_key"
	KeyChannel      = "channel"
	KeyPanID        = "pan_id"
	KeyExtPanID     = "ext_pan_id"
	KeyNetworkKey   = "network_key"
	KeyMQTTServer   = "mqtt_server"
	KeyMQTTTopic    = "mqtt_topic"
	KeySerialPort   = "serial_port"
	KeyDryRun       = "dry_run"
)

// Question is one value the workflow needs.
type Question struct {
	Key     string
	Label   string
	Default string
}

// Prompter supplies answers to questions.
type Prompter interface {
	// Ask returns the answer, the default on empty input, or ErrCancelled.
	Ask(ctx context.Context, q Question) (string, error)

	// Interactive reports whether a rejected answer can be asked again.
	Interactive() bool
}

// LinePrompter asks questions on a terminal, one line per answer. Close
// releases the reader goroutine.
type LinePrompter struct {
	in        io.Reader
	out       io.Writer
	once      sync.Once
	closeOnce sync.Once
	lines     chan string
	done      chan struct{}
}

// NewLinePrompter creates a prompter reading answers from in and writing
// questions to out.
func NewLinePrompter(in io.Reader, out io.Writer) *LinePrompter {
	return &LinePrompter{
		in:    in,
		out:   out,
		lines: make(chan string, 1),
		done:  make(chan struct{}),
	}
}

func (p *LinePrompter) start() {
	go func() {
		defer close(p.lines)
		sc := bufio.NewScanner(p.in)
		for sc.Scan() {
			select {
			case p.lines <- sc.Text():
			case <-p.done:
				return
			}
		}
	}()
}

// Close stops delivering input. Later calls to Ask return ErrCancelled.
func (p *LinePrompter) Close() {
	p.closeOnce.Do(func() { close(p.done) })
}

// Ask prints the question and waits for a line of input or ctx.
func (p *LinePrompter) Ask(ctx context.Context, q Question) (string, error) {
	p.once.Do(p.start)

	select {
	case <-p.done:
		return "", ErrCancelled
	default:
	}

	if q.Default != "" {
		fmt.Fprintf(p.out, "%s [%s]: ", q.Label, q.Default)
	} else {
		fmt.Fprintf(p.out, "%s: ", q.Label)
	}

	select {
	case line, ok := <-p.lines:
		if !ok {
			fmt.Fprintln(p.out)
			return "", ErrCancelled
		}
		if line = strings.TrimSpace(line); line == "" {
			return q.Default, nil
		}
		return line, nil
	case <-ctx.Done():
		fmt.Fprintln(p.out)
		return "", ErrCancelled
	case <-p.done:
		fmt.Fprintln(p.out)
		return "", ErrCancelled
	}
}

// Interactive is always true.
func (p *LinePrompter) Interactive() bool { return true }

// StaticPrompter answers from a fixed map and falls back to defaults. It
// drives the workflow from flags, the HTTP API and MCP tools.
type StaticPrompter struct {
	Answers map[string]string
}

// Ask returns the configured answer for q.Key or q.Default.
func (p StaticPrompter) Ask(ctx context.Context, q Question) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", ErrCancelled
	}
	if v, ok := p.Answers[q.Key]; ok && v != "" {
		return v, nil
	}
	return q.Default, nil
}

// Interactive is always false.
func (p StaticPrompter) Interactive() bool { return false }
