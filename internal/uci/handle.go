package uci

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"
)

// State tracks the handle's lifecycle.
type State int

const (
	StateUnstarted State = iota
	StateReady
	StateBusy
	StateStopped
	StateCrashed
)

func (s State) String() string {
	switch s {
	case StateUnstarted:
		return "unstarted"
	case StateReady:
		return "ready"
	case StateBusy:
		return "busy"
	case StateStopped:
		return "stopped"
	case StateCrashed:
		return "crashed"
	default:
		return "unknown"
	}
}

// Handle owns exactly one engine subprocess and serializes all access to its
// stdin/stdout. No other component reads or writes the pipes directly.
type Handle struct {
	mu    sync.Mutex
	state State

	cmd    *exec.Cmd
	stdin  *bufio.Writer
	lines  chan string   // reader goroutine output, closed on stdout EOF
	exited chan struct{} // closed once the process has been reaped

	stderr   cappedBuffer
	stopOnce sync.Once
}

// NewHandle returns an unstarted handle.
func NewHandle() *Handle {
	return &Handle{state: StateUnstarted}
}

// Start spawns the engine subprocess and begins pumping its stdout.
func (h *Handle) Start(path string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state != StateUnstarted {
		return fmt.Errorf("start in state %s: %w", h.state, ErrEngineNotRunning)
	}

	fi, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrEngineNotFound, path)
	}
	if fi.IsDir() || fi.Mode()&0o111 == 0 {
		return fmt.Errorf("%w: %s is not executable", ErrEngineNotFound, path)
	}

	cmd := exec.Command(path)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("%w: stdin pipe: %v", ErrEngineStartFailed, err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("%w: stdout pipe: %v", ErrEngineStartFailed, err)
	}
	h.stderr.limit = 10 * 1024
	cmd.Stderr = &h.stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: %v", ErrEngineStartFailed, err)
	}

	h.cmd = cmd
	h.stdin = bufio.NewWriter(stdin)
	h.lines = make(chan string, 512)
	h.exited = make(chan struct{})
	h.state = StateReady

	go h.pump(stdout)
	return nil
}

// pump reads stdout lines into the channel until EOF, then reaps the process.
func (h *Handle) pump(stdout io.Reader) {
	scanner := bufio.NewScanner(stdout)
	// Long PV lines at high MultiPV can exceed the default token size.
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		h.lines <- scanner.Text()
	}
	close(h.lines)
	_ = h.cmd.Wait()
	close(h.exited)
}

// Send writes one command line to the engine's stdin.
func (h *Handle) Send(line string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch h.state {
	case StateUnstarted, StateStopped:
		return fmt.Errorf("send %q in state %s: %w", line, h.state, ErrEngineNotRunning)
	case StateCrashed:
		return fmt.Errorf("send %q: %w", line, ErrEngineCrashed)
	}
	select {
	case <-h.exited:
		h.state = StateCrashed
		return fmt.Errorf("send %q: %w", line, ErrEngineNotRunning)
	default:
	}

	if _, err := h.stdin.WriteString(line + "\n"); err != nil {
		h.state = StateCrashed
		return fmt.Errorf("send %q: %w", line, ErrEngineCrashed)
	}
	if err := h.stdin.Flush(); err != nil {
		h.state = StateCrashed
		return fmt.Errorf("send %q: %w", line, ErrEngineCrashed)
	}
	return nil
}

// ReadUntil blocks until a line satisfying pred arrives, returning every line
// read including the terminal one. The ceiling is a hard bound enforced here,
// independent of anything the subprocess reports. Cancelling ctx forwards
// cancelCmd to the subprocess once and keeps reading until the terminal line;
// interrupted reports whether that happened before the terminal line was
// consumed, so the caller knows the output is best-effort. On timeout or
// engine exit the lines read so far are returned alongside the error.
func (h *Handle) ReadUntil(ctx context.Context, cancelCmd string, pred func(string) bool, ceiling time.Duration) (lines []string, interrupted bool, err error) {
	h.setState(StateBusy)
	defer h.setState(StateReady)

	timer := time.NewTimer(ceiling)
	defer timer.Stop()

	cancelled := ctx.Done()
	if ctx.Err() != nil {
		interrupted = true
		cancelled = nil
		if cancelCmd != "" {
			_ = h.Send(cancelCmd)
		}
	}

	for {
		select {
		case line, ok := <-h.lines:
			if !ok {
				h.setState(StateCrashed)
				return lines, interrupted, fmt.Errorf("engine exited before response (stderr: %s): %w",
					h.stderr.String(), ErrEngineCrashed)
			}
			lines = append(lines, line)
			if pred(line) {
				return lines, interrupted, nil
			}
		case <-cancelled:
			interrupted = true
			cancelled = nil
			if cancelCmd != "" {
				_ = h.Send(cancelCmd)
			}
		case <-timer.C:
			return lines, interrupted, fmt.Errorf("no response within %s: %w", ceiling, ErrEngineTimeout)
		}
	}
}

// Stop sends the polite shutdown command, waits a grace period, then kills the
// process if still alive. Idempotent; safe on every exit path.
func (h *Handle) Stop(polite string, grace time.Duration) {
	h.stopOnce.Do(func() {
		h.mu.Lock()
		started := h.state != StateUnstarted
		h.mu.Unlock()
		if !started {
			return
		}

		_ = h.Send(polite)

		// Drain stdout so the pump can reach EOF and reap the process. An
		// engine that ignores the polite command and keeps streaming would
		// otherwise fill the line buffer and block the pump forever, and the
		// exited channel would never close.
		drained := make(chan struct{})
		go func() {
			for range h.lines {
			}
			close(drained)
		}()

		select {
		case <-h.exited:
		case <-time.After(grace):
			_ = h.cmd.Process.Kill()
			<-h.exited
		}
		<-drained

		h.mu.Lock()
		h.state = StateStopped
		h.mu.Unlock()
	})
}

// State reports the current lifecycle state.
func (h *Handle) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

func (h *Handle) setState(s State) {
	h.mu.Lock()
	defer h.mu.Unlock()
	// Terminal states stick.
	if h.state == StateCrashed || h.state == StateStopped {
		return
	}
	h.state = s
}

// cappedBuffer stops writing after a byte limit. Used to capture engine
// stderr without unbounded memory growth.
type cappedBuffer struct {
	mu    sync.Mutex
	buf   bytes.Buffer
	limit int
}

func (c *cappedBuffer) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	remaining := c.limit - c.buf.Len()
	if remaining <= 0 {
		return len(p), nil
	}
	toWrite := p
	if len(toWrite) > remaining {
		toWrite = toWrite[:remaining]
	}
	_, err := c.buf.Write(toWrite)
	// Always report full input length to satisfy the io.Writer contract.
	return len(p), err
}

func (c *cappedBuffer) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.String()
}
