package telemetry

import (
	"bufio"
	"fmt"
	"os/exec"
	"strings"
	"sync"
)

// Feed streams readings from the vendor CLI subprocess. The feed is not
// restartable: once the subprocess exits or errors, a new Feed must be
// started.
type Feed struct {
	cmd      *exec.Cmd
	readings chan Reading

	mu  sync.Mutex
	err error

	stderr     []string
	stderrDone chan struct{}
	firstLine  chan struct{}
	scanDone   chan struct{}
	firstOnce  sync.Once
}

// Start launches the feed subprocess and blocks until it produces its first
// reading. If the subprocess writes to stderr or exits before producing any
// data, startup fails and the process is reaped.
func Start(command []string) (*Feed, error) {
	if len(command) == 0 {
		return nil, fmt.Errorf("telemetry: empty read command")
	}

	cmd := exec.Command(command[0], command[1:]...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("telemetry: stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("telemetry: stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("telemetry: start %s: %w", command[0], err)
	}

	f := &Feed{
		cmd:        cmd,
		readings:   make(chan Reading, 1),
		stderrDone: make(chan struct{}),
		firstLine:  make(chan struct{}),
		scanDone:   make(chan struct{}),
	}

	stderrSeen := make(chan struct{}, 1)
	go func() {
		defer close(f.stderrDone)
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			f.mu.Lock()
			f.stderr = append(f.stderr, scanner.Text())
			f.mu.Unlock()
			select {
			case stderrSeen <- struct{}{}:
			default:
			}
		}
	}()

	go func() {
		defer close(f.scanDone)
		defer close(f.readings)
		scanner := bufio.NewScanner(stdout)
		for scanner.Scan() {
			reading, err := Parse(scanner.Bytes())
			if err != nil {
				f.setErr(err)
				return
			}
			f.firstOnce.Do(func() { close(f.firstLine) })
			f.readings <- reading
		}
		if err := scanner.Err(); err != nil {
			f.setErr(fmt.Errorf("telemetry: read feed: %w", err))
		}
	}()

	// Startup gate: wait for the first data line. Any stderr output before
	// data, or the stream ending first, is a fatal start failure.
	select {
	case <-f.firstLine:
		return f, nil
	case <-stderrSeen:
		if f.sawData() {
			return f, nil
		}
		f.Close()
		<-f.stderrDone
		return nil, fmt.Errorf("telemetry: failed to start %s:\n%s",
			command[0], strings.Join(f.stderrLines(), "\n"))
	case <-f.scanDone:
		if f.sawData() {
			// The stream already ended, but its readings are buffered.
			return f, nil
		}
		f.Close()
		if err := f.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("telemetry: feed ended before producing data")
	}
}

// Readings returns the stream channel.
func (f *Feed) Readings() <-chan Reading {
	return f.readings
}

// Err returns the terminal error, if any.
func (f *Feed) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// Close kills the subprocess and reaps it. Safe to call more than once.
func (f *Feed) Close() error {
	if f.cmd.Process != nil {
		f.cmd.Process.Kill()
	}
	f.cmd.Wait()
	return nil
}

// sawData reports whether the subprocess has produced at least one reading.
func (f *Feed) sawData() bool {
	select {
	case <-f.firstLine:
		return true
	default:
		return false
	}
}

func (f *Feed) setErr(err error) {
	f.mu.Lock()
	if f.err == nil {
		f.err = err
	}
	f.mu.Unlock()
}

func (f *Feed) stderrLines() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.stderr...)
}
