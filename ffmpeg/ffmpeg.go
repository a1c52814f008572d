// Package ffmpeg locates and invokes the external ffmpeg binary that both the
// audio exporter and the video encoder depend on. The binary is looked up
// once; components that can degrade without it check Available() and pick
// their fallback path, components that cannot surface ErrUnavailable with the
// command that was attempted.
package ffmpeg

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
)

// ErrUnavailable is returned when no ffmpeg binary can be found on PATH.
var ErrUnavailable = errors.New("ffmpeg not found on PATH")

var (
	once sync.Once
	exe  string
	err  error
)

// Exe returns the path of the ffmpeg binary, or ErrUnavailable.
func Exe() (string, error) {
	once.Do(func() {
		exe, err = exec.LookPath("ffmpeg")
	})
	if err != nil {
		return "", ErrUnavailable
	}
	return exe, nil
}

// Available reports whether an ffmpeg binary was found.
func Available() bool {
	_, e := Exe()
	return e == nil
}

// Run executes ffmpeg with the given arguments, feeding stdin (which may be
// nil) and returning stdout. On a non-zero exit the error carries the
// captured stderr, which is where ffmpeg explains itself.
func Run(stdin io.Reader, args ...string) ([]byte, error) {
	bin, e := Exe()
	if e != nil {
		return nil, e
	}
	cmd := exec.Command(bin, args...)
	cmd.Stdin = stdin
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg %v: %w: %s", args, err, lastLines(stderr.Bytes(), 6))
	}
	return stdout.Bytes(), nil
}

// Start launches ffmpeg with a pipe connected to its stdin, for callers that
// stream raw frames. The returned command has been started; the caller must
// close the pipe and Wait.
func Start(args ...string) (*exec.Cmd, io.WriteCloser, *bytes.Buffer, error) {
	bin, e := Exe()
	if e != nil {
		return nil, nil, nil, e
	}
	cmd := exec.Command(bin, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("ffmpeg stdin pipe: %w", err)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Start(); err != nil {
		return nil, nil, nil, fmt.Errorf("start ffmpeg: %w", err)
	}
	return cmd, stdin, &stderr, nil
}

func lastLines(b []byte, n int) []byte {
	lines := bytes.Split(bytes.TrimSpace(b), []byte("\n"))
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return bytes.Join(lines, []byte("\n"))
}
