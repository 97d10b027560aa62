package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// lineRing keeps the most recent lines written to a log file.
type lineRing struct {
	lines []string
	next  int // Index of the next write
	count int // Lines currently held
	seen  int // Lines written since the last rewrite
}

func newLineRing(capacity int) *lineRing {
	return &lineRing{lines: make([]string, max(capacity, 1))}
}

func (r *lineRing) push(line string) {
	r.lines[r.next] = line
	r.next = (r.next + 1) % len(r.lines)
	r.count = min(r.count+1, len(r.lines))
	r.seen++
}

// snapshot returns the held lines oldest first.
func (r *lineRing) snapshot() []string {
	out := make([]string, 0, r.count)
	start := (r.next - r.count + len(r.lines)) % len(r.lines)

	for i := range r.count {
		out = append(out, r.lines[(start+i)%len(r.lines)])
	}

	return out
}

// LogRotator is an io.Writer that caps a log file at a fixed number of lines.
// Once twice the cap has been written, the file is rewritten with only the
// newest lines so it never grows without bound.
type LogRotator struct {
	mu       sync.Mutex
	writer   io.Writer
	ring     *lineRing
	filePath string
}

// NewLogRotator wraps writer, which must be the open file at filePath.
func NewLogRotator(writer io.Writer, maxLines int, filePath string) *LogRotator {
	return &LogRotator{
		writer:   writer,
		ring:     newLineRing(maxLines),
		filePath: filePath,
	}
}

// Write implements io.Writer.
func (w *LogRotator) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	n, err := w.writer.Write(p)
	if err != nil {
		return n, err
	}

	for line := range strings.SplitSeq(strings.TrimRight(string(p), "\n"), "\n") {
		if line == "" {
			continue
		}

		w.ring.push(line)

		if w.ring.seen >= 2*len(w.ring.lines) {
			if err := w.rewrite(); err != nil {
				return n, fmt.Errorf("failed to rotate log file: %w", err)
			}

			w.ring.seen = w.ring.count
		}
	}

	return n, nil
}

// rewrite replaces the file with the buffered lines and reopens it for appending.
func (w *LogRotator) rewrite() error {
	lines := w.ring.snapshot()
	if len(lines) == 0 {
		return nil
	}

	temp, err := os.CreateTemp(filepath.Dir(w.filePath), "rotate-*.log")
	if err != nil {
		return err
	}

	tempPath := temp.Name()

	_, err = temp.WriteString(strings.Join(lines, "\n") + "\n")
	if err == nil {
		err = temp.Sync()
	}

	if closeErr := temp.Close(); err == nil {
		err = closeErr
	}

	if err != nil {
		os.Remove(tempPath)
		return err
	}

	if closer, ok := w.writer.(io.Closer); ok {
		closer.Close()
	}

	// Windows refuses to rename over an existing file
	os.Remove(w.filePath)

	if err := os.Rename(tempPath, w.filePath); err != nil {
		return err
	}

	file, err := os.OpenFile(w.filePath, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}

	w.writer = file

	return nil
}
