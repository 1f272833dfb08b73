// Package deploy implements the three delivery adaptors of spec §4.8: git
// commit, Netmiko-style SSH push, and remote nftables over SSH.
package deploy

import (
	"bytes"
	"fmt"
	"sync"
	"time"
)

// LogSink is the capture stream of one deployment job (the worker creates a
// fresh one per job): it implements io.Writer for adaptors that want to pipe
// subprocess/SSH output directly, and also accumulates timestamped lines for
// structured retrieval.
type LogSink struct {
	mu    sync.Mutex
	lines []string
	buf   bytes.Buffer
}

func NewLogSink() *LogSink { return &LogSink{} }

func (l *LogSink) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.buf.Write(p)
}

// Logf appends one timestamped line, mirroring the original worker base
// functions' rolling text log.
func (l *LogSink) Logf(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, fmt.Sprintf("%s %s", time.Now().UTC().Format(time.RFC3339), fmt.Sprintf(format, args...)))
}

// String renders the accumulated log as the Deployment.Output text.
func (l *LogSink) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := l.buf.String()
	for _, line := range l.lines {
		out += line + "\n"
	}
	return out
}
