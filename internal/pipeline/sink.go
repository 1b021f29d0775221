package pipeline

import (
	"fmt"
	"sync"
	"time"
)

// LogLine is one status line published by a file pipeline.
type LogLine struct {
	Index   int // 1-based position of the file in the run
	Total   int
	File    string
	Message string
	Time    time.Time
}

func (l LogLine) String() string {
	return fmt.Sprintf("[%d/%d] %s: %s", l.Index, l.Total, l.File, l.Message)
}

// LogSink is the append-only channel every file pipeline reports to.
// Any goroutine may publish; exactly one consumer drains it. Close marks
// the end of the stream and must be called once all publishers are done.
type LogSink struct {
	ch        chan LogLine
	closeOnce sync.Once
}

// NewLogSink creates a sink buffering up to buffer lines
func NewLogSink(buffer int) *LogSink {
	if buffer < 0 {
		buffer = 0
	}
	return &LogSink{ch: make(chan LogLine, buffer)}
}

// Publish appends a line. It blocks while the buffer is full.
func (s *LogSink) Publish(line LogLine) {
	if s == nil {
		return
	}
	if line.Time.IsZero() {
		line.Time = time.Now()
	}
	s.ch <- line
}

// Lines returns the receive side of the sink
func (s *LogSink) Lines() <-chan LogLine {
	return s.ch
}

// Close ends the stream. Safe to call more than once.
func (s *LogSink) Close() {
	if s == nil {
		return
	}
	s.closeOnce.Do(func() { close(s.ch) })
}

// Drain hands every line to fn until the sink is closed.
func Drain(s *LogSink, fn func(LogLine)) {
	for line := range s.Lines() {
		fn(line)
	}
}
