package logging

import "strings"

// Entry is one message captured by a Recorder.
type Entry struct {
	Level   Level
	Message string
}

// Recorder keeps every message in memory so callers can inspect what the
// pipeline reported.
type Recorder struct {
	Entries []Entry
}

// Log implements Logger.
func (r *Recorder) Log(level Level, msg string) {
	r.Entries = append(r.Entries, Entry{Level: level, Message: msg})
}

// Contains reports whether any captured message contains substr.
func (r *Recorder) Contains(substr string) bool {
	for _, e := range r.Entries {
		if strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}

// Count returns the number of captured messages at level.
func (r *Recorder) Count(level Level) int {
	n := 0
	for _, e := range r.Entries {
		if e.Level == level {
			n++
		}
	}
	return n
}

// Tee forwards each message to every logger in order.
type Tee []Logger

// Log implements Logger.
func (t Tee) Log(level Level, msg string) {
	for _, l := range t {
		l.Log(level, msg)
	}
}
