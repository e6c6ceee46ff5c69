package catalog

import (
	"fmt"
	"sync"
	"time"
)

type ErrorKind string

const (
	KindCourse  ErrorKind = "course"
	KindSection ErrorKind = "section"
	KindNetwork ErrorKind = "network"
	KindParse   ErrorKind = "parse"
)

// ScrapeError is a single entry of a batch error log. Entries are never
// mutated once appended.
type ScrapeError struct {
	Kind    ErrorKind
	Subject string
	Number  string
	Message string
	Time    time.Time
}

func (e ScrapeError) Error() string {
	switch {
	case e.Subject != "" && e.Number != "":
		return fmt.Sprintf("%s error for %s %s: %s", e.Kind, e.Subject, e.Number, e.Message)
	case e.Subject != "":
		return fmt.Sprintf("%s error for %s: %s", e.Kind, e.Subject, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
}

// ErrorLog is an append-only, concurrency safe list of ScrapeErrors.
type ErrorLog struct {
	mu      sync.Mutex
	entries []ScrapeError
	now     func() time.Time
}

func NewErrorLog() *ErrorLog {
	return &ErrorLog{now: time.Now}
}

// Append records a new entry stamped with the current time.
func (l *ErrorLog) Append(kind ErrorKind, subject, number, message string) ScrapeError {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now
	if l.now != nil {
		now = l.now
	}
	e := ScrapeError{
		Kind:    kind,
		Subject: subject,
		Number:  number,
		Message: message,
		Time:    now().UTC(),
	}
	l.entries = append(l.entries, e)
	return e
}

// Entries returns a copy of the log.
func (l *ErrorLog) Entries() []ScrapeError {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]ScrapeError, len(l.entries))
	copy(out, l.entries)
	return out
}

func (l *ErrorLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// BatchResult summarizes one ingestion run.
type BatchResult struct {
	RunID    string
	Success  bool
	Courses  int
	Sections int
	Errors   []ScrapeError
	Started  time.Time
	Elapsed  time.Duration
}
