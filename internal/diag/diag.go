// Package diag implements C8: diagnostics collection for morty
// (spec.md §4.8, §7). File+line+message shape collapsed into a single
// Collector since morty has no rule engine producing violations - only
// structural warnings and fatal errors.
package diag

import (
	"fmt"
	"io"
	"sort"
	"sync"
)

// Severity classifies a Diagnostic.
type Severity int

const (
	Warning Severity = iota
	Fatal
)

func (s Severity) String() string {
	if s == Fatal {
		return "error"
	}
	return "warning"
}

// Kind categorizes the error per spec.md §7.
type Kind string

const (
	KindInput    Kind = "input"
	KindParse    Kind = "parse"
	KindResolve  Kind = "resolve"
	KindConflict Kind = "conflict"
	KindOutput   Kind = "output"
)

// Diagnostic is one reported condition, with an optional 1-based
// file location (spec.md §4.8: "one line each, with file and 1-based
// line/column").
type Diagnostic struct {
	Severity Severity
	Kind     Kind
	File     string
	Line     int // 0 if unknown
	Column   int // 0 if unknown
	Message  string
}

func (d Diagnostic) String() string {
	loc := d.File
	if d.Line > 0 {
		if d.Column > 0 {
			loc = fmt.Sprintf("%s:%d:%d", d.File, d.Line, d.Column)
		} else {
			loc = fmt.Sprintf("%s:%d", d.File, d.Line)
		}
	}
	if loc == "" {
		return fmt.Sprintf("%s: %s", d.Severity, d.Message)
	}
	return fmt.Sprintf("%s: %s: %s", loc, d.Severity, d.Message)
}

// Collector accumulates diagnostics across the pipeline. Concurrency-safe
// so C2's worker pool and C3/C4's single-threaded walkers can share one
// instance without external locking, safe for the errgroup-based worker
// pool in parse.go.
type Collector struct {
	mu    sync.Mutex
	items []Diagnostic
}

// New creates an empty Collector.
func New() *Collector {
	return &Collector{}
}

// Add records a diagnostic.
func (c *Collector) Add(d Diagnostic) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append(c.items, d)
}

// HasFatal reports whether any recorded diagnostic is Fatal.
func (c *Collector) HasFatal() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, d := range c.items {
		if d.Severity == Fatal {
			return true
		}
	}
	return false
}

// All returns a stable-ordered snapshot: by file, then line, then message.
func (c *Collector) All() []Diagnostic {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Diagnostic, len(c.items))
	copy(out, c.items)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].File != out[j].File {
			return out[i].File < out[j].File
		}
		if out[i].Line != out[j].Line {
			return out[i].Line < out[j].Line
		}
		return out[i].Message < out[j].Message
	})
	return out
}

// WriteTo formats every diagnostic, one per line, to w.
func (c *Collector) WriteTo(w io.Writer) {
	for _, d := range c.All() {
		fmt.Fprintln(w, d.String())
	}
}
