// Package report collects and renders analysis diagnostics.
package report

import (
	"fmt"
	"sort"
	"sync"
)

// Severity ranks a diagnostic.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityNormal Severity = "normal"
	SeverityHigh   Severity = "high"
)

// Diagnostic is one finding, anchored to an instruction in a method.
type Diagnostic struct {
	Detector   string   `json:"detector"`
	Class      string   `json:"class"`
	Method     string   `json:"method"`
	Descriptor string   `json:"descriptor"`
	PC         int      `json:"pc"`
	Line       int      `json:"line,omitempty"`
	SourceFile string   `json:"source_file,omitempty"`
	Severity   Severity `json:"severity"`
	Message    string   `json:"message"`
}

// Reporter receives findings and hierarchy gaps as analysis runs.
type Reporter interface {
	Report(d Diagnostic)
	// MissingClass notes a class the hierarchy could not resolve.
	// Repeated names are recorded once.
	MissingClass(name string)
}

// Collector is a Reporter that accumulates everything in memory. It is
// safe for concurrent use, so parallel workers can share one.
type Collector struct {
	mu      sync.Mutex
	diags   []Diagnostic
	missing []string
	seen    map[string]struct{}
}

// NewCollector returns an empty collector.
func NewCollector() *Collector {
	return &Collector{seen: map[string]struct{}{}}
}

// Report implements Reporter.
func (c *Collector) Report(d Diagnostic) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.diags = append(c.diags, d)
}

// MissingClass implements Reporter.
func (c *Collector) MissingClass(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.seen[name]; ok {
		return
	}
	c.seen[name] = struct{}{}
	c.missing = append(c.missing, name)
}

// Summary snapshots the collected state, diagnostics in deterministic
// order and missing classes sorted.
func (c *Collector) Summary() Summary {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Summary{
		Diagnostics:    append([]Diagnostic(nil), c.diags...),
		MissingClasses: append([]string(nil), c.missing...),
	}
	Sort(s.Diagnostics)
	sort.Strings(s.MissingClasses)
	return s
}

// Summary is the rendered result of a whole scan. Classes counts the
// classes analyzed; the facade fills it in, the collector only sees
// findings.
type Summary struct {
	Classes        int          `json:"classes"`
	Diagnostics    []Diagnostic `json:"diagnostics"`
	MissingClasses []string     `json:"missing_classes,omitempty"`
}

// Sort orders diagnostics by class, method, descriptor, pc, then
// detector, so output does not depend on scan parallelism.
func Sort(ds []Diagnostic) {
	sort.Slice(ds, func(i, j int) bool {
		a, b := ds[i], ds[j]
		if a.Class != b.Class {
			return a.Class < b.Class
		}
		if a.Method != b.Method {
			return a.Method < b.Method
		}
		if a.Descriptor != b.Descriptor {
			return a.Descriptor < b.Descriptor
		}
		if a.PC != b.PC {
			return a.PC < b.PC
		}
		return a.Detector < b.Detector
	})
}

// Position renders the source anchor of a diagnostic: file and line
// when the class was compiled with debug info, the class name
// otherwise.
func (d Diagnostic) Position() string {
	if d.SourceFile != "" && d.Line > 0 {
		return fmt.Sprintf("%s:%d", d.SourceFile, d.Line)
	}
	return d.Class
}
