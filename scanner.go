// Package useaddall scans compiled JVM classes for loops that copy one
// collection into another element by element.
//
// Such loops show up as an ifeq-headed loop whose only effect is calling
// add on a second collection with values drawn from the first; the
// collection's own addAll does the same work in one call. The scanner
// decodes method bodies, simulates the operand stack, and reports each
// qualifying loop at the program counter of its add.
package useaddall

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/mpyw/useaddall/internal/classfile"
	"github.com/mpyw/useaddall/internal/config"
	"github.com/mpyw/useaddall/internal/detect"
	"github.com/mpyw/useaddall/internal/engine"
	"github.com/mpyw/useaddall/internal/hierarchy"
	"github.com/mpyw/useaddall/internal/report"
)

// Scanner runs the copy-loop analysis over class files, directories and
// jars.
type Scanner struct {
	cfg *config.Config
	log *slog.Logger
}

// NewScanner builds a scanner. A nil cfg means defaults; a nil log
// falls back to slog.Default.
func NewScanner(cfg *config.Config, log *slog.Logger) *Scanner {
	if cfg == nil {
		cfg = config.Default()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Scanner{cfg: cfg, log: log}
}

// Failure records an input that could not be read or parsed. The scan
// carries on past failures; they are reported alongside the findings.
type Failure struct {
	Path string `json:"path"`
	Err  error  `json:"-"`
}

func (f Failure) String() string {
	return fmt.Sprintf("%s: %v", f.Path, f.Err)
}

// Result is the outcome of one Scan.
type Result struct {
	report.Summary
	Failures []Failure
}

// Scan analyzes every class reachable from roots. Roots may be .class
// files, .jar archives, or directories searched recursively for both.
//
// The scan runs in two phases: first every class is parsed and its
// hierarchy facts registered, then classes are analyzed in parallel.
// Registration comes first so that capability checks in phase two see
// application supertypes regardless of file order.
func (s *Scanner) Scan(ctx context.Context, roots ...string) (*Result, error) {
	if len(roots) == 0 {
		return nil, errors.New("no scan roots")
	}

	inputs, failures, err := collectInputs(roots)
	if err != nil {
		return nil, err
	}
	s.log.Debug("inputs collected", slog.Int("classes", len(inputs)), slog.Int("failures", len(failures)))

	hier := hierarchy.New()
	hier.AddClasspath(s.cfg.Classpath...)
	defer hier.Close()

	classes := make([]*classfile.Class, 0, len(inputs))
	for _, in := range inputs {
		cls, err := classfile.Parse(in.data)
		if err != nil {
			failures = append(failures, Failure{Path: in.path, Err: err})
			continue
		}
		hier.RegisterClass(cls)
		if s.cfg.Excluded(cls.Name) {
			s.log.Debug("class excluded", slog.String("class", cls.Name))
			continue
		}
		classes = append(classes, cls)
	}

	collector := report.NewCollector()
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.WorkerCount())
	for _, cls := range classes {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			det := detect.New()
			det.Severity = s.cfg.Severity
			engine.New(s.log, hier, collector, det).AnalyzeClass(cls)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(failures, func(i, j int) bool { return failures[i].Path < failures[j].Path })
	summary := collector.Summary()
	summary.Classes = len(classes)
	res := &Result{Summary: summary, Failures: failures}
	s.log.Debug("scan finished",
		slog.Int("analyzed", res.Classes),
		slog.Int("diagnostics", len(res.Diagnostics)),
		slog.Int("failures", len(res.Failures)))
	return res, nil
}

type input struct {
	path string
	data []byte
}

// collectInputs resolves roots into raw class bytes. Unreadable entries
// under a directory or jar become failures; a root that itself cannot
// be read is an error.
func collectInputs(roots []string) ([]input, []Failure, error) {
	var ins []input
	var fails []Failure
	for _, root := range roots {
		info, err := os.Stat(root)
		if err != nil {
			return nil, nil, err
		}
		switch {
		case info.IsDir():
			err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
				if err != nil {
					return err
				}
				if d.IsDir() {
					return nil
				}
				switch {
				case strings.HasSuffix(path, ".class"):
					data, err := os.ReadFile(path)
					if err != nil {
						fails = append(fails, Failure{Path: path, Err: err})
						return nil
					}
					ins = append(ins, input{path: path, data: data})
				case strings.HasSuffix(path, ".jar"):
					jarIns, jarFails := readJar(path)
					ins = append(ins, jarIns...)
					fails = append(fails, jarFails...)
				}
				return nil
			})
			if err != nil {
				return nil, nil, err
			}
		case strings.HasSuffix(root, ".jar"):
			jarIns, jarFails := readJar(root)
			ins = append(ins, jarIns...)
			fails = append(fails, jarFails...)
		case strings.HasSuffix(root, ".class"):
			data, err := os.ReadFile(root)
			if err != nil {
				return nil, nil, err
			}
			ins = append(ins, input{path: root, data: data})
		default:
			return nil, nil, fmt.Errorf("%s: not a class file, jar or directory", root)
		}
	}
	return ins, fails, nil
}

// readJar pulls every class out of a jar. Entries under META-INF are
// skipped: multi-release copies would otherwise be analyzed twice.
func readJar(path string) ([]input, []Failure) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, []Failure{{Path: path, Err: err}}
	}
	defer r.Close()

	var ins []input
	var fails []Failure
	for _, f := range r.File {
		if !strings.HasSuffix(f.Name, ".class") || strings.HasPrefix(f.Name, "META-INF/") {
			continue
		}
		entry := path + "!" + f.Name
		rc, err := f.Open()
		if err != nil {
			fails = append(fails, Failure{Path: entry, Err: err})
			continue
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			fails = append(fails, Failure{Path: entry, Err: err})
			continue
		}
		ins = append(ins, input{path: entry, data: data})
	}
	return ins, fails
}
