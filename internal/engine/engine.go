// Package engine drives bytecode detectors over parsed classes.
//
// The walk is the fixed part: decode a method, replay its instructions
// through the operand-stack model, and give each detector a hook before
// and after every instruction. Detectors hold the pattern knowledge;
// the engine holds the plumbing.
//
// # Dispatch order
//
//	BeginMethod
//	   │ per instruction, in pc order
//	   ├── BeforeInstruction   stack still shows the operands
//	   ├── stack.Execute       effect applied
//	   └── AfterInstruction    stack shows the results
//	EndMethod
//
// BeforeInstruction is where consumers are inspected (an invoke still
// sees its receiver and arguments); AfterInstruction is where produced
// values are tagged.
package engine

import (
	"errors"
	"log/slog"

	"github.com/mpyw/useaddall/internal/bytecode"
	"github.com/mpyw/useaddall/internal/classfile"
	"github.com/mpyw/useaddall/internal/hierarchy"
	"github.com/mpyw/useaddall/internal/opstack"
	"github.com/mpyw/useaddall/internal/report"
)

// MethodContext is what detectors see while one method is walked.
type MethodContext struct {
	Class  *classfile.Class
	Method *classfile.Method
	// Code is the raw body, for recognizers that inspect instruction
	// encodings around branch targets.
	Code      []byte
	Stack     *opstack.Stack
	Hierarchy *hierarchy.Resolver
	Reporter  report.Reporter
}

// Implements wraps the hierarchy query with the error policy detectors
// want: a class that cannot be resolved is surfaced through the
// reporter once and the answer becomes no.
func (ctx *MethodContext) Implements(class, iface string) bool {
	ok, err := ctx.Hierarchy.Implements(class, iface)
	if err != nil {
		var missing *hierarchy.MissingClassError
		if errors.As(err, &missing) {
			ctx.Reporter.MissingClass(missing.Name)
		}
		return false
	}
	return ok
}

// Report emits a diagnostic anchored at pc in the current method.
func (ctx *MethodContext) Report(detector string, pc int, severity report.Severity, message string) {
	ctx.Reporter.Report(report.Diagnostic{
		Detector:   detector,
		Class:      ctx.Class.Name,
		Method:     ctx.Method.Name,
		Descriptor: ctx.Method.Desc,
		PC:         pc,
		Line:       ctx.Method.LineAt(pc),
		SourceFile: ctx.Class.SourceFile,
		Severity:   severity,
		Message:    message,
	})
}

// Detector is a single-pass bytecode check.
type Detector interface {
	// Name identifies the detector in diagnostics and configuration.
	Name() string
	// BeginMethod resets per-method state. Returning false opts the
	// detector out of this method.
	BeginMethod(ctx *MethodContext) bool
	// BeforeInstruction runs with the operand stack in its
	// pre-instruction state.
	BeforeInstruction(ctx *MethodContext, in bytecode.Instruction)
	// AfterInstruction runs once the stack reflects the instruction.
	AfterInstruction(ctx *MethodContext, in bytecode.Instruction)
	// EndMethod runs after the last instruction of the method.
	EndMethod(ctx *MethodContext)
}

// Engine walks classes and dispatches to a fixed detector set.
type Engine struct {
	log       *slog.Logger
	hier      *hierarchy.Resolver
	reporter  report.Reporter
	detectors []Detector
}

// New builds an engine. A nil logger falls back to slog.Default.
func New(log *slog.Logger, hier *hierarchy.Resolver, reporter report.Reporter, detectors ...Detector) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{log: log, hier: hier, reporter: reporter, detectors: detectors}
}

// AnalyzeClass walks every method of the class that has a body. A
// method whose body does not decode is logged and skipped; the rest of
// the class is still analyzed.
func (e *Engine) AnalyzeClass(cls *classfile.Class) {
	for i := range cls.Methods {
		m := &cls.Methods[i]
		if len(m.Code) == 0 {
			continue
		}
		e.analyzeMethod(cls, m)
	}
}

func (e *Engine) analyzeMethod(cls *classfile.Class, m *classfile.Method) {
	insns, err := bytecode.Decode(m.Code, cls)
	if err != nil {
		e.log.Debug("skipping undecodable method",
			slog.String("class", cls.Name),
			slog.String("method", m.Name+m.Desc),
			slog.Any("error", err))
		return
	}

	stack := opstack.New(m.MaxLocals)
	if err := stack.InitLocals(cls.Name, m.Desc, m.IsStatic()); err != nil {
		e.log.Debug("skipping method with malformed descriptor",
			slog.String("class", cls.Name),
			slog.String("method", m.Name+m.Desc),
			slog.Any("error", err))
		return
	}

	ctx := &MethodContext{
		Class:     cls,
		Method:    m,
		Code:      m.Code,
		Stack:     stack,
		Hierarchy: e.hier,
		Reporter:  e.reporter,
	}

	active := make([]Detector, 0, len(e.detectors))
	for _, d := range e.detectors {
		if d.BeginMethod(ctx) {
			active = append(active, d)
		}
	}
	if len(active) == 0 {
		return
	}

	for _, in := range insns {
		for _, d := range active {
			d.BeforeInstruction(ctx, in)
		}
		stack.Execute(in)
		for _, d := range active {
			d.AfterInstruction(ctx, in)
		}
	}
	for _, d := range active {
		d.EndMethod(ctx)
	}
}
