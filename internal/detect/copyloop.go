// Package detect implements the copy-loop detector.
//
// # Model
//
// The detector walks a method body once, riding the engine's simulated
// operand stack, and looks for loops whose entire job is moving elements
// from one collection to another one at a time. The canonical shape:
//
//	start:  ifeq end            condition value carries the source tag
//	          ...
//	addPC:  invokeinterface add(Object)Z   on a second collection
//	        pop
//	end-3:  goto head           back edge, head before start
//	end:    first pc past the loop
//
// Values are tracked by provenance, not by dataflow: calling an accessor
// (iterator, next, hasNext, get, keySet, values) on a collection rooted
// in a local slot or an instance field stamps the result with a Tag
// naming that root. Tags survive stores and loads through an alias table
// and ride through checkcast, so the boolean feeding the loop's ifeq
// still names the collection it came from.
//
// A loop is registered when an ifeq with a tagged condition branches
// forward over a backward goto. Inside it, exactly one add(Object)Z
// whose value carries the loop's tag, whose receiver is itself a
// collection, and whose result is immediately popped marks a copy. Any
// other branch inside the loop, a second add, or an add too far behind
// the current pc disqualifies it. Surviving loops are reported at the
// add once the walk reaches the back edge.
package detect

import (
	"github.com/mpyw/useaddall/internal/bytecode"
	"github.com/mpyw/useaddall/internal/engine"
	"github.com/mpyw/useaddall/internal/opstack"
	"github.com/mpyw/useaddall/internal/report"
)

// Name identifies the detector in diagnostics and configuration.
const Name = "useaddall"

const copyLoopMessage = "loop copies a collection one element at a time; use addAll"

const (
	collectionClass = "java/util/Collection"

	sigGet = "(I)Ljava/lang/Object;"
	sigAdd = "(Ljava/lang/Object;)Z"
)

type actionKind uint8

const (
	actionNone actionKind = iota
	// actionPropagate stamps the instruction's result with a known tag.
	actionPropagate
	// actionRestore stamps the result with whatever the alias table
	// holds for the loaded slot or field.
	actionRestore
)

// tagAction is decided against the pre-instruction stack and applied to
// the post-instruction stack, once the result item exists.
type tagAction struct {
	kind actionKind
	tag  Tag
}

// CopyLoop is the detector. One instance walks one class at a time; all
// state is per-method and reset by BeginMethod.
type CopyLoop struct {
	// Severity of emitted diagnostics.
	Severity report.Severity

	aliases        *aliasTable
	loops          map[Tag]*loopInfo
	instanceMethod bool
	action         tagAction
}

func New() *CopyLoop {
	return &CopyLoop{Severity: report.SeverityNormal}
}

func (d *CopyLoop) Name() string { return Name }

func (d *CopyLoop) BeginMethod(ctx *engine.MethodContext) bool {
	d.aliases = newAliasTable()
	d.loops = make(map[Tag]*loopInfo)
	d.instanceMethod = !ctx.Method.IsStatic()
	d.action = tagAction{}
	return true
}

func (d *CopyLoop) EndMethod(ctx *engine.MethodContext) {
	d.aliases = nil
	d.loops = nil
}

// BeforeInstruction settles open loops against the current pc, then
// classifies the instruction. Tag effects on the instruction's result
// are only recorded here; AfterInstruction applies them.
func (d *CopyLoop) BeforeInstruction(ctx *engine.MethodContext, in bytecode.Instruction) {
	d.action = tagAction{}
	d.sweep(ctx, in.PC)

	switch op := in.Op; {
	case op == bytecode.OpInvokeInterface:
		d.classifyInvoke(ctx, in)
	case bytecode.IsIntStore(op) || bytecode.IsRefStore(op):
		d.aliases.recordLocalStore(in.Slot, tagOf(ctx.Stack.Item(0)))
	case bytecode.IsIntLoad(op) || bytecode.IsRefLoad(op):
		d.action = tagAction{kind: actionRestore}
	case op == bytecode.OpIfEq:
		d.recognizeLoopHead(ctx, in)
	case op == bytecode.OpPutField && d.instanceMethod:
		if ctx.Stack.Item(1).Reg == 0 && in.Field != nil {
			d.aliases.recordFieldStore(in.Field.Name, tagOf(ctx.Stack.Item(0)))
		}
	case op == bytecode.OpGetField && d.instanceMethod:
		if ctx.Stack.Item(0).Reg == 0 {
			d.action = tagAction{kind: actionRestore}
		}
	case isLoopDisqualifier(op):
		d.removeLoopsAt(in.PC)
	case op == bytecode.OpCheckCast:
		if tag := tagOf(ctx.Stack.Item(0)); tag.Valid() {
			d.action = tagAction{kind: actionPropagate, tag: tag}
		}
	}
}

func (d *CopyLoop) AfterInstruction(ctx *engine.MethodContext, in bytecode.Instruction) {
	switch d.action.kind {
	case actionPropagate:
		ctx.Stack.SetTag(0, d.action.tag)
	case actionRestore:
		var tag Tag
		if in.Op == bytecode.OpGetField {
			if in.Field == nil {
				break
			}
			tag = d.aliases.resolveFieldLoad(in.Field.Name)
		} else {
			tag = d.aliases.resolveLocalLoad(in.Slot)
		}
		if tag.Valid() {
			ctx.Stack.SetTag(0, tag)
		} else {
			ctx.Stack.SetTag(0, nil)
		}
	}
	d.action = tagAction{}
}

// sweep settles every open loop against pc. A loop whose back edge has
// been reached is closed: if it recorded exactly one qualifying add,
// that add is reported. A still-open loop whose add is further than
// maxAddLag behind pc is doing more than copying and is dropped.
func (d *CopyLoop) sweep(ctx *engine.MethodContext, pc int) {
	for tag, loop := range d.loops {
		switch {
		case loop.end-bytecode.GotoLen <= pc:
			if loop.addPC > 0 {
				ctx.Report(Name, loop.addPC, d.Severity, copyLoopMessage)
			}
			delete(d.loops, tag)
		case loop.addPC > 0 && loop.addPC < pc-maxAddLag:
			delete(d.loops, tag)
		}
	}
}

// removeLoopsAt drops every loop whose span contains pc.
func (d *CopyLoop) removeLoopsAt(pc int) {
	for tag, loop := range d.loops {
		if loop.isInLoop(pc) {
			delete(d.loops, tag)
		}
	}
}

// isLoopDisqualifier reports whether op is a branch that breaks the
// single-exit loop shape: every conditional and unconditional branch
// other than the loop-heading ifeq itself.
func isLoopDisqualifier(op bytecode.Opcode) bool {
	if op > bytecode.OpIfEq && op <= bytecode.OpGoto {
		return true
	}
	return op == bytecode.OpIfNull || op == bytecode.OpIfNonNull
}

// recognizeLoopHead registers a candidate loop at a forward ifeq whose
// target is preceded by a backward goto, keyed by the condition's tag.
// An ifeq that matches the shape but has an untagged condition, or one
// whose target is not set up that way, instead disqualifies any loop
// the ifeq sits in. Backward ifeq branches and an empty stack are left
// alone entirely.
func (d *CopyLoop) recognizeLoopHead(ctx *engine.MethodContext, in bytecode.Instruction) {
	if ctx.Stack.Depth() == 0 || in.Target <= in.PC {
		return
	}
	gotoTarget, ok := bytecode.GotoTargetBefore(ctx.Code, in.Target)
	if !ok || gotoTarget >= in.PC {
		d.removeLoopsAt(in.PC)
		return
	}
	tag := tagOf(ctx.Stack.Item(0))
	if !tag.Valid() {
		d.removeLoopsAt(in.PC)
		return
	}
	d.loops[tag] = &loopInfo{start: in.PC, end: in.Target}
}

// classifyInvoke handles the interface calls the detector cares about:
// accessors that mint or forward tags, and the add that marks a copy.
func (d *CopyLoop) classifyInvoke(ctx *engine.MethodContext, in bytecode.Instruction) {
	m := in.Method
	if m == nil {
		return
	}
	switch {
	case m.Name == "get" && m.Desc == sigGet:
		// Receiver sits under the index argument.
		if tag := d.resolveSource(ctx, ctx.Stack.Item(1)); tag.Valid() {
			d.action = tagAction{kind: actionPropagate, tag: tag}
		}
	case m.Name == "keySet" || m.Name == "values" || m.Name == "iterator" ||
		m.Name == "next" || m.Name == "hasNext":
		if tag := d.resolveSource(ctx, ctx.Stack.Item(0)); tag.Valid() {
			d.action = tagAction{kind: actionPropagate, tag: tag}
		}
	case m.Name == "add" && m.Desc == sigAdd:
		d.classifyAdd(ctx, in)
	}
}

// classifyAdd records an add as the copy site of the loop keyed by the
// added value's tag. The receiver must itself resolve to a tracked
// collection, the tagged loop must contain the pc, and the boolean
// result must be discarded by an immediate pop.
func (d *CopyLoop) classifyAdd(ctx *engine.MethodContext, in bytecode.Instruction) {
	if !d.resolveSource(ctx, ctx.Stack.Item(1)).Valid() {
		return
	}
	tag := tagOf(ctx.Stack.Item(0))
	if !tag.Valid() {
		return
	}
	loop := d.loops[tag]
	if loop == nil || !loop.isInLoop(in.PC) {
		return
	}
	if in.Next >= len(ctx.Code) || bytecode.Opcode(ctx.Code[in.Next]) != bytecode.OpPop {
		return
	}
	loop.foundAdd(in.PC)
}

// resolveSource resolves an item to the Tag of the collection it roots
// in. A tag already riding the item wins; otherwise the item must come
// straight from a local slot or an instance field whose type implements
// java/util/Collection.
func (d *CopyLoop) resolveSource(ctx *engine.MethodContext, it opstack.Item) Tag {
	if tag := tagOf(it); tag.Valid() {
		return tag
	}
	if it.Reg >= 0 {
		if cls := bytecode.ClassOf(it.Sig); cls != "" && ctx.Implements(cls, collectionClass) {
			return SlotTag(it.Reg)
		}
	}
	if it.Field != nil {
		if cls := bytecode.ClassOf(it.Field.Desc); cls != "" && ctx.Implements(cls, collectionClass) {
			return FieldTag(it.Field.Name)
		}
	}
	return Tag{}
}

func tagOf(it opstack.Item) Tag {
	tag, _ := it.Tag.(Tag)
	return tag
}
