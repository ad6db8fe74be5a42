// Package opstack models the JVM operand stack during a linear walk
// over a method body.
//
// The model is best-effort: instructions are applied in program order
// with no branch merging. An unconditional transfer clears the stack, a
// conditional branch keeps the fall-through view, and pops on an empty
// stack produce invalid items instead of failing.
//
// Items remember their provenance: the local slot they were loaded
// from, the field that produced them, and an opaque tag a detector can
// attach and read back later.
package opstack

import (
	"github.com/mpyw/useaddall/internal/bytecode"
)

// Item is one operand-stack entry. Longs and doubles are single items.
type Item struct {
	// Sig is the type signature when known ("Ljava/util/List;", "I"),
	// "" when the model cannot tell.
	Sig string
	// Reg is the local slot the item was loaded from, -1 when it did
	// not come straight from a local.
	Reg int
	// Field is the field that produced the item, nil otherwise.
	Field *bytecode.FieldRef
	// Tag is an opaque detector-attached value carried with the item
	// through dup, swap and checkcast.
	Tag any
}

// Valid reports whether the item exists. Reads past the stack depth
// return invalid items.
func (it Item) Valid() bool {
	return it.Reg != -1 || it.Sig != "" || it.Field != nil || it.Tag != nil
}

func (it Item) isCategory2() bool {
	return bytecode.IsCategory2(it.Sig)
}

func invalidItem() Item {
	return Item{Reg: -1}
}

// Stack is the operand-stack model for one method walk. It also keeps
// the static type of each local slot, seeded from the method descriptor
// and updated by stores.
type Stack struct {
	items  []Item
	locals []string
}

// New returns a stack for a method with the given local count.
func New(maxLocals int) *Stack {
	if maxLocals < 0 {
		maxLocals = 0
	}
	return &Stack{locals: make([]string, maxLocals)}
}

// InitLocals seeds parameter slots from a method descriptor. Instance
// methods get the receiver type in slot 0. Category-2 parameters take
// two slots, the second staying untyped.
func (s *Stack) InitLocals(owner, desc string, static bool) error {
	sigs, err := bytecode.ArgSigs(desc)
	if err != nil {
		return err
	}
	slot := 0
	if !static {
		s.setLocal(slot, "L"+owner+";")
		slot++
	}
	for _, sig := range sigs {
		s.setLocal(slot, sig)
		slot++
		if bytecode.IsCategory2(sig) {
			slot++
		}
	}
	return nil
}

func (s *Stack) setLocal(slot int, sig string) {
	if slot >= len(s.locals) {
		grown := make([]string, slot+1)
		copy(grown, s.locals)
		s.locals = grown
	}
	s.locals[slot] = sig
}

// LocalSig returns the tracked type of a local slot, "" when unknown.
func (s *Stack) LocalSig(slot int) string {
	if slot < 0 || slot >= len(s.locals) {
		return ""
	}
	return s.locals[slot]
}

// Depth returns the number of modeled items.
func (s *Stack) Depth() int {
	return len(s.items)
}

// Item returns the item i positions from the top, top being 0. Reads
// past the depth return an invalid item.
func (s *Stack) Item(i int) Item {
	if i < 0 || i >= len(s.items) {
		return invalidItem()
	}
	return s.items[len(s.items)-1-i]
}

// SetTag attaches a detector tag to the item i positions from the top.
// Out-of-range positions are ignored.
func (s *Stack) SetTag(i int, tag any) {
	if i < 0 || i >= len(s.items) {
		return
	}
	s.items[len(s.items)-1-i].Tag = tag
}

// Clear drops all items but keeps local types.
func (s *Stack) Clear() {
	s.items = s.items[:0]
}

func (s *Stack) push(it Item) {
	s.items = append(s.items, it)
}

func (s *Stack) pushSig(sig string) {
	s.push(Item{Sig: sig, Reg: -1})
}

func (s *Stack) pop() Item {
	if len(s.items) == 0 {
		return invalidItem()
	}
	it := s.items[len(s.items)-1]
	s.items = s.items[:len(s.items)-1]
	return it
}

func (s *Stack) popN(n int) {
	for i := 0; i < n; i++ {
		s.pop()
	}
}
