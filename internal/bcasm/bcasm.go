// Package bcasm assembles small class files in memory.
//
// It exists for tests: scenarios are written as instruction sequences
// with symbolic labels, and the assembler turns them into real class
// bytes that the production parser and decoder consume. Label positions
// stay queryable after assembly, so expectations about program counters
// are derived instead of hard-coded.
//
// The builders panic on misuse (undefined labels, malformed
// descriptors). They build fixtures, not untrusted input.
package bcasm

import (
	"encoding/binary"
	"fmt"

	"github.com/mpyw/useaddall/internal/bytecode"
)

// MethodAsm assembles the body of a single method. All emit methods
// return the receiver for chaining.
type MethodAsm struct {
	cls    *ClassBuilder
	access uint16
	name   string
	desc   string

	maxStack  int
	maxLocals int
	code      []byte
	labels    map[string]int
	fixups    []fixup
	lines     [][2]int
}

type fixup struct {
	at    int // offset of the 16-bit branch slot within code
	base  int // pc the offset is relative to
	label string
}

// ===== Labels =====

// Label binds name to the current program counter.
func (m *MethodAsm) Label(name string) *MethodAsm {
	if _, ok := m.labels[name]; ok {
		panic(fmt.Sprintf("bcasm: label %q bound twice in %s", name, m.name))
	}
	m.labels[name] = len(m.code)
	return m
}

// Pos returns the program counter a label was bound to.
func (m *MethodAsm) Pos(name string) int {
	pc, ok := m.labels[name]
	if !ok {
		panic(fmt.Sprintf("bcasm: label %q not bound in %s", name, m.name))
	}
	return pc
}

// PC returns the current program counter.
func (m *MethodAsm) PC() int {
	return len(m.code)
}

// ===== Instruction emission =====

// Op appends bare opcodes.
func (m *MethodAsm) Op(ops ...bytecode.Opcode) *MethodAsm {
	for _, op := range ops {
		m.code = append(m.code, byte(op))
	}
	return m
}

// Raw appends arbitrary bytes.
func (m *MethodAsm) Raw(b ...byte) *MethodAsm {
	m.code = append(m.code, b...)
	return m
}

// Branch emits a 16-bit branch instruction targeting a label. Forward
// references are patched during Build.
func (m *MethodAsm) Branch(op bytecode.Opcode, label string) *MethodAsm {
	base := len(m.code)
	m.code = append(m.code, byte(op), 0, 0)
	m.fixups = append(m.fixups, fixup{at: base + 1, base: base, label: label})
	return m
}

// Goto emits an unconditional jump to a label.
func (m *MethodAsm) Goto(label string) *MethodAsm {
	return m.Branch(bytecode.OpGoto, label)
}

// ALoad emits a reference load, in compact form when the slot allows.
func (m *MethodAsm) ALoad(slot int) *MethodAsm {
	return m.loadStore(bytecode.OpALoad, bytecode.OpALoad0, slot)
}

// AStore emits a reference store.
func (m *MethodAsm) AStore(slot int) *MethodAsm {
	return m.loadStore(bytecode.OpAStore, bytecode.OpAStore0, slot)
}

// ILoad emits an int load.
func (m *MethodAsm) ILoad(slot int) *MethodAsm {
	return m.loadStore(bytecode.OpILoad, bytecode.OpILoad0, slot)
}

// IStore emits an int store.
func (m *MethodAsm) IStore(slot int) *MethodAsm {
	return m.loadStore(bytecode.OpIStore, bytecode.OpIStore0, slot)
}

func (m *MethodAsm) loadStore(wide, compact bytecode.Opcode, slot int) *MethodAsm {
	if slot >= 0 && slot <= 3 {
		m.code = append(m.code, byte(compact)+byte(slot))
		return m
	}
	if slot > 0xff {
		panic(fmt.Sprintf("bcasm: slot %d needs a wide prefix", slot))
	}
	m.code = append(m.code, byte(wide), byte(slot))
	return m
}

// IConst pushes an int constant using the shortest encoding.
func (m *MethodAsm) IConst(v int) *MethodAsm {
	switch {
	case v >= -1 && v <= 5:
		m.code = append(m.code, byte(bytecode.OpIConst0)+byte(v))
	case v >= -128 && v <= 127:
		m.code = append(m.code, byte(bytecode.OpBIPush), byte(int8(v)))
	case v >= -32768 && v <= 32767:
		var b [2]byte
		binary.BigEndian.PutUint16(b[:], uint16(int16(v)))
		m.code = append(m.code, byte(bytecode.OpSIPush), b[0], b[1])
	default:
		panic(fmt.Sprintf("bcasm: constant %d does not fit sipush", v))
	}
	return m
}

// IInc emits an iinc on slot by delta.
func (m *MethodAsm) IInc(slot, delta int) *MethodAsm {
	if slot > 0xff || delta < -128 || delta > 127 {
		panic("bcasm: iinc operands need a wide prefix")
	}
	m.code = append(m.code, byte(bytecode.OpIInc), byte(slot), byte(int8(delta)))
	return m
}

// InvokeInterface emits an invokeinterface with the slot count derived
// from the descriptor.
func (m *MethodAsm) InvokeInterface(owner, name, desc string) *MethodAsm {
	idx := m.cls.pool.MethodRef(owner, name, desc, true)
	count := 1 + argSlots(desc)
	m.code = append(m.code, byte(bytecode.OpInvokeInterface))
	m.code = appendU16(m.code, idx)
	m.code = append(m.code, byte(count), 0)
	return m
}

// InvokeVirtual emits an invokevirtual.
func (m *MethodAsm) InvokeVirtual(owner, name, desc string) *MethodAsm {
	return m.invokeFixed(bytecode.OpInvokeVirtual, owner, name, desc)
}

// InvokeSpecial emits an invokespecial.
func (m *MethodAsm) InvokeSpecial(owner, name, desc string) *MethodAsm {
	return m.invokeFixed(bytecode.OpInvokeSpecial, owner, name, desc)
}

// InvokeStatic emits an invokestatic.
func (m *MethodAsm) InvokeStatic(owner, name, desc string) *MethodAsm {
	return m.invokeFixed(bytecode.OpInvokeStatic, owner, name, desc)
}

func (m *MethodAsm) invokeFixed(op bytecode.Opcode, owner, name, desc string) *MethodAsm {
	idx := m.cls.pool.MethodRef(owner, name, desc, false)
	m.code = append(m.code, byte(op))
	m.code = appendU16(m.code, idx)
	return m
}

// GetField emits a getfield.
func (m *MethodAsm) GetField(owner, name, desc string) *MethodAsm {
	return m.fieldOp(bytecode.OpGetField, owner, name, desc)
}

// PutField emits a putfield.
func (m *MethodAsm) PutField(owner, name, desc string) *MethodAsm {
	return m.fieldOp(bytecode.OpPutField, owner, name, desc)
}

// GetStatic emits a getstatic.
func (m *MethodAsm) GetStatic(owner, name, desc string) *MethodAsm {
	return m.fieldOp(bytecode.OpGetStatic, owner, name, desc)
}

// PutStatic emits a putstatic.
func (m *MethodAsm) PutStatic(owner, name, desc string) *MethodAsm {
	return m.fieldOp(bytecode.OpPutStatic, owner, name, desc)
}

func (m *MethodAsm) fieldOp(op bytecode.Opcode, owner, name, desc string) *MethodAsm {
	idx := m.cls.pool.FieldRef(owner, name, desc)
	m.code = append(m.code, byte(op))
	m.code = appendU16(m.code, idx)
	return m
}

// New emits a new for the given class.
func (m *MethodAsm) New(className string) *MethodAsm {
	return m.typeOp(bytecode.OpNew, className)
}

// CheckCast emits a checkcast to the given class.
func (m *MethodAsm) CheckCast(className string) *MethodAsm {
	return m.typeOp(bytecode.OpCheckCast, className)
}

// InstanceOf emits an instanceof against the given class.
func (m *MethodAsm) InstanceOf(className string) *MethodAsm {
	return m.typeOp(bytecode.OpInstanceOf, className)
}

func (m *MethodAsm) typeOp(op bytecode.Opcode, className string) *MethodAsm {
	idx := m.cls.pool.Class(className)
	m.code = append(m.code, byte(op))
	m.code = appendU16(m.code, idx)
	return m
}

// ===== Metadata =====

// Line records a LineNumberTable entry mapping the current pc to a
// source line.
func (m *MethodAsm) Line(line int) *MethodAsm {
	m.lines = append(m.lines, [2]int{len(m.code), line})
	return m
}

// MaxStack overrides the default operand-stack size.
func (m *MethodAsm) MaxStack(n int) *MethodAsm {
	m.maxStack = n
	return m
}

// MaxLocals overrides the default local-variable count.
func (m *MethodAsm) MaxLocals(n int) *MethodAsm {
	m.maxLocals = n
	return m
}

// Done returns to the class builder.
func (m *MethodAsm) Done() *ClassBuilder {
	return m.cls
}

// assemble patches branch fixups into a copy of the code.
func (m *MethodAsm) assemble() []byte {
	code := append([]byte(nil), m.code...)
	for _, f := range m.fixups {
		target, ok := m.labels[f.label]
		if !ok {
			panic(fmt.Sprintf("bcasm: undefined label %q in %s", f.label, m.name))
		}
		binary.BigEndian.PutUint16(code[f.at:], uint16(int16(target-f.base)))
	}
	return code
}

// argSlots counts the local slots taken by the arguments of a method
// descriptor, receiver excluded.
func argSlots(desc string) int {
	sigs, err := bytecode.ArgSigs(desc)
	if err != nil {
		panic(fmt.Sprintf("bcasm: %v", err))
	}
	n := 0
	for _, sig := range sigs {
		if bytecode.IsCategory2(sig) {
			n += 2
		} else {
			n++
		}
	}
	return n
}

func appendU16(out []byte, v uint16) []byte {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	return append(out, b[:]...)
}

func appendU32(out []byte, v uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return append(out, b[:]...)
}
