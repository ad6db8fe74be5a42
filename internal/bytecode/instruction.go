package bytecode

import "fmt"

// MethodRef identifies the callee of an invoke instruction. Owner is the
// internal form of the declaring class ("java/util/List"), Desc the raw
// method descriptor ("(Ljava/lang/Object;)Z").
type MethodRef struct {
	Owner string
	Name  string
	Desc  string
}

func (r MethodRef) String() string {
	return r.Owner + "." + r.Name + r.Desc
}

// FieldRef identifies the target of a field access instruction.
type FieldRef struct {
	Owner string
	Name  string
	Desc  string
}

func (r FieldRef) String() string {
	return r.Owner + "." + r.Name + ":" + r.Desc
}

// ConstResolver looks up constant-pool entries referenced by instruction
// operands. The class-file parser provides the production implementation;
// tests supply small fakes.
type ConstResolver interface {
	// ClassName returns the internal name for a CONSTANT_Class entry.
	ClassName(index uint16) (string, error)
	// FieldRef resolves a CONSTANT_Fieldref entry.
	FieldRef(index uint16) (FieldRef, error)
	// MethodRef resolves a CONSTANT_Methodref or
	// CONSTANT_InterfaceMethodref entry.
	MethodRef(index uint16) (MethodRef, error)
}

// Instruction is one decoded JVM instruction. Fields that do not apply
// to the opcode hold their zero-ish defaults: Target and Slot are -1,
// pointer operands are nil.
type Instruction struct {
	// PC is the offset of the opcode byte within the code array.
	PC int
	// Op is the instruction opcode. For wide-prefixed forms this is the
	// widened opcode, not OpWide.
	Op Opcode
	// Next is the offset of the following instruction (== PC + encoded
	// length, wide prefix included).
	Next int
	// Target is the absolute branch target for branch and jsr
	// instructions, -1 otherwise. Switches keep their default here.
	Target int
	// Targets lists every case target of a switch instruction, default
	// included, in encoding order.
	Targets []int
	// Slot is the local-variable index for load, store, ret and iinc
	// instructions, compact forms included, -1 otherwise.
	Slot int
	// Value is the immediate operand: the pushed constant for bipush
	// and sipush, the increment for iinc, the array type code for
	// newarray, the dimension count for multianewarray.
	Value int
	// Method is the resolved callee for invoke instructions. It stays
	// nil for invokedynamic, whose call site has no owner class.
	Method *MethodRef
	// Field is the resolved target for getfield, putfield, getstatic
	// and putstatic.
	Field *FieldRef
	// TypeName is the internal class name operand of new, checkcast,
	// instanceof, anewarray and multianewarray.
	TypeName string
}

func (in Instruction) String() string {
	switch {
	case in.Method != nil:
		return fmt.Sprintf("%d: %s %s", in.PC, in.Op, *in.Method)
	case in.Field != nil:
		return fmt.Sprintf("%d: %s %s", in.PC, in.Op, *in.Field)
	case in.Target >= 0:
		return fmt.Sprintf("%d: %s -> %d", in.PC, in.Op, in.Target)
	case in.Slot >= 0:
		return fmt.Sprintf("%d: %s [%d]", in.PC, in.Op, in.Slot)
	case in.TypeName != "":
		return fmt.Sprintf("%d: %s %s", in.PC, in.Op, in.TypeName)
	default:
		return fmt.Sprintf("%d: %s", in.PC, in.Op)
	}
}

// IsBranch reports whether the instruction transfers control to Target:
// conditional branches, goto, goto_w, jsr and jsr_w.
func (in Instruction) IsBranch() bool {
	return (in.Op >= OpIfEq && in.Op <= OpJsr) ||
		in.Op == OpIfNull || in.Op == OpIfNonNull ||
		in.Op == OpGotoW || in.Op == OpJsrW
}

// IsSwitch reports whether the instruction is tableswitch or lookupswitch.
func (in Instruction) IsSwitch() bool {
	return in.Op == OpTableSwitch || in.Op == OpLookupSwitch
}
