package bytecode

import (
	"encoding/binary"
	"errors"
	"fmt"

	"golang.org/x/tools/container/intsets"
)

// ===== Decode errors =====

var (
	// ErrTruncated means the code array ends in the middle of an
	// instruction.
	ErrTruncated = errors.New("bytecode: code ends inside an instruction")
	// ErrUnknownOpcode means a byte at an instruction boundary is not a
	// defined opcode.
	ErrUnknownOpcode = errors.New("bytecode: unknown opcode")
	// ErrBadBranch means a branch or switch target does not land on an
	// instruction boundary inside the method.
	ErrBadBranch = errors.New("bytecode: branch target is not an instruction boundary")
)

// GotoLen is the encoded length of a goto instruction: one opcode byte
// plus a 16-bit offset.
const GotoLen = 3

// ===== Linear decoding =====

// Decode walks the code array of a method and returns its instructions
// in program-counter order. Every constant-pool operand is resolved
// through cp. Decoding fails on truncated instructions, undefined
// opcodes, unresolvable constant-pool operands and branch targets that
// fall between instructions.
func Decode(code []byte, cp ConstResolver) ([]Instruction, error) {
	if len(code) == 0 {
		return nil, nil
	}
	insns := make([]Instruction, 0, len(code)/2)

	// boundaries records every offset that starts an instruction, so
	// branch targets can be checked after the single forward pass.
	var boundaries intsets.Sparse
	for pc := 0; pc < len(code); {
		boundaries.Insert(pc)
		in, next, err := decodeOne(code, pc, cp)
		if err != nil {
			return nil, err
		}
		in.Next = next
		insns = append(insns, in)
		pc = next
	}

	for i := range insns {
		in := &insns[i]
		if in.IsBranch() && !boundaries.Has(in.Target) {
			return nil, fmt.Errorf("%w: pc=%d %s -> %d", ErrBadBranch, in.PC, in.Op, in.Target)
		}
		for _, t := range in.Targets {
			if !boundaries.Has(t) {
				return nil, fmt.Errorf("%w: pc=%d %s -> %d", ErrBadBranch, in.PC, in.Op, t)
			}
		}
	}
	return insns, nil
}

func decodeOne(code []byte, pc int, cp ConstResolver) (Instruction, int, error) {
	op := Opcode(code[pc])
	switch op {
	case OpWide:
		return decodeWide(code, pc)
	case OpTableSwitch:
		return decodeTableSwitch(code, pc)
	case OpLookupSwitch:
		return decodeLookupSwitch(code, pc)
	}

	in := Instruction{PC: pc, Op: op, Target: -1, Slot: -1}
	width := operandWidths[op]
	if width == widthInvalid {
		return in, 0, fmt.Errorf("%w: 0x%02x at pc=%d", ErrUnknownOpcode, byte(op), pc)
	}
	next := pc + 1 + int(width)
	if next > len(code) {
		return in, 0, fmt.Errorf("%w: pc=%d %s", ErrTruncated, pc, op)
	}

	switch {
	case (op >= OpIfEq && op <= OpJsr) || op == OpIfNull || op == OpIfNonNull:
		in.Target = pc + int(int16(be16(code, pc+1)))
	case op == OpGotoW || op == OpJsrW:
		in.Target = pc + int(int32(be32(code, pc+1)))
	case op == OpBIPush:
		in.Value = int(int8(code[pc+1]))
	case op == OpSIPush:
		in.Value = int(int16(be16(code, pc+1)))
	case op == OpILoad || op == OpLLoad || op == OpFLoad || op == OpDLoad || op == OpALoad ||
		op == OpIStore || op == OpLStore || op == OpFStore || op == OpDStore || op == OpAStore ||
		op == OpRet:
		in.Slot = int(code[pc+1])
	case op >= OpILoad0 && op <= OpALoad3:
		in.Slot = int(op-OpILoad0) % 4
	case op >= OpIStore0 && op <= OpAStore3:
		in.Slot = int(op-OpIStore0) % 4
	case op == OpIInc:
		in.Slot = int(code[pc+1])
		in.Value = int(int8(code[pc+2]))
	case op == OpNewArray:
		in.Value = int(code[pc+1])
	case op >= OpGetStatic && op <= OpPutField:
		f, err := cp.FieldRef(be16(code, pc+1))
		if err != nil {
			return in, 0, fmt.Errorf("pc=%d %s: %w", pc, op, err)
		}
		in.Field = &f
	case op >= OpInvokeVirtual && op <= OpInvokeInterface:
		m, err := cp.MethodRef(be16(code, pc+1))
		if err != nil {
			return in, 0, fmt.Errorf("pc=%d %s: %w", pc, op, err)
		}
		in.Method = &m
		if op == OpInvokeInterface {
			in.Value = int(code[pc+3])
		}
	case op == OpNew || op == OpANewArray || op == OpCheckCast || op == OpInstanceOf:
		n, err := cp.ClassName(be16(code, pc+1))
		if err != nil {
			return in, 0, fmt.Errorf("pc=%d %s: %w", pc, op, err)
		}
		in.TypeName = n
	case op == OpMultiANewArray:
		n, err := cp.ClassName(be16(code, pc+1))
		if err != nil {
			return in, 0, fmt.Errorf("pc=%d %s: %w", pc, op, err)
		}
		in.TypeName = n
		in.Value = int(code[pc+3])
	}

	if in.IsBranch() && (in.Target < 0 || in.Target >= len(code)) {
		return in, 0, fmt.Errorf("%w: pc=%d %s -> %d", ErrBadBranch, in.PC, in.Op, in.Target)
	}
	return in, next, nil
}

// decodeWide handles the wide prefix. The widened opcode replaces Op so
// callers never see OpWide in a decoded stream.
func decodeWide(code []byte, pc int) (Instruction, int, error) {
	if pc+2 > len(code) {
		return Instruction{}, 0, fmt.Errorf("%w: pc=%d wide", ErrTruncated, pc)
	}
	wop := Opcode(code[pc+1])
	in := Instruction{PC: pc, Op: wop, Target: -1, Slot: -1}
	switch wop {
	case OpILoad, OpLLoad, OpFLoad, OpDLoad, OpALoad,
		OpIStore, OpLStore, OpFStore, OpDStore, OpAStore, OpRet:
		next := pc + 4
		if next > len(code) {
			return in, 0, fmt.Errorf("%w: pc=%d wide %s", ErrTruncated, pc, wop)
		}
		in.Slot = int(be16(code, pc+2))
		return in, next, nil
	case OpIInc:
		next := pc + 6
		if next > len(code) {
			return in, 0, fmt.Errorf("%w: pc=%d wide iinc", ErrTruncated, pc)
		}
		in.Slot = int(be16(code, pc+2))
		in.Value = int(int16(be16(code, pc+4)))
		return in, next, nil
	default:
		return in, 0, fmt.Errorf("%w: wide 0x%02x at pc=%d", ErrUnknownOpcode, byte(wop), pc)
	}
}

func decodeTableSwitch(code []byte, pc int) (Instruction, int, error) {
	in := Instruction{PC: pc, Op: OpTableSwitch, Target: -1, Slot: -1}
	base := (pc + 4) &^ 3 // operands start at the next 4-byte boundary
	if base+12 > len(code) {
		return in, 0, fmt.Errorf("%w: pc=%d tableswitch", ErrTruncated, pc)
	}
	def := int(int32(be32(code, base)))
	low := int(int32(be32(code, base+4)))
	high := int(int32(be32(code, base+8)))
	if high < low {
		return in, 0, fmt.Errorf("bytecode: tableswitch at pc=%d has high %d < low %d", pc, high, low)
	}
	count := high - low + 1
	next := base + 12 + 4*count
	if next > len(code) {
		return in, 0, fmt.Errorf("%w: pc=%d tableswitch", ErrTruncated, pc)
	}
	in.Target = pc + def
	in.Targets = make([]int, 0, count+1)
	in.Targets = append(in.Targets, in.Target)
	for i := 0; i < count; i++ {
		in.Targets = append(in.Targets, pc+int(int32(be32(code, base+12+4*i))))
	}
	return in, next, nil
}

func decodeLookupSwitch(code []byte, pc int) (Instruction, int, error) {
	in := Instruction{PC: pc, Op: OpLookupSwitch, Target: -1, Slot: -1}
	base := (pc + 4) &^ 3
	if base+8 > len(code) {
		return in, 0, fmt.Errorf("%w: pc=%d lookupswitch", ErrTruncated, pc)
	}
	def := int(int32(be32(code, base)))
	npairs := int(int32(be32(code, base+4)))
	if npairs < 0 {
		return in, 0, fmt.Errorf("bytecode: lookupswitch at pc=%d has negative pair count %d", pc, npairs)
	}
	next := base + 8 + 8*npairs
	if next > len(code) {
		return in, 0, fmt.Errorf("%w: pc=%d lookupswitch", ErrTruncated, pc)
	}
	in.Target = pc + def
	in.Targets = make([]int, 0, npairs+1)
	in.Targets = append(in.Targets, in.Target)
	for i := 0; i < npairs; i++ {
		in.Targets = append(in.Targets, pc+int(int32(be32(code, base+8+8*i+4))))
	}
	return in, next, nil
}

// GotoTargetBefore reads the GotoLen bytes ending just before off and,
// when they encode a goto, returns its absolute target. off-GotoLen is
// not assumed to be an instruction boundary.
func GotoTargetBefore(code []byte, off int) (int, bool) {
	gpc := off - GotoLen
	if gpc < 0 || gpc+GotoLen > len(code) {
		return 0, false
	}
	if Opcode(code[gpc]) != OpGoto {
		return 0, false
	}
	return gpc + int(int16(be16(code, gpc+1))), true
}

func be16(b []byte, off int) uint16 {
	return binary.BigEndian.Uint16(b[off : off+2])
}

func be32(b []byte, off int) uint32 {
	return binary.BigEndian.Uint32(b[off : off+4])
}
