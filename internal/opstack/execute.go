package opstack

import (
	"strings"

	"github.com/mpyw/useaddall/internal/bytecode"
)

// Execute applies the stack effect of one decoded instruction. Unknown
// result types are pushed as untyped items; effects the linear model
// cannot follow (invokedynamic, control transfers) clear the stack.
func (s *Stack) Execute(in bytecode.Instruction) {
	switch op := in.Op; op {
	case bytecode.OpNop, bytecode.OpIInc:

	// ===== Constants =====
	case bytecode.OpAConstNull:
		s.pushSig("")
	case bytecode.OpIConstM1, bytecode.OpIConst0, bytecode.OpIConst1, bytecode.OpIConst2,
		bytecode.OpIConst3, bytecode.OpIConst4, bytecode.OpIConst5,
		bytecode.OpBIPush, bytecode.OpSIPush:
		s.pushSig("I")
	case bytecode.OpLConst0, bytecode.OpLConst1:
		s.pushSig("J")
	case bytecode.OpFConst0, bytecode.OpFConst1, bytecode.OpFConst2:
		s.pushSig("F")
	case bytecode.OpDConst0, bytecode.OpDConst1:
		s.pushSig("D")
	case bytecode.OpLdc, bytecode.OpLdcW:
		s.pushSig("")
	case bytecode.OpLdc2W:
		s.pushSig("J")

	// ===== Loads =====
	case bytecode.OpILoad, bytecode.OpILoad0, bytecode.OpILoad1, bytecode.OpILoad2, bytecode.OpILoad3:
		s.push(Item{Sig: "I", Reg: in.Slot})
	case bytecode.OpLLoad, bytecode.OpLLoad0, bytecode.OpLLoad1, bytecode.OpLLoad2, bytecode.OpLLoad3:
		s.push(Item{Sig: "J", Reg: in.Slot})
	case bytecode.OpFLoad, bytecode.OpFLoad0, bytecode.OpFLoad1, bytecode.OpFLoad2, bytecode.OpFLoad3:
		s.push(Item{Sig: "F", Reg: in.Slot})
	case bytecode.OpDLoad, bytecode.OpDLoad0, bytecode.OpDLoad1, bytecode.OpDLoad2, bytecode.OpDLoad3:
		s.push(Item{Sig: "D", Reg: in.Slot})
	case bytecode.OpALoad, bytecode.OpALoad0, bytecode.OpALoad1, bytecode.OpALoad2, bytecode.OpALoad3:
		s.push(Item{Sig: s.LocalSig(in.Slot), Reg: in.Slot})
	case bytecode.OpIALoad, bytecode.OpBALoad, bytecode.OpCALoad, bytecode.OpSALoad:
		s.popN(2)
		s.pushSig("I")
	case bytecode.OpLALoad:
		s.popN(2)
		s.pushSig("J")
	case bytecode.OpFALoad:
		s.popN(2)
		s.pushSig("F")
	case bytecode.OpDALoad:
		s.popN(2)
		s.pushSig("D")
	case bytecode.OpAALoad:
		s.popN(2)
		s.pushSig("")

	// ===== Stores =====
	case bytecode.OpIStore, bytecode.OpIStore0, bytecode.OpIStore1, bytecode.OpIStore2, bytecode.OpIStore3:
		s.store(in.Slot, "I")
	case bytecode.OpLStore, bytecode.OpLStore0, bytecode.OpLStore1, bytecode.OpLStore2, bytecode.OpLStore3:
		s.store(in.Slot, "J")
	case bytecode.OpFStore, bytecode.OpFStore0, bytecode.OpFStore1, bytecode.OpFStore2, bytecode.OpFStore3:
		s.store(in.Slot, "F")
	case bytecode.OpDStore, bytecode.OpDStore0, bytecode.OpDStore1, bytecode.OpDStore2, bytecode.OpDStore3:
		s.store(in.Slot, "D")
	case bytecode.OpAStore, bytecode.OpAStore0, bytecode.OpAStore1, bytecode.OpAStore2, bytecode.OpAStore3:
		it := s.pop()
		s.setLocal(in.Slot, it.Sig)
	case bytecode.OpIAStore, bytecode.OpLAStore, bytecode.OpFAStore, bytecode.OpDAStore,
		bytecode.OpAAStore, bytecode.OpBAStore, bytecode.OpCAStore, bytecode.OpSAStore:
		s.popN(3)

	// ===== Stack shuffles =====
	case bytecode.OpPop:
		s.pop()
	case bytecode.OpPop2:
		if s.Item(0).isCategory2() {
			s.pop()
		} else {
			s.popN(2)
		}
	case bytecode.OpDup:
		if s.Depth() > 0 {
			s.push(s.Item(0))
		}
	case bytecode.OpDupX1:
		if s.Depth() >= 2 {
			s.insert(2, s.Item(0))
		} else if s.Depth() == 1 {
			s.push(s.Item(0))
		}
	case bytecode.OpDupX2:
		switch {
		case s.Depth() >= 2 && s.Item(1).isCategory2():
			s.insert(2, s.Item(0))
		case s.Depth() >= 3:
			s.insert(3, s.Item(0))
		case s.Depth() > 0:
			s.push(s.Item(0))
		}
	case bytecode.OpDup2:
		switch {
		case s.Item(0).isCategory2():
			s.push(s.Item(0))
		case s.Depth() >= 2:
			a, b := s.Item(1), s.Item(0)
			s.push(a)
			s.push(b)
		case s.Depth() == 1:
			s.push(s.Item(0))
		}
	case bytecode.OpDup2X1:
		if s.Item(0).isCategory2() {
			s.insert(2, s.Item(0))
		} else if s.Depth() >= 3 {
			a, b := s.Item(1), s.Item(0)
			s.insert(3, a)
			s.insert(3, b)
		}
	case bytecode.OpDup2X2:
		switch {
		case s.Item(0).isCategory2() && s.Item(1).isCategory2():
			s.insert(2, s.Item(0))
		case s.Item(0).isCategory2():
			s.insert(3, s.Item(0))
		case s.Depth() >= 3 && s.Item(2).isCategory2():
			a, b := s.Item(1), s.Item(0)
			s.insert(3, a)
			s.insert(3, b)
		case s.Depth() >= 4:
			a, b := s.Item(1), s.Item(0)
			s.insert(4, a)
			s.insert(4, b)
		}
	case bytecode.OpSwap:
		if n := len(s.items); n >= 2 {
			s.items[n-1], s.items[n-2] = s.items[n-2], s.items[n-1]
		}

	// ===== Arithmetic and conversions =====
	case bytecode.OpIAdd, bytecode.OpISub, bytecode.OpIMul, bytecode.OpIDiv, bytecode.OpIRem,
		bytecode.OpIShl, bytecode.OpIShr, bytecode.OpIUShr,
		bytecode.OpIAnd, bytecode.OpIOr, bytecode.OpIXor:
		s.popN(2)
		s.pushSig("I")
	case bytecode.OpLAdd, bytecode.OpLSub, bytecode.OpLMul, bytecode.OpLDiv, bytecode.OpLRem,
		bytecode.OpLShl, bytecode.OpLShr, bytecode.OpLUShr,
		bytecode.OpLAnd, bytecode.OpLOr, bytecode.OpLXor:
		s.popN(2)
		s.pushSig("J")
	case bytecode.OpFAdd, bytecode.OpFSub, bytecode.OpFMul, bytecode.OpFDiv, bytecode.OpFRem:
		s.popN(2)
		s.pushSig("F")
	case bytecode.OpDAdd, bytecode.OpDSub, bytecode.OpDMul, bytecode.OpDDiv, bytecode.OpDRem:
		s.popN(2)
		s.pushSig("D")
	case bytecode.OpINeg, bytecode.OpI2B, bytecode.OpI2C, bytecode.OpI2S,
		bytecode.OpL2I, bytecode.OpF2I, bytecode.OpD2I:
		s.pop()
		s.pushSig("I")
	case bytecode.OpLNeg, bytecode.OpI2L, bytecode.OpF2L, bytecode.OpD2L:
		s.pop()
		s.pushSig("J")
	case bytecode.OpFNeg, bytecode.OpI2F, bytecode.OpL2F, bytecode.OpD2F:
		s.pop()
		s.pushSig("F")
	case bytecode.OpDNeg, bytecode.OpI2D, bytecode.OpL2D, bytecode.OpF2D:
		s.pop()
		s.pushSig("D")
	case bytecode.OpLCmp, bytecode.OpFCmpL, bytecode.OpFCmpG, bytecode.OpDCmpL, bytecode.OpDCmpG:
		s.popN(2)
		s.pushSig("I")

	// ===== Control flow =====
	case bytecode.OpIfEq, bytecode.OpIfNe, bytecode.OpIfLt, bytecode.OpIfGe,
		bytecode.OpIfGt, bytecode.OpIfLe, bytecode.OpIfNull, bytecode.OpIfNonNull:
		s.pop()
	case bytecode.OpIfIcmpEq, bytecode.OpIfIcmpNe, bytecode.OpIfIcmpLt, bytecode.OpIfIcmpGe,
		bytecode.OpIfIcmpGt, bytecode.OpIfIcmpLe, bytecode.OpIfAcmpEq, bytecode.OpIfAcmpNe:
		s.popN(2)
	case bytecode.OpGoto, bytecode.OpGotoW, bytecode.OpRet,
		bytecode.OpTableSwitch, bytecode.OpLookupSwitch,
		bytecode.OpIReturn, bytecode.OpLReturn, bytecode.OpFReturn, bytecode.OpDReturn,
		bytecode.OpAReturn, bytecode.OpReturn, bytecode.OpAThrow:
		s.Clear()
	case bytecode.OpJsr, bytecode.OpJsrW:
		s.pushSig("")

	// ===== Fields =====
	case bytecode.OpGetStatic:
		s.push(Item{Sig: fieldSig(in), Reg: -1, Field: in.Field})
	case bytecode.OpGetField:
		s.pop()
		s.push(Item{Sig: fieldSig(in), Reg: -1, Field: in.Field})
	case bytecode.OpPutStatic:
		s.pop()
	case bytecode.OpPutField:
		s.popN(2)

	// ===== Invocations =====
	case bytecode.OpInvokeVirtual, bytecode.OpInvokeSpecial, bytecode.OpInvokeInterface:
		s.invoke(in, true)
	case bytecode.OpInvokeStatic:
		s.invoke(in, false)
	case bytecode.OpInvokeDynamic:
		// The call-site descriptor is not resolved; be conservative.
		s.Clear()

	// ===== Objects and arrays =====
	case bytecode.OpNew:
		s.pushSig(classSig(in.TypeName))
	case bytecode.OpNewArray:
		s.pop()
		s.pushSig("[" + primSig(in.Value))
	case bytecode.OpANewArray:
		s.pop()
		s.pushSig("[" + classSig(in.TypeName))
	case bytecode.OpMultiANewArray:
		s.popN(in.Value)
		s.pushSig(classSig(in.TypeName))
	case bytecode.OpArrayLength:
		s.pop()
		s.pushSig("I")
	case bytecode.OpCheckCast:
		if n := len(s.items); n > 0 {
			s.items[n-1].Sig = classSig(in.TypeName)
		}
	case bytecode.OpInstanceOf:
		s.pop()
		s.pushSig("I")
	case bytecode.OpMonitorEnter, bytecode.OpMonitorExit:
		s.pop()
	}
}

func (s *Stack) store(slot int, sig string) {
	s.pop()
	s.setLocal(slot, sig)
	if bytecode.IsCategory2(sig) {
		s.setLocal(slot+1, "")
	}
}

// insert places a copy of it so that it ends up depth positions below
// the current top.
func (s *Stack) insert(depth int, it Item) {
	pos := len(s.items) - depth
	if pos < 0 {
		pos = 0
	}
	s.items = append(s.items, Item{})
	copy(s.items[pos+1:], s.items[pos:])
	s.items[pos] = it
}

func (s *Stack) invoke(in bytecode.Instruction, hasReceiver bool) {
	if in.Method == nil {
		s.Clear()
		return
	}
	sigs, err := bytecode.ArgSigs(in.Method.Desc)
	if err != nil {
		s.Clear()
		return
	}
	n := len(sigs)
	if hasReceiver {
		n++
	}
	s.popN(n)
	ret, err := bytecode.ReturnSig(in.Method.Desc)
	if err != nil {
		s.Clear()
		return
	}
	if ret != "V" {
		s.pushSig(ret)
	}
}

func fieldSig(in bytecode.Instruction) string {
	if in.Field == nil {
		return ""
	}
	return in.Field.Desc
}

// classSig turns a constant-pool class name into a type signature.
// Array classes are stored in signature form already.
func classSig(name string) string {
	if name == "" {
		return ""
	}
	if strings.HasPrefix(name, "[") {
		return name
	}
	return "L" + name + ";"
}

var atypeSigs = map[int]string{
	4: "Z", 5: "C", 6: "F", 7: "D", 8: "B", 9: "S", 10: "I", 11: "J",
}

func primSig(atype int) string {
	if sig, ok := atypeSigs[atype]; ok {
		return sig
	}
	return ""
}
