package opstack

import (
	"testing"

	"github.com/mpyw/useaddall/internal/bytecode"
)

func op(o bytecode.Opcode) bytecode.Instruction {
	return bytecode.Instruction{Op: o, Target: -1, Slot: -1}
}

func load(o bytecode.Opcode, slot int) bytecode.Instruction {
	return bytecode.Instruction{Op: o, Target: -1, Slot: slot}
}

func invoke(o bytecode.Opcode, owner, name, desc string) bytecode.Instruction {
	return bytecode.Instruction{
		Op: o, Target: -1, Slot: -1,
		Method: &bytecode.MethodRef{Owner: owner, Name: name, Desc: desc},
	}
}

func TestInitLocalsFromDescriptor(t *testing.T) {
	s := New(6)
	if err := s.InitLocals("com/acme/C", "(Ljava/util/List;JLjava/lang/String;)V", false); err != nil {
		t.Fatalf("InitLocals: %v", err)
	}
	want := []string{"Lcom/acme/C;", "Ljava/util/List;", "J", "", "Ljava/lang/String;", ""}
	for slot, sig := range want {
		if got := s.LocalSig(slot); got != sig {
			t.Errorf("LocalSig(%d) = %q, want %q", slot, got, sig)
		}
	}
}

func TestInitLocalsStatic(t *testing.T) {
	s := New(2)
	if err := s.InitLocals("com/acme/C", "(Ljava/util/Set;)V", true); err != nil {
		t.Fatalf("InitLocals: %v", err)
	}
	if got := s.LocalSig(0); got != "Ljava/util/Set;" {
		t.Errorf("LocalSig(0) = %q, want the first parameter", got)
	}
}

func TestLoadTracksProvenance(t *testing.T) {
	s := New(3)
	if err := s.InitLocals("com/acme/C", "(Ljava/util/List;)V", false); err != nil {
		t.Fatalf("InitLocals: %v", err)
	}
	s.Execute(load(bytecode.OpALoad1, 1))
	it := s.Item(0)
	if it.Reg != 1 || it.Sig != "Ljava/util/List;" {
		t.Errorf("loaded item = %+v, want reg 1 with the parameter type", it)
	}
}

func TestStoreUpdatesLocalType(t *testing.T) {
	s := New(4)
	s.Execute(bytecode.Instruction{
		Op: bytecode.OpGetStatic, Target: -1, Slot: -1,
		Field: &bytecode.FieldRef{Owner: "com/acme/C", Name: "cache", Desc: "Ljava/util/Set;"},
	})
	s.Execute(load(bytecode.OpAStore2, 2))
	if got := s.LocalSig(2); got != "Ljava/util/Set;" {
		t.Errorf("LocalSig(2) = %q after astore_2", got)
	}
	if s.Depth() != 0 {
		t.Errorf("depth = %d after store", s.Depth())
	}
}

func TestTagFollowsDupAndCheckcast(t *testing.T) {
	s := New(2)
	s.Execute(load(bytecode.OpALoad1, 1))
	s.SetTag(0, "marker")
	s.Execute(op(bytecode.OpDup))
	if s.Depth() != 2 {
		t.Fatalf("depth = %d after dup", s.Depth())
	}
	if s.Item(0).Tag != "marker" || s.Item(1).Tag != "marker" {
		t.Error("dup did not carry the tag to both items")
	}
	s.Execute(bytecode.Instruction{Op: bytecode.OpCheckCast, Target: -1, Slot: -1, TypeName: "java/util/ArrayList"})
	top := s.Item(0)
	if top.Tag != "marker" {
		t.Error("checkcast dropped the tag")
	}
	if top.Sig != "Ljava/util/ArrayList;" {
		t.Errorf("checkcast sig = %q", top.Sig)
	}
}

func TestInvokePopsArgsAndPushesResult(t *testing.T) {
	s := New(2)
	s.Execute(load(bytecode.OpALoad0, 0))
	s.Execute(op(bytecode.OpIConst0))
	s.Execute(invoke(bytecode.OpInvokeInterface, "java/util/List", "get", "(I)Ljava/lang/Object;"))
	if s.Depth() != 1 {
		t.Fatalf("depth = %d after invokeinterface", s.Depth())
	}
	if got := s.Item(0).Sig; got != "Ljava/lang/Object;" {
		t.Errorf("result sig = %q", got)
	}

	s.Execute(invoke(bytecode.OpInvokeVirtual, "java/lang/Object", "hashCode", "()I"))
	if got := s.Item(0).Sig; got != "I" {
		t.Errorf("result sig = %q after a void-receiver call", got)
	}
}

func TestVoidInvokeLeavesNothing(t *testing.T) {
	s := New(1)
	s.Execute(load(bytecode.OpALoad0, 0))
	s.Execute(invoke(bytecode.OpInvokeVirtual, "java/lang/Object", "notify", "()V"))
	if s.Depth() != 0 {
		t.Errorf("depth = %d after a void call", s.Depth())
	}
}

func TestUnderflowIsTolerated(t *testing.T) {
	s := New(0)
	s.Execute(op(bytecode.OpPop))
	s.Execute(op(bytecode.OpSwap))
	s.Execute(op(bytecode.OpIAdd))
	if it := s.Item(0); it.Valid() {
		t.Errorf("Item on an underflowed stack = %+v, want invalid", it)
	}
	if it := s.Item(10); it.Valid() {
		t.Errorf("Item past the depth = %+v, want invalid", it)
	}
}

func TestControlTransferClearsStack(t *testing.T) {
	s := New(2)
	s.Execute(load(bytecode.OpALoad1, 1))
	s.Execute(op(bytecode.OpDup))
	s.Execute(bytecode.Instruction{Op: bytecode.OpGoto, Target: 0, Slot: -1})
	if s.Depth() != 0 {
		t.Errorf("depth = %d after goto", s.Depth())
	}

	s.Execute(load(bytecode.OpALoad1, 1))
	s.Execute(op(bytecode.OpAReturn))
	if s.Depth() != 0 {
		t.Errorf("depth = %d after areturn", s.Depth())
	}
}

func TestConditionalBranchKeepsFallthrough(t *testing.T) {
	s := New(2)
	s.Execute(load(bytecode.OpALoad1, 1))
	s.Execute(op(bytecode.OpIConst0))
	s.Execute(bytecode.Instruction{Op: bytecode.OpIfEq, Target: 0, Slot: -1})
	if s.Depth() != 1 {
		t.Fatalf("depth = %d after ifeq, want the untested item kept", s.Depth())
	}
	if s.Item(0).Reg != 1 {
		t.Error("ifeq consumed the wrong item")
	}
}

func TestCategory2Shuffles(t *testing.T) {
	s := New(0)
	s.Execute(op(bytecode.OpLConst0))
	s.Execute(op(bytecode.OpDup2)) // form 2: duplicates the single long item
	if s.Depth() != 2 {
		t.Fatalf("depth = %d after dup2 on a long", s.Depth())
	}
	s.Execute(op(bytecode.OpPop2)) // form 2: removes one long item
	if s.Depth() != 1 {
		t.Errorf("depth = %d after pop2 on a long", s.Depth())
	}
}

func TestDupX1Order(t *testing.T) {
	s := New(2)
	s.Execute(load(bytecode.OpALoad0, 0))
	s.Execute(load(bytecode.OpALoad1, 1))
	s.Execute(op(bytecode.OpDupX1))
	// a b -> b a b
	if s.Depth() != 3 {
		t.Fatalf("depth = %d after dup_x1", s.Depth())
	}
	regs := []int{s.Item(0).Reg, s.Item(1).Reg, s.Item(2).Reg}
	if regs[0] != 1 || regs[1] != 0 || regs[2] != 1 {
		t.Errorf("stack regs top-down = %v, want [1 0 1]", regs)
	}
}
