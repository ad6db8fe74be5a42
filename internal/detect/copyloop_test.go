package detect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpyw/useaddall/internal/bcasm"
	"github.com/mpyw/useaddall/internal/bytecode"
	"github.com/mpyw/useaddall/internal/classfile"
	"github.com/mpyw/useaddall/internal/engine"
	"github.com/mpyw/useaddall/internal/hierarchy"
	"github.com/mpyw/useaddall/internal/report"
)

const (
	listClass = "java/util/List"
	iterClass = "java/util/Iterator"

	sigIterator = "()Ljava/util/Iterator;"
	sigHasNext  = "()Z"
	sigNext     = "()Ljava/lang/Object;"
	sigCopy     = "(Ljava/util/List;Ljava/util/List;)V"
)

func analyze(t *testing.T, det *CopyLoop, data []byte) report.Summary {
	t.Helper()
	cls, err := classfile.Parse(data)
	require.NoError(t, err)
	hier := hierarchy.New()
	hier.RegisterClass(cls)
	col := report.NewCollector()
	engine.New(nil, hier, col, det).AnalyzeClass(cls)
	return col.Summary()
}

// emitIteratorCopy writes the canonical copy loop into m, slots laid out
// as (this, src, dst, it), and returns the pc of the add.
func emitIteratorCopy(m *bcasm.MethodAsm) int {
	m.ALoad(1).
		InvokeInterface(listClass, "iterator", sigIterator).
		AStore(3).
		Label("head").
		ALoad(3).
		InvokeInterface(iterClass, "hasNext", sigHasNext).
		Branch(bytecode.OpIfEq, "exit").
		ALoad(2).
		ALoad(3).
		InvokeInterface(iterClass, "next", sigNext)
	addPC := m.PC()
	m.InvokeInterface(listClass, "add", sigAdd).
		Op(bytecode.OpPop).
		Goto("head").
		Label("exit").
		Op(bytecode.OpReturn)
	return addPC
}

func TestIteratorCopyLoop(t *testing.T) {
	b := bcasm.NewClass("com/example/Sync").SourceFile("Sync.java")
	m := b.Method(0, "copy", sigCopy)
	m.Line(12)
	addPC := emitIteratorCopy(m)

	s := analyze(t, New(), b.Build())
	require.Len(t, s.Diagnostics, 1)
	d := s.Diagnostics[0]
	assert.Equal(t, Name, d.Detector)
	assert.Equal(t, "com/example/Sync", d.Class)
	assert.Equal(t, "copy", d.Method)
	assert.Equal(t, sigCopy, d.Descriptor)
	assert.Equal(t, addPC, d.PC)
	assert.Equal(t, report.SeverityNormal, d.Severity)
	assert.Equal(t, copyLoopMessage, d.Message)
	assert.Equal(t, "Sync.java:12", d.Position())
	assert.Empty(t, s.MissingClasses)
}

func TestSeverityOverride(t *testing.T) {
	b := bcasm.NewClass("com/example/Sync")
	emitIteratorCopy(b.Method(0, "copy", sigCopy))

	det := New()
	det.Severity = report.SeverityHigh
	s := analyze(t, det, b.Build())
	require.Len(t, s.Diagnostics, 1)
	assert.Equal(t, report.SeverityHigh, s.Diagnostics[0].Severity)
}

func TestStaticMethodLoop(t *testing.T) {
	b := bcasm.NewClass("com/example/Sync")
	m := b.Method(bcasm.AccStatic, "copyAll", sigCopy)
	// Static shifts the slots down: src=0, dst=1, it=2.
	m.ALoad(0).
		InvokeInterface(listClass, "iterator", sigIterator).
		AStore(2).
		Label("head").
		ALoad(2).
		InvokeInterface(iterClass, "hasNext", sigHasNext).
		Branch(bytecode.OpIfEq, "exit").
		ALoad(1).
		ALoad(2).
		InvokeInterface(iterClass, "next", sigNext)
	addPC := m.PC()
	m.InvokeInterface(listClass, "add", sigAdd).
		Op(bytecode.OpPop).
		Goto("head").
		Label("exit").
		Op(bytecode.OpReturn)

	s := analyze(t, New(), b.Build())
	require.Len(t, s.Diagnostics, 1)
	assert.Equal(t, addPC, s.Diagnostics[0].PC)
	assert.Equal(t, "copyAll", s.Diagnostics[0].Method)
}

func TestTwoMethodsBothReported(t *testing.T) {
	b := bcasm.NewClass("com/example/Sync")
	firstAdd := emitIteratorCopy(b.Method(0, "first", sigCopy))
	secondAdd := emitIteratorCopy(b.Method(0, "second", sigCopy))

	s := analyze(t, New(), b.Build())
	require.Len(t, s.Diagnostics, 2)
	assert.Equal(t, "first", s.Diagnostics[0].Method)
	assert.Equal(t, firstAdd, s.Diagnostics[0].PC)
	assert.Equal(t, "second", s.Diagnostics[1].Method)
	assert.Equal(t, secondAdd, s.Diagnostics[1].PC)
}

// The condition comes from hasNext, the copied value from get: both trace
// back to the same source list, so the loop still counts as a copy.
func TestIndexedGetCopyLoop(t *testing.T) {
	b := bcasm.NewClass("com/example/Sync")
	m := b.Method(0, "copyIndexed", sigCopy)
	m.ALoad(1).
		InvokeInterface(listClass, "iterator", sigIterator).
		AStore(3).
		IConst(0).
		IStore(4).
		Label("head").
		ALoad(3).
		InvokeInterface(iterClass, "hasNext", sigHasNext).
		Branch(bytecode.OpIfEq, "exit").
		ALoad(2).
		ALoad(1).
		ILoad(4).
		IInc(4, 1).
		InvokeInterface(listClass, "get", sigGet)
	addPC := m.PC()
	m.InvokeInterface(listClass, "add", sigAdd).
		Op(bytecode.OpPop).
		Goto("head").
		Label("exit").
		Op(bytecode.OpReturn)

	s := analyze(t, New(), b.Build())
	require.Len(t, s.Diagnostics, 1)
	assert.Equal(t, addPC, s.Diagnostics[0].PC)
}

// keySet() on a local map mints nothing; the tag appears once iterator()
// runs on the key set stored in a local slot.
func TestMapKeySetCopyLoop(t *testing.T) {
	b := bcasm.NewClass("com/example/Sync")
	m := b.Method(0, "copyKeys", "(Ljava/util/Map;Ljava/util/List;)V")
	m.ALoad(1).
		InvokeInterface("java/util/Map", "keySet", "()Ljava/util/Set;").
		AStore(3).
		ALoad(3).
		InvokeInterface("java/util/Set", "iterator", sigIterator).
		AStore(4).
		Label("head").
		ALoad(4).
		InvokeInterface(iterClass, "hasNext", sigHasNext).
		Branch(bytecode.OpIfEq, "exit").
		ALoad(2).
		ALoad(4).
		InvokeInterface(iterClass, "next", sigNext)
	addPC := m.PC()
	m.InvokeInterface(listClass, "add", sigAdd).
		Op(bytecode.OpPop).
		Goto("head").
		Label("exit").
		Op(bytecode.OpReturn)

	s := analyze(t, New(), b.Build())
	require.Len(t, s.Diagnostics, 1)
	assert.Equal(t, addPC, s.Diagnostics[0].PC)
}

func TestFieldSourceAndDestination(t *testing.T) {
	const owner = "com/example/Copier"
	b := bcasm.NewClass(owner)
	m := b.Method(0, "copy", "()V")
	m.ALoad(0).
		GetField(owner, "src", "Ljava/util/List;").
		InvokeInterface(listClass, "iterator", sigIterator).
		AStore(1).
		Label("head").
		ALoad(1).
		InvokeInterface(iterClass, "hasNext", sigHasNext).
		Branch(bytecode.OpIfEq, "exit").
		ALoad(0).
		GetField(owner, "dst", "Ljava/util/List;").
		ALoad(1).
		InvokeInterface(iterClass, "next", sigNext)
	addPC := m.PC()
	m.InvokeInterface(listClass, "add", sigAdd).
		Op(bytecode.OpPop).
		Goto("head").
		Label("exit").
		Op(bytecode.OpReturn)

	s := analyze(t, New(), b.Build())
	require.Len(t, s.Diagnostics, 1)
	assert.Equal(t, addPC, s.Diagnostics[0].PC)
}

// An iterator parked in a field keeps its origin: putfield records the
// tag under the field name and getfield restores it.
func TestFieldStoredIterator(t *testing.T) {
	const owner = "com/example/Copier"
	b := bcasm.NewClass(owner)
	m := b.Method(0, "copy", sigCopy)
	m.ALoad(0).
		ALoad(1).
		InvokeInterface(listClass, "iterator", sigIterator).
		PutField(owner, "it", "Ljava/util/Iterator;").
		Label("head").
		ALoad(0).
		GetField(owner, "it", "Ljava/util/Iterator;").
		InvokeInterface(iterClass, "hasNext", sigHasNext).
		Branch(bytecode.OpIfEq, "exit").
		ALoad(2).
		ALoad(0).
		GetField(owner, "it", "Ljava/util/Iterator;").
		InvokeInterface(iterClass, "next", sigNext)
	addPC := m.PC()
	m.InvokeInterface(listClass, "add", sigAdd).
		Op(bytecode.OpPop).
		Goto("head").
		Label("exit").
		Op(bytecode.OpReturn)

	s := analyze(t, New(), b.Build())
	require.Len(t, s.Diagnostics, 1)
	assert.Equal(t, addPC, s.Diagnostics[0].PC)
}

func TestCopyThroughCheckcast(t *testing.T) {
	b := bcasm.NewClass("com/example/Sync")
	m := b.Method(0, "copy", sigCopy)
	m.ALoad(1).
		InvokeInterface(listClass, "iterator", sigIterator).
		AStore(3).
		Label("head").
		ALoad(3).
		InvokeInterface(iterClass, "hasNext", sigHasNext).
		Branch(bytecode.OpIfEq, "exit").
		ALoad(2).
		ALoad(3).
		InvokeInterface(iterClass, "next", sigNext).
		CheckCast("java/lang/String")
	addPC := m.PC()
	m.InvokeInterface(listClass, "add", sigAdd).
		Op(bytecode.OpPop).
		Goto("head").
		Label("exit").
		Op(bytecode.OpReturn)

	s := analyze(t, New(), b.Build())
	require.Len(t, s.Diagnostics, 1)
	assert.Equal(t, addPC, s.Diagnostics[0].PC)
}

// ===== Loops that must stay silent =====

func TestBranchInsideLoopDisqualifies(t *testing.T) {
	b := bcasm.NewClass("com/example/Sync")
	m := b.Method(0, "copy", sigCopy)
	m.ALoad(1).
		InvokeInterface(listClass, "iterator", sigIterator).
		AStore(3).
		Label("head").
		ALoad(3).
		InvokeInterface(iterClass, "hasNext", sigHasNext).
		Branch(bytecode.OpIfEq, "exit").
		IConst(0).
		Branch(bytecode.OpIfNe, "cont").
		Label("cont").
		ALoad(2).
		ALoad(3).
		InvokeInterface(iterClass, "next", sigNext).
		InvokeInterface(listClass, "add", sigAdd).
		Op(bytecode.OpPop).
		Goto("head").
		Label("exit").
		Op(bytecode.OpReturn)

	s := analyze(t, New(), b.Build())
	assert.Empty(t, s.Diagnostics)
}

// Keeping the add's boolean result means the loop is not a plain copy.
func TestResultKeptNoReport(t *testing.T) {
	b := bcasm.NewClass("com/example/Sync")
	m := b.Method(0, "copy", sigCopy)
	m.ALoad(1).
		InvokeInterface(listClass, "iterator", sigIterator).
		AStore(3).
		Label("head").
		ALoad(3).
		InvokeInterface(iterClass, "hasNext", sigHasNext).
		Branch(bytecode.OpIfEq, "exit").
		ALoad(2).
		ALoad(3).
		InvokeInterface(iterClass, "next", sigNext).
		InvokeInterface(listClass, "add", sigAdd).
		IStore(4).
		Goto("head").
		Label("exit").
		Op(bytecode.OpReturn)

	s := analyze(t, New(), b.Build())
	assert.Empty(t, s.Diagnostics)
}

// Any instruction between the add's pop and the back edge pushes the add
// beyond maxAddLag, so the loop does more than copy and is dropped.
func TestWorkAfterAddDropsLoop(t *testing.T) {
	b := bcasm.NewClass("com/example/Sync")
	m := b.Method(0, "copy", sigCopy)
	m.ALoad(1).
		InvokeInterface(listClass, "iterator", sigIterator).
		AStore(3).
		Label("head").
		ALoad(3).
		InvokeInterface(iterClass, "hasNext", sigHasNext).
		Branch(bytecode.OpIfEq, "exit").
		ALoad(2).
		ALoad(3).
		InvokeInterface(iterClass, "next", sigNext).
		InvokeInterface(listClass, "add", sigAdd).
		Op(bytecode.OpPop).
		IInc(4, 1).
		Goto("head").
		Label("exit").
		Op(bytecode.OpReturn)

	s := analyze(t, New(), b.Build())
	assert.Empty(t, s.Diagnostics)
}

func TestNonCollectionReceiverNoReport(t *testing.T) {
	b := bcasm.NewClass("com/example/Sync")
	m := b.Method(0, "copy", "(Ljava/util/List;Ljava/lang/Object;)V")
	emitIteratorCopy(m)

	s := analyze(t, New(), b.Build())
	assert.Empty(t, s.Diagnostics)
	assert.Empty(t, s.MissingClasses)
}

func TestUnknownReceiverTypeRecordsMissingClass(t *testing.T) {
	b := bcasm.NewClass("com/example/Sync")
	m := b.Method(0, "copy", "(Ljava/util/List;Lcom/acme/Bag;)V")
	emitIteratorCopy(m)

	s := analyze(t, New(), b.Build())
	assert.Empty(t, s.Diagnostics)
	assert.Equal(t, []string{"com/acme/Bag"}, s.MissingClasses)
}

func TestUntaggedConditionNoLoop(t *testing.T) {
	b := bcasm.NewClass("com/example/Sync")
	m := b.Method(0, "copy", sigCopy)
	m.ALoad(1).
		InvokeInterface(listClass, "iterator", sigIterator).
		AStore(3).
		Label("head").
		IConst(0).
		Branch(bytecode.OpIfEq, "exit").
		ALoad(2).
		ALoad(3).
		InvokeInterface(iterClass, "next", sigNext).
		InvokeInterface(listClass, "add", sigAdd).
		Op(bytecode.OpPop).
		Goto("head").
		Label("exit").
		Op(bytecode.OpReturn)

	s := analyze(t, New(), b.Build())
	assert.Empty(t, s.Diagnostics)
}

// A branch shaped like a loop head whose condition has no tracked origin
// does not just fail to register: it drops any loop it sits inside.
func TestShapedUntaggedBranchDropsEnclosingLoop(t *testing.T) {
	b := bcasm.NewClass("com/example/Sync")
	m := b.Method(0, "copy", sigCopy)
	m.ALoad(1).
		InvokeInterface(listClass, "iterator", sigIterator).
		AStore(3).
		Label("head").
		ALoad(3).
		InvokeInterface(iterClass, "hasNext", sigHasNext).
		Branch(bytecode.OpIfEq, "exit").
		IConst(0).
		Branch(bytecode.OpIfEq, "far").
		ALoad(2).
		ALoad(3).
		InvokeInterface(iterClass, "next", sigNext).
		InvokeInterface(listClass, "add", sigAdd).
		Op(bytecode.OpPop).
		Goto("head").
		Label("exit").
		Op(bytecode.OpReturn).
		Goto("head").
		Label("far").
		Op(bytecode.OpReturn)

	s := analyze(t, New(), b.Build())
	assert.Empty(t, s.Diagnostics)
}

func TestVirtualAddIgnored(t *testing.T) {
	b := bcasm.NewClass("com/example/Sync")
	m := b.Method(0, "copy", sigCopy)
	m.ALoad(1).
		InvokeInterface(listClass, "iterator", sigIterator).
		AStore(3).
		Label("head").
		ALoad(3).
		InvokeInterface(iterClass, "hasNext", sigHasNext).
		Branch(bytecode.OpIfEq, "exit").
		ALoad(2).
		ALoad(3).
		InvokeInterface(iterClass, "next", sigNext).
		InvokeVirtual("java/util/ArrayList", "add", sigAdd).
		Op(bytecode.OpPop).
		Goto("head").
		Label("exit").
		Op(bytecode.OpReturn)

	s := analyze(t, New(), b.Build())
	assert.Empty(t, s.Diagnostics)
}

// A second append separates the first from the back edge, so the loop
// no longer reads as a bare copy.
func TestDoubleAddNoReport(t *testing.T) {
	b := bcasm.NewClass("com/example/Sync")
	m := b.Method(0, "copy", sigCopy)
	m.ALoad(1).
		InvokeInterface(listClass, "iterator", sigIterator).
		AStore(3).
		Label("head").
		ALoad(3).
		InvokeInterface(iterClass, "hasNext", sigHasNext).
		Branch(bytecode.OpIfEq, "exit").
		ALoad(2).
		ALoad(3).
		InvokeInterface(iterClass, "next", sigNext).
		InvokeInterface(listClass, "add", sigAdd).
		Op(bytecode.OpPop).
		ALoad(2).
		ALoad(3).
		InvokeInterface(iterClass, "next", sigNext).
		InvokeInterface(listClass, "add", sigAdd).
		Op(bytecode.OpPop).
		Goto("head").
		Label("exit").
		Op(bytecode.OpReturn)

	s := analyze(t, New(), b.Build())
	assert.Empty(t, s.Diagnostics)
}

// One tracked loop per identity: a nested loop over the same source
// replaces the outer entry, so only the inner copy reports.
func TestNestedSameSourceKeepsInnerLoop(t *testing.T) {
	b := bcasm.NewClass("com/example/Sync")
	m := b.Method(0, "copy", sigCopy)
	m.ALoad(1).
		InvokeInterface(listClass, "iterator", sigIterator).
		AStore(3).
		Label("outerHead").
		ALoad(3).
		InvokeInterface(iterClass, "hasNext", sigHasNext).
		Branch(bytecode.OpIfEq, "outerExit").
		Label("innerHead").
		ALoad(3).
		InvokeInterface(iterClass, "hasNext", sigHasNext).
		Branch(bytecode.OpIfEq, "innerExit").
		ALoad(2).
		ALoad(3).
		InvokeInterface(iterClass, "next", sigNext)
	innerAdd := m.PC()
	m.InvokeInterface(listClass, "add", sigAdd).
		Op(bytecode.OpPop).
		Goto("innerHead").
		Label("innerExit").
		ALoad(2).
		ALoad(3).
		InvokeInterface(iterClass, "next", sigNext).
		InvokeInterface(listClass, "add", sigAdd).
		Op(bytecode.OpPop).
		Goto("outerHead").
		Label("outerExit").
		Op(bytecode.OpReturn)

	s := analyze(t, New(), b.Build())
	require.Len(t, s.Diagnostics, 1)
	assert.Equal(t, innerAdd, s.Diagnostics[0].PC)
}

func TestRepeatedAnalysisIdempotent(t *testing.T) {
	b := bcasm.NewClass("com/example/Sync")
	emitIteratorCopy(b.Method(0, "copy", sigCopy))
	data := b.Build()

	det := New()
	s1 := analyze(t, det, data)
	s2 := analyze(t, det, data)
	require.Len(t, s1.Diagnostics, 1)
	assert.Equal(t, s1, s2)
}

func TestLoopInfoAddStates(t *testing.T) {
	l := &loopInfo{start: 10, end: 40}
	assert.True(t, l.isInLoop(10))
	assert.True(t, l.isInLoop(40))
	assert.False(t, l.isInLoop(9))
	assert.False(t, l.isInLoop(41))

	l.foundAdd(20)
	assert.Equal(t, 20, l.addPC)
	l.foundAdd(26)
	assert.Equal(t, -1, l.addPC)
	l.foundAdd(30)
	assert.Equal(t, -1, l.addPC)
}
