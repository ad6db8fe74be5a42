// Package bytecode decodes JVM method bodies into instruction streams.
//
// The decoder works directly on the flat code array of a Code attribute:
// no control-flow graph is built. Instructions come out in ascending
// program-counter order with their constant-pool operands already
// resolved, which is the only view the analysis engine needs.
package bytecode

// Opcode is a JVM instruction opcode.
type Opcode uint8

// The full JVM opcode set. Values follow the class-file format.
const (
	OpNop        Opcode = 0x00
	OpAConstNull Opcode = 0x01
	OpIConstM1   Opcode = 0x02
	OpIConst0    Opcode = 0x03
	OpIConst1    Opcode = 0x04
	OpIConst2    Opcode = 0x05
	OpIConst3    Opcode = 0x06
	OpIConst4    Opcode = 0x07
	OpIConst5    Opcode = 0x08
	OpLConst0    Opcode = 0x09
	OpLConst1    Opcode = 0x0a
	OpFConst0    Opcode = 0x0b
	OpFConst1    Opcode = 0x0c
	OpFConst2    Opcode = 0x0d
	OpDConst0    Opcode = 0x0e
	OpDConst1    Opcode = 0x0f
	OpBIPush     Opcode = 0x10
	OpSIPush     Opcode = 0x11
	OpLdc        Opcode = 0x12
	OpLdcW       Opcode = 0x13
	OpLdc2W      Opcode = 0x14

	OpILoad  Opcode = 0x15
	OpLLoad  Opcode = 0x16
	OpFLoad  Opcode = 0x17
	OpDLoad  Opcode = 0x18
	OpALoad  Opcode = 0x19
	OpILoad0 Opcode = 0x1a
	OpILoad1 Opcode = 0x1b
	OpILoad2 Opcode = 0x1c
	OpILoad3 Opcode = 0x1d
	OpLLoad0 Opcode = 0x1e
	OpLLoad1 Opcode = 0x1f
	OpLLoad2 Opcode = 0x20
	OpLLoad3 Opcode = 0x21
	OpFLoad0 Opcode = 0x22
	OpFLoad1 Opcode = 0x23
	OpFLoad2 Opcode = 0x24
	OpFLoad3 Opcode = 0x25
	OpDLoad0 Opcode = 0x26
	OpDLoad1 Opcode = 0x27
	OpDLoad2 Opcode = 0x28
	OpDLoad3 Opcode = 0x29
	OpALoad0 Opcode = 0x2a
	OpALoad1 Opcode = 0x2b
	OpALoad2 Opcode = 0x2c
	OpALoad3 Opcode = 0x2d
	OpIALoad Opcode = 0x2e
	OpLALoad Opcode = 0x2f
	OpFALoad Opcode = 0x30
	OpDALoad Opcode = 0x31
	OpAALoad Opcode = 0x32
	OpBALoad Opcode = 0x33
	OpCALoad Opcode = 0x34
	OpSALoad Opcode = 0x35

	OpIStore  Opcode = 0x36
	OpLStore  Opcode = 0x37
	OpFStore  Opcode = 0x38
	OpDStore  Opcode = 0x39
	OpAStore  Opcode = 0x3a
	OpIStore0 Opcode = 0x3b
	OpIStore1 Opcode = 0x3c
	OpIStore2 Opcode = 0x3d
	OpIStore3 Opcode = 0x3e
	OpLStore0 Opcode = 0x3f
	OpLStore1 Opcode = 0x40
	OpLStore2 Opcode = 0x41
	OpLStore3 Opcode = 0x42
	OpFStore0 Opcode = 0x43
	OpFStore1 Opcode = 0x44
	OpFStore2 Opcode = 0x45
	OpFStore3 Opcode = 0x46
	OpDStore0 Opcode = 0x47
	OpDStore1 Opcode = 0x48
	OpDStore2 Opcode = 0x49
	OpDStore3 Opcode = 0x4a
	OpAStore0 Opcode = 0x4b
	OpAStore1 Opcode = 0x4c
	OpAStore2 Opcode = 0x4d
	OpAStore3 Opcode = 0x4e
	OpIAStore Opcode = 0x4f
	OpLAStore Opcode = 0x50
	OpFAStore Opcode = 0x51
	OpDAStore Opcode = 0x52
	OpAAStore Opcode = 0x53
	OpBAStore Opcode = 0x54
	OpCAStore Opcode = 0x55
	OpSAStore Opcode = 0x56

	OpPop    Opcode = 0x57
	OpPop2   Opcode = 0x58
	OpDup    Opcode = 0x59
	OpDupX1  Opcode = 0x5a
	OpDupX2  Opcode = 0x5b
	OpDup2   Opcode = 0x5c
	OpDup2X1 Opcode = 0x5d
	OpDup2X2 Opcode = 0x5e
	OpSwap   Opcode = 0x5f

	OpIAdd  Opcode = 0x60
	OpLAdd  Opcode = 0x61
	OpFAdd  Opcode = 0x62
	OpDAdd  Opcode = 0x63
	OpISub  Opcode = 0x64
	OpLSub  Opcode = 0x65
	OpFSub  Opcode = 0x66
	OpDSub  Opcode = 0x67
	OpIMul  Opcode = 0x68
	OpLMul  Opcode = 0x69
	OpFMul  Opcode = 0x6a
	OpDMul  Opcode = 0x6b
	OpIDiv  Opcode = 0x6c
	OpLDiv  Opcode = 0x6d
	OpFDiv  Opcode = 0x6e
	OpDDiv  Opcode = 0x6f
	OpIRem  Opcode = 0x70
	OpLRem  Opcode = 0x71
	OpFRem  Opcode = 0x72
	OpDRem  Opcode = 0x73
	OpINeg  Opcode = 0x74
	OpLNeg  Opcode = 0x75
	OpFNeg  Opcode = 0x76
	OpDNeg  Opcode = 0x77
	OpIShl  Opcode = 0x78
	OpLShl  Opcode = 0x79
	OpIShr  Opcode = 0x7a
	OpLShr  Opcode = 0x7b
	OpIUShr Opcode = 0x7c
	OpLUShr Opcode = 0x7d
	OpIAnd  Opcode = 0x7e
	OpLAnd  Opcode = 0x7f
	OpIOr   Opcode = 0x80
	OpLOr   Opcode = 0x81
	OpIXor  Opcode = 0x82
	OpLXor  Opcode = 0x83
	OpIInc  Opcode = 0x84

	OpI2L Opcode = 0x85
	OpI2F Opcode = 0x86
	OpI2D Opcode = 0x87
	OpL2I Opcode = 0x88
	OpL2F Opcode = 0x89
	OpL2D Opcode = 0x8a
	OpF2I Opcode = 0x8b
	OpF2L Opcode = 0x8c
	OpF2D Opcode = 0x8d
	OpD2I Opcode = 0x8e
	OpD2L Opcode = 0x8f
	OpD2F Opcode = 0x90
	OpI2B Opcode = 0x91
	OpI2C Opcode = 0x92
	OpI2S Opcode = 0x93

	OpLCmp  Opcode = 0x94
	OpFCmpL Opcode = 0x95
	OpFCmpG Opcode = 0x96
	OpDCmpL Opcode = 0x97
	OpDCmpG Opcode = 0x98

	OpIfEq     Opcode = 0x99
	OpIfNe     Opcode = 0x9a
	OpIfLt     Opcode = 0x9b
	OpIfGe     Opcode = 0x9c
	OpIfGt     Opcode = 0x9d
	OpIfLe     Opcode = 0x9e
	OpIfIcmpEq Opcode = 0x9f
	OpIfIcmpNe Opcode = 0xa0
	OpIfIcmpLt Opcode = 0xa1
	OpIfIcmpGe Opcode = 0xa2
	OpIfIcmpGt Opcode = 0xa3
	OpIfIcmpLe Opcode = 0xa4
	OpIfAcmpEq Opcode = 0xa5
	OpIfAcmpNe Opcode = 0xa6

	OpGoto         Opcode = 0xa7
	OpJsr          Opcode = 0xa8
	OpRet          Opcode = 0xa9
	OpTableSwitch  Opcode = 0xaa
	OpLookupSwitch Opcode = 0xab

	OpIReturn Opcode = 0xac
	OpLReturn Opcode = 0xad
	OpFReturn Opcode = 0xae
	OpDReturn Opcode = 0xaf
	OpAReturn Opcode = 0xb0
	OpReturn  Opcode = 0xb1

	OpGetStatic       Opcode = 0xb2
	OpPutStatic       Opcode = 0xb3
	OpGetField        Opcode = 0xb4
	OpPutField        Opcode = 0xb5
	OpInvokeVirtual   Opcode = 0xb6
	OpInvokeSpecial   Opcode = 0xb7
	OpInvokeStatic    Opcode = 0xb8
	OpInvokeInterface Opcode = 0xb9
	OpInvokeDynamic   Opcode = 0xba

	OpNew            Opcode = 0xbb
	OpNewArray       Opcode = 0xbc
	OpANewArray      Opcode = 0xbd
	OpArrayLength    Opcode = 0xbe
	OpAThrow         Opcode = 0xbf
	OpCheckCast      Opcode = 0xc0
	OpInstanceOf     Opcode = 0xc1
	OpMonitorEnter   Opcode = 0xc2
	OpMonitorExit    Opcode = 0xc3
	OpWide           Opcode = 0xc4
	OpMultiANewArray Opcode = 0xc5

	OpIfNull    Opcode = 0xc6
	OpIfNonNull Opcode = 0xc7
	OpGotoW     Opcode = 0xc8
	OpJsrW      Opcode = 0xc9
)

// mnemonics holds the conventional spelling for each opcode.
var mnemonics = [...]string{
	OpNop: "nop", OpAConstNull: "aconst_null",
	OpIConstM1: "iconst_m1", OpIConst0: "iconst_0", OpIConst1: "iconst_1",
	OpIConst2: "iconst_2", OpIConst3: "iconst_3", OpIConst4: "iconst_4", OpIConst5: "iconst_5",
	OpLConst0: "lconst_0", OpLConst1: "lconst_1",
	OpFConst0: "fconst_0", OpFConst1: "fconst_1", OpFConst2: "fconst_2",
	OpDConst0: "dconst_0", OpDConst1: "dconst_1",
	OpBIPush: "bipush", OpSIPush: "sipush",
	OpLdc: "ldc", OpLdcW: "ldc_w", OpLdc2W: "ldc2_w",
	OpILoad: "iload", OpLLoad: "lload", OpFLoad: "fload", OpDLoad: "dload", OpALoad: "aload",
	OpILoad0: "iload_0", OpILoad1: "iload_1", OpILoad2: "iload_2", OpILoad3: "iload_3",
	OpLLoad0: "lload_0", OpLLoad1: "lload_1", OpLLoad2: "lload_2", OpLLoad3: "lload_3",
	OpFLoad0: "fload_0", OpFLoad1: "fload_1", OpFLoad2: "fload_2", OpFLoad3: "fload_3",
	OpDLoad0: "dload_0", OpDLoad1: "dload_1", OpDLoad2: "dload_2", OpDLoad3: "dload_3",
	OpALoad0: "aload_0", OpALoad1: "aload_1", OpALoad2: "aload_2", OpALoad3: "aload_3",
	OpIALoad: "iaload", OpLALoad: "laload", OpFALoad: "faload", OpDALoad: "daload",
	OpAALoad: "aaload", OpBALoad: "baload", OpCALoad: "caload", OpSALoad: "saload",
	OpIStore: "istore", OpLStore: "lstore", OpFStore: "fstore", OpDStore: "dstore", OpAStore: "astore",
	OpIStore0: "istore_0", OpIStore1: "istore_1", OpIStore2: "istore_2", OpIStore3: "istore_3",
	OpLStore0: "lstore_0", OpLStore1: "lstore_1", OpLStore2: "lstore_2", OpLStore3: "lstore_3",
	OpFStore0: "fstore_0", OpFStore1: "fstore_1", OpFStore2: "fstore_2", OpFStore3: "fstore_3",
	OpDStore0: "dstore_0", OpDStore1: "dstore_1", OpDStore2: "dstore_2", OpDStore3: "dstore_3",
	OpAStore0: "astore_0", OpAStore1: "astore_1", OpAStore2: "astore_2", OpAStore3: "astore_3",
	OpIAStore: "iastore", OpLAStore: "lastore", OpFAStore: "fastore", OpDAStore: "dastore",
	OpAAStore: "aastore", OpBAStore: "bastore", OpCAStore: "castore", OpSAStore: "sastore",
	OpPop: "pop", OpPop2: "pop2",
	OpDup: "dup", OpDupX1: "dup_x1", OpDupX2: "dup_x2",
	OpDup2: "dup2", OpDup2X1: "dup2_x1", OpDup2X2: "dup2_x2", OpSwap: "swap",
	OpIAdd: "iadd", OpLAdd: "ladd", OpFAdd: "fadd", OpDAdd: "dadd",
	OpISub: "isub", OpLSub: "lsub", OpFSub: "fsub", OpDSub: "dsub",
	OpIMul: "imul", OpLMul: "lmul", OpFMul: "fmul", OpDMul: "dmul",
	OpIDiv: "idiv", OpLDiv: "ldiv", OpFDiv: "fdiv", OpDDiv: "ddiv",
	OpIRem: "irem", OpLRem: "lrem", OpFRem: "frem", OpDRem: "drem",
	OpINeg: "ineg", OpLNeg: "lneg", OpFNeg: "fneg", OpDNeg: "dneg",
	OpIShl: "ishl", OpLShl: "lshl", OpIShr: "ishr", OpLShr: "lshr",
	OpIUShr: "iushr", OpLUShr: "lushr",
	OpIAnd: "iand", OpLAnd: "land", OpIOr: "ior", OpLOr: "lor", OpIXor: "ixor", OpLXor: "lxor",
	OpIInc: "iinc",
	OpI2L: "i2l", OpI2F: "i2f", OpI2D: "i2d", OpL2I: "l2i", OpL2F: "l2f", OpL2D: "l2d",
	OpF2I: "f2i", OpF2L: "f2l", OpF2D: "f2d", OpD2I: "d2i", OpD2L: "d2l", OpD2F: "d2f",
	OpI2B: "i2b", OpI2C: "i2c", OpI2S: "i2s",
	OpLCmp: "lcmp", OpFCmpL: "fcmpl", OpFCmpG: "fcmpg", OpDCmpL: "dcmpl", OpDCmpG: "dcmpg",
	OpIfEq: "ifeq", OpIfNe: "ifne", OpIfLt: "iflt", OpIfGe: "ifge", OpIfGt: "ifgt", OpIfLe: "ifle",
	OpIfIcmpEq: "if_icmpeq", OpIfIcmpNe: "if_icmpne", OpIfIcmpLt: "if_icmplt",
	OpIfIcmpGe: "if_icmpge", OpIfIcmpGt: "if_icmpgt", OpIfIcmpLe: "if_icmple",
	OpIfAcmpEq: "if_acmpeq", OpIfAcmpNe: "if_acmpne",
	OpGoto: "goto", OpJsr: "jsr", OpRet: "ret",
	OpTableSwitch: "tableswitch", OpLookupSwitch: "lookupswitch",
	OpIReturn: "ireturn", OpLReturn: "lreturn", OpFReturn: "freturn",
	OpDReturn: "dreturn", OpAReturn: "areturn", OpReturn: "return",
	OpGetStatic: "getstatic", OpPutStatic: "putstatic",
	OpGetField: "getfield", OpPutField: "putfield",
	OpInvokeVirtual: "invokevirtual", OpInvokeSpecial: "invokespecial",
	OpInvokeStatic: "invokestatic", OpInvokeInterface: "invokeinterface",
	OpInvokeDynamic: "invokedynamic",
	OpNew: "new", OpNewArray: "newarray", OpANewArray: "anewarray",
	OpArrayLength: "arraylength", OpAThrow: "athrow",
	OpCheckCast: "checkcast", OpInstanceOf: "instanceof",
	OpMonitorEnter: "monitorenter", OpMonitorExit: "monitorexit",
	OpWide: "wide", OpMultiANewArray: "multianewarray",
	OpIfNull: "ifnull", OpIfNonNull: "ifnonnull",
	OpGotoW: "goto_w", OpJsrW: "jsr_w",
}

// String returns the standard mnemonic, or a hex form for undefined
// opcodes.
func (op Opcode) String() string {
	if int(op) < len(mnemonics) && mnemonics[op] != "" {
		return mnemonics[op]
	}
	return "0x" + hexDigits(uint8(op))
}

func hexDigits(b uint8) string {
	const hex = "0123456789abcdef"
	return string([]byte{hex[b>>4], hex[b&0x0f]})
}

// operand width sentinels for the width table.
const (
	widthVariable = -1 // tableswitch, lookupswitch, wide
	widthInvalid  = -2 // not a defined opcode
)

// operandWidths maps each opcode to the number of operand bytes that
// follow it. Variable-length instructions are marked widthVariable and
// handled explicitly by the decoder.
var operandWidths = func() [256]int8 {
	var w [256]int8
	for i := range w {
		w[i] = widthInvalid
	}
	// No operands.
	for op := OpNop; op <= OpDConst1; op++ {
		w[op] = 0
	}
	for op := OpILoad0; op <= OpSALoad; op++ {
		w[op] = 0
	}
	for op := OpIStore0; op <= OpLXor; op++ {
		w[op] = 0
	}
	for op := OpI2L; op <= OpDCmpG; op++ {
		w[op] = 0
	}
	for op := OpIReturn; op <= OpReturn; op++ {
		w[op] = 0
	}
	for _, op := range []Opcode{OpArrayLength, OpAThrow, OpMonitorEnter, OpMonitorExit} {
		w[op] = 0
	}
	// One operand byte.
	for _, op := range []Opcode{OpBIPush, OpLdc, OpILoad, OpLLoad, OpFLoad, OpDLoad, OpALoad,
		OpIStore, OpLStore, OpFStore, OpDStore, OpAStore, OpRet, OpNewArray} {
		w[op] = 1
	}
	// Two operand bytes.
	for op := OpIfEq; op <= OpJsr; op++ {
		w[op] = 2
	}
	for _, op := range []Opcode{OpSIPush, OpLdcW, OpLdc2W, OpIInc,
		OpGetStatic, OpPutStatic, OpGetField, OpPutField,
		OpInvokeVirtual, OpInvokeSpecial, OpInvokeStatic,
		OpNew, OpANewArray, OpCheckCast, OpInstanceOf,
		OpIfNull, OpIfNonNull} {
		w[op] = 2
	}
	// Wider fixed forms.
	w[OpMultiANewArray] = 3
	w[OpInvokeInterface] = 4
	w[OpInvokeDynamic] = 4
	w[OpGotoW] = 4
	w[OpJsrW] = 4
	// Variable-length forms.
	w[OpTableSwitch] = widthVariable
	w[OpLookupSwitch] = widthVariable
	w[OpWide] = widthVariable
	return w
}()

// IsIntLoad reports whether op loads an int local (iload and its
// compact forms).
func IsIntLoad(op Opcode) bool {
	return op == OpILoad || (op >= OpILoad0 && op <= OpILoad3)
}

// IsRefLoad reports whether op loads a reference local.
func IsRefLoad(op Opcode) bool {
	return op == OpALoad || (op >= OpALoad0 && op <= OpALoad3)
}

// IsIntStore reports whether op stores an int local.
func IsIntStore(op Opcode) bool {
	return op == OpIStore || (op >= OpIStore0 && op <= OpIStore3)
}

// IsRefStore reports whether op stores a reference local.
func IsRefStore(op Opcode) bool {
	return op == OpAStore || (op >= OpAStore0 && op <= OpAStore3)
}
