package bcasm

// Class access flags the builder needs.
const (
	accPublic    = 0x0001
	accSuper     = 0x0020
	accInterface = 0x0200
	accAbstract  = 0x0400

	// AccStatic marks a static method.
	AccStatic = 0x0008
)

// ClassBuilder assembles one class file.
type ClassBuilder struct {
	name       string
	super      string
	interfaces []string
	sourceFile string
	access     uint16
	pool       *poolBuilder
	methods    []*MethodAsm
}

// NewClass starts a public class extending java/lang/Object.
func NewClass(name string) *ClassBuilder {
	return &ClassBuilder{
		name:   name,
		super:  "java/lang/Object",
		access: accPublic | accSuper,
		pool:   newPoolBuilder(),
	}
}

// Super sets the superclass.
func (b *ClassBuilder) Super(name string) *ClassBuilder {
	b.super = name
	return b
}

// Implements appends declared interfaces.
func (b *ClassBuilder) Implements(names ...string) *ClassBuilder {
	b.interfaces = append(b.interfaces, names...)
	return b
}

// Interface marks the class as an interface.
func (b *ClassBuilder) Interface() *ClassBuilder {
	b.access = accPublic | accInterface | accAbstract
	return b
}

// SourceFile sets the SourceFile attribute.
func (b *ClassBuilder) SourceFile(name string) *ClassBuilder {
	b.sourceFile = name
	return b
}

// Method starts a method body. A method that never emits code is
// serialized without a Code attribute.
func (b *ClassBuilder) Method(access uint16, name, desc string) *MethodAsm {
	m := &MethodAsm{
		cls:       b,
		access:    access,
		name:      name,
		desc:      desc,
		maxStack:  8,
		maxLocals: 8,
		labels:    map[string]int{},
	}
	b.methods = append(b.methods, m)
	return m
}

// Build serializes the class file.
func (b *ClassBuilder) Build() []byte {
	cp := b.pool

	thisIdx := cp.Class(b.name)
	superIdx := cp.Class(b.super)
	ifaceIdxs := make([]uint16, 0, len(b.interfaces))
	for _, name := range b.interfaces {
		ifaceIdxs = append(ifaceIdxs, cp.Class(name))
	}

	type serMethod struct {
		access              uint16
		nameIdx, descIdx    uint16
		code                []byte
		maxStack, maxLocals int
		lines               [][2]int
	}
	var codeIdx, lineIdx uint16
	sms := make([]serMethod, 0, len(b.methods))
	for _, m := range b.methods {
		sm := serMethod{
			access:    m.access,
			nameIdx:   cp.Utf8(m.name),
			descIdx:   cp.Utf8(m.desc),
			code:      m.assemble(),
			maxStack:  m.maxStack,
			maxLocals: m.maxLocals,
			lines:     m.lines,
		}
		if len(sm.code) > 0 {
			codeIdx = cp.Utf8("Code")
		}
		if len(sm.lines) > 0 {
			lineIdx = cp.Utf8("LineNumberTable")
		}
		sms = append(sms, sm)
	}
	var srcIdx, srcNameIdx uint16
	if b.sourceFile != "" {
		srcIdx = cp.Utf8("SourceFile")
		srcNameIdx = cp.Utf8(b.sourceFile)
	}

	out := make([]byte, 0, 512)
	out = appendU32(out, 0xCAFEBABE)
	out = appendU16(out, 0)  // minor
	out = appendU16(out, 52) // major: Java 8
	out = cp.emit(out)
	out = appendU16(out, b.access)
	out = appendU16(out, thisIdx)
	out = appendU16(out, superIdx)
	out = appendU16(out, uint16(len(ifaceIdxs)))
	for _, idx := range ifaceIdxs {
		out = appendU16(out, idx)
	}
	out = appendU16(out, 0) // fields
	out = appendU16(out, uint16(len(sms)))
	for _, sm := range sms {
		out = appendU16(out, sm.access)
		out = appendU16(out, sm.nameIdx)
		out = appendU16(out, sm.descIdx)
		if len(sm.code) == 0 {
			out = appendU16(out, 0)
			continue
		}
		out = appendU16(out, 1) // Code only
		out = appendU16(out, codeIdx)

		var body []byte
		body = appendU16(body, uint16(sm.maxStack))
		body = appendU16(body, uint16(sm.maxLocals))
		body = appendU32(body, uint32(len(sm.code)))
		body = append(body, sm.code...)
		body = appendU16(body, 0) // exception table
		if len(sm.lines) == 0 {
			body = appendU16(body, 0)
		} else {
			body = appendU16(body, 1)
			body = appendU16(body, lineIdx)
			body = appendU32(body, uint32(2+4*len(sm.lines)))
			body = appendU16(body, uint16(len(sm.lines)))
			for _, ln := range sm.lines {
				body = appendU16(body, uint16(ln[0]))
				body = appendU16(body, uint16(ln[1]))
			}
		}
		out = appendU32(out, uint32(len(body)))
		out = append(out, body...)
	}
	if srcIdx != 0 {
		out = appendU16(out, 1)
		out = appendU16(out, srcIdx)
		out = appendU32(out, 2)
		out = appendU16(out, srcNameIdx)
	} else {
		out = appendU16(out, 0)
	}
	return out
}
