// Package classfile parses compiled JVM class files.
//
// The parser keeps only what bytecode analysis needs: the constant
// pool, the class hierarchy facts (name, superclass, interfaces) and
// per-method code with its line-number table. Everything else is
// skipped over structurally, so unknown attributes never break parsing.
package classfile

import (
	"errors"
	"fmt"
	"io"
)

const magic = 0xCAFEBABE

var (
	// ErrNotClassFile means the input does not start with the
	// 0xCAFEBABE magic.
	ErrNotClassFile = errors.New("classfile: missing class-file magic")
	// ErrMalformed means the file has the magic but its structure is
	// broken.
	ErrMalformed = errors.New("classfile: malformed class file")
)

// Method access flags used by the analysis.
const (
	AccStatic   = 0x0008
	AccNative   = 0x0100
	AccAbstract = 0x0400
)

// Class is a parsed class file. It implements bytecode.ConstResolver,
// so it can be passed straight to the instruction decoder.
type Class struct {
	Name       string // internal form, "java/util/ArrayList"
	SuperName  string // "" only for java/lang/Object
	Interfaces []string
	Access     uint16
	Major      uint16
	Minor      uint16
	SourceFile string
	Methods    []Method

	pool constantPool
}

// Method is one method of a parsed class. Code is nil for abstract and
// native methods.
type Method struct {
	Name   string
	Desc   string
	Access uint16

	MaxStack  int
	MaxLocals int
	Code      []byte

	lines []lineEntry
}

type lineEntry struct {
	startPC uint16
	line    uint16
}

// IsStatic reports whether the method has no receiver.
func (m *Method) IsStatic() bool {
	return m.Access&AccStatic != 0
}

// LineAt returns the source line covering pc, or 0 when the class was
// compiled without a line-number table.
func (m *Method) LineAt(pc int) int {
	line, best := 0, -1
	for _, e := range m.lines {
		if int(e.startPC) <= pc && int(e.startPC) > best {
			best = int(e.startPC)
			line = int(e.line)
		}
	}
	return line
}

// Parse reads a class file from data.
func Parse(data []byte) (*Class, error) {
	r := &reader{b: data}
	if m := r.u32(); r.err != nil || m != magic {
		return nil, ErrNotClassFile
	}

	c := &Class{}
	c.Minor = r.u16()
	c.Major = r.u16()

	c.pool = parsePool(r)
	if r.err != nil {
		return nil, malformed(r.err)
	}

	c.Access = r.u16()
	thisIdx := r.u16()
	superIdx := r.u16()

	var err error
	if c.Name, err = c.pool.className(thisIdx); err != nil {
		return nil, err
	}
	if superIdx != 0 {
		if c.SuperName, err = c.pool.className(superIdx); err != nil {
			return nil, err
		}
	}

	ifaceCount := int(r.u16())
	for i := 0; i < ifaceCount && r.err == nil; i++ {
		name, err := c.pool.className(r.u16())
		if err != nil {
			return nil, err
		}
		c.Interfaces = append(c.Interfaces, name)
	}

	// Fields carry nothing the analysis needs; skip them structurally.
	fieldCount := int(r.u16())
	for i := 0; i < fieldCount && r.err == nil; i++ {
		r.skip(6) // access, name, descriptor
		skipAttributes(r)
	}

	methodCount := int(r.u16())
	for i := 0; i < methodCount && r.err == nil; i++ {
		m, err := parseMethod(r, c.pool)
		if err != nil {
			return nil, err
		}
		c.Methods = append(c.Methods, m)
	}

	attrCount := int(r.u16())
	for i := 0; i < attrCount && r.err == nil; i++ {
		name, body := readAttribute(r, c.pool)
		if name == "SourceFile" && len(body) >= 2 {
			sub := &reader{b: body}
			if sf, err := c.pool.utf8(sub.u16()); err == nil {
				c.SourceFile = sf
			}
		}
	}

	if r.err != nil {
		return nil, malformed(r.err)
	}
	return c, nil
}

func parseMethod(r *reader, pool constantPool) (Method, error) {
	m := Method{Access: r.u16()}
	nameIdx := r.u16()
	descIdx := r.u16()
	if r.err != nil {
		return m, malformed(r.err)
	}

	var err error
	if m.Name, err = pool.utf8(nameIdx); err != nil {
		return m, err
	}
	if m.Desc, err = pool.utf8(descIdx); err != nil {
		return m, err
	}

	attrCount := int(r.u16())
	for i := 0; i < attrCount && r.err == nil; i++ {
		name, body := readAttribute(r, pool)
		if name != "Code" {
			continue
		}
		if err := parseCode(&m, body, pool); err != nil {
			return m, err
		}
	}
	if r.err != nil {
		return m, malformed(r.err)
	}
	return m, nil
}

func parseCode(m *Method, body []byte, pool constantPool) error {
	r := &reader{b: body}
	m.MaxStack = int(r.u16())
	m.MaxLocals = int(r.u16())
	codeLen := int(r.u32())
	m.Code = r.bytes(codeLen)

	excCount := int(r.u16())
	r.skip(8 * excCount)

	attrCount := int(r.u16())
	for i := 0; i < attrCount && r.err == nil; i++ {
		name, attr := readAttribute(r, pool)
		if name != "LineNumberTable" {
			continue
		}
		sub := &reader{b: attr}
		n := int(sub.u16())
		for j := 0; j < n && sub.err == nil; j++ {
			m.lines = append(m.lines, lineEntry{startPC: sub.u16(), line: sub.u16()})
		}
	}
	if r.err != nil {
		return malformed(r.err)
	}
	return nil
}

// readAttribute consumes one attribute and returns its resolved name
// and raw body. An unresolvable name comes back empty, which callers
// treat as an attribute to ignore.
func readAttribute(r *reader, pool constantPool) (string, []byte) {
	nameIdx := r.u16()
	length := int(r.u32())
	body := r.bytes(length)
	if r.err != nil {
		return "", nil
	}
	name, err := pool.utf8(nameIdx)
	if err != nil {
		return "", nil
	}
	return name, body
}

func skipAttributes(r *reader) {
	count := int(r.u16())
	for i := 0; i < count && r.err == nil; i++ {
		r.skip(2)
		r.skip(int(r.u32()))
	}
}

func malformed(err error) error {
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: unexpected end of file", ErrMalformed)
	}
	return err
}
