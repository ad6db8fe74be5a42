package classfile

import (
	"fmt"

	"github.com/mpyw/useaddall/internal/bytecode"
)

// Constant-pool tags from the class-file format.
const (
	tagUtf8               = 1
	tagInteger            = 3
	tagFloat              = 4
	tagLong               = 5
	tagDouble             = 6
	tagClass              = 7
	tagString             = 8
	tagFieldref           = 9
	tagMethodref          = 10
	tagInterfaceMethodref = 11
	tagNameAndType        = 12
	tagMethodHandle       = 15
	tagMethodType         = 16
	tagDynamic            = 17
	tagInvokeDynamic      = 18
	tagModule             = 19
	tagPackage            = 20
)

// cpEntry is one parsed constant-pool slot. Only the fields relevant to
// the entry's tag are populated; the second slot of a long or double
// constant keeps tag 0.
type cpEntry struct {
	tag  uint8
	ref1 uint16
	ref2 uint16
	str  string
}

// constantPool is indexed 1..count-1 as in the class file. Index 0 is a
// permanently invalid slot.
type constantPool []cpEntry

func parsePool(r *reader) constantPool {
	count := int(r.u16())
	if r.err != nil || count == 0 {
		r.fail()
		return nil
	}
	pool := make(constantPool, count)
	for i := 1; i < count; i++ {
		tag := r.u8()
		e := cpEntry{tag: tag}
		switch tag {
		case tagUtf8:
			n := int(r.u16())
			e.str = string(r.bytes(n))
		case tagInteger, tagFloat:
			r.skip(4)
		case tagLong, tagDouble:
			r.skip(8)
		case tagClass, tagString, tagMethodType, tagModule, tagPackage:
			e.ref1 = r.u16()
		case tagFieldref, tagMethodref, tagInterfaceMethodref, tagNameAndType, tagDynamic, tagInvokeDynamic:
			e.ref1 = r.u16()
			e.ref2 = r.u16()
		case tagMethodHandle:
			r.skip(1)
			e.ref1 = r.u16()
		default:
			if r.err == nil {
				r.err = fmt.Errorf("%w: constant tag %d at index %d", ErrMalformed, tag, i)
			}
			return nil
		}
		if r.err != nil {
			return nil
		}
		pool[i] = e
		// Longs and doubles take two slots.
		if tag == tagLong || tag == tagDouble {
			i++
		}
	}
	return pool
}

func (p constantPool) entry(i uint16, tag uint8) (cpEntry, error) {
	if int(i) == 0 || int(i) >= len(p) {
		return cpEntry{}, fmt.Errorf("%w: constant index %d out of range", ErrMalformed, i)
	}
	e := p[i]
	if e.tag != tag {
		return cpEntry{}, fmt.Errorf("%w: constant %d has tag %d, want %d", ErrMalformed, i, e.tag, tag)
	}
	return e, nil
}

func (p constantPool) utf8(i uint16) (string, error) {
	e, err := p.entry(i, tagUtf8)
	if err != nil {
		return "", err
	}
	return e.str, nil
}

func (p constantPool) className(i uint16) (string, error) {
	e, err := p.entry(i, tagClass)
	if err != nil {
		return "", err
	}
	return p.utf8(e.ref1)
}

func (p constantPool) nameAndType(i uint16) (name, desc string, err error) {
	e, err := p.entry(i, tagNameAndType)
	if err != nil {
		return "", "", err
	}
	if name, err = p.utf8(e.ref1); err != nil {
		return "", "", err
	}
	if desc, err = p.utf8(e.ref2); err != nil {
		return "", "", err
	}
	return name, desc, nil
}

func (p constantPool) fieldRef(i uint16) (bytecode.FieldRef, error) {
	e, err := p.entry(i, tagFieldref)
	if err != nil {
		return bytecode.FieldRef{}, err
	}
	owner, err := p.className(e.ref1)
	if err != nil {
		return bytecode.FieldRef{}, err
	}
	name, desc, err := p.nameAndType(e.ref2)
	if err != nil {
		return bytecode.FieldRef{}, err
	}
	return bytecode.FieldRef{Owner: owner, Name: name, Desc: desc}, nil
}

// methodRef accepts both Methodref and InterfaceMethodref entries:
// invoke instructions reference either depending on the owner kind.
func (p constantPool) methodRef(i uint16) (bytecode.MethodRef, error) {
	if int(i) == 0 || int(i) >= len(p) {
		return bytecode.MethodRef{}, fmt.Errorf("%w: constant index %d out of range", ErrMalformed, i)
	}
	e := p[i]
	if e.tag != tagMethodref && e.tag != tagInterfaceMethodref {
		return bytecode.MethodRef{}, fmt.Errorf("%w: constant %d has tag %d, want a method reference", ErrMalformed, i, e.tag)
	}
	owner, err := p.className(e.ref1)
	if err != nil {
		return bytecode.MethodRef{}, err
	}
	name, desc, err := p.nameAndType(e.ref2)
	if err != nil {
		return bytecode.MethodRef{}, err
	}
	return bytecode.MethodRef{Owner: owner, Name: name, Desc: desc}, nil
}
