package bcasm

import "encoding/binary"

// poolBuilder accumulates constant-pool entries with deduplication.
// Entries are serialized eagerly into raw, so emitting the final pool
// is a straight copy.
type poolBuilder struct {
	raw   []byte
	next  uint16
	utf8s map[string]uint16
	class map[string]uint16
	nats  map[[2]string]uint16
	frefs map[[3]string]uint16
	mrefs map[[4]string]uint16
}

func newPoolBuilder() *poolBuilder {
	return &poolBuilder{
		next:  1,
		utf8s: map[string]uint16{},
		class: map[string]uint16{},
		nats:  map[[2]string]uint16{},
		frefs: map[[3]string]uint16{},
		mrefs: map[[4]string]uint16{},
	}
}

func (p *poolBuilder) add(entry []byte) uint16 {
	idx := p.next
	p.next++
	p.raw = append(p.raw, entry...)
	return idx
}

func (p *poolBuilder) Utf8(s string) uint16 {
	if idx, ok := p.utf8s[s]; ok {
		return idx
	}
	entry := make([]byte, 3, 3+len(s))
	entry[0] = 1 // CONSTANT_Utf8
	binary.BigEndian.PutUint16(entry[1:], uint16(len(s)))
	entry = append(entry, s...)
	idx := p.add(entry)
	p.utf8s[s] = idx
	return idx
}

func (p *poolBuilder) Class(name string) uint16 {
	if idx, ok := p.class[name]; ok {
		return idx
	}
	nameIdx := p.Utf8(name)
	idx := p.add(refEntry(7, nameIdx)) // CONSTANT_Class
	p.class[name] = idx
	return idx
}

func (p *poolBuilder) NameAndType(name, desc string) uint16 {
	key := [2]string{name, desc}
	if idx, ok := p.nats[key]; ok {
		return idx
	}
	nameIdx := p.Utf8(name)
	descIdx := p.Utf8(desc)
	idx := p.add(refPairEntry(12, nameIdx, descIdx)) // CONSTANT_NameAndType
	p.nats[key] = idx
	return idx
}

func (p *poolBuilder) FieldRef(owner, name, desc string) uint16 {
	key := [3]string{owner, name, desc}
	if idx, ok := p.frefs[key]; ok {
		return idx
	}
	ownerIdx := p.Class(owner)
	natIdx := p.NameAndType(name, desc)
	idx := p.add(refPairEntry(9, ownerIdx, natIdx)) // CONSTANT_Fieldref
	p.frefs[key] = idx
	return idx
}

// MethodRef interns a Methodref, or an InterfaceMethodref when iface is
// set. The two share a namespace keyed on the tag so the same triple
// can exist in both flavors.
func (p *poolBuilder) MethodRef(owner, name, desc string, iface bool) uint16 {
	tag := byte(10) // CONSTANT_Methodref
	kind := "m"
	if iface {
		tag = 11 // CONSTANT_InterfaceMethodref
		kind = "i"
	}
	key := [4]string{kind, owner, name, desc}
	if idx, ok := p.mrefs[key]; ok {
		return idx
	}
	ownerIdx := p.Class(owner)
	natIdx := p.NameAndType(name, desc)
	idx := p.add(refPairEntry(tag, ownerIdx, natIdx))
	p.mrefs[key] = idx
	return idx
}

// emit appends the serialized pool, count word included.
func (p *poolBuilder) emit(out []byte) []byte {
	var count [2]byte
	binary.BigEndian.PutUint16(count[:], p.next)
	out = append(out, count[:]...)
	return append(out, p.raw...)
}

func refEntry(tag byte, ref uint16) []byte {
	e := make([]byte, 3)
	e[0] = tag
	binary.BigEndian.PutUint16(e[1:], ref)
	return e
}

func refPairEntry(tag byte, ref1, ref2 uint16) []byte {
	e := make([]byte, 5)
	e[0] = tag
	binary.BigEndian.PutUint16(e[1:], ref1)
	binary.BigEndian.PutUint16(e[3:], ref2)
	return e
}
