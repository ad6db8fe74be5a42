package detect

import "fmt"

type tagKind uint8

const (
	tagNone tagKind = iota
	tagSlot
	tagField
)

// Tag identifies the root collection a tracked value was drawn from:
// a local-variable slot or an instance field of the current receiver.
// The zero Tag means untracked. Tags are comparable and key the loop
// registry directly.
type Tag struct {
	kind tagKind
	slot int
	name string
}

// SlotTag roots a value in a local-variable slot.
func SlotTag(slot int) Tag {
	return Tag{kind: tagSlot, slot: slot}
}

// FieldTag roots a value in a field of the current instance.
func FieldTag(name string) Tag {
	return Tag{kind: tagField, name: name}
}

func (t Tag) Valid() bool {
	return t.kind != tagNone
}

func (t Tag) IsSlot() bool {
	return t.kind == tagSlot
}

func (t Tag) IsField() bool {
	return t.kind == tagField
}

func (t Tag) String() string {
	switch t.kind {
	case tagSlot:
		return fmt.Sprintf("slot:%d", t.slot)
	case tagField:
		return "field:" + t.name
	default:
		return "none"
	}
}
