package detect

// aliasTable remembers which root collection was last stored into each
// local slot and each instance field. Storing an invalid tag is not a
// delete: it marks the location as holding something untracked, which
// is exactly what a later load should see.
type aliasTable struct {
	locals map[int]Tag
	fields map[string]Tag
}

func newAliasTable() *aliasTable {
	return &aliasTable{
		locals: make(map[int]Tag),
		fields: make(map[string]Tag),
	}
}

func (t *aliasTable) recordLocalStore(slot int, tag Tag) {
	t.locals[slot] = tag
}

func (t *aliasTable) recordFieldStore(name string, tag Tag) {
	t.fields[name] = tag
}

func (t *aliasTable) resolveLocalLoad(slot int) Tag {
	return t.locals[slot]
}

func (t *aliasTable) resolveFieldLoad(name string) Tag {
	return t.fields[name]
}
