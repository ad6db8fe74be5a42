package classfile

import "github.com/mpyw/useaddall/internal/bytecode"

// ClassName implements bytecode.ConstResolver.
func (c *Class) ClassName(index uint16) (string, error) {
	return c.pool.className(index)
}

// FieldRef implements bytecode.ConstResolver.
func (c *Class) FieldRef(index uint16) (bytecode.FieldRef, error) {
	return c.pool.fieldRef(index)
}

// MethodRef implements bytecode.ConstResolver.
func (c *Class) MethodRef(index uint16) (bytecode.MethodRef, error) {
	return c.pool.methodRef(index)
}
