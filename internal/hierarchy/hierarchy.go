// Package hierarchy answers subtype questions about JVM classes.
//
// Analysis needs one question answered: does this class implement that
// interface. The resolver combines three sources, in order:
//
//  1. classes registered from the files under analysis,
//  2. a built-in table of the collection-related JDK hierarchy,
//  3. class files loaded lazily from a user-supplied classpath.
//
// A class that none of the sources know yields a *MissingClassError,
// which callers surface once and then treat as a negative answer.
package hierarchy

import (
	"fmt"
	"strings"
	"sync"

	"github.com/mpyw/useaddall/internal/classfile"
)

// MissingClassError reports a class that could not be found on any
// source while walking a hierarchy.
type MissingClassError struct {
	Name string
	Err  error
}

func (e *MissingClassError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("hierarchy: class %s: %v", e.Name, e.Err)
	}
	return fmt.Sprintf("hierarchy: class %s not found on the search path", e.Name)
}

func (e *MissingClassError) Unwrap() error {
	return e.Err
}

type classInfo struct {
	super      string
	interfaces []string
	iface      bool
}

// Resolver resolves class hierarchies. It is safe for concurrent use.
type Resolver struct {
	mu      sync.RWMutex
	classes map[string]classInfo
	path    []classpathEntry
}

// New returns a resolver seeded with the built-in JDK table.
func New() *Resolver {
	classes := make(map[string]classInfo, len(builtin))
	for name, info := range builtin {
		classes[name] = info
	}
	return &Resolver{classes: classes}
}

// AddClasspath appends jar files and class directories to the lazy
// lookup path. Entries are only opened when a hierarchy walk needs a
// class no other source knows.
func (r *Resolver) AddClasspath(paths ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range paths {
		r.path = append(r.path, newClasspathEntry(p))
	}
}

// Register records hierarchy facts for a class, overriding earlier
// knowledge of the same name.
func (r *Resolver) Register(name, super string, interfaces []string, iface bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.classes[name] = classInfo{super: super, interfaces: interfaces, iface: iface}
}

// RegisterClass records hierarchy facts from a parsed class file.
func (r *Resolver) RegisterClass(c *classfile.Class) {
	const accInterface = 0x0200
	r.Register(c.Name, c.SuperName, c.Interfaces, c.Access&accInterface != 0)
}

// Implements reports whether class is iface or reaches it through any
// chain of superclasses and superinterfaces. Walking stops with a
// *MissingClassError as soon as an unknown class is needed.
func (r *Resolver) Implements(class, iface string) (bool, error) {
	seen := make(map[string]bool, 8)
	queue := []string{class}
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		if name == iface {
			return true, nil
		}
		info, err := r.info(name)
		if err != nil {
			return false, err
		}
		if info.super != "" {
			queue = append(queue, info.super)
		}
		queue = append(queue, info.interfaces...)
	}
	return false, nil
}

func (r *Resolver) info(name string) (classInfo, error) {
	// Array classes subtype Object and the marker interfaces only;
	// nothing collection-like, but they must not read as missing.
	if strings.HasPrefix(name, "[") {
		return classInfo{super: "java/lang/Object"}, nil
	}

	r.mu.RLock()
	info, ok := r.classes[name]
	path := r.path
	r.mu.RUnlock()
	if ok {
		return info, nil
	}

	for _, entry := range path {
		data, found, err := entry.load(name)
		if err != nil {
			return classInfo{}, &MissingClassError{Name: name, Err: err}
		}
		if !found {
			continue
		}
		cls, err := classfile.Parse(data)
		if err != nil {
			return classInfo{}, &MissingClassError{Name: name, Err: err}
		}
		r.RegisterClass(cls)
		r.mu.RLock()
		info = r.classes[name]
		r.mu.RUnlock()
		return info, nil
	}
	return classInfo{}, &MissingClassError{Name: name}
}
