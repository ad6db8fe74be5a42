package bytecode

import (
	"fmt"
	"strings"
)

// ArgSigs splits the parameter list of a method descriptor into
// individual type signatures, in declaration order.
func ArgSigs(desc string) ([]string, error) {
	if len(desc) < 2 || desc[0] != '(' {
		return nil, fmt.Errorf("bytecode: malformed method descriptor %q", desc)
	}
	var sigs []string
	i := 1
	for i < len(desc) && desc[i] != ')' {
		j, err := sigEnd(desc, i)
		if err != nil {
			return nil, err
		}
		sigs = append(sigs, desc[i:j])
		i = j
	}
	if i >= len(desc) || desc[i] != ')' {
		return nil, fmt.Errorf("bytecode: malformed method descriptor %q", desc)
	}
	return sigs, nil
}

// ReturnSig returns the return-type signature of a method descriptor,
// "V" for void.
func ReturnSig(desc string) (string, error) {
	k := strings.IndexByte(desc, ')')
	if k < 0 || k+1 >= len(desc) {
		return "", fmt.Errorf("bytecode: malformed method descriptor %q", desc)
	}
	if desc[k+1:] == "V" {
		return "V", nil
	}
	j, err := sigEnd(desc, k+1)
	if err != nil {
		return "", err
	}
	if j != len(desc) {
		return "", fmt.Errorf("bytecode: malformed method descriptor %q", desc)
	}
	return desc[k+1:], nil
}

// sigEnd returns the index just past the type signature starting at i.
func sigEnd(desc string, i int) (int, error) {
	j := i
	for j < len(desc) && desc[j] == '[' {
		j++
	}
	if j >= len(desc) {
		return 0, fmt.Errorf("bytecode: malformed type signature in %q", desc)
	}
	switch desc[j] {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z':
		return j + 1, nil
	case 'L':
		k := strings.IndexByte(desc[j:], ';')
		if k < 0 {
			return 0, fmt.Errorf("bytecode: malformed type signature in %q", desc)
		}
		return j + k + 1, nil
	default:
		return 0, fmt.Errorf("bytecode: malformed type signature in %q", desc)
	}
}

// IsCategory2 reports whether sig is a long or double, which occupy two
// local-variable slots and two operand-stack entries.
func IsCategory2(sig string) bool {
	return sig == "J" || sig == "D"
}

// ClassOf extracts the internal class name from an object signature:
// "Ljava/util/List;" becomes "java/util/List". Primitive and array
// signatures yield "".
func ClassOf(sig string) string {
	if len(sig) >= 2 && sig[0] == 'L' && sig[len(sig)-1] == ';' {
		return sig[1 : len(sig)-1]
	}
	return ""
}
