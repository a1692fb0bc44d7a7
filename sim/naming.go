package sim

import (
	"fmt"
	"strconv"
	"strings"
)

// NameMustBeValid panics if name is not a dot-separated path of CamelCase
// elements, such as "MMU.TopPort". An element may carry indices, as in
// "Accel[1]".
func NameMustBeValid(name string) {
	if err := checkName(name); err != nil {
		panic(fmt.Sprintf("name %q is not valid: %v", name, err))
	}
}

func checkName(name string) error {
	for _, elem := range strings.Split(name, ".") {
		base, rest, _ := strings.Cut(elem, "[")

		if base == "" {
			return fmt.Errorf("empty element")
		}

		if base[0] < 'A' || base[0] > 'Z' {
			return fmt.Errorf("%q does not start with a capital letter", base)
		}

		if strings.ContainsAny(base, "_-'\"]") {
			return fmt.Errorf("%q contains a separator", base)
		}

		if rest != "" {
			if err := checkIndices("[" + rest); err != nil {
				return fmt.Errorf("%q: %w", elem, err)
			}
		}
	}

	return nil
}

func checkIndices(s string) error {
	for s != "" {
		if s[0] != '[' {
			return fmt.Errorf("unexpected %q", s)
		}

		end := strings.IndexByte(s, ']')
		if end < 0 {
			return fmt.Errorf("unclosed bracket")
		}

		if _, err := strconv.Atoi(s[1:end]); err != nil {
			return fmt.Errorf("index %q is not an integer", s[1:end])
		}

		s = s[end+1:]
	}

	return nil
}

// BuildName joins a parent name and the name of one of its elements.
func BuildName(parent, elem string) string {
	if parent == "" {
		return elem
	}

	return parent + "." + elem
}
