package commit

import (
	"slices"
	"unicode/utf16"
)

// Value is a sealed interface over the JSON value kinds a payload may hold.
type Value interface {
	value()
}

// Null is JSON null.
type Null struct{}

func (Null) value() {}

// String is a JSON string. Strings are NFC normalised when serialised.
type String string

func (String) value() {}

// Int is an integral JSON number that fits in int64.
type Int int64

func (Int) value() {}

// Float is a non-integral (or out of int64 range) JSON number.
type Float float64

func (Float) value() {}

// Bool is a JSON boolean.
type Bool bool

func (Bool) value() {}

// Array is an ordered list of values.
type Array []Value

func (Array) value() {}

// Object maps member names to values. Use SortedKeys for iteration.
type Object map[string]Value

func (Object) value() {}

// SortedKeys returns keys in RFC 8785 order (UTF-16 code units).
// Go's native string order compares UTF-8 bytes and differs for
// characters outside the BMP.
func (obj Object) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	n := min(len(a16), len(b16))
	for i := 0; i < n; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}

	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	}
	return 0
}
