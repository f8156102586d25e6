// Package mathx holds small generic helpers for register and geometry code.
package mathx

import "golang.org/x/exp/constraints"

// Between reports whether v lies in the closed range spanned by a and b, in
// either order.
func Between[T constraints.Ordered](v, a, b T) bool {
	if b < a {
		a, b = b, a
	}
	return a <= v && v <= b
}

func Min[T constraints.Ordered](a, b T) T {
	if b < a {
		return b
	}
	return a
}

func Max[T constraints.Ordered](a, b T) T {
	if b > a {
		return b
	}
	return a
}
