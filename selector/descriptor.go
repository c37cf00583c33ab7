package selector

import (
	"reflect"
	"strings"
)

// Descriptor attaches explicit generic type arguments to a publication so
// parameterized selectors can match it. Runtime types erase type
// arguments, so the publisher states them.
//
// A Descriptor is validated by the publish call, not at construction: the
// raw type must be non-nil, every argument must be non-nil (a published
// argument may not be a wildcard), and the published event's runtime type
// must be assignable to Raw.
type Descriptor struct {
	// Raw is the container's runtime type.
	Raw reflect.Type

	// Args are the concrete type arguments, in declaration order.
	Args []reflect.Type
}

// Describe builds a Descriptor for raw with the given arguments.
func Describe(raw reflect.Type, args ...reflect.Type) Descriptor {
	return Descriptor{Raw: raw, Args: append([]reflect.Type(nil), args...)}
}

// DescribeFor is shorthand for Describe(reflect.TypeFor[T](), args...).
func DescribeFor[T any](args ...reflect.Type) Descriptor {
	return Describe(reflect.TypeFor[T](), args...)
}

func (d Descriptor) String() string {
	var b strings.Builder
	if d.Raw == nil {
		b.WriteString("<nil>")
	} else {
		b.WriteString(d.Raw.String())
	}
	b.WriteByte('[')
	for i, a := range d.Args {
		if i > 0 {
			b.WriteString(", ")
		}
		if a == nil {
			b.WriteString("<nil>")
		} else {
			b.WriteString(a.String())
		}
	}
	b.WriteByte(']')
	return b.String()
}
