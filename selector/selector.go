// Package selector defines the matching rules that route publications to
// subscribers: exact runtime type, assignable type (interface
// satisfaction), parameterized type shape, exact topic name, and
// topic-name pattern.
//
// Selectors are immutable values. Equality is by variant and payload; two
// pattern selectors are equal iff their source expressions are equal.
// Constructors panic on nil types and empty names, matching the
// regexp.MustCompile convention for programmer errors at the construction
// site.
package selector

import (
	"reflect"
	"strings"
)

// Type selects typed event publications. Implementations are ExactType,
// AssignableType, and ParameterizedType; construct them with Exact,
// Assignable, and Parameterized or the *For generic shorthands.
type Type interface {
	// String describes the selector for logs and errors.
	String() string

	isType()
}

// Topic selects named-topic publications. Implementations are TopicName
// and TopicPattern; construct them with Name and Pattern.
type Topic interface {
	// MatchesTopic reports whether the selector matches a topic name.
	MatchesTopic(topic string) bool

	// String describes the selector for logs and errors.
	String() string

	isTopic()
}

// ExactType matches events whose runtime type equals the selector type
// exactly. Publishing a value of a more specific type does not match.
type ExactType struct {
	t reflect.Type
}

// Exact returns an exact-type selector for t. It panics when t is nil.
func Exact(t reflect.Type) ExactType {
	if t == nil {
		panic("selector: nil type")
	}
	return ExactType{t: t}
}

// ExactFor is shorthand for Exact(reflect.TypeFor[T]()).
func ExactFor[T any]() ExactType {
	return Exact(reflect.TypeFor[T]())
}

func (s ExactType) isType() {}

// Type returns the selected runtime type.
func (s ExactType) Type() reflect.Type { return s.t }

// Matches reports whether t equals the selected type.
func (s ExactType) Matches(t reflect.Type) bool { return t == s.t }

func (s ExactType) String() string { return "exact(" + s.t.String() + ")" }

// AssignableType matches events whose runtime type is the selector type
// or assignable to it. With an interface type this subscribes to every
// implementation; with a concrete type it behaves like ExactType, since
// Go assignability between distinct concrete types does not exist.
type AssignableType struct {
	t reflect.Type
}

// Assignable returns a hierarchical selector for t. It panics when t is
// nil.
func Assignable(t reflect.Type) AssignableType {
	if t == nil {
		panic("selector: nil type")
	}
	return AssignableType{t: t}
}

// AssignableFor is shorthand for Assignable(reflect.TypeFor[T]()).
func AssignableFor[T any]() AssignableType {
	return Assignable(reflect.TypeFor[T]())
}

func (s AssignableType) isType() {}

// Type returns the selected type.
func (s AssignableType) Type() reflect.Type { return s.t }

// Matches reports whether t is the selected type or assignable to it.
func (s AssignableType) Matches(t reflect.Type) bool { return t.AssignableTo(s.t) }

func (s AssignableType) String() string { return "assignable(" + s.t.String() + ")" }

// argKind discriminates TypeArg variants.
type argKind int

const (
	argConcrete argKind = iota
	argWildcard
	argUpper
	argLower
)

// TypeArg is one type-argument pattern of a ParameterizedType selector.
type TypeArg struct {
	kind  argKind
	bound reflect.Type
}

// Arg returns a concrete type argument. Concrete arguments are invariant:
// only the identical published argument matches, never a narrower or
// wider one. It panics when t is nil.
func Arg(t reflect.Type) TypeArg {
	if t == nil {
		panic("selector: nil type argument")
	}
	return TypeArg{kind: argConcrete, bound: t}
}

// ArgFor is shorthand for Arg(reflect.TypeFor[T]()).
func ArgFor[T any]() TypeArg {
	return Arg(reflect.TypeFor[T]())
}

// Wildcard returns an unbounded argument pattern matching any published
// argument.
func Wildcard() TypeArg {
	return TypeArg{kind: argWildcard}
}

// UpperBounded returns a wildcard matching published arguments assignable
// to bound. It panics when bound is nil.
func UpperBounded(bound reflect.Type) TypeArg {
	if bound == nil {
		panic("selector: nil bound")
	}
	return TypeArg{kind: argUpper, bound: bound}
}

// LowerBounded returns a wildcard matching published arguments that bound
// is assignable to. It panics when bound is nil.
func LowerBounded(bound reflect.Type) TypeArg {
	if bound == nil {
		panic("selector: nil bound")
	}
	return TypeArg{kind: argLower, bound: bound}
}

// matches reports whether one published argument satisfies the pattern.
func (a TypeArg) matches(arg reflect.Type) bool {
	switch a.kind {
	case argConcrete:
		return arg == a.bound
	case argWildcard:
		return true
	case argUpper:
		return arg.AssignableTo(a.bound)
	case argLower:
		return a.bound.AssignableTo(arg)
	}
	return false
}

func (a TypeArg) String() string {
	switch a.kind {
	case argConcrete:
		return a.bound.String()
	case argWildcard:
		return "*"
	case argUpper:
		return "*<:" + a.bound.String()
	case argLower:
		return "*:>" + a.bound.String()
	}
	return "?"
}

// ParameterizedType matches descriptor publications: the publisher
// supplies a Descriptor carrying the raw type and concrete type
// arguments, and the selector matches when the raw types are equal and
// every argument pattern is satisfied at its position. Plain publications
// without a descriptor never match a ParameterizedType, because runtime
// types erase type arguments.
type ParameterizedType struct {
	raw  reflect.Type
	args []TypeArg
}

// Parameterized returns a parameterized-type selector for raw with the
// given argument patterns. It panics when raw is nil.
func Parameterized(raw reflect.Type, args ...TypeArg) ParameterizedType {
	if raw == nil {
		panic("selector: nil raw type")
	}
	return ParameterizedType{raw: raw, args: append([]TypeArg(nil), args...)}
}

// ParameterizedFor is shorthand for Parameterized(reflect.TypeFor[T](), args...).
func ParameterizedFor[T any](args ...TypeArg) ParameterizedType {
	return Parameterized(reflect.TypeFor[T](), args...)
}

func (s ParameterizedType) isType() {}

// Raw returns the raw container type.
func (s ParameterizedType) Raw() reflect.Type { return s.raw }

// Args returns a copy of the argument patterns.
func (s ParameterizedType) Args() []TypeArg {
	return append([]TypeArg(nil), s.args...)
}

// MatchesDescriptor reports whether a published descriptor satisfies the
// selector. A descriptor argument that is nil never matches: publications
// must use concrete type arguments.
func (s ParameterizedType) MatchesDescriptor(d Descriptor) bool {
	if d.Raw != s.raw || len(d.Args) != len(s.args) {
		return false
	}
	for i, a := range s.args {
		if d.Args[i] == nil || !a.matches(d.Args[i]) {
			return false
		}
	}
	return true
}

// Equal reports selector equality: same raw type and identical argument
// patterns.
func (s ParameterizedType) Equal(o ParameterizedType) bool {
	if s.raw != o.raw || len(s.args) != len(o.args) {
		return false
	}
	for i := range s.args {
		if s.args[i] != o.args[i] {
			return false
		}
	}
	return true
}

func (s ParameterizedType) String() string {
	var b strings.Builder
	b.WriteString("parameterized(")
	b.WriteString(s.raw.String())
	b.WriteByte('[')
	for i, a := range s.args {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(a.String())
	}
	b.WriteString("])")
	return b.String()
}
