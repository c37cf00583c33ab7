package selector

import (
	"reflect"
	"testing"
)

type animal interface{ species() string }

type dog struct{ name string }

func (d dog) species() string { return "dog" }

type cat struct{ name string }

func (c cat) species() string { return "cat" }

// crate is a container fixture for descriptor matching.
type crate struct {
	items []any
}

var (
	animalType = reflect.TypeFor[animal]()
	dogType    = reflect.TypeFor[dog]()
	catType    = reflect.TypeFor[cat]()
	intType    = reflect.TypeFor[int]()
	crateType  = reflect.TypeFor[*crate]()
)

func TestExact_Matches(t *testing.T) {
	sel := ExactFor[dog]()

	if !sel.Matches(dogType) {
		t.Error("expected an exact selector to match its own type")
	}
	if sel.Matches(catType) {
		t.Error("expected an exact selector to reject a different type")
	}
	if sel.Type() != dogType {
		t.Errorf("Type() = %v, want %v", sel.Type(), dogType)
	}
}

func TestExact_InterfaceDoesNotMatchImplementations(t *testing.T) {
	sel := ExactFor[animal]()

	if sel.Matches(dogType) {
		t.Error("expected an exact interface selector to reject an implementation type")
	}
	if !sel.Matches(animalType) {
		t.Error("expected an exact interface selector to match the interface type itself")
	}
}

func TestExact_NilPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected Exact(nil) to panic")
		}
	}()
	Exact(nil)
}

func TestAssignable_Matches(t *testing.T) {
	sel := AssignableFor[animal]()

	if !sel.Matches(dogType) {
		t.Error("expected an assignable selector to match an implementation")
	}
	if !sel.Matches(catType) {
		t.Error("expected an assignable selector to match every implementation")
	}
	if !sel.Matches(animalType) {
		t.Error("expected an assignable selector to match the interface type itself")
	}
	if sel.Matches(intType) {
		t.Error("expected an assignable selector to reject a non-implementation")
	}
}

func TestAssignable_ConcreteBehavesLikeExact(t *testing.T) {
	sel := AssignableFor[dog]()

	if !sel.Matches(dogType) {
		t.Error("expected an assignable selector to match its own type")
	}
	if sel.Matches(catType) {
		t.Error("expected an assignable selector to reject an unrelated concrete type")
	}
}

func TestTypeArg_Matches(t *testing.T) {
	tests := []struct {
		name string
		arg  TypeArg
		typ  reflect.Type
		want bool
	}{
		{"concrete same type", ArgFor[dog](), dogType, true},
		{"concrete different type", ArgFor[dog](), catType, false},
		{"concrete is invariant", ArgFor[animal](), dogType, false},
		{"wildcard", Wildcard(), intType, true},
		{"upper bound implementation", UpperBounded(animalType), dogType, true},
		{"upper bound itself", UpperBounded(animalType), animalType, true},
		{"upper bound unrelated", UpperBounded(animalType), intType, false},
		{"lower bound interface", LowerBounded(dogType), animalType, true},
		{"lower bound itself", LowerBounded(dogType), dogType, true},
		{"lower bound sibling", LowerBounded(dogType), catType, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.arg.matches(tt.typ); got != tt.want {
				t.Errorf("%s.matches(%v) = %v, want %v", tt.arg, tt.typ, got, tt.want)
			}
		})
	}
}

func TestTypeArg_String(t *testing.T) {
	tests := []struct {
		arg  TypeArg
		want string
	}{
		{ArgFor[dog](), "selector.dog"},
		{Wildcard(), "*"},
		{UpperBounded(animalType), "*<:selector.animal"},
		{LowerBounded(dogType), "*:>selector.dog"},
	}

	for _, tt := range tests {
		if got := tt.arg.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestTypeArg_NilPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected Arg(nil) to panic")
		}
	}()
	Arg(nil)
}

func TestParameterized_MatchesDescriptor(t *testing.T) {
	sel := ParameterizedFor[*crate](ArgFor[dog]())

	tests := []struct {
		name string
		desc Descriptor
		want bool
	}{
		{"matching raw and args", Describe(crateType, dogType), true},
		{"different arg", Describe(crateType, catType), false},
		{"different raw", Describe(dogType, dogType), false},
		{"missing args", Describe(crateType), false},
		{"extra args", Describe(crateType, dogType, dogType), false},
		{"nil arg", Descriptor{Raw: crateType, Args: []reflect.Type{nil}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sel.MatchesDescriptor(tt.desc); got != tt.want {
				t.Errorf("MatchesDescriptor(%s) = %v, want %v", tt.desc, got, tt.want)
			}
		})
	}
}

func TestParameterized_BoundedArgs(t *testing.T) {
	sel := ParameterizedFor[*crate](UpperBounded(animalType), Wildcard())

	if !sel.MatchesDescriptor(Describe(crateType, dogType, intType)) {
		t.Error("expected a conforming descriptor to match")
	}
	if sel.MatchesDescriptor(Describe(crateType, intType, intType)) {
		t.Error("expected an argument outside the bound to be rejected")
	}
}

func TestParameterized_Equal(t *testing.T) {
	a := ParameterizedFor[*crate](ArgFor[dog](), Wildcard())
	b := ParameterizedFor[*crate](ArgFor[dog](), Wildcard())
	c := ParameterizedFor[*crate](ArgFor[cat](), Wildcard())
	d := ParameterizedFor[*crate](ArgFor[dog]())

	if !a.Equal(b) {
		t.Error("expected selectors with the same raw type and args to be equal")
	}
	if a.Equal(c) {
		t.Error("expected selectors with different args to differ")
	}
	if a.Equal(d) {
		t.Error("expected selectors with different arg counts to differ")
	}
}

func TestParameterized_ArgsCopied(t *testing.T) {
	args := []TypeArg{ArgFor[dog]()}
	sel := Parameterized(crateType, args...)

	args[0] = Wildcard()
	if sel.Args()[0] != ArgFor[dog]() {
		t.Error("expected the constructor to copy its argument patterns")
	}

	out := sel.Args()
	out[0] = Wildcard()
	if sel.Args()[0] != ArgFor[dog]() {
		t.Error("expected Args to return a copy")
	}
}

func TestSelectorStrings(t *testing.T) {
	if got, want := ExactFor[dog]().String(), "exact(selector.dog)"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	if got, want := AssignableFor[animal]().String(), "assignable(selector.animal)"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	sel := ParameterizedFor[*crate](ArgFor[dog](), Wildcard())
	if got, want := sel.String(), "parameterized(*selector.crate[selector.dog, *])"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestDescribe_CopiesArgs(t *testing.T) {
	args := []reflect.Type{dogType}
	desc := Describe(crateType, args...)

	args[0] = catType
	if desc.Args[0] != dogType {
		t.Error("expected Describe to copy its arguments")
	}
}

func TestDescriptor_String(t *testing.T) {
	desc := DescribeFor[*crate](dogType, catType)
	if got, want := desc.String(), "*selector.crate[selector.dog, selector.cat]"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}

	var zero Descriptor
	if got, want := zero.String(), "<nil>[]"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
