package types

import "testing"

func optionOf(t Type) *Enum {
	return &Enum{Name: "Option", Variants: []Variant{
		{Name: "None"},
		{Name: "Some", Payload: []Type{t}},
	}}
}

func TestIsCopy(t *testing.T) {
	tests := []struct {
		typ  Type
		want bool
	}{
		{TypeInt, true},
		{TypeBool, true},
		{TypeStr, false},
		{&Tuple{Elems: []Type{TypeInt, TypeBool}}, true},
		{&Tuple{Elems: []Type{TypeInt, TypeStr}}, false},
		{NewRef(TypeStr, false), true},
		{NewRef(TypeInt, true), false},
		{&Box{Elem: TypeInt}, false},
		{optionOf(TypeInt), true},
		{optionOf(TypeStr), false},
		{&Array{Elem: TypeInt, Len: 3}, true},
	}
	for _, tt := range tests {
		if got := IsCopy(tt.typ); got != tt.want {
			t.Errorf("IsCopy(%s) = %v, want %v", tt.typ, got, tt.want)
		}
	}
}

func TestUninhabitedVariants(t *testing.T) {
	result := &Enum{Name: "Result", Variants: []Variant{
		{Name: "Ok", Payload: []Type{TypeInt}},
		{Name: "Err", Payload: []Type{TypeNever}},
	}}
	if !result.VariantInhabited(0) {
		t.Fatalf("Ok should be inhabited")
	}
	if result.VariantInhabited(1) {
		t.Fatalf("Err(!) should be uninhabited")
	}
	if IsUninhabited(result) {
		t.Fatalf("Result<int, !> is inhabited")
	}
	void := &Enum{Name: "Void"}
	if !IsUninhabited(void) {
		t.Fatalf("empty enum should be uninhabited")
	}
	if !IsUninhabited(&Tuple{Elems: []Type{TypeInt, void}}) {
		t.Fatalf("tuple containing Void should be uninhabited")
	}
}

func TestStringForms(t *testing.T) {
	tests := map[string]Type{
		"(int, bool)":  &Tuple{Elems: []Type{TypeInt, TypeBool}},
		"(int,)":       &Tuple{Elems: []Type{TypeInt}},
		"&mut [int]":   NewRef(&Slice{Elem: TypeInt}, true),
		"[bool; 2]":    &Array{Elem: TypeBool, Len: 2},
		"Box<str>":     &Box{Elem: TypeStr},
		"Option":       optionOf(TypeInt),
		"&(int, bool)": NewRef(&Tuple{Elems: []Type{TypeInt, TypeBool}}, false),
	}
	for want, typ := range tests {
		if got := typ.String(); got != want {
			t.Errorf("String() = %q, want %q", got, want)
		}
	}
}

func TestEqualStructural(t *testing.T) {
	a := &Tuple{Elems: []Type{TypeInt, NewRef(TypeBool, false)}}
	b := &Tuple{Elems: []Type{&Primitive{Kind: Int}, NewRef(TypeBool, false)}}
	if !Equal(a, b) {
		t.Fatalf("expected %s == %s", a, b)
	}
	if Equal(optionOf(TypeInt), optionOf(TypeInt)) {
		t.Fatalf("distinct enum declarations must not compare equal")
	}
}
