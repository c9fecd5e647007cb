package types

// IsBool reports whether t is bool.
func IsBool(t Type) bool {
	p, ok := t.(*Primitive)
	return ok && p.Kind == Bool
}

// IsSwitchable reports whether constants of t can be tested with a
// multi-way integer switch.
func IsSwitchable(t Type) bool {
	p, ok := t.(*Primitive)
	if !ok {
		return false
	}
	switch p.Kind {
	case Int, Char, Usize:
		return true
	}
	return false
}

// IsCopy reports whether values of t are duplicated rather than moved.
func IsCopy(t Type) bool {
	switch t := t.(type) {
	case *Primitive:
		return t.Kind != Str
	case *Reference:
		return !t.Mutable
	case *Tuple:
		for _, e := range t.Elems {
			if !IsCopy(e) {
				return false
			}
		}
		return true
	case *Array:
		return IsCopy(t.Elem)
	case *Struct:
		for _, f := range t.Fields {
			if !IsCopy(f.Type) {
				return false
			}
		}
		return true
	case *Enum:
		for _, v := range t.Variants {
			for _, p := range v.Payload {
				if !IsCopy(p) {
					return false
				}
			}
		}
		return true
	}
	return false
}

// IsUninhabited reports whether no value of t can exist.
// References are considered inhabited.
func IsUninhabited(t Type) bool {
	switch t := t.(type) {
	case *Primitive:
		return t.Kind == Never
	case *Tuple:
		for _, e := range t.Elems {
			if IsUninhabited(e) {
				return true
			}
		}
	case *Struct:
		for _, f := range t.Fields {
			if IsUninhabited(f.Type) {
				return true
			}
		}
	case *Array:
		return t.Len > 0 && IsUninhabited(t.Elem)
	case *Enum:
		for i := range t.Variants {
			if t.VariantInhabited(i) {
				return false
			}
		}
		return true
	case *Box:
		return IsUninhabited(t.Elem)
	}
	return false
}

// FieldTypes returns the element types of a product type, or nil.
func FieldTypes(t Type) []Type {
	switch t := t.(type) {
	case *Tuple:
		return t.Elems
	case *Struct:
		out := make([]Type, len(t.Fields))
		for i, f := range t.Fields {
			out[i] = f.Type
		}
		return out
	}
	return nil
}

// ElemType returns the element type of a slice or array, or nil.
func ElemType(t Type) Type {
	switch t := t.(type) {
	case *Slice:
		return t.Elem
	case *Array:
		return t.Elem
	}
	return nil
}
