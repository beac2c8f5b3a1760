package typesystem

// SubstOf builds the substitution mapping each parameter to the argument at the same position.
func SubstOf(params []TVar, args []Type) Subst {
	s := make(Subst, len(params))
	for i, p := range params {
		if i < len(args) {
			s[p.Name] = args[i]
		}
	}
	return s
}

// Apply applies s to t, tolerating nil types.
func Apply(t Type, s Subst) Type {
	if t == nil || len(s) == 0 {
		return t
	}
	return t.Apply(s)
}

// BaseOf returns the base class of t with the instantiation's arguments applied.
func BaseOf(t Type) Type {
	switch typ := t.(type) {
	case *TNamed:
		return typ.Base
	case TApp:
		return Apply(typ.Constructor.Base, SubstOf(typ.Constructor.Params, typ.Args))
	case TArray, TFunc:
		return Object
	}
	return nil
}

// InterfacesOf returns the interfaces directly implemented by t.
func InterfacesOf(t Type) []Type {
	switch typ := t.(type) {
	case *TNamed:
		return typ.Interfaces
	case TApp:
		s := SubstOf(typ.Constructor.Params, typ.Args)
		out := make([]Type, len(typ.Constructor.Interfaces))
		for i, iface := range typ.Constructor.Interfaces {
			out[i] = Apply(iface, s)
		}
		return out
	case TArray:
		return []Type{TApp{Constructor: Enumerable, Args: []Type{typ.Elem}}}
	}
	return nil
}

// Ancestors returns t followed by its base classes and every implemented
// interface, breadth first and without duplicates.
func Ancestors(t Type) []Type {
	if t == nil {
		return nil
	}
	var out []Type
	queue := []Type{t}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if containsType(out, cur) {
			continue
		}
		out = append(out, cur)
		if base := BaseOf(cur); base != nil {
			queue = append(queue, base)
		}
		queue = append(queue, InterfacesOf(cur)...)
	}
	return out
}

// FindCommonType walks the ancestry of t looking for an instantiation of def.
func FindCommonType(def *TNamed, t Type) (TApp, bool) {
	for _, a := range Ancestors(t) {
		if app, ok := a.(TApp); ok && app.Constructor == def {
			return app, true
		}
	}
	return TApp{}, false
}

func containsType(list []Type, t Type) bool {
	for _, x := range list {
		if Equal(x, t) {
			return true
		}
	}
	return false
}
