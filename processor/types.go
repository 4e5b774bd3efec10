package processor

import (
	"fmt"
	"go/types"

	"github.com/jhump/autoserv/registry"
)

// goTypes answers subtype queries with go/types. A type conforms to an
// interface if it, or a pointer to it, implements the interface.
type goTypes struct{}

var _ registry.Types = goTypes{}

func (goTypes) IsSubtype(t, iface registry.DeclaredType) (bool, error) {
	impl, it, err := typeNames(t, iface)
	if err != nil {
		return false, err
	}
	// a generic interface cannot be implemented without type arguments, but
	// a generic type's method set is the same for every instantiation
	if isGeneric(it) {
		return false, nil
	}
	i, ok := it.Type().Underlying().(*types.Interface)
	if !ok {
		return false, nil
	}
	return implements(impl.Type(), i), nil
}

// IsSubtypeOfErasure reports whether t implements some instantiation of a
// generic interface. The type arguments are inferred by matching the
// interface's method signatures against t's methods.
func (g goTypes) IsSubtypeOfErasure(t, iface registry.DeclaredType) (bool, error) {
	impl, it, err := typeNames(t, iface)
	if err != nil {
		return false, err
	}
	if !isGeneric(it) {
		return g.IsSubtype(t, iface)
	}
	if isGeneric(impl) {
		// bindings would mention impl's own type parameters
		return false, nil
	}
	named, ok := it.Type().(*types.Named)
	if !ok || !types.IsInterface(named) {
		return false, nil
	}
	args, ok := inferTypeArgs(impl.Type(), named)
	if !ok {
		return false, nil
	}
	inst, err := types.Instantiate(nil, named, args, true)
	if err != nil {
		// inferred arguments do not satisfy the constraints
		return false, nil
	}
	return implements(impl.Type(), inst.Underlying().(*types.Interface)), nil
}

func typeNames(t, iface registry.DeclaredType) (*types.TypeName, *types.TypeName, error) {
	impl, ok := t.TypeToken().(*types.TypeName)
	if !ok {
		return nil, nil, fmt.Errorf("%v is not a Go type", t)
	}
	it, ok := iface.TypeToken().(*types.TypeName)
	if !ok {
		return nil, nil, fmt.Errorf("%v is not a Go type", iface)
	}
	return impl, it, nil
}

func isGeneric(tn *types.TypeName) bool {
	named, ok := tn.Type().(*types.Named)
	return ok && named.TypeParams().Len() > 0
}

func implements(t types.Type, iface *types.Interface) bool {
	if types.Implements(t, iface) {
		return true
	}
	if _, isPtr := t.Underlying().(*types.Pointer); isPtr {
		return false
	}
	return types.Implements(types.NewPointer(t), iface)
}

func inferTypeArgs(t types.Type, generic *types.Named) ([]types.Type, bool) {
	tparams := generic.TypeParams()
	u := unifier{bindings: make(map[*types.TypeParam]types.Type, tparams.Len())}
	for i := 0; i < tparams.Len(); i++ {
		u.bindings[tparams.At(i)] = nil
	}

	iface := generic.Underlying().(*types.Interface)
	for i := 0; i < iface.NumMethods(); i++ {
		m := iface.Method(i)
		obj, _, _ := types.LookupFieldOrMethod(t, true, m.Pkg(), m.Name())
		fn, ok := obj.(*types.Func)
		if !ok {
			return nil, false
		}
		if !u.unify(m.Type(), fn.Type()) {
			return nil, false
		}
	}

	args := make([]types.Type, tparams.Len())
	for i := range args {
		args[i] = u.bindings[tparams.At(i)]
		if args[i] == nil {
			// not used by any method, so nothing to infer it from
			return nil, false
		}
	}
	return args, true
}

// unifier matches a type that mentions type parameters against a concrete
// type, recording what each type parameter stands for.
type unifier struct {
	bindings map[*types.TypeParam]types.Type
}

func (u *unifier) unify(x, y types.Type) bool {
	if tp, ok := x.(*types.TypeParam); ok {
		if bound, ok := u.bindings[tp]; ok {
			if bound == nil {
				u.bindings[tp] = y
				return true
			}
			return types.Identical(bound, y)
		}
	}

	switch x := x.(type) {
	case *types.Pointer:
		y, ok := y.(*types.Pointer)
		return ok && u.unify(x.Elem(), y.Elem())
	case *types.Slice:
		y, ok := y.(*types.Slice)
		return ok && u.unify(x.Elem(), y.Elem())
	case *types.Array:
		y, ok := y.(*types.Array)
		return ok && x.Len() == y.Len() && u.unify(x.Elem(), y.Elem())
	case *types.Map:
		y, ok := y.(*types.Map)
		return ok && u.unify(x.Key(), y.Key()) && u.unify(x.Elem(), y.Elem())
	case *types.Chan:
		y, ok := y.(*types.Chan)
		return ok && x.Dir() == y.Dir() && u.unify(x.Elem(), y.Elem())
	case *types.Signature:
		y, ok := y.(*types.Signature)
		return ok && u.unifySignature(x, y)
	case *types.Named:
		y, ok := y.(*types.Named)
		if !ok || x.Origin().Obj() != y.Origin().Obj() {
			return false
		}
		xargs, yargs := x.TypeArgs(), y.TypeArgs()
		if xargs.Len() != yargs.Len() {
			return false
		}
		for i := 0; i < xargs.Len(); i++ {
			if !u.unify(xargs.At(i), yargs.At(i)) {
				return false
			}
		}
		return true
	}
	return types.Identical(x, y)
}

func (u *unifier) unifySignature(x, y *types.Signature) bool {
	if x.Variadic() != y.Variadic() {
		return false
	}
	return u.unifyTuple(x.Params(), y.Params()) && u.unifyTuple(x.Results(), y.Results())
}

func (u *unifier) unifyTuple(x, y *types.Tuple) bool {
	if x.Len() != y.Len() {
		return false
	}
	for i := 0; i < x.Len(); i++ {
		if !u.unify(x.At(i).Type(), y.At(i).Type()) {
			return false
		}
	}
	return true
}
