package processor

import (
	"fmt"
	"go/types"

	"github.com/jhump/gopoet"

	"github.com/jhump/autoserv/registry"
)

func init() {
	RegisterProcessor("setters", func() Processor { return &SettersProcessor{} })
}

// SettersProcessor generates a setter for every field of struct types
// annotated with @autoserv.Setter:
//
//    func (v *Account) SetOwner(val string) {
//        v.owner = val
//    }
//
// The methods for a package go in <package>.setters.autoserv.go. A field is
// skipped, with a warning, if its setter's name is already used by another
// field or method of the type.
type SettersProcessor struct {
	env *Environment
}

func (p *SettersProcessor) Init(env *Environment) error {
	p.env = env
	return nil
}

func (p *SettersProcessor) Process(round *Round) error {
	if round.ProcessingOver() {
		return nil
	}
	msgr := p.env.Messager
	file := newCompanionFile(round.Context().Package, "setters.autoserv.go")

	var first *TypeElement
	for _, el := range round.ElementsAnnotatedWith(SetterAnnotation) {
		te, ok := el.(*TypeElement)
		if !ok || !isStruct(te) {
			msgr.PrintMessage(registry.Error, "@autoserv.Setter can only be used on struct types", el, nil)
			continue
		}
		if te.HasTypeParams() {
			msgr.PrintMessage(registry.Warning, fmt.Sprintf("cannot generate setters for %s: generic types are not supported", te.SimpleName()), te, nil)
			continue
		}
		ptr := types.NewPointer(te.Obj().Type())
		for _, f := range te.Fields() {
			if f.SimpleName() == "_" {
				continue
			}
			name := "Set" + upperFirst(f.SimpleName())
			obj, _, _ := types.LookupFieldOrMethod(ptr, false, te.Obj().Pkg(), name)
			if file.declaredElsewhere(obj) {
				msgr.PrintMessage(registry.Warning, fmt.Sprintf("cannot generate %s.%s: the name is already declared", te.SimpleName(), name), f, nil)
				continue
			}
			file.addFunc(setter(te, f, name))
			if first == nil {
				first = te
			}
		}
	}
	if first != nil {
		file.write(p.env, first.Pos())
	}
	return nil
}

func setter(te *TypeElement, f *ObjectElement, name string) *gopoet.FuncSpec {
	m := gopoet.NewMethod(gopoet.NewPointerReceiver("v", te.SimpleName()), name)
	m.AddArg("val", gopoet.TypeNameForGoType(f.Obj().Type()))
	m.Printlnf("v.%s = val", f.SimpleName())
	return m
}
