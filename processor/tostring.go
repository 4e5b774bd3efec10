package processor

import (
	"fmt"
	"go/types"

	"github.com/jhump/gopoet"

	"github.com/jhump/autoserv/registry"
)

func init() {
	RegisterProcessor("tostring", func() Processor { return &ToStringProcessor{} })
}

// ToStringProcessor generates a Format<Type> function for every struct type
// annotated with @autoserv.ToString. The function renders the fields that are
// annotated with @autoserv.Name:
//
//    func FormatPoint(v Point) string {
//        s := "Point{ "
//        s += "x=" + fmt.Sprint(v.x)
//        s += ", y=" + fmt.Sprint(v.y)
//        s += " }"
//        return s
//    }
//
// The functions for a package go in one file, <package>.autoserv.go, in the
// package directory.
type ToStringProcessor struct {
	env *Environment
}

func (p *ToStringProcessor) Init(env *Environment) error {
	p.env = env
	return nil
}

var fmtSprint = gopoet.NewPackage("fmt").Symbol("Sprint")

func (p *ToStringProcessor) Process(round *Round) error {
	if round.ProcessingOver() {
		return nil
	}
	msgr := p.env.Messager
	file := newCompanionFile(round.Context().Package, "autoserv.go")

	var first *TypeElement
	for _, el := range round.ElementsAnnotatedWith(ToStringAnnotation) {
		te, ok := el.(*TypeElement)
		if !ok || te.Kind() != registry.KindClass {
			continue
		}
		if !isStruct(te) {
			msgr.PrintMessage(registry.Error, "@autoserv.ToString can only be used on struct types", te, nil)
			continue
		}
		name := "Format" + te.SimpleName()
		if te.HasTypeParams() {
			msgr.PrintMessage(registry.Warning, fmt.Sprintf("cannot generate %s: generic types are not supported", name), te, nil)
			continue
		}
		if file.scopeConflict(name) {
			msgr.PrintMessage(registry.Error, fmt.Sprintf("cannot generate %s: the name is already declared", name), te, nil)
			continue
		}
		file.addFunc(p.formatFunc(te, name))
		if first == nil {
			first = te
		}
	}
	if first != nil {
		file.write(p.env, first.Pos())
	}
	return nil
}

func (p *ToStringProcessor) formatFunc(te *TypeElement, name string) *gopoet.FuncSpec {
	fn := gopoet.NewFunc(name).
		AddArg("v", gopoet.TypeNameForGoType(te.Obj().Type())).
		AddResult("", gopoet.TypeNameForGoType(types.Typ[types.String]))

	fn.Printlnf("s := %q", te.SimpleName()+"{ ")
	sep := ""
	for _, f := range te.Fields() {
		if _, ok := registry.FindAnnotation(f, NameAnnotation); !ok {
			continue
		}
		if f.SimpleName() == "_" {
			p.env.Messager.PrintMessage(registry.Warning, "blank fields cannot be read, so they are left out of "+name, f, nil)
			continue
		}
		fn.Printlnf("s += %q + %s(v.%s)", sep+f.SimpleName()+"=", fmtSprint, f.SimpleName())
		sep = ", "
	}
	fn.Println(`s += " }"`)
	fn.Println("return s")
	return fn
}
