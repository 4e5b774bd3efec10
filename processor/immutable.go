package processor

import (
	"fmt"

	"github.com/jhump/gopoet"

	"github.com/jhump/autoserv/registry"
)

func init() {
	RegisterProcessor("immutable", func() Processor { return &ImmutableProcessor{} })
}

// Values of the "policy" option understood by ImmutableProcessor.
const (
	// PolicyAnalyze warns about exported fields. It is the default.
	PolicyAnalyze = "ANA"
	// PolicyGenerate generates a read-only view of each type.
	PolicyGenerate = "GEN"
	// PolicyModify would make fields unassignable in place, which Go cannot
	// express. It is rejected.
	PolicyModify = "MOD"
)

// ImmutableProcessor handles struct types annotated with @autoserv.Immutable,
// according to the "policy" option.
//
// With ANA, exported fields can be reassigned by any importer, so each one
// gets a warning. With GEN, each type gets a read-only view in
// <package>.immutable.autoserv.go:
//
//    type MoneyImmutable struct {
//        v Money
//    }
//
//    func NewMoneyImmutable(v Money) MoneyImmutable {
//        return MoneyImmutable{v: v}
//    }
//
//    func (r MoneyImmutable) Amount() int {
//        return r.v.Amount
//    }
type ImmutableProcessor struct {
	env    *Environment
	policy string
}

func (p *ImmutableProcessor) Init(env *Environment) error {
	p.env = env
	switch policy := env.Options["policy"]; policy {
	case "", PolicyAnalyze:
		p.policy = PolicyAnalyze
	case PolicyGenerate:
		p.policy = policy
	case PolicyModify:
		return fmt.Errorf("immutable policy %s is not supported: struct fields cannot be made read-only in place", policy)
	default:
		return fmt.Errorf("unknown immutable policy %q: must be %s or %s", policy, PolicyAnalyze, PolicyGenerate)
	}
	return nil
}

func (p *ImmutableProcessor) Process(round *Round) error {
	if round.ProcessingOver() {
		return nil
	}
	msgr := p.env.Messager
	var file *companionFile
	if p.policy == PolicyGenerate {
		file = newCompanionFile(round.Context().Package, "immutable.autoserv.go")
	}

	var first *TypeElement
	for _, el := range round.ElementsAnnotatedWith(ImmutableAnnotation) {
		te, ok := el.(*TypeElement)
		if !ok || !isStruct(te) {
			msgr.PrintMessage(registry.Error, "@autoserv.Immutable can only be used on struct types", el, nil)
			continue
		}
		if file == nil {
			for _, f := range te.Fields() {
				if f.Obj().Exported() {
					msgr.PrintMessage(registry.Warning, fmt.Sprintf("field %s of immutable type %s is exported and can be reassigned", f.SimpleName(), te.QualifiedName()), f, nil)
				}
			}
			continue
		}
		if p.generateView(file, te) && first == nil {
			first = te
		}
	}
	if first != nil {
		file.write(p.env, first.Pos())
	}
	return nil
}

// generateView adds te's read-only view to file. It returns false if the view
// could not be generated.
func (p *ImmutableProcessor) generateView(file *companionFile, te *TypeElement) bool {
	msgr := p.env.Messager
	name := te.SimpleName() + "Immutable"
	if te.HasTypeParams() {
		msgr.PrintMessage(registry.Warning, fmt.Sprintf("cannot generate %s: generic types are not supported", name), te, nil)
		return false
	}
	ctor := "New" + name
	for _, n := range []string{name, ctor} {
		if file.scopeConflict(n) {
			msgr.PrintMessage(registry.Error, fmt.Sprintf("cannot generate %s: the name is already declared", n), te, nil)
			return false
		}
	}

	typ := gopoet.TypeNameForGoType(te.Obj().Type())
	view := gopoet.NewStructTypeSpec(name, gopoet.NewField("v", typ))
	file.addType(view)
	file.addFunc(gopoet.NewFunc(ctor).
		AddArg("v", typ).
		AddResult("", view.ToTypeName()).
		Printlnf("return %s{v: v}", name))

	getters := map[string]bool{}
	for _, f := range te.Fields() {
		if f.SimpleName() == "_" {
			continue
		}
		getter := upperFirst(f.SimpleName())
		if getters[getter] {
			msgr.PrintMessage(registry.Warning, fmt.Sprintf("cannot generate %s.%s: another field has the same getter", name, getter), f, nil)
			continue
		}
		getters[getter] = true
		file.addFunc(gopoet.NewMethod(gopoet.NewReceiverForType("r", view), getter).
			AddResult("", gopoet.TypeNameForGoType(f.Obj().Type())).
			Printlnf("return r.v.%s", f.SimpleName()))
	}
	return true
}
