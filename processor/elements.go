package processor

import (
	"go/token"
	"go/types"
	"strings"

	"github.com/jhump/autoserv/registry"
)

// PackageElement is a package, as a program element. Its annotations come from
// the package doc comments of its files.
type PackageElement struct {
	pkg   *types.Package
	annos []registry.Annotation
	pos   token.Position
}

var _ registry.Element = (*PackageElement)(nil)

// Pkg returns the type-checked package.
func (e *PackageElement) Pkg() *types.Package {
	return e.pkg
}

func (e *PackageElement) Kind() registry.ElementKind {
	return registry.KindPackage
}

// QualifiedName is the package's import path with '/' replaced by '.', which
// keeps binary names (and thus registry file names) free of path separators.
func (e *PackageElement) QualifiedName() string {
	return qualifiedPackageName(e.pkg.Path())
}

func (e *PackageElement) SimpleName() string {
	return e.pkg.Name()
}

func (e *PackageElement) Enclosing() registry.Element {
	return nil
}

func (e *PackageElement) Annotations() []registry.Annotation {
	return e.annos
}

// Pos is the position of the first package doc comment with annotations, or
// the zero value if there is none.
func (e *PackageElement) Pos() token.Position {
	return e.pos
}

func (e *PackageElement) String() string {
	return "package " + e.pkg.Path()
}

func qualifiedPackageName(path string) string {
	return strings.ReplaceAll(path, "/", ".")
}

// TypeElement is a named type. Types that are not interfaces are classes,
// except for named integer types that have constants of that type declared
// in the same package, which are enums.
type TypeElement struct {
	obj    *types.TypeName
	pkg    *PackageElement
	kind   registry.ElementKind
	annos  []registry.Annotation
	pos    token.Position
	fields []*ObjectElement
}

var _ registry.DeclaredType = (*TypeElement)(nil)

// Obj returns the type's declaration.
func (e *TypeElement) Obj() *types.TypeName {
	return e.obj
}

func (e *TypeElement) Kind() registry.ElementKind {
	return e.kind
}

func (e *TypeElement) QualifiedName() string {
	if e.pkg == nil {
		return e.obj.Name()
	}
	return e.pkg.QualifiedName() + "." + e.obj.Name()
}

func (e *TypeElement) SimpleName() string {
	return e.obj.Name()
}

// Enclosing returns the type's package. Predeclared types, like error, have
// no enclosing element.
func (e *TypeElement) Enclosing() registry.Element {
	if e.pkg == nil {
		return nil
	}
	return e.pkg
}

func (e *TypeElement) Annotations() []registry.Annotation {
	return e.annos
}

func (e *TypeElement) HasTypeParams() bool {
	named, ok := e.obj.Type().(*types.Named)
	return ok && named.TypeParams().Len() > 0
}

// TypeToken returns the type's *types.TypeName.
func (e *TypeElement) TypeToken() interface{} {
	return e.obj
}

// Fields returns the fields of a struct type, in declaration order, whether
// they have annotations or not. It returns nil for types that are not
// structs or whose package was not processed.
func (e *TypeElement) Fields() []*ObjectElement {
	return e.fields
}

func (e *TypeElement) Pos() token.Position {
	return e.pos
}

func (e *TypeElement) String() string {
	return e.QualifiedName()
}

// ObjectElement is a struct field, function, method, variable, or constant.
// These can carry annotations but are not types, so the registry builder
// ignores them.
type ObjectElement struct {
	obj       types.Object
	enclosing registry.Element
	annos     []registry.Annotation
	pos       token.Position
}

var _ registry.Element = (*ObjectElement)(nil)

// Obj returns the object's declaration.
func (e *ObjectElement) Obj() types.Object {
	return e.obj
}

func (e *ObjectElement) Kind() registry.ElementKind {
	return registry.KindOther
}

func (e *ObjectElement) QualifiedName() string {
	return e.enclosing.QualifiedName() + "." + e.obj.Name()
}

func (e *ObjectElement) SimpleName() string {
	return e.obj.Name()
}

// Enclosing returns the struct type for a field, the receiver type for a
// method, and the package for anything else.
func (e *ObjectElement) Enclosing() registry.Element {
	return e.enclosing
}

func (e *ObjectElement) Annotations() []registry.Annotation {
	return e.annos
}

func (e *ObjectElement) Pos() token.Position {
	return e.pos
}

func (e *ObjectElement) String() string {
	return e.QualifiedName()
}

// host holds the elements of every package seen during one execution, so
// that a type referenced from several packages is always the same element.
type host struct {
	pkgs  map[*types.Package]*PackageElement
	types map[*types.TypeName]*TypeElement
}

func newHost() *host {
	return &host{
		pkgs:  map[*types.Package]*PackageElement{},
		types: map[*types.TypeName]*TypeElement{},
	}
}

func (h *host) packageElement(pkg *types.Package) *PackageElement {
	pe := h.pkgs[pkg]
	if pe == nil {
		pe = &PackageElement{pkg: pkg}
		h.pkgs[pkg] = pe
	}
	return pe
}

func (h *host) typeElement(tn *types.TypeName) *TypeElement {
	te := h.types[tn]
	if te == nil {
		te = &TypeElement{obj: tn, kind: kindOf(tn)}
		if tn.Pkg() != nil {
			te.pkg = h.packageElement(tn.Pkg())
		}
		h.types[tn] = te
	}
	return te
}

func kindOf(tn *types.TypeName) registry.ElementKind {
	if types.IsInterface(tn.Type()) {
		return registry.KindInterface
	}
	if isEnum(tn) {
		return registry.KindEnum
	}
	return registry.KindClass
}

func isEnum(tn *types.TypeName) bool {
	if tn.Pkg() == nil {
		return false
	}
	basic, ok := tn.Type().Underlying().(*types.Basic)
	if !ok || basic.Info()&types.IsInteger == 0 {
		return false
	}
	scope := tn.Pkg().Scope()
	for _, name := range scope.Names() {
		if c, ok := scope.Lookup(name).(*types.Const); ok && types.Identical(c.Type(), tn.Type()) {
			return true
		}
	}
	return false
}
