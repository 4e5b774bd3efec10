package registry

import "fmt"

// ElementKind is the kind of a program element, as seen by the registry
// builder.
type ElementKind int

const (
	KindOther ElementKind = iota
	KindPackage
	KindClass
	KindInterface
	KindEnum
)

func (k ElementKind) String() string {
	switch k {
	case KindPackage:
		return "package"
	case KindClass:
		return "class"
	case KindInterface:
		return "interface"
	case KindEnum:
		return "enum"
	case KindOther:
		return "other"
	default:
		return fmt.Sprintf("?%d?", int(k))
	}
}

// Element is a declaration supplied by the host: a package or a declared
// type. Elements form a chain through Enclosing that ends at a package.
type Element interface {
	Kind() ElementKind
	// QualifiedName is the fully-qualified name of the element. For a
	// package, it is the package's qualified name (empty for the unnamed
	// package).
	QualifiedName() string
	SimpleName() string
	// Enclosing returns the declaration that contains this one, or nil for
	// a package.
	Enclosing() Element
	Annotations() []Annotation
	String() string
}

// DeclaredType is an Element that is a named type declaration.
type DeclaredType interface {
	Element
	HasTypeParams() bool
	// TypeToken is an opaque value the host uses to identify the type in
	// subtype queries.
	TypeToken() interface{}
}

// Annotation is one occurrence of an annotation on an element.
type Annotation struct {
	// Type is the qualified name of the annotation type.
	Type string
	// Values maps element names to values. Elements that were not given in
	// source are absent.
	Values map[string]Value
	// Pos is a host-specific location, passed back to the Messager.
	Pos interface{}
}

// Value is an annotation element value. It is one of TypeValue, ArrayValue,
// or StringValue.
type Value interface {
	isValue()
}

// TypeValue is a reference to a declared type.
type TypeValue struct {
	Type DeclaredType
}

// ArrayValue is a sequence of values.
type ArrayValue struct {
	Elems []Value
}

// StringValue is a string constant.
type StringValue struct {
	S string
}

func (TypeValue) isValue()   {}
func (ArrayValue) isValue()  {}
func (StringValue) isValue() {}

// Strings returns the string constants in v. A scalar StringValue yields one
// string; an ArrayValue yields the strings among its (flattened) elements.
func Strings(v Value) []string {
	switch v := v.(type) {
	case StringValue:
		return []string{v.S}
	case ArrayValue:
		var strs []string
		for _, e := range v.Elems {
			strs = append(strs, Strings(e)...)
		}
		return strs
	default:
		return nil
	}
}

// FindAnnotation returns the first annotation of el whose type is the given
// qualified name.
func FindAnnotation(el Element, annotationType string) (Annotation, bool) {
	for _, a := range el.Annotations() {
		if a.Type == annotationType {
			return a, true
		}
	}
	return Annotation{}, false
}
