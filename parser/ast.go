package parser

import (
	"fmt"
	"go/constant"
	"text/scanner"
)

// ExpressionNode is a node in the AST for annotation values: literals,
// references to named program elements, and aggregates.
type ExpressionNode interface {
	Pos() scanner.Position
}

// LiteralNode is an expression node that represents a literal value: a
// string, an integer, or a boolean.
type LiteralNode struct {
	Val constant.Value
	pos scanner.Position
}

func (n LiteralNode) Pos() scanner.Position {
	return n.pos
}

// RefNode is an expression node that is a reference to an identifier, which
// is expected to resolve to a named type.
type RefNode struct {
	Ident Identifier
}

func (n RefNode) Pos() scanner.Position {
	return n.Ident.Pos
}

// AggregateNode is an expression node that represents a brace-enclosed list
// of values.
type AggregateNode struct {
	Contents []Element
	pos      scanner.Position
}

func (n AggregateNode) Pos() scanner.Position {
	return n.pos
}

// Identifier is an AST node that refers to an identifier, possibly qualified
// with a package name/alias.
type Identifier struct {
	PackageAlias string
	Name         string
	Pos          scanner.Position
}

func (id Identifier) String() string {
	if id.PackageAlias == "" {
		return id.Name
	}
	return fmt.Sprintf("%s.%s", id.PackageAlias, id.Name)
}

// Element is one argument of an annotation or one entry of an aggregate. It
// may be keyed with an element name ("Value: {A, B}").
type Element struct {
	Key    Identifier
	HasKey bool
	Value  ExpressionNode
}

func (e Element) Pos() scanner.Position {
	if e.HasKey {
		return e.Key.Pos
	}
	return e.Value.Pos()
}

// Annotation is a fully parsed annotation. It identifies the annotation type
// and has zero or more arguments. Arguments may be given in parentheses
// (@Foo(A, B)) or in braces (@Foo{Value: A}); both forms mean the same.
type Annotation struct {
	Type Identifier
	Args []Element
	Pos  scanner.Position
}
