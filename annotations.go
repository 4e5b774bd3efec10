// Package autoserv declares the annotations understood by the aptserv
// annotation processor.
//
// Annotations are written in the doc comment of a declaration, after any
// ordinary documentation. The "autoserv" qualifier always refers to this
// package, so sources do not have to import it:
//
//    // Plugin is the default implementation of some.Service.
//    //
//    // @autoserv.Provides(some.Service)
//    type Plugin struct {
//        ...
//    }
//
// Running aptserv over the package writes (or updates) the registry file
// META-INF/services/<service> under the output directory, listing Plugin by
// its binary name.
package autoserv

//go:generate aptserv -Averify github.com/jhump/autoserv/...

// Provides marks a type as a provider of one or more service interfaces. The
// value lists the interfaces:
//
//    // @autoserv.Provides(io.Reader, other.Service)
//
// which is short-hand for:
//
//    // @autoserv.Provides{Value: {io.Reader, other.Service}}
//
// Only non-interface types can be providers. When the processor is run with
// the "verify" option, the type (or a pointer to it) must implement every
// interface listed. A generic interface may be named without type arguments;
// the provider is then accepted if it implements some instantiation of it,
// and a warning is issued unless "rawtypes" warnings are suppressed.
type Provides struct {
	Value []AnyType
}

// SuppressWarnings turns off categories of warnings for the annotated type
// and, when used in a package doc comment, for every type in the package. The
// only category currently recognized is "rawtypes".
type SuppressWarnings struct {
	Value []string
}

// ToString asks the processor to generate a Format<Type> function for the
// annotated struct type. The function renders the fields that are annotated
// with @autoserv.Name, in declaration order. The generated functions for a
// package are written to <package>.autoserv.go in the package directory.
type ToString struct{}

// Name marks a struct field to be included by a generated Format function.
// It has no effect on types that are not annotated with @autoserv.ToString.
type Name struct{}

// Immutable documents that values of the annotated struct type must not be
// changed once constructed. What the processor does about it depends on its
// "policy" option:
//
//    ANA  warn about every exported field, since those can be reassigned by
//         any importer (the default)
//    GEN  generate a read-only view, <Type>Immutable, with a getter for
//         every field, and a New<Type>Immutable constructor
//
// Generated views go in <package>.immutable.autoserv.go.
type Immutable struct{}

// Setter asks the processor to generate a Set<Field> method, with a pointer
// receiver, for every field of the annotated struct type. No method is
// generated for a field whose setter name is already taken. The methods for a
// package are written to <package>.setters.autoserv.go.
type Setter struct{}

// AnyType is a marker for annotation values that refer to types, such as the
// interfaces listed by Provides.
type AnyType interface{}
