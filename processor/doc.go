// Package processor runs annotation processors over Go packages.
//
// This package defines an interface, Processor, which is implemented by things
// that act on annotations found in the doc comments of Go sources:
//
//    type Processor interface {
//        Init(env *Environment) error
//        Process(round *Round) error
//    }
//
// Processing happens in rounds. Every loaded package is one round, in load
// order, and a final terminal round (Round.ProcessingOver returns true)
// follows the last package. Processors that accumulate state across packages,
// like the service registry builder, do their output in the terminal round.
//
// Problems with annotated source are reported as diagnostics through the
// Environment's Messager rather than returned as errors, so that a single run
// can report every problem it finds. A processor returns an error only when
// processing cannot continue at all.
//
// The remaining APIs and types in this package can be broken into three main
// categories: Processor Registration, Processor Invocation, and Elements.
//
// Processor Registration
//
// Processor factories are registered by name with RegisterProcessor. The
// built-in processors are "services", which writes META-INF/services registry
// files for types annotated with @autoserv.Provides, "tostring", which
// generates Format functions for types annotated with @autoserv.ToString,
// "setters", which generates setter methods for types annotated with
// @autoserv.Setter, and "immutable", which checks types annotated with
// @autoserv.Immutable or, with the option policy=GEN, generates read-only
// views of them.
//
// Processor Invocation
//
// Key among the invocation types is processor.Config. It defines the packages
// that will be processed, the processors that will be invoked, the output
// directory for registry resources, and the processor options. Its Execute
// method loads the packages (parsing the sources, with comments, and
// performing full type analysis), extracts annotations, and then runs the
// rounds.
//
// Elements
//
// Annotated program elements are presented to processors as values that
// implement registry.Element: PackageElement for packages (annotated in the
// package doc comment), TypeElement for named types, and ObjectElement for
// struct fields, functions, methods, variables, and constants. Each element's
// annotations are registry.Annotation values whose Type is the qualified name
// of the annotation type, for example "github.com/jhump/autoserv.Provides".
package processor
