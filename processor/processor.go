package processor

import (
	"fmt"
	"go/ast"
	"go/token"
	"go/types"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"golang.org/x/tools/go/packages"

	"github.com/jhump/autoserv"
	"github.com/jhump/autoserv/registry"
)

// Qualified names of the annotation types in package autoserv. These are the
// values of registry.Annotation.Type for the corresponding annotations.
var (
	ProvidesAnnotation         = annotationName(reflect.TypeOf(autoserv.Provides{}))
	SuppressWarningsAnnotation = annotationName(reflect.TypeOf(autoserv.SuppressWarnings{}))
	ToStringAnnotation         = annotationName(reflect.TypeOf(autoserv.ToString{}))
	NameAnnotation             = annotationName(reflect.TypeOf(autoserv.Name{}))
	ImmutableAnnotation        = annotationName(reflect.TypeOf(autoserv.Immutable{}))
	SetterAnnotation           = annotationName(reflect.TypeOf(autoserv.Setter{}))

	// the "autoserv" qualifier denotes this package even when a file does
	// not import it
	autoservPkgPath = reflect.TypeOf(autoserv.Provides{}).PkgPath()
)

const autoservQualifier = "autoserv"

func annotationName(rt reflect.Type) string {
	return rt.PkgPath() + "." + rt.Name()
}

// ErrorWithPosition is an error that has source position information associated
// with it. The position indicates the location in a source file where the error
// was encountered.
type ErrorWithPosition struct {
	err error
	pos token.Position
}

// Error implements the error interface. It includes position information in the
// returned message.
func (e *ErrorWithPosition) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s", e.pos.Filename, e.pos.Line, e.pos.Column, e.err.Error())
}

// Underlying returns the underlying error.
func (e *ErrorWithPosition) Underlying() error {
	return e.err
}

// Unwrap returns the underlying error, for use with errors.Is and errors.As.
func (e *ErrorWithPosition) Unwrap() error {
	return e.err
}

// Pos returns the location in source where the underlying error was
// encountered.
func (e *ErrorWithPosition) Pos() token.Position {
	return e.pos
}

// NewErrorWithPosition returns the given error, but associates it with the
// given source code location.
func NewErrorWithPosition(pos token.Position, err error) *ErrorWithPosition {
	return &ErrorWithPosition{err: err, pos: pos}
}

// ErrorsReported is returned from Config.Execute when processing completed
// but processors reported error diagnostics.
type ErrorsReported struct {
	Count int
}

func (e *ErrorsReported) Error() string {
	if e.Count == 1 {
		return "1 error reported"
	}
	return fmt.Sprintf("%d errors reported", e.Count)
}

// OutputFactory is a function that creates a writer to an output for the
// given location. Output factories typically use os.OpenFile to create files
// but this function allows the behavior to be customized.
type OutputFactory func(path string) (io.WriteCloser, error)

// DefaultOutputFactory returns an OutputFactory that creates files under the
// given root directory. Paths are slash-separated and relative to rootDir; if
// rootDir is blank, paths are used as they are. Missing parent directories
// are created.
//
// After computing the destination path, os.OpenFile is used to open the file
// for writing (creating the file if necessary, truncating it if it already
// exists).
func DefaultOutputFactory(rootDir string) OutputFactory {
	return func(path string) (io.WriteCloser, error) {
		dest := filepath.FromSlash(path)
		if rootDir != "" {
			dest = filepath.Join(rootDir, dest)
		}
		if err := os.MkdirAll(filepath.Dir(dest), os.ModePerm); err != nil {
			return nil, fmt.Errorf("could not create output directory %s: %w", filepath.Dir(dest), err)
		}
		return os.OpenFile(dest, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0666)
	}
}

// Processor acts on annotations. A processor is initialized once per
// execution and then sees one round per package, in load order, followed by
// a terminal round for which Round.ProcessingOver returns true.
//
// Problems with annotated source should be reported through the
// environment's Messager. A returned error aborts the whole execution.
type Processor interface {
	Init(env *Environment) error
	Process(round *Round) error
}

// Environment is what processors are given to do their work.
type Environment struct {
	// Options are the processor options (-A key=value on the command line).
	Options map[string]string
	// Types answers subtype queries about declared types.
	Types registry.Types
	// Filer gives access to resources under the output directory.
	Filer registry.Filer
	// Messager receives diagnostics.
	Messager *Messager
	// Sources creates generated source files. Paths given to it are
	// file system paths, usually inside a package's directory.
	Sources OutputFactory
	Logger  *slog.Logger
}

// Package is one package to process: its syntax, with comments, and the
// results of type-checking it.
type Package struct {
	Path  string
	Name  string
	Dir   string
	Fset  *token.FileSet
	Files []*ast.File
	Types *types.Package
	Info  *types.Info
}

// Config represents the configuration for running one or more Processors.
// Callers should configure the exported fields and then call the Execute
// method to actually invoke the processors.
type Config struct {
	// Patterns are the package patterns to load, as understood by the go
	// command (e.g. "./...").
	Patterns []string
	// Dir is the directory in which to load packages. If blank, the current
	// directory is used.
	Dir string
	// IncludeTests causes packages to be loaded along with their test files.
	IncludeTests bool

	// OutputDir is the root of registry resources. If blank, the current
	// directory is used.
	OutputDir string
	// Options are passed to processors via the Environment.
	Options map[string]string
	// Processors to run. If empty, all registered processors are used.
	Processors []Processor

	// Output receives diagnostics. If nil, os.Stderr is used.
	Output io.Writer
	// OutputFactory creates generated source files. If nil, files are
	// written with DefaultOutputFactory("").
	OutputFactory OutputFactory
	Logger        *slog.Logger
}

// Execute loads the configured packages and invokes the configured
// processors for them.
func (cfg *Config) Execute() error {
	pkgs, err := cfg.Load()
	if err != nil {
		return err
	}
	return cfg.Run(pkgs)
}

// Load loads and type-checks the packages that match the configured
// patterns.
func (cfg *Config) Load() ([]*Package, error) {
	conf := &packages.Config{
		Mode: packages.NeedName | packages.NeedFiles | packages.NeedSyntax |
			packages.NeedTypes | packages.NeedTypesInfo | packages.NeedImports | packages.NeedDeps,
		Dir:   cfg.Dir,
		Tests: cfg.IncludeTests,
	}
	loaded, err := packages.Load(conf, cfg.Patterns...)
	if err != nil {
		return nil, err
	}

	// a test variant has all the files of the package it augments, so only
	// the variant is processed
	hasVariant := map[string]bool{}
	for _, p := range loaded {
		if strings.Contains(p.ID, " [") {
			hasVariant[p.PkgPath] = true
		}
	}
	var pkgs []*Package
	for _, p := range loaded {
		if strings.HasSuffix(p.ID, ".test") || (!strings.Contains(p.ID, " [") && hasVariant[p.PkgPath]) {
			continue
		}
		if len(p.Errors) > 0 {
			return nil, fmt.Errorf("could not load %s: %w", p.PkgPath, p.Errors[0])
		}
		pkg := &Package{
			Path:  p.PkgPath,
			Name:  p.Name,
			Fset:  p.Fset,
			Files: p.Syntax,
			Types: p.Types,
			Info:  p.TypesInfo,
		}
		if len(p.GoFiles) > 0 {
			pkg.Dir = filepath.Dir(p.GoFiles[0])
		}
		pkgs = append(pkgs, pkg)
	}
	return pkgs, nil
}

// Run invokes the configured processors for the given packages, one round
// per package and then the terminal round. If the annotations of a package
// cannot be parsed or resolved, an error is reported and the package's round
// is skipped. If any error diagnostics were reported, Run returns an
// *ErrorsReported.
func (cfg *Config) Run(pkgs []*Package) error {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	sources := cfg.OutputFactory
	if sources == nil {
		sources = DefaultOutputFactory("")
	}
	outputDir := cfg.OutputDir
	if outputDir == "" {
		outputDir = "."
	}

	msgr := NewMessager(out, logger)
	env := &Environment{
		Options:  cfg.Options,
		Types:    goTypes{},
		Filer:    NewDirFiler(outputDir),
		Messager: msgr,
		Sources:  sources,
		Logger:   logger,
	}
	if env.Options == nil {
		env.Options = map[string]string{}
	}

	procs := cfg.Processors
	if len(procs) == 0 {
		var err error
		if procs, err = NewProcessors(AllRegisteredProcessors()...); err != nil {
			return err
		}
	}
	for _, proc := range procs {
		if err := proc.Init(env); err != nil {
			return err
		}
	}

	h := newHost()
	for _, pkg := range pkgs {
		logger.Info("processing package", "package", pkg.Path)
		ctx, err := h.newContext(pkg)
		if err != nil {
			msgr.reportError(err)
			continue
		}
		round := &Round{ctx: ctx}
		for _, proc := range procs {
			if err := proc.Process(round); err != nil {
				return err
			}
		}
	}

	logger.Debug("processing terminal round")
	final := &Round{over: true}
	for _, proc := range procs {
		if err := proc.Process(final); err != nil {
			return err
		}
	}

	if n := msgr.ErrorCount(); n > 0 {
		return &ErrorsReported{Count: n}
	}
	return nil
}

// Round is one processing round. Every round but the terminal one presents
// the annotated elements of one package.
type Round struct {
	ctx  *Context
	over bool
}

// ProcessingOver is true for the terminal round, which has no elements.
func (r *Round) ProcessingOver() bool {
	return r.over
}

// Context returns the package being processed in this round, or nil in the
// terminal round.
func (r *Round) Context() *Context {
	return r.ctx
}

// ElementsAnnotatedWith returns the elements of this round's package that
// have an annotation of the given qualified type name.
func (r *Round) ElementsAnnotatedWith(annotationType string) []registry.Element {
	if r.ctx == nil {
		return nil
	}
	return r.ctx.ElementsAnnotatedWith(annotationType)
}
