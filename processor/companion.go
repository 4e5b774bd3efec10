package processor

import (
	"fmt"
	"go/token"
	"go/types"
	"path/filepath"
	"unicode"
	"unicode/utf8"

	"github.com/jhump/gopoet"

	"github.com/jhump/autoserv/registry"
)

// companionFile is a generated source file that sits next to the sources of
// the package it is generated for. Each generator writes its own file so they
// never overwrite one another's output.
type companionFile struct {
	pkg  *Package
	file *gopoet.GoFile
	// elements added so far
	count int
}

// newCompanionFile creates an empty file named "<package>.<suffix>".
func newCompanionFile(pkg *Package, suffix string) *companionFile {
	name := fmt.Sprintf("%s.%s", pkg.Name, suffix)
	return &companionFile{pkg: pkg, file: gopoet.NewGoFile(name, pkg.Path, pkg.Name)}
}

func (f *companionFile) addFunc(fn *gopoet.FuncSpec) {
	f.file.AddElement(fn)
	f.count++
}

func (f *companionFile) addType(ts *gopoet.TypeSpec) {
	f.file.AddType(ts)
	f.count++
}

// declaredElsewhere reports whether obj is declared somewhere other than a
// previous run's copy of this file. Declarations in that copy are about to be
// replaced, so they do not count as conflicts.
func (f *companionFile) declaredElsewhere(obj types.Object) bool {
	if obj == nil {
		return false
	}
	if !obj.Pos().IsValid() {
		return true
	}
	return filepath.Base(f.pkg.Fset.Position(obj.Pos()).Filename) != f.file.Name
}

// scopeConflict reports whether name is already taken at package scope by a
// declaration outside this file.
func (f *companionFile) scopeConflict(name string) bool {
	return f.declaredElsewhere(f.pkg.Types.Scope().Lookup(name))
}

// write creates the file in the package directory. It does nothing if no
// elements were added. Failures are reported as errors at pos.
func (f *companionFile) write(env *Environment, pos token.Position) {
	if f.count == 0 {
		return
	}
	path := filepath.Join(f.pkg.Dir, f.file.Name)
	env.Logger.Debug("generating file", "path", path, "elements", f.count)
	out, err := env.Sources(path)
	if err != nil {
		env.Messager.Report(registry.Error, pos, fmt.Sprintf("Unable to create %s, %v", path, err))
		return
	}
	err = gopoet.WriteGoFile(out, f.file)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		env.Messager.Report(registry.Error, pos, fmt.Sprintf("Unable to create %s, %v", path, err))
	}
}

func upperFirst(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[n:]
}

func isStruct(te *TypeElement) bool {
	_, ok := te.Obj().Type().Underlying().(*types.Struct)
	return ok
}
