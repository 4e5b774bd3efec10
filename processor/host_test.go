package processor

import (
	"bytes"
	"fmt"
	"go/ast"
	"go/importer"
	goparser "go/parser"
	"go/token"
	"go/types"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

// testLoader type-checks packages from source held in memory. Packages can
// import packages loaded earlier by the same loader, as well as the standard
// library.
type testLoader struct {
	t    *testing.T
	fset *token.FileSet
	pkgs map[string]*types.Package
	std  types.Importer
}

func newTestLoader(t *testing.T) *testLoader {
	return &testLoader{
		t:    t,
		fset: token.NewFileSet(),
		pkgs: map[string]*types.Package{},
		std:  importer.Default(),
	}
}

func (l *testLoader) Import(path string) (*types.Package, error) {
	if p, ok := l.pkgs[path]; ok {
		return p, nil
	}
	if p, err := l.std.Import(path); err == nil {
		return p, nil
	}
	return nil, fmt.Errorf("package %q not found", path)
}

// load type-checks a package whose files are named file0.go, file1.go, and
// so on.
func (l *testLoader) load(path string, srcs ...string) *Package {
	files := map[string]string{}
	for i, src := range srcs {
		files[fmt.Sprintf("file%d.go", i)] = src
	}
	return l.loadFiles(path, files)
}

// loadFiles type-checks a package made of the given files, keyed by base
// name. It fails the test if any file does not compile.
func (l *testLoader) loadFiles(path string, srcs map[string]string) *Package {
	names := make([]string, 0, len(srcs))
	for name := range srcs {
		names = append(names, name)
	}
	sort.Strings(names)
	var files []*ast.File
	for _, name := range names {
		f, err := goparser.ParseFile(l.fset, path+"/"+name, srcs[name], goparser.ParseComments)
		require.NoError(l.t, err)
		files = append(files, f)
	}
	info := &types.Info{
		Types: map[ast.Expr]types.TypeAndValue{},
		Defs:  map[*ast.Ident]types.Object{},
		Uses:  map[*ast.Ident]types.Object{},
	}
	conf := types.Config{Importer: l}
	tpkg, err := conf.Check(path, l.fset, files, info)
	require.NoError(l.t, err)
	l.pkgs[path] = tpkg
	return &Package{
		Path:  path,
		Name:  tpkg.Name(),
		Dir:   l.t.TempDir(),
		Fset:  l.fset,
		Files: files,
		Types: tpkg,
		Info:  info,
	}
}

func (l *testLoader) context(pkg *Package) *Context {
	ctx, err := newHost().newContext(pkg)
	require.NoError(l.t, err)
	return ctx
}

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type runResult struct {
	outDir string
	diags  string
	err    error
}

// run processes the given packages with all registered processors, writing
// registry files under outDir.
func run(t *testing.T, outDir string, options map[string]string, pkgs ...*Package) runResult {
	var buf bytes.Buffer
	cfg := Config{
		OutputDir: outDir,
		Options:   options,
		Output:    &buf,
		Logger:    quietLogger,
	}
	err := cfg.Run(pkgs)
	return runResult{outDir: outDir, diags: buf.String(), err: err}
}

func (r runResult) registryFile(t *testing.T, iface string) (string, bool) {
	b, err := os.ReadFile(filepath.Join(r.outDir, "META-INF", "services", iface))
	if os.IsNotExist(err) {
		return "", false
	}
	require.NoError(t, err)
	return string(b), true
}

func writeRegistryFile(t *testing.T, outDir, iface, content string) {
	dir := filepath.Join(outDir, "META-INF", "services")
	require.NoError(t, os.MkdirAll(dir, os.ModePerm))
	require.NoError(t, os.WriteFile(filepath.Join(dir, iface), []byte(content), 0666))
}

var verify = map[string]string{"verify": ""}

// readGenerated reads a file generated into pkg's directory and checks that
// it compiles together with srcs, the package's hand-written files.
func readGenerated(t *testing.T, pkg *Package, name string, srcs ...string) string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join(pkg.Dir, name))
	require.NoError(t, err)
	files := map[string]string{name: string(b)}
	for i, src := range srcs {
		files[fmt.Sprintf("file%d.go", i)] = src
	}
	newTestLoader(t).loadFiles(pkg.Path, files)
	return string(b)
}
