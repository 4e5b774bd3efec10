package processor

import (
	"bytes"
	"errors"
	"fmt"
	"go/ast"
	"go/constant"
	"go/token"
	"go/types"
	"path"
	"strconv"
	"strings"
	"text/scanner"
	"unicode"
	"unicode/utf8"

	"github.com/jhump/autoserv/parser"
	"github.com/jhump/autoserv/registry"
)

// Context represents one package being processed. It provides access to all
// annotated elements in the package.
type Context struct {
	// Package holds the syntax and type information of the package.
	Package *Package

	host         *host
	elements     []registry.Element
	byAnnotation map[string][]registry.Element
	processed    map[*ast.CommentGroup]struct{}
}

func (h *host) newContext(pkg *Package) (*Context, error) {
	ctx := &Context{
		Package:      pkg,
		host:         h,
		byAnnotation: map[string][]registry.Element{},
		processed:    map[*ast.CommentGroup]struct{}{},
	}
	if err := ctx.computeAllAnnotations(); err != nil {
		return nil, err
	}
	return ctx, nil
}

// Elements returns all elements in the package that have annotations, in
// source order. The package itself is first if its doc comment has
// annotations.
func (c *Context) Elements() []registry.Element {
	return c.elements
}

// ElementsAnnotatedWith returns the elements in the package that have an
// annotation of the given qualified type name.
func (c *Context) ElementsAnnotatedWith(annotationType string) []registry.Element {
	return c.byAnnotation[annotationType]
}

// PackageElement returns the element for the package being processed.
func (c *Context) PackageElement() *PackageElement {
	return c.host.packageElement(c.Package.Types)
}

func (c *Context) addElement(el registry.Element) {
	c.elements = append(c.elements, el)
	seen := map[string]bool{}
	for _, a := range el.Annotations() {
		if !seen[a.Type] {
			seen[a.Type] = true
			c.byAnnotation[a.Type] = append(c.byAnnotation[a.Type], el)
		}
	}
}

func (c *Context) computeAllAnnotations() error {
	pe := c.PackageElement()
	for _, file := range c.Package.Files {
		annos, err := c.parseAnnotations(file, file.Doc)
		if err != nil {
			return err
		}
		if len(annos) > 0 && len(pe.annos) == 0 {
			pe.pos = c.Package.Fset.Position(file.Doc.Pos())
		}
		pe.annos = append(pe.annos, annos...)
	}
	if len(pe.annos) > 0 {
		c.addElement(pe)
	}

	for _, file := range c.Package.Files {
		if err := c.computeAnnotationsFromFile(file); err != nil {
			return err
		}
	}
	return nil
}

func (c *Context) computeAnnotationsFromFile(file *ast.File) error {
	pe := c.PackageElement()
	for _, decl := range file.Decls {
		switch decl := decl.(type) {
		case *ast.GenDecl:
			for _, s := range decl.Specs {
				switch spec := s.(type) {
				case *ast.ValueSpec:
					doc := spec.Doc
					if doc == nil || len(doc.List) == 0 {
						doc = decl.Doc
					}
					for _, id := range spec.Names {
						if err := c.computeAnnotationsFromObject(file, id, doc, pe); err != nil {
							return err
						}
					}
				case *ast.TypeSpec:
					doc := spec.Doc
					if doc == nil || len(doc.List) == 0 {
						doc = decl.Doc
					}
					if err := c.computeAnnotationsFromType(file, spec, doc); err != nil {
						return err
					}
				}
			}
		case *ast.FuncDecl:
			var enclosing registry.Element = pe
			if decl.Recv != nil {
				if fn, ok := c.Package.Info.Defs[decl.Name].(*types.Func); ok {
					if tn := receiverType(fn); tn != nil {
						enclosing = c.host.typeElement(tn)
					}
				}
			}
			if err := c.computeAnnotationsFromObject(file, decl.Name, decl.Doc, enclosing); err != nil {
				return err
			}
		}
	}

	var err error
	ast.Inspect(file, func(node ast.Node) bool {
		if err != nil {
			return false
		}
		var doc *ast.CommentGroup
		switch node := node.(type) {
		case *ast.ImportSpec:
			doc = node.Doc
		case *ast.TypeSpec:
			doc = node.Doc
		case *ast.ValueSpec:
			doc = node.Doc
		case *ast.GenDecl:
			doc = node.Doc
		case *ast.FuncDecl:
			doc = node.Doc
		case *ast.Field:
			doc = node.Doc
		}
		if _, ok := c.processed[doc]; ok {
			return true
		}
		if pos, found := findAnnotation(c.Package.Fset, doc); found {
			err = NewErrorWithPosition(pos, errors.New("annotations are only allowed on the package and its top-level declarations, "+
				"or on the fields and methods of top-level types, not on embedded types or local declarations"))
			return false
		}
		return true
	})
	return err
}

func receiverType(fn *types.Func) *types.TypeName {
	recv := fn.Type().(*types.Signature).Recv()
	if recv == nil {
		return nil
	}
	t := recv.Type()
	if ptr, ok := t.(*types.Pointer); ok {
		t = ptr.Elem()
	}
	if named, ok := t.(*types.Named); ok {
		return named.Origin().Obj()
	}
	return nil
}

func (c *Context) computeAnnotationsFromObject(file *ast.File, id *ast.Ident, doc *ast.CommentGroup, enclosing registry.Element) error {
	obj := c.Package.Info.Defs[id]
	if obj == nil {
		// blank identifiers and the like
		return nil
	}
	annos, err := c.parseAnnotations(file, doc)
	if err != nil {
		return err
	}
	if len(annos) == 0 {
		return nil
	}
	c.addElement(&ObjectElement{
		obj:       obj,
		enclosing: enclosing,
		annos:     annos,
		pos:       c.Package.Fset.Position(id.Pos()),
	})
	return nil
}

func (c *Context) computeAnnotationsFromType(file *ast.File, spec *ast.TypeSpec, doc *ast.CommentGroup) error {
	obj, ok := c.Package.Info.Defs[spec.Name].(*types.TypeName)
	if !ok {
		return nil
	}
	te := c.host.typeElement(obj)
	te.pos = c.Package.Fset.Position(spec.Name.Pos())
	annos, err := c.parseAnnotations(file, doc)
	if err != nil {
		return err
	}
	if len(annos) > 0 && obj.IsAlias() {
		return NewErrorWithPosition(te.pos, fmt.Errorf("type alias %s cannot have annotations", obj.Name()))
	}
	te.annos = annos

	switch t := spec.Type.(type) {
	case *ast.StructType:
		if err := c.computeAnnotationsFromFields(file, te, t); err != nil {
			return err
		}
	case *ast.InterfaceType:
		for _, m := range t.Methods.List {
			// embedded interfaces and type sets have no names
			for _, id := range m.Names {
				if err := c.computeAnnotationsFromObject(file, id, m.Doc, te); err != nil {
					return err
				}
			}
		}
	}
	if len(annos) > 0 {
		c.addElement(te)
	}
	return nil
}

func (c *Context) computeAnnotationsFromFields(file *ast.File, te *TypeElement, st *ast.StructType) error {
	strct, ok := te.obj.Type().Underlying().(*types.Struct)
	if !ok {
		return nil
	}
	// fields in the syntax tree are in the same order as in the type, with
	// one entry per name (or one for an embedded field)
	i := 0
	for _, f := range st.Fields.List {
		annos, err := c.parseAnnotations(file, f.Doc)
		if err != nil {
			return err
		}
		idents := f.Names
		if len(idents) == 0 {
			idents = []*ast.Ident{nil}
		}
		for _, id := range idents {
			if i >= strct.NumFields() {
				return nil
			}
			v := strct.Field(i)
			i++
			pos := v.Pos()
			if id != nil {
				pos = id.Pos()
			}
			fe := &ObjectElement{
				obj:       v,
				enclosing: te,
				annos:     annos,
				pos:       c.Package.Fset.Position(pos),
			}
			te.fields = append(te.fields, fe)
			if len(annos) > 0 {
				c.addElement(fe)
			}
		}
	}
	return nil
}

func (c *Context) parseAnnotations(file *ast.File, doc *ast.CommentGroup) ([]registry.Annotation, error) {
	if doc == nil {
		return nil, nil
	}
	c.processed[doc] = struct{}{}
	buf, adjuster := c.extractAnnotations(doc)
	if buf == nil {
		return nil, nil
	}

	parsed, perr := parser.ParseAnnotations("", buf)
	if perr != nil {
		pos := adjuster.adjustPosition(perr.Pos())
		return nil, NewErrorWithPosition(pos, perr.Underlying())
	}

	annos := make([]registry.Annotation, len(parsed))
	for i, a := range parsed {
		var err error
		annos[i], err = c.convertAnnotation(file, a, adjuster)
		if err != nil {
			return nil, err
		}
	}
	return annos, nil
}

func (c *Context) convertAnnotation(file *ast.File, a parser.Annotation, adjuster posAdjuster) (registry.Annotation, error) {
	pkgPath, err := c.resolveQualifier(file, a.Type, adjuster)
	if err != nil {
		return registry.Annotation{}, err
	}
	anno := registry.Annotation{
		Type:   pkgPath + "." + a.Type.Name,
		Values: map[string]registry.Value{},
		Pos:    adjuster.adjustPosition(a.Pos),
	}

	var unkeyed []registry.Value
	keyed := false
	for _, e := range a.Args {
		v, err := c.convertValue(file, e.Value, adjuster)
		if err != nil {
			return registry.Annotation{}, err
		}
		if !e.HasKey {
			unkeyed = append(unkeyed, v)
			continue
		}
		keyed = true
		name := elementName(e.Key.Name)
		if _, ok := anno.Values[name]; ok {
			pos := adjuster.adjustPosition(e.Key.Pos)
			return registry.Annotation{}, NewErrorWithPosition(pos, fmt.Errorf("element %s is given more than once", e.Key.Name))
		}
		anno.Values[name] = v
	}
	if keyed && len(unkeyed) > 0 {
		pos := adjuster.adjustPosition(a.Type.Pos)
		return registry.Annotation{}, NewErrorWithPosition(pos, fmt.Errorf("annotation %v mixes keyed and unkeyed values", a.Type))
	}
	switch len(unkeyed) {
	case 0:
	case 1:
		anno.Values[registry.ValueElement] = unkeyed[0]
	default:
		anno.Values[registry.ValueElement] = registry.ArrayValue{Elems: unkeyed}
	}
	return anno, nil
}

// elementName maps a key in annotation source, which is spelled like an
// exported struct field ("Value"), to an element name ("value").
func elementName(key string) string {
	r, sz := utf8.DecodeRuneInString(key)
	return string(unicode.ToLower(r)) + key[sz:]
}

func (c *Context) convertValue(file *ast.File, exp parser.ExpressionNode, adjuster posAdjuster) (registry.Value, error) {
	switch exp := exp.(type) {
	case parser.LiteralNode:
		if exp.Val.Kind() != constant.String {
			pos := adjuster.adjustPosition(exp.Pos())
			return nil, NewErrorWithPosition(pos, fmt.Errorf("unsupported value %s: only strings, types, and {...} lists are allowed", exp.Val.ExactString()))
		}
		return registry.StringValue{S: constant.StringVal(exp.Val)}, nil
	case parser.RefNode:
		te, err := c.resolveType(file, exp.Ident, adjuster)
		if err != nil {
			return nil, err
		}
		return registry.TypeValue{Type: te}, nil
	case parser.AggregateNode:
		elems := make([]registry.Value, 0, len(exp.Contents))
		for _, e := range exp.Contents {
			if e.HasKey {
				pos := adjuster.adjustPosition(e.Key.Pos)
				return nil, NewErrorWithPosition(pos, errors.New("keys are not allowed inside {...} lists"))
			}
			v, err := c.convertValue(file, e.Value, adjuster)
			if err != nil {
				return nil, err
			}
			elems = append(elems, v)
		}
		return registry.ArrayValue{Elems: elems}, nil
	default:
		pos := adjuster.adjustPosition(exp.Pos())
		return nil, NewErrorWithPosition(pos, fmt.Errorf("unsupported value %T", exp))
	}
}

// resolveQualifier returns the import path for the qualifier of an annotation
// type. An unqualified type is in the current package. Otherwise, the
// qualifier must name one of the file's imports, either by its alias or (for
// imports without one or with "_") by the imported package's name. The
// "autoserv" qualifier resolves to this module's annotations package even
// without an import.
func (c *Context) resolveQualifier(file *ast.File, id parser.Identifier, adjuster posAdjuster) (string, error) {
	if id.PackageAlias == "" {
		return c.Package.Types.Path(), nil
	}
	pos := adjuster.adjustPosition(id.Pos)
	imported, err := c.findImport(file, id.PackageAlias, pos)
	if err != nil {
		return "", err
	}
	if imported != "" {
		return imported, nil
	}
	if id.PackageAlias == autoservQualifier {
		return autoservPkgPath, nil
	}
	return "", NewErrorWithPosition(pos, fmt.Errorf("package %s is not imported", id.PackageAlias))
}

func (c *Context) findImport(file *ast.File, alias string, pos token.Position) (string, error) {
	found := ""
	for _, imp := range file.Imports {
		impPath, err := strconv.Unquote(imp.Path.Value)
		if err != nil {
			continue
		}
		name := ""
		if imp.Name != nil && imp.Name.Name != "_" && imp.Name.Name != "." {
			name = imp.Name.Name
		} else if imp.Name == nil || imp.Name.Name == "_" {
			name = c.importedPackageName(impPath)
		}
		if name != alias {
			continue
		}
		if found != "" && found != impPath {
			return "", NewErrorWithPosition(pos, fmt.Errorf("package name %s is ambiguous; could be %q or %q", alias, found, impPath))
		}
		found = impPath
	}
	return found, nil
}

func (c *Context) importedPackageName(impPath string) string {
	for _, p := range c.Package.Types.Imports() {
		if p.Path() == impPath {
			return p.Name()
		}
	}
	return path.Base(impPath)
}

func (c *Context) importedPackage(impPath string) *types.Package {
	for _, p := range c.Package.Types.Imports() {
		if p.Path() == impPath {
			return p
		}
	}
	return nil
}

func (c *Context) resolveType(file *ast.File, id parser.Identifier, adjuster posAdjuster) (*TypeElement, error) {
	pos := adjuster.adjustPosition(id.Pos)
	var obj types.Object
	if id.PackageAlias == "" {
		obj = c.Package.Types.Scope().Lookup(id.Name)
		if obj == nil {
			obj = types.Universe.Lookup(id.Name)
		}
	} else {
		impPath, err := c.findImport(file, id.PackageAlias, pos)
		if err != nil {
			return nil, err
		}
		if impPath == "" {
			return nil, NewErrorWithPosition(pos, fmt.Errorf("package %s is not imported", id.PackageAlias))
		}
		if p := c.importedPackage(impPath); p != nil {
			obj = p.Scope().Lookup(id.Name)
		}
		if obj != nil && !obj.Exported() {
			obj = nil
		}
	}
	if obj == nil {
		return nil, NewErrorWithPosition(pos, fmt.Errorf("symbol %v does not exist", id))
	}
	tn, ok := obj.(*types.TypeName)
	if !ok {
		return nil, NewErrorWithPosition(pos, fmt.Errorf("%v is not a type", id))
	}
	return c.host.typeElement(tn), nil
}

// commentLine is one line of a doc comment, without the comment markers.
type commentLine struct {
	text  string
	pos   token.Position // of the first byte of text
	block bool           // from a /* */ comment
}

func splitComment(fset *token.FileSet, doc *ast.CommentGroup) []commentLine {
	if doc == nil {
		return nil
	}
	var lines []commentLine
	for _, cmt := range doc.List {
		block := strings.HasPrefix(cmt.Text, "/*")
		txt := cmt.Text[2:]
		if block {
			txt = strings.TrimSuffix(txt, "*/")
		}
		pos := fset.Position(cmt.Slash)
		pos.Offset += 2
		pos.Column += 2
		for _, line := range strings.Split(txt, "\n") {
			lines = append(lines, commentLine{text: line, pos: pos, block: block})
			pos.Offset += len(line) + 1
			pos.Line++
			pos.Column = 1
		}
	}
	return lines
}

// annotationStart returns the offset of the '@' that starts an annotation
// line, or -1 for any other line.
func annotationStart(line string) int {
	trimmed := strings.TrimLeftFunc(line, unicode.IsSpace)
	if !strings.HasPrefix(trimmed, "@") {
		return -1
	}
	return len(line) - len(trimmed)
}

// extractAnnotations returns the annotation text of a doc comment: everything
// from the first line that starts with '@' to the end of the comment. Lines
// before that are ordinary documentation. Annotations do not carry across a
// switch between // and /* */ comments. The returned adjuster maps positions
// in the text back to the source file.
func (c *Context) extractAnnotations(doc *ast.CommentGroup) (*bytes.Buffer, posAdjuster) {
	lines := splitComment(c.Package.Fset, doc)
	first := -1
	for i, l := range lines {
		if i > 0 && l.block != lines[i-1].block {
			first = -1
		}
		if first < 0 && annotationStart(l.text) >= 0 {
			first = i
		}
	}
	if first < 0 {
		return nil, nil
	}

	var buf bytes.Buffer
	adjuster := make(posAdjuster, 0, len(lines)-first+1)
	for _, l := range lines[first:] {
		adjuster = append(adjuster, posAdj{outOffset: buf.Len(), inPos: l.pos})
		buf.WriteString(l.text)
		buf.WriteByte('\n')
	}
	// end of input maps to the end of the last line
	last := lines[len(lines)-1]
	end := last.pos
	end.Offset += len(last.text)
	end.Column += len(last.text)
	adjuster = append(adjuster, posAdj{outOffset: buf.Len(), inPos: end})
	return &buf, adjuster
}

type posAdj struct {
	outOffset int
	inPos     token.Position
}

// posAdjuster has one entry per line of extracted annotation text, plus one
// for the end of input.
type posAdjuster []posAdj

func (a posAdjuster) adjustPosition(pos scanner.Position) token.Position {
	if len(a) == 0 {
		return token.Position{}
	}
	line := pos.Line - 1
	if line < 0 {
		line = 0
	} else if line >= len(a) {
		line = len(a) - 1
	}
	el := a[line]
	return token.Position{
		Filename: el.inPos.Filename,
		Line:     el.inPos.Line,
		Column:   el.inPos.Column + pos.Column - 1,
		Offset:   el.inPos.Offset + (pos.Offset - el.outOffset),
	}
}

// findAnnotation returns the position of the first annotation in doc.
func findAnnotation(fset *token.FileSet, doc *ast.CommentGroup) (token.Position, bool) {
	for _, l := range splitComment(fset, doc) {
		if at := annotationStart(l.text); at >= 0 {
			pos := l.pos
			pos.Offset += at
			pos.Column += at
			return pos, true
		}
	}
	return token.Position{}, false
}
