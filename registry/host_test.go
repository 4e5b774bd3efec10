package registry

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"sort"
)

// This file holds an in-memory host used by the tests in this package.

const (
	providesAnno = "test.annotations.Provides"
	suppressAnno = "test.annotations.SuppressWarnings"
)

type modelElement struct {
	kind       ElementKind
	qname      string
	simple     string
	enclosing  Element
	annos      []Annotation
	typeParams bool
}

func (e *modelElement) Kind() ElementKind         { return e.kind }
func (e *modelElement) QualifiedName() string     { return e.qname }
func (e *modelElement) SimpleName() string        { return e.simple }
func (e *modelElement) Enclosing() Element        { return e.enclosing }
func (e *modelElement) Annotations() []Annotation { return e.annos }
func (e *modelElement) String() string            { return e.qname }
func (e *modelElement) HasTypeParams() bool       { return e.typeParams }
func (e *modelElement) TypeToken() interface{}    { return e }

func pkg(name string, annos ...Annotation) *modelElement {
	simple := name
	if i := lastDot(name); i >= 0 {
		simple = name[i+1:]
	}
	return &modelElement{kind: KindPackage, qname: name, simple: simple, annos: annos}
}

func declare(kind ElementKind, enclosing Element, name string, annos ...Annotation) *modelElement {
	qname := name
	if enclosing.QualifiedName() != "" {
		qname = enclosing.QualifiedName() + "." + name
	}
	return &modelElement{kind: kind, qname: qname, simple: name, enclosing: enclosing, annos: annos}
}

func class(enclosing Element, name string, annos ...Annotation) *modelElement {
	return declare(KindClass, enclosing, name, annos...)
}

func iface(enclosing Element, name string) *modelElement {
	return declare(KindInterface, enclosing, name)
}

func genericIface(enclosing Element, name string) *modelElement {
	e := declare(KindInterface, enclosing, name)
	e.typeParams = true
	return e
}

func lastDot(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '.' {
			return i
		}
	}
	return -1
}

func provides(ifaces ...DeclaredType) Annotation {
	elems := make([]Value, len(ifaces))
	for i, t := range ifaces {
		elems[i] = TypeValue{Type: t}
	}
	return Annotation{Type: providesAnno, Values: map[string]Value{ValueElement: ArrayValue{Elems: elems}}}
}

func suppress(categories ...string) Annotation {
	elems := make([]Value, len(categories))
	for i, c := range categories {
		elems[i] = StringValue{S: c}
	}
	return Annotation{Type: suppressAnno, Values: map[string]Value{ValueElement: ArrayValue{Elems: elems}}}
}

// modelTypes answers subtype queries from explicit relations.
type modelTypes struct {
	exact  map[[2]DeclaredType]bool
	erased map[[2]DeclaredType]bool
	err    error
	panic  interface{}
	calls  int
}

func newModelTypes() *modelTypes {
	return &modelTypes{exact: map[[2]DeclaredType]bool{}, erased: map[[2]DeclaredType]bool{}}
}

func (m *modelTypes) implements(t, iface DeclaredType) *modelTypes {
	m.exact[[2]DeclaredType{t, iface}] = true
	return m
}

func (m *modelTypes) implementsRaw(t, iface DeclaredType) *modelTypes {
	m.erased[[2]DeclaredType{t, iface}] = true
	return m
}

func (m *modelTypes) IsSubtype(t, iface DeclaredType) (bool, error) {
	m.calls++
	if m.panic != nil {
		panic(m.panic)
	}
	if m.err != nil {
		return false, m.err
	}
	return m.exact[[2]DeclaredType{t, iface}], nil
}

func (m *modelTypes) IsSubtypeOfErasure(t, iface DeclaredType) (bool, error) {
	m.calls++
	key := [2]DeclaredType{t, iface}
	return m.exact[key] || m.erased[key], nil
}

// memFiler is an output root held in memory.
type memFiler struct {
	files     map[string][]byte
	openErr   map[string]error
	createErr map[string]error
	writes    []string
}

func newMemFiler() *memFiler {
	return &memFiler{files: map[string][]byte{}, openErr: map[string]error{}, createErr: map[string]error{}}
}

func (f *memFiler) GetResource(path string) (io.ReadCloser, error) {
	if err := f.openErr[path]; err != nil {
		return nil, err
	}
	data, ok := f.files[path]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: path, Err: fs.ErrNotExist}
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *memFiler) CreateResource(path string) (io.WriteCloser, error) {
	if err := f.createErr[path]; err != nil {
		return nil, err
	}
	return &memFile{filer: f, path: path}, nil
}

type memFile struct {
	filer *memFiler
	path  string
	buf   bytes.Buffer
}

func (m *memFile) Write(p []byte) (int, error) {
	return m.buf.Write(p)
}

func (m *memFile) Close() error {
	m.filer.files[m.path] = m.buf.Bytes()
	m.filer.writes = append(m.filer.writes, m.path)
	return nil
}

func (f *memFiler) paths() []string {
	var paths []string
	for p := range f.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

type message struct {
	kind Kind
	msg  string
	el   Element
}

// recorder is a Messager that keeps everything it is given.
type recorder struct {
	msgs []message
}

func (r *recorder) PrintMessage(kind Kind, msg string, el Element, _ *Annotation) {
	r.msgs = append(r.msgs, message{kind: kind, msg: msg, el: el})
}

func (r *recorder) ofKind(k Kind) []string {
	var msgs []string
	for _, m := range r.msgs {
		if m.kind == k {
			msgs = append(msgs, m.msg)
		}
	}
	return msgs
}

// modelRound is a Round over a fixed set of elements.
type modelRound struct {
	over  bool
	elems []Element
}

func (r modelRound) ProcessingOver() bool {
	return r.over
}

func (r modelRound) ElementsAnnotatedWith(annotationType string) []Element {
	var els []Element
	for _, el := range r.elems {
		if _, ok := FindAnnotation(el, annotationType); ok {
			els = append(els, el)
		}
	}
	return els
}

type testHost struct {
	types *modelTypes
	filer *memFiler
	msgs  *recorder
}

func newTestHost() *testHost {
	return &testHost{types: newModelTypes(), filer: newMemFiler(), msgs: &recorder{}}
}

func (h *testHost) driver(options ...string) *Driver {
	opts := map[string]string{}
	for _, o := range options {
		opts[o] = ""
	}
	env := Environment{Options: opts, Types: h.types, Filer: h.filer, Messager: h.msgs}
	return NewDriver(env, WithAnnotation(providesAnno), WithSuppressAnnotation(suppressAnno))
}

// run drives a full compilation: one round per element group, then the
// terminal round.
func (h *testHost) run(d *Driver, rounds ...[]Element) {
	for _, els := range rounds {
		d.Process(modelRound{elems: els})
	}
	d.Process(modelRound{over: true})
}

var errHost = errors.New("host failure")

func elements(els ...*modelElement) []Element {
	res := make([]Element, len(els))
	for i, e := range els {
		res[i] = e
	}
	return res
}

func file(names ...string) string {
	var buf bytes.Buffer
	for _, n := range names {
		fmt.Fprintln(&buf, n)
	}
	return buf.String()
}
