package registry

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"runtime/debug"
	"strings"
)

// Recognised processor options. Options are enabled by presence; their
// values are ignored.
const (
	OptionVerify = "verify"
	OptionDebug  = "debug"
)

// Filer gives access to resources under the output root. Paths are
// slash-separated and relative to that root.
type Filer interface {
	// GetResource opens an existing resource. If there is none, the returned
	// error satisfies errors.Is(err, fs.ErrNotExist).
	GetResource(path string) (io.ReadCloser, error)
	// CreateResource creates (or truncates) a resource for writing.
	CreateResource(path string) (io.WriteCloser, error)
}

// Round is one processing round, as delivered by the host.
type Round interface {
	// ProcessingOver is true for the terminal round.
	ProcessingOver() bool
	// ElementsAnnotatedWith returns the elements that carry an annotation of
	// the given qualified type name.
	ElementsAnnotatedWith(annotationType string) []Element
}

// Environment is what the host provides to a Driver.
type Environment struct {
	Options  map[string]string
	Types    Types
	Filer    Filer
	Messager Messager
	// Logger receives debug logging. If nil, slog.Default() is used.
	Logger *slog.Logger
}

// State is the lifecycle state of a Driver.
type State int

const (
	Collecting State = iota
	Emitting
	Done
)

func (s State) String() string {
	switch s {
	case Collecting:
		return "collecting"
	case Emitting:
		return "emitting"
	case Done:
		return "done"
	default:
		return fmt.Sprintf("?%d?", int(s))
	}
}

// DriverOption customizes a Driver.
type DriverOption func(*Driver)

// WithAnnotation sets the qualified name of the provider annotation. Its
// simple name (the part after the last '.') is used in diagnostics.
func WithAnnotation(qualifiedName string) DriverOption {
	return func(d *Driver) {
		d.annotation = qualifiedName
	}
}

// WithSuppressAnnotation sets the qualified name of the annotation whose
// value lists suppressed warning categories.
func WithSuppressAnnotation(qualifiedName string) DriverOption {
	return func(d *Driver) {
		d.checker.SuppressAnnotation = qualifiedName
	}
}

// Default annotation names, used when no DriverOption overrides them.
const (
	DefaultAnnotation         = "AutoService"
	DefaultSuppressAnnotation = "SuppressWarnings"
)

// Driver builds service registry files. It collects providers over any number
// of rounds and then, in the terminal round, merges them with the registry
// files already present under the output root and writes the result.
//
// A Driver is not safe for concurrent use; the host invokes it from one
// goroutine, one round at a time.
type Driver struct {
	env        Environment
	annotation string
	checker    Checker
	debug      bool
	log        *slog.Logger
	index      *Index
	state      State
}

// NewDriver returns a Driver in the Collecting state.
func NewDriver(env Environment, opts ...DriverOption) *Driver {
	d := &Driver{
		env:        env,
		annotation: DefaultAnnotation,
		checker: Checker{
			Types:              env.Types,
			SuppressAnnotation: DefaultSuppressAnnotation,
		},
		index: NewIndex(),
	}
	_, d.checker.Verify = env.Options[OptionVerify]
	_, d.debug = env.Options[OptionDebug]
	d.log = env.Logger
	if d.log == nil {
		d.log = slog.Default()
	}
	for _, opt := range opts {
		opt(d)
	}
	d.checker.AnnotationName = simpleName(d.annotation)
	return d
}

func simpleName(qualifiedName string) string {
	return qualifiedName[strings.LastIndexByte(qualifiedName, '.')+1:]
}

// State returns the driver's current lifecycle state.
func (d *Driver) State() State {
	return d.state
}

// Index returns the providers collected so far.
func (d *Driver) Index() *Index {
	return d.index
}

// Process handles one round: a non-terminal round is passed to
// ProcessAnnotated and the terminal round to Emit. Failures are reported as
// diagnostics, never returned, so Process always returns true (the
// annotation is claimed).
func (d *Driver) Process(round Round) bool {
	err := d.guard(func() error {
		if round.ProcessingOver() {
			return d.Emit()
		}
		d.note(fmt.Sprintf("processing round for %s", d.annotation))
		return d.ProcessAnnotated(round.ElementsAnnotatedWith(d.annotation))
	})
	if err != nil {
		d.fatal(err)
	}
	return true
}

// ProcessAnnotated validates the given elements and records the providers
// they declare. Per-element problems are reported as diagnostics. If the
// host fails (returns an error or panics) the rest of the elements are
// abandoned and a single "FatalError" diagnostic is reported; the driver
// stays usable for later rounds. The only error returned is
// ErrIllegalState.
func (d *Driver) ProcessAnnotated(elems []Element) error {
	if d.state != Collecting {
		return fmt.Errorf("process annotated elements while %v: %w", d.state, ErrIllegalState)
	}
	err := d.guard(func() error {
		for _, el := range elems {
			if err := d.processElement(el); err != nil {
				return &FatalError{Err: err, Stack: debug.Stack()}
			}
		}
		return nil
	})
	if err != nil {
		d.fatal(err)
	}
	return nil
}

func (d *Driver) processElement(el Element) error {
	if el.Kind() != KindClass {
		return nil
	}
	impl, ok := el.(DeclaredType)
	if !ok {
		return nil
	}
	anno, ok := FindAnnotation(el, d.annotation)
	if !ok {
		return nil
	}

	ifaces, err := Interfaces(anno)
	if err != nil {
		var malformed *MalformedAnnotationError
		if errors.As(err, &malformed) {
			d.env.Messager.PrintMessage(Error, msgFatalPrefix+err.Error(), el, &anno)
			return nil
		}
		return err
	}
	if len(ifaces) == 0 {
		d.env.Messager.PrintMessage(Error, msgNoInterfaces, el, &anno)
		return nil
	}

	for _, iface := range ifaces {
		d.note("provider interface: " + iface.QualifiedName())
		d.note("provider implementer: " + impl.QualifiedName())

		res, err := d.checker.Check(impl, iface, &anno, d.env.Messager)
		if err != nil {
			return err
		}
		if res == Reject {
			d.env.Messager.PrintMessage(Error, fmt.Sprintf("ServiceProviders must implement their service provider interface. "+
				"%s does not implement %s", impl.QualifiedName(), iface.QualifiedName()), el, &anno)
			continue
		}
		d.index.Add(BinaryName(iface), BinaryName(impl))
	}
	return nil
}

// Emit writes one registry file per collected interface, merged with any
// existing file at the same path. A file that already lists every collected
// provider is left untouched. Write failures are reported per file. Emit may
// be called only once; a second call returns ErrIllegalState.
func (d *Driver) Emit() error {
	if d.state != Collecting {
		return fmt.Errorf("emit while %v: %w", d.state, ErrIllegalState)
	}
	d.state = Emitting
	defer func() {
		d.state = Done
	}()

	err := d.guard(func() error {
		for _, e := range d.index.Entries() {
			d.emitEntry(e)
		}
		return nil
	})
	if err != nil {
		d.fatal(err)
	}
	return nil
}

func (d *Driver) emitEntry(e Entry) {
	path := Path(e.Interface)
	d.note("Working on resource file: " + path)

	all := d.readExisting(path)
	if containsAll(all, e.Implementers) {
		d.note("All services already exist in resource file " + path)
		return
	}
	for _, impl := range e.Implementers {
		all[impl] = struct{}{}
	}
	names := SortedNames(all)
	d.note(fmt.Sprintf("New service file contents: %v", names))

	if err := d.write(path, names); err != nil {
		d.env.Messager.PrintMessage(Error, msgFatalPrefix+fmt.Sprintf("Unable to create %s, %v", path, err), nil, nil)
		return
	}
	d.log.Debug("wrote registry file", "path", path, "providers", len(names))
}

func (d *Driver) readExisting(path string) map[string]struct{} {
	r, err := d.env.Filer.GetResource(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			d.note("Resource file does not exist: " + path)
		} else {
			d.note(fmt.Sprintf("Resource file %s could not be opened: %v", path, err))
		}
		return map[string]struct{}{}
	}
	defer r.Close()

	existing, err := Read(r)
	if err != nil {
		d.env.Messager.PrintMessage(Warning, fmt.Sprintf("Ignoring unreadable resource file %s: %v", path, err), nil, nil)
		return map[string]struct{}{}
	}
	d.note(fmt.Sprintf("Existing service entries: %v", SortedNames(existing)))
	return existing
}

func (d *Driver) write(path string, names []string) (err error) {
	w, err := d.env.Filer.CreateResource(path)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := w.Close(); err == nil {
			err = closeErr
		}
	}()
	return Write(names, w)
}

func containsAll(set map[string]struct{}, names []string) bool {
	for _, n := range names {
		if _, ok := set[n]; !ok {
			return false
		}
	}
	return true
}

// guard runs fn, turning a panic into a *FatalError.
func (d *Driver) guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &FatalError{Err: fmt.Errorf("panic: %v", r), Stack: debug.Stack()}
		}
	}()
	return fn()
}

func (d *Driver) fatal(err error) {
	d.log.Error("service registry processing failed", "error", err)
	d.env.Messager.PrintMessage(Error, msgFatalPrefix+err.Error(), nil, nil)
}

func (d *Driver) note(msg string) {
	d.log.Debug(msg)
	if d.debug {
		d.env.Messager.PrintMessage(Note, msg, nil, nil)
	}
}
