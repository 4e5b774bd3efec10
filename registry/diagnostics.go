package registry

import (
	"errors"
	"fmt"
)

// Kind is the severity of a diagnostic.
type Kind int

const (
	Note Kind = iota
	Warning
	Error
)

func (k Kind) String() string {
	switch k {
	case Note:
		return "note"
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return fmt.Sprintf("?%d?", int(k))
	}
}

// Messager receives diagnostics. The element and annotation identify the
// source location, when there is one; both may be nil.
type Messager interface {
	PrintMessage(kind Kind, msg string, el Element, anno *Annotation)
}

// Diagnostic texts that are part of the observable interface.
const (
	msgNoInterfaces = "No service interfaces provided for element!"
	msgFatalPrefix  = "FatalError: "
)

var (
	// ErrIllegalState is returned when a Driver method is called in a state
	// that does not allow it.
	ErrIllegalState = errors.New("registry: operation not allowed in current state")

	errInvalidUTF8 = errors.New("content is not valid UTF-8")
)

// IOError is a failure to read, decode, or write a registry file.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("registry %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("registry %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// MalformedAnnotationError indicates an annotation that lacks its value
// element, or whose value has an unexpected shape.
type MalformedAnnotationError struct {
	AnnotationType string
	Element        string
}

func (e *MalformedAnnotationError) Error() string {
	return fmt.Sprintf("%s does not define an element %s", e.AnnotationType, e.Element)
}

// FatalError is an unexpected failure (error or panic) from the host while a
// round was being processed. Stack holds the stack at the point of failure.
type FatalError struct {
	Err   error
	Stack []byte
}

func (e *FatalError) Error() string {
	if len(e.Stack) == 0 {
		return e.Err.Error()
	}
	return fmt.Sprintf("%v\n%s", e.Err, e.Stack)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}
