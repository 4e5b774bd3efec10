package registry

import (
	"fmt"
	"strings"
)

// Types answers subtype queries for declared types. It is supplied by the
// host, which knows what the types' TypeToken values mean.
type Types interface {
	// IsSubtype reports whether t conforms to iface.
	IsSubtype(t, iface DeclaredType) (bool, error)
	// IsSubtypeOfErasure reports whether t conforms to iface with the type
	// parameters of iface stripped. For an iface without type parameters,
	// this is the same as IsSubtype.
	IsSubtypeOfErasure(t, iface DeclaredType) (bool, error)
}

// Result is the outcome of a subtype check.
type Result int

const (
	Reject Result = iota
	Ok
	OkWithRawWarning
)

func (r Result) String() string {
	switch r {
	case Reject:
		return "reject"
	case Ok:
		return "ok"
	case OkWithRawWarning:
		return "ok (raw)"
	default:
		return fmt.Sprintf("?%d?", int(r))
	}
}

// RawTypes is the warning category that suppresses the generic interface
// warning.
const RawTypes = "rawtypes"

// Checker verifies that providers conform to the interfaces they claim to
// provide.
type Checker struct {
	// When Verify is false, every pair is accepted without consulting Types.
	Verify bool
	Types  Types
	// SuppressAnnotation is the qualified name of the annotation whose value
	// lists suppressed warning categories.
	SuppressAnnotation string
	// AnnotationName is the simple name of the provider annotation, used in
	// the text of warnings.
	AnnotationName string
}

// Check verifies impl against iface. When the provider only conforms to the
// raw (type parameters stripped) interface, a warning is reported on msgr
// unless impl or one of its enclosing declarations suppresses "rawtypes".
func (c *Checker) Check(impl, iface DeclaredType, anno *Annotation, msgr Messager) (Result, error) {
	if !c.Verify {
		return Ok, nil
	}
	if ok, err := c.Types.IsSubtype(impl, iface); err != nil {
		return Reject, err
	} else if ok {
		return Ok, nil
	}
	ok, err := c.Types.IsSubtypeOfErasure(impl, iface)
	if err != nil {
		return Reject, err
	}
	if !ok {
		return Reject, nil
	}
	if c.rawTypesSuppressed(impl) {
		return Ok, nil
	}
	msgr.PrintMessage(Warning, fmt.Sprintf("Service provider %s is generic, so it can't be named exactly by @%s."+
		" If this is OK, add @SuppressWarnings(%q).", iface.QualifiedName(), c.AnnotationName, RawTypes), impl, anno)
	return OkWithRawWarning, nil
}

func (c *Checker) rawTypesSuppressed(el Element) bool {
	for ; el != nil; el = el.Enclosing() {
		a, ok := FindAnnotation(el, c.SuppressAnnotation)
		if !ok {
			continue
		}
		for _, s := range Strings(a.Values[ValueElement]) {
			if strings.TrimSpace(s) == RawTypes {
				return true
			}
		}
	}
	return false
}
