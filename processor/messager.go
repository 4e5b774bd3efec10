package processor

import (
	"errors"
	"fmt"
	"go/token"
	"io"
	"log/slog"

	"github.com/jhump/autoserv/registry"
)

// Messager prints diagnostics as "file:line:col: severity: message" lines and
// counts them by severity. It implements registry.Messager.
type Messager struct {
	out    io.Writer
	log    *slog.Logger
	counts map[registry.Kind]int
}

var _ registry.Messager = (*Messager)(nil)

// NewMessager returns a Messager that prints to out. Every diagnostic is
// also logged, at debug level, to logger (slog.Default() if nil).
func NewMessager(out io.Writer, logger *slog.Logger) *Messager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Messager{out: out, log: logger, counts: map[registry.Kind]int{}}
}

type positioned interface {
	Pos() token.Position
}

// PrintMessage reports a diagnostic. The position is taken from the
// annotation, if given, or else from the element.
func (m *Messager) PrintMessage(kind registry.Kind, msg string, el registry.Element, anno *registry.Annotation) {
	var pos token.Position
	if anno != nil {
		pos, _ = anno.Pos.(token.Position)
	}
	if !pos.IsValid() {
		if p, ok := el.(positioned); ok {
			pos = p.Pos()
		}
	}
	m.Report(kind, pos, msg)
}

// Report reports a diagnostic at the given position, which may be the zero
// value if the diagnostic has no location.
func (m *Messager) Report(kind registry.Kind, pos token.Position, msg string) {
	m.counts[kind]++
	if pos.IsValid() {
		fmt.Fprintf(m.out, "%v: %v: %s\n", pos, kind, msg)
	} else {
		fmt.Fprintf(m.out, "%v: %s\n", kind, msg)
	}
	m.log.Debug("diagnostic", "kind", kind.String(), "pos", pos.String(), "msg", msg)
}

// reportError reports err as an error diagnostic, at its position if it has
// one.
func (m *Messager) reportError(err error) {
	var posErr *ErrorWithPosition
	if errors.As(err, &posErr) {
		m.Report(registry.Error, posErr.Pos(), posErr.Underlying().Error())
		return
	}
	m.Report(registry.Error, token.Position{}, err.Error())
}

// Count returns the number of diagnostics reported with the given severity.
func (m *Messager) Count(kind registry.Kind) int {
	return m.counts[kind]
}

// ErrorCount returns the number of error diagnostics reported.
func (m *Messager) ErrorCount() int {
	return m.counts[registry.Error]
}
