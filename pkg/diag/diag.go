// Package diag defines the diagnostics reported by the chocc front end and
// the sinks that collect and print them.
package diag

import (
	"fmt"

	"chocc/pkg/source"
)

// Severity of a diagnostic.
type Severity uint8

const (
	Error Severity = iota
	Warning
	Note
)

func (s Severity) String() string {
	switch s {
	case Error:
		return "error"
	case Warning:
		return "warning"
	case Note:
		return "note"
	}
	return fmt.Sprintf("Severity(%d)", int(s))
}

// Kind classifies what went wrong.
type Kind uint8

const (
	FileAccess     Kind = iota // source bytes could not be obtained
	LexicalError               // unterminated literal or comment, invalid byte
	DirectiveError             // malformed or misplaced directive
	MacroError                 // bad definition or invocation
	FatalDirective             // #error, include depth overflow
)

var kindNames = [...]string{
	FileAccess:     "file-access",
	LexicalError:   "lexical",
	DirectiveError: "directive",
	MacroError:     "macro",
	FatalDirective: "fatal",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Diagnostic is one reported problem.
type Diagnostic struct {
	Kind     Kind
	Severity Severity
	File     string
	Pos      source.Location
	Message  string
}

// Errorf builds an error-severity diagnostic.
func Errorf(kind Kind, file string, pos source.Location, format string, args ...any) Diagnostic {
	return Diagnostic{Kind: kind, Severity: Error, File: file, Pos: pos, Message: fmt.Sprintf(format, args...)}
}

// Warnf builds a warning.
func Warnf(kind Kind, file string, pos source.Location, format string, args ...any) Diagnostic {
	return Diagnostic{Kind: kind, Severity: Warning, File: file, Pos: pos, Message: fmt.Sprintf(format, args...)}
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s:%s: %s: %s", d.File, d.Pos, d.Severity, d.Message)
}

// Error lets a diagnostic travel as an error value.
func (d Diagnostic) Error() string {
	return d.String()
}

// Fatal is returned when a condition aborts the whole preprocessing call.
type Fatal struct {
	Diagnostic
}

// Sink receives diagnostics as they are found.
type Sink interface {
	Report(Diagnostic)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(Diagnostic)

func (f SinkFunc) Report(d Diagnostic) { f(d) }

// Discard drops every diagnostic.
var Discard Sink = SinkFunc(func(Diagnostic) {})
