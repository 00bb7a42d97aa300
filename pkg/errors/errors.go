package errors

import "fmt"

// Kind identifies the precise condition a diagnostic reports. The set is
// closed; tests and callers match on these rather than on message text.
type Kind string

const (
	// Resolution
	UndeclaredName     Kind = "UndeclaredName"
	LocalRedeclaration Kind = "LocalRedeclaration"
	GlobalRedefinition Kind = "GlobalRedefinition"
	ScopeOverflow      Kind = "ScopeOverflow"

	// Type checking
	TypeMismatch       Kind = "TypeMismatch"
	InferenceFailure   Kind = "InferenceFailure"
	VoidVariable       Kind = "VoidVariable"
	CallArityMismatch  Kind = "CallArityMismatch"
	NonConstGlobalInit Kind = "NonConstGlobalInit"

	// Register allocation
	RegisterPressure    Kind = "RegisterPressure"
	RegisterFreeInvalid Kind = "RegisterFreeInvalid"

	// Front end
	Syntax Kind = "Syntax"
)

// BlangError is the interface implemented by all blang diagnostics.
type BlangError interface {
	error
	Phase() string // e.g., "parse", "resolve", "typecheck", "alloc"
	Kind() Kind
	// Message returns the specific error message without the phase prefix.
	Message() string
}

// --- Concrete Error Types ---

// SyntaxError represents an error during lexing or parsing.
type SyntaxError struct {
	Line   int
	Column int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("parse: %d:%d: %s", e.Line, e.Column, e.Msg)
}
func (e *SyntaxError) Phase() string   { return "parse" }
func (e *SyntaxError) Kind() Kind      { return Syntax }
func (e *SyntaxError) Message() string { return e.Msg }

// ResolveError represents a symbol-resolution failure.
type ResolveError struct {
	K   Kind
	Msg string
}

func (e *ResolveError) Error() string   { return "resolve: " + e.Msg }
func (e *ResolveError) Phase() string   { return "resolve" }
func (e *ResolveError) Kind() Kind      { return e.K }
func (e *ResolveError) Message() string { return e.Msg }

// TypeError represents an error during static type checking.
type TypeError struct {
	K   Kind
	Msg string
}

func (e *TypeError) Error() string   { return "typecheck: " + e.Msg }
func (e *TypeError) Phase() string   { return "typecheck" }
func (e *TypeError) Kind() Kind      { return e.K }
func (e *TypeError) Message() string { return e.Msg }

// AllocError represents a register-allocation failure.
type AllocError struct {
	K   Kind
	Msg string
}

func (e *AllocError) Error() string   { return "alloc: " + e.Msg }
func (e *AllocError) Phase() string   { return "alloc" }
func (e *AllocError) Kind() Kind      { return e.K }
func (e *AllocError) Message() string { return e.Msg }

// --- Constructors ---

func Resolvef(k Kind, format string, args ...interface{}) *ResolveError {
	return &ResolveError{K: k, Msg: fmt.Sprintf(format, args...)}
}

func Typef(k Kind, format string, args ...interface{}) *TypeError {
	return &TypeError{K: k, Msg: fmt.Sprintf(format, args...)}
}

func Allocf(k Kind, format string, args ...interface{}) *AllocError {
	return &AllocError{K: k, Msg: fmt.Sprintf(format, args...)}
}

// KindOf returns the diagnostic kind of err, or "" if err is not a BlangError.
func KindOf(err error) Kind {
	if be, ok := err.(BlangError); ok {
		return be.Kind()
	}
	return ""
}
