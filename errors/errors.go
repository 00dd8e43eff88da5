// Package errors defines the failure taxonomy shared by the container
// decoder, the assembler and the writer.
//
// Every error produced by this module is an *Error (or a *CompileError)
// whose Kind can be matched with the standard library:
//
//	if errors.Is(err, sserrors.ErrMalformedContainer) { ... }
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Kind is the category of an error.
type Kind int

const (
	// MalformedContainer means a structural decode invariant was violated.
	MalformedContainer Kind = iota + 1
	// UnknownEnumID means a raw argument had no entry in its symbolic table.
	// This kind is never returned from Decode; it is logged instead.
	UnknownEnumID
	// CompilerError means the assembler rejected its input.
	CompilerError
	// UnevenLanguageStrings means per-language string tables differ in size.
	UnevenLanguageStrings
	// Internal means an encode invariant was violated by the caller's data.
	Internal
)

// String returns the string representation of the error kind.
func (k Kind) String() string {
	switch k {
	case MalformedContainer:
		return "malformed container"
	case UnknownEnumID:
		return "unknown enum id"
	case CompilerError:
		return "compiler error"
	case UnevenLanguageStrings:
		return "uneven language strings"
	case Internal:
		return "internal error"
	default:
		return "error"
	}
}

// Sentinels for errors.Is matching.
var (
	ErrMalformedContainer    = stderrors.New("malformed container")
	ErrUnknownEnumID         = stderrors.New("unknown enum id")
	ErrCompiler              = stderrors.New("compiler error")
	ErrUnevenLanguageStrings = stderrors.New("uneven language strings")
	ErrInternal              = stderrors.New("internal error")
)

func (k Kind) sentinel() error {
	switch k {
	case MalformedContainer:
		return ErrMalformedContainer
	case UnknownEnumID:
		return ErrUnknownEnumID
	case CompilerError:
		return ErrCompiler
	case UnevenLanguageStrings:
		return ErrUnevenLanguageStrings
	default:
		return ErrInternal
	}
}

// Error is a located failure in a container. Offset and Routine are -1 when
// they do not apply.
type Error struct {
	Kind    Kind
	Code    ErrorCode
	Message string
	Offset  int
	Routine int
	Opcode  string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	b.WriteString(": ")
	b.WriteString(e.Message)
	if ctx := e.context(); ctx != "" {
		b.WriteString(" (")
		b.WriteString(ctx)
		b.WriteString(")")
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *Error) context() string {
	var parts []string
	if e.Routine >= 0 {
		parts = append(parts, fmt.Sprintf("routine %d", e.Routine))
	}
	if e.Opcode != "" {
		parts = append(parts, "opcode "+e.Opcode)
	}
	if e.Offset >= 0 {
		parts = append(parts, fmt.Sprintf("offset 0x%x", e.Offset))
	}
	return strings.Join(parts, ", ")
}

// Unwrap returns the underlying cause of the error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is the sentinel for this error's kind.
func (e *Error) Is(target error) bool {
	return target == e.Kind.sentinel()
}

// ToFormatted converts to the FormattedError type for display.
func (e *Error) ToFormatted() *FormattedError {
	return &FormattedError{
		Code:     e.Code,
		Kind:     e.Kind.String(),
		Message:  e.Message,
		Location: e.context(),
	}
}

// FriendlyErrorMessage returns a human-friendly error message.
func (e *Error) FriendlyErrorMessage() string {
	return NewFormatter(false).Format(e.ToFormatted())
}

// Malformed returns a MalformedContainer error located at a byte offset.
func Malformed(code ErrorCode, offset int, format string, args ...any) *Error {
	return &Error{
		Kind:    MalformedContainer,
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Offset:  offset,
		Routine: -1,
	}
}

// UnknownEnum returns an UnknownEnumID error for a raw argument.
func UnknownEnum(table string, raw int, offset int, opcode string) *Error {
	return &Error{
		Kind:    UnknownEnumID,
		Code:    E1004,
		Message: fmt.Sprintf("no %s with id %d", table, raw),
		Offset:  offset,
		Routine: -1,
		Opcode:  opcode,
	}
}

// Uneven returns an UnevenLanguageStrings error.
func Uneven(format string, args ...any) *Error {
	return &Error{
		Kind:    UnevenLanguageStrings,
		Code:    E3001,
		Message: fmt.Sprintf(format, args...),
		Offset:  -1,
		Routine: -1,
	}
}

// Internalf returns an encode-time invariant violation.
func Internalf(code ErrorCode, format string, args ...any) *Error {
	return &Error{
		Kind:    Internal,
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Offset:  -1,
		Routine: -1,
	}
}

// WithRoutine returns a copy of e located in routine i.
func (e *Error) WithRoutine(i int) *Error {
	cp := *e
	cp.Routine = i
	return &cp
}

// WithOpcode returns a copy of e naming the opcode involved.
func (e *Error) WithOpcode(name string) *Error {
	cp := *e
	cp.Opcode = name
	return &cp
}

// WithCause returns a copy of e wrapping cause.
func (e *Error) WithCause(cause error) *Error {
	cp := *e
	cp.Cause = cause
	return &cp
}
