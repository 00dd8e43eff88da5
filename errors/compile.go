package errors

import (
	"fmt"
	"strings"
)

// CompileError is an assembly failure. It always names the offending
// routine, opcode or constant so the caller can locate it in the source.
type CompileError struct {
	Code        ErrorCode
	Message     string
	Routine     int // -1 when the error concerns the whole unit
	Opcode      string
	Constant    string
	Position    SourcePosition
	Suggestions []Suggestion
	Cause       error
}

// SourcePosition is a 1-based line/column pair in the script source.
type SourcePosition struct {
	Line   int
	Column int
}

// IsZero returns true if the position has not been set.
func (p SourcePosition) IsZero() bool {
	return p.Line == 0 && p.Column == 0
}

// String returns the position as "line:column".
func (p SourcePosition) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Compilef returns a CompileError for the given routine.
func Compilef(code ErrorCode, routine int, format string, args ...any) *CompileError {
	return &CompileError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Routine: routine,
	}
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	var b strings.Builder
	b.WriteString("compile error: ")
	b.WriteString(e.Message)
	var ctx []string
	if e.Routine >= 0 {
		ctx = append(ctx, fmt.Sprintf("routine %d", e.Routine))
	}
	if e.Opcode != "" {
		ctx = append(ctx, "opcode "+e.Opcode)
	}
	if e.Constant != "" {
		ctx = append(ctx, "constant "+e.Constant)
	}
	if !e.Position.IsZero() {
		ctx = append(ctx, "at "+e.Position.String())
	}
	if len(ctx) > 0 {
		b.WriteString(" (")
		b.WriteString(strings.Join(ctx, ", "))
		b.WriteString(")")
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause of the error.
func (e *CompileError) Unwrap() error {
	return e.Cause
}

// Is matches ErrCompiler.
func (e *CompileError) Is(target error) bool {
	return target == ErrCompiler
}

// FriendlyErrorMessage returns a human-friendly error message.
func (e *CompileError) FriendlyErrorMessage() string {
	return NewFormatter(false).Format(e.ToFormatted())
}

// ToFormatted converts to the FormattedError type for display.
func (e *CompileError) ToFormatted() *FormattedError {
	fe := &FormattedError{
		Code:    e.Code,
		Kind:    "compile error",
		Message: e.Message,
	}
	if e.Routine >= 0 {
		fe.Location = fmt.Sprintf("routine %d", e.Routine)
	}
	if !e.Position.IsZero() {
		if fe.Location != "" {
			fe.Location += " "
		}
		fe.Location += e.Position.String()
	}
	if len(e.Suggestions) > 0 {
		fe.Hint = FormatSuggestions(e.Suggestions)
	}
	if e.Cause != nil {
		fe.Note = e.Cause.Error()
	}
	return fe
}
