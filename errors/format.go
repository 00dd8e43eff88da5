package errors

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// Formatter renders errors for terminals.
type Formatter struct {
	// UseColor enables ANSI color codes in output.
	UseColor bool
}

// NewFormatter creates a new error formatter.
func NewFormatter(useColor bool) *Formatter {
	return &Formatter{UseColor: useColor}
}

type style []color.Attribute

var (
	colorError    = style{color.FgRed}
	colorHeader   = style{color.FgHiRed, color.Bold}
	colorCode     = style{color.FgHiBlack}
	colorLocation = style{color.FgCyan}
	colorHint     = style{color.FgHiYellow}
	colorNote     = style{color.FgHiBlue}
)

// FormattedError represents an error ready for display.
type FormattedError struct {
	Code     ErrorCode
	Kind     string
	Message  string
	Location string
	Hint     string
	Note     string
}

// Format formats a single error.
func (f *Formatter) Format(err *FormattedError) string {
	return f.FormatWithPrefix(err, "")
}

// FormatWithPrefix formats the error with an optional prefix like "1/5".
func (f *Formatter) FormatWithPrefix(err *FormattedError, prefix string) string {
	var b strings.Builder

	label := "error"
	if err.Kind != "" {
		label = err.Kind
	}
	b.WriteString(f.paint(colorHeader, label))
	switch {
	case err.Code != "":
		b.WriteString(f.paint(colorCode, fmt.Sprintf("[%s]", err.Code)))
	case prefix != "":
		b.WriteString(f.paint(colorCode, fmt.Sprintf("[%s]", prefix)))
	}
	b.WriteString(f.paint(colorError, ": "))
	b.WriteString(err.Message)
	b.WriteString("\n")

	if err.Location != "" {
		b.WriteString("  ")
		b.WriteString(f.paint(colorLocation, "--> "+err.Location))
		b.WriteString("\n")
	}
	if err.Hint != "" {
		b.WriteString("   = ")
		b.WriteString(f.paint(colorHint, "hint: "))
		b.WriteString(err.Hint)
		b.WriteString("\n")
	}
	if err.Note != "" {
		b.WriteString("   = ")
		b.WriteString(f.paint(colorNote, "note: "))
		b.WriteString(err.Note)
		b.WriteString("\n")
	}
	return b.String()
}

// FormatMultiple formats multiple errors with consistent styling.
func (f *Formatter) FormatMultiple(errs []*FormattedError) string {
	if len(errs) == 0 {
		return ""
	}
	if len(errs) == 1 {
		return f.Format(errs[0])
	}
	var b strings.Builder
	total := len(errs)
	for i, err := range errs {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(f.FormatWithPrefix(err, fmt.Sprintf("%d/%d", i+1, total)))
	}
	b.WriteString("\n")
	b.WriteString(f.paint(colorHeader, fmt.Sprintf("found %d errors", total)))
	b.WriteString("\n")
	return b.String()
}

// paint ignores color.NoColor; UseColor alone decides.
func (f *Formatter) paint(st style, s string) string {
	if !f.UseColor {
		return s
	}
	c := color.New(st...)
	c.EnableColor()
	return c.Sprint(s)
}
