package engine_lognorm_by_golang

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownFieldType  = errors.New("unknown field type")
	ErrDisabledFieldType = errors.New("field type disabled by context options")
	ErrInvalidHandle     = errors.New("invalid or released context handle")
)

// FieldTypeError names the type a lookup failed on.
type FieldTypeError struct {
	Type string
	Err  error
}

func (e *FieldTypeError) Error() string {
	return fmt.Sprintf("field type %q: %v", e.Type, e.Err)
}

func (e *FieldTypeError) Unwrap() error { return e.Err }

// SyntaxError is a located rulebase error. Column is 1-based; 0 means the whole line.
type SyntaxError struct {
	Source string
	Line   int
	Column int
	Reason string
	Err    error
}

func (e *SyntaxError) Error() string {
	src := e.Source
	if src == "" {
		src = NoFile
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s:%d", src, e.Line)
	if e.Column > 0 {
		fmt.Fprintf(&b, ":%d", e.Column)
	}
	b.WriteString(": ")
	b.WriteString(e.Reason)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *SyntaxError) Unwrap() error { return e.Err }

// SyntaxErrors collects every error found while compiling one rulebase.
type SyntaxErrors []*SyntaxError

func (es SyntaxErrors) Error() string {
	switch len(es) {
	case 0:
		return "no syntax errors"
	case 1:
		return es[0].Error()
	}
	parts := make([]string, len(es))
	for i, e := range es {
		parts[i] = e.Error()
	}
	return fmt.Sprintf("%d syntax errors:\n  %s", len(es), strings.Join(parts, "\n  "))
}

func (es SyntaxErrors) Unwrap() []error {
	out := make([]error, len(es))
	for i, e := range es {
		out[i] = e
	}
	return out
}

// Err returns nil for an empty list so callers can return it directly.
func (es SyntaxErrors) Err() error {
	if len(es) == 0 {
		return nil
	}
	return es
}

// IOError reports an unreadable rulebase.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("read rulebase %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }
