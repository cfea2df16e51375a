package compiler

import (
	"encoding/json"
	"fmt"
	"strings"

	ir "github.com/PhucNguyen204/lognorm/engine_lognorm_by_golang"
	"github.com/PhucNguyen204/lognorm/engine_lognorm_by_golang/fieldtype"
)

// ---------------- Tokens ----------------

type TokenKind int

const (
	TokLiteral TokenKind = iota
	TokField
)

type Token struct {
	Kind   TokenKind
	Text   string   // cho Literal
	Field  ir.Field // cho Field
	Column int      // 1-based, relative to the tokenized text
}

// tokenError is a sample error before it is attached to a rulebase location.
type tokenError struct {
	Column int
	Reason string
	Err    error
}

func (e *tokenError) locate(loc ir.Location, colBase int) *ir.SyntaxError {
	return &ir.SyntaxError{Source: loc.Source, Line: loc.Line, Column: colBase + e.Column, Reason: e.Reason, Err: e.Err}
}

// ---------------- Tokenizer ----------------

// SampleTokenizer splits a sample into literal spans and placeholders.
//
//	%name:type%            placeholder
//	%name:type:p1,p2%      placeholder with params (raw text up to the closing '%')
//	%{"name":..,"type":..,"extradata":..}%   JSON placeholder
//	%%                     literal '%'
type SampleTokenizer struct {
	src string
	pos int
	lit strings.Builder
	// column of the first byte of the pending literal
	litCol int
	tokens []Token
}

func NewSampleTokenizer(src string) *SampleTokenizer {
	return &SampleTokenizer{src: src, litCol: -1}
}

// Tokenize tokenizes a whole sample.
func Tokenize(sample string) ([]Token, error) {
	toks, terr := NewSampleTokenizer(sample).Run()
	if terr != nil {
		return nil, terr.locate(ir.Location{}, 0)
	}
	return toks, nil
}

func (t *SampleTokenizer) Run() ([]Token, *tokenError) {
	for t.pos < len(t.src) {
		c := t.src[t.pos]
		if c != '%' {
			t.addLiteral(c)
			t.pos++
			continue
		}
		if t.pos+1 < len(t.src) && t.src[t.pos+1] == '%' {
			t.addLiteral('%')
			t.pos += 2
			continue
		}
		start := t.pos
		t.flushLiteral()
		var (
			f    ir.Field
			terr *tokenError
		)
		if t.jsonAhead() {
			f, terr = t.readJSONField()
		} else {
			f, terr = t.readField()
		}
		if terr != nil {
			return nil, terr
		}
		t.tokens = append(t.tokens, Token{Kind: TokField, Field: f, Column: start + 1})
	}
	t.flushLiteral()
	return t.tokens, nil
}

func (t *SampleTokenizer) addLiteral(c byte) {
	if t.litCol < 0 {
		t.litCol = t.pos + 1
	}
	t.lit.WriteByte(c)
}

func (t *SampleTokenizer) flushLiteral() {
	if t.lit.Len() == 0 {
		return
	}
	t.tokens = append(t.tokens, Token{Kind: TokLiteral, Text: t.lit.String(), Column: t.litCol})
	t.lit.Reset()
	t.litCol = -1
}

// jsonAhead: '%' followed by optional whitespace and '{'.
func (t *SampleTokenizer) jsonAhead() bool {
	i := t.pos + 1
	for i < len(t.src) && (t.src[i] == ' ' || t.src[i] == '\t') {
		i++
	}
	return i < len(t.src) && t.src[i] == '{'
}

// readField reads "%name:type[:params]%"; inside a placeholder the next '%' closes it.
func (t *SampleTokenizer) readField() (ir.Field, *tokenError) {
	col := t.pos + 1
	end := strings.IndexByte(t.src[t.pos+1:], '%')
	if end < 0 {
		return ir.Field{}, &tokenError{Column: col, Reason: "unterminated placeholder"}
	}
	body := t.src[t.pos+1 : t.pos+1+end]
	t.pos += end + 2

	name, rest, hasType := strings.Cut(body, ":")
	if name == "" {
		return ir.Field{}, &tokenError{Column: col, Reason: "empty field name"}
	}
	if !hasType {
		return ir.Field{}, &tokenError{Column: col, Reason: fmt.Sprintf("field %q has no type", name)}
	}
	typ, params, _ := strings.Cut(rest, ":")
	if typ == "" {
		return ir.Field{}, &tokenError{Column: col, Reason: fmt.Sprintf("field %q has no type", name)}
	}
	return ir.Field{Name: name, Type: typ, RawParams: params}, nil
}

type jsonPlaceholder struct {
	Type      *string `json:"type"`
	Name      *string `json:"name"`
	ExtraData *string `json:"extradata"`
}

func (t *SampleTokenizer) readJSONField() (ir.Field, *tokenError) {
	col := t.pos + 1
	i := t.pos + 1
	for t.src[i] != '{' {
		i++
	}
	dec := json.NewDecoder(strings.NewReader(t.src[i:]))
	dec.DisallowUnknownFields()
	var ph jsonPlaceholder
	if err := dec.Decode(&ph); err != nil {
		return ir.Field{}, &tokenError{Column: col, Reason: "invalid JSON placeholder", Err: err}
	}
	i += int(dec.InputOffset())
	for i < len(t.src) && (t.src[i] == ' ' || t.src[i] == '\t') {
		i++
	}
	if i >= len(t.src) || t.src[i] != '%' {
		return ir.Field{}, &tokenError{Column: col, Reason: "unterminated placeholder"}
	}
	t.pos = i + 1

	if ph.Name == nil || *ph.Name == "" {
		return ir.Field{}, &tokenError{Column: col, Reason: "empty field name"}
	}
	if ph.Type == nil || *ph.Type == "" {
		return ir.Field{}, &tokenError{Column: col, Reason: fmt.Sprintf("field %q has no type", *ph.Name)}
	}
	if strings.ContainsAny(*ph.Name, ":%") || strings.ContainsAny(*ph.Type, ":%") {
		return ir.Field{}, &tokenError{Column: col, Reason: "name and type must not contain ':' or '%'"}
	}
	// "%{x:word%" would read back as a JSON placeholder
	if strings.HasPrefix(strings.TrimLeft(*ph.Name, " \t"), "{") {
		return ir.Field{}, &tokenError{Column: col, Reason: "field name must not start with '{'"}
	}
	f := ir.Field{Name: *ph.Name, Type: *ph.Type}
	if ph.ExtraData != nil {
		if strings.IndexByte(*ph.ExtraData, '%') >= 0 {
			return ir.Field{}, &tokenError{Column: col, Reason: "extradata must not contain '%'"}
		}
		f.RawParams = *ph.ExtraData
	}
	return f, nil
}

// ---------------- Rule assembly ----------------

// ParseRule parses one sample into a Rule. Field types are resolved against reg
// eagerly, so an unknown or disabled type fails here rather than at match time.
func ParseRule(text string, loc ir.Location, reg *fieldtype.Registry, opts ir.CtxOpt) (*ir.Rule, error) {
	r, serr := buildRule(nil, text, 0, loc, reg, opts)
	if serr != nil {
		return nil, serr
	}
	r.Mockup = text
	return r, nil
}

// buildRule tokenizes sample, appends it to prefix tokens and validates the fields.
// colBase is the 0-based offset of sample within its rulebase line.
func buildRule(prefix []Token, sample string, colBase int, loc ir.Location, reg *fieldtype.Registry, opts ir.CtxOpt) (*ir.Rule, *ir.SyntaxError) {
	toks, terr := NewSampleTokenizer(sample).Run()
	if terr != nil {
		return nil, terr.locate(loc, colBase)
	}
	segs := make([]ir.Segment, 0, len(prefix)+len(toks))
	seen := make(map[string]bool)
	appendTok := func(tk Token, col int) *ir.SyntaxError {
		switch tk.Kind {
		case TokLiteral:
			if n := len(segs); n > 0 && segs[n-1].Kind == ir.SegLiteral {
				segs[n-1].Text += tk.Text
				return nil
			}
			segs = append(segs, ir.Segment{Kind: ir.SegLiteral, Text: tk.Text, Column: col})
		case TokField:
			f := tk.Field
			if !f.Discard() {
				if seen[f.Name] {
					return &ir.SyntaxError{Source: loc.Source, Line: loc.Line, Column: col,
						Reason: fmt.Sprintf("duplicate field name %q", f.Name)}
				}
				seen[f.Name] = true
			}
			if _, err := reg.CompileField(f, opts); err != nil {
				return &ir.SyntaxError{Source: loc.Source, Line: loc.Line, Column: col,
					Reason: fmt.Sprintf("bad field %q", f.Name), Err: err}
			}
			segs = append(segs, ir.Segment{Kind: ir.SegField, Field: f, Column: col})
		}
		return nil
	}
	for _, tk := range prefix {
		// prefix columns point into the prefix line, not this one
		if serr := appendTok(tk, 0); serr != nil {
			return nil, serr
		}
	}
	for _, tk := range toks {
		if serr := appendTok(tk, colBase+tk.Column); serr != nil {
			return nil, serr
		}
	}
	return &ir.Rule{Segments: segs, Loc: loc}, nil
}
