package compiler

import (
	"errors"
	"strings"
	"testing"

	ir "github.com/PhucNguyen204/lognorm/engine_lognorm_by_golang"
	"github.com/PhucNguyen204/lognorm/engine_lognorm_by_golang/fieldtype"
)

func parse(t *testing.T, text string) *ir.Rule {
	t.Helper()
	r, err := ParseRule(text, ir.Location{Line: 1}, fieldtype.Default(), ir.OptAllowRegex)
	if err != nil {
		t.Fatalf("parse %q: %v", text, err)
	}
	return r
}

func syntaxErr(t *testing.T, text string, opts ir.CtxOpt) *ir.SyntaxError {
	t.Helper()
	_, err := ParseRule(text, ir.Location{Source: "t.rb", Line: 7}, fieldtype.Default(), opts)
	if err == nil {
		t.Fatalf("expected error for %q", text)
	}
	var se *ir.SyntaxError
	if !errors.As(err, &se) {
		t.Fatalf("expected SyntaxError, got %T %v", err, err)
	}
	if se.Source != "t.rb" || se.Line != 7 {
		t.Fatalf("error not located: %v", se)
	}
	return se
}

func TestTokenizeLiteralAndFields(t *testing.T) {
	toks, err := Tokenize("Quantity: %N:number% of %item:char-to:,%, 100%%")
	if err != nil {
		t.Fatalf("tokenize: %v", err)
	}
	if len(toks) != 5 {
		t.Fatalf("expected 5 tokens, got %d: %#v", len(toks), toks)
	}
	if toks[0].Kind != TokLiteral || toks[0].Text != "Quantity: " || toks[0].Column != 1 {
		t.Fatalf("tok0: %#v", toks[0])
	}
	if toks[1].Kind != TokField || toks[1].Field != ir.NewField("N", "number") || toks[1].Column != 11 {
		t.Fatalf("tok1: %#v", toks[1])
	}
	if toks[3].Field != ir.NewField("item", "char-to", ",") {
		t.Fatalf("tok3: %#v", toks[3])
	}
	if toks[4].Kind != TokLiteral || toks[4].Text != ", 100%" {
		t.Fatalf("tok4: %#v", toks[4])
	}
}

func TestJSONPlaceholder(t *testing.T) {
	r := parse(t, `a % {"type":"char-to","name":"k","extradata":":"} %:b`)
	want := []ir.Segment{
		ir.LiteralSegment("a "),
		ir.FieldSegment(ir.NewField("k", "char-to", ":")),
		ir.LiteralSegment(":b"),
	}
	if !r.Equivalent(&ir.Rule{Segments: want}) {
		t.Fatalf("segments: %#v", r.Segments)
	}
}

func TestPlaceholderRoundTrip(t *testing.T) {
	samples := []string{
		"",
		"plain text only",
		"%all:rest%",
		"100%% done by %user:word%",
		"%a:number%%b:word%",
		"pre %-:whitespace%%-:word% %tail:rest%",
		"%q:quoted-string:'% %t:string-to:, %",
		`%r:regex:[0-9]{2,3}%x`,
		`% {"name":"j","type":"char-sep","extradata":";"} %`,
		`%{"name":"a{b}","type":"word"}% %{"name":" pad","type":"word"}%`,
	}
	for _, s := range samples {
		r1 := parse(t, s)
		r2 := parse(t, r1.Sample())
		if !r1.Equivalent(r2) {
			t.Fatalf("round trip of %q via %q changed rule", s, r1.Sample())
		}
		if r2.Sample() != r1.Sample() {
			t.Fatalf("sample not stable: %q vs %q", r1.Sample(), r2.Sample())
		}
	}
}

func TestDiscardFieldMayRepeat(t *testing.T) {
	r := parse(t, "%-:word% %-:word% %x:word%")
	if names := r.FieldNames(); len(names) != 1 || names[0] != "x" {
		t.Fatalf("names: %v", names)
	}
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		text   string
		opts   ir.CtxOpt
		col    int
		reason string
		is     error
	}{
		{text: "abc %n:word", col: 5, reason: "unterminated"},
		{text: "%:word%", col: 1, reason: "empty field name"},
		{text: "x %name%", col: 3, reason: "has no type"},
		{text: "x %name:%", col: 3, reason: "has no type"},
		{text: "%a:word% %a:number%", col: 10, reason: "duplicate field name"},
		{text: "%a:nosuch%", col: 1, reason: "bad field", is: ir.ErrUnknownFieldType},
		{text: "%a:regex:x+%", col: 1, reason: "bad field", is: ir.ErrDisabledFieldType},
		{text: "%a:char-to%", col: 1, reason: "bad field", is: fieldtype.ErrInvalidParams},
		{text: `%{"name":"a"}%`, col: 1, reason: "has no type"},
		{text: `%{"name":"a","type":"word"`, col: 1, reason: "invalid JSON placeholder"},
		{text: `%{"name":"a","type":"word"} x`, col: 1, reason: "unterminated"},
		{text: `%{"name":"a","type":"word","bogus":1}%`, col: 1, reason: "invalid JSON placeholder"},
		{text: `x %{"name":"{x","type":"word"}%`, col: 3, reason: "must not start with '{'"},
		{text: `%{"name":" \t{x","type":"word"}%`, col: 1, reason: "must not start with '{'"},
	}
	for _, c := range cases {
		se := syntaxErr(t, c.text, c.opts)
		if se.Column != c.col {
			t.Fatalf("%q: column %d want %d (%v)", c.text, se.Column, c.col, se)
		}
		if !strings.Contains(se.Reason, c.reason) {
			t.Fatalf("%q: reason %q want %q", c.text, se.Reason, c.reason)
		}
		if c.is != nil && !errors.Is(se, c.is) {
			t.Fatalf("%q: expected errors.Is %v, got %v", c.text, c.is, se)
		}
	}
}

func TestRegexAllowedWithOption(t *testing.T) {
	r := parse(t, "regex: %token:regex:abc.ef%")
	if len(r.Segments) != 2 || r.Segments[1].Field.RawParams != "abc.ef" {
		t.Fatalf("segments: %#v", r.Segments)
	}
}
