package fieldtype

import (
	"encoding/json"
	"testing"

	ir "github.com/PhucNguyen204/lognorm/engine_lognorm_by_golang"
)

type extractCase struct {
	typ    string
	params string
	line   string
	offset int
	n      int
	value  string
	ok     bool
}

func runCases(t *testing.T, cases []extractCase) {
	t.Helper()
	reg := NewRegistry()
	for _, c := range cases {
		ex, err := reg.Lookup(c.typ, ir.OptAllowRegex)
		if err != nil {
			t.Fatalf("lookup %s: %v", c.typ, err)
		}
		n, v, ok := ex.TryExtract(c.line, c.offset, c.params)
		if ok != c.ok {
			t.Fatalf("%s(%q) on %q@%d: ok=%v want %v", c.typ, c.params, c.line, c.offset, ok, c.ok)
		}
		if !ok {
			continue
		}
		if n != c.n {
			t.Fatalf("%s on %q@%d: n=%d want %d", c.typ, c.line, c.offset, n, c.n)
		}
		if v.Str != c.value {
			t.Fatalf("%s on %q@%d: value=%q want %q", c.typ, c.line, c.offset, v.Str, c.value)
		}
	}
}

func TestSimpleRuns(t *testing.T) {
	runCases(t, []extractCase{
		{typ: "word", line: "hello world", n: 5, value: "hello", ok: true},
		{typ: "word", line: "hello world", offset: 5, ok: false},
		{typ: "word", line: "", ok: false},
		{typ: "alpha", line: "abc123", n: 3, value: "abc", ok: true},
		{typ: "alpha", line: "1abc", ok: false},
		{typ: "whitespace", line: " \t x", n: 3, value: " \t ", ok: true},
		{typ: "whitespace", line: "x", ok: false},
		{typ: "rest", line: "abc def", offset: 4, n: 3, value: "def", ok: true},
		{typ: "rest", line: "abc", offset: 3, n: 0, value: "", ok: true},
	})
}

func TestNumbers(t *testing.T) {
	runCases(t, []extractCase{
		{typ: "number", line: "1234abc", n: 4, value: "1234", ok: true},
		{typ: "number", line: "-12", ok: false},
		{typ: "integer", line: "-12 x", n: 3, value: "-12", ok: true},
		{typ: "integer", line: "+7", n: 2, value: "+7", ok: true},
		{typ: "integer", line: "-", ok: false},
		{typ: "float", line: "3.25s", n: 4, value: "3.25", ok: true},
		{typ: "float", line: "3.", n: 1, value: "3", ok: true},
		{typ: "float", line: "-0.5", n: 4, value: "-0.5", ok: true},
		{typ: "float", line: ".5", ok: false},
		{typ: "hexnumber", line: "0x1fZ", n: 4, value: "0x1f", ok: true},
		{typ: "hexnumber", line: "0x", ok: false},
		{typ: "hexnumber", line: "1f", ok: false},
	})
}

func TestNumberValueKinds(t *testing.T) {
	reg := NewRegistry()
	ex, _ := reg.Lookup("number", 0)
	_, v, _ := ex.TryExtract("42", 0, "")
	if v.Kind != ir.KindNumber || v.Int != 42 {
		t.Fatalf("number value: %+v", v)
	}
	_, v, _ = ex.TryExtract("99999999999999999999", 0, "")
	if v.Kind != ir.KindString {
		t.Fatalf("overflowing number should stay textual: %+v", v)
	}
	hex, _ := reg.Lookup("hexnumber", 0)
	_, v, _ = hex.TryExtract("0xff", 0, "")
	if v.Kind != ir.KindNumber || v.Int != 255 {
		t.Fatalf("hex value: %+v", v)
	}
	fl, _ := reg.Lookup("float", 0)
	_, v, _ = fl.TryExtract("1.5", 0, "")
	if v.Kind != ir.KindFloat || v.Float != 1.5 {
		t.Fatalf("float value: %+v", v)
	}
}

func TestQuotedString(t *testing.T) {
	runCases(t, []extractCase{
		{typ: "quoted-string", line: `"a b" rest`, n: 5, value: "a b", ok: true},
		{typ: "quoted-string", line: `"a\"b"`, n: 6, value: `a"b`, ok: true},
		{typ: "quoted-string", params: "^", line: `"a^"b"`, n: 6, value: `a"b`, ok: true},
		{typ: "quoted-string", params: `"`, line: `"a""b"`, n: 6, value: `a"b`, ok: true},
		{typ: "quoted-string", line: `"open`, ok: false},
		{typ: "quoted-string", line: `x"a"`, ok: false},
	})
	if _, err := NewRegistry().CompileField(ir.NewField("q", "quoted-string", "ab"), 0); err == nil {
		t.Fatalf("multi-char escape must be rejected")
	}
}

func TestAddresses(t *testing.T) {
	runCases(t, []extractCase{
		{typ: "ipv4", line: "10.0.0.1 port", n: 8, value: "10.0.0.1", ok: true},
		{typ: "ipv4", line: "256.1.1.1", ok: false},
		{typ: "ipv4", line: "1.2.3", ok: false},
		{typ: "ipv6", line: "fe80::1 x", n: 7, value: "fe80::1", ok: true},
		{typ: "ipv6", line: "::1", n: 3, value: "::1", ok: true},
		{typ: "ipv6", line: "2001:db8::2:", n: 11, value: "2001:db8::2", ok: true},
		{typ: "ipv6", line: "10.0.0.1", ok: false},
		{typ: "mac48", line: "00:1a:2B:3c:4d:5e!", n: 17, value: "00:1a:2B:3c:4d:5e", ok: true},
		{typ: "mac48", line: "00-1a-2b-3c-4d-5e", n: 17, value: "00-1a-2b-3c-4d-5e", ok: true},
		{typ: "mac48", line: "00:1a-2b:3c:4d:5e", ok: false},
		{typ: "mac48", line: "00:1a:2b", ok: false},
	})
}

func TestDelimited(t *testing.T) {
	runCases(t, []extractCase{
		{typ: "char-to", params: ":", line: "key:value", n: 3, value: "key", ok: true},
		{typ: "char-to", params: ":", line: ":value", ok: false},
		{typ: "char-to", params: ":", line: "novalue", ok: false},
		{typ: "char-sep", params: ",", line: "a,b", n: 1, value: "a", ok: true},
		{typ: "char-sep", params: ",", line: ",b", n: 0, value: "", ok: true},
		{typ: "char-sep", params: ",", line: "tail", n: 4, value: "tail", ok: true},
		{typ: "string-to", params: "--", line: "ab-c--d", n: 4, value: "ab-c", ok: true},
		{typ: "string-to", params: "--", line: "abc", ok: false},
	})
	for _, typ := range []string{"char-to", "char-sep", "string-to"} {
		if _, err := NewRegistry().CompileField(ir.NewField("x", typ), 0); err == nil {
			t.Fatalf("%s without params must be rejected", typ)
		}
	}
}

func TestDatesAndTimes(t *testing.T) {
	runCases(t, []extractCase{
		{typ: "date-rfc3164", line: "Oct 11 22:14:15 host", n: 15, value: "Oct 11 22:14:15", ok: true},
		{typ: "date-rfc3164", line: "Oct  5 01:02:03", n: 15, value: "Oct  5 01:02:03", ok: true},
		{typ: "date-rfc3164", line: "Oct 5 01:02:03", n: 14, value: "Oct 5 01:02:03", ok: true},
		{typ: "date-rfc3164", line: "Foo 11 22:14:15", ok: false},
		{typ: "date-rfc3164", line: "Oct 32 22:14:15", ok: false},
		{typ: "date-iso", line: "2024-02-29T", n: 10, value: "2024-02-29", ok: true},
		{typ: "date-iso", line: "2024-13-01", ok: false},
		{typ: "date-iso", line: "2024-00-10", ok: false},
		{typ: "time-24hr", line: "23:59:59", n: 8, value: "23:59:59", ok: true},
		{typ: "time-24hr", line: "24:00:00", ok: false},
		{typ: "time-24hr", line: "12:60:00", ok: false},
	})
}

func TestJSONField(t *testing.T) {
	runCases(t, []extractCase{
		{typ: "json", line: `{"a":[1,2]} tail`, n: 11, value: `{"a":[1,2]}`, ok: true},
		{typ: "json", line: `[1, "x"]`, n: 8, value: `[1, "x"]`, ok: true},
		{typ: "json", line: `{"a":`, ok: false},
		{typ: "json", line: `"str"`, ok: false},
	})
	ex, _ := NewRegistry().Lookup("json", 0)
	_, v, _ := ex.TryExtract(`{"n":12345678901234567}`, 0, "")
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"n":12345678901234567}` {
		t.Fatalf("json numbers must keep precision: %s", b)
	}
}

func TestRegexField(t *testing.T) {
	runCases(t, []extractCase{
		{typ: "regex", params: "abc.ef", line: "abcdef!", n: 6, value: "abcdef", ok: true},
		{typ: "regex", params: "[0-9]+", line: "x123", offset: 1, n: 3, value: "123", ok: true},
		{typ: "regex", params: "[0-9]+", line: "x123", ok: false},
		{typ: "regex", params: "a|ab", line: "abz", n: 1, value: "a", ok: true},
	})
	if _, err := NewRegistry().CompileField(ir.NewField("r", "regex", "("), ir.OptAllowRegex); err == nil {
		t.Fatalf("bad pattern must be rejected")
	}
}

func TestExtractorsAreDeterministic(t *testing.T) {
	reg := NewRegistry()
	lines := []string{"Oct 11 22:14:15 10.0.0.1 \"q\" 0x1f {\"a\":1}", "", "::1 - 12:00:00"}
	for _, name := range reg.Names() {
		ex, err := reg.Lookup(name, ir.OptAllowRegex)
		if err != nil {
			t.Fatalf("lookup %s: %v", name, err)
		}
		params := ""
		switch name {
		case "char-to", "char-sep", "string-to":
			params = " "
		case "regex":
			params = "[^ ]+"
		}
		fn, err := ex.Compile(params)
		if err != nil {
			t.Fatalf("compile %s: %v", name, err)
		}
		for _, l := range lines {
			for off := 0; off <= len(l); off++ {
				n1, v1, ok1 := fn(l, off)
				n2, v2, ok2 := fn(l, off)
				if n1 != n2 || ok1 != ok2 || v1.Str != v2.Str {
					t.Fatalf("%s not deterministic on %q@%d", name, l, off)
				}
				if ok1 && off+n1 > len(l) {
					t.Fatalf("%s consumed past end of %q@%d", name, l, off)
				}
			}
		}
	}
}
