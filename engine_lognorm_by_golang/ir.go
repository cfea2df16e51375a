package engine_lognorm_by_golang

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

type RuleId = uint32

// NoFile is the source name of rules loaded from a string.
const NoFile = "--NO-FILE--"

// DiscardField is the field name whose value is matched but not emitted.
const DiscardField = "-"

// Location points at a line of a rulebase.
type Location struct {
	Source string `json:"file"`
	Line   int    `json:"line"`
}

func (l Location) String() string {
	src := l.Source
	if src == "" {
		src = NoFile
	}
	return src + ":" + strconv.Itoa(l.Line)
}

// -------------------- Segments --------------------

type SegmentKind int

const (
	SegLiteral SegmentKind = iota
	SegField
)

func (k SegmentKind) String() string {
	switch k {
	case SegLiteral:
		return "Literal"
	case SegField:
		return "Field"
	default:
		return fmt.Sprintf("SegmentKind(%d)", int(k))
	}
}

// Field is a typed placeholder inside a sample.
type Field struct {
	Name string `json:"name"`
	Type string `json:"type"`
	// RawParams is everything after "type:" up to the closing '%'.
	RawParams string `json:"params,omitempty"`
}

func NewField(name, typ string, params ...string) Field {
	return Field{Name: name, Type: typ, RawParams: strings.Join(params, ",")}
}

// Params splits RawParams on ','; nil when there are none.
func (f Field) Params() []string {
	if f.RawParams == "" {
		return nil
	}
	return strings.Split(f.RawParams, ",")
}

func (f Field) Discard() bool { return f.Name == DiscardField }

// Key identifies fields that can share one trie edge.
func (f Field) Key() string {
	return f.Name + "\x00" + f.Type + "\x00" + f.RawParams
}

func (f Field) String() string {
	var b strings.Builder
	b.WriteByte('%')
	b.WriteString(f.Name)
	b.WriteByte(':')
	b.WriteString(f.Type)
	if f.RawParams != "" {
		b.WriteByte(':')
		b.WriteString(f.RawParams)
	}
	b.WriteByte('%')
	return b.String()
}

type Segment struct {
	Kind SegmentKind `json:"kind"`
	// Literal text (SegLiteral)
	Text string `json:"text,omitempty"`
	// Placeholder (SegField)
	Field Field `json:"field,omitempty"`
	// 1-based column of the segment in its rulebase line
	Column int `json:"column,omitempty"`
}

func LiteralSegment(text string) Segment { return Segment{Kind: SegLiteral, Text: text} }
func FieldSegment(f Field) Segment       { return Segment{Kind: SegField, Field: f} }

// -------------------- Rule --------------------

type Rule struct {
	RuleId   RuleId    `json:"rule_id"`
	Segments []Segment `json:"segments"`
	Tags     []string  `json:"tags,omitempty"`
	Loc      Location  `json:"location"`
	// Mockup is the sample as written in the rulebase, prefix included.
	Mockup string `json:"mockup"`
}

// Sample serializes the segments back into placeholder grammar.
func (r *Rule) Sample() string {
	var b strings.Builder
	for _, s := range r.Segments {
		switch s.Kind {
		case SegLiteral:
			b.WriteString(strings.ReplaceAll(s.Text, "%", "%%"))
		case SegField:
			b.WriteString(s.Field.String())
		}
	}
	return b.String()
}

func (r *Rule) FieldNames() []string {
	out := make([]string, 0, len(r.Segments))
	for _, s := range r.Segments {
		if s.Kind == SegField && !s.Field.Discard() {
			out = append(out, s.Field.Name)
		}
	}
	return out
}

// Anchor returns the longest literal segment; every line matching the rule contains it.
func (r *Rule) Anchor() string {
	best := ""
	for _, s := range r.Segments {
		if s.Kind == SegLiteral && len(s.Text) > len(best) {
			best = s.Text
		}
	}
	return best
}

func (r *Rule) HasTag(tag string) bool {
	for _, t := range r.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

func (r *Rule) Clone() *Rule {
	if r == nil {
		return nil
	}
	cp := *r
	cp.Segments = append([]Segment(nil), r.Segments...)
	cp.Tags = append([]string(nil), r.Tags...)
	return &cp
}

// Equivalent compares segment structure and tags, ignoring provenance and columns.
func (r *Rule) Equivalent(o *Rule) bool {
	if r == nil || o == nil {
		return r == o
	}
	a, b := mergeLiterals(r.Segments), mergeLiterals(o.Segments)
	if len(a) != len(b) || len(r.Tags) != len(o.Tags) {
		return false
	}
	for i := range a {
		if a[i].Kind != b[i].Kind || a[i].Text != b[i].Text || a[i].Field != b[i].Field {
			return false
		}
	}
	for i := range r.Tags {
		if r.Tags[i] != o.Tags[i] {
			return false
		}
	}
	return true
}

func mergeLiterals(segs []Segment) []Segment {
	out := make([]Segment, 0, len(segs))
	for _, s := range segs {
		s.Column = 0
		if s.Kind == SegLiteral {
			if s.Text == "" {
				continue
			}
			if n := len(out); n > 0 && out[n-1].Kind == SegLiteral {
				out[n-1].Text += s.Text
				continue
			}
		}
		out = append(out, s)
	}
	return out
}

// -------------------- Annotations --------------------

// Annotation adds constant fields to results of rules carrying Tag.
type Annotation struct {
	Tag    string   `json:"tag"`
	Fields []Entry  `json:"fields"`
	Loc    Location `json:"location"`
}

// -------------------- Values --------------------

type ValueKind int

const (
	KindString ValueKind = iota
	KindNumber
	KindFloat
	KindJSON
)

func (k ValueKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindFloat:
		return "float"
	case KindJSON:
		return "json"
	default:
		return fmt.Sprintf("ValueKind(%d)", int(k))
	}
}

// Value is a typed field value. Str always holds the textual form.
type Value struct {
	Kind  ValueKind
	Str   string
	Int   int64
	Float float64
	JSON  any
}

func StringValue(s string) Value { return Value{Kind: KindString, Str: s} }

func NumberValue(raw string, n int64) Value { return Value{Kind: KindNumber, Str: raw, Int: n} }

func FloatValue(raw string, f float64) Value { return Value{Kind: KindFloat, Str: raw, Float: f} }

func JSONValue(raw string, v any) Value { return Value{Kind: KindJSON, Str: raw, JSON: v} }

// Interface returns the Go value emitted in JSON output.
func (v Value) Interface() any {
	switch v.Kind {
	case KindNumber:
		return v.Int
	case KindFloat:
		return v.Float
	case KindJSON:
		return v.JSON
	default:
		return v.Str
	}
}

func (v Value) String() string { return v.Str }

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}
