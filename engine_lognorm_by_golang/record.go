package engine_lognorm_by_golang

import (
	"bytes"
	"encoding/json"
)

// Entry is one key of a Record. Value is a Value, a string, a Record or any
// value encoding/json accepts.
type Entry struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// Record is a JSON object that keeps insertion order when marshalled.
type Record []Entry

func (r Record) Get(key string) (any, bool) {
	for _, e := range r {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

// GetString returns the textual form of key, if present.
func (r Record) GetString(key string) (string, bool) {
	v, ok := r.Get(key)
	if !ok {
		return "", false
	}
	switch x := v.(type) {
	case string:
		return x, true
	case Value:
		return x.Str, true
	}
	return "", false
}

// Set replaces an existing key in place or appends it.
func (r Record) Set(key string, v any) Record {
	for i := range r {
		if r[i].Key == key {
			r[i].Value = v
			return r
		}
	}
	return append(r, Entry{Key: key, Value: v})
}

// Clone copies r and every nested Record or []string, so Set on the copy
// never reaches r.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for i, e := range r {
		out[i] = Entry{Key: e.Key, Value: cloneValue(e.Value)}
	}
	return out
}

func cloneValue(v any) any {
	switch x := v.(type) {
	case Record:
		return x.Clone()
	case []string:
		return append([]string(nil), x...)
	}
	return v
}

func (r Record) Keys() []string {
	out := make([]string, len(r))
	for i, e := range r {
		out[i] = e.Key
	}
	return out
}

func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(e.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		v, err := json.Marshal(e.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// -------------------- Result --------------------

type ResultKind int

const (
	Unparsed ResultKind = iota
	Structured
)

func (k ResultKind) String() string {
	if k == Structured {
		return "Structured"
	}
	return "Unparsed"
}

// Result is the outcome of normalizing one line.
type Result struct {
	Kind ResultKind
	// Fields extracted by the winning rule, in rule order; nil when Unparsed.
	Fields Record
	// Winning rule; nil when Unparsed.
	Rule *Rule
	// Raw input line.
	Raw string
	// Offset of the furthest position any match attempt reached.
	UnparsedOffset int
	// Aborted is set when a time or step budget stopped the match.
	Aborted bool
	// Steps taken by the backtracking walk.
	Steps int
	// Output is the assembled liblognorm-shaped record.
	Output Record
}

func (r Result) Parsed() bool { return r.Kind == Structured }

// Clone returns r with private copies of Fields and Output.
func (r Result) Clone() Result {
	r.Fields = r.Fields.Clone()
	r.Output = r.Output.Clone()
	return r
}

// UnparsedData is the part of the line no rule could consume.
func (r Result) UnparsedData() string {
	if r.UnparsedOffset < 0 || r.UnparsedOffset > len(r.Raw) {
		return r.Raw
	}
	return r.Raw[r.UnparsedOffset:]
}

// JSON returns the assembled output encoded as one JSON object.
func (r Result) JSON() ([]byte, error) {
	return json.Marshal(r.Output)
}
