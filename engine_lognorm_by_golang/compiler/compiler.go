package compiler

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	ir "github.com/PhucNguyen204/lognorm/engine_lognorm_by_golang"
	"github.com/PhucNguyen204/lognorm/engine_lognorm_by_golang/fieldtype"
)

// Rulebase is the compiled content of one rulebase source.
type Rulebase struct {
	Source      string
	Rules       []*ir.Rule
	Annotations []ir.Annotation
}

// Compiler turns rulebase text into Rules. It is cheap and holds no per-load state,
// so one Compiler may be shared.
type Compiler struct {
	reg  *fieldtype.Registry
	opts ir.CtxOpt
}

// New returns a Compiler resolving field types against reg (fieldtype.Default() when nil).
func New(reg *fieldtype.Registry, opts ir.CtxOpt) *Compiler {
	if reg == nil {
		reg = fieldtype.Default()
	}
	return &Compiler{reg: reg, opts: opts}
}

func (c *Compiler) Registry() *fieldtype.Registry { return c.reg }
func (c *Compiler) Options() ir.CtxOpt            { return c.opts }

// CompileFile reads path and compiles it. Files ending in .yaml or .yml use the YAML form.
func (c *Compiler) CompileFile(path string) (*Rulebase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ir.IOError{Path: path, Err: err}
	}
	if IsYAMLPath(path) {
		return c.CompileYAML(path, data)
	}
	return c.CompileString(path, string(data))
}

func IsYAMLPath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// CompileString compiles the line-oriented rulebase format. Every error found is
// reported; on any error no Rulebase is returned.
func (c *Compiler) CompileString(source, text string) (*Rulebase, error) {
	rb := &Rulebase{Source: source}
	var (
		errs      ir.SyntaxErrors
		prefix    []Token
		prefixRaw string
	)
	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimRight(sc.Text(), "\r")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		loc := ir.Location{Source: source, Line: lineNo}
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			errs = append(errs, &ir.SyntaxError{Source: source, Line: lineNo, Reason: fmt.Sprintf("unknown directive %q", trimmed)})
			continue
		}
		valCol := len(key) + 1
		switch strings.TrimSpace(key) {
		case "version":
			if v := strings.TrimSpace(val); v != "2" {
				errs = append(errs, &ir.SyntaxError{Source: source, Line: lineNo, Column: valCol + 1,
					Reason: fmt.Sprintf("unsupported rulebase version %q", v)})
			}
		case "prefix", "extendprefix":
			toks, terr := NewSampleTokenizer(val).Run()
			if terr != nil {
				errs = append(errs, terr.locate(loc, valCol))
				continue
			}
			if strings.TrimSpace(key) == "prefix" {
				prefix, prefixRaw = toks, val
			} else {
				prefix, prefixRaw = append(append([]Token(nil), prefix...), toks...), prefixRaw+val
			}
		case "rule":
			tagText, sample, ok := strings.Cut(val, ":")
			if !ok {
				errs = append(errs, &ir.SyntaxError{Source: source, Line: lineNo, Column: valCol + 1,
					Reason: "rule needs '<tags>:<sample>'"})
				continue
			}
			r, serr := buildRule(prefix, sample, valCol+len(tagText)+1, loc, c.reg, c.opts)
			if serr != nil {
				errs = append(errs, serr)
				continue
			}
			r.Tags = splitTags(tagText)
			r.Mockup = prefixRaw + sample
			rb.Rules = append(rb.Rules, r)
		case "annotate":
			a, serr := parseAnnotate(val, loc, valCol)
			if serr != nil {
				errs = append(errs, serr)
				continue
			}
			rb.Annotations = append(rb.Annotations, a)
		default:
			errs = append(errs, &ir.SyntaxError{Source: source, Line: lineNo, Column: 1,
				Reason: fmt.Sprintf("unknown directive %q", strings.TrimSpace(key))})
		}
	}
	if err := sc.Err(); err != nil {
		return nil, &ir.IOError{Path: source, Err: err}
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return rb, nil
}

func splitTags(s string) []string {
	var out []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// parseAnnotate parses `<tag>:+field="value" +field2="value2"`.
func parseAnnotate(val string, loc ir.Location, colBase int) (ir.Annotation, *ir.SyntaxError) {
	fail := func(i int, reason string) (ir.Annotation, *ir.SyntaxError) {
		return ir.Annotation{}, &ir.SyntaxError{Source: loc.Source, Line: loc.Line, Column: colBase + i + 1, Reason: reason}
	}
	rawTag, _, ok := strings.Cut(val, ":")
	tag := strings.TrimSpace(rawTag)
	if !ok || tag == "" {
		return fail(0, "annotate needs '<tag>:+field=\"value\"'")
	}
	a := ir.Annotation{Tag: tag, Loc: loc}
	i := len(rawTag) + 1
	for {
		for i < len(val) && (val[i] == ' ' || val[i] == '\t') {
			i++
		}
		if i >= len(val) {
			break
		}
		if val[i] != '+' {
			return fail(i, "annotation must start with '+'")
		}
		i++
		eq := strings.IndexByte(val[i:], '=')
		if eq <= 0 {
			return fail(i, "annotation needs a field name and '='")
		}
		name := strings.TrimSpace(val[i : i+eq])
		i += eq + 1
		if i >= len(val) || val[i] != '"' {
			return fail(i, "annotation value must be quoted")
		}
		var b strings.Builder
		j := i + 1
		closed := false
		for ; j < len(val); j++ {
			if val[j] == '\\' && j+1 < len(val) {
				j++
				b.WriteByte(val[j])
				continue
			}
			if val[j] == '"' {
				closed = true
				break
			}
			b.WriteByte(val[j])
		}
		if !closed {
			return fail(i, "unterminated annotation value")
		}
		a.Fields = append(a.Fields, ir.Entry{Key: name, Value: b.String()})
		i = j + 1
	}
	if len(a.Fields) == 0 {
		return fail(len(rawTag)+1, "annotate has no fields")
	}
	return a, nil
}
