package compiler

import (
	"fmt"

	ir "github.com/PhucNguyen204/lognorm/engine_lognorm_by_golang"
	yaml "gopkg.in/yaml.v3"
)

// YAML rulebase form:
//
//	version: 2
//	prefix: "%host:word% "
//	annotations:
//	  - tag: net
//	    fields: {category: network}
//	rules:
//	  - sample: "connect from %ip:ipv4%"
//	    tags: [net]
//
// Error columns inside a sample count from the start of the sample value.

type yamlRule struct {
	Sample string   `yaml:"sample"`
	Tags   []string `yaml:"tags"`
}

type yamlAnnotation struct {
	Tag    string    `yaml:"tag"`
	Fields yaml.Node `yaml:"fields"`
}

type yamlRulebase struct {
	Version     int         `yaml:"version"`
	Prefix      string      `yaml:"prefix"`
	Annotations []yaml.Node `yaml:"annotations"`
	Rules       []yaml.Node `yaml:"rules"`
}

// CompileYAML compiles the YAML rulebase form.
func (c *Compiler) CompileYAML(source string, data []byte) (*Rulebase, error) {
	var doc yamlRulebase
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, ir.SyntaxErrors{{Source: source, Line: 1, Reason: "invalid YAML rulebase", Err: err}}
	}
	rb := &Rulebase{Source: source}
	var errs ir.SyntaxErrors

	if doc.Version != 0 && doc.Version != 2 {
		errs = append(errs, &ir.SyntaxError{Source: source, Line: 1, Reason: fmt.Sprintf("unsupported rulebase version %d", doc.Version)})
	}
	prefix, terr := NewSampleTokenizer(doc.Prefix).Run()
	if terr != nil {
		errs = append(errs, terr.locate(ir.Location{Source: source, Line: 1}, 0))
	}

	for i := range doc.Annotations {
		n := &doc.Annotations[i]
		loc := ir.Location{Source: source, Line: n.Line}
		var ya yamlAnnotation
		if err := n.Decode(&ya); err != nil {
			errs = append(errs, &ir.SyntaxError{Source: source, Line: n.Line, Column: n.Column, Reason: "invalid annotation", Err: err})
			continue
		}
		if ya.Tag == "" {
			errs = append(errs, &ir.SyntaxError{Source: source, Line: n.Line, Column: n.Column, Reason: "annotation has no tag"})
			continue
		}
		a := ir.Annotation{Tag: ya.Tag, Loc: loc}
		if ya.Fields.Kind != yaml.MappingNode || len(ya.Fields.Content) == 0 {
			errs = append(errs, &ir.SyntaxError{Source: source, Line: n.Line, Column: n.Column, Reason: "annotation needs a fields mapping"})
			continue
		}
		// mapping nodes alternate key, value; keep document order
		for k := 0; k+1 < len(ya.Fields.Content); k += 2 {
			a.Fields = append(a.Fields, ir.Entry{Key: ya.Fields.Content[k].Value, Value: ya.Fields.Content[k+1].Value})
		}
		rb.Annotations = append(rb.Annotations, a)
	}

	for i := range doc.Rules {
		n := &doc.Rules[i]
		var yr yamlRule
		if err := n.Decode(&yr); err != nil {
			errs = append(errs, &ir.SyntaxError{Source: source, Line: n.Line, Column: n.Column, Reason: "invalid rule", Err: err})
			continue
		}
		loc := ir.Location{Source: source, Line: sampleLine(n)}
		r, serr := buildRule(prefix, yr.Sample, 0, loc, c.reg, c.opts)
		if serr != nil {
			errs = append(errs, serr)
			continue
		}
		r.Tags = append([]string(nil), yr.Tags...)
		r.Mockup = doc.Prefix + yr.Sample
		rb.Rules = append(rb.Rules, r)
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return rb, nil
}

// sampleLine is the line of the "sample" value, falling back to the rule node.
func sampleLine(n *yaml.Node) int {
	if n.Kind == yaml.MappingNode {
		for k := 0; k+1 < len(n.Content); k += 2 {
			if n.Content[k].Value == "sample" {
				return n.Content[k+1].Line
			}
		}
	}
	return n.Line
}
