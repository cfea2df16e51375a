package normalizer

import (
	ir "github.com/PhucNguyen204/lognorm/engine_lognorm_by_golang"
	"github.com/PhucNguyen204/lognorm/engine_lognorm_by_golang/trie"
)

// Output keys, liblognorm compatible.
const (
	KeyOriginalMsg  = "originalmsg"
	KeyUnparsedData = "unparsed-data"
	KeyEventTags    = "event.tags"
	KeyMetadata     = "metadata"
	KeyRule         = "rule"
	KeyMockup       = "mockup"
	KeyLocation     = "location"
	KeyFile         = "file"
	KeyLine         = "line"
	KeyExecPath     = "exec-path"
)

// Assemble builds the output record of res.
//
// Structured: fields in rule order, event.tags, annotations, then the option
// controlled originalmsg and metadata. Unparsed: originalmsg and unparsed-data.
func Assemble(snap *trie.Snapshot, res ir.Result, opts ir.CtxOpt) ir.Record {
	if res.Kind != ir.Structured {
		return ir.Record{
			{Key: KeyOriginalMsg, Value: res.Raw},
			{Key: KeyUnparsedData, Value: res.UnparsedData()},
		}
	}
	out := make(ir.Record, 0, len(res.Fields)+4)
	out = append(out, res.Fields...)
	r := res.Rule
	if len(r.Tags) > 0 {
		out = out.Set(KeyEventTags, append([]string(nil), r.Tags...))
	}
	if snap != nil {
		for _, e := range snap.AnnotationsFor(r) {
			out = out.Set(e.Key, e.Value)
		}
	}
	if opts.Has(ir.OptAddOriginalMsg) {
		out = out.Set(KeyOriginalMsg, res.Raw)
	}

	var meta ir.Record
	if opts.Has(ir.OptAddRule) || opts.Has(ir.OptAddRuleLocation) {
		var rule ir.Record
		if opts.Has(ir.OptAddRule) {
			rule = rule.Set(KeyMockup, r.Mockup)
		}
		if opts.Has(ir.OptAddRuleLocation) {
			rule = rule.Set(KeyLocation, ir.Record{{Key: KeyFile, Value: sourceName(r)}, {Key: KeyLine, Value: sourceLine(r)}})
		}
		meta = meta.Set(KeyRule, rule)
	}
	// rules loaded from a string have no path to report
	if opts.Has(ir.OptAddExecPath) && r.Loc.Source != "" {
		meta = meta.Set(KeyExecPath, r.Loc.Source)
	}
	if meta != nil {
		out = out.Set(KeyMetadata, meta)
	}
	return out
}

func sourceName(r *ir.Rule) string {
	if r.Loc.Source == "" {
		return ir.NoFile
	}
	return r.Loc.Source
}

// sourceLine is 0 for rules loaded from a string, as liblognorm reports them.
func sourceLine(r *ir.Rule) int {
	if r.Loc.Source == "" {
		return 0
	}
	return r.Loc.Line
}
