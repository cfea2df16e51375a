package rules

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/PhucNguyen204/lognorm/pkg/lognorm"
)

var rulebaseExts = map[string]bool{".rb": true, ".rulebase": true, ".yml": true, ".yaml": true}

// IsRulebase reports whether p has a rulebase file extension.
func IsRulebase(p string) bool {
	return rulebaseExts[strings.ToLower(filepath.Ext(p))]
}

// CollectFiles expands paths into rulebase files. Directories are walked
// recursively and contribute their rulebase files in lexical order; plain
// files are taken as given, whatever their extension.
func CollectFiles(paths []string) ([]string, error) {
	var out []string
	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			out = append(out, root)
			continue
		}
		var found []string
		err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !IsRulebase(p) {
				return nil
			}
			found = append(found, p)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk dir %s: %w", root, err)
		}
		sort.Strings(found)
		out = append(out, found...)
	}
	return out, nil
}

// LoadReport counts what LoadPaths installed.
type LoadReport struct {
	Files []string
	Rules int
}

// LoadPaths loads every rulebase under paths into c, one file at a time. It
// stops at the first file that fails; files loaded before it stay loaded.
func LoadPaths(c *lognorm.Context, paths []string) (LoadReport, error) {
	var rep LoadReport
	files, err := CollectFiles(paths)
	if err != nil {
		return rep, err
	}
	for _, f := range files {
		n, err := c.LoadSamples(f)
		if err != nil {
			return rep, err
		}
		rep.Files = append(rep.Files, f)
		rep.Rules += n
	}
	return rep, nil
}
