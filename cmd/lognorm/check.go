package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	ir "github.com/PhucNguyen204/lognorm/engine_lognorm_by_golang"
	"github.com/PhucNguyen204/lognorm/engine_lognorm_by_golang/compiler"
	"github.com/PhucNguyen204/lognorm/internal/rules"
)

func newCheckCmd() *cobra.Command {
	var allowRegex bool
	cmd := &cobra.Command{
		Use:   "check <rulebase|dir>...",
		Short: "Compile rulebases and report every syntax error",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts ir.CtxOpt
			if allowRegex {
				opts |= ir.OptAllowRegex
			}
			return runCheck(cmd.OutOrStdout(), args, opts)
		},
	}
	cmd.Flags().BoolVar(&allowRegex, "allow-regex", false, "enable the regex field type")
	return cmd
}

func runCheck(out io.Writer, paths []string, opts ir.CtxOpt) error {
	files, err := rules.CollectFiles(paths)
	if err != nil {
		return err
	}
	comp := compiler.New(nil, opts)
	failed := 0
	for _, f := range files {
		rb, err := comp.CompileFile(f)
		if err == nil {
			fmt.Fprintf(out, "ok    %s (%d rules, %d annotations)\n", f, len(rb.Rules), len(rb.Annotations))
			continue
		}
		failed++
		var serrs ir.SyntaxErrors
		if errors.As(err, &serrs) {
			for _, se := range serrs {
				fmt.Fprintf(out, "error %s\n", se)
			}
			continue
		}
		fmt.Fprintf(out, "error %v\n", err)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d rulebases failed", failed, len(files))
	}
	return nil
}
