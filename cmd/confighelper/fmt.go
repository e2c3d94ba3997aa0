package main

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	ch "github.com/DavidNery/ConfigHelper"
	"github.com/DavidNery/ConfigHelper/internal/logging"
)

type fmtResult struct {
	path    string
	changed bool
	diff    string
}

func newFmtCmd(opts *rootOptions) *cobra.Command {
	var showDiff bool
	cmd := &cobra.Command{
		Use:   "fmt <file>...",
		Short: "Rewrite documents in canonical form",
		Long: `fmt parses each file and emits it again through its format driver.
With --diff the files are left alone and a unified diff is printed instead.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			results := make([]fmtResult, len(args))
			g, ctx := errgroup.WithContext(cmd.Context())
			for i, path := range args {
				g.Go(func() error {
					if err := ctx.Err(); err != nil {
						return err
					}
					res, err := opts.formatFile(path, !showDiff)
					if err != nil {
						return err
					}
					results[i] = res
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			for _, res := range results {
				switch {
				case showDiff && res.changed:
					fmt.Fprint(w, res.diff)
				case res.changed:
					fmt.Fprintln(w, res.path)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&showDiff, "diff", "d", false, "print a unified diff instead of rewriting")
	return cmd
}

func (o *rootOptions) formatFile(path string, write bool) (fmtResult, error) {
	res := fmtResult{path: path}
	f, err := o.file(path, true)
	if err != nil {
		return res, err
	}
	before, err := os.ReadFile(path)
	if err != nil {
		return res, fmt.Errorf("read %s: %w", path, err)
	}
	t, err := f.ReadTree(path)
	if err != nil {
		return res, err
	}
	format := f.Format
	if format == nil {
		format = ch.FormatFor(path)
	}
	after, err := format.Emit(t)
	if err != nil {
		return res, fmt.Errorf("emit %s: %w", path, err)
	}
	if bytes.Equal(before, after) {
		return res, nil
	}
	res.changed = true
	if !write {
		diff := difflib.UnifiedDiff{
			A:        difflib.SplitLines(string(before)),
			B:        difflib.SplitLines(string(after)),
			FromFile: path,
			ToFile:   path + " (formatted)",
			Context:  3,
		}
		text, err := difflib.GetUnifiedDiffString(diff)
		if err != nil {
			return res, err
		}
		if !strings.HasSuffix(text, "\n") {
			text += "\n"
		}
		res.diff = text
		return res, nil
	}
	if _, err := f.WriteTree(path, t); err != nil {
		return res, err
	}
	logging.For("cli").Debug("formatted file", "path", path)
	return res, nil
}
