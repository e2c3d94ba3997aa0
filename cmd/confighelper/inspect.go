package main

import (
	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"

	"github.com/DavidNery/ConfigHelper/value"
)

func newInspectCmd(opts *rootOptions) *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "Dump the decoded document with Go types",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, store, err := opts.readStore(args[0])
			if err != nil {
				return err
			}
			v := value.Of(store.Snapshot())
			if path != "" {
				v = store.Get(path)
			}
			cfg := spew.ConfigState{
				Indent:                  "  ",
				SortKeys:                true,
				DisablePointerAddresses: true,
				DisableCapacities:       true,
			}
			cfg.Fdump(cmd.OutOrStdout(), v.Interface())
			return nil
		},
	}
	cmd.Flags().StringVarP(&path, "path", "p", "", "dump only the value at this dotted path")
	return cmd
}
