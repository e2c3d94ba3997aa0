package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newKeysCmd(opts *rootOptions) *cobra.Command {
	var plain bool
	cmd := &cobra.Command{
		Use:   "keys <file>",
		Short: "List every leaf path with its kind and value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, store, err := opts.readStore(args[0])
			if err != nil {
				return err
			}
			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.AppendHeader(table.Row{"PATH", "KIND", "VALUE"})
			for _, path := range store.Keys() {
				v := store.Get(path)
				t.AppendRow(table.Row{path, v.Kind(), v.String()})
			}
			if plain {
				t.Style().Options = table.OptionsNoBordersAndSeparators
				t.Render()
				return nil
			}
			t.SetStyle(table.StyleRounded)
			t.Render()
			return nil
		},
	}
	cmd.Flags().BoolVar(&plain, "plain", false, "render without borders")
	return cmd
}
