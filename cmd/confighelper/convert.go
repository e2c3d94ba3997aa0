package main

import (
	"fmt"

	"github.com/spf13/cobra"

	ch "github.com/DavidNery/ConfigHelper"
)

func newConvertCmd(opts *rootOptions) *cobra.Command {
	var replace bool
	var to string
	cmd := &cobra.Command{
		Use:   "convert <in> <out>",
		Short: "Re-encode a document in the format of the output file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := opts.file(args[0], false)
			if err != nil {
				return err
			}
			t, err := in.ReadTree(args[0])
			if err != nil {
				return err
			}
			out := ch.NewFile(args[1])
			out.ReplaceIfExists = replace
			if to != "" {
				format, ok := ch.FormatByName(to)
				if !ok {
					return fmt.Errorf("unknown format %q (known: %v)", to, ch.Formats())
				}
				out.Format = format
			}
			wrote, err := out.WriteTree(args[1], t)
			if err != nil {
				return err
			}
			if !wrote {
				return fmt.Errorf("%s exists; pass --replace to overwrite", args[1])
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&replace, "replace", false, "overwrite an existing output file")
	cmd.Flags().StringVar(&to, "to", "", "output format; default by output extension")
	return cmd
}
