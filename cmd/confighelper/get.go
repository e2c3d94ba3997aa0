package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newGetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <file> <path>",
		Short: "Print the value stored at a dotted path",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, store, err := opts.readStore(args[0])
			if err != nil {
				return err
			}
			v, ok := store.Lookup(args[1])
			if !ok {
				return fmt.Errorf("%s: no value at %q", args[0], args[1])
			}
			out, err := render(v)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), trimNewline(out))
			return nil
		},
	}
}

func trimNewline(s string) string {
	if n := len(s); n > 0 && s[n-1] == '\n' {
		return s[:n-1]
	}
	return s
}
