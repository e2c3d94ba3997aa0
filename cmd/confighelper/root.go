package main

import (
	"fmt"

	"github.com/spf13/cobra"

	ch "github.com/DavidNery/ConfigHelper"
	"github.com/DavidNery/ConfigHelper/internal/logging"
	"github.com/DavidNery/ConfigHelper/value"
)

type rootOptions struct {
	format   string
	logLevel string
}

// newRootCmd builds the command tree. A fresh tree per call keeps flag state
// out of package globals.
func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "confighelper",
		Short: "Read, edit and convert configuration documents",
		Long: `confighelper works on YAML, JSON and HCL configuration files through
dotted key paths. The format is chosen by file extension unless --format
is given.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := logging.ParseLevel(opts.logLevel)
			if err != nil {
				return err
			}
			logging.Init(level, cmd.ErrOrStderr())
			return nil
		},
	}
	root.PersistentFlags().StringVar(&opts.format, "format", "", "document format (yaml, json, hcl); default by extension")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	root.AddCommand(
		newGetCmd(opts),
		newSetCmd(opts),
		newKeysCmd(opts),
		newConvertCmd(opts),
		newFmtCmd(opts),
		newInspectCmd(opts),
	)
	return root
}

// file returns a File for path honouring --format.
func (o *rootOptions) file(path string, replace bool) (*ch.File, error) {
	f := ch.NewFile(path)
	f.ReplaceIfExists = replace
	if o.format != "" {
		format, ok := ch.FormatByName(o.format)
		if !ok {
			return nil, fmt.Errorf("unknown format %q (known: %v)", o.format, ch.Formats())
		}
		f.Format = format
	}
	return f, nil
}

func (o *rootOptions) readStore(path string) (*ch.File, *ch.Store, error) {
	f, err := o.file(path, true)
	if err != nil {
		return nil, nil, err
	}
	t, err := f.ReadTree(path)
	if err != nil {
		return nil, nil, err
	}
	return f, ch.NewStoreFrom(t), nil
}

// render prints scalars bare and composite values as YAML.
func render(v value.Value) (string, error) {
	switch v.Kind() {
	case value.KindString:
		s, _ := v.AsString()
		return s, nil
	case value.KindTree:
		t, _ := v.AsTree()
		out, err := ch.FormatFor(".yml").Emit(t)
		return string(out), err
	}
	return v.String(), nil
}
