package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	ch "github.com/DavidNery/ConfigHelper"
	"github.com/DavidNery/ConfigHelper/internal/logging"
	"github.com/DavidNery/ConfigHelper/value"
)

func newSetCmd(opts *rootOptions) *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "set <file> <path> <value>",
		Short: "Store a scalar at a dotted path, creating the file if needed",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := parseTyped(args[2], kind)
			if err != nil {
				return err
			}
			f, err := opts.file(args[0], true)
			if err != nil {
				return err
			}
			t, err := f.ReadTree(args[0])
			if err != nil && !startsEmpty(err) {
				return err
			}
			store := ch.NewStoreFrom(t)
			store.Set(args[1], v)
			if _, err := f.WriteTree(args[0], store.Snapshot()); err != nil {
				return err
			}
			logging.For("cli").Info("set value", "path", args[0], "key", args[1])
			return nil
		},
	}
	cmd.Flags().StringVarP(&kind, "type", "t", "auto", "value type (auto, string, int, float, bool)")
	return cmd
}

// startsEmpty reports whether set may start from an empty tree: the file is
// missing, empty or null.
func startsEmpty(err error) bool {
	if errors.Is(err, ch.ErrNotFound) {
		return true
	}
	var cerr *ch.Error
	return errors.As(err, &cerr) && cerr.Code == ch.CodeMalformedDocument && cerr.Found == value.KindAbsent
}

func parseTyped(s, kind string) (value.Value, error) {
	switch kind {
	case "auto", "":
		return value.ParseScalar(s), nil
	case "string":
		return value.String(s), nil
	case "int":
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return value.Absent(), fmt.Errorf("invalid int %q", s)
		}
		return value.Int(i), nil
	case "float":
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return value.Absent(), fmt.Errorf("invalid float %q", s)
		}
		return value.Float(f), nil
	case "bool":
		b, err := strconv.ParseBool(s)
		if err != nil {
			return value.Absent(), fmt.Errorf("invalid bool %q", s)
		}
		return value.Bool(b), nil
	}
	return value.Absent(), fmt.Errorf("unknown type %q", kind)
}
