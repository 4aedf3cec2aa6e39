package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/agentfs/agentfs/internal/kv"
	"github.com/agentfs/agentfs/internal/session"
)

// NewKVCommand creates the `agentfs kv` command group.
func NewKVCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kv",
		Short: "Key-value operations",
	}

	cmd.AddCommand(newKVSetCommand(opts))
	cmd.AddCommand(newKVGetCommand(opts))
	cmd.AddCommand(newKVDelCommand(opts))
	cmd.AddCommand(newKVKeysCommand(opts))

	return cmd
}

// parseValue converts a CLI argument into a typed value.
func parseValue(raw, typ string) (kv.Value, error) {
	switch typ {
	case "string":
		return kv.String(raw), nil
	case "int":
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse int value: %w", err)
		}
		return kv.Int(n), nil
	case "bool":
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("parse bool value: %w", err)
		}
		return kv.Bool(b), nil
	case "json":
		dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
		dec.UseNumber()
		var m map[string]any
		if err := dec.Decode(&m); err != nil {
			return nil, fmt.Errorf("parse json value: %w", err)
		}
		return kv.Object(m), nil
	default:
		return nil, fmt.Errorf("invalid type %q: must be string, int, bool, or json", typ)
	}
}

func newKVSetCommand(opts *RootOptions) *cobra.Command {
	var typ string
	cmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Store a typed value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := parseValue(args[1], typ)
			if err != nil {
				return err
			}
			return opts.withSession(cmd.Context(), func(s *session.Session) error {
				if err := s.KV().Set(cmd.Context(), args[0], value); err != nil {
					return err
				}
				return emitOK(formatter(opts, cmd.OutOrStdout()))
			})
		},
	}
	cmd.Flags().StringVarP(&typ, "type", "t", "string", "value type (string|int|bool|json)")
	return cmd
}

func newKVGetCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Retrieve a value with its original type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSession(cmd.Context(), func(s *session.Session) error {
				value, err := s.KV().Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				native := kv.Native(value)
				return formatter(opts, cmd.OutOrStdout()).Emit(native, func(w io.Writer) {
					fmt.Fprintf(w, "%v\n", native)
				})
			})
		},
	}
}

func newKVDelCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "del <key>",
		Short: "Delete a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSession(cmd.Context(), func(s *session.Session) error {
				if err := s.KV().Delete(cmd.Context(), args[0]); err != nil {
					return err
				}
				return emitOK(formatter(opts, cmd.OutOrStdout()))
			})
		},
	}
}

func newKVKeysCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "keys [prefix]",
		Short: "List keys, optionally filtered by prefix",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prefix := ""
			if len(args) == 1 {
				prefix = args[0]
			}
			return opts.withSession(cmd.Context(), func(s *session.Session) error {
				keys, err := s.KV().Keys(cmd.Context(), prefix)
				if err != nil {
					return err
				}
				return formatter(opts, cmd.OutOrStdout()).Emit(keys, func(w io.Writer) {
					for _, key := range keys {
						fmt.Fprintln(w, key)
					}
				})
			})
		},
	}
}
