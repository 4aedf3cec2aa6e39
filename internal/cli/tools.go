package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/agentfs/agentfs/internal/session"
)

// NewToolsCommand creates the `agentfs tools` command group.
func NewToolsCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "Tool-call ledger operations",
	}

	cmd.AddCommand(newToolsStartCommand(opts))
	cmd.AddCommand(newToolsSuccessCommand(opts))
	cmd.AddCommand(newToolsErrorCommand(opts))
	cmd.AddCommand(newToolsStatsCommand(opts))
	cmd.AddCommand(newToolsRecentCommand(opts))

	return cmd
}

// parsePayload decodes an optional JSON object argument.
func parsePayload(args []string, idx int) (map[string]any, error) {
	if len(args) <= idx {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(args[idx])))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("parse payload: %w", err)
	}
	return m, nil
}

func newToolsStartCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "start <name> [input-json]",
		Short: "Record a pending tool call and print its id",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := parsePayload(args, 1)
			if err != nil {
				return err
			}
			return opts.withSession(cmd.Context(), func(s *session.Session) error {
				id, err := s.Tools().Start(cmd.Context(), args[0], input)
				if err != nil {
					return err
				}
				return formatter(opts, cmd.OutOrStdout()).Emit(map[string]int64{"id": id}, func(w io.Writer) {
					fmt.Fprintln(w, id)
				})
			})
		},
	}
}

func newToolsSuccessCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "success <id> [output-json]",
		Short: "Complete a tool call successfully",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("parse id: %w", err)
			}
			output, err := parsePayload(args, 1)
			if err != nil {
				return err
			}
			return opts.withSession(cmd.Context(), func(s *session.Session) error {
				if err := s.Tools().Success(cmd.Context(), id, output); err != nil {
					return err
				}
				return emitOK(formatter(opts, cmd.OutOrStdout()))
			})
		},
	}
}

func newToolsErrorCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "error <id> <message>",
		Short: "Complete a tool call as failed",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("parse id: %w", err)
			}
			return opts.withSession(cmd.Context(), func(s *session.Session) error {
				if err := s.Tools().Error(cmd.Context(), id, args[1]); err != nil {
					return err
				}
				return emitOK(formatter(opts, cmd.OutOrStdout()))
			})
		},
	}
}

func newToolsStatsCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show per-tool aggregate statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSession(cmd.Context(), func(s *session.Session) error {
				stats, err := s.Tools().GetStats(cmd.Context())
				if err != nil {
					return err
				}
				return formatter(opts, cmd.OutOrStdout()).Emit(stats, func(w io.Writer) {
					for _, stat := range stats {
						fmt.Fprintf(w, "%s: total=%d successful=%d failed=%d avg=%.0fms\n",
							stat.Name, stat.TotalCalls, stat.Successful, stat.Failed, stat.AvgDurationMS)
					}
				})
			})
		},
	}
}

func newToolsRecentCommand(opts *RootOptions) *cobra.Command {
	var since int64
	cmd := &cobra.Command{
		Use:   "recent",
		Short: "List calls started at or after a timestamp",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSession(cmd.Context(), func(s *session.Session) error {
				calls, err := s.Tools().GetRecent(cmd.Context(), since)
				if err != nil {
					return err
				}
				return formatter(opts, cmd.OutOrStdout()).Emit(calls, func(w io.Writer) {
					for _, call := range calls {
						fmt.Fprintf(w, "%d %s %s started=%d duration=%dms\n",
							call.ID, call.Name, call.Status, call.StartedAt, call.DurationMS)
					}
				})
			})
		},
	}
	cmd.Flags().Int64Var(&since, "since", 0, "start timestamp cutoff (unix milliseconds)")
	return cmd
}
