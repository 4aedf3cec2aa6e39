package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/agentfs/agentfs/internal/session"
)

// NewFSCommand creates the `agentfs fs` command group.
func NewFSCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fs",
		Short: "Filesystem operations",
	}

	cmd.AddCommand(newFSWriteCommand(opts))
	cmd.AddCommand(newFSReadCommand(opts))
	cmd.AddCommand(newFSLsCommand(opts))
	cmd.AddCommand(newFSStatCommand(opts))
	cmd.AddCommand(newFSMkdirCommand(opts))
	cmd.AddCommand(newFSRmCommand(opts))
	cmd.AddCommand(newFSMvCommand(opts))

	return cmd
}

func newFSWriteCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "write <path> [content]",
		Short: "Write a file (content from argument or stdin)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var content []byte
			if len(args) == 2 {
				content = []byte(args[1])
			} else {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				content = data
			}
			return opts.withSession(cmd.Context(), func(s *session.Session) error {
				if err := s.FS().WriteFile(cmd.Context(), args[0], content); err != nil {
					return err
				}
				return emitOK(formatter(opts, cmd.OutOrStdout()))
			})
		},
	}
}

func newFSReadCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "read <path>",
		Short: "Print a file's content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSession(cmd.Context(), func(s *session.Session) error {
				content, err := s.FS().ReadFile(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(content)
				return err
			})
		},
	}
}

func newFSLsCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ls <path>",
		Short: "List directory entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSession(cmd.Context(), func(s *session.Session) error {
				names, err := s.FS().Readdir(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return formatter(opts, cmd.OutOrStdout()).Emit(names, func(w io.Writer) {
					for _, name := range names {
						fmt.Fprintln(w, name)
					}
				})
			})
		},
	}
}

func newFSStatCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stat <path>",
		Short: "Show entry metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSession(cmd.Context(), func(s *session.Session) error {
				stats, err := s.FS().Stat(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return formatter(opts, cmd.OutOrStdout()).Emit(stats, func(w io.Writer) {
					fmt.Fprintf(w, "path:  %s\n", stats.Path)
					fmt.Fprintf(w, "kind:  %s\n", stats.Kind)
					fmt.Fprintf(w, "size:  %d\n", stats.Size)
					fmt.Fprintf(w, "mtime: %d\n", stats.Mtime)
					fmt.Fprintf(w, "ctime: %d\n", stats.Ctime)
				})
			})
		},
	}
}

func newFSMkdirCommand(opts *RootOptions) *cobra.Command {
	var parents bool
	cmd := &cobra.Command{
		Use:   "mkdir <path>",
		Short: "Create a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSession(cmd.Context(), func(s *session.Session) error {
				var err error
				if parents {
					err = s.FS().MkdirAll(cmd.Context(), args[0])
				} else {
					err = s.FS().Mkdir(cmd.Context(), args[0])
				}
				if err != nil {
					return err
				}
				return emitOK(formatter(opts, cmd.OutOrStdout()))
			})
		},
	}
	cmd.Flags().BoolVarP(&parents, "parents", "p", false, "create missing parent directories")
	return cmd
}

func newFSRmCommand(opts *RootOptions) *cobra.Command {
	var recursive bool
	cmd := &cobra.Command{
		Use:   "rm <path>",
		Short: "Remove a file or directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSession(cmd.Context(), func(s *session.Session) error {
				if err := s.FS().Remove(cmd.Context(), args[0], recursive); err != nil {
					return err
				}
				return emitOK(formatter(opts, cmd.OutOrStdout()))
			})
		},
	}
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "remove directories and their contents")
	return cmd
}

func newFSMvCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mv <old> <new>",
		Short: "Rename a file or directory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSession(cmd.Context(), func(s *session.Session) error {
				if err := s.FS().Rename(cmd.Context(), args[0], args[1]); err != nil {
					return err
				}
				return emitOK(formatter(opts, cmd.OutOrStdout()))
			})
		},
	}
}
