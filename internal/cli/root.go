// Package cli is the thin development surface over the session engine.
// It contains no engine logic: every command opens a session, calls one view
// operation, and renders the result.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentfs/agentfs/internal/session"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	DataDir    string
	ConfigPath string
	Session    string
	Format     string // "json" | "text"
	Verbose    bool
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the agentfs CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "agentfs",
		Short: "AgentFS - per-session storage for agents",
		Long:  "Per-session storage engine unifying a virtual filesystem, a typed key-value store, and a tool-call ledger.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			level := slog.LevelWarn
			if opts.Verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.PersistentFlags().StringVar(&opts.DataDir, "data-dir", "", "session data directory (overrides config)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to yaml config file")
	cmd.PersistentFlags().StringVarP(&opts.Session, "session", "s", "default", "session id")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(NewFSCommand(opts))
	cmd.AddCommand(NewKVCommand(opts))
	cmd.AddCommand(NewToolsCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// config resolves the effective configuration from flags and config file.
func (o *RootOptions) config() (session.Config, error) {
	cfg := session.DefaultConfig()
	if o.ConfigPath != "" {
		loaded, err := session.LoadConfig(o.ConfigPath)
		if err != nil {
			return session.Config{}, err
		}
		cfg = loaded
	}
	if o.DataDir != "" {
		cfg.DataDir = o.DataDir
	}
	return cfg, nil
}

// withSession opens the configured session, runs fn, and closes everything.
func (o *RootOptions) withSession(ctx context.Context, fn func(*session.Session) error) error {
	cfg, err := o.config()
	if err != nil {
		return err
	}

	mgr := session.NewManager(cfg, slog.Default())
	defer mgr.Close()

	s, err := mgr.Open(ctx, o.Session)
	if err != nil {
		return err
	}
	defer s.Close()

	return fn(s)
}

// Main is the entry point used by cmd/agentfs.
func Main() {
	if err := NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
