package main

import (
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/rbaliyan/eventtree/codec"
	"github.com/rbaliyan/eventtree/config"
	"github.com/rbaliyan/eventtree/scenario"
)

// newRootCmd builds the command tree. Settings come from the config file,
// then EVENTTREE_* variables, then flags.
func newRootCmd() *cobra.Command {
	var (
		cfgPath  string
		logLevel string
		settings = config.Default()
	)
	root := &cobra.Command{
		Use:           "eventtree",
		Short:         "Run hierarchical event scenarios",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "Settings file (.yaml, .yml, .json, .toml)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug|info|warn|error (defaults EVENTTREE_LOG_LEVEL or info)")
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		f := config.Default()
		if cfgPath != "" {
			var err error
			if f, err = config.Load(cfgPath); err != nil {
				return err
			}
		}
		f, err := config.FromEnv(f)
		if err != nil {
			return err
		}
		if logLevel != "" {
			f.LogLevel = logLevel
		}
		settings = f
		slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: f.Level()})))
		return nil
	}

	load := func(cmd *cobra.Command, path string) (*scenario.Result, error) {
		s, err := scenario.Load(path)
		if err != nil {
			return nil, err
		}
		slog.Debug("running scenario", "name", s.Name, "steps", len(s.Steps))
		return scenario.Run(cmd.Context(), s, settings.Options()...)
	}

	runCmd := &cobra.Command{
		Use:     "run <file>",
		Short:   "Run a scenario and print the listener trace",
		Example: "  eventtree run scenario.yaml",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := load(cmd, args[0])
			if res != nil {
				out := cmd.OutOrStdout()
				for _, line := range res.Lines() {
					fmt.Fprintln(out, line)
				}
				for _, w := range res.Warnings {
					fmt.Fprintln(cmd.ErrOrStderr(), "warning:", w)
				}
				if res.Paused > 0 {
					fmt.Fprintf(out, "paused: %d\n", res.Paused)
				}
			}
			return err
		},
	}

	var format string
	inspectCmd := &cobra.Command{
		Use:     "inspect <file>",
		Short:   "Run a scenario and print the registry snapshot",
		Example: "  eventtree inspect scenario.yaml\n  eventtree inspect --format msgpack scenario.toml",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := codec.ByName(format)
			if err != nil {
				return err
			}
			res, err := load(cmd, args[0])
			if err != nil {
				return err
			}
			data, err := c.Encode(res.Registry.Snapshot())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if c.Name() == "msgpack" {
				_, err = fmt.Fprintln(out, hex.EncodeToString(data))
			} else {
				_, err = fmt.Fprintln(out, string(data))
			}
			return err
		},
	}
	inspectCmd.Flags().StringVar(&format, "format", "json", "Snapshot format: json|msgpack")

	root.AddCommand(runCmd, inspectCmd)
	return root
}
