package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/loykin/ccp/internal/config"
	"github.com/loykin/ccp/internal/history"
	"github.com/loykin/ccp/internal/logger"
)

var version = "dev"

func main() {
	root := buildRoot(newCommand(os.Stdin, os.Stdout, os.Stderr))
	if err := root.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// buildRoot creates the root command and its subcommands around c.
func buildRoot(c *command) *cobra.Command {
	root := createRootCommand(c)
	root.AddCommand(
		createStartCommand(c),
		createStopCommand(c),
		createStatusCommand(c),
		createConfigCommand(c),
		createLogsCommand(c),
		createInitCommand(c),
		createShellCommand(c),
		createServeCommand(c),
		createHistoryCommand(c),
	)
	return root
}

func createRootCommand(c *command) *cobra.Command {
	root := &cobra.Command{
		Use:   "ccp",
		Short: "Run and supervise the ccp model forwarder",
		Long: `ccp supervises a local forwarder that maps Claude model aliases
(sonnet, haiku) onto OpenAI or Gemini models.

Without a command it checks the shell integration and prints the status.

Examples:
  ccp init                # write API keys and models to .env
  ccp start               # start the forwarder in the background
  ccp start --auto        # start it and launch the client
  ccp logs -n 50          # follow the forwarder log
  ccp stop`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Overview(cmd.Context())
		},
	}
	root.SetIn(c.in)
	root.SetOut(c.out)
	root.SetErr(c.errOut)
	root.PersistentFlags().StringVar(&c.flags.Dir, "dir", ".", "directory holding the PID record, log and settings")
	root.PersistentFlags().StringVar(&c.flags.ConfigPath, "config", "", "path to "+config.FileName+" (default <dir>/"+config.FileName+")")
	root.PersistentFlags().StringVar(&c.flags.LogLevel, "log-level", "", "log level: debug, info, warn, error (default info; serve falls back to LOG_LEVEL)")
	return root
}

func createStartCommand(c *command) *cobra.Command {
	f := &StartFlags{}
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the forwarder",
		Long: `Start the forwarder in the background, or attached with --foreground.
With --auto the client is launched once the forwarder is up.

Examples:
  ccp start
  ccp start --foreground
  ccp start --auto`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Start(cmd.Context(), *f)
		},
	}
	cmd.Flags().BoolVarP(&f.Foreground, "foreground", "f", false, "run attached to the terminal")
	cmd.Flags().BoolVar(&f.Auto, "auto", false, "launch the client after the forwarder is up")
	cmd.MarkFlagsMutuallyExclusive("foreground", "auto")
	return cmd
}

func createStopCommand(c *command) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the background forwarder",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Stop(cmd.Context())
		},
	}
}

func createStatusCommand(c *command) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether the forwarder is running",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Status(cmd.Context())
		},
	}
}

func createConfigCommand(c *command) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show status and the current settings (secrets masked)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Config(cmd.Context())
		},
	}
}

func createLogsCommand(c *command) *cobra.Command {
	f := &LogsFlags{}
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Follow the forwarder log until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Logs(cmd.Context(), *f)
		},
	}
	cmd.Flags().IntVarP(&f.Lines, "lines", "n", logger.DefaultTailLines, "number of existing lines to show first")
	return cmd
}

func createInitCommand(c *command) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Interactively write API keys, provider and models",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Init(cmd.Context())
		},
	}
}

func createShellCommand(c *command) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Check or install the client environment variable in the shell startup file",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "check",
			Short: "Report whether the startup file exports the forwarder address",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.ShellCheck()
			},
		},
		&cobra.Command{
			Use:   "install",
			Short: "Append the export line to the startup file",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.ShellInstall()
			},
		},
	)
	return cmd
}

func createServeCommand(c *command) *cobra.Command {
	f := &ServeFlags{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the forwarder (normally started by 'ccp start')",
		Long: `Run the MCP forwarder in this process. Settings are read from the
.env file found from --dir upwards, then from the environment.

Examples:
  ccp serve --addr 127.0.0.1:8082
  ccp serve --stdio`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Serve(cmd.Context(), *f)
		},
	}
	cmd.Flags().StringVar(&f.Addr, "addr", config.DefaultListen, "listen address")
	cmd.Flags().StringVar(&f.BasePath, "base-path", "", "URL prefix for all endpoints")
	cmd.Flags().BoolVar(&f.Stdio, "stdio", false, "serve MCP over stdin/stdout instead of HTTP")
	return cmd
}

func createHistoryCommand(c *command) *cobra.Command {
	f := &HistoryFlags{}
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent start/stop events (requires [history] dsn)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.History(cmd.Context(), *f)
		},
	}
	cmd.Flags().IntVar(&f.Limit, "limit", history.DefaultRecentLimit, "maximum number of events")
	return cmd
}
