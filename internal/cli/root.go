// Package cli provides the command-line interface for the MCP server.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/BearHuddleston/employee-mcp-server/pkg/config"
)

// Version information (set at build time).
var (
	Version   = "1.0.0"
	GitCommit = "unknown"
)

// app carries state shared by all commands once flags are parsed.
type app struct {
	cfgFile string
	cfg     *config.Config
	logger  *slog.Logger
}

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "mcpserver [flags] <database>",
		Short: "MCP tool server for the employee SQLite database",
		Long: `mcpserver exposes an employee SQLite database to MCP clients.

Without a subcommand it serves newline-delimited JSON-RPC on stdin/stdout
(or HTTP with --transport http) and offers the query_database, get_schema,
list_tables and insert_employee tools. SQL submitted through query_database
is checked against an allow-list of statement kinds and a deny-list of
structural keywords before it runs.`,
		Example: `  # Serve over stdio
  mcpserver employees.db

  # Read-only policy, no insert_employee tool
  mcpserver --policy readonly employees.db

  # List employees
  mcpserver employees list --database employees.db`,
		Version: Version,
		Args:    cobra.MaximumNArgs(1),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd, args)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), a.cfg, cmd.InOrStdin(), cmd.OutOrStdout(), a.logger)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (YAML)")
	rootCmd.PersistentFlags().String("database", "", "Path to the SQLite database")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().StringP("output", "o", "", "Output format for data commands (table|json)")

	rootCmd.Flags().String("transport", "", "Transport type: stdio or http")
	rootCmd.Flags().Int("port", 0, "Port for HTTP transport (ignored for stdio)")
	rootCmd.Flags().Duration("request-timeout", 0, "Per-request deadline (0 disables it)")
	rootCmd.Flags().String("policy", "", "Query policy: permissive or readonly")
	rootCmd.Flags().Int("default-limit", 0, "Row cap for SELECT queries without a limit argument")

	_ = rootCmd.RegisterFlagCompletionFunc("policy", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{config.PolicyPermissive, config.PolicyReadOnly}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("transport", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{config.TransportStdio, config.TransportHTTP}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(newEmployeesCommand(a))
	rootCmd.AddCommand(newDepartmentsCommand(a))
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

// load resolves configuration and the logger for the command being run.
// A positional argument on the root command names the database.
func (a *app) load(cmd *cobra.Command, args []string) error {
	if cmd.Name() == "help" || cmd.Name() == "version" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
		return nil
	}

	cfg, err := config.Load(a.cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	if !cmd.HasParent() && len(args) == 1 {
		cfg.Database = args[0]
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	level, _ := cfg.SlogLevel()
	a.cfg = cfg
	a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	return nil
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}
