// Package commands holds the mise CLI.
package commands

import (
	"context"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"miseagent"
)

var (
	verbose      bool
	withOtel     bool
	otelShutdown func(context.Context) error
)

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mise",
		Short: "Meal-planning assistant",
		Long: `Mise is a meal-planning assistant.

It keeps track of your pantry, leftovers, shopping list and food
preferences, and lets a language model work with them through tools.
Run it as an HTTP API, an MCP server, or straight from the terminal.`,
		SilenceUsage:       true,
		PersistentPreRunE:  setup,
		PersistentPostRunE: teardown,
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	cmd.PersistentFlags().BoolVar(&withOtel, "otel", false, "Export traces and metrics over OTLP")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMCPCmd())
	cmd.AddCommand(NewChatCmd())
	cmd.AddCommand(NewToolsCmd())
	cmd.AddCommand(NewMigrateCmd())

	return cmd
}

func Execute() error {
	return NewRootCmd().Execute()
}

func setup(cmd *cobra.Command, args []string) error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("SETUP: Could not read .env", "error", err)
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if !withOtel {
		return nil
	}
	_, _, shutdown, err := miseagent.InitOtel(cmd.Context())
	if err != nil {
		return err
	}
	otelShutdown = shutdown
	return nil
}

func teardown(cmd *cobra.Command, args []string) error {
	if otelShutdown == nil {
		return nil
	}
	err := otelShutdown(context.WithoutCancel(cmd.Context()))
	otelShutdown = nil
	return err
}
