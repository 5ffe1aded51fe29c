package commands

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"miseagent/tools"
)

func NewToolsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List or call the assistant's tools",
		Long: `List or call the assistant's tools directly, without a model in the loop.

Useful for checking store contents and reproducing tool failures.`,
	}
	cmd.AddCommand(newToolsListCmd())
	cmd.AddCommand(newToolsCallCmd())
	return cmd
}

func newToolsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every registered tool",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, t := range a.Registry.GetTools() {
				fmt.Fprintf(w, "%s\t%s\n", t.Name(), t.Title())
			}
			return w.Flush()
		},
	}
}

func newToolsCallCmd() *cobra.Command {
	var (
		user string
		seed string
	)

	cmd := &cobra.Command{
		Use:   "call <name> [json-input]",
		Short: "Call one tool with a JSON object as input",
		Example: `  mise tools call getInventory
  mise tools call createInventoryItems '{"items":[{"item_name":"Rice","quantity":2,"unit":"cup","category":"pantry"}]}'`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := map[string]any{}
			if len(args) == 2 {
				if err := json.Unmarshal([]byte(args[1]), &input); err != nil {
					return fmt.Errorf("input must be a JSON object: %w", err)
				}
			}

			ctx := cmd.Context()
			a, err := buildApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := seedApp(ctx, a, seed, user); err != nil {
				return err
			}

			t, err := a.Registry.GetTool(args[0])
			if err != nil {
				return err
			}
			out, err := t.Run(tools.WithUserID(ctx, user), input)
			if err != nil {
				return fmt.Errorf("%s: %s", args[0], tools.Message(err))
			}
			fmt.Fprintln(cmd.OutOrStdout(), out["result"])
			return nil
		},
	}

	cmd.Flags().StringVarP(&user, "user", "u", "local", "User id to act as")
	cmd.Flags().StringVar(&seed, "seed", "", "JSON file or s3://bucket/key to seed the store with")
	return cmd
}
