package commands

import (
	"github.com/spf13/cobra"

	"miseagent/mcp"
)

func NewMCPCmd() *cobra.Command {
	var seed string

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the tools over MCP stdio",
		Long: `Serve every tool over the Model Context Protocol on stdio.

All calls act on behalf of MCP_USER_ID.`,
		Example: `  # claude_desktop_config.json
  # {
  #   "mcpServers": {
  #     "mise": {"command": "mise", "args": ["mcp"]}
  #   }
  # }`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := buildApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := seedApp(ctx, a, seed, a.Config.MCP.UserID); err != nil {
				return err
			}

			s, err := mcp.NewServer(a.Registry, a.Config.MCP.UserID)
			if err != nil {
				return err
			}
			return mcp.Serve(s)
		},
	}

	cmd.Flags().StringVar(&seed, "seed", "", "JSON file or s3://bucket/key to seed the store with")
	return cmd
}
