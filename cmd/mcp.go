package cmd

import (
	"github.com/spf13/cobra"

	"github.com/huangsam/patchcorpus/internal/mcp"
)

// mcpCmd represents the mcp command.
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the patchcorpus MCP server",
	Long: `Launch an MCP server over stdio that lets AI agents extract commit
references, introspect diffs, pack and parse documents, build the corpus and
read build history.`,
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		return mcp.StartMCPServer(rootCtx, cfg, cacheManager)
	},
}
