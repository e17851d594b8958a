package tools

import (
	"github.com/spf13/cobra"
)

func NewToolsCmd() *cobra.Command {
	toolsCmd := &cobra.Command{
		Use:   "tool",
		Short: "tools working with wallet data structures etc",
	}
	toolsCmd.AddCommand(encodeRequestCmd())
	toolsCmd.AddCommand(ibcMemoCmd())

	return toolsCmd
}
