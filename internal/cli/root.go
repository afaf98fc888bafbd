package cli

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "moltbot",
	Short: "Moltbot - Feishu group assistant",
	Long:  color.CyanString(logo) + "\nA Feishu (Lark) bot gateway with group administration commands.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(gatewayCmd)
}
