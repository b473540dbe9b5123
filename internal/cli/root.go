// Package cli wires the chatlens commands.
package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "chatlens",
	Short: "chatlens - scheduled chat analysis and delivery",
	Long:  "chatlens runs scheduled LLM analysis of chat communities and delivers summaries to target chats.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(schedulerCmd)
	rootCmd.AddCommand(jobsCmd)
}
