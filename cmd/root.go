// Package cmd contains the planit command-line interface.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "planit",
	Short: "Plan-It task management server",
	Long: `Plan-It is a task management service with an AI planning
assistant. The assistant answers questions about your tasks by calling
back into the task API, and the service keeps score with a small
gamification system.

Run "planit serve" to start the HTTP server.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
