package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "advisor",
	Short: "Medical Advisor backend",
	Long:  "Turns approved plans and clients into field tasks, sends daily task reminders and runs backups.",
	// Configuration comes from the environment and the optional CONFIG_FILE overlay.
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(schedulerCmd)
	rootCmd.AddCommand(notifyCmd)
	rootCmd.AddCommand(migrateCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
