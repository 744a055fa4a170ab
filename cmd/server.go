package cmd

import (
	"sonicgate/server"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the gateway HTTP server",
	Long:  `Start the Subsonic-compatible HTTP server, translating client requests into MPD commands.`,
	Run: func(cmd *cobra.Command, args []string) {
		server.Start()
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
