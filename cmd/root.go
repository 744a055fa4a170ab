package cmd

import (
	"fmt"
	"os"

	"sonicgate/server"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "sonicgate",
	Short: "sonicgate exposes a Subsonic-compatible API in front of an MPD server.",
	Run: func(cmd *cobra.Command, args []string) {
		server.Start()
	},
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
