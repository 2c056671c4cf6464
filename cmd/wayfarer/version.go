package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tripmazer/wayfarer"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of wayfarer",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "wayfarer version %s\n", wayfarer.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
