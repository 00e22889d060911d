package main

import (
	"github.com/spf13/cobra"

	"github.com/blackcoderx/hopp/pkg/core"
)

func init() {
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a .hopp folder with an example request and environment",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return core.InitializeHoppFolder(".", cmd.OutOrStdout())
	},
}
