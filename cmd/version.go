package cmd

import (
	"github.com/spf13/cobra"
)

const (
	VERSION string = "0.1.0"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show medchain version",
	Run: func(cmd *cobra.Command, args []string) {
		appUI.Info("Version: %s", VERSION)
		appUI.Info("Contract: %s on chain %d", cfg.ContractAddress, cfg.ChainID)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
