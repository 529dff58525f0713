// Copyright © 2018 Victor Tran
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tranvictor/medchain/config"
	"github.com/tranvictor/medchain/networks"
	"github.com/tranvictor/medchain/ui"
)

var (
	appUI ui.UI = ui.NewTerminalUI()
	v           = config.New()
	cfg   *config.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "medchain",
	Short: "Track drug batches on the MedChain contract from your terminal",
	Long: fmt.Sprintf(`medchain drives the MedChain pharmaceutical supply chain contract.

Manufacturers create drug batches, distributors and hospitals move them
down the chain, hospitals dispense them to patients and anyone can verify
a batch against its Merkle root.

medchain keeps its state under ~/.medchain:
	1. keystore/       the accounts medchain can sign with (see medchain wallet)
	2. storage.json    the wallet grant, selected network and login session
	3. networks/       custom networks added with medchain network add
	4. activity.bleve  search index of the transactions you sent

Every setting can be set in ~/.medchain/medchain.yaml, as a %s_* environment
variable (a .env file in the working directory is read too) or as a flag.
By default medchain talks to a hardhat node at %s, set %s to use
another node.`,
		config.EnvPrefix,
		networks.HardhatLocalhost.Descriptor().RPCURLs[0],
		networks.HardhatLocalhost.GetNodeVariableName(),
	),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if config.NoColor {
			appUI = ui.NewTerminalUIWithColor(false)
		}
		var err error
		cfg, err = config.Load(v, config.ConfigFile)
		if err != nil {
			return err
		}
		return setupLogging(cfg.LogLevel)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&config.ConfigFile, "config", "", "config file (default is ~/.medchain/medchain.yaml)")
	flags.StringVar(&config.LogLevel, "log-level", "warn", "log verbosity: trace, debug, info, warn, error or crit")
	flags.String("contract", "", "MedChain contract address (default "+networks.HardhatLocalhost.GetName()+" deployment)")
	flags.String("home", "", "medchain home directory (default ~/.medchain)")
	flags.BoolVar(&config.NoColor, "no-color", false, "disable colours")

	if err := bindFlags(v); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := rootCmd.Execute(); err != nil {
		renderError(appUI, err)
		os.Exit(1)
	}
}

func bindFlags(v *viper.Viper) error {
	return config.BindFlags(v, rootCmd.PersistentFlags(), map[string]string{
		"log_level":        "log-level",
		"contract_address": "contract",
		"home":             "home",
	})
}
