package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/certusone/wormhole/connect/cmd/connect"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:           "connect",
	Short:         "Wormhole token bridge client",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	connect.AddPersistentFlags(rootCmd)

	rootCmd.AddCommand(connect.VaaCmd)
	rootCmd.AddCommand(connect.AssetCmd)
	rootCmd.AddCommand(connect.BalanceCmd)
	rootCmd.AddCommand(connect.TransferCmd)
	rootCmd.AddCommand(connect.RedeemCmd)
	rootCmd.AddCommand(connect.ServeCmd)
}
