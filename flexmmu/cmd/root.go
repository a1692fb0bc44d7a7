// Package cmd provides the command-line interface for flexmmu.
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "flexmmu",
	Short: "flexmmu keeps the pages resident on an accelerator coherent with host memory.",
	Long: `flexmmu keeps the pages resident on an accelerator coherent with ` +
		`host memory. It can replay access traces against a model of the ` +
		`accelerator, or serve the residency protocol to a remote one.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "TOML configuration file")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}
