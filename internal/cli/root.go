// Package cli implements the chatctl command tree.
package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const defaultNode = "http://127.0.0.1:8080"

var (
	version = "dev"
	commit  = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "chatctl",
	Short:   "Send messages and read history on a chatd node",
	Version: fmt.Sprintf("%s (commit: %s)", version, commit),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		_ = godotenv.Load(".env")
	},
	SilenceUsage: true,
}

// Execute runs the command tree. This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().String("node", "", "base URL of the node (default $CHATCTL_NODE or "+defaultNode+")")
	rootCmd.PersistentFlags().Duration("timeout", 10*time.Second, "request timeout")
}

// newClient is replaced in tests.
var newClient = func(cmd *cobra.Command) *Client {
	base, _ := cmd.Flags().GetString("node")
	if base == "" {
		base = os.Getenv("CHATCTL_NODE")
	}
	if base == "" {
		base = defaultNode
	}
	timeout, _ := cmd.Flags().GetDuration("timeout")
	return NewClient(base, timeout, nil)
}
