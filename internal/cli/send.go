package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(sendCmd)
}

var sendCmd = &cobra.Command{
	Use:   "send <target> <message...>",
	Short: "Send a message to a node through the local chat process",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return newClient(cmd).Send(args[0], strings.Join(args[1:], " "))
	},
}
