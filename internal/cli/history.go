package cli

import (
	"fmt"
	"io"
	"sort"

	"chatd/pkg/chat"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(historyCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history [node]",
	Short: "Print a conversation, or every conversation",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var node string
		if len(args) == 1 {
			node = args[0]
		}
		reply, err := newClient(cmd).History(node)
		if err != nil {
			return err
		}
		printReply(cmd.OutOrStdout(), reply)
		return nil
	},
}

func printReply(w io.Writer, r chat.Reply) {
	if r.Archive == nil {
		printEntries(w, r.Entries)
		return
	}
	names := make([]string, 0, len(r.Archive))
	for name := range r.Archive {
		names = append(names, name)
	}
	sort.Strings(names)
	for i, name := range names {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "== %s (%d)\n", name, len(r.Archive[name]))
		printEntries(w, r.Archive[name])
	}
}

func printEntries(w io.Writer, entries []chat.Entry) {
	for _, e := range entries {
		fmt.Fprintf(w, "%s: %s\n", e.Author, e.Content)
	}
}
