package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(shellCmd)
}

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Interactive prompt for sending and reading messages",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rl, err := readline.NewEx(&readline.Config{
			Prompt:          "chat> ",
			InterruptPrompt: "^C",
			EOFPrompt:       "quit",
			AutoComplete: readline.NewPrefixCompleter(
				readline.PcItem("send"),
				readline.PcItem("history"),
				readline.PcItem("help"),
				readline.PcItem("quit"),
			),
		})
		if err != nil {
			return err
		}
		defer rl.Close()

		c := newClient(cmd)
		for {
			line, err := rl.Readline()
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			if err != nil {
				return nil
			}
			quit, err := execLine(c, line, rl.Stdout())
			if err != nil {
				fmt.Fprintf(rl.Stderr(), "error: %v\n", err)
			}
			if quit {
				return nil
			}
		}
	},
}

const shellHelp = `send <target> <message...>   send a message
history [node]               show a conversation or everything
quit                         leave the shell
`

// execLine runs one shell command.
func execLine(c *Client, line string, out io.Writer) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	switch fields[0] {
	case "quit", "exit":
		return true, nil
	case "help":
		fmt.Fprint(out, shellHelp)
		return false, nil
	case "send":
		if len(fields) < 3 {
			return false, errors.New("usage: send <target> <message...>")
		}
		return false, c.Send(fields[1], strings.Join(fields[2:], " "))
	case "history":
		if len(fields) > 2 {
			return false, errors.New("usage: history [node]")
		}
		var node string
		if len(fields) == 2 {
			node = fields[1]
		}
		reply, err := c.History(node)
		if err != nil {
			return false, err
		}
		printReply(out, reply)
		return false, nil
	default:
		return false, fmt.Errorf("unknown command %q (try help)", fields[0])
	}
}
