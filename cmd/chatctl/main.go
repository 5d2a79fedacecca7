package main

import "chatd/internal/cli"

func main() {
	cli.Execute()
}
