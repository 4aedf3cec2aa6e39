package main

import "github.com/agentfs/agentfs/internal/cli"

func main() {
	cli.Main()
}
