package main

import (
	"os"

	"github.com/jk-nd/noumena-mcp-gateway-poc-sub001/cmd/pdpctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
