// Package main is the entry point for the moltbot CLI.
package main

import (
	"os"

	"github.com/neilzhangpro/moltbot-feishu/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
