package cli

import (
	"fmt"

	"github.com/fatih/color"
)

var (
	// version can be overridden at build time via:
	// go build -ldflags "-X github.com/neilzhangpro/moltbot-feishu/internal/cli.version=1.2.3"
	version = "0.4.0"
	logo    = "\n" +
		"                  _ _   _           _\n" +
		"  _ __ ___   ___ | | |_| |__   ___ | |_\n" +
		" | '_ ` _ \\ / _ \\| | __| '_ \\ / _ \\| __|\n" +
		" | | | | | | (_) | | |_| |_) | (_) | |_\n" +
		" |_| |_| |_|\\___/|_|\\__|_.__/ \\___/ \\__|\n"
)

func printHeader(title string) {
	fmt.Println(color.CyanString(logo))
	if title != "" {
		fmt.Println(title)
		fmt.Println("─────────────────────")
	}
}
