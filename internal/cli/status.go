package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/neilzhangpro/moltbot-feishu/internal/config"
	"github.com/neilzhangpro/moltbot-feishu/internal/timeline"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		printHeader("🏷️ Moltbot Version")
		fmt.Printf("Version: %s\n", version)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show system status",
	Run: func(cmd *cobra.Command, args []string) {
		printHeader("📊 Moltbot Status")
		fmt.Printf("Version: %s\n", version)

		configPath, err := config.ConfigPath()
		if err == nil {
			if _, statErr := os.Stat(configPath); statErr == nil {
				fmt.Println("Config:  ✓ Found (" + configPath + ")")
			} else {
				fmt.Println("Config:  ✗ Not found (" + configPath + ")")
			}
		}

		cfg, err := config.Load()
		if err != nil {
			fmt.Printf("Config:  ✗ Unable to load: %v\n", err)
			return
		}

		if cfg.Feishu.Enabled {
			fmt.Println("Feishu:  ✓ Enabled")
		} else {
			fmt.Println("Feishu:  ✗ Disabled")
		}
		for _, id := range config.AccountIDs(cfg.Feishu) {
			acct, err := config.ResolveAccount(cfg.Feishu, id)
			if err != nil {
				fmt.Printf("Account %s: ✗ %v\n", id, err)
				continue
			}
			if acct.AppID == "" || acct.AppSecret == "" {
				fmt.Printf("Account %s: ✗ Missing credentials\n", id)
			} else {
				fmt.Printf("Account %s: ✓ Credentials set (policy: %s)\n", id, acct.DmPolicy)
			}
		}

		if cfg.Responder.APIKey != "" {
			fmt.Printf("Responder: ✓ %s\n", cfg.Responder.Model)
		} else {
			fmt.Println("Responder: ✗ No API key")
		}
		if cfg.Audit.Brokers != "" {
			fmt.Printf("Audit:   ✓ %s → %s\n", cfg.Audit.Brokers, cfg.Audit.Topic)
		} else {
			fmt.Println("Audit:   ✗ Disabled")
		}

		printLastActivity(cfg)
	},
}

func printLastActivity(cfg *config.Config) {
	activity, err := timeline.New(cfg.Storage.ActivityDBPath)
	if err != nil {
		return
	}
	defer activity.Close()

	for _, id := range config.AccountIDs(cfg.Feishu) {
		last, err := activity.LastActivity(id)
		if err != nil {
			continue
		}
		if last.LastInboundAt != nil {
			fmt.Printf("Last inbound (%s):  %s\n", id, last.LastInboundAt.Format("2006-01-02 15:04:05"))
		}
		if last.LastOutboundAt != nil {
			fmt.Printf("Last outbound (%s): %s\n", id, last.LastOutboundAt.Format("2006-01-02 15:04:05"))
		}
	}
}
