package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/neilzhangpro/moltbot-feishu/internal/audit"
	"github.com/neilzhangpro/moltbot-feishu/internal/bus"
	"github.com/neilzhangpro/moltbot-feishu/internal/command"
	"github.com/neilzhangpro/moltbot-feishu/internal/config"
	"github.com/neilzhangpro/moltbot-feishu/internal/dedup"
	"github.com/neilzhangpro/moltbot-feishu/internal/feishu"
	"github.com/neilzhangpro/moltbot-feishu/internal/responder"
	"github.com/neilzhangpro/moltbot-feishu/internal/timeline"
)

var gatewayCmd = &cobra.Command{
	Use:   "gateway",
	Short: "Start the Feishu bot gateway",
	Run:   runGateway,
}

var gatewaySignalNotify = signal.Notify
var gatewaySignalStop = signal.Stop

func runGateway(cmd *cobra.Command, args []string) {
	printHeader("🚀 Moltbot Gateway")

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if !cfg.Feishu.Enabled {
		fmt.Println("Feishu is disabled. Set FEISHU_ENABLED=true or enable it in the config file.")
		return
	}

	// Local activity store
	if dir := filepath.Dir(cfg.Storage.ActivityDBPath); dir != "." {
		_ = os.MkdirAll(dir, 0o755)
	}
	activity, err := timeline.New(cfg.Storage.ActivityDBPath)
	if err != nil {
		fmt.Printf("Failed to open activity store: %v\n", err)
		os.Exit(1)
	}
	defer activity.Close()

	// Optional Kafka audit mirror
	auditor := audit.NewPublisher(cfg.Audit.Brokers, cfg.Audit.Topic)
	defer auditor.Close()
	if auditor.Enabled() {
		fmt.Printf("Audit mirror: ✓ %s → %s\n", cfg.Audit.Brokers, cfg.Audit.Topic)
	}

	// Reply backend
	var replier bus.Responder = responder.Noop{}
	if cfg.Responder.APIKey != "" {
		openAI, err := responder.NewOpenAI(cfg.Responder.APIKey, cfg.Responder.APIBase, cfg.Responder.Model, cfg.Responder.SystemPrompt)
		if err != nil {
			fmt.Printf("Failed to init responder: %v\n", err)
			os.Exit(1)
		}
		replier = openAI
		fmt.Printf("Responder: ✓ %s\n", cfg.Responder.Model)
	} else {
		fmt.Println("Responder: ✗ No API key, replies disabled (commands still work)")
	}

	cache, err := feishu.NewClientCache()
	if err != nil {
		fmt.Printf("Failed to init client cache: %v\n", err)
		os.Exit(1)
	}
	manager := feishu.NewManager(nil, cfg.Feishu.BaseDomain)

	// One dedup cache for the whole process. Event ids are globally unique,
	// so all accounts and event categories share it.
	events := dedup.New()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	gatewaySignalNotify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer gatewaySignalStop(sigChan)

	started := 0
	for _, id := range config.AccountIDs(cfg.Feishu) {
		acct, err := config.ResolveAccount(cfg.Feishu, id)
		if err != nil {
			fmt.Printf("Account %s: ✗ %v\n", id, err)
			continue
		}
		if !acct.Enabled {
			continue
		}

		client := cache.Client(acct.AppID, acct.AppSecret, cfg.Feishu.BaseDomain)
		pipeline := feishu.NewPipeline(acct, client, command.NewExecutor(client), replier, activity, auditor, nil)
		router := feishu.NewRouter(acct.ID, events, pipeline.Handlers())

		if err := manager.StartAccount(ctx, acct, router); err != nil {
			fmt.Printf("Account %s: ✗ %v\n", acct.ID, err)
			continue
		}
		started++
		if info, err := cache.BotInfo(ctx, client, acct.AppID); err == nil && info.AppName != "" {
			fmt.Printf("Account %s: ✓ Connected as %s\n", acct.ID, info.AppName)
		} else {
			fmt.Printf("Account %s: ✓ Connected\n", acct.ID)
		}
	}
	if started == 0 {
		fmt.Println("No Feishu account could be started.")
		os.Exit(1)
	}

	fmt.Println("\nGateway running. Press Ctrl+C to stop.")
	<-sigChan
	fmt.Println("\nShutting down...")
	manager.StopAll()
	cache.Purge()
	fmt.Println("Goodbye.")
}
