package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/ai-cherry/payready-ai/internal/config"
)

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Check PayReady AI setup health",
	Long:  `Runs diagnostic checks on configuration, API keys, memory storage, and Redis, reporting pass/fail for each.`,
	RunE:  runTest,
}

func runTest(cmd *cobra.Command, args []string) error {
	passed := 0
	failed := 0

	check := func(name string, ok bool, detail string) {
		if ok {
			fmt.Printf("  ✓ %s\n", name)
			passed++
		} else {
			fmt.Printf("  ✗ %s — %s\n", name, detail)
			failed++
		}
	}

	fmt.Println("Configuration:")
	cfg, cfgErr := config.Load()
	if cfgErr != nil {
		check("config readable", false, cfgErr.Error())
		fmt.Printf("\n%d passed, %d failed\n", passed, failed)
		return fmt.Errorf("configuration unreadable")
	}
	check("config readable", true, "")
	globalPath := config.GlobalConfigPath()
	check("global config file", exists(globalPath), "run: ai config init")

	fmt.Println()
	fmt.Println("Providers:")
	if cfg.Providers.Offline {
		fmt.Println("  → offline mode: stub providers active")
	}
	keys := []struct{ name, env string }{
		{"OpenRouter key", "OPENROUTER_API_KEY"},
		{"Anthropic key", "ANTHROPIC_API_KEY"},
		{"OpenAI key", "OPENAI_API_KEY"},
		{"Portkey key", "PORTKEY_API_KEY"},
		{"Perplexity key", "PERPLEXITY_API_KEY"},
	}
	anyKey := false
	for _, k := range keys {
		set := os.Getenv(k.env) != ""
		if set {
			anyKey = true
		}
		check(k.name, set, "export "+k.env)
	}
	if !anyKey && !cfg.Providers.Offline {
		fmt.Println("  → no keys set; queries will use stub responses")
	}

	fmt.Println()
	fmt.Println("Memory:")
	memDir := cfg.MemoryDir()
	check("memory directory", writable(memDir), fmt.Sprintf("cannot write %s", memDir))
	if cfg.Memory.RedisURL != "" {
		check("redis reachable", pingRedis(cmd.Context(), cfg.Memory.RedisURL), cfg.Memory.RedisURL)
	} else {
		fmt.Println("  → redis not configured (file tier only)")
	}

	fmt.Println()
	fmt.Println("Project:")
	check("git repository", exists(filepath.Join(cfg.Project.Root, ".git")), "git context will be skipped")

	fmt.Println()
	fmt.Printf("%d passed, %d failed\n", passed, failed)
	if failed > 0 {
		return fmt.Errorf("%d checks failed", failed)
	}
	return nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func writable(dir string) bool {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return false
	}
	probe := filepath.Join(dir, ".write_probe")
	if err := os.WriteFile(probe, []byte("ok"), 0644); err != nil {
		return false
	}
	os.Remove(probe)
	return true
}

func pingRedis(ctx context.Context, url string) bool {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return false
	}
	client := redis.NewClient(opts)
	defer client.Close()

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return client.Ping(ctx).Err() == nil
}
