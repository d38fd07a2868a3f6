package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ai-cherry/payready-ai/internal/config"
	"github.com/ai-cherry/payready-ai/internal/logging"
	"github.com/ai-cherry/payready-ai/internal/memory"
)

var rememberCmd = &cobra.Command{
	Use:   "remember <key> <value...>",
	Short: "Store a memory record",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runRemember,
}

var recallCmd = &cobra.Command{
	Use:   "recall <query...>",
	Short: "Search stored memories",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRecall,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent conversations",
	RunE:  runHistory,
}

func init() {
	rememberCmd.Flags().String("category", "general", "Memory category")
	recallCmd.Flags().String("category", "", "Filter by category")
	recallCmd.Flags().Int("limit", 10, "Maximum results")
	historyCmd.Flags().Int("limit", 10, "Maximum entries")
}

func openMemory(cmd *cobra.Command) (*memory.Unified, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	log := logging.Setup(cfg.Log, verbose)
	return memory.Open(cmd.Context(), cfg, log), nil
}

func runRemember(cmd *cobra.Command, args []string) error {
	store, err := openMemory(cmd)
	if err != nil {
		return err
	}
	category, _ := cmd.Flags().GetString("category")

	rec := memory.Record{
		Key:       args[0],
		Value:     strings.Join(args[1:], " "),
		Category:  category,
		Timestamp: time.Now(),
		Source:    "cli",
	}
	if err := store.Remember(cmd.Context(), rec); err != nil {
		return err
	}
	fmt.Printf("Remembered %s/%s\n", category, rec.Key)
	return nil
}

func runRecall(cmd *cobra.Command, args []string) error {
	store, err := openMemory(cmd)
	if err != nil {
		return err
	}
	category, _ := cmd.Flags().GetString("category")
	limit, _ := cmd.Flags().GetInt("limit")

	records, err := store.Recall(cmd.Context(), strings.Join(args, " "), category, limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("No memories found.")
		return nil
	}
	for _, rec := range records {
		fmt.Printf("[%s] %s: %s\n", rec.Category, rec.Key, rec.Value)
	}
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	store, err := openMemory(cmd)
	if err != nil {
		return err
	}
	limit, _ := cmd.Flags().GetInt("limit")

	convs, err := store.History(cmd.Context(), limit)
	if err != nil {
		return err
	}
	if len(convs) == 0 {
		fmt.Println("No conversation history.")
		return nil
	}
	for _, c := range convs {
		fmt.Printf("%s [%s]\n", c.Timestamp.Format("2006-01-02 15:04"), c.Model)
		fmt.Printf("  > %s\n", c.User)
		fmt.Printf("  %s\n", truncate(c.Assistant, 200))
	}
	return nil
}

func truncate(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
