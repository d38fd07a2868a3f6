package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ai-cherry/payready-ai/internal/bi"
	"github.com/ai-cherry/payready-ai/internal/config"
	"github.com/ai-cherry/payready-ai/internal/logging"
)

var biCmd = &cobra.Command{
	Use:   "bi",
	Short: "Business intelligence reports",
}

var biSlackCmd = &cobra.Command{
	Use:   "slack",
	Short: "Collect Slack channel activity",
	Long: `Polls Slack (read-only) for per-channel message volume, caches the rows
to CSV, and writes to Postgres when NEON_DATABASE_URL is set.`,
	RunE: runBISlack,
}

func init() {
	biCmd.AddCommand(biSlackCmd)

	biSlackCmd.Flags().String("period", "7d", "Collection period (e.g. 24h, 7d, 2w)")
	biSlackCmd.Flags().Bool("serve", false, "Serve the analytics API instead of a one-shot report")
	biSlackCmd.Flags().String("addr", "", "Listen address for --serve (default from config)")
}

func runBISlack(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	log := logging.Setup(cfg.Log, verbose)

	collector, err := bi.NewCollector(os.Getenv("SLACK_BOT_TOKEN"), cfg.BI.ChannelCap, log)
	if err != nil {
		return err
	}

	var sink *bi.PostgresSink
	if cfg.BI.PostgresURL != "" {
		sink = bi.NewPostgresSink(cfg.BI.PostgresURL)
	}
	service := bi.NewService(collector, cfg.BI.CSVCache, sink, log)

	if serve, _ := cmd.Flags().GetBool("serve"); serve {
		addr, _ := cmd.Flags().GetString("addr")
		if addr == "" {
			addr = cfg.BI.ServeAddr
		}
		fmt.Printf("Serving Slack analytics on %s\n", addr)
		return bi.NewServer(service).Run(addr)
	}

	period, _ := cmd.Flags().GetString("period")
	report, err := service.Run(cmd.Context(), period)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
