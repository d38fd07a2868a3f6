package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ai-cherry/payready-ai/internal/config"
	"github.com/ai-cherry/payready-ai/internal/logging"
	"github.com/ai-cherry/payready-ai/internal/rag"
)

var ragCmd = &cobra.Command{
	Use:   "rag",
	Short: "Local retrieval over project documents",
}

var ragIndexCmd = &cobra.Command{
	Use:   "index <path>",
	Short: "Index a markdown file or directory",
	Args:  cobra.ExactArgs(1),
	RunE:  runRagIndex,
}

var ragSearchCmd = &cobra.Command{
	Use:   "search <query...>",
	Short: "Search the index",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRagSearch,
}

var ragServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the search API over HTTP",
	RunE:  runRagServe,
}

func init() {
	ragCmd.AddCommand(ragIndexCmd)
	ragCmd.AddCommand(ragSearchCmd)
	ragCmd.AddCommand(ragServeCmd)

	ragSearchCmd.Flags().Int("limit", 5, "Maximum results")
	ragServeCmd.Flags().String("addr", "", "Listen address (default from config)")
}

func openRagEngine(cmd *cobra.Command) (*rag.Engine, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	log := logging.Setup(cfg.Log, verbose)

	index, err := rag.OpenSQLiteIndex(cfg.RAG.DBPath)
	if err != nil {
		return nil, nil, err
	}

	var embedder rag.Embedder
	apiKey := os.Getenv("OPENAI_API_KEY")
	if cfg.Providers.Offline || apiKey == "" {
		embedder = rag.NewLocalEmbedder(cfg.RAG.Dimensions)
		log.Debug().Msg("using local hashing embedder")
	} else {
		embedder = rag.NewOpenAIEmbedder(apiKey, cfg.RAG.EmbedModel, cfg.RAG.Dimensions)
	}

	return rag.NewEngine(index, embedder, log), cfg, nil
}

func runRagIndex(cmd *cobra.Command, args []string) error {
	engine, _, err := openRagEngine(cmd)
	if err != nil {
		return err
	}

	added, err := engine.IndexPath(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	stats := engine.Stats()
	fmt.Printf("Indexed %d new chunks (%d total, embedder %s)\n", added, stats.Documents, stats.Embedder)
	return nil
}

func runRagSearch(cmd *cobra.Command, args []string) error {
	engine, _, err := openRagEngine(cmd)
	if err != nil {
		return err
	}
	limit, _ := cmd.Flags().GetInt("limit")

	results, err := engine.Search(cmd.Context(), strings.Join(args, " "), limit)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Println("No results.")
		return nil
	}
	for _, r := range results {
		fmt.Printf("%.3f  %s", r.Score, r.Document.Source)
		if r.Document.Section != "" {
			fmt.Printf(" § %s", r.Document.Section)
		}
		fmt.Println()
		fmt.Printf("       %s\n", truncate(r.Document.Text, 160))
	}
	return nil
}

func runRagServe(cmd *cobra.Command, args []string) error {
	engine, cfg, err := openRagEngine(cmd)
	if err != nil {
		return err
	}
	addr, _ := cmd.Flags().GetString("addr")
	if addr == "" {
		addr = cfg.RAG.ServeAddr
	}

	fmt.Printf("Serving search API on %s\n", addr)
	return rag.NewServer(engine).Run(addr)
}
