package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ai-cherry/payready-ai/internal/config"
	"github.com/ai-cherry/payready-ai/internal/gitctx"
	"github.com/ai-cherry/payready-ai/internal/logging"
	"github.com/ai-cherry/payready-ai/internal/memory"
	"github.com/ai-cherry/payready-ai/internal/providers"
	"github.com/ai-cherry/payready-ai/internal/router"
)

func runAsk(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return cmd.Help()
	}
	query := strings.TrimSpace(strings.Join(args, " "))
	if query == "" {
		return fmt.Errorf("query must not be empty")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	log := logging.Setup(cfg.Log, verbose)

	rt := router.New(cfg.DefaultRoute)
	decision := rt.Route(query)

	if forced, _ := cmd.Flags().GetString("provider"); forced != "" {
		decision.Route = forced
		decision.Query = query
		decision.Explicit = true
	}

	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		fmt.Printf("route:      %s\n", decision.Route)
		fmt.Printf("confidence: %.2f\n", decision.Confidence)
		fmt.Printf("explicit:   %v\n", decision.Explicit)
		fmt.Printf("ambiguous:  %v\n", decision.Ambiguous)
		for name, score := range decision.Scores {
			fmt.Printf("  %s: %.1f\n", name, score)
		}
		return nil
	}

	if decision.Ambiguous {
		log.Info().Str("route", decision.Route).Msg("ambiguous query, using keyword preference")
	}

	messages := []providers.Message{}
	noContext, _ := cmd.Flags().GetBool("no-context")
	if cfg.Context.Enabled && !noContext {
		mgr := gitctx.New(cfg.Project.Root,
			time.Duration(cfg.Context.CacheTTLMin)*time.Minute,
			cfg.Context.RecentFiles, cfg.Context.RecentCommit)
		if snap := mgr.Current(cmd.Context()); snap != nil {
			messages = append(messages, providers.Message{Role: "system", Content: snap.PromptBlock()})
		}
	}
	messages = append(messages, providers.Message{
		Role:    "user",
		Content: rt.Decorate(decision.Query, decision.Route),
	})

	registry := providers.NewRegistry(cfg, log)
	model, _ := cmd.Flags().GetString("model")

	resp, err := registry.Chat(cmd.Context(), decision.Route, model, messages)
	if err != nil {
		return err
	}

	fmt.Println(resp.Content)

	store := memory.Open(cmd.Context(), cfg, log)
	if err := store.LogConversation(cmd.Context(), memory.Conversation{
		Timestamp: time.Now(),
		User:      query,
		Assistant: resp.Content,
		Model:     resp.Model,
	}); err != nil {
		log.Warn().Err(err).Msg("failed to log conversation")
	}
	return nil
}
