package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ai-cherry/payready-ai/internal/config"
	"github.com/ai-cherry/payready-ai/internal/logging"
	"github.com/ai-cherry/payready-ai/internal/providers"
	"github.com/ai-cherry/payready-ai/internal/tekton"
)

var tektonCmd = &cobra.Command{
	Use:   "tekton",
	Short: "Run the staged Diamond workflow",
	Long: `Runs the staged workflow: each stage is debated by a Proponent, Skeptic,
and Pragmatist, settled by a Mediator, and emits one validated JSON artifact.

Stages: ` + strings.Join(tekton.StageNames, ", "),
	RunE: runTekton,
}

func init() {
	tektonCmd.Flags().String("goal", "", "Goal the workflow should achieve")
	tektonCmd.Flags().String("from", "", "First stage to run (default: plan)")
	tektonCmd.Flags().String("to", "", "Last stage to run (default: release)")
	tektonCmd.Flags().StringSlice("consensus-free", nil, "Stages to run single-agent (code, test_debug)")
	tektonCmd.Flags().String("model", "", "Override the model for every seat")
	tektonCmd.Flags().String("output", "", "Artifact output directory")
	tektonCmd.Flags().String("resume", "", "Resume a previous run by id")
	tektonCmd.Flags().Bool("explain", false, "Describe the workflow and exit")
}

func runTekton(cmd *cobra.Command, args []string) error {
	if explain, _ := cmd.Flags().GetBool("explain"); explain {
		data, err := json.MarshalIndent(tekton.Describe(), "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	goal, _ := cmd.Flags().GetString("goal")
	resume, _ := cmd.Flags().GetString("resume")
	if goal == "" && resume == "" {
		return fmt.Errorf("--goal is required")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	log := logging.Setup(cfg.Log, verbose)

	from, _ := cmd.Flags().GetString("from")
	to, _ := cmd.Flags().GetString("to")
	consensusFree, _ := cmd.Flags().GetStringSlice("consensus-free")
	model, _ := cmd.Flags().GetString("model")
	output, _ := cmd.Flags().GetString("output")

	registry := providers.NewRegistry(cfg, log)
	runner := tekton.NewRunner(registry, cfg.Tekton, cfg.MemoryDir(), log)

	state, err := runner.Run(cmd.Context(), tekton.Options{
		Goal:          goal,
		Start:         from,
		End:           to,
		ConsensusFree: consensusFree,
		ModelOverride: model,
		OutputDir:     output,
		Resume:        resume,
	})
	if state != nil {
		fmt.Printf("run: %s\n", state.RunID)
		for _, name := range state.Completed {
			res := state.Results[name]
			if res == nil {
				continue
			}
			fmt.Printf("  %-12s %-15s confidence=%.2f  %s\n", name, res.Status, res.Confidence, res.ArtifactPath)
		}
	}
	return err
}
