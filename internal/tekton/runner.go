package tekton

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ai-cherry/payready-ai/internal/config"
)

// StageResult carries a completed stage's consensus and artifact
type StageResult struct {
	Stage         string           `json:"stage"`
	MediatorRaw   string           `json:"mediator_raw"`
	Status        string           `json:"status"`
	Confidence    float64          `json:"confidence"`
	ArtifactPath  string           `json:"artifact_path,omitempty"`
	ConsensusFree bool             `json:"consensus_free"`
	CompletedAt   time.Time        `json:"completed_at"`
	Payload       *MediatorPayload `json:"-"`
	Artifact      Artifact         `json:"-"`
}

// RunState is the persisted state of a workflow run, written after every
// stage so an interrupted run can resume.
type RunState struct {
	RunID     string                  `json:"run_id"`
	Goal      string                  `json:"goal"`
	StartedAt time.Time               `json:"started_at"`
	Completed []string                `json:"completed"`
	Results   map[string]*StageResult `json:"results"`
}

// Options configures one workflow run
type Options struct {
	Goal          string
	Start         string
	End           string
	ConsensusFree []string
	ModelOverride string
	OutputDir     string
	Resume        string
}

// Runner executes the staged workflow sequentially
type Runner struct {
	caller    Caller
	cfg       config.TektonConfig
	memoryDir string
	log       zerolog.Logger
}

// NewRunner creates a workflow runner
func NewRunner(caller Caller, cfg config.TektonConfig, memoryDir string, log zerolog.Logger) *Runner {
	return &Runner{caller: caller, cfg: cfg, memoryDir: memoryDir, log: log}
}

func statePath(outputDir string) string {
	return filepath.Join(outputDir, "run.json")
}

// Run executes stages from Start through End, writing one artifact per
// stage. With Resume set, stages already completed by that run are skipped.
func (r *Runner) Run(ctx context.Context, opts Options) (*RunState, error) {
	if opts.Goal == "" && opts.Resume == "" {
		return nil, fmt.Errorf("goal is required")
	}
	if opts.Start == "" {
		opts.Start = StageNames[0]
	}
	if opts.End == "" {
		opts.End = StageNames[len(StageNames)-1]
	}
	if opts.OutputDir == "" {
		opts.OutputDir = r.cfg.OutputDir
	}

	names, err := sliceStages(opts.Start, opts.End)
	if err != nil {
		return nil, err
	}
	consensusFree, err := normalizeConsensusFree(opts.ConsensusFree)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	state, err := r.loadOrCreateState(opts)
	if err != nil {
		return nil, err
	}
	if opts.Goal == "" {
		// Resumed runs carry the goal in their persisted state.
		opts.Goal = state.Goal
	}
	if opts.Goal == "" {
		return nil, fmt.Errorf("goal is required")
	}

	events, err := NewEventLog(r.memoryDir, state.RunID)
	if err != nil {
		r.log.Warn().Err(err).Msg("event log unavailable")
		events = nil
	}
	events.Emit("", "run_started", opts.Goal)

	jury := NewJury(r.caller, r.cfg.DebateRounds, r.cfg.MinConfidence, opts.ModelOverride)
	done := make(map[string]bool, len(state.Completed))
	for _, name := range state.Completed {
		done[name] = true
	}

	for _, name := range names {
		if done[name] {
			r.log.Info().Str("stage", name).Msg("stage already complete, skipping")
			events.Emit(name, "stage_skipped", "already complete in resumed run")
			continue
		}
		if ctx.Err() != nil {
			return state, ctx.Err()
		}

		stage := Stages[name]
		prompt := stage.Prompt(opts.Goal, state.Results)
		solo := consensusFree[name]

		r.log.Info().Str("stage", name).Bool("consensus_free", solo).Msg("running stage")
		events.Emit(name, "stage_started", "")

		var (
			payload    *MediatorPayload
			transcript []TranscriptEntry
		)
		if solo {
			prompt += "\nConsensus-free: prioritise executable validation."
			payload, transcript, err = jury.Solo(ctx, stage, prompt)
		} else {
			payload, transcript, err = jury.Deliberate(ctx, stage, prompt)
		}
		if err != nil {
			events.Emit(name, "stage_failed", err.Error())
			return state, err
		}

		artifact, err := decodeArtifact(name, payload.Artifact)
		if err != nil {
			events.Emit(name, "stage_failed", err.Error())
			return state, err
		}

		result := &StageResult{
			Stage:         name,
			MediatorRaw:   transcript[len(transcript)-1].Content,
			Status:        payload.Status,
			Confidence:    payload.Confidence,
			ConsensusFree: solo,
			CompletedAt:   time.Now(),
			Payload:       payload,
			Artifact:      artifact,
		}

		path, err := r.writeArtifact(opts.OutputDir, name, artifact)
		if err != nil {
			events.Emit(name, "stage_failed", err.Error())
			return state, err
		}
		result.ArtifactPath = path

		state.Results[name] = result
		state.Completed = append(state.Completed, name)
		if err := r.saveState(opts.OutputDir, state); err != nil {
			r.log.Warn().Err(err).Msg("failed to persist run state")
		}

		events.Emit(name, "stage_completed", fmt.Sprintf("status=%s confidence=%.2f artifact=%s", payload.Status, payload.Confidence, path))
		if payload.Status == "block" {
			r.log.Warn().Str("stage", name).Float64("confidence", payload.Confidence).Msg("mediator blocked; artifact written, review before continuing")
		}
	}

	events.Emit("", "run_completed", fmt.Sprintf("%d stages", len(state.Completed)))
	return state, nil
}

func (r *Runner) loadOrCreateState(opts Options) (*RunState, error) {
	if opts.Resume != "" {
		data, err := os.ReadFile(statePath(opts.OutputDir))
		if err != nil {
			return nil, fmt.Errorf("cannot resume %s: %w", opts.Resume, err)
		}
		var state RunState
		if err := json.Unmarshal(data, &state); err != nil {
			return nil, fmt.Errorf("cannot resume %s: corrupt run state: %w", opts.Resume, err)
		}
		if state.RunID != opts.Resume {
			return nil, fmt.Errorf("cannot resume %s: output directory holds run %s", opts.Resume, state.RunID)
		}
		if state.Results == nil {
			state.Results = make(map[string]*StageResult)
		}
		return &state, nil
	}

	return &RunState{
		RunID:     uuid.NewString(),
		Goal:      opts.Goal,
		StartedAt: time.Now(),
		Results:   make(map[string]*StageResult),
	}, nil
}

func (r *Runner) saveState(outputDir string, state *RunState) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(statePath(outputDir), data, 0644)
}

func (r *Runner) writeArtifact(outputDir, stageName string, artifact Artifact) (string, error) {
	data, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal artifact: %w", err)
	}
	path := filepath.Join(outputDir, ArtifactFilename(stageName))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write artifact: %w", err)
	}
	return path, nil
}
