package tekton

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ai-cherry/payready-ai/internal/providers"
)

// workflowRoute is the provider route every workflow agent call goes through
const workflowRoute = "agent"

// Default models per triad seat, overridable with --model
const (
	defaultProponentModel = "openai/gpt-4o"
	defaultTriadModel     = "anthropic/claude-opus-4.1"
)

// Caller is the LLM surface the workflow needs; *providers.Registry satisfies it
type Caller interface {
	Chat(ctx context.Context, route, modelOverride string, messages []providers.Message) (*providers.ChatResponse, error)
}

// TranscriptEntry is one labeled turn of the debate
type TranscriptEntry struct {
	Agent   string `json:"agent"`
	Content string `json:"content"`
}

// MediatorPayload is the consensus the mediator must emit as JSON
type MediatorPayload struct {
	Artifact   json.RawMessage    `json:"artifact"`
	Status     string             `json:"status"`
	Rationale  string             `json:"rationale"`
	Dissent    string             `json:"dissent,omitempty"`
	Risks      []string           `json:"risks"`
	Checklist  []string           `json:"checklist"`
	Confidence float64            `json:"confidence"`
	Votes      map[string]float64 `json:"votes,omitempty"`
	LoopsRun   int                `json:"loops_run"`
}

// Jury runs the triad debate and mediator consensus for one stage
type Jury struct {
	caller        Caller
	rounds        int
	minConfidence float64
	modelOverride string
}

// NewJury creates a jury. rounds is the number of refinement rounds after
// the opening positions.
func NewJury(caller Caller, rounds int, minConfidence float64, modelOverride string) *Jury {
	if rounds < 0 {
		rounds = 0
	}
	return &Jury{caller: caller, rounds: rounds, minConfidence: minConfidence, modelOverride: modelOverride}
}

func (j *Jury) model(seat string) string {
	if j.modelOverride != "" {
		return j.modelOverride
	}
	if seat == "proponent" {
		return defaultProponentModel
	}
	return defaultTriadModel
}

func rubric(stageName string) string {
	return fmt.Sprintf(`You are in the %s stage.
Always answer with JSON containing keys:
  position: string
  score: {correctness:float, stack_fit:float, ops_risk:float, reversibility:float, recency:float}
  risks: [string]
  checks: [string]
  self_confidence: float in [0,1]
  dissent?: optional notes
`, stageName)
}

func asMessages(transcript []TranscriptEntry) string {
	var sb strings.Builder
	for _, entry := range transcript {
		fmt.Fprintf(&sb, "[%s] %s\n", entry.Agent, entry.Content)
	}
	return sb.String()
}

func (j *Jury) call(ctx context.Context, system, seat, content string) (string, error) {
	resp, err := j.caller.Chat(ctx, workflowRoute, j.model(seat), []providers.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: content},
	})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// Deliberate runs the opening triad positions, the refinement rounds, and
// the mediator consensus. Every seat sees the growing transcript.
func (j *Jury) Deliberate(ctx context.Context, stage Stage, prompt string) (*MediatorPayload, []TranscriptEntry, error) {
	var transcript []TranscriptEntry

	run := func(seat, label, system, content string) error {
		out, err := j.call(ctx, system, seat, content)
		if err != nil {
			return fmt.Errorf("stage %s: %s call failed: %w", stage.Name, strings.ToLower(label), err)
		}
		transcript = append(transcript, TranscriptEntry{Agent: label, Content: out})
		return nil
	}

	opening := rubric(stage.Name) + "\n" + prompt
	seats := []struct {
		seat, label, system string
	}{
		{"proponent", "Proponent", stage.Roles.Proponent},
		{"skeptic", "Skeptic", stage.Roles.Skeptic},
		{"pragmatist", "Pragmatist", stage.Roles.Pragmatist},
	}

	for _, s := range seats {
		if err := run(s.seat, s.label, s.system, opening); err != nil {
			return nil, transcript, err
		}
	}

	for round := 0; round < j.rounds; round++ {
		summary := asMessages(transcript)
		for _, s := range seats {
			if err := run(s.seat, s.label, s.system, summary); err != nil {
				return nil, transcript, err
			}
		}
	}

	mediatorPrompt := fmt.Sprintf(`Reconcile Proponent/Skeptic/Pragmatist using a 2/3 quorum.
Weight each vote by its self_confidence.
If confidence < %.2f or mandatory fields missing, set status='block'.
Return JSON with keys: {artifact, status, rationale, dissent, risks, checklist, confidence, votes, loops_run}.
Transcript follows:
%s`, j.minConfidence, asMessages(transcript))

	out, err := j.call(ctx, stage.Roles.Mediator, "mediator", mediatorPrompt)
	if err != nil {
		return nil, transcript, fmt.Errorf("stage %s: mediator call failed: %w", stage.Name, err)
	}
	transcript = append(transcript, TranscriptEntry{Agent: "Mediator", Content: out})

	payload, err := parseMediator(out)
	if err != nil {
		return nil, transcript, fmt.Errorf("stage %s: %w", stage.Name, err)
	}
	return payload, transcript, nil
}

// Solo runs a single consensus-free agent call. The agent must emit the
// stage artifact JSON directly.
func (j *Jury) Solo(ctx context.Context, stage Stage, prompt string) (*MediatorPayload, []TranscriptEntry, error) {
	system := stage.Roles.Mediator + "\nRespond with the artifact JSON object only."
	out, err := j.call(ctx, system, "mediator", prompt)
	if err != nil {
		return nil, nil, fmt.Errorf("stage %s: consensus-free call failed: %w", stage.Name, err)
	}

	transcript := []TranscriptEntry{{Agent: "Solo", Content: out}}
	raw := json.RawMessage(extractJSON(out))
	if !json.Valid(raw) {
		return nil, transcript, fmt.Errorf("stage %s: consensus-free output is not valid JSON", stage.Name)
	}

	payload := &MediatorPayload{
		Artifact:  raw,
		Status:    "consensus_free",
		Rationale: "single-agent run, runtime signals over debate",
	}
	var probe struct {
		Confidence float64 `json:"confidence"`
	}
	if err := json.Unmarshal(raw, &probe); err == nil {
		payload.Confidence = probe.Confidence
	}
	return payload, transcript, nil
}

// parseMediator decodes the mediator's JSON consensus. When the payload has
// no artifact key, the whole object is treated as the artifact, matching
// mediators that skip the envelope.
func parseMediator(out string) (*MediatorPayload, error) {
	raw := extractJSON(out)

	var payload MediatorPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("mediator output is not valid JSON: %w", err)
	}
	if len(payload.Artifact) == 0 || string(payload.Artifact) == "null" {
		payload.Artifact = json.RawMessage(raw)
	}
	return &payload, nil
}

// extractJSON strips markdown code fences that chat models wrap around JSON
func extractJSON(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}
	return s
}
