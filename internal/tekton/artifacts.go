package tekton

import (
	"encoding/json"
	"fmt"
	"time"
)

// Artifact is a validated per-stage output
type Artifact interface {
	Validate() error
}

func checkConfidence(c float64) error {
	if c < 0.0 || c > 1.0 {
		return fmt.Errorf("confidence %.2f outside [0,1]", c)
	}
	return nil
}

// PlanArtifact is the plan stage output
type PlanArtifact struct {
	Goals              []string `json:"goals"`
	Milestones         []string `json:"milestones"`
	AcceptanceCriteria []string `json:"acceptance_criteria"`
	Risks              []string `json:"risks"`
	SLOs               []string `json:"slos"`
	DRI                string   `json:"dri"`
	Timeline           string   `json:"timeline"`
	Confidence         float64  `json:"confidence"`
}

func (a *PlanArtifact) Validate() error {
	if len(a.Goals) == 0 {
		return fmt.Errorf("plan: goals must not be empty")
	}
	if a.DRI == "" {
		return fmt.Errorf("plan: dri is required")
	}
	if a.Timeline == "" {
		return fmt.Errorf("plan: timeline is required")
	}
	return checkConfidence(a.Confidence)
}

// ResearchOption is one candidate from the research stage
type ResearchOption struct {
	Name  string   `json:"name"`
	Pros  []string `json:"pros"`
	Cons  []string `json:"cons"`
	Links []string `json:"links"`
}

// ResearchArtifact is the research stage output
type ResearchArtifact struct {
	Options             []ResearchOption         `json:"options"`
	DecisionMatrix      []map[string]interface{} `json:"decision_matrix"`
	Chosen              string                   `json:"chosen"`
	Citations           []string                 `json:"citations"`
	FreshnessWindowDays int                      `json:"freshness_window_days"`
	Confidence          float64                  `json:"confidence"`
}

func (a *ResearchArtifact) Validate() error {
	if len(a.Options) == 0 {
		return fmt.Errorf("research: options must not be empty")
	}
	if a.Chosen == "" {
		return fmt.Errorf("research: chosen option is required")
	}
	return checkConfidence(a.Confidence)
}

// BacklogItem is one task in the updated plan backlog
type BacklogItem struct {
	ItemID       string   `json:"item_id"`
	Task         string   `json:"task"`
	Rationale    string   `json:"rationale"`
	Dependencies []string `json:"dependencies"`
	Owner        string   `json:"owner,omitempty"`
}

// BacklogArtifact is the plan_update stage output
type BacklogArtifact struct {
	Items       []BacklogItem `json:"items"`
	PlanVersion string        `json:"plan_version"`
	Confidence  float64       `json:"confidence"`
}

func (a *BacklogArtifact) Validate() error {
	if len(a.Items) == 0 {
		return fmt.Errorf("backlog: items must not be empty")
	}
	for i, item := range a.Items {
		if item.ItemID == "" || item.Task == "" {
			return fmt.Errorf("backlog: item %d missing id or task", i)
		}
	}
	return checkConfidence(a.Confidence)
}

// GenericArtifact covers stages without a strict schema (code, review):
// any JSON object carrying a confidence field.
type GenericArtifact struct {
	Fields     map[string]interface{} `json:"-"`
	Confidence float64                `json:"confidence"`
}

func (a *GenericArtifact) Validate() error {
	if len(a.Fields) == 0 {
		return fmt.Errorf("artifact object is empty")
	}
	return checkConfidence(a.Confidence)
}

func (a *GenericArtifact) UnmarshalJSON(data []byte) error {
	if err := json.Unmarshal(data, &a.Fields); err != nil {
		return err
	}
	if c, ok := a.Fields["confidence"].(float64); ok {
		a.Confidence = c
	}
	return nil
}

func (a *GenericArtifact) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.Fields)
}

// ThreatArtifact is the threat stage output
type ThreatArtifact struct {
	DFD          string                 `json:"dfd"`
	Risks        []string               `json:"risks"`
	Mitigations  []string               `json:"mitigations"`
	Controls     []string               `json:"controls"`
	RollbackPlan string                 `json:"rollback_plan"`
	Compliance   map[string]interface{} `json:"compliance"`
	Confidence   float64                `json:"confidence"`
}

func (a *ThreatArtifact) Validate() error {
	if a.RollbackPlan == "" {
		return fmt.Errorf("threat: rollback_plan is required")
	}
	return checkConfidence(a.Confidence)
}

// IntegrationArtifact is the integrate stage output
type IntegrationArtifact struct {
	Flags      []string               `json:"flags"`
	Migrations []string               `json:"migrations"`
	ConfigMap  map[string]interface{} `json:"config_map"`
	Rollback   string                 `json:"rollback"`
	Confidence float64                `json:"confidence"`
}

func (a *IntegrationArtifact) Validate() error {
	if a.Rollback == "" {
		return fmt.Errorf("integration: rollback is required")
	}
	return checkConfidence(a.Confidence)
}

// TestReport is the test_debug stage output
type TestReport struct {
	Ship        bool                   `json:"ship"`
	JUnitPath   string                 `json:"junit_path,omitempty"`
	Coverage    map[string]interface{} `json:"coverage"`
	Flakes      []string               `json:"flakes"`
	Confidence  float64                `json:"confidence"`
	GeneratedAt time.Time              `json:"generated_at"`
}

func (a *TestReport) Validate() error {
	if a.GeneratedAt.IsZero() {
		a.GeneratedAt = time.Now().UTC()
	}
	return checkConfidence(a.Confidence)
}

// ReleaseReport is the release stage output
type ReleaseReport struct {
	Environment   string                 `json:"environment"`
	Version       string                 `json:"version"`
	CanaryMetrics map[string]interface{} `json:"canary_metrics"`
	Health        []string               `json:"health"`
	RollbackCmds  []string               `json:"rollback_cmds"`
	Links         []string               `json:"links"`
	Confidence    float64                `json:"confidence"`
}

func (a *ReleaseReport) Validate() error {
	if a.Environment == "" {
		return fmt.Errorf("release: environment is required")
	}
	if a.Version == "" {
		return fmt.Errorf("release: version is required")
	}
	return checkConfidence(a.Confidence)
}

// decodeArtifact decodes and validates the mediator's artifact payload for
// the given stage.
func decodeArtifact(stageName string, raw json.RawMessage) (Artifact, error) {
	var artifact Artifact
	switch stageName {
	case "plan":
		artifact = &PlanArtifact{}
	case "research":
		artifact = &ResearchArtifact{}
	case "plan_update":
		artifact = &BacklogArtifact{}
	case "threat":
		artifact = &ThreatArtifact{}
	case "integrate":
		artifact = &IntegrationArtifact{}
	case "test_debug":
		artifact = &TestReport{}
	case "release":
		artifact = &ReleaseReport{}
	default:
		artifact = &GenericArtifact{}
	}

	if err := json.Unmarshal(raw, artifact); err != nil {
		return nil, fmt.Errorf("stage %s: artifact decode failed: %w", stageName, err)
	}
	if err := artifact.Validate(); err != nil {
		return nil, fmt.Errorf("stage %s: artifact validation failed: %w", stageName, err)
	}
	return artifact, nil
}
