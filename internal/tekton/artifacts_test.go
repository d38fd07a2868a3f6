package tekton

import (
	"encoding/json"
	"testing"
	"time"
)

func TestPlanArtifactValidation(t *testing.T) {
	t.Parallel()

	good := &PlanArtifact{
		Goals:      []string{"ship memory tiers"},
		DRI:        "lynn",
		Timeline:   "2 weeks",
		Confidence: 0.9,
	}
	if err := good.Validate(); err != nil {
		t.Errorf("Expected valid plan, got: %v", err)
	}

	cases := []struct {
		name string
		mod  func(*PlanArtifact)
	}{
		{"no goals", func(a *PlanArtifact) { a.Goals = nil }},
		{"no dri", func(a *PlanArtifact) { a.DRI = "" }},
		{"no timeline", func(a *PlanArtifact) { a.Timeline = "" }},
		{"confidence too high", func(a *PlanArtifact) { a.Confidence = 1.5 }},
		{"confidence negative", func(a *PlanArtifact) { a.Confidence = -0.1 }},
	}
	for _, tc := range cases {
		a := *good
		a.Goals = append([]string(nil), good.Goals...)
		tc.mod(&a)
		if err := a.Validate(); err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
	}
}

func TestBacklogArtifactValidation(t *testing.T) {
	t.Parallel()

	a := &BacklogArtifact{
		Items:       []BacklogItem{{ItemID: "1", Task: "wire redis tier"}},
		PlanVersion: "v1",
		Confidence:  0.8,
	}
	if err := a.Validate(); err != nil {
		t.Errorf("Expected valid backlog: %v", err)
	}

	a.Items[0].Task = ""
	if err := a.Validate(); err == nil {
		t.Error("Expected error for item without task")
	}

	a.Items = nil
	if err := a.Validate(); err == nil {
		t.Error("Expected error for empty items")
	}
}

func TestDecodeArtifactPerStage(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"plan":        `{"goals":["g"],"milestones":[],"acceptance_criteria":[],"risks":[],"slos":[],"dri":"lynn","timeline":"2w","confidence":0.9}`,
		"research":    `{"options":[{"name":"sqlite","pros":["simple"],"cons":[],"links":[]}],"decision_matrix":[],"chosen":"sqlite","citations":[],"freshness_window_days":120,"confidence":0.8}`,
		"plan_update": `{"items":[{"item_id":"1","task":"t","rationale":"r","dependencies":[]}],"plan_version":"v1","confidence":0.8}`,
		"code":        `{"commands_run":["go test ./..."],"tests_executed":["TestFoo"],"risk_notes":[],"confidence":0.7}`,
		"review":      `{"status":"ok","issues":[],"fixlist":[],"confidence":0.8}`,
		"threat":      `{"dfd":"cli->provider","risks":[],"mitigations":[],"controls":[],"rollback_plan":"revert","compliance":{},"confidence":0.8}`,
		"integrate":   `{"flags":[],"migrations":[],"config_map":{},"rollback":"revert","confidence":0.8}`,
		"test_debug":  `{"ship":true,"coverage":{"total":0.82},"flakes":[],"confidence":0.9,"generated_at":"2025-09-18T00:00:00Z"}`,
		"release":     `{"environment":"prod","version":"1.0.0","canary_metrics":{},"health":[],"rollback_cmds":[],"links":[],"confidence":0.9}`,
	}

	for stage, raw := range cases {
		if _, err := decodeArtifact(stage, json.RawMessage(raw)); err != nil {
			t.Errorf("Stage %s: expected valid artifact: %v", stage, err)
		}
	}
}

func TestTestReportDefaultsGeneratedAt(t *testing.T) {
	t.Parallel()

	artifact, err := decodeArtifact("test_debug",
		json.RawMessage(`{"ship":false,"coverage":{},"flakes":[],"confidence":0.8}`))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	report := artifact.(*TestReport)
	if report.GeneratedAt.IsZero() {
		t.Error("Expected generated_at to default to the current time")
	}

	stamped := time.Date(2025, 9, 18, 0, 0, 0, 0, time.UTC)
	report = &TestReport{Confidence: 0.8, GeneratedAt: stamped}
	if err := report.Validate(); err != nil {
		t.Fatal(err)
	}
	if !report.GeneratedAt.Equal(stamped) {
		t.Errorf("Explicit generated_at must survive validation, got %v", report.GeneratedAt)
	}
}

func TestDecodeArtifactRejectsSchemaViolations(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"plan":      `{"goals":[],"dri":"lynn","timeline":"2w","confidence":0.9}`,
		"research":  `{"options":[],"chosen":"x","confidence":0.8}`,
		"threat":    `{"dfd":"x","confidence":0.8}`,
		"release":   `{"environment":"prod","confidence":0.9}`,
		"integrate": `{"flags":[],"confidence":2.0,"rollback":"r"}`,
	}

	for stage, raw := range cases {
		if _, err := decodeArtifact(stage, json.RawMessage(raw)); err == nil {
			t.Errorf("Stage %s: expected validation failure for %s", stage, raw)
		}
	}
}

func TestGenericArtifactRoundTrip(t *testing.T) {
	t.Parallel()

	raw := `{"status":"ok","issues":["one"],"confidence":0.75}`
	artifact, err := decodeArtifact("review", json.RawMessage(raw))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	data, err := json.Marshal(artifact)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var back map[string]interface{}
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if back["status"] != "ok" {
		t.Errorf("Generic artifact lost fields on round trip: %v", back)
	}
}

func TestSliceStages(t *testing.T) {
	t.Parallel()

	names, err := sliceStages("plan", "release")
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != len(StageNames) {
		t.Errorf("Expected full pipeline, got %v", names)
	}

	names, err = sliceStages("code", "threat")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"code", "review", "threat"}
	if len(names) != len(want) {
		t.Fatalf("Expected %v, got %v", want, names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Expected %v, got %v", want, names)
		}
	}

	if _, err := sliceStages("nope", "release"); err == nil {
		t.Error("Expected error for unknown start stage")
	}
	if _, err := sliceStages("release", "plan"); err == nil {
		t.Error("Expected error when end precedes start")
	}
}

func TestNormalizeConsensusFree(t *testing.T) {
	t.Parallel()

	set, err := normalizeConsensusFree([]string{"code", " TEST_DEBUG "})
	if err != nil {
		t.Fatal(err)
	}
	if !set["code"] || !set["test_debug"] {
		t.Errorf("Expected both stages in set: %v", set)
	}

	if _, err := normalizeConsensusFree([]string{"plan"}); err == nil {
		t.Error("Expected error: plan does not support consensus-free mode")
	}
	if _, err := normalizeConsensusFree([]string{"bogus"}); err == nil {
		t.Error("Expected error for unknown stage")
	}
}
