// Package tekton runs the Diamond staged workflow: a fixed stage sequence,
// each stage debated by a triad of role agents and settled by a mediator,
// producing one validated JSON artifact.
package tekton

import (
	"fmt"
	"strings"
)

// role prompts shared by every stage's triad
type triadRoles struct {
	Proponent  string
	Skeptic    string
	Pragmatist string
	Mediator   string
}

// Stage is one step of the workflow
type Stage struct {
	Name               string
	ArtifactFile       string
	Roles              triadRoles
	AllowConsensusFree bool

	// Prompt builds the stage instruction from the goal and prior results
	Prompt func(goal string, prior map[string]*StageResult) string
}

// StageNames is the fixed execution order
var StageNames = []string{
	"plan", "research", "plan_update", "code", "review",
	"threat", "integrate", "test_debug", "release",
}

// priorMediator extracts a truncated mediator excerpt from an earlier stage
func priorMediator(prior map[string]*StageResult, stage string, max int) string {
	res, ok := prior[stage]
	if !ok || res == nil {
		return ""
	}
	s := res.MediatorRaw
	if len(s) > max {
		s = s[:max]
	}
	return s
}

// Stages defines per-stage roles, prompts, and artifact filenames. Stages
// without an explicit filename fall back to <name>.json.
var Stages = map[string]Stage{
	"plan": {
		Name:         "plan",
		ArtifactFile: "plan.json",
		Roles: triadRoles{
			Proponent:  "Draft the plan artifact with milestones and acceptance criteria.",
			Skeptic:    "Stress-test feasibility, highlight missing risks, push for clarity.",
			Pragmatist: "Ensure the plan is executable, reversible, and timeboxed.",
			Mediator:   "Produce plan.json with goals, milestones, acceptance_criteria, risks, slos, dri, timeline, confidence.",
		},
		Prompt: func(goal string, prior map[string]*StageResult) string {
			return fmt.Sprintf(`Goal: %s
Craft plan.json (goals, milestones, acceptance_criteria, risks, slos, dri, timeline, confidence).
Use bullet lists with concrete deliverables and explicit acceptance tests.
Integrate any prior backlog or research info from context if present.`, goal)
		},
	},
	"research": {
		Name:         "research",
		ArtifactFile: "research.json",
		Roles: triadRoles{
			Proponent:  "Survey viable options with pros, cons, and citations.",
			Skeptic:    "Challenge stale sources and one-sided comparisons.",
			Pragmatist: "Weigh integration cost and operational fit for each option.",
			Mediator:   "Produce research.json with options, decision_matrix, chosen, citations, freshness_window_days, confidence.",
		},
		Prompt: func(goal string, prior map[string]*StageResult) string {
			return fmt.Sprintf(`Goal: %s
Plan excerpt: %s
Produce research.json => options[] (name, pros, cons, links), decision_matrix, chosen, citations, confidence.
Prefer sources inside the freshness window.`, goal, priorMediator(prior, "plan", 800))
		},
	},
	"plan_update": {
		Name:         "plan_update",
		ArtifactFile: "backlog.json",
		Roles: triadRoles{
			Proponent:  "Convert the chosen research option into an ordered backlog.",
			Skeptic:    "Flag missing dependencies and underspecified tasks.",
			Pragmatist: "Keep items small, owned, and independently shippable.",
			Mediator:   "Produce backlog.json with items (item_id, task, rationale, dependencies, owner), plan_version, confidence.",
		},
		Prompt: func(goal string, prior map[string]*StageResult) string {
			return fmt.Sprintf(`Goal: %s
Research excerpt: %s
Produce backlog.json => items[] (item_id, task, rationale, dependencies, owner), plan_version, confidence.`, goal, priorMediator(prior, "research", 800))
		},
	},
	"code": {
		Name:               "code",
		AllowConsensusFree: true,
		Roles: triadRoles{
			Proponent:  "Produce the patch implementing the backlog items.",
			Skeptic:    "Hunt for untested paths, hidden regressions, missing edge cases.",
			Pragmatist: "Keep the diff minimal and revertible.",
			Mediator:   "Emit code.json metadata: commands_run, tests_executed, risk_notes, confidence.",
		},
		Prompt: func(goal string, prior map[string]*StageResult) string {
			return fmt.Sprintf(`Goal: %s
Backlog excerpt: %s
Produce a unified diff patch with accompanying JSON metadata summarising
commands_run[], tests_executed[], risk_notes[], confidence.
In consensus-free mode, runtime signals (tests passing) outweigh rhetoric.`, goal, priorMediator(prior, "plan_update", 800))
		},
	},
	"review": {
		Name: "review",
		Roles: triadRoles{
			Proponent:  "Summarise diff impact and readiness for merge.",
			Skeptic:    "Log blocking issues, coverage gaps, regressions.",
			Pragmatist: "Enumerate fixes or approvals with rollback clarity.",
			Mediator:   "Emit review.json with status, issues, fixlist, confidence.",
		},
		Prompt: func(goal string, prior map[string]*StageResult) string {
			return fmt.Sprintf(`Goal: %s
Evaluate diff + metadata: %s
Produce review.json => status(ok|revise|block), issues[], fixlist[], risks[], confidence.
Capture any dissent explicitly.`, goal, priorMediator(prior, "code", 800))
		},
	},
	"threat": {
		Name:         "threat",
		ArtifactFile: "threat.json",
		Roles: triadRoles{
			Proponent:  "Map data flows and enumerate the attack surface.",
			Skeptic:    "Assume breach; find the paths the proponent missed.",
			Pragmatist: "Propose mitigations proportional to actual exposure.",
			Mediator:   "Produce threat.json with dfd, risks, mitigations, controls, rollback_plan, compliance, confidence.",
		},
		Prompt: func(goal string, prior map[string]*StageResult) string {
			return fmt.Sprintf(`Goal: %s
Review excerpt: %s
Produce threat.json => dfd, risks[], mitigations[], controls[], rollback_plan, compliance, confidence.`, goal, priorMediator(prior, "review", 800))
		},
	},
	"integrate": {
		Name:         "integrate",
		ArtifactFile: "integration.json",
		Roles: triadRoles{
			Proponent:  "Define flags, migrations, and config for a safe rollout.",
			Skeptic:    "Probe for irreversible migrations and flag interactions.",
			Pragmatist: "Ensure every step has a rollback.",
			Mediator:   "Produce integration.json with flags, migrations, config_map, rollback, confidence.",
		},
		Prompt: func(goal string, prior map[string]*StageResult) string {
			return fmt.Sprintf(`Goal: %s
Threat excerpt: %s
Produce integration.json => flags[], migrations[], config_map, rollback, confidence.`, goal, priorMediator(prior, "threat", 800))
		},
	},
	"test_debug": {
		Name:               "test_debug",
		ArtifactFile:       "test_report.json",
		AllowConsensusFree: true,
		Roles: triadRoles{
			Proponent:  "Demonstrate the change is ship-ready with test evidence.",
			Skeptic:    "Surface flakes, coverage holes, and unproven claims.",
			Pragmatist: "Judge ship/no-ship on signal, not sentiment.",
			Mediator:   "Produce test_report.json with ship, junit_path, coverage, flakes, confidence.",
		},
		Prompt: func(goal string, prior map[string]*StageResult) string {
			return fmt.Sprintf(`Goal: %s
Integration excerpt: %s
Produce test_report.json => ship(bool), junit_path, coverage, flakes[], confidence.
In consensus-free mode, runtime signals (tests passing) outweigh rhetoric.`, goal, priorMediator(prior, "integrate", 800))
		},
	},
	"release": {
		Name:         "release",
		ArtifactFile: "release_report.json",
		Roles: triadRoles{
			Proponent:  "Lay out the canary rollout and health gates.",
			Skeptic:    "Identify the metrics that would force a rollback.",
			Pragmatist: "Keep rollback commands copy-pasteable.",
			Mediator:   "Produce release_report.json with environment, version, canary_metrics, health, rollback_cmds, links, confidence.",
		},
		Prompt: func(goal string, prior map[string]*StageResult) string {
			return fmt.Sprintf(`Goal: %s
Test report excerpt: %s
Produce release_report.json => environment, version, canary_metrics, health[], rollback_cmds[], links[], confidence.`, goal, priorMediator(prior, "test_debug", 800))
		},
	},
}

// ArtifactFilename returns the stage's artifact filename
func ArtifactFilename(stageName string) string {
	if s, ok := Stages[stageName]; ok && s.ArtifactFile != "" {
		return s.ArtifactFile
	}
	return stageName + ".json"
}

// Describe summarizes the workflow for --explain
func Describe() map[string]interface{} {
	return map[string]interface{}{
		"name":   "diamond_v5",
		"stages": StageNames,
	}
}

// sliceStages returns the stage names from start through end inclusive
func sliceStages(start, end string) ([]string, error) {
	startIdx, endIdx := -1, -1
	for i, name := range StageNames {
		if name == start {
			startIdx = i
		}
		if name == end {
			endIdx = i
		}
	}
	if startIdx == -1 {
		return nil, fmt.Errorf("unknown start stage: %s", start)
	}
	if endIdx == -1 {
		return nil, fmt.Errorf("unknown end stage: %s", end)
	}
	if endIdx < startIdx {
		return nil, fmt.Errorf("end stage %s precedes start stage %s", end, start)
	}
	return StageNames[startIdx : endIdx+1], nil
}

// normalizeConsensusFree validates and lowercases the consensus-free set
func normalizeConsensusFree(names []string) (map[string]bool, error) {
	set := make(map[string]bool, len(names))
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		stage, ok := Stages[name]
		if !ok {
			return nil, fmt.Errorf("unknown consensus-free stage: %s", name)
		}
		if !stage.AllowConsensusFree {
			return nil, fmt.Errorf("stage %s does not support consensus-free mode", name)
		}
		set[name] = true
	}
	return set, nil
}
