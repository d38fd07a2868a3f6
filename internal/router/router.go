// Package router classifies free-text queries into provider routes using
// weighted keyword triggers and regex pattern bonuses.
package router

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
)

const (
	patternBonus        = 15.0
	ambiguityThreshold  = 0.4
	ambiguousConfidence = 0.5
)

// capability describes how strongly a route attracts a query
type capability struct {
	triggers  map[string]float64
	patterns  []*regexp.Regexp
	strengths string
}

// Decision is the outcome of classifying a query
type Decision struct {
	Route      string
	Query      string
	Confidence float64
	Explicit   bool
	Ambiguous  bool
	Scores     map[string]float64
}

// Router scores queries against the route capability table
type Router struct {
	capabilities map[string]capability
	ambiguous    map[string][]string
	defaultRoute string
	now          func() time.Time
}

// New creates a router with the built-in capability table
func New(defaultRoute string) *Router {
	return &Router{
		capabilities: map[string]capability{
			"claude": {
				triggers: map[string]float64{
					"refactor": 10, "analyze": 10, "review": 10,
					"understand": 8, "explain": 8, "debug": 9,
					"architecture": 9, "audit": 9, "optimize": 7,
				},
				patterns: []*regexp.Regexp{
					regexp.MustCompile(`\b(code\s+review|analyze\s+this|explain\s+how|debug\s+why)\b`),
					regexp.MustCompile(`\b(refactor|restructure|improve)\s+\w+\s+(module|class|function)\b`),
				},
				strengths: "deep codebase understanding, refactoring, analysis",
			},
			"codex": {
				triggers: map[string]float64{
					"write": 10, "create": 10, "generate": 10,
					"implement": 9, "code": 8, "build": 8,
					"function": 9, "endpoint": 9, "api": 8,
				},
				patterns: []*regexp.Regexp{
					regexp.MustCompile(`\b(write|create|generate)\s+a?\s*\w*\s*(function|class|api|endpoint)\b`),
					regexp.MustCompile(`\b(implement|build|develop)\s+\w+\s*(feature|service)\b`),
				},
				strengths: "code generation, implementation, syntax",
			},
			"web": {
				triggers: map[string]float64{
					"search": 10, "latest": 10, "current": 9,
					"find": 8, "web": 9, "news": 9, "recent": 9,
				},
				patterns: []*regexp.Regexp{
					regexp.MustCompile(`\b(search|find|get)\s+(latest|current|recent)\b`),
					regexp.MustCompile(`\b(what's|what is|show me)\s+new\b`),
				},
				strengths: "web search, current information",
			},
			"agent": {
				triggers: map[string]float64{
					"automate": 10, "orchestrate": 10, "deploy": 10,
					"pipeline": 9, "workflow": 9, "agent": 8,
					"schedule": 8, "batch": 8, "coordinate": 9,
				},
				patterns: []*regexp.Regexp{
					regexp.MustCompile(`\b(automate|orchestrate)\s+\w+\s+(workflow|pipeline)\b`),
					regexp.MustCompile(`\b(deploy|release|ship)\s+to\s+(production|staging)\b`),
				},
				strengths: "automation, multi-step workflows, deployment",
			},
		},
		ambiguous: map[string][]string{
			"optimize": {"claude", "codex"},
			"fix":      {"claude", "codex"},
			"update":   {"codex", "web"},
			"test":     {"codex", "agent"},
		},
		defaultRoute: defaultRoute,
		now:          time.Now,
	}
}

// explicit prefixes short-circuit classification entirely
var explicitPrefixes = map[string]string{
	"claude:": "claude",
	"codex:":  "codex",
	"web:":    "web",
	"search:": "web",
	"agent:":  "agent",
}

// Route classifies a query and returns the routing decision
func (r *Router) Route(query string) Decision {
	lower := strings.ToLower(query)

	for prefix, routeName := range explicitPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return Decision{
				Route:      routeName,
				Query:      strings.TrimSpace(query[len(prefix):]),
				Confidence: 1.0,
				Explicit:   true,
			}
		}
	}

	scores := make(map[string]float64, len(r.capabilities))
	for name, cap := range r.capabilities {
		scores[name] = r.score(lower, cap)
	}

	best, total := r.defaultRoute, 0.0
	for _, name := range sortedNames(scores) {
		total += scores[name]
		if scores[name] > scores[best] {
			best = name
		}
	}

	confidence := 0.0
	if total > 0 {
		confidence = scores[best] / total
	}

	// Low-confidence queries with a known ambiguous keyword fall back to
	// that keyword's preferred route.
	ambiguous := false
	if confidence < ambiguityThreshold {
		for keyword, routes := range r.ambiguous {
			if strings.Contains(lower, keyword) {
				best = routes[0]
				confidence = ambiguousConfidence
				ambiguous = true
				break
			}
		}
	}

	return Decision{
		Route:      best,
		Query:      query,
		Confidence: confidence,
		Ambiguous:  ambiguous,
		Scores:     scores,
	}
}

func (r *Router) score(lowerQuery string, cap capability) float64 {
	var score float64
	for keyword, weight := range cap.triggers {
		if strings.Contains(lowerQuery, keyword) {
			score += weight
		}
	}
	for _, pattern := range cap.patterns {
		if pattern.MatchString(lowerQuery) {
			score += patternBonus
		}
	}
	return score
}

// Strengths describes what a route is good at, for ambiguity hints
func (r *Router) Strengths(routeName string) string {
	return r.capabilities[routeName].strengths
}

// Decorate appends date context to a routed query. Web searches get an
// explicit recency cutoff; everything else gets a subtle today marker.
func (r *Router) Decorate(query, routeName string) string {
	now := r.now()
	today := now.Format("2006-01-02")
	if routeName == "web" {
		cutoff := now.AddDate(0, 0, -100).Format("2006-01-02")
		return fmt.Sprintf("%s (current as of %s, only results from %s onwards)", query, today, cutoff)
	}
	return fmt.Sprintf("%s (context: today is %s)", query, today)
}

// sortedNames gives deterministic iteration for score accumulation and ties
func sortedNames(scores map[string]float64) []string {
	names := make([]string, 0, len(scores))
	for name := range scores {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
