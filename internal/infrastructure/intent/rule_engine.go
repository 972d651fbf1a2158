// Package intent implements the three IntentParser engines (§4.1): an
// offline rule table, a cloud LLM call, and an on-device LLM call. All
// three share the same contract and JSON response shape; only the
// transport differs.
package intent

import (
	"context"
	"strings"

	"github.com/aman-2709/zeroclaw-remote-diagnostics/internal/domain/entity"
)

// pattern binds a set of trigger substrings to a fixed target action.
// nouns/verbs, when both non-empty, require co-occurrence (the OBD-II PID
// family, §4.1); triggers, when non-empty, is pure substring matching.
type pattern struct {
	triggers []string
	nouns    []string
	verbs    []string
	action   entity.ActionKind
	name     string
	args     map[string]interface{}
}

// ruleTable is matched first-match-wins in slice order (§4.1: "order must
// be deterministic and tested"). Co-occurrence families are listed before
// the generic substring families they could otherwise be confused with.
var ruleTable = []pattern{
	{
		nouns:  []string{"rpm"},
		verbs:  []string{"read", "get", "show", "what", "check"},
		action: entity.ActionTool,
		name:   "read_obd_pid",
		args:   map[string]interface{}{"pid": "rpm"},
	},
	{
		nouns:  []string{"coolant temp", "coolant temperature"},
		verbs:  []string{"read", "get", "show", "what", "check"},
		action: entity.ActionTool,
		name:   "read_obd_pid",
		args:   map[string]interface{}{"pid": "coolant_temp"},
	},
	{
		nouns:  []string{"fuel level"},
		verbs:  []string{"read", "get", "show", "what", "check"},
		action: entity.ActionTool,
		name:   "read_obd_pid",
		args:   map[string]interface{}{"pid": "fuel_level"},
	},
	{
		triggers: []string{"dtc", "trouble code", "diagnostic trouble code"},
		action:   entity.ActionTool,
		name:     "read_dtcs",
		args:     map[string]interface{}{},
	},
	{
		triggers: []string{"search logs for", "grep logs for", "find in logs"},
		action:   entity.ActionTool,
		name:     "search_logs",
		// query is filled in at match time from the remainder of the text
	},
	{
		triggers: []string{"tail logs", "recent logs", "latest logs"},
		action:   entity.ActionTool,
		name:     "tail_logs",
		args:     map[string]interface{}{},
	},
	{
		triggers: []string{"system uptime", "how long has it been up", "uptime"},
		action:   entity.ActionShell,
		name:     "uptime",
	},
	{
		triggers: []string{"disk space", "disk usage"},
		action:   entity.ActionShell,
		name:     "df -h",
	},
	{
		triggers: []string{"memory usage", "free memory"},
		action:   entity.ActionShell,
		name:     "free -h",
	},
	{
		triggers: []string{"hostname"},
		action:   entity.ActionShell,
		name:     "hostname",
	},
	{
		triggers: []string{"process list", "running processes"},
		action:   entity.ActionShell,
		name:     "ps aux",
	},
}

const ruleConfidence = 0.95

// RuleEngine is the substring-matching first parser in the pipeline
// (§4.1 "expected to cover roughly 80% of live traffic").
type RuleEngine struct{}

// NewRuleEngine constructs a rule engine. The table is a package-level
// constant, so there is no per-instance state.
func NewRuleEngine() *RuleEngine {
	return &RuleEngine{}
}

func (e *RuleEngine) Name() string { return "rule" }

// Parse returns nil, nil when nothing in the table matches — a "no
// opinion" result, not an error (§4.1).
func (e *RuleEngine) Parse(ctx context.Context, text string) (*entity.ParsedIntent, error) {
	lower := strings.ToLower(text)

	for _, p := range ruleTable {
		if !matches(lower, p) {
			continue
		}
		args := p.args
		if args == nil {
			args = map[string]interface{}{}
		}
		if p.name == "search_logs" {
			args = map[string]interface{}{"query": extractQuery(lower, p.triggers)}
		}
		return &entity.ParsedIntent{
			Action:     p.action,
			Name:       p.name,
			Args:       args,
			Confidence: ruleConfidence,
			Tier:       entity.TierLocal,
		}, nil
	}
	return nil, nil
}

func matches(lower string, p pattern) bool {
	if len(p.nouns) > 0 && len(p.verbs) > 0 {
		return containsAny(lower, p.nouns) && containsAny(lower, p.verbs)
	}
	return containsAny(lower, p.triggers)
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

// extractQuery pulls the free-text remainder after whichever trigger
// phrase matched, used only by the search_logs family.
func extractQuery(lower string, triggers []string) string {
	for _, t := range triggers {
		if idx := strings.Index(lower, t); idx >= 0 {
			rest := strings.TrimSpace(lower[idx+len(t):])
			if rest != "" {
				return rest
			}
		}
	}
	return ""
}
