package intent

import (
	"context"
	"testing"

	"github.com/aman-2709/zeroclaw-remote-diagnostics/internal/domain/entity"
)

func TestRuleEngine_Name(t *testing.T) {
	if (&RuleEngine{}).Name() != "rule" {
		t.Errorf("unexpected engine name: %s", (&RuleEngine{}).Name())
	}
}

func TestRuleEngine_PIDCoOccurrence(t *testing.T) {
	e := NewRuleEngine()
	intent, err := e.Parse(context.Background(), "can you read the rpm right now")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if intent == nil {
		t.Fatal("expected a matched intent")
	}
	if intent.Action != entity.ActionTool || intent.Name != "read_obd_pid" || intent.Args["pid"] != "rpm" {
		t.Errorf("unexpected intent: %+v", intent)
	}
}

func TestRuleEngine_NounWithoutVerbDoesNotMatch(t *testing.T) {
	e := NewRuleEngine()
	intent, err := e.Parse(context.Background(), "the rpm gauge looks fine")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if intent != nil {
		t.Errorf("expected no match without a co-occurring verb, got %+v", intent)
	}
}

func TestRuleEngine_DTCTrigger(t *testing.T) {
	e := NewRuleEngine()
	intent, err := e.Parse(context.Background(), "show me any diagnostic trouble code")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if intent == nil || intent.Name != "read_dtcs" {
		t.Fatalf("expected read_dtcs match, got %+v", intent)
	}
}

func TestRuleEngine_ShellTriggers(t *testing.T) {
	e := NewRuleEngine()
	cases := map[string]string{
		"what's the disk space left":  "df -h",
		"check free memory":           "free -h",
		"what is the hostname":        "hostname",
		"show me the process list":    "ps aux",
		"what is the system uptime":   "uptime",
	}
	for text, wantName := range cases {
		intent, err := e.Parse(context.Background(), text)
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", text, err)
		}
		if intent == nil || intent.Action != entity.ActionShell || intent.Name != wantName {
			t.Errorf("%q: expected shell %q, got %+v", text, wantName, intent)
		}
	}
}

func TestRuleEngine_SearchLogsExtractsQuery(t *testing.T) {
	e := NewRuleEngine()
	intent, err := e.Parse(context.Background(), "search logs for connection refused")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if intent == nil || intent.Name != "search_logs" {
		t.Fatalf("expected search_logs match, got %+v", intent)
	}
	if intent.Args["query"] != "connection refused" {
		t.Errorf("expected extracted query, got %q", intent.Args["query"])
	}
}

func TestRuleEngine_NoMatchReturnsNilNil(t *testing.T) {
	e := NewRuleEngine()
	intent, err := e.Parse(context.Background(), "tell me a joke about vehicles")
	if err != nil {
		t.Fatalf("expected no error even on no opinion, got %v", err)
	}
	if intent != nil {
		t.Errorf("expected nil intent for unmatched text, got %+v", intent)
	}
}

func TestRuleEngine_Deterministic(t *testing.T) {
	e := NewRuleEngine()
	first, _ := e.Parse(context.Background(), "read the coolant temperature")
	second, _ := e.Parse(context.Background(), "read the coolant temperature")
	if first.Name != second.Name || first.Args["pid"] != second.Args["pid"] {
		t.Errorf("expected deterministic results across repeated calls: %+v vs %+v", first, second)
	}
}
