package core

import (
	"context"
	"strings"
	"testing"
)

func TestPlannerInjectsGuidanceProfile(t *testing.T) {
	model := &scriptedModel{turns: [][]Fragment{
		{{Text: "TravelPlanning"}}, // classification pre-step
		{{Text: "Day 1: arrive in Rome."}},
	}}
	reg := newTestRegistry(t, RegistryOptions{}, weatherTool("mild", false))
	p, err := NewPlanner(model, reg, testLogger(), nil, Options{}, "guidance-model")
	if err != nil {
		t.Fatalf("NewPlanner: %v", err)
	}

	out, res := p.Run(context.Background(), "plan a trip to Rome", []Message{SystemMessage("sys")})
	if got := drain(out); got != "Day 1: arrive in Rome." {
		t.Fatalf("output: %q", got)
	}
	if model.callCount() != 2 {
		t.Fatalf("model calls: %d, want classification + run", model.callCount())
	}

	var guidance string
	for _, m := range res.Conversation {
		if m.Role == RoleSystem && strings.Contains(m.Content, "GUIDANCE") {
			guidance = m.Content
		}
	}
	if !strings.Contains(guidance, "travel planning") {
		t.Fatalf("travel guidance not injected: %q", guidance)
	}
}

func TestPlannerFallsBackOnUnknownClassification(t *testing.T) {
	model := &scriptedModel{turns: [][]Fragment{
		{{Text: "SomethingElse"}},
		{{Text: "ok"}},
	}}
	reg := newTestRegistry(t, RegistryOptions{}, weatherTool("", false))
	p, err := NewPlanner(model, reg, testLogger(), nil, Options{}, "m")
	if err != nil {
		t.Fatalf("NewPlanner: %v", err)
	}

	out, res := p.Run(context.Background(), "do a thing", []Message{SystemMessage("sys")})
	drain(out)

	found := false
	for _, m := range res.Conversation {
		if m.Role == RoleSystem && strings.Contains(m.Content, "GUIDANCE:") {
			found = true
		}
	}
	if !found {
		t.Fatal("default guidance not injected")
	}
}

func TestPlannerWarningLabel(t *testing.T) {
	model := &scriptedModel{
		turns: [][]Fragment{
			{{Text: "DefaultGuidance"}},
			{{ToolCalls: []ToolCallDelta{{Index: 0, CallID: "c1", Name: "weather_search", Arguments: `{"city":"Oslo"}`}}}},
		},
		repeat: true,
	}
	reg := newTestRegistry(t, RegistryOptions{}, weatherTool("cold", false))
	p, err := NewPlanner(model, reg, testLogger(), nil, Options{MaxIterations: 2}, "m")
	if err != nil {
		t.Fatalf("NewPlanner: %v", err)
	}

	out, _ := p.Run(context.Background(), "loop", []Message{SystemMessage("sys")})
	got := drain(out)
	if !strings.Contains(got, "Planner Agent") || !strings.Contains(got, "Reached maximum iterations (2)") {
		t.Fatalf("planner warning missing: %q", got)
	}
}
