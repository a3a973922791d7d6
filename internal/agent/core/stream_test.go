package core

import (
	"io"
	"log"
	"testing"
)

func testLogger() *log.Logger { return log.New(io.Discard, "", 0) }

func TestReassembleTextConcatenation(t *testing.T) {
	frags := []Fragment{{Text: "Hel"}, {Text: "lo "}, {Text: "world"}}
	msg := Reassemble(frags, testLogger())
	if msg.Role != RoleAI {
		t.Fatalf("expected AI role, got %s", msg.Role)
	}
	if msg.Content != "Hello world" {
		t.Fatalf("unexpected content: %q", msg.Content)
	}
	if len(msg.ToolCalls) != 0 {
		t.Fatalf("expected no tool calls, got %d", len(msg.ToolCalls))
	}
}

func TestReassembleToolCallMerging(t *testing.T) {
	frags := []Fragment{
		{ToolCalls: []ToolCallDelta{{Index: 0, CallID: "call_1", Name: "web_"}}},
		{ToolCalls: []ToolCallDelta{{Index: 0, Name: "search", Arguments: `{"query":`}}},
		{ToolCalls: []ToolCallDelta{
			{Index: 0, Arguments: `"go"}`},
			{Index: 1, CallID: "call_2", Name: "weather", Arguments: `{"city":"Paris"}`},
		}},
	}
	msg := Reassemble(frags, testLogger())
	if len(msg.ToolCalls) != 2 {
		t.Fatalf("expected 2 tool calls, got %d", len(msg.ToolCalls))
	}
	first := msg.ToolCalls[0]
	if first.CallID != "call_1" || first.Name != "web_search" || first.Arguments != `{"query":"go"}` {
		t.Fatalf("unexpected first call: %+v", first)
	}
	second := msg.ToolCalls[1]
	if second.CallID != "call_2" || second.Name != "weather" {
		t.Fatalf("unexpected second call: %+v", second)
	}
}

func TestReassembleFirstCallIDWins(t *testing.T) {
	frags := []Fragment{
		{ToolCalls: []ToolCallDelta{{Index: 0, CallID: "call_a"}}},
		{ToolCalls: []ToolCallDelta{{Index: 0, CallID: "call_b", Name: "search"}}},
	}
	msg := Reassemble(frags, testLogger())
	if len(msg.ToolCalls) != 1 || msg.ToolCalls[0].CallID != "call_a" {
		t.Fatalf("expected first call id to win, got %+v", msg.ToolCalls)
	}
}

func TestReassembleDropsGroupWithoutCallID(t *testing.T) {
	frags := []Fragment{
		{ToolCalls: []ToolCallDelta{
			{Index: 0, Name: "orphan", Arguments: "{}"},
			{Index: 1, CallID: "call_1", Name: "kept", Arguments: "{}"},
		}},
	}
	msg := Reassemble(frags, testLogger())
	if len(msg.ToolCalls) != 1 {
		t.Fatalf("expected orphan group dropped, got %+v", msg.ToolCalls)
	}
	if msg.ToolCalls[0].Name != "kept" {
		t.Fatalf("wrong call survived: %+v", msg.ToolCalls[0])
	}
}

// Reassembly must not depend on how adjacent fragments were split.
func TestReassembleAssociativity(t *testing.T) {
	base := []Fragment{
		{Text: "a", ToolCalls: []ToolCallDelta{{Index: 0, CallID: "c1", Name: "se"}}},
		{Text: "b", ToolCalls: []ToolCallDelta{{Index: 0, Name: "arch", Arguments: `{"q"`}}},
		{Text: "c", ToolCalls: []ToolCallDelta{{Index: 0, Arguments: `:"x"}`}}},
	}
	want := Reassemble(base, testLogger())

	leftMerged := []Fragment{MergeFragments(base[0], base[1]), base[2]}
	rightMerged := []Fragment{base[0], MergeFragments(base[1], base[2])}

	for name, frags := range map[string][]Fragment{"left": leftMerged, "right": rightMerged} {
		got := Reassemble(frags, testLogger())
		if got.Content != want.Content {
			t.Fatalf("%s merge changed content: %q vs %q", name, got.Content, want.Content)
		}
		if len(got.ToolCalls) != len(want.ToolCalls) {
			t.Fatalf("%s merge changed call count", name)
		}
		for i := range got.ToolCalls {
			if got.ToolCalls[i] != want.ToolCalls[i] {
				t.Fatalf("%s merge changed call %d: %+v vs %+v", name, i, got.ToolCalls[i], want.ToolCalls[i])
			}
		}
	}
}
