package core

import (
	"log"
	"sort"
	"strings"
)

// Reassemble folds an ordered sequence of fragments into one completed AI
// message. Text deltas concatenate in arrival order. Tool-call deltas group
// by index, concatenating name and argument strings; the first non-empty
// call id seen for an index is kept. An index that never received a call id
// is logged and dropped. Pure function apart from the log line.
func Reassemble(fragments []Fragment, logger *log.Logger) Message {
	var text strings.Builder
	groups := map[int]*ToolCall{}
	var order []int

	for _, f := range fragments {
		text.WriteString(f.Text)
		for _, d := range f.ToolCalls {
			g, ok := groups[d.Index]
			if !ok {
				g = &ToolCall{}
				groups[d.Index] = g
				order = append(order, d.Index)
			}
			if g.CallID == "" && d.CallID != "" {
				g.CallID = d.CallID
			}
			g.Name += d.Name
			g.Arguments += d.Arguments
		}
	}

	sort.Ints(order)
	var calls []ToolCall
	for _, idx := range order {
		g := groups[idx]
		if g.CallID == "" {
			if logger != nil {
				logger.Printf("dropping tool call at index %d: no call id assigned (name=%q)", idx, g.Name)
			}
			continue
		}
		calls = append(calls, *g)
	}

	return Message{Role: RoleAI, Content: text.String(), ToolCalls: calls}
}

// MergeFragments concatenates two adjacent fragments into one. Reassembly
// over a fragment sequence is unchanged by merging neighbours this way.
func MergeFragments(a, b Fragment) Fragment {
	merged := Fragment{Text: a.Text + b.Text}
	merged.ToolCalls = append(merged.ToolCalls, a.ToolCalls...)
	merged.ToolCalls = append(merged.ToolCalls, b.ToolCalls...)
	return merged
}
