package core

import (
	"strings"
	"testing"
)

// runFilter pushes the input through a fresh filter using the given chunk
// sizes, cycling the sizes when the input is longer than their sum.
func runFilter(input string, sizes []int) string {
	f := NewThinkFilter()
	var out strings.Builder
	i, s := 0, 0
	for i < len(input) {
		n := sizes[s%len(sizes)]
		s++
		end := i + n
		if end > len(input) {
			end = len(input)
		}
		out.WriteString(f.Feed(input[i:end]))
		i = end
	}
	out.WriteString(f.Flush())
	return out.String()
}

func TestFilterPassThroughCleanInput(t *testing.T) {
	input := "The capital of France is Paris. <think>not at the start</think> done."
	for _, sizes := range [][]int{{1}, {2}, {3}, {7}, {100}, {1, 5, 2}} {
		if got := runFilter(input, sizes); got != input {
			t.Fatalf("sizes %v changed clean input: %q", sizes, got)
		}
	}
}

func TestFilterStripsLeadingThinkBlock(t *testing.T) {
	input := "<think>hidden reasoning</think>Visible answer"
	for _, sizes := range [][]int{{1}, {2}, {4}, {9}, {100}, {3, 1, 8}} {
		if got := runFilter(input, sizes); got != "Visible answer" {
			t.Fatalf("sizes %v: got %q, want %q", sizes, got, "Visible answer")
		}
	}
}

func TestFilterStripsWithLeadingWhitespace(t *testing.T) {
	input := "  \n<think>plan</think>Answer"
	if got := runFilter(input, []int{3}); got != "Answer" {
		t.Fatalf("got %q", got)
	}
}

func TestFilterUnterminatedBlockDiscarded(t *testing.T) {
	input := "<think>never closes"
	for _, sizes := range [][]int{{1}, {5}, {100}} {
		if got := runFilter(input, sizes); got != "" {
			t.Fatalf("sizes %v: expected empty output, got %q", sizes, got)
		}
	}
}

func TestFilterPartialTagPrefixFlushedAtEnd(t *testing.T) {
	// Looks like it could open a think tag but the stream ends first.
	if got := runFilter("<thi", []int{2}); got != "<thi" {
		t.Fatalf("got %q", got)
	}
}

func TestFilterTagLikePrefixResolvedNegatively(t *testing.T) {
	input := "<thinker> is a word"
	if got := runFilter(input, []int{4}); got != input {
		t.Fatalf("got %q", got)
	}
}

func TestFilterLaterThinkTagPassesThrough(t *testing.T) {
	input := "Answer first. <think>this stays</think>"
	if got := runFilter(input, []int{6}); got != input {
		t.Fatalf("got %q", got)
	}
}

func TestFilterBlockThenOnlyWhitespace(t *testing.T) {
	if got := runFilter("<think>x</think>   ", []int{100}); got != "" {
		t.Fatalf("whitespace-only remainder should be dropped, got %q", got)
	}
}
