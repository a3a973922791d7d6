package core

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type failingModel struct{}

func (failingModel) Stream(ctx context.Context, model string, messages []Message, tools []ToolSpec) (<-chan Fragment, <-chan error) {
	fragCh := make(chan Fragment)
	errCh := make(chan error, 1)
	close(fragCh)
	errCh <- fmt.Errorf("connection reset")
	close(errCh)
	return fragCh, errCh
}

func TestLayoutStreamsHTML(t *testing.T) {
	model := &scriptedModel{turns: [][]Fragment{
		{{Text: "<h1>Paris</h1>"}, {Text: "<p>Sunny today.</p>"}},
	}}
	l := NewLayout(model, "layout-model", testLogger())

	out := l.Render(context.Background(), "Paris is sunny today.", nil, nil)
	got := drain(out)
	if got != "<h1>Paris</h1><p>Sunny today.</p>" {
		t.Fatalf("output: %q", got)
	}
	if model.callCount() != 1 {
		t.Fatalf("layout must issue exactly one model call, got %d", model.callCount())
	}
}

func TestLayoutFailureYieldsInlineMarker(t *testing.T) {
	l := NewLayout(failingModel{}, "layout-model", testLogger())
	out := l.Render(context.Background(), "some text", nil, nil)
	got := drain(out)
	if !strings.Contains(got, "[Error:") || !strings.Contains(got, "connection reset") {
		t.Fatalf("missing inline error marker: %q", got)
	}
}

func TestLayoutEmbedsImages(t *testing.T) {
	dir := t.TempDir()
	img := filepath.Join(dir, "eiffel.png")
	if err := os.WriteFile(img, []byte{0x89, 0x50, 0x4e, 0x47}, 0o644); err != nil {
		t.Fatal(err)
	}

	captured := &capturingModel{reply: "<p>ok</p>"}
	l := NewLayout(captured, "layout-model", testLogger())
	drain(l.Render(context.Background(), "text", []string{img}, nil))

	if len(captured.messages) != 2 {
		t.Fatalf("messages: %d", len(captured.messages))
	}
	human := captured.messages[1]
	if len(human.Images) != 1 || !strings.HasPrefix(human.Images[0], "data:image/png;base64,") {
		t.Fatalf("image not embedded: %+v", human.Images)
	}
	if !strings.Contains(human.Content, "eiffel.png") {
		t.Fatalf("file name not referenced: %q", human.Content)
	}
}

// capturingModel records the message list it was called with.
type capturingModel struct {
	messages []Message
	reply    string
}

func (m *capturingModel) Stream(ctx context.Context, model string, messages []Message, tools []ToolSpec) (<-chan Fragment, <-chan error) {
	m.messages = messages
	fragCh := make(chan Fragment, 1)
	errCh := make(chan error, 1)
	fragCh <- Fragment{Text: m.reply}
	close(fragCh)
	close(errCh)
	return fragCh, errCh
}
