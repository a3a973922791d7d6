package core

import "strings"

const (
	thinkOpen  = "<think>"
	thinkClose = "</think>"
)

// ThinkFilter strips a leading <think>...</think> block from a text stream.
// Only the very start of the stream (ignoring leading whitespace) is ever
// inspected; a <think> appearing later passes through untouched. The result
// is independent of how the stream is split into chunks.
type ThinkFilter struct {
	checking bool
	inThink  bool
	buf      strings.Builder
}

func NewThinkFilter() *ThinkFilter {
	return &ThinkFilter{checking: true}
}

// Feed consumes one incoming chunk and returns whatever text may be emitted
// downstream at this point (possibly empty).
func (f *ThinkFilter) Feed(chunk string) string {
	if !f.checking {
		return chunk
	}
	f.buf.WriteString(chunk)
	buffered := f.buf.String()

	if f.inThink {
		return f.drainAfterClose(buffered)
	}

	trimmed := strings.TrimLeft(buffered, " \t\r\n")
	switch {
	case strings.HasPrefix(trimmed, thinkOpen):
		f.inThink = true
		return f.drainAfterClose(buffered)
	case strings.HasPrefix(thinkOpen, trimmed):
		// Could still turn into an opening tag; keep buffering.
		return ""
	default:
		f.checking = false
		f.buf.Reset()
		return buffered
	}
}

// Flush ends the stream. An unterminated leading think block is discarded;
// anything still pending an open-tag decision is emitted as-is.
func (f *ThinkFilter) Flush() string {
	if !f.checking || f.inThink {
		return ""
	}
	f.checking = false
	out := f.buf.String()
	f.buf.Reset()
	return out
}

func (f *ThinkFilter) drainAfterClose(buffered string) string {
	idx := strings.Index(buffered, thinkClose)
	if idx < 0 {
		return ""
	}
	after := buffered[idx+len(thinkClose):]
	f.checking = false
	f.inThink = false
	f.buf.Reset()
	if strings.TrimSpace(after) == "" {
		return ""
	}
	return after
}
