package core

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

const layoutSystemPrompt = `You are a layout assistant. You receive the finished answer of a research assistant, possibly together with downloaded content images and screenshots of layout inspiration. Re-render the answer as clean, semantic HTML:
- Use headings, paragraphs, lists and tables where the content calls for them.
- Reference the provided content images with <img> tags using their file names.
- Follow the visual structure of the inspiration screenshots when given, but never copy their text.
- Output HTML only. Never include <style> or <script> blocks, inline styles, or markdown.`

// Layout is the single-shot presentation pass: one model call, no tools,
// streaming HTML out.
type Layout struct {
	llm    ModelClient
	logger *log.Logger
	model  string
}

func NewLayout(llm ModelClient, model string, logger *log.Logger) *Layout {
	if logger == nil {
		logger = log.New(log.Writer(), "[LAYOUT] ", log.LstdFlags)
	}
	return &Layout{llm: llm, logger: logger, model: model}
}

// Render streams the HTML rendition of raw. contentImages and inspiration
// are file paths; unreadable files are skipped with a log line. A failure
// mid-stream yields a single inline error marker and ends the stream.
func (l *Layout) Render(ctx context.Context, raw string, contentImages, inspiration []string) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)

		var sb strings.Builder
		sb.WriteString("Re-render the following assistant answer as HTML.\n\n")
		sb.WriteString("ANSWER:\n")
		sb.WriteString(raw)
		if len(contentImages) > 0 {
			sb.WriteString("\n\nCONTENT IMAGES (embed these by file name):")
			for _, p := range contentImages {
				sb.WriteString("\n- " + filepath.Base(p))
			}
		}
		if len(inspiration) > 0 {
			sb.WriteString("\n\nThe remaining images are layout inspiration screenshots; imitate their structure only.")
		}

		human := HumanMessage(sb.String())
		human.Images = encodeImages(append(append([]string{}, contentImages...), inspiration...), l.logger)

		messages := []Message{SystemMessage(layoutSystemPrompt), human}
		fragCh, errCh := l.llm.Stream(ctx, l.model, messages, nil)
		for f := range fragCh {
			if f.Text == "" {
				continue
			}
			select {
			case out <- f.Text:
			case <-ctx.Done():
				return
			}
		}
		if err := <-errCh; err != nil {
			l.logger.Printf("layout stream failed: %v", err)
			select {
			case out <- fmt.Sprintf("[Error: %v]", err):
			case <-ctx.Done():
			}
		}
	}()
	return out
}

// encodeImages turns image files into data URLs, skipping anything that
// cannot be read or is not a known image type.
func encodeImages(paths []string, logger *log.Logger) []string {
	var out []string
	for _, p := range paths {
		mime := imageMIME(p)
		if mime == "" {
			continue
		}
		data, err := os.ReadFile(p)
		if err != nil {
			logger.Printf("skipping image %s: %v", p, err)
			continue
		}
		out = append(out, fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(data)))
	}
	return out
}

func imageMIME(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return ""
	}
}
