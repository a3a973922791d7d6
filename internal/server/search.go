package server

import (
	"log"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/scout/config"
	"github.com/mohammad-safakhou/scout/internal/agent/core"
	"github.com/mohammad-safakhou/scout/internal/agent/telemetry"
	"github.com/mohammad-safakhou/scout/tools/images"
)

// chatTurn is one prior turn sent by the client.
type chatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type searchRequest struct {
	Query       string     `json:"query"`
	ChatHistory []chatTurn `json:"chat_history"`
	UseLayout   *bool      `json:"use_layout,omitempty"`
}

// SearchHandler streams research-agent answers. Each request gets its own
// agent bound to a fresh image subdirectory so concurrent runs cannot see
// each other's downloads.
type SearchHandler struct {
	LLM    core.ModelClient
	Layout *core.Layout
	Cfg    *config.Config
	Deps   toolDeps
	Tele   *telemetry.Telemetry
	Logger *log.Logger
}

func (h *SearchHandler) Register(g *echo.Group) {
	g.POST("/search", h.search)
}

func (h *SearchHandler) search(c echo.Context) error {
	var req searchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Query) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query is required")
	}

	ctx := c.Request().Context()
	requestID := uuid.NewString()
	imgStore := images.Store{Dir: filepath.Join(h.Cfg.Storage.ImagesDir, requestID)}

	reg, err := newRegistry(h.Logger, core.RegistryOptions{
		ToolTimeout:   h.Cfg.Agent.ToolTimeout,
		Truncate:      h.Cfg.Agent.TruncateResults,
		TruncateLimit: h.Cfg.Agent.TruncateLimit,
	}, searchTools(h.Deps, imgStore))
	if err != nil {
		return err
	}
	agent, err := core.NewAgent(h.LLM, reg, h.Logger, h.Tele, core.Options{
		Model:              h.Cfg.LLM.Routing.Search,
		MaxIterations:      h.Cfg.Agent.MaxIterations,
		MaxConcurrentTools: h.Cfg.Agent.MaxConcurrentTools,
	})
	if err != nil {
		return err
	}

	before, err := imgStore.Snapshot()
	if err != nil {
		return err
	}

	history := core.SearchSystemMessages(time.Now())
	history = append(history, historyMessages(req.ChatHistory)...)

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/plain; charset=utf-8")
	res.WriteHeader(http.StatusOK)

	var answer strings.Builder
	stream, runRes := agent.Run(ctx, req.Query, history)
	for chunk := range stream {
		answer.WriteString(chunk)
		if _, err := res.Write([]byte(chunk)); err != nil {
			return nil
		}
		res.Flush()
	}
	h.Logger.Printf("run %s finished: %s after %d iteration(s)", runRes.ID, runRes.State, runRes.Iterations)

	if h.layoutWanted(req) {
		h.streamLayout(c, imgStore, before, answer.String())
	}
	return nil
}

func (h *SearchHandler) layoutWanted(req searchRequest) bool {
	if req.UseLayout != nil {
		return *req.UseLayout && h.Layout != nil
	}
	return h.Cfg.Agent.LayoutEnabled && h.Layout != nil
}

// streamLayout appends the HTML rendition of the answer, delimited so the
// client can split it off the plain-text stream. New images since the
// pre-run snapshot become the content images.
func (h *SearchHandler) streamLayout(c echo.Context, imgStore images.Store, before map[string]struct{}, answer string) {
	contentImages, err := imgStore.NewSince(before)
	if err != nil {
		h.Logger.Printf("collecting run images: %v", err)
	}
	inspiration, err := h.Deps.Screens.List()
	if err != nil {
		h.Logger.Printf("listing screenshots: %v", err)
	}
	inspirationPaths := make([]string, 0, len(inspiration))
	for _, name := range inspiration {
		inspirationPaths = append(inspirationPaths, h.Deps.Screens.Path(name))
	}

	res := c.Response()
	if _, err := res.Write([]byte("<html_token>")); err != nil {
		return
	}
	res.Flush()
	for chunk := range h.Layout.Render(c.Request().Context(), answer, contentImages, inspirationPaths) {
		if _, err := res.Write([]byte(chunk)); err != nil {
			return
		}
		res.Flush()
	}
	if _, err := res.Write([]byte("</html_token>")); err != nil {
		return
	}
	res.Flush()
}

// historyMessages maps client chat turns onto conversation messages.
// Unknown roles are skipped.
func historyMessages(turns []chatTurn) []core.Message {
	out := make([]core.Message, 0, len(turns))
	for _, t := range turns {
		switch strings.ToLower(t.Role) {
		case "user", "human":
			out = append(out, core.HumanMessage(t.Content))
		case "assistant", "ai":
			out = append(out, core.Message{Role: core.RoleAI, Content: t.Content})
		}
	}
	return out
}
