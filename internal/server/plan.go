package server

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/scout/internal/agent/core"
)

type planRequest struct {
	Query       string     `json:"query"`
	ChatHistory []chatTurn `json:"chat_history"`
}

// PlanHandler streams planner-agent answers. Reasoning models may open with
// a <think> block; the filter strips it before anything reaches the client.
type PlanHandler struct {
	Planner *core.Planner
	Logger  *log.Logger
}

func (h *PlanHandler) Register(g *echo.Group) {
	g.POST("/plan", h.plan)
}

func (h *PlanHandler) plan(c echo.Context) error {
	var req planRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Query) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query is required")
	}

	history := core.PlannerSystemMessages(time.Now())
	history = append(history, historyMessages(req.ChatHistory)...)

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/plain; charset=utf-8")
	res.WriteHeader(http.StatusOK)

	filter := core.NewThinkFilter()
	stream, _ := h.Planner.Run(c.Request().Context(), req.Query, history)
	for chunk := range stream {
		if out := filter.Feed(chunk); out != "" {
			if _, err := res.Write([]byte(out)); err != nil {
				return nil
			}
			res.Flush()
		}
	}
	if out := filter.Flush(); out != "" {
		if _, err := res.Write([]byte(out)); err != nil {
			return nil
		}
		res.Flush()
	}
	return nil
}
