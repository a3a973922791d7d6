package server

import (
	"log"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/scout/tools/web_search"
)

type researchRequest struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
}

// ResearchHandler serves the synchronous single-shot lookups that bypass
// the agent loop entirely: news and link discovery.
type ResearchHandler struct {
	Searcher   web_search.WebSearcher
	MaxResults int
	Logger     *log.Logger
}

func (h *ResearchHandler) Register(g *echo.Group) {
	g.POST("/news", h.news)
	g.POST("/links", h.links)
}

func (h *ResearchHandler) parse(c echo.Context) (researchRequest, error) {
	var req researchRequest
	if err := c.Bind(&req); err != nil {
		return req, echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Query) == "" {
		return req, echo.NewHTTPError(http.StatusBadRequest, "query is required")
	}
	if req.MaxResults <= 0 {
		req.MaxResults = h.MaxResults
	}
	return req, nil
}

func (h *ResearchHandler) news(c echo.Context) error {
	req, err := h.parse(c)
	if err != nil {
		return err
	}
	results, err := h.Searcher.News(c.Request().Context(), req.Query, req.MaxResults)
	if err != nil {
		h.Logger.Printf("news search %q: %v", req.Query, err)
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]any{"news": results})
}

func (h *ResearchHandler) links(c echo.Context) error {
	req, err := h.parse(c)
	if err != nil {
		return err
	}
	results, err := findInterestingLinks(c.Request().Context(), h.Searcher, req.Query, req.MaxResults)
	if err != nil {
		h.Logger.Printf("link search %q: %v", req.Query, err)
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]any{"links": results})
}
