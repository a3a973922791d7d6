package server

import (
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mohammad-safakhou/scout/config"
	"github.com/mohammad-safakhou/scout/internal/agent/core"
	"github.com/mohammad-safakhou/scout/internal/agent/telemetry"
	"github.com/mohammad-safakhou/scout/internal/store"
	"github.com/mohammad-safakhou/scout/tools/images"
	"github.com/mohammad-safakhou/scout/tools/planner"
	"github.com/mohammad-safakhou/scout/tools/web_fetch"
	"github.com/mohammad-safakhou/scout/tools/web_search"
)

// Run wires the whole application together and serves until the listener
// fails.
func Run(cfg *config.Config) error {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = errorHandler(baseLogger)
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Cookie"},
		AllowCredentials: true,
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	var tele *telemetry.Telemetry
	if cfg.Telemetry.Enabled {
		tele = telemetry.New(prometheus.DefaultRegisterer)
		e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	}

	llm, err := core.NewOpenAIClient(cfg.LLM, log.New(log.Writer(), "[LLM] ", log.LstdFlags))
	if err != nil {
		return err
	}

	searcher, err := web_search.NewWebSearcher(web_search.Provider(cfg.Tools.WebSearch.Provider), cfg.Tools.WebSearch.APIKey)
	if err != nil {
		return fmt.Errorf("web search provider: %w", err)
	}
	fetcher, err := web_fetch.NewWebFetcher(web_fetch.ChromedpFetcherType, cfg.Tools.WebFetch.Timeout, cfg.Tools.WebFetch.MaxChars)
	if err != nil {
		return fmt.Errorf("web fetcher: %w", err)
	}

	weather := planner.Weather{ApiKey: cfg.Tools.Weather.APIKey}
	deps := toolDeps{
		Searcher:   searcher,
		Fetcher:    fetcher,
		Weather:    weather,
		Router:     planner.Router{ApiKey: cfg.Tools.Routing.APIKey, Weather: weather},
		Details:    planner.Details{Searcher: searcher},
		Screens:    images.Store{Dir: cfg.Storage.ScreenshotsDir},
		MaxResults: cfg.Tools.WebSearch.MaxResults,
		Logger:     log.New(log.Writer(), "[TOOLS] ", log.LstdFlags),
	}

	plannerLogger := log.New(log.Writer(), "[PLANNER] ", log.LstdFlags)
	plannerReg, err := newRegistry(plannerLogger, core.RegistryOptions{
		ToolTimeout:   cfg.Agent.ToolTimeout,
		Truncate:      cfg.Agent.TruncateResults,
		TruncateLimit: cfg.Agent.TruncateLimit,
	}, plannerTools(deps))
	if err != nil {
		return err
	}
	plannerAgent, err := core.NewPlanner(llm, plannerReg, plannerLogger, tele, core.Options{
		Model:              cfg.LLM.Routing.Planner,
		MaxIterations:      cfg.Agent.MaxIterations,
		MaxConcurrentTools: cfg.Agent.MaxConcurrentTools,
	}, cfg.LLM.Routing.Guidance)
	if err != nil {
		return err
	}

	convStore, err := store.NewConversationStore(cfg.Storage.ConversationsFile)
	if err != nil {
		return err
	}

	// Run subdirectories from previous sessions pile up; start clean when
	// configured to.
	if cfg.Agent.ClearImagesDir {
		if err := os.RemoveAll(cfg.Storage.ImagesDir); err != nil {
			baseLogger.Printf("clearing images dir: %v", err)
		}
	}
	if err := os.MkdirAll(cfg.Storage.ImagesDir, 0o755); err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.Storage.ScreenshotsDir, 0o755); err != nil {
		return err
	}

	root := e.Group("")
	sh := &SearchHandler{
		LLM:    llm,
		Layout: core.NewLayout(llm, cfg.LLM.Routing.Layout, log.New(log.Writer(), "[LAYOUT] ", log.LstdFlags)),
		Cfg:    cfg,
		Deps:   deps,
		Tele:   tele,
		Logger: log.New(log.Writer(), "[AGENT] ", log.LstdFlags),
	}
	sh.Register(root)
	(&PlanHandler{Planner: plannerAgent, Logger: plannerLogger}).Register(root)
	(&ResearchHandler{Searcher: searcher, MaxResults: cfg.Tools.WebSearch.MaxResults, Logger: deps.Logger}).Register(root)
	(&ImagesHandler{Store: images.Store{Dir: cfg.Storage.ImagesDir}}).Register(root)
	(&ConversationsHandler{Store: convStore}).Register(root)

	baseLogger.Printf("listening on %s", cfg.Server.Address)
	return e.Start(cfg.Server.Address)
}

// errorHandler logs every failed request and answers with a uniform JSON
// error body.
func errorHandler(logger *log.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		logger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]any{"error": msg})
		}
	}
}
