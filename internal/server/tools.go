package server

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/mohammad-safakhou/scout/internal/agent/core"
	"github.com/mohammad-safakhou/scout/tools/images"
	"github.com/mohammad-safakhou/scout/tools/planner"
	"github.com/mohammad-safakhou/scout/tools/web_fetch"
	"github.com/mohammad-safakhou/scout/tools/web_search"
	searchmodels "github.com/mohammad-safakhou/scout/tools/web_search/models"
)

const imageAcknowledgement = "Relevant images were downloaded and will be presented to the user alongside your answer. Do not describe or link the images; continue with the answer."

// toolDeps bundles the external services the tool closures capture.
type toolDeps struct {
	Searcher   web_search.WebSearcher
	Fetcher    web_fetch.WebFetcher
	Weather    planner.Weather
	Router     planner.Router
	Details    planner.Details
	Screens    images.Store
	MaxResults int
	Logger     *log.Logger
}

func newRegistry(logger *log.Logger, opts core.RegistryOptions, tools []core.Tool) (*core.Registry, error) {
	reg := core.NewRegistry(logger, opts)
	for _, t := range tools {
		if err := reg.Register(t); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// searchTools is the research agent's tool set. The image store is bound
// per request so downloads land in the run's own subdirectory.
func searchTools(deps toolDeps, imgStore images.Store) []core.Tool {
	tools := []core.Tool{
		webSearchTool(deps),
		{
			ToolSpec: core.ToolSpec{
				Name:        "search_and_scrape",
				Description: "Search the web and scrape the readable text of the top result pages. Use this when snippets are not enough and you need page content.",
				Args: map[string]core.ArgSpec{
					"query":       {Type: core.ArgString, Description: "Search query", Required: true},
					"max_results": {Type: core.ArgInt, Description: "How many pages to scrape", Default: 3},
				},
			},
			Run: func(ctx context.Context, args map[string]any) (any, error) {
				return searchAndScrape(ctx, deps, args["query"].(string), args["max_results"].(int))
			},
		},
		{
			ToolSpec: core.ToolSpec{
				Name:        "news_search",
				Description: "Search recent news articles. Returns title, source, age and a snippet per article.",
				Args: map[string]core.ArgSpec{
					"query":       {Type: core.ArgString, Description: "News topic", Required: true},
					"max_results": {Type: core.ArgInt, Description: "Maximum articles", Default: 5},
				},
			},
			Run: func(ctx context.Context, args map[string]any) (any, error) {
				results, err := deps.Searcher.News(ctx, args["query"].(string), args["max_results"].(int))
				if err != nil {
					return nil, err
				}
				return formatNews(results), nil
			},
		},
		{
			ToolSpec: core.ToolSpec{
				Name:        "find_interesting_links",
				Description: "Find pages worth reading on a topic. Returns a short annotated link list.",
				Args: map[string]core.ArgSpec{
					"query":       {Type: core.ArgString, Description: "Topic to find links for", Required: true},
					"max_results": {Type: core.ArgInt, Description: "Maximum links", Default: 5},
				},
			},
			Run: func(ctx context.Context, args map[string]any) (any, error) {
				links, err := findInterestingLinks(ctx, deps.Searcher, args["query"].(string), args["max_results"].(int))
				if err != nil {
					return nil, err
				}
				return formatLinks(links), nil
			},
		},
		{
			ToolSpec: core.ToolSpec{
				Name:        "image_search",
				Description: "Search for images matching a query and download them for the user. The images are shown automatically; never reference them in the answer text.",
				Args: map[string]core.ArgSpec{
					"query":       {Type: core.ArgString, Description: "What the images should show", Required: true},
					"max_results": {Type: core.ArgInt, Description: "Maximum images to download", Default: 3},
				},
			},
			Run: func(ctx context.Context, args map[string]any) (any, error) {
				return downloadImages(ctx, deps, imgStore, args["query"].(string), args["max_results"].(int))
			},
			Acknowledgement: imageAcknowledgement,
		},
	}

	if deps.Fetcher != nil {
		tools = append(tools, core.Tool{
			ToolSpec: core.ToolSpec{
				Name:        "take_screenshot",
				Description: "Render a web page and save a full-page screenshot for later layout inspiration.",
				Args: map[string]core.ArgSpec{
					"url": {Type: core.ArgString, Description: "Page URL", Required: true},
				},
			},
			Run: func(ctx context.Context, args map[string]any) (any, error) {
				name := fmt.Sprintf("shot_%s.png", uuid.NewString()[:8])
				if err := deps.Fetcher.Screenshot(ctx, args["url"].(string), deps.Screens.Path(name)); err != nil {
					return nil, err
				}
				return fmt.Sprintf("Screenshot saved as %s", name), nil
			},
		})
	}
	return tools
}

// plannerTools is the planner agent's fixed tool set.
func plannerTools(deps toolDeps) []core.Tool {
	return []core.Tool{
		{
			ToolSpec: core.ToolSpec{
				Name:        "get_weather_forecast_daily",
				Description: "Get a daily weather forecast for a city: temperature range, conditions and wind per day. Supports up to 5 days ahead.",
				Args: map[string]core.ArgSpec{
					"location": {Type: core.ArgString, Description: "City name, optionally with country (e.g. 'Paris, FR')", Required: true},
					"days":     {Type: core.ArgInt, Description: "Days ahead to forecast (1-5)", Default: 3},
				},
			},
			Run: func(ctx context.Context, args map[string]any) (any, error) {
				return deps.Weather.Forecast(ctx, args["location"].(string), args["days"].(int))
			},
		},
		{
			ToolSpec: core.ToolSpec{
				Name:        "plan_route",
				Description: "Compare car, cycling and walking routes between consecutive locations and recommend the fastest mode per segment. Pass at least two locations separated by semicolons.",
				Args: map[string]core.ArgSpec{
					"locations": {Type: core.ArgString, Description: "Semicolon-separated locations in visiting order (e.g. 'Louvre, Paris; Eiffel Tower, Paris')", Required: true},
				},
			},
			Run: func(ctx context.Context, args map[string]any) (any, error) {
				var locations []string
				for _, part := range strings.Split(args["locations"].(string), ";") {
					if p := strings.TrimSpace(part); p != "" {
						locations = append(locations, p)
					}
				}
				return deps.Router.PlanRoute(ctx, locations)
			},
		},
		{
			ToolSpec: core.ToolSpec{
				Name:        "add_calendar_event",
				Description: "Prepare a Google Calendar link for an event so the user can add it with one click. Datetimes must be ISO format, e.g. '2025-07-01 14:00:00'.",
				Args: map[string]core.ArgSpec{
					"summary":        {Type: core.ArgString, Description: "Event title", Required: true},
					"start_datetime": {Type: core.ArgString, Description: "Event start (ISO)", Required: true},
					"end_datetime":   {Type: core.ArgString, Description: "Event end (ISO); defaults to one hour after start"},
					"location":       {Type: core.ArgString, Description: "Event location"},
					"description":    {Type: core.ArgString, Description: "Event description"},
				},
			},
			Run: func(ctx context.Context, args map[string]any) (any, error) {
				return planner.CalendarLink(
					args["summary"].(string),
					strArg(args, "start_datetime"),
					strArg(args, "end_datetime"),
					strArg(args, "location"),
					strArg(args, "description"),
				)
			},
		},
		{
			ToolSpec: core.ToolSpec{
				Name:        "get_operational_details",
				Description: "Look up opening hours and address for a named place. Results come from a general search and must be verified by the user.",
				Args: map[string]core.ArgSpec{
					"place_name": {Type: core.ArgString, Description: "Name of the place", Required: true},
					"location":   {Type: core.ArgString, Description: "City or area of the place", Required: true},
				},
			},
			Run: func(ctx context.Context, args map[string]any) (any, error) {
				return deps.Details.Lookup(ctx, args["place_name"].(string), args["location"].(string))
			},
		},
		webSearchTool(deps),
	}
}

func webSearchTool(deps toolDeps) core.Tool {
	return core.Tool{
		ToolSpec: core.ToolSpec{
			Name:        "web_search",
			Description: "Search the web. Returns title, URL and snippet per result.",
			Args: map[string]core.ArgSpec{
				"query":       {Type: core.ArgString, Description: "Search query", Required: true},
				"max_results": {Type: core.ArgInt, Description: "Maximum results", Default: 5},
			},
		},
		Run: func(ctx context.Context, args map[string]any) (any, error) {
			results, err := deps.Searcher.Discover(ctx, args["query"].(string), args["max_results"].(int))
			if err != nil {
				return nil, err
			}
			return formatResults(results), nil
		},
	}
}

func strArg(args map[string]any, name string) string {
	if v, ok := args[name].(string); ok {
		return v
	}
	return ""
}

// searchAndScrape searches, then fetches the hit pages concurrently and
// concatenates their readable text.
func searchAndScrape(ctx context.Context, deps toolDeps, query string, k int) (string, error) {
	hits, err := deps.Searcher.Discover(ctx, query, k)
	if err != nil {
		return "", err
	}
	if len(hits) == 0 {
		return "No results found for " + query, nil
	}
	if deps.Fetcher == nil {
		return formatResults(hits), nil
	}

	// Each goroutine writes its own slice slot.
	sections := make([]string, len(hits))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(3)
	for i, hit := range hits {
		i, hit := i, hit
		g.Go(func() error {
			page, err := deps.Fetcher.Exec(gctx, hit.URL)
			section := fmt.Sprintf("Source: %s\nTitle: %s\n", hit.URL, hit.Title)
			if err != nil || strings.TrimSpace(page.Text) == "" {
				section += "Content could not be extracted; snippet: " + hit.Snippet
				if err != nil {
					deps.Logger.Printf("scrape %s: %v", hit.URL, err)
				}
			} else {
				section += page.Text
			}
			sections[i] = section
			return nil
		})
	}
	_ = g.Wait()
	return strings.Join(sections, "\n\n---\n\n"), nil
}

// downloadImages runs an image search and pulls the results into the run's
// image directory. Individual failed downloads are skipped.
func downloadImages(ctx context.Context, deps toolDeps, store images.Store, query string, k int) (string, error) {
	results, err := deps.Searcher.Images(ctx, query, k)
	if err != nil {
		return "", err
	}
	saved := 0
	for i, r := range results {
		if _, err := store.Download(ctx, r.ImageURL, query, i); err != nil {
			deps.Logger.Printf("image download %s: %v", r.ImageURL, err)
			continue
		}
		saved++
	}
	if saved == 0 {
		return "", fmt.Errorf("no images could be downloaded for %q", query)
	}
	return fmt.Sprintf("Downloaded %d image(s).", saved), nil
}

func findInterestingLinks(ctx context.Context, searcher web_search.WebSearcher, query string, k int) ([]searchmodels.Result, error) {
	return searcher.Discover(ctx, query, k)
}

func formatResults(results []searchmodels.Result) string {
	if len(results) == 0 {
		return "No results found."
	}
	var sb strings.Builder
	for i, r := range results {
		fmt.Fprintf(&sb, "%d. %s\n   %s\n   %s\n", i+1, r.Title, r.URL, r.Snippet)
	}
	return sb.String()
}

func formatNews(results []searchmodels.NewsResult) string {
	if len(results) == 0 {
		return "No news found."
	}
	var sb strings.Builder
	for i, r := range results {
		fmt.Fprintf(&sb, "%d. %s (%s, %s)\n   %s\n   %s\n", i+1, r.Title, r.Source, r.Age, r.URL, r.Snippet)
	}
	return sb.String()
}

func formatLinks(results []searchmodels.Result) string {
	if len(results) == 0 {
		return "No links found."
	}
	var sb strings.Builder
	for _, r := range results {
		fmt.Fprintf(&sb, "- %s: %s\n", r.Title, r.URL)
	}
	return sb.String()
}
