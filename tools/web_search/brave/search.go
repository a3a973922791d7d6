package brave

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/mohammad-safakhou/scout/tools/web_search/models"
	"github.com/mohammad-safakhou/scout/utils"
)

type Search struct {
	ApiKey string
}

func (s Search) do(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", s.ApiKey)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("brave API returned status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (s Search) Discover(ctx context.Context, q string, k int) ([]models.Result, error) {
	// https://api.search.brave.com/app/documentation/web-search
	url := fmt.Sprintf("https://api.search.brave.com/res/v1/web/search?q=%s&count=%d", utils.UrlQuery(q), k)
	var raw struct {
		Web struct {
			Results []struct {
				Title   string `json:"title"`
				URL     string `json:"url"`
				Snippet string `json:"description"`
			} `json:"results"`
		} `json:"web"`
	}
	if err := s.do(ctx, url, &raw); err != nil {
		return nil, err
	}
	var out []models.Result
	for i, r := range raw.Web.Results {
		if i >= k {
			break
		}
		out = append(out, models.Result{Title: r.Title, URL: r.URL, Snippet: r.Snippet})
	}
	return out, nil
}

func (s Search) News(ctx context.Context, q string, k int) ([]models.NewsResult, error) {
	url := fmt.Sprintf("https://api.search.brave.com/res/v1/news/search?q=%s&count=%d", utils.UrlQuery(q), k)
	var raw struct {
		Results []struct {
			Title   string `json:"title"`
			URL     string `json:"url"`
			Snippet string `json:"description"`
			Age     string `json:"age"`
			Meta    struct {
				Hostname string `json:"hostname"`
			} `json:"meta_url"`
		} `json:"results"`
	}
	if err := s.do(ctx, url, &raw); err != nil {
		return nil, err
	}
	var out []models.NewsResult
	for i, r := range raw.Results {
		if i >= k {
			break
		}
		out = append(out, models.NewsResult{Title: r.Title, URL: r.URL, Snippet: r.Snippet, Age: r.Age, Source: r.Meta.Hostname})
	}
	return out, nil
}

func (s Search) Images(ctx context.Context, q string, k int) ([]models.ImageResult, error) {
	url := fmt.Sprintf("https://api.search.brave.com/res/v1/images/search?q=%s&count=%d", utils.UrlQuery(q), k)
	var raw struct {
		Results []struct {
			Title      string `json:"title"`
			URL        string `json:"url"`
			Source     string `json:"source"`
			Properties struct {
				URL string `json:"url"`
			} `json:"properties"`
			Thumbnail struct {
				Src string `json:"src"`
			} `json:"thumbnail"`
		} `json:"results"`
	}
	if err := s.do(ctx, url, &raw); err != nil {
		return nil, err
	}
	var out []models.ImageResult
	for i, r := range raw.Results {
		if i >= k {
			break
		}
		out = append(out, models.ImageResult{
			Title:        r.Title,
			PageURL:      r.URL,
			ImageURL:     r.Properties.URL,
			ThumbnailURL: r.Thumbnail.Src,
			Source:       r.Source,
		})
	}
	return out, nil
}
