package web_search

import (
	"context"
	"errors"

	"github.com/mohammad-safakhou/scout/tools/web_search/brave"
	"github.com/mohammad-safakhou/scout/tools/web_search/models"
)

// WebSearcher covers the three remote search surfaces the assistant uses.
type WebSearcher interface {
	Discover(ctx context.Context, q string, k int) ([]models.Result, error)
	News(ctx context.Context, q string, k int) ([]models.NewsResult, error)
	Images(ctx context.Context, q string, k int) ([]models.ImageResult, error)
}

type Provider string

const (
	BraveProvider Provider = "brave"
)

var ErrUnsupportedProvider = errors.New("unsupported provider")

func NewWebSearcher(provider Provider, apiKey string) (WebSearcher, error) {
	switch provider {
	case BraveProvider:
		return brave.Search{ApiKey: apiKey}, nil
	default:
		return nil, ErrUnsupportedProvider
	}
}
