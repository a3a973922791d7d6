package web_fetch

import (
	"context"
	"errors"
	"time"

	"github.com/mohammad-safakhou/scout/tools/web_fetch/chromedp"
	"github.com/mohammad-safakhou/scout/tools/web_fetch/models"
)

const (
	DefaultTimeout  = 15 * time.Second
	MaxCharsDefault = 4000
)

// WebFetcher renders a page and extracts its readable article text.
type WebFetcher interface {
	Exec(ctx context.Context, url string) (models.Result, error)
	Screenshot(ctx context.Context, url, outPath string) error
}

type FetcherType string

const (
	ChromedpFetcherType FetcherType = "chromedp"
)

var ErrUnsupportedFetcher = errors.New("unsupported fetcher type")

func NewWebFetcher(fetcherType FetcherType, timeout time.Duration, maxChars int) (WebFetcher, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if maxChars <= 0 {
		maxChars = MaxCharsDefault
	}

	switch fetcherType {
	case ChromedpFetcherType:
		return &chromedp.Fetch{Timeout: timeout, MaxChars: maxChars}, nil
	default:
		return nil, ErrUnsupportedFetcher
	}
}
