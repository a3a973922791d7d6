package models

// Result is one web search hit.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"description"`
}

// NewsResult is one news search hit.
type NewsResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"description"`
	Age     string `json:"age,omitempty"`
	Source  string `json:"source,omitempty"`
}

// ImageResult is one image search hit.
type ImageResult struct {
	Title        string `json:"title"`
	PageURL      string `json:"page_url"`
	ImageURL     string `json:"image_url"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	Source       string `json:"source,omitempty"`
}
