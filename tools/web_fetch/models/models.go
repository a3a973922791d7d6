package models

// Result is the readable extraction of one fetched page.
type Result struct {
	URL      string `json:"url"`
	Title    string `json:"title"`
	Byline   string `json:"byline"`
	SiteName string `json:"site_name"`
	Text     string `json:"text"`
	TopImage string `json:"top_image"`
	Status   int    `json:"status"`
	RenderMS int    `json:"render_ms"`
}
