package planner

import (
	"context"
	"fmt"
	"strings"

	"github.com/mohammad-safakhou/scout/tools/web_search"
)

// Details looks up operational information (address, opening hours) for a
// named place. There is no dedicated places API; a web search serves as the
// fallback and the answer always asks the user to verify.
type Details struct {
	Searcher web_search.WebSearcher
}

func (d Details) Lookup(ctx context.Context, placeName, location string) (string, error) {
	if d.Searcher != nil {
		query := fmt.Sprintf("opening hours and address for %s in %s", placeName, location)
		results, err := d.Searcher.Discover(ctx, query, 1)
		if err == nil && len(results) > 0 {
			var sb strings.Builder
			fmt.Fprintf(&sb, "Found potential details via web search for '%s in %s' (please verify, this comes from a general search):\n", placeName, location)
			for _, r := range results {
				fmt.Fprintf(&sb, "- %s\n  %s\n  %s\n", r.Title, r.URL, r.Snippet)
			}
			return sb.String(), nil
		}
	}
	return fmt.Sprintf("Specific operational details (hours, address) for '%s' in '%s' could not be reliably fetched. "+
		"Assume standard business hours (e.g. 9 AM - 5 PM weekdays) and verify externally. [User verification required]",
		placeName, location), nil
}
