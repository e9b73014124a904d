package search

import (
	"context"
	"fmt"

	"github.com/blevesearch/bleve/v2"
)

// Search runs a BM25 match query over title and snippet.
func (i *LocalIndex) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	if limit <= 0 {
		limit = 10
	}

	req := bleve.NewSearchRequestOptions(bleve.NewMatchQuery(query), limit, 0, false)
	req.Fields = []string{"title", "snippet", "link"}

	res, err := i.bleveIndex.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("bleve search failed: %w", err)
	}
	return convertBleveResults(res), nil
}

// convertBleveResults maps hits back to results, best first.
func convertBleveResults(res *bleve.SearchResult) []Result {
	out := make([]Result, 0, len(res.Hits))
	for _, hit := range res.Hits {
		title, _ := hit.Fields["title"].(string)
		snippet, _ := hit.Fields["snippet"].(string)
		link, _ := hit.Fields["link"].(string)
		if link == "" {
			link = hit.ID
		}
		out = append(out, Result{Title: title, Link: link, Snippet: snippet})
	}
	return out
}
