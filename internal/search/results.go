/*
Package search runs the personalized search pipeline.

A query is expanded, sent to the web search provider and the results are
reranked against the user's profile. Provider results are also written to a
local bleve index that answers queries when the provider is unavailable.
*/
package search

// Result is a single web search hit.
type Result struct {
	Title   string  `json:"title"`
	Link    string  `json:"link"`
	Snippet string  `json:"snippet"`
	Score   float64 `json:"score,omitempty"`
}

// Response is the outcome of one search request.
type Response struct {
	QueryID       string   `json:"query_id"`
	Query         string   `json:"query"`
	ExpandedQuery string   `json:"expanded_query"`
	Source        string   `json:"source"`
	Results       []Result `json:"results"`
}

// Result sources.
const (
	SourceProvider = "provider"
	SourceLocal    = "local"
	SourceNone     = "none"
)
