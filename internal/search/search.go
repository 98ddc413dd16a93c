// Package search indexes public documents and answers text queries, via
// Meilisearch when it is reachable and PostgreSQL full-text search when not.
package search

// Query is a document search request. Filters are ANDed; empty filters
// match everything.
type Query struct {
	Text         string
	GameSystemID string
	DocumentType string
	Limit        int
	Offset       int
}

// Result is one search hit.
type Result struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	DocumentType string  `json:"type"`
	GameSystemID string  `json:"gameSystemId"`
	Snippet      string  `json:"snippet"`
	Rank         float64 `json:"rank"`
}

// Response wraps hits with the total estimate.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// DocumentRecord is the indexed shape of a document. Only public fields go
// in; payloads are flattened to text before indexing.
type DocumentRecord struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	DocumentType string `json:"type"`
	GameSystemID string `json:"gameSystemId"`
	Body         string `json:"body"`
}

func nonNil(results []Result) []Result {
	if results == nil {
		return []Result{}
	}
	return results
}
