// Transport types for search and retrieval
package models

// SearchFilters narrows a retrieval query.
type SearchFilters struct {
	ChannelIDs []int64 `json:"channel_ids,omitempty"`
	UserIDs    []int64 `json:"user_ids,omitempty"`
}

// SearchResult is one scored hit from the retriever, relevance-sorted
// descending by Score.
type SearchResult struct {
	ID       string   `json:"id"`
	Score    float64  `json:"score"`
	Content  string   `json:"content"`
	Metadata Metadata `json:"metadata,omitempty"`
}

// SearchResponse is the body returned by GET /api/search.
type SearchResponse struct {
	Results []SearchResult `json:"results"`
	Total   int            `json:"total"`
}
