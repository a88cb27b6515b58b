package db

// TextQuery is the input for a ranked full-text search returning keys only.
type TextQuery struct {
	IndexName string
	// Query is free text; any term may match, better matches rank first.
	Query  string
	Offset int
	Limit  int
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total int
	Keys  []string
}
