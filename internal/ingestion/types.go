// Package ingestion defines the request and response types for adding
// crawled documents to the source table that index builds read from.
package ingestion

// IngestRequest is one document as accepted over HTTP or in an import file.
type IngestRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	URL     string `json:"url"`
}

// IngestResponse is returned once documents are stored. They become
// searchable after the next index reload.
type IngestResponse struct {
	Accepted int    `json:"accepted"`
	Status   string `json:"status"`
}
