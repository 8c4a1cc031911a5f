// Package validator checks ingestion requests and reports per-field
// failures.
package validator

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/ingestion"
)

const (
	maxTitleLength   = 1024
	maxContentLength = 1048576
	maxURLLength     = 2048
)

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	var parts []string
	for field, msg := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s:%s", field, msg))
	}
	return strings.Join(parts, "; ")
}

// ValidateIngestRequest requires a URL and at least one of title or
// content, and bounds their lengths.
func ValidateIngestRequest(req *ingestion.IngestRequest) error {
	errs := make(map[string]string)

	title := strings.TrimSpace(req.Title)
	content := strings.TrimSpace(req.Content)
	if title == "" && content == "" {
		errs["content"] = "title or content is required"
	}
	if len(title) > maxTitleLength {
		errs["title"] = fmt.Sprintf("title must be at most %d characters", maxTitleLength)
	}
	if len(content) > maxContentLength {
		errs["content"] = fmt.Sprintf("content must be at most %d characters", maxContentLength)
	}

	switch u := strings.TrimSpace(req.URL); {
	case u == "":
		errs["url"] = "url is required"
	case len(u) > maxURLLength:
		errs["url"] = fmt.Sprintf("url must be at most %d characters", maxURLLength)
	default:
		if parsed, err := url.Parse(u); err != nil || parsed.Scheme == "" || parsed.Host == "" {
			errs["url"] = "url must be absolute"
		}
	}

	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
