package index

// Document is one indexed page. ID is its dense position in the forward
// index.
type Document struct {
	ID      int64  `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
	URL     string `json:"url"`
}

// Posting records one term occurring in one document. Title and content
// occurrences are already folded into Weight.
type Posting struct {
	Term   string `json:"term"`
	DocID  int64  `json:"doc_id"`
	Weight int    `json:"weight"`
	URL    string `json:"url"`
}

// PostingList is kept in document processing order.
type PostingList []Posting

type TermEntry struct {
	Term     string
	Postings PostingList
}

const (
	TitleWeight   = 10
	ContentWeight = 1

	// MaxTermLength is the widest term the store's term column accepts.
	MaxTermLength = 255

	// PersistBatchSize caps the postings written by one store call.
	PersistBatchSize = 100
)
