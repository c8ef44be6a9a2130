package domain

import "time"

// Article is a research article resolved from an upstream provider (arXiv, HAL).
type Article struct {
	ID          string
	Title       string
	Abstract    string
	FullText    string
	Authors     []string
	URL         string
	PDFURL      string
	Source      string
	PublishedAt time.Time
}

// Document converts the article into the summarization input.
func (a Article) Document() Document {
	return Document{
		Title:    a.Title,
		Abstract: a.Abstract,
		FullText: a.FullText,
	}
}

// Key identifies the article across sources, e.g. "arxiv:2401.00001".
func (a Article) Key() string {
	return a.Source + ":" + a.ID
}

// FormatAuthors renders a short author line: "A", "A and B" or "A et al.".
func FormatAuthors(authors []string) string {
	switch len(authors) {
	case 0:
		return ""
	case 1:
		return authors[0]
	case 2:
		return authors[0] + " and " + authors[1]
	default:
		return authors[0] + " et al."
	}
}

// ProcessingStatus enumerates watch pipeline milestones.
type ProcessingStatus string

const (
	StatusFetched    ProcessingStatus = "fetched"
	StatusSummarized ProcessingStatus = "summarized"
	StatusDelivered  ProcessingStatus = "delivered"
)

var statusOrder = []ProcessingStatus{StatusFetched, StatusSummarized, StatusDelivered}

// AndLater returns s followed by every milestone that comes after it.
// Unknown statuses match only themselves.
func (s ProcessingStatus) AndLater() []ProcessingStatus {
	for i, st := range statusOrder {
		if st == s {
			return append([]ProcessingStatus(nil), statusOrder[i:]...)
		}
	}
	return []ProcessingStatus{s}
}

// ProcessedArticle is persisted to Postgres for deduplication and vector search.
type ProcessedArticle struct {
	Article   Article
	Summary   SummaryResult
	Embedding []float32
	Status    ProcessingStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// StoredMatch is a persisted summary returned by similarity search.
type StoredMatch struct {
	ArticleID   string    `json:"article_id"`
	Source      string    `json:"source"`
	Title       string    `json:"title"`
	Summary     string    `json:"summary"`
	KeyConcepts []string  `json:"key_concepts"`
	Distance    float64   `json:"distance"`
	CreatedAt   time.Time `json:"timestamp"`
}
