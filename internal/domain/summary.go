package domain

// Document is the pipeline input. Abstract is mandatory, the rest is optional.
type Document struct {
	Title    string
	Abstract string
	FullText string
}

// Chunk is a bounded slice of the prepared text.
//
// Content starts with OverlapLen runes borrowed from the previous chunk;
// StartOffset is the rune offset of the remaining, non-overlapping content.
type Chunk struct {
	Content       string
	StartOffset   int
	SequenceIndex int
	OverlapLen    int
}

// IntermediateSummary is the map-stage output for one chunk.
type IntermediateSummary struct {
	SequenceIndex int
	Text          string
}

// SummaryResult is the parsed synthesis.
//
// Structured is false when the model ignored the requested format and the
// raw synthesis was returned as the summary.
type SummaryResult struct {
	Summary     string   `json:"summary"`
	KeyConcepts []string `json:"key_concepts"`
	Structured  bool     `json:"structured"`
}

// ArticleDigest pairs an article with its summary.
type ArticleDigest struct {
	Article Article
	Result  SummaryResult
	Cached  bool
}
