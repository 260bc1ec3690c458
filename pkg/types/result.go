package types

// Hit is one match expressed in document word positions.
// End is exclusive.
type Hit struct {
	Doc   int
	Start int
	End   int
}

// Validate checks if the hit is valid
func (h Hit) Validate() error {
	if h.Doc < 0 {
		return ErrInvalidDoc
	}
	if h.End < h.Start {
		return ErrInvalidSpan
	}
	return nil
}

// Snippet is the text surrounding a hit
type Snippet struct {
	Hit
	Text string
}

// Word is a single word read from a document
type Word struct {
	Pos  int    `json:"pos"`
	Term string `json:"term"`
}

// SearchResult groups the hits found in one document
type SearchResult struct {
	Doc      int // Header record number of the document
	DocKey   string
	Hits     []Hit
	Snippets []Snippet
}

// Validate checks if the search result is valid
func (sr *SearchResult) Validate() error {
	if sr.Doc < 0 {
		return ErrInvalidDoc
	}

	for _, h := range sr.Hits {
		if err := h.Validate(); err != nil {
			return err
		}
	}

	for _, s := range sr.Snippets {
		if s.Text == "" {
			return ErrEmptyContent
		}
	}

	return nil
}
