package types

// Token is one word produced by a tokenizer.
//
// Start and End are byte offsets into the text that was tokenized. PosIncr is
// the distance in word positions from the previous token (1 for adjacent
// words, larger when words such as stop words were dropped in between).
type Token struct {
	Term    string
	Start   int
	End     int
	PosIncr int
}

// Granularity selects which offset a position query reports.
type Granularity int

const (
	// FieldStart refers to the start of the whole field
	FieldStart Granularity = iota
	// TermStart is the first byte of the current word
	TermStart
	// TermEnd is the byte just past the current word
	TermEnd
	// TermEndPlus extends TermEnd over trailing spaces and punctuation up to
	// the next word
	TermEndPlus
	// FieldEnd refers to the end of the whole field
	FieldEnd
)

// String returns the granularity name
func (g Granularity) String() string {
	switch g {
	case FieldStart:
		return "field_start"
	case TermStart:
		return "term_start"
	case TermEnd:
		return "term_end"
	case TermEndPlus:
		return "term_end_plus"
	case FieldEnd:
		return "field_end"
	default:
		return "unknown"
	}
}
