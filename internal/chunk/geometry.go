package chunk

import (
	"fmt"
	"sort"

	"github.com/dshills/chunkspan/pkg/types"
)

// NoDoc is returned by DocNumMap.DocNum when a chunk belongs to no document,
// and by FirstChunk/LastChunk for an unknown document.
const NoDoc = -1

// Geometry describes how documents were split into chunks.
type Geometry struct {
	ChunkSize    int // words per chunk
	ChunkOverlap int // words shared by consecutive chunks
}

// Bump is the distance in words between the starts of consecutive chunks.
func (g Geometry) Bump() int {
	return g.ChunkSize - g.ChunkOverlap
}

// Validate rejects geometries that cannot describe a chunked document
func (g Geometry) Validate() error {
	if g.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk size %d must be positive", types.ErrInvalidGeometry, g.ChunkSize)
	}
	if g.ChunkOverlap < 0 || g.ChunkOverlap >= g.ChunkSize {
		return fmt.Errorf("%w: overlap %d must be in [0, %d)", types.ErrInvalidGeometry, g.ChunkOverlap, g.ChunkSize)
	}
	return nil
}

// DocNumMap maps chunk records to the documents that own them. Every document
// owns a contiguous, inclusive range of chunk numbers and ranges increase
// with the document id.
type DocNumMap interface {
	ChunkSize() int
	ChunkOverlap() int
	DocCount() int
	DocNum(chunkNum int) int
	FirstChunk(docNum int) int
	LastChunk(docNum int) int
}

// HeaderMap is a DocNumMap for indexes where each document's chunk records
// are immediately followed by a header record. The header's record number is
// the document id.
//
// A HeaderMap is immutable and safe for concurrent use.
type HeaderMap struct {
	geom        Geometry
	headers     []int
	firstRecord int
}

// NewHeaderMap builds a map from the header record numbers of an index.
// firstRecord is the number of the first record that can hold a chunk.
func NewHeaderMap(geom Geometry, headers []int, firstRecord int) (*HeaderMap, error) {
	if err := geom.Validate(); err != nil {
		return nil, err
	}

	sorted := make([]int, len(headers))
	copy(sorted, headers)
	sort.Ints(sorted)

	for i := 1; i < len(sorted); i++ {
		if sorted[i] == sorted[i-1] {
			return nil, fmt.Errorf("duplicate header record %d", sorted[i])
		}
	}
	if len(sorted) > 0 && sorted[0] < firstRecord {
		return nil, fmt.Errorf("header record %d precedes first record %d", sorted[0], firstRecord)
	}

	return &HeaderMap{geom: geom, headers: sorted, firstRecord: firstRecord}, nil
}

func (m *HeaderMap) ChunkSize() int    { return m.geom.ChunkSize }
func (m *HeaderMap) ChunkOverlap() int { return m.geom.ChunkOverlap }
func (m *HeaderMap) DocCount() int     { return len(m.headers) }

// Geometry returns the chunk geometry the map was built with
func (m *HeaderMap) Geometry() Geometry { return m.geom }

// Docs returns the document ids in ascending order
func (m *HeaderMap) Docs() []int {
	docs := make([]int, len(m.headers))
	copy(docs, m.headers)
	return docs
}

// DocNum returns the document owning chunkNum, or NoDoc if the chunk lies
// outside every document.
func (m *HeaderMap) DocNum(chunkNum int) int {
	if chunkNum < m.firstRecord {
		return NoDoc
	}
	i := sort.SearchInts(m.headers, chunkNum)
	if i == len(m.headers) {
		return NoDoc
	}
	return m.headers[i]
}

// FirstChunk returns the first chunk record of docNum
func (m *HeaderMap) FirstChunk(docNum int) int {
	i, ok := m.index(docNum)
	if !ok {
		return NoDoc
	}
	if i == 0 {
		return m.firstRecord
	}
	return m.headers[i-1] + 1
}

// LastChunk returns the last chunk record of docNum
func (m *HeaderMap) LastChunk(docNum int) int {
	if _, ok := m.index(docNum); !ok {
		return NoDoc
	}
	return docNum - 1
}

func (m *HeaderMap) index(docNum int) (int, bool) {
	i := sort.SearchInts(m.headers, docNum)
	if i == len(m.headers) || m.headers[i] != docNum {
		return 0, false
	}
	return i, true
}
