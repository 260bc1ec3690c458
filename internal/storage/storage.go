package storage

import (
	"context"
	"time"

	"github.com/dshills/chunkspan/internal/chunk"
	"github.com/dshills/chunkspan/internal/spans"
)

// Storage defines the interface for persisting and reading a chunked index
type Storage interface {
	// Index operations
	SetGeometry(ctx context.Context, geom chunk.Geometry) error
	GetGeometry(ctx context.Context) (chunk.Geometry, error)

	// Record operations
	InsertRecord(ctx context.Context, rec *Record) error
	GetRecord(ctx context.Context, recordNum int) (*Record, error)
	MarkDeleted(ctx context.Context, recordNum int) error
	NextRecordNum(ctx context.Context) (int, error)
	FirstRecordNum(ctx context.Context) (int, error)
	ListHeaders(ctx context.Context) ([]int, error)
	ListDeleted(ctx context.Context) ([]int, error)

	// Field operations
	SetField(ctx context.Context, recordNum int, name, value string) error
	GetField(ctx context.Context, recordNum int, name string) (string, error)

	// Postings operations
	AddPostings(ctx context.Context, field string, postings []Posting) error
	ListPositions(ctx context.Context, field, term string) ([]spans.Posting, error)

	// Status operations
	GetStatus(ctx context.Context) (*IndexStatus, error)

	// Database operations
	Close() error
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx represents a database transaction
type Tx interface {
	Commit() error
	Rollback() error
	Storage // Embed Storage interface for transaction operations
}

// Record is one stored index record: either a chunk of a document or the
// document's header, which follows its chunks.
type Record struct {
	RecordNum int
	DocKey    string // Set on header records
	IsHeader  bool
	Deleted   bool
	CreatedAt time.Time
}

// Posting is one occurrence of a term within a record's field
type Posting struct {
	Term      string
	RecordNum int
	Position  int // Word position relative to the start of the record
}

// IndexStatus contains index statistics
type IndexStatus struct {
	Geometry      chunk.Geometry
	RecordsCount  int
	DocsCount     int
	ChunksCount   int
	DeletedCount  int
	PostingsCount int
	TermsCount    int
	IndexSizeMB   float64
	Health        HealthStatus
}

// HealthStatus contains health check information
type HealthStatus struct {
	DatabaseAccessible bool
	GeometryConfigured bool
}
