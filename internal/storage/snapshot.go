package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/dshills/chunkspan/internal/chunk"
	"github.com/dshills/chunkspan/internal/spans"
)

// Snapshot is a read view of the index for one search. Geometry, header
// records and the deleted set are loaded when the snapshot is opened;
// field text and postings are read on demand.
//
// A Snapshot is safe for concurrent use.
type Snapshot struct {
	store   *SQLiteStorage
	docMap  *chunk.HeaderMap
	deleted map[int]struct{}
}

// OpenSnapshot loads the document layout of the index
func (s *SQLiteStorage) OpenSnapshot(ctx context.Context) (*Snapshot, error) {
	geom, err := s.GetGeometry(ctx)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("index geometry not configured: %w", err)
	}
	if err != nil {
		return nil, err
	}

	headers, err := s.ListHeaders(ctx)
	if err != nil {
		return nil, err
	}
	first, err := s.FirstRecordNum(ctx)
	if err != nil {
		return nil, err
	}
	docMap, err := chunk.NewHeaderMap(geom, headers, first)
	if err != nil {
		return nil, fmt.Errorf("failed to build document map: %w", err)
	}

	deletedNums, err := s.ListDeleted(ctx)
	if err != nil {
		return nil, err
	}
	deleted := make(map[int]struct{}, len(deletedNums))
	for _, n := range deletedNums {
		deleted[n] = struct{}{}
	}

	return &Snapshot{store: s, docMap: docMap, deleted: deleted}, nil
}

// DocNumMap returns the chunk-to-document map of the snapshot
func (sn *Snapshot) DocNumMap() *chunk.HeaderMap {
	return sn.docMap
}

// Geometry returns the chunk geometry of the index
func (sn *Snapshot) Geometry() chunk.Geometry {
	return sn.docMap.Geometry()
}

// ReadField implements chunk.RecordReader
func (sn *Snapshot) ReadField(ctx context.Context, recordNum int, field string) (string, error) {
	return sn.store.GetField(ctx, recordNum, field)
}

// IsDeleted implements chunk.RecordReader
func (sn *Snapshot) IsDeleted(recordNum int) bool {
	_, ok := sn.deleted[recordNum]
	return ok
}

// Positions implements spans.PostingsReader. Occurrences in deleted records
// are left out.
func (sn *Snapshot) Positions(ctx context.Context, field, term string) ([]spans.Posting, error) {
	all, err := sn.store.ListPositions(ctx, field, term)
	if err != nil {
		return nil, err
	}
	if len(sn.deleted) == 0 {
		return all, nil
	}

	live := all[:0]
	for _, p := range all {
		if !sn.IsDeleted(p.Record) {
			live = append(live, p)
		}
	}
	return live, nil
}

// DocKey returns the external key stored on a document's header record
func (sn *Snapshot) DocKey(ctx context.Context, doc int) (string, error) {
	rec, err := sn.store.GetRecord(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("failed to get document %d: %w", doc, err)
	}
	if !rec.IsHeader {
		return "", fmt.Errorf("record %d is not a document header", doc)
	}
	return rec.DocKey, nil
}
