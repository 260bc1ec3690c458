// Package testindex lays documents out as chunk records in a store, the way
// an indexing pipeline would. It exists so tests of the search layers can
// work against a real SQLite index.
package testindex

import (
	"context"
	"errors"
	"fmt"

	"github.com/dshills/chunkspan/internal/analysis"
	"github.com/dshills/chunkspan/internal/chunk"
	"github.com/dshills/chunkspan/internal/storage"
	"github.com/dshills/chunkspan/pkg/types"
)

// Doc is a document to index. Each section becomes its own run of chunks,
// separated from the previous section by an empty chunk.
type Doc struct {
	Key      string
	Sections []string
}

// Builder writes documents into a store with a fixed geometry
type Builder struct {
	store     *storage.SQLiteStorage
	geom      chunk.Geometry
	tokenizer chunk.Tokenizer
	field     string

	// layout counts every word, stop words included
	layout *analysis.WordTokenizer
}

// NewBuilder creates a builder. The geometry is stored in the index if the
// index has none; a different stored geometry is an error.
func NewBuilder(ctx context.Context, store *storage.SQLiteStorage, geom chunk.Geometry, tok chunk.Tokenizer, field string) (*Builder, error) {
	if err := geom.Validate(); err != nil {
		return nil, err
	}

	stored, err := store.GetGeometry(ctx)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		if err := store.SetGeometry(ctx, geom); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	case stored != geom:
		return nil, fmt.Errorf("%w: index uses %d/%d", types.ErrInvalidGeometry, stored.ChunkSize, stored.ChunkOverlap)
	}

	return &Builder{
		store:     store,
		geom:      geom,
		tokenizer: tok,
		field:     field,
		layout:    analysis.NewWordTokenizer(),
	}, nil
}

// Add indexes doc and returns its document id (the header record number)
func (b *Builder) Add(ctx context.Context, doc Doc) (int, error) {
	tx, err := b.store.BeginTx(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	next, err := tx.NextRecordNum(ctx)
	if err != nil {
		return 0, err
	}

	sections := doc.Sections
	if len(sections) == 0 {
		sections = []string{""}
	}

	for i, section := range sections {
		if i > 0 {
			if err := b.writeChunk(ctx, tx, next, ""); err != nil {
				return 0, err
			}
			next++
		}
		for _, text := range b.Chunks(section) {
			if err := b.writeChunk(ctx, tx, next, text); err != nil {
				return 0, err
			}
			next++
		}
	}

	header := &storage.Record{RecordNum: next, IsHeader: true, DocKey: doc.Key}
	if err := tx.InsertRecord(ctx, header); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit document %q: %w", doc.Key, err)
	}
	return next, nil
}

// Chunks splits a section into chunk texts. Chunk i starts at word i*bump
// and holds up to ChunkSize words. A new chunk is started only while words
// remain past the current chunk's bump, so a reader truncating every chunk to
// its first bump words still sees each word once.
func (b *Builder) Chunks(section string) []string {
	words := b.layout.Tokenize(section)
	if len(words) == 0 {
		return []string{section}
	}

	bump := b.geom.Bump()
	var chunks []string
	for i := 0; ; i++ {
		first := i * bump
		last := min(first+b.geom.ChunkSize, len(words)) - 1

		start := words[first].Start
		if i == 0 {
			start = 0
		}
		end := words[last].End
		if last == len(words)-1 {
			end = len(section)
		}
		chunks = append(chunks, section[start:end])

		if first+bump >= len(words) {
			return chunks
		}
	}
}

func (b *Builder) writeChunk(ctx context.Context, tx storage.Tx, recordNum int, text string) error {
	if err := tx.InsertRecord(ctx, &storage.Record{RecordNum: recordNum}); err != nil {
		return err
	}
	if err := tx.SetField(ctx, recordNum, b.field, text); err != nil {
		return err
	}

	tokens := b.tokenizer.Tokenize(text)
	if len(tokens) == 0 {
		return nil
	}
	postings := make([]storage.Posting, 0, len(tokens))
	pos := -1
	for _, tok := range tokens {
		pos += tok.PosIncr
		postings = append(postings, storage.Posting{Term: tok.Term, RecordNum: recordNum, Position: pos})
	}
	return tx.AddPostings(ctx, b.field, postings)
}
