// Package storage provides SQLite-based persistence for a chunked text index.
//
// The storage layer manages:
//   - Chunk geometry (chunk size and overlap) the index was built with
//   - Records: one per document chunk plus one header per document
//   - Stored field text per record
//   - Term postings (field, term, record, position)
//
// # Database Schema
//
// Tables:
//   - index_info: single row holding chunk_size and chunk_overlap
//   - records: record numbers, header flag, deleted flag, document key
//   - fields: stored text per record and field name
//   - postings: term positions, relative to the start of their record
//
// A document's chunk records are numbered consecutively and followed by the
// document's header record. The header's record number is the document id.
//
// # Basic Usage
//
//	store, err := storage.NewSQLiteStorage("index.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	snap, err := store.OpenSnapshot(ctx)
//	if err != nil {
//	    return err
//	}
//
//	// snap implements chunk.RecordReader and spans.PostingsReader
//	src, err := chunk.NewSource(snap, snap.DocNumMap(), doc, "text", tokenizer)
//
// # Transactions
//
// Writes that must land together use a transaction:
//
//	tx, err := store.BeginTx(ctx)
//	if err != nil {
//	    return err
//	}
//	defer func() { _ = tx.Rollback() }()
//
//	_ = tx.InsertRecord(ctx, &storage.Record{RecordNum: 7})
//	_ = tx.SetField(ctx, 7, "text", chunkText)
//	_ = tx.AddPostings(ctx, "text", postings)
//
//	if err := tx.Commit(); err != nil {
//	    return err
//	}
//
// Deleting a record only flags it. Record numbers are never reused, so the
// chunk layout of the remaining documents stays valid.
//
// # Build Tags
//
// Pure Go build (default, purego tag): modernc.org/sqlite, no C compiler.
//
//	CGO_ENABLED=0 go build -tags "purego"
//
// CGO build (sqlite_cgo tag): github.com/mattn/go-sqlite3.
//
//	CGO_ENABLED=1 go build -tags "sqlite_cgo"
package storage
