package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dshills/chunkspan/internal/chunk"
	"github.com/dshills/chunkspan/internal/spans"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when trying to create a duplicate entity
	ErrAlreadyExists = errors.New("already exists")
)

// postingsBatchSize bounds the rows sent in one INSERT statement
const postingsBatchSize = 200

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// A single connection also keeps ":memory:" databases shared
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// BeginTx starts a new transaction
func (s *SQLiteStorage) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqliteTx{tx: tx, storage: s}, nil
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// sqliteTx wraps a SQL transaction
type sqliteTx struct {
	tx      *sql.Tx
	storage *SQLiteStorage
}

func (t *sqliteTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTx) Rollback() error {
	return t.tx.Rollback()
}

// querier returns the transaction querier
func (t *sqliteTx) querier() querier {
	return t.tx
}

// querier returns the DB querier
func (s *SQLiteStorage) querier() querier {
	return s.db
}

// Index operations

func (s *SQLiteStorage) setGeometryWithQuerier(ctx context.Context, q querier, geom chunk.Geometry) error {
	if err := geom.Validate(); err != nil {
		return err
	}
	query := `
		INSERT INTO index_info (id, chunk_size, chunk_overlap, updated_at)
		VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			chunk_size = excluded.chunk_size,
			chunk_overlap = excluded.chunk_overlap,
			updated_at = excluded.updated_at
	`
	if _, err := q.ExecContext(ctx, query, geom.ChunkSize, geom.ChunkOverlap, time.Now()); err != nil {
		return fmt.Errorf("failed to set geometry: %w", err)
	}
	return nil
}

// SetGeometry records the chunk size and overlap the index was built with
func (s *SQLiteStorage) SetGeometry(ctx context.Context, geom chunk.Geometry) error {
	return s.setGeometryWithQuerier(ctx, s.querier(), geom)
}

func (s *SQLiteStorage) getGeometryWithQuerier(ctx context.Context, q querier) (chunk.Geometry, error) {
	var geom chunk.Geometry
	err := q.QueryRowContext(ctx, "SELECT chunk_size, chunk_overlap FROM index_info WHERE id = 1").
		Scan(&geom.ChunkSize, &geom.ChunkOverlap)
	if err == sql.ErrNoRows {
		return geom, ErrNotFound
	}
	if err != nil {
		return geom, fmt.Errorf("failed to get geometry: %w", err)
	}
	return geom, nil
}

// GetGeometry returns the stored geometry, or ErrNotFound if none is set
func (s *SQLiteStorage) GetGeometry(ctx context.Context) (chunk.Geometry, error) {
	return s.getGeometryWithQuerier(ctx, s.querier())
}

// Record operations

func (s *SQLiteStorage) insertRecordWithQuerier(ctx context.Context, q querier, rec *Record) error {
	if rec.RecordNum < 0 {
		return fmt.Errorf("invalid record number %d", rec.RecordNum)
	}
	var docKey interface{}
	if rec.DocKey != "" {
		docKey = rec.DocKey
	}
	now := time.Now()
	_, err := q.ExecContext(ctx, `
		INSERT INTO records (record_num, doc_key, is_header, deleted, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, rec.RecordNum, docKey, rec.IsHeader, rec.Deleted, now)
	if err != nil {
		if isConstraintError(err) {
			return fmt.Errorf("record %d: %w", rec.RecordNum, ErrAlreadyExists)
		}
		return fmt.Errorf("failed to insert record %d: %w", rec.RecordNum, err)
	}
	rec.CreatedAt = now
	return nil
}

// InsertRecord stores a new record. Record numbers are chosen by the caller.
func (s *SQLiteStorage) InsertRecord(ctx context.Context, rec *Record) error {
	return s.insertRecordWithQuerier(ctx, s.querier(), rec)
}

func (s *SQLiteStorage) getRecordWithQuerier(ctx context.Context, q querier, recordNum int) (*Record, error) {
	var rec Record
	var docKey sql.NullString
	err := q.QueryRowContext(ctx, `
		SELECT record_num, doc_key, is_header, deleted, created_at
		FROM records
		WHERE record_num = ?
	`, recordNum).Scan(&rec.RecordNum, &docKey, &rec.IsHeader, &rec.Deleted, &rec.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record %d: %w", recordNum, err)
	}
	rec.DocKey = docKey.String
	return &rec, nil
}

func (s *SQLiteStorage) GetRecord(ctx context.Context, recordNum int) (*Record, error) {
	return s.getRecordWithQuerier(ctx, s.querier(), recordNum)
}

func (s *SQLiteStorage) markDeletedWithQuerier(ctx context.Context, q querier, recordNum int) error {
	result, err := q.ExecContext(ctx, "UPDATE records SET deleted = 1 WHERE record_num = ?", recordNum)
	if err != nil {
		return fmt.Errorf("failed to delete record %d: %w", recordNum, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkDeleted flags a record as deleted. Record numbers are never reused.
func (s *SQLiteStorage) MarkDeleted(ctx context.Context, recordNum int) error {
	return s.markDeletedWithQuerier(ctx, s.querier(), recordNum)
}

func (s *SQLiteStorage) nextRecordNumWithQuerier(ctx context.Context, q querier) (int, error) {
	var next int
	if err := q.QueryRowContext(ctx, "SELECT COALESCE(MAX(record_num) + 1, 0) FROM records").Scan(&next); err != nil {
		return 0, fmt.Errorf("failed to get next record number: %w", err)
	}
	return next, nil
}

// NextRecordNum returns the record number following the highest stored one
func (s *SQLiteStorage) NextRecordNum(ctx context.Context) (int, error) {
	return s.nextRecordNumWithQuerier(ctx, s.querier())
}

func (s *SQLiteStorage) firstRecordNumWithQuerier(ctx context.Context, q querier) (int, error) {
	var first int
	if err := q.QueryRowContext(ctx, "SELECT COALESCE(MIN(record_num), 0) FROM records").Scan(&first); err != nil {
		return 0, fmt.Errorf("failed to get first record number: %w", err)
	}
	return first, nil
}

// FirstRecordNum returns the lowest stored record number, or 0 when empty
func (s *SQLiteStorage) FirstRecordNum(ctx context.Context) (int, error) {
	return s.firstRecordNumWithQuerier(ctx, s.querier())
}

func (s *SQLiteStorage) listRecordNumsWithQuerier(ctx context.Context, q querier, where string) ([]int, error) {
	rows, err := q.QueryContext(ctx, "SELECT record_num FROM records WHERE "+where+" ORDER BY record_num")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var nums []int
	for rows.Next() {
		var n int
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		nums = append(nums, n)
	}
	return nums, rows.Err()
}

// ListHeaders returns the header record numbers in ascending order
func (s *SQLiteStorage) ListHeaders(ctx context.Context) ([]int, error) {
	nums, err := s.listRecordNumsWithQuerier(ctx, s.querier(), "is_header = 1")
	if err != nil {
		return nil, fmt.Errorf("failed to list headers: %w", err)
	}
	return nums, nil
}

// ListDeleted returns the deleted record numbers in ascending order
func (s *SQLiteStorage) ListDeleted(ctx context.Context) ([]int, error) {
	nums, err := s.listRecordNumsWithQuerier(ctx, s.querier(), "deleted = 1")
	if err != nil {
		return nil, fmt.Errorf("failed to list deleted records: %w", err)
	}
	return nums, nil
}

// Field operations

func (s *SQLiteStorage) setFieldWithQuerier(ctx context.Context, q querier, recordNum int, name, value string) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO fields (record_num, name, value)
		VALUES (?, ?, ?)
		ON CONFLICT(record_num, name) DO UPDATE SET value = excluded.value
	`, recordNum, name, value)
	if err != nil {
		return fmt.Errorf("failed to set field %s of record %d: %w", name, recordNum, err)
	}
	return nil
}

// SetField stores the text of a field. The record must already exist.
func (s *SQLiteStorage) SetField(ctx context.Context, recordNum int, name, value string) error {
	return s.setFieldWithQuerier(ctx, s.querier(), recordNum, name, value)
}

func (s *SQLiteStorage) getFieldWithQuerier(ctx context.Context, q querier, recordNum int, name string) (string, error) {
	var value string
	err := q.QueryRowContext(ctx, "SELECT value FROM fields WHERE record_num = ? AND name = ?", recordNum, name).Scan(&value)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("field %s of record %d: %w", name, recordNum, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to get field %s of record %d: %w", name, recordNum, err)
	}
	return value, nil
}

func (s *SQLiteStorage) GetField(ctx context.Context, recordNum int, name string) (string, error) {
	return s.getFieldWithQuerier(ctx, s.querier(), recordNum, name)
}

// Postings operations

func (s *SQLiteStorage) addPostingsWithQuerier(ctx context.Context, q querier, field string, postings []Posting) error {
	for start := 0; start < len(postings); start += postingsBatchSize {
		end := min(start+postingsBatchSize, len(postings))
		batch := postings[start:end]

		placeholders := make([]string, len(batch))
		args := make([]interface{}, 0, len(batch)*4)
		for i, p := range batch {
			placeholders[i] = "(?, ?, ?, ?)"
			args = append(args, field, p.Term, p.RecordNum, p.Position)
		}

		query := "INSERT OR IGNORE INTO postings (field, term, record_num, position) VALUES " +
			strings.Join(placeholders, ", ")
		if _, err := q.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to add postings: %w", err)
		}
	}
	return nil
}

// AddPostings stores term occurrences for field. Duplicates are ignored.
func (s *SQLiteStorage) AddPostings(ctx context.Context, field string, postings []Posting) error {
	return s.addPostingsWithQuerier(ctx, s.querier(), field, postings)
}

func (s *SQLiteStorage) listPositionsWithQuerier(ctx context.Context, q querier, field, term string) ([]spans.Posting, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT record_num, position
		FROM postings
		WHERE field = ? AND term = ?
		ORDER BY record_num, position
	`, field, term)
	if err != nil {
		return nil, fmt.Errorf("failed to list positions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var postings []spans.Posting
	for rows.Next() {
		var p spans.Posting
		if err := rows.Scan(&p.Record, &p.Position); err != nil {
			return nil, fmt.Errorf("failed to scan posting: %w", err)
		}
		postings = append(postings, p)
	}
	return postings, rows.Err()
}

// ListPositions returns every occurrence of term in field, ordered by record
// then position. Deleted records are included.
func (s *SQLiteStorage) ListPositions(ctx context.Context, field, term string) ([]spans.Posting, error) {
	return s.listPositionsWithQuerier(ctx, s.querier(), field, term)
}

// Status operations

func (s *SQLiteStorage) GetStatus(ctx context.Context) (*IndexStatus, error) {
	status := &IndexStatus{}

	geom, err := s.GetGeometry(ctx)
	switch {
	case err == nil:
		status.Geometry = geom
		status.Health.GeometryConfigured = true
	case !errors.Is(err, ErrNotFound):
		return nil, err
	}

	counts := []struct {
		dest  *int
		query string
	}{
		{&status.RecordsCount, "SELECT COUNT(*) FROM records"},
		{&status.DocsCount, "SELECT COUNT(*) FROM records WHERE is_header = 1 AND deleted = 0"},
		{&status.ChunksCount, "SELECT COUNT(*) FROM records WHERE is_header = 0 AND deleted = 0"},
		{&status.DeletedCount, "SELECT COUNT(*) FROM records WHERE deleted = 1"},
		{&status.PostingsCount, "SELECT COUNT(*) FROM postings"},
		{&status.TermsCount, "SELECT COUNT(*) FROM (SELECT DISTINCT field, term FROM postings)"},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("failed to get status: %w", err)
		}
	}

	// Calculate database size
	var pageCount, pageSize int
	err = s.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount)
	if err == nil {
		_ = s.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize)
		status.IndexSizeMB = float64(pageCount*pageSize) / (1024 * 1024)
	}

	status.Health.DatabaseAccessible = true
	return status, nil
}

// isConstraintError reports whether err is a uniqueness or primary key
// violation from either driver.
func isConstraintError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "PRIMARY KEY")
}

// Transaction implementations

func (t *sqliteTx) SetGeometry(ctx context.Context, geom chunk.Geometry) error {
	return t.storage.setGeometryWithQuerier(ctx, t.querier(), geom)
}

func (t *sqliteTx) GetGeometry(ctx context.Context) (chunk.Geometry, error) {
	return t.storage.getGeometryWithQuerier(ctx, t.querier())
}

func (t *sqliteTx) InsertRecord(ctx context.Context, rec *Record) error {
	return t.storage.insertRecordWithQuerier(ctx, t.querier(), rec)
}

func (t *sqliteTx) GetRecord(ctx context.Context, recordNum int) (*Record, error) {
	return t.storage.getRecordWithQuerier(ctx, t.querier(), recordNum)
}

func (t *sqliteTx) MarkDeleted(ctx context.Context, recordNum int) error {
	return t.storage.markDeletedWithQuerier(ctx, t.querier(), recordNum)
}

func (t *sqliteTx) NextRecordNum(ctx context.Context) (int, error) {
	return t.storage.nextRecordNumWithQuerier(ctx, t.querier())
}

func (t *sqliteTx) FirstRecordNum(ctx context.Context) (int, error) {
	return t.storage.firstRecordNumWithQuerier(ctx, t.querier())
}

func (t *sqliteTx) ListHeaders(ctx context.Context) ([]int, error) {
	return t.storage.listRecordNumsWithQuerier(ctx, t.querier(), "is_header = 1")
}

func (t *sqliteTx) ListDeleted(ctx context.Context) ([]int, error) {
	return t.storage.listRecordNumsWithQuerier(ctx, t.querier(), "deleted = 1")
}

func (t *sqliteTx) SetField(ctx context.Context, recordNum int, name, value string) error {
	return t.storage.setFieldWithQuerier(ctx, t.querier(), recordNum, name, value)
}

func (t *sqliteTx) GetField(ctx context.Context, recordNum int, name string) (string, error) {
	return t.storage.getFieldWithQuerier(ctx, t.querier(), recordNum, name)
}

func (t *sqliteTx) AddPostings(ctx context.Context, field string, postings []Posting) error {
	return t.storage.addPostingsWithQuerier(ctx, t.querier(), field, postings)
}

func (t *sqliteTx) ListPositions(ctx context.Context, field, term string) ([]spans.Posting, error) {
	return t.storage.listPositionsWithQuerier(ctx, t.querier(), field, term)
}

// GetStatus would block on the connection held by the transaction
func (t *sqliteTx) GetStatus(ctx context.Context) (*IndexStatus, error) {
	return nil, fmt.Errorf("status is not available inside a transaction")
}

func (t *sqliteTx) Close() error {
	return t.Rollback()
}

func (t *sqliteTx) BeginTx(ctx context.Context) (Tx, error) {
	return nil, fmt.Errorf("nested transactions are not supported")
}
