package tilestore

import (
	"bytes"
	"compress/gzip"
	"database/sql"
	"fmt"
	"sync"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/MeKo-Tech/tilemerge/internal/tilegrid"
)

const (
	// DefaultBatchSize is the number of tiles to buffer before flushing to the database.
	DefaultBatchSize = 32
)

// Entry is a single tile image to be written.
type Entry struct {
	Tile tilegrid.Tile
	Data []byte // PNG data (gzip-compressed before storage)
	Col  int
	Row  int
}

// Writer writes a tile grid to a SQLite database.
type Writer struct {
	db        *sql.DB
	path      string
	batch     []Entry
	grid      Grid
	batchSize int
	mu        sync.Mutex
}

// New creates a tile store at path. The database is created if it does not
// exist, the schema is initialized, and the grid metadata is written.
func New(path string, grid Grid) (*Writer, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %q: %w", pragma, err)
		}
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	if err := insertMetadata(db, grid); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to insert metadata: %w", err)
	}

	return &Writer{
		db:        db,
		path:      path,
		batch:     make([]Entry, 0, DefaultBatchSize),
		grid:      grid,
		batchSize: DefaultBatchSize,
	}, nil
}

// createSchema creates the tile store schema. Tile coordinates and overlaps
// are stored as plain integer columns so the grid round-trips exactly.
func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS metadata (
			name TEXT NOT NULL,
			value TEXT
		);

		CREATE TABLE IF NOT EXISTS tiles (
			tile_column INTEGER NOT NULL,
			tile_row INTEGER NOT NULL,
			coords_top INTEGER NOT NULL,
			coords_left INTEGER NOT NULL,
			coords_bottom INTEGER NOT NULL,
			coords_right INTEGER NOT NULL,
			overlap_top INTEGER NOT NULL,
			overlap_bottom INTEGER NOT NULL,
			overlap_left INTEGER NOT NULL,
			overlap_right INTEGER NOT NULL,
			tile_data BLOB NOT NULL
		);

		CREATE UNIQUE INDEX IF NOT EXISTS tile_index ON tiles (tile_row, tile_column);
	`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	return nil
}

// insertMetadata inserts grid metadata into the database.
func insertMetadata(db *sql.DB, grid Grid) error {
	if _, err := db.Exec("DELETE FROM metadata"); err != nil {
		return fmt.Errorf("failed to clear metadata: %w", err)
	}

	stmt, err := db.Prepare("INSERT INTO metadata (name, value) VALUES (?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare metadata insert: %w", err)
	}
	defer stmt.Close()

	for key, value := range grid.ToMap() {
		if _, err := stmt.Exec(key, value); err != nil {
			return fmt.Errorf("failed to insert metadata %q: %w", key, err)
		}
	}

	return nil
}

// WriteTile adds a tile to the batch. When the batch is full, it is
// automatically flushed. The PNG data is gzip-compressed before storage.
func (w *Writer) WriteTile(col, row int, tile tilegrid.Tile, pngData []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.batch = append(w.batch, Entry{
		Col:  col,
		Row:  row,
		Tile: tile,
		Data: pngData,
	})

	if len(w.batch) >= w.batchSize {
		return w.flushLocked()
	}

	return nil
}

// Flush writes any buffered tiles to the database.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.flushLocked()
}

// flushLocked writes buffered tiles to the database. Must be called with lock held.
func (w *Writer) flushLocked() error {
	if len(w.batch) == 0 {
		return nil
	}

	tx, err := w.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // nolint:errcheck

	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO tiles
		(tile_column, tile_row,
		 coords_top, coords_left, coords_bottom, coords_right,
		 overlap_top, overlap_bottom, overlap_left, overlap_right,
		 tile_data)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range w.batch {
		compressed, err := gzipCompress(e.Data)
		if err != nil {
			return fmt.Errorf("failed to compress tile %d/%d: %w", e.Col, e.Row, err)
		}

		if _, err := stmt.Exec(e.Col, e.Row,
			e.Tile.Coords.Top, e.Tile.Coords.Left, e.Tile.Coords.Bottom, e.Tile.Coords.Right,
			e.Tile.Overlap.Top, e.Tile.Overlap.Bottom, e.Tile.Overlap.Left, e.Tile.Overlap.Right,
			compressed); err != nil {
			return fmt.Errorf("failed to insert tile %d/%d: %w", e.Col, e.Row, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	w.batch = w.batch[:0]
	return nil
}

// Close flushes any remaining tiles and closes the database.
func (w *Writer) Close() error {
	if err := w.Flush(); err != nil {
		w.db.Close()
		return err
	}

	if err := w.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	return nil
}

// gzipCompress compresses data with gzip.
func gzipCompress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)

	if _, err := gw.Write(data); err != nil {
		gw.Close()
		return nil, err
	}

	if err := gw.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
