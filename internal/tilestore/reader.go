package tilestore

import (
	"bytes"
	"compress/gzip"
	"database/sql"
	"fmt"
	"io"
	"strconv"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/MeKo-Tech/tilemerge/internal/tilegrid"
)

// Reader reads a tile grid from a SQLite database.
type Reader struct {
	db   *sql.DB
	path string
}

// StoredTile is one tile read back from a store, with its grid position and
// PNG-encoded image data.
type StoredTile struct {
	Tile tilegrid.Tile
	Data []byte
	Col  int
	Row  int
}

// OpenReader opens a tile store for reading.
func OpenReader(path string) (*Reader, error) {
	db, err := sql.Open("sqlite", path+"?mode=ro&immutable=1")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	var count int
	err = db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='tiles'").Scan(&count)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to verify schema: %w", err)
	}
	if count == 0 {
		db.Close()
		return nil, fmt.Errorf("database does not contain tiles table")
	}

	return &Reader{
		db:   db,
		path: path,
	}, nil
}

// ReadTile reads a single tile by grid position and returns its descriptor
// and ungzipped PNG data.
func (r *Reader) ReadTile(col, row int) (StoredTile, error) {
	st := StoredTile{Col: col, Row: row}

	var compressedData []byte
	err := r.db.QueryRow(`SELECT
			coords_top, coords_left, coords_bottom, coords_right,
			overlap_top, overlap_bottom, overlap_left, overlap_right,
			tile_data
		FROM tiles WHERE tile_column=? AND tile_row=?`, col, row).Scan(
		&st.Tile.Coords.Top, &st.Tile.Coords.Left, &st.Tile.Coords.Bottom, &st.Tile.Coords.Right,
		&st.Tile.Overlap.Top, &st.Tile.Overlap.Bottom, &st.Tile.Overlap.Left, &st.Tile.Overlap.Right,
		&compressedData)

	if err == sql.ErrNoRows {
		return st, fmt.Errorf("tile not found: %d/%d", col, row)
	}
	if err != nil {
		return st, fmt.Errorf("failed to query tile: %w", err)
	}

	st.Data, err = gzipDecompress(compressedData)
	if err != nil {
		return st, fmt.Errorf("failed to decompress tile %d/%d: %w", col, row, err)
	}

	return st, nil
}

// ReadAll returns all stored tiles in row-major order.
func (r *Reader) ReadAll() ([]StoredTile, error) {
	rows, err := r.db.Query(`SELECT
			tile_column, tile_row,
			coords_top, coords_left, coords_bottom, coords_right,
			overlap_top, overlap_bottom, overlap_left, overlap_right,
			tile_data
		FROM tiles ORDER BY tile_row, tile_column`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tiles: %w", err)
	}
	defer rows.Close()

	var tiles []StoredTile
	for rows.Next() {
		var st StoredTile
		var compressedData []byte
		if err := rows.Scan(&st.Col, &st.Row,
			&st.Tile.Coords.Top, &st.Tile.Coords.Left, &st.Tile.Coords.Bottom, &st.Tile.Coords.Right,
			&st.Tile.Overlap.Top, &st.Tile.Overlap.Bottom, &st.Tile.Overlap.Left, &st.Tile.Overlap.Right,
			&compressedData); err != nil {
			return nil, fmt.Errorf("failed to scan tile row: %w", err)
		}

		st.Data, err = gzipDecompress(compressedData)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress tile %d/%d: %w", st.Col, st.Row, err)
		}

		tiles = append(tiles, st)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tiles: %w", err)
	}

	return tiles, nil
}

// Grid reads the stored grid metadata.
func (r *Reader) Grid() (Grid, error) {
	rows, err := r.db.Query("SELECT name, value FROM metadata")
	if err != nil {
		return Grid{}, fmt.Errorf("failed to query metadata: %w", err)
	}
	defer rows.Close()

	metaMap := make(map[string]string)
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return Grid{}, fmt.Errorf("failed to scan metadata row: %w", err)
		}
		metaMap[name] = value
	}

	if err := rows.Err(); err != nil {
		return Grid{}, fmt.Errorf("error iterating metadata: %w", err)
	}

	grid := Grid{Format: metaMap["format"]}
	intFields := []struct {
		dst *int
		key string
	}{
		{&grid.ImageWidth, "image_width"},
		{&grid.ImageHeight, "image_height"},
		{&grid.TileWidth, "tile_width"},
		{&grid.TileHeight, "tile_height"},
		{&grid.MinOverlap, "min_overlap"},
	}
	for _, f := range intFields {
		if v, ok := metaMap[f.key]; ok {
			if i, err := strconv.Atoi(v); err == nil {
				*f.dst = i
			}
		}
	}

	return grid, nil
}

// Close closes the database connection.
func (r *Reader) Close() error {
	if err := r.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

// gzipDecompress decompresses gzip data.
func gzipDecompress(data []byte) ([]byte, error) {
	gr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer gr.Close()

	uncompressed, err := io.ReadAll(gr)
	if err != nil {
		return nil, err
	}

	return uncompressed, nil
}
