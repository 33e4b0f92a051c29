package dataset

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/parquet-go/parquet-go"
)

// Loader reads flat track tables (JSONL or Parquet), one row per track.
type Loader struct {
	tablePath string
}

// NewLoader creates a new table loader
func NewLoader(tablePath string) *Loader {
	return &Loader{
		tablePath: tablePath,
	}
}

// IsTable reports whether path looks like a track table rather than a data home.
func IsTable(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".parquet", ".jsonl", ".json":
		return true
	}
	return false
}

// Load loads every row of the table
func (l *Loader) Load() ([]Track, error) {
	return l.LoadSample(0)
}

// LoadSample loads at most limit rows; limit <= 0 loads everything.
func (l *Loader) LoadSample(limit int) ([]Track, error) {
	ext := strings.ToLower(filepath.Ext(l.tablePath))

	switch ext {
	case ".parquet":
		return l.loadParquet(limit)
	case ".jsonl", ".json":
		return l.loadJSONL(limit)
	default:
		return nil, fmt.Errorf("unsupported file format: %s (supported: .parquet, .jsonl)", ext)
	}
}

// Open loads the table as a Dataset. Relative audio and beat paths resolve
// against the table's directory, and rows without inline beats read them from
// their beats file.
func (l *Loader) Open(limit int) (*Dataset, error) {
	rows, err := l.LoadSample(limit)
	if err != nil {
		return nil, err
	}

	root := filepath.Dir(l.tablePath)
	tracks := make([]*Track, 0, len(rows))
	for i := range rows {
		t := &rows[i]
		if t.Genre == "" {
			t.Genre = GenreFromTrackID(t.ID)
		}
		if t.AudioPath != "" && !filepath.IsAbs(t.AudioPath) {
			t.AudioPath = filepath.Join(root, t.AudioPath)
		}
		if t.BeatsPath != "" && !filepath.IsAbs(t.BeatsPath) {
			t.BeatsPath = filepath.Join(root, t.BeatsPath)
		}
		if len(t.Beats) == 0 && t.BeatsPath != "" {
			beats, err := LoadBeats(t.BeatsPath)
			if err != nil {
				return nil, fmt.Errorf("failed to load track %s: %w", t.ID, err)
			}
			t.Beats = beats
		}
		tracks = append(tracks, t)
	}

	name := strings.TrimSuffix(filepath.Base(l.tablePath), filepath.Ext(l.tablePath))
	return New(name, "table", root, tracks)
}

// loadJSONL loads rows from a JSONL file
func (l *Loader) loadJSONL(limit int) ([]Track, error) {
	slog.Debug("Opening JSONL file", "path", l.tablePath)

	file, err := os.Open(l.tablePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open track table: %w", err)
	}
	defer file.Close()

	var rows []Track
	scanner := bufio.NewScanner(file)

	// Inline beat lists can make lines long
	const maxCapacity = 10 * 1024 * 1024
	buf := make([]byte, maxCapacity)
	scanner.Buffer(buf, maxCapacity)

	lineNum := 0
	for scanner.Scan() {
		if limit > 0 && len(rows) >= limit {
			break
		}
		lineNum++
		line := scanner.Bytes()

		if len(line) == 0 {
			continue
		}

		var row Track
		if err := json.Unmarshal(line, &row); err != nil {
			return nil, fmt.Errorf("failed to parse JSON at line %d: %w", lineNum, err)
		}
		if row.ID == "" {
			return nil, fmt.Errorf("missing track_id at line %d", lineNum)
		}

		rows = append(rows, row)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading track table: %w", err)
	}

	slog.Debug("Finished reading JSONL file", "total_rows", len(rows), "total_lines", lineNum)

	return rows, nil
}

// loadParquet loads rows from a Parquet file
func (l *Loader) loadParquet(limit int) ([]Track, error) {
	slog.Debug("Opening Parquet file", "path", l.tablePath, "limit", limit)

	file, err := os.Open(l.tablePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}

	slog.Debug("Parquet file opened successfully", "num_rows", pf.NumRows(), "num_row_groups", len(pf.RowGroups()))

	reader := parquet.NewGenericReader[Track](pf)
	defer reader.Close()

	var rows []Track
	batch := make([]Track, 128)

	for limit <= 0 || len(rows) < limit {
		n, err := reader.Read(batch)
		if n > 0 {
			if limit > 0 && n > limit-len(rows) {
				n = limit - len(rows)
			}
			rows = append(rows, batch[:n]...)
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read parquet rows: %w", err)
		}
	}

	slog.Debug("Finished reading Parquet file", "total_rows", len(rows))

	return rows, nil
}

// SaveTable writes tracks as a Parquet or JSONL table depending on the extension.
func SaveTable(path string, tracks []*Track) error {
	rows := make([]Track, len(tracks))
	for i, t := range tracks {
		rows[i] = *t
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".parquet":
		if err := parquet.WriteFile(path, rows); err != nil {
			return fmt.Errorf("failed to write parquet table: %w", err)
		}
		return nil
	case ".jsonl", ".json":
		file, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create track table: %w", err)
		}
		defer file.Close()

		encoder := json.NewEncoder(file)
		for _, row := range rows {
			if err := encoder.Encode(row); err != nil {
				return fmt.Errorf("failed to encode track %s: %w", row.ID, err)
			}
		}
		return nil
	default:
		return fmt.Errorf("unsupported file format: %s (supported: .parquet, .jsonl)", filepath.Ext(path))
	}
}
