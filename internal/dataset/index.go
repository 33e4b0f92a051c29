package dataset

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FileRef is an index entry: a path relative to the data home and its md5
// checksum. It is encoded as a two element JSON array, either side of which
// may be null.
type FileRef struct {
	Path     string
	Checksum string
}

// MarshalJSON encodes the ref as [path, checksum].
func (f FileRef) MarshalJSON() ([]byte, error) {
	pair := [2]*string{}
	if f.Path != "" {
		pair[0] = &f.Path
	}
	if f.Checksum != "" {
		pair[1] = &f.Checksum
	}
	return json.Marshal(pair)
}

// UnmarshalJSON decodes a [path, checksum] pair.
func (f *FileRef) UnmarshalJSON(data []byte) error {
	var pair []*string
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) > 0 && pair[0] != nil {
		f.Path = *pair[0]
	}
	if len(pair) > 1 && pair[1] != nil {
		f.Checksum = *pair[1]
	}
	return nil
}

// Index lists the files belonging to every track of a dataset version.
type Index struct {
	Version string                        `json:"version"`
	Tracks  map[string]map[string]FileRef `json:"tracks"`
}

// TrackIDs returns the indexed ids in sorted order.
func (idx *Index) TrackIDs() []string {
	ids := make([]string, 0, len(idx.Tracks))
	for id := range idx.Tracks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// LoadIndex reads an index file from disk.
func LoadIndex(path string) (*Index, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open index file: %w", err)
	}
	defer file.Close()

	var idx Index
	if err := json.NewDecoder(file).Decode(&idx); err != nil {
		return nil, fmt.Errorf("failed to decode index: %w", err)
	}
	return &idx, nil
}

// SaveIndex writes an index file to disk.
func SaveIndex(idx *Index, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create index directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create index file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(idx); err != nil {
		return fmt.Errorf("failed to encode index: %w", err)
	}
	return nil
}

// Load opens version of the named dataset rooted at dataHome. An empty version
// selects DefaultVersion. Annotations are read eagerly; the audio is not.
func Load(name, dataHome, version string) (*Dataset, error) {
	if version == "" {
		version = DefaultVersion
	}
	info, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	indexFile, err := info.IndexFile(version)
	if err != nil {
		return nil, err
	}

	slog.Debug("Loading dataset index", "dataset", name, "version", version, "data_home", dataHome, "index", indexFile)

	idx, err := LoadIndex(filepath.Join(dataHome, indexFile))
	if err != nil {
		return nil, err
	}

	tracks := make([]*Track, 0, len(idx.Tracks))
	for _, id := range idx.TrackIDs() {
		track, err := trackFromIndex(id, idx.Tracks[id], dataHome)
		if err != nil {
			return nil, fmt.Errorf("failed to load track %s: %w", id, err)
		}
		tracks = append(tracks, track)
	}

	ds, err := New(name, version, dataHome, tracks)
	if err != nil {
		return nil, err
	}
	ds.index = idx

	slog.Debug("Dataset loaded", "dataset", name, "version", version, "tracks", ds.Len())
	return ds, nil
}

func trackFromIndex(id string, files map[string]FileRef, dataHome string) (*Track, error) {
	track := &Track{
		ID:    id,
		Genre: GenreFromTrackID(id),
	}
	if ref, ok := files["audio"]; ok && ref.Path != "" {
		track.AudioPath = filepath.Join(dataHome, ref.Path)
	}
	// Missing annotation files leave the track unannotated; Validate reports them.
	if ref, ok := files["beats"]; ok && ref.Path != "" {
		track.BeatsPath = filepath.Join(dataHome, ref.Path)
		beats, err := LoadBeats(track.BeatsPath)
		switch {
		case errors.Is(err, os.ErrNotExist):
			slog.Warn("Beat annotation missing", "track", id, "path", track.BeatsPath)
		case err != nil:
			return nil, err
		default:
			track.Beats = beats
		}
	}
	if ref, ok := files["tempo"]; ok && ref.Path != "" {
		path := filepath.Join(dataHome, ref.Path)
		bpm, err := LoadTempo(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			slog.Warn("Tempo annotation missing", "track", id, "path", path)
		case err != nil:
			return nil, err
		default:
			track.Tempo = bpm
		}
	}
	return track, nil
}

// ValidationReport lists index files that are absent or fail their checksum.
type ValidationReport struct {
	Missing []string
	Invalid []string
}

// OK reports whether every indexed file is present and intact.
func (r ValidationReport) OK() bool {
	return len(r.Missing) == 0 && len(r.Invalid) == 0
}

// Validate checks the indexed files of the dataset against their checksums.
// Datasets not loaded from an index validate trivially.
func (d *Dataset) Validate() (ValidationReport, error) {
	var report ValidationReport
	if d.index == nil {
		return report, nil
	}
	for _, id := range d.ids {
		files := d.index.Tracks[id]
		keys := make([]string, 0, len(files))
		for k := range files {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, key := range keys {
			ref := files[key]
			if ref.Path == "" {
				continue
			}
			path := filepath.Join(d.DataHome, ref.Path)
			sum, err := md5File(path)
			if errors.Is(err, os.ErrNotExist) {
				report.Missing = append(report.Missing, path)
				continue
			}
			if err != nil {
				return report, err
			}
			if ref.Checksum != "" && !strings.EqualFold(sum, ref.Checksum) {
				report.Invalid = append(report.Invalid, path)
			}
		}
	}
	return report, nil
}

// BuildIndex scans dataHome for the audio and annotation layout of the named
// dataset and writes the index file for version.
func BuildIndex(name, dataHome, version string) (*Index, error) {
	if version == "" {
		version = DefaultVersion
	}
	info, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	indexFile, err := info.IndexFile(version)
	if err != nil {
		return nil, err
	}

	audioRoot := filepath.Join(dataHome, info.AudioDir)
	genreDirs, err := os.ReadDir(audioRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio directory: %w", err)
	}

	limit := info.TracksPerGenre[version]
	idx := &Index{
		Version: version,
		Tracks:  make(map[string]map[string]FileRef),
	}

	for _, genreDir := range genreDirs {
		if !genreDir.IsDir() {
			continue
		}
		matches, err := filepath.Glob(filepath.Join(audioRoot, genreDir.Name(), "*.wav"))
		if err != nil {
			return nil, fmt.Errorf("failed to list audio files: %w", err)
		}
		sort.Strings(matches)
		if limit > 0 && len(matches) > limit {
			matches = matches[:limit]
		}

		for _, audioPath := range matches {
			id := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
			files := make(map[string]FileRef)

			ref, err := fileRef(dataHome, audioPath)
			if err != nil {
				return nil, err
			}
			files["audio"] = ref

			stem := annotationStem(id)
			annotations := map[string]string{
				"beats": filepath.Join(dataHome, info.AnnotationDir, "beats", stem+".beats"),
				"tempo": filepath.Join(dataHome, info.AnnotationDir, "tempo", stem+".bpm"),
			}
			for key, path := range annotations {
				if _, err := os.Stat(path); err != nil {
					slog.Debug("Annotation not found", "track", id, "kind", key, "path", path)
					continue
				}
				ref, err := fileRef(dataHome, path)
				if err != nil {
					return nil, err
				}
				files[key] = ref
			}
			idx.Tracks[id] = files
		}
	}

	if err := SaveIndex(idx, filepath.Join(dataHome, indexFile)); err != nil {
		return nil, err
	}

	slog.Info("Index built", "dataset", name, "version", version, "tracks", len(idx.Tracks))
	return idx, nil
}

func fileRef(dataHome, path string) (FileRef, error) {
	rel, err := filepath.Rel(dataHome, path)
	if err != nil {
		return FileRef{}, fmt.Errorf("failed to relativize %s: %w", path, err)
	}
	sum, err := md5File(path)
	if err != nil {
		return FileRef{}, err
	}
	return FileRef{Path: filepath.ToSlash(rel), Checksum: sum}, nil
}

func md5File(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	h := md5.New()
	if _, err := io.Copy(h, file); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
