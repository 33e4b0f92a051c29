package dataset

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownDataset is returned for dataset names missing from the registry.
	ErrUnknownDataset = errors.New("unknown dataset")
	// ErrUnknownVersion is returned for versions a dataset does not provide.
	ErrUnknownVersion = errors.New("unknown dataset version")
	// ErrTrackNotFound is returned when looking up an id the dataset does not hold.
	ErrTrackNotFound = errors.New("track not found")
)

// Track is one annotated audio excerpt.
type Track struct {
	ID        string    `json:"track_id" parquet:"track_id"`
	Genre     string    `json:"genre" parquet:"genre"`
	Tempo     float64   `json:"tempo" parquet:"tempo"`
	AudioPath string    `json:"audio_path" parquet:"audio_path"`
	BeatsPath string    `json:"beats_path,omitempty" parquet:"beats_path,optional"`
	Beats     []float64 `json:"beats,omitempty" parquet:"beats,list"`
}

// Dataset is an ordered, read-only collection of tracks keyed by id.
type Dataset struct {
	Name     string
	Version  string
	DataHome string

	ids    []string
	tracks map[string]*Track
	index  *Index
}

// New builds a dataset from tracks in the given order. Duplicate ids are an error.
func New(name, version, dataHome string, tracks []*Track) (*Dataset, error) {
	ds := &Dataset{
		Name:     name,
		Version:  version,
		DataHome: dataHome,
		ids:      make([]string, 0, len(tracks)),
		tracks:   make(map[string]*Track, len(tracks)),
	}
	for _, t := range tracks {
		if _, dup := ds.tracks[t.ID]; dup {
			return nil, fmt.Errorf("duplicate track id %q", t.ID)
		}
		ds.ids = append(ds.ids, t.ID)
		ds.tracks[t.ID] = t
	}
	return ds, nil
}

// IDs returns the track ids in dataset order.
func (d *Dataset) IDs() []string {
	out := make([]string, len(d.ids))
	copy(out, d.ids)
	return out
}

// Len returns the number of tracks.
func (d *Dataset) Len() int {
	return len(d.ids)
}

// Track returns the track with the given id.
func (d *Dataset) Track(id string) (*Track, bool) {
	t, ok := d.tracks[id]
	return t, ok
}

// Lookup is Track with an ErrTrackNotFound error for absent ids.
func (d *Dataset) Lookup(id string) (*Track, error) {
	t, ok := d.tracks[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTrackNotFound, id)
	}
	return t, nil
}

// Tracks returns the tracks in dataset order.
func (d *Dataset) Tracks() []*Track {
	out := make([]*Track, 0, len(d.ids))
	for _, id := range d.ids {
		out = append(out, d.tracks[id])
	}
	return out
}

// Sample returns a dataset holding the first n tracks. n <= 0 keeps all.
func (d *Dataset) Sample(n int) *Dataset {
	if n <= 0 || n >= len(d.ids) {
		return d
	}
	sub, _ := New(d.Name, d.Version, d.DataHome, d.Tracks()[:n])
	sub.index = d.index
	return sub
}

// FilterGenres returns a dataset holding only tracks of the given genres.
func (d *Dataset) FilterGenres(genres ...string) *Dataset {
	if len(genres) == 0 {
		return d
	}
	keep := make(map[string]bool, len(genres))
	for _, g := range genres {
		keep[strings.ToLower(strings.TrimSpace(g))] = true
	}
	var tracks []*Track
	for _, t := range d.Tracks() {
		if keep[strings.ToLower(t.Genre)] {
			tracks = append(tracks, t)
		}
	}
	sub, _ := New(d.Name, d.Version, d.DataHome, tracks)
	sub.index = d.index
	return sub
}

// GenreFromTrackID derives the genre label from a GTZAN style id such as
// "blues.00000".
func GenreFromTrackID(id string) string {
	genre, _, _ := strings.Cut(id, ".")
	if genre == "hiphop" {
		return "hip-hop"
	}
	return genre
}
