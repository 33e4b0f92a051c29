package dataset

import (
	"fmt"
	"sort"
)

// DefaultVersion is the version loaded when none is requested.
const DefaultVersion = "mini"

// Remote is a downloadable archive or file that makes up part of a dataset.
type Remote struct {
	Filename string
	URL      string
	// Unpack extracts a .zip or .tar.gz archive into the data home after download.
	Unpack bool
}

// Info describes a dataset known to the registry.
type Info struct {
	Name string
	// Indexes maps a version tag to the index file name under the data home.
	Indexes map[string]string
	// AudioDir and AnnotationDir are the layout BuildIndex scans.
	AudioDir      string
	AnnotationDir string
	// TracksPerGenre caps how many tracks per genre a version's index holds.
	TracksPerGenre map[string]int
	Remotes        map[string]Remote
}

var registry = map[string]Info{
	"gtzan_genre": {
		Name: "gtzan_genre",
		Indexes: map[string]string{
			"default": "gtzan_genre_index_1.0.json",
			"1.0":     "gtzan_genre_index_1.0.json",
			"mini":    "gtzan_genre_index_1.0_mini.json",
		},
		AudioDir:      "genres",
		AnnotationDir: "gtzan_tempo_beat-main",
		TracksPerGenre: map[string]int{
			"mini": 10,
		},
		Remotes: map[string]Remote{
			"audio": {
				Filename: "genres.tar.gz",
				URL:      "https://huggingface.co/datasets/marsyas/gtzan/resolve/main/data/genres.tar.gz",
				Unpack:   true,
			},
			"annotations": {
				Filename: "gtzan_tempo_beat-main.zip",
				URL:      "https://github.com/TempoBeatDownbeat/gtzan_tempo_beat/archive/refs/heads/main.zip",
				Unpack:   true,
			},
		},
	},
}

// Lookup returns the registry entry for name.
func Lookup(name string) (Info, error) {
	info, ok := registry[name]
	if !ok {
		return Info{}, fmt.Errorf("%w: %s (available: %v)", ErrUnknownDataset, name, Names())
	}
	return info, nil
}

// Names lists registered datasets in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IndexFile returns the index file name for a version.
func (i Info) IndexFile(version string) (string, error) {
	if version == "" {
		version = DefaultVersion
	}
	file, ok := i.Indexes[version]
	if !ok {
		return "", fmt.Errorf("%w: %s has no version %q", ErrUnknownVersion, i.Name, version)
	}
	return file, nil
}
