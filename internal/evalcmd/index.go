package evalcmd

import (
	"fmt"
	"io"

	"github.com/lehigh-university-libraries/beatbench/internal/dataset"
)

func executeIndex(w io.Writer, flags datasetFlags) error {
	idx, err := dataset.BuildIndex(flags.Name, flags.DataHome, flags.Version)
	if err != nil {
		return fmt.Errorf("failed to build index: %w", err)
	}

	withBeats := 0
	for _, files := range idx.Tracks {
		if _, ok := files["beats"]; ok {
			withBeats++
		}
	}
	fmt.Fprintf(w, "Indexed %d tracks (%d with beat annotations) for %s %s\n",
		len(idx.Tracks), withBeats, flags.Name, idx.Version)
	return nil
}

func executeValidate(w io.Writer, flags datasetFlags) error {
	ds, err := dataset.Load(flags.Name, flags.DataHome, flags.Version)
	if err != nil {
		return fmt.Errorf("failed to load dataset: %w", err)
	}

	report, err := ds.Validate()
	if err != nil {
		return fmt.Errorf("failed to validate dataset: %w", err)
	}

	for _, path := range report.Missing {
		fmt.Fprintf(w, "missing: %s\n", path)
	}
	for _, path := range report.Invalid {
		fmt.Fprintf(w, "checksum mismatch: %s\n", path)
	}
	if !report.OK() {
		return fmt.Errorf("dataset %s %s failed validation: %d missing, %d invalid",
			ds.Name, ds.Version, len(report.Missing), len(report.Invalid))
	}

	fmt.Fprintf(w, "Dataset %s %s is valid (%d tracks)\n", ds.Name, ds.Version, ds.Len())
	return nil
}

func executeDownload(flags datasetFlags, token string, force, index bool, remotes []string) error {
	downloader := dataset.NewDownloader(dataset.DownloadConfig{
		DataHome:      flags.DataHome,
		ForceDownload: force,
		Token:         token,
	})
	if err := downloader.Download(flags.Name, remotes...); err != nil {
		return err
	}
	if !index {
		return nil
	}
	_, err := dataset.BuildIndex(flags.Name, flags.DataHome, flags.Version)
	return err
}
