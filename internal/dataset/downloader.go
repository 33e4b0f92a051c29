package dataset

import (
	"archive/tar"
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// DownloadConfig configures dataset downloading
type DownloadConfig struct {
	DataHome      string
	ForceDownload bool
	Token         string // bearer token for private mirrors
	Client        *http.Client
}

// Downloader fetches and caches dataset remotes into a data home
type Downloader struct {
	config DownloadConfig
}

// NewDownloader creates a new dataset downloader
func NewDownloader(config DownloadConfig) *Downloader {
	// Expand ~ to home directory
	if strings.HasPrefix(config.DataHome, "~") {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			config.DataHome = filepath.Join(homeDir, config.DataHome[1:])
		}
	}
	if config.Client == nil {
		config.Client = &http.Client{}
	}

	return &Downloader{
		config: config,
	}
}

// Download fetches every remote of the named dataset, or only the listed ones.
func (d *Downloader) Download(name string, only ...string) error {
	info, err := Lookup(name)
	if err != nil {
		return err
	}

	keys := only
	if len(keys) == 0 {
		for key := range info.Remotes {
			keys = append(keys, key)
		}
	}

	for _, key := range keys {
		remote, ok := info.Remotes[key]
		if !ok {
			return fmt.Errorf("dataset %s has no remote %q", name, key)
		}
		if _, err := d.Fetch(remote); err != nil {
			return fmt.Errorf("failed to fetch %s: %w", key, err)
		}
	}
	return nil
}

// Fetch downloads one remote into the data home, unpacking it if requested.
// Returns the path of the downloaded file.
func (d *Downloader) Fetch(remote Remote) (string, error) {
	if err := os.MkdirAll(d.config.DataHome, 0755); err != nil {
		return "", fmt.Errorf("failed to create data home: %w", err)
	}

	cachedPath := filepath.Join(d.config.DataHome, remote.Filename)

	// Check if file already exists in cache
	if !d.config.ForceDownload {
		if _, err := os.Stat(cachedPath); err == nil {
			slog.Info("Using cached remote", "path", cachedPath)
			return cachedPath, nil
		}
	}

	slog.Info("Downloading remote", "url", remote.URL, "file", remote.Filename)

	if err := d.downloadFile(remote.URL, cachedPath); err != nil {
		return "", fmt.Errorf("failed to download: %w", err)
	}

	if remote.Unpack {
		if err := Unpack(cachedPath, d.config.DataHome); err != nil {
			return "", err
		}
	}

	slog.Info("Remote downloaded successfully", "path", cachedPath)
	return cachedPath, nil
}

// downloadFile downloads a file from a URL to a local path
func (d *Downloader) downloadFile(url, destPath string) error {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if d.config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+d.config.Token)
	}

	resp, err := d.config.Client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed with status: %d", resp.StatusCode)
	}

	tempPath := destPath + ".tmp"
	out, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	written, err := io.Copy(out, resp.Body)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("download failed: %w", err)
	}

	slog.Debug("Download finished", "bytes", written, "total_bytes", resp.ContentLength)

	// Move temp file to final location
	if err := os.Rename(tempPath, destPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to move file: %w", err)
	}

	return nil
}

// Unpack extracts a .zip, .tar.gz or .tgz archive into dest.
func Unpack(archive, dest string) error {
	name := strings.ToLower(archive)
	switch {
	case strings.HasSuffix(name, ".zip"):
		return Unzip(archive, dest)
	case strings.HasSuffix(name, ".tar.gz"), strings.HasSuffix(name, ".tgz"):
		return Untar(archive, dest)
	default:
		return fmt.Errorf("unsupported archive format: %s", filepath.Base(archive))
	}
}

// Untar extracts a gzip compressed tar archive into dest, refusing entries
// that escape dest.
func Untar(archive, dest string) error {
	file, err := os.Open(archive)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer file.Close()

	gz, err := gzip.NewReader(file)
	if err != nil {
		return fmt.Errorf("failed to read gzip stream: %w", err)
	}
	defer gz.Close()

	root := filepath.Clean(dest) + string(os.PathSeparator)
	tr := tar.NewReader(gz)
	entries := 0
	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read archive: %w", err)
		}

		target := filepath.Join(dest, header.Name)
		if !strings.HasPrefix(target, root) {
			return fmt.Errorf("archive entry escapes destination: %s", header.Name)
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return fmt.Errorf("failed to create directory: %w", err)
			}
		case tar.TypeReg:
			if err := writeEntry(tr, target); err != nil {
				return fmt.Errorf("failed to extract %s: %w", header.Name, err)
			}
			entries++
		default:
			slog.Debug("Skipping archive entry", "name", header.Name, "type", header.Typeflag)
		}
	}

	slog.Debug("Archive extracted", "archive", archive, "files", entries)
	return nil
}

func writeEntry(r io.Reader, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}
	out, err := os.Create(target)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, r)
	return err
}

// Unzip extracts archive into dest, refusing entries that escape dest.
func Unzip(archive, dest string) error {
	r, err := zip.OpenReader(archive)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer r.Close()

	root := filepath.Clean(dest) + string(os.PathSeparator)
	for _, f := range r.File {
		target := filepath.Join(dest, f.Name)
		if !strings.HasPrefix(target, root) {
			return fmt.Errorf("archive entry escapes destination: %s", f.Name)
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0755); err != nil {
				return fmt.Errorf("failed to create directory: %w", err)
			}
			continue
		}
		if err := extractFile(f, target); err != nil {
			return err
		}
	}

	slog.Debug("Archive extracted", "archive", archive, "entries", len(r.File))
	return nil
}

func extractFile(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("failed to open archive entry %s: %w", f.Name, err)
	}
	defer rc.Close()

	out, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", target, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, rc); err != nil {
		return fmt.Errorf("failed to extract %s: %w", f.Name, err)
	}
	return nil
}
