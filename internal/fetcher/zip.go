package fetcher

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// ExtractZIP unpacks every entry of the archive under destDir and returns
// the extracted file paths. District boundary sets ship as zipped
// shapefiles, so archives stay small and are unpacked eagerly.
func ExtractZIP(zipPath, destDir string) ([]string, error) {
	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: open zip %s", zipPath)
	}
	defer zr.Close()

	var extracted []string
	for _, entry := range zr.File {
		if entry.FileInfo().IsDir() {
			continue
		}
		path, err := writeZIPEntry(entry, destDir)
		if err != nil {
			return nil, err
		}
		extracted = append(extracted, path)
	}
	return extracted, nil
}

func writeZIPEntry(entry *zip.File, destDir string) (string, error) {
	// Entry names come from the archive; refuse anything resolving outside
	// the destination.
	path := filepath.Join(destDir, entry.Name)
	if !strings.HasPrefix(path, filepath.Clean(destDir)+string(os.PathSeparator)) {
		return "", eris.Errorf("fetcher: zip entry escapes destination: %s", entry.Name)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", eris.Wrapf(err, "fetcher: mkdir for %s", path)
	}

	src, err := entry.Open()
	if err != nil {
		return "", eris.Wrapf(err, "fetcher: open zip entry %s", entry.Name)
	}
	defer src.Close()

	dst, err := os.Create(path)
	if err != nil {
		return "", eris.Wrapf(err, "fetcher: create %s", path)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", eris.Wrapf(err, "fetcher: extract %s", entry.Name)
	}
	return path, nil
}
