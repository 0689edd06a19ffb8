package extract

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"os"
)

func (e *Extractor) extractZip(ctx context.Context, archive, dest string) (int, error) {
	// Insecure names are reported by safeJoin below.
	zr, err := zip.OpenReader(archive)
	if err != nil && !errors.Is(err, zip.ErrInsecurePath) {
		return 0, fmt.Errorf("zip: %w", err)
	}
	defer zr.Close()

	if len(zr.File) == 0 {
		return 0, errors.New("archive contains no entries")
	}

	// All names are validated before the first entry is written.
	targets := make([]string, len(zr.File))
	for i, f := range zr.File {
		target, err := safeJoin(dest, f.Name)
		if err != nil {
			return 0, err
		}
		targets[i] = target
	}

	for i, f := range zr.File {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		if err := checkParents(dest, targets[i]); err != nil {
			return i, err
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(targets[i], fileMode(f.Mode(), 0755)|0700); err != nil {
				return i, err
			}
			continue
		}

		if err := extractZipFile(f, targets[i]); err != nil {
			return i, err
		}
	}
	return len(zr.File), nil
}

func extractZipFile(f *zip.File, target string) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("zip: %s: %w", f.Name, err)
	}
	defer rc.Close()

	return writeFile(target, rc, fileMode(f.Mode(), 0644))
}
