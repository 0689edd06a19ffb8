// Package extract unpacks scene archives into a destination directory.
//
// The format is chosen from the file extension: ".zip" archives are read
// with archive/zip, ".tar", ".gz" and ".tgz" archives with archive/tar.
// Tar archives are sniffed for the gzip magic so plain and compressed tars
// both work regardless of which of those extensions they carry.
//
// Every entry is resolved against the destination before anything is
// written; entries that would land outside it abort the extraction. Entries
// are never written through a symlink created earlier in the same archive.
package extract

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mmcdole/scenedl/internal/domain"
)

// Format identifies an archive container.
type Format string

const (
	FormatTar Format = "tar"
	FormatZip Format = "zip"
)

// FormatOf returns the archive format for a file name, or
// domain.ErrUnsupportedFormat naming the offending extension.
func FormatOf(filename string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".tar", ".gz", ".tgz":
		return FormatTar, nil
	case ".zip":
		return FormatZip, nil
	case "":
		return "", fmt.Errorf("%w: %s has no extension", domain.ErrUnsupportedFormat, filepath.Base(filename))
	default:
		return "", fmt.Errorf("%w: unknown extension %s", domain.ErrUnsupportedFormat, ext)
	}
}

// Extractor unpacks archives.
type Extractor struct {
	logger *slog.Logger
}

// New creates an Extractor.
func New(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{logger: logger}
}

// Extract unpacks archive into dir. Failures inside the archive are returned
// as *domain.ExtractError; an unknown extension is returned unwrapped.
func (e *Extractor) Extract(ctx context.Context, archive, dir string) error {
	format, err := FormatOf(archive)
	if err != nil {
		return err
	}

	dest, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("failed to resolve destination %s: %w", dir, err)
	}
	if err := os.MkdirAll(dest, 0755); err != nil {
		return fmt.Errorf("failed to create destination %s: %w", dest, err)
	}

	e.logger.Debug("extracting", "archive", archive, "format", format, "dest", dest)

	var count int
	switch format {
	case FormatZip:
		count, err = e.extractZip(ctx, archive, dest)
	default:
		count, err = e.extractTar(ctx, archive, dest)
	}
	if err != nil {
		e.logger.Error("extraction failed", "archive", archive, "error", err)
		return &domain.ExtractError{Archive: archive, Err: err}
	}

	e.logger.Info("extracted archive", "archive", archive, "entries", count, "dest", dest)
	return nil
}

// safeJoin resolves an archive entry name inside dest. It rejects absolute
// names and names whose cleaned form leaves dest.
func safeJoin(dest, name string) (string, error) {
	normalized := strings.ReplaceAll(name, `\`, "/")
	if strings.HasPrefix(normalized, "/") || filepath.IsAbs(name) || filepath.VolumeName(name) != "" {
		return "", fmt.Errorf("%w: %s", domain.ErrPathTraversal, name)
	}

	target := filepath.Join(dest, filepath.FromSlash(normalized))
	if !within(dest, target) {
		return "", fmt.Errorf("%w: %s", domain.ErrPathTraversal, name)
	}
	return target, nil
}

// checkParents fails when a directory between dest and target is a symlink
// already on disk.
func checkParents(dest, target string) error {
	rel, err := filepath.Rel(dest, filepath.Dir(target))
	if err != nil {
		return fmt.Errorf("%w: %s", domain.ErrPathTraversal, target)
	}
	_, err = walkInside(dest, dest, filepath.ToSlash(rel))
	return err
}

// checkLink verifies a symlink at path pointing to linkname stays inside dest.
// The link target may not pass through another symlink.
func checkLink(dest, path, linkname string) error {
	if filepath.IsAbs(linkname) || strings.HasPrefix(strings.ReplaceAll(linkname, `\`, "/"), "/") {
		return fmt.Errorf("%w: link %s -> %s", domain.ErrPathTraversal, path, linkname)
	}
	if _, err := walkInside(dest, filepath.Dir(path), linkname); err != nil {
		return fmt.Errorf("%w: link %s -> %s", domain.ErrPathTraversal, path, linkname)
	}
	return nil
}

// walkInside applies the slash-separated rel to base one element at a time.
// Every step must stay inside dest and must not be an existing symlink.
func walkInside(dest, base, rel string) (string, error) {
	cur := base
	for _, elem := range strings.Split(strings.ReplaceAll(rel, `\`, "/"), "/") {
		switch elem {
		case "", ".":
			continue
		case "..":
			cur = filepath.Dir(cur)
		default:
			cur = filepath.Join(cur, elem)
		}

		if !within(dest, cur) {
			return "", fmt.Errorf("%w: %s", domain.ErrPathTraversal, rel)
		}
		if cur == dest {
			continue
		}
		fi, err := os.Lstat(cur)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return "", err
		}
		if fi.Mode()&os.ModeSymlink != 0 {
			return "", fmt.Errorf("%w: %s passes through link %s", domain.ErrPathTraversal, rel, cur)
		}
	}
	return cur, nil
}

func within(dest, path string) bool {
	rel, err := filepath.Rel(dest, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func fileMode(mode os.FileMode, fallback os.FileMode) os.FileMode {
	perm := mode.Perm()
	if perm == 0 {
		return fallback
	}
	return perm
}
