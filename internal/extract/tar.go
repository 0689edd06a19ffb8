package extract

import (
	"archive/tar"
	"bufio"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

var gzipMagic = []byte{0x1f, 0x8b}

func (e *Extractor) extractTar(ctx context.Context, archive, dest string) (int, error) {
	fp, err := os.Open(archive)
	if err != nil {
		return 0, err
	}
	defer fp.Close()

	br := bufio.NewReader(fp)
	var r io.Reader = br

	magic, err := br.Peek(len(gzipMagic))
	if err == nil && bytes.Equal(magic, gzipMagic) {
		zr, err := gzip.NewReader(br)
		if err != nil {
			return 0, fmt.Errorf("gzip: %w", err)
		}
		defer zr.Close()
		r = zr
	}

	tr := tar.NewReader(r)
	count := 0
	for {
		if err := ctx.Err(); err != nil {
			return count, err
		}

		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			if count == 0 {
				return 0, errors.New("archive contains no entries")
			}
			return count, nil
		}
		if err != nil && !errors.Is(err, tar.ErrInsecurePath) {
			return count, fmt.Errorf("tar: %w", err)
		}

		target, err := safeJoin(dest, hdr.Name)
		if err != nil {
			return count, err
		}
		if err := checkParents(dest, target); err != nil {
			return count, err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, fileMode(hdr.FileInfo().Mode(), 0755)|0700); err != nil {
				return count, err
			}
		case tar.TypeReg:
			if err := writeFile(target, tr, fileMode(hdr.FileInfo().Mode(), 0644)); err != nil {
				return count, err
			}
		case tar.TypeSymlink:
			if err := checkLink(dest, target, hdr.Linkname); err != nil {
				return count, err
			}
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return count, err
			}
			os.Remove(target)
			if err := os.Symlink(hdr.Linkname, target); err != nil {
				return count, err
			}
		case tar.TypeLink:
			if _, err := safeJoin(dest, hdr.Linkname); err != nil {
				return count, err
			}
			source, err := walkInside(dest, dest, hdr.Linkname)
			if err != nil {
				return count, err
			}
			os.Remove(target)
			if err := os.Link(source, target); err != nil {
				return count, err
			}
		default:
			e.logger.Debug("skipping tar entry", "name", hdr.Name, "type", string(hdr.Typeflag))
			continue
		}
		count++
	}
}

// writeFile creates parent directories and copies r into path. A symlink
// already at path is replaced rather than followed.
func writeFile(path string, r io.Reader, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	if fi, err := os.Lstat(path); err == nil && fi.Mode()&os.ModeSymlink != 0 {
		if err := os.Remove(path); err != nil {
			return err
		}
	}
	out, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return out.Close()
}
