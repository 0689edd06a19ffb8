// Package testutil builds archive fixtures for tests.
package testutil

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

// Entry is a file placed in a fixture archive. Entries whose name ends in
// "/" become directories; tar entries with a Link become symlinks.
type Entry struct {
	Name string
	Body string
	Link string
}

// SceneEntries is a small scene layout used across tests.
var SceneEntries = []Entry{
	{Name: "cbox/"},
	{Name: "cbox/cbox.xml", Body: "<scene version=\"0.5.0\"/>"},
	{Name: "cbox/meshes/cbox_floor.obj", Body: "v 0 0 0\nv 1 0 0\nv 0 0 1\nf 1 2 3\n"},
}

// Zip returns a zip archive holding entries.
func Zip(t testing.TB, entries []Entry) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		w, err := zw.Create(e.Name)
		require.NoError(t, err, "zip create %s", e.Name)
		_, err = w.Write([]byte(e.Body))
		require.NoError(t, err, "zip write %s", e.Name)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// Tar returns an uncompressed tar archive holding entries.
func Tar(t testing.TB, entries []Entry) []byte {
	t.Helper()

	var buf bytes.Buffer
	writeTar(t, &buf, entries)
	return buf.Bytes()
}

// TarGz returns a gzip-compressed tar archive holding entries.
func TarGz(t testing.TB, entries []Entry) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	writeTar(t, zw, entries)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// TarSymlink returns a tar archive with one symlink entry.
func TarSymlink(t testing.TB, name, target string) []byte {
	t.Helper()
	return Tar(t, []Entry{{Name: name, Link: target}})
}

func writeTar(t testing.TB, w io.Writer, entries []Entry) {
	t.Helper()

	tw := tar.NewWriter(w)
	for _, e := range entries {
		hdr := &tar.Header{Name: e.Name, Mode: 0644, Size: int64(len(e.Body)), Typeflag: tar.TypeReg}
		switch {
		case e.Link != "":
			hdr.Typeflag = tar.TypeSymlink
			hdr.Linkname = e.Link
			hdr.Mode = 0777
			hdr.Size = 0
		case len(e.Name) > 0 && e.Name[len(e.Name)-1] == '/':
			hdr.Typeflag = tar.TypeDir
			hdr.Mode = 0755
			hdr.Size = 0
		}
		require.NoError(t, tw.WriteHeader(hdr), "tar header %s", e.Name)
		if hdr.Size > 0 {
			_, err := tw.Write([]byte(e.Body))
			require.NoError(t, err, "tar write %s", e.Name)
		}
	}
	require.NoError(t, tw.Close())
}
