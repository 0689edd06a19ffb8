package extract

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/mmcdole/scenedl/internal/domain"
	"github.com/mmcdole/scenedl/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeArchive(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func assertSceneExtracted(t *testing.T, dest string) {
	t.Helper()
	for _, e := range testutil.SceneEntries {
		path := filepath.Join(dest, filepath.FromSlash(e.Name))
		if e.Body == "" {
			assert.DirExists(t, path)
			continue
		}
		got, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, e.Body, string(got))
	}
}

func TestFormatOf(t *testing.T) {
	cases := map[string]struct {
		filename string
		expected Format
		wantErr  bool
	}{
		"zip":          {filename: "cbox.zip", expected: FormatZip},
		"tar":          {filename: "rt4.tar", expected: FormatTar},
		"tar.gz":       {filename: "rt4.tar.gz", expected: FormatTar},
		"tgz":          {filename: "rt4.tgz", expected: FormatTar},
		"upper case":   {filename: "CBOX.ZIP", expected: FormatZip},
		"rar":          {filename: "scene.rar", wantErr: true},
		"none":         {filename: "scene", wantErr: true},
		"dir with ext": {filename: "v1.2/scene", wantErr: true},
	}

	for n, c := range cases {
		t.Run(n, func(t *testing.T) {
			f, err := FormatOf(c.filename)
			if c.wantErr {
				assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, c.expected, f)
		})
	}
}

func TestFormatOf_NamesExtension(t *testing.T) {
	_, err := FormatOf("scene.rar")
	assert.EqualError(t, err, "unsupported archive format: unknown extension .rar")
}

func TestExtract_Formats(t *testing.T) {
	cases := map[string]struct {
		name  string
		build func(testing.TB, []testutil.Entry) []byte
	}{
		"zip":              {name: "cbox.zip", build: testutil.Zip},
		"tar.gz":           {name: "cbox.tar.gz", build: testutil.TarGz},
		"plain tar":        {name: "cbox.tar", build: testutil.Tar},
		"gzipped .tar":     {name: "cbox.tar", build: testutil.TarGz},
		"uncompressed .gz": {name: "cbox.gz", build: testutil.Tar},
	}

	for n, c := range cases {
		t.Run(n, func(t *testing.T) {
			src := t.TempDir()
			dest := t.TempDir()
			archive := writeArchive(t, src, c.name, c.build(t, testutil.SceneEntries))

			require.NoError(t, New(nil).Extract(context.Background(), archive, dest))
			assertSceneExtracted(t, dest)
		})
	}
}

func TestExtract_PathTraversal(t *testing.T) {
	evil := []testutil.Entry{
		{Name: "ok.txt", Body: "fine"},
		{Name: "../evil.txt", Body: "pwned"},
	}

	cases := map[string]struct {
		name string
		data func(t *testing.T) []byte
	}{
		"zip dot-dot":    {name: "evil.zip", data: func(t *testing.T) []byte { return testutil.Zip(t, evil) }},
		"tar.gz dot-dot": {name: "evil.tar.gz", data: func(t *testing.T) []byte { return testutil.TarGz(t, evil) }},
		"zip absolute": {name: "abs.zip", data: func(t *testing.T) []byte {
			return testutil.Zip(t, []testutil.Entry{{Name: "/tmp/evil.txt", Body: "pwned"}})
		}},
		"tar nested escape": {name: "nested.tar", data: func(t *testing.T) []byte {
			return testutil.Tar(t, []testutil.Entry{{Name: "a/b/../../../evil.txt", Body: "pwned"}})
		}},
		"symlink escape": {name: "link.tar", data: func(t *testing.T) []byte {
			return testutil.TarSymlink(t, "link", "../../etc/passwd")
		}},
		"chained symlinks": {name: "chain.tar", data: func(t *testing.T) []byte {
			return testutil.Tar(t, []testutil.Entry{
				{Name: "d/"},
				{Name: "d/l", Link: ".."},
				{Name: "d/l/m", Link: ".."},
				{Name: "m/evil.txt", Body: "pwned"},
			})
		}},
		"link target through link": {name: "via.tar", data: func(t *testing.T) []byte {
			return testutil.Tar(t, []testutil.Entry{
				{Name: "l", Link: "."},
				{Name: "x", Link: "l/.."},
				{Name: "x/evil.txt", Body: "pwned"},
			})
		}},
	}

	for n, c := range cases {
		t.Run(n, func(t *testing.T) {
			root := t.TempDir()
			dest := filepath.Join(root, "work")
			require.NoError(t, os.Mkdir(dest, 0755))
			archive := writeArchive(t, root, c.name, c.data(t))

			err := New(nil).Extract(context.Background(), archive, dest)

			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrPathTraversal)
			var extractErr *domain.ExtractError
			assert.ErrorAs(t, err, &extractErr)
			assert.NoFileExists(t, filepath.Join(root, "evil.txt"))
		})
	}
}

func TestExtract_ZipTraversalWritesNothing(t *testing.T) {
	root := t.TempDir()
	dest := filepath.Join(root, "work")
	archive := writeArchive(t, root, "evil.zip", testutil.Zip(t, []testutil.Entry{
		{Name: "ok.txt", Body: "fine"},
		{Name: "../evil.txt", Body: "pwned"},
	}))

	require.Error(t, New(nil).Extract(context.Background(), archive, dest))
	assert.NoFileExists(t, filepath.Join(dest, "ok.txt"))
}

func TestExtract_InternalSymlink(t *testing.T) {
	src := t.TempDir()
	dest := t.TempDir()
	archive := writeArchive(t, src, "link.tar", testutil.TarSymlink(t, "textures/current", "v2"))

	require.NoError(t, New(nil).Extract(context.Background(), archive, dest))

	target, err := os.Readlink(filepath.Join(dest, "textures", "current"))
	require.NoError(t, err)
	assert.Equal(t, "v2", target)
}

func TestExtract_FileReplacesSymlink(t *testing.T) {
	root := t.TempDir()
	dest := filepath.Join(root, "work")
	require.NoError(t, os.Mkdir(dest, 0755))
	outside := filepath.Join(root, "outside.txt")
	require.NoError(t, os.WriteFile(outside, []byte("original"), 0644))
	require.NoError(t, os.Symlink(outside, filepath.Join(dest, "scene.xml")))

	archive := writeArchive(t, root, "scene.tar", testutil.Tar(t, []testutil.Entry{
		{Name: "scene.xml", Body: "<scene/>"},
	}))
	require.NoError(t, New(nil).Extract(context.Background(), archive, dest))

	data, err := os.ReadFile(outside)
	require.NoError(t, err)
	assert.Equal(t, "original", string(data))

	fi, err := os.Lstat(filepath.Join(dest, "scene.xml"))
	require.NoError(t, err)
	assert.True(t, fi.Mode().IsRegular())
}

func TestExtract_Corrupt(t *testing.T) {
	cases := map[string]struct {
		name string
		data []byte
	}{
		"zip":         {name: "bad.zip", data: []byte("definitely not a zip file")},
		"gzip header": {name: "bad.tar.gz", data: []byte{0x1f, 0x8b, 0x00, 0x01, 0x02}},
		"tar garbage": {name: "bad.tar", data: []byte("not a tar archive either")},
		"empty":       {name: "empty.tar", data: nil},
	}

	for n, c := range cases {
		t.Run(n, func(t *testing.T) {
			src := t.TempDir()
			archive := writeArchive(t, src, c.name, c.data)

			err := New(nil).Extract(context.Background(), archive, t.TempDir())

			var extractErr *domain.ExtractError
			require.ErrorAs(t, err, &extractErr)
			assert.Equal(t, archive, extractErr.Archive)
			assert.NotErrorIs(t, err, domain.ErrUnsupportedFormat)
		})
	}
}

func TestExtract_Unsupported(t *testing.T) {
	src := t.TempDir()
	archive := writeArchive(t, src, "scene.rar", []byte("Rar!"))

	err := New(nil).Extract(context.Background(), archive, t.TempDir())

	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)
	assert.Contains(t, err.Error(), ".rar")
	assert.FileExists(t, archive)
}

func TestExtract_CanceledContext(t *testing.T) {
	src := t.TempDir()
	archive := writeArchive(t, src, "cbox.tar.gz", testutil.TarGz(t, testutil.SceneEntries))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := New(nil).Extract(ctx, archive, t.TempDir())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSafeJoin(t *testing.T) {
	dest := t.TempDir()

	ok := []string{"a.txt", "dir/b.txt", "./c.txt", "dir/../d.txt", "dir/"}
	for _, name := range ok {
		_, err := safeJoin(dest, name)
		assert.NoError(t, err, name)
	}

	bad := []string{"../x", "/etc/passwd", "a/../../x", "..", `..\x`}
	for _, name := range bad {
		_, err := safeJoin(dest, name)
		assert.ErrorIs(t, err, domain.ErrPathTraversal, name)
	}
}

func TestWalkInside(t *testing.T) {
	dest := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dest, "real"), 0755))
	require.NoError(t, os.Symlink("real", filepath.Join(dest, "link")))

	cases := map[string]struct {
		rel string
		ok  bool
	}{
		"plain":        {rel: "real/a.txt", ok: true},
		"missing":      {rel: "new/dir/a.txt", ok: true},
		"up and back":  {rel: "real/../b.txt", ok: true},
		"through link": {rel: "link/a.txt", ok: false},
		"final link":   {rel: "link", ok: false},
		"above dest":   {rel: "../a.txt", ok: false},
		"dips above":   {rel: "real/../../a.txt", ok: false},
	}

	for n, c := range cases {
		t.Run(n, func(t *testing.T) {
			_, err := walkInside(dest, dest, c.rel)
			if c.ok {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, domain.ErrPathTraversal)
		})
	}
}
