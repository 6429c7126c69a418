package output

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flushOne(t *testing.T, root string, files map[string][]byte) {
	t.Helper()
	w, err := NewWriter(root)
	require.NoError(t, err)
	for rel, data := range files {
		require.NoError(t, w.Add(rel, data))
	}
	require.NoError(t, w.Flush())
}

func TestWriterBasics(t *testing.T) {
	t.Run("WritesFilesAndManifest", func(t *testing.T) {
		root := t.TempDir()
		flushOne(t, root, map[string][]byte{
			"a.json":     []byte(`{"a":1}`),
			"sub/b.json": []byte(`{"b":2}`),
		})

		assert.FileExists(t, filepath.Join(root, "a.json"))
		assert.FileExists(t, filepath.Join(root, "sub", "b.json"))
		assert.FileExists(t, filepath.Join(root, manifestName))
		assert.NoFileExists(t, filepath.Join(root, manifestBackupName))
	})

	t.Run("UnchangedFileSkipped", func(t *testing.T) {
		root := t.TempDir()
		files := map[string][]byte{"a.json": []byte(`{"a":1}`)}
		flushOne(t, root, files)

		target := filepath.Join(root, "a.json")
		past := time.Now().Add(-time.Hour)
		require.NoError(t, os.Chtimes(target, past, past))

		flushOne(t, root, files)
		info, err := os.Stat(target)
		require.NoError(t, err)
		assert.True(t, info.ModTime().Before(past.Add(time.Minute)), "unchanged file was rewritten")
	})

	t.Run("ChangedFileRewritten", func(t *testing.T) {
		root := t.TempDir()
		flushOne(t, root, map[string][]byte{"a.json": []byte(`{"a":1}`)})
		flushOne(t, root, map[string][]byte{"a.json": []byte(`{"a":2}`)})

		data, err := os.ReadFile(filepath.Join(root, "a.json"))
		require.NoError(t, err)
		assert.Equal(t, `{"a":2}`, string(data))
	})
}

func TestWriterGuards(t *testing.T) {
	t.Run("DuplicatePath", func(t *testing.T) {
		w, err := NewWriter(t.TempDir())
		require.NoError(t, err)
		require.NoError(t, w.Add("a.json", []byte("1")))
		err = w.Add("a.json", []byte("2"))
		assert.ErrorIs(t, err, ErrDuplicateFile)
	})

	t.Run("PathOutsideRoot", func(t *testing.T) {
		w, err := NewWriter(t.TempDir())
		require.NoError(t, err)
		assert.ErrorIs(t, w.Add("../escape.json", []byte("1")), ErrOutsideRoot)
		assert.ErrorIs(t, w.Add("sub/../../escape.json", []byte("1")), ErrOutsideRoot)
		assert.ErrorIs(t, w.Add("/abs.json", []byte("1")), ErrOutsideRoot)
	})

	t.Run("LeftoverBackupRefused", func(t *testing.T) {
		root := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(root, manifestBackupName), []byte("x"), 0o644))
		_, err := NewWriter(root)
		assert.ErrorIs(t, err, ErrBackupPresent)

		var pathErr *PathError
		require.ErrorAs(t, err, &pathErr)
		assert.Contains(t, pathErr.Path, manifestBackupName)
	})
}

func TestStaleCollection(t *testing.T) {
	root := t.TempDir()
	flushOne(t, root, map[string][]byte{
		"keep.json": []byte("1"),
		"gone.json": []byte("2"),
	})
	flushOne(t, root, map[string][]byte{
		"keep.json": []byte("1"),
	})

	assert.FileExists(t, filepath.Join(root, "keep.json"))
	assert.NoFileExists(t, filepath.Join(root, "gone.json"))

	// The stale file is preserved under the trash area, not destroyed.
	trashed := 0
	err := filepath.Walk(filepath.Join(root, trashDirName), func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Base(p) == "gone.json" {
			trashed++
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, trashed)
}

func TestManifestRoundTrip(t *testing.T) {
	hashes := map[string][]byte{
		"a.json":     {1, 2, 3},
		"sub/b.json": {4, 5, 6},
	}
	encoded, err := encodeManifest(hashes)
	require.NoError(t, err)

	decoded, err := decodeManifest(encoded)
	require.NoError(t, err)
	assert.Equal(t, hashes, decoded)

	t.Run("EmptyManifest", func(t *testing.T) {
		encoded, err := encodeManifest(map[string][]byte{})
		require.NoError(t, err)
		decoded, err := decodeManifest(encoded)
		require.NoError(t, err)
		assert.Empty(t, decoded)
	})

	t.Run("GarbageRejected", func(t *testing.T) {
		_, err := decodeManifest([]byte("not a manifest"))
		assert.Error(t, err)
	})
}
