// Package output writes build products incrementally: serialized bytes are
// hashed against a persisted manifest so unchanged files are never rewritten,
// and files the build no longer produces are garbage collected.
package output

import (
	"bytes"
	"compress/zlib"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/sync/errgroup"
)

const (
	manifestName       = ".managed_files"
	manifestBackupName = ".managed_files.bk"
	trashDirName       = ".trash"
)

// Sentinel errors for the hard-failure cases callers may want to branch on.
var (
	// ErrBackupPresent means a manifest backup from an interrupted run
	// exists; the writer refuses to touch anything until it is removed.
	ErrBackupPresent = errors.New("output: manifest backup present")
	// ErrDuplicateFile means two logical outputs computed the same path.
	ErrDuplicateFile = errors.New("output: duplicate output file")
	// ErrOutsideRoot means an output path escapes the managed root.
	ErrOutsideRoot = errors.New("output: file outside of output root")
)

// PathError annotates one of the sentinel failures with the offending path.
type PathError struct {
	Path string
	Err  error
}

// Error implements the error interface.
func (e *PathError) Error() string {
	return fmt.Sprintf("%v: %q", e.Err, e.Path)
}

// Unwrap returns the sentinel cause.
func (e *PathError) Unwrap() error { return e.Err }

// Writer accumulates the full set of files one build pass produces, then
// flushes them in a single incremental, hash-deduplicated write.
type Writer struct {
	root   string
	files  map[string][]byte
	hashes map[string][]byte
}

// NewWriter opens the managed directory and loads the previous manifest.
// A leftover manifest backup is a hard failure: it means a previous flush
// was interrupted and the directory state is unverified.
func NewWriter(root string) (*Writer, error) {
	w := &Writer{
		root:  root,
		files: make(map[string][]byte),
	}

	backupPath := filepath.Join(root, manifestBackupName)
	if _, err := os.Stat(backupPath); err == nil {
		return nil, &PathError{Path: backupPath, Err: ErrBackupPresent}
	}

	manifestPath := filepath.Join(root, manifestName)
	data, err := os.ReadFile(manifestPath)
	switch {
	case err == nil:
		hashes, err := decodeManifest(data)
		if err != nil {
			return nil, fmt.Errorf("output: decode manifest %q: %w", manifestPath, err)
		}
		w.hashes = hashes
	case os.IsNotExist(err):
		empty, err := encodeManifest(map[string][]byte{})
		if err != nil {
			return nil, err
		}
		if err := os.WriteFile(manifestPath, empty, 0o644); err != nil {
			return nil, fmt.Errorf("output: write manifest %q: %w", manifestPath, err)
		}
		w.hashes = map[string][]byte{}
	default:
		return nil, fmt.Errorf("output: read manifest %q: %w", manifestPath, err)
	}

	return w, nil
}

// Add queues bytes for the relative path rel. Paths are slash-separated and
// must stay inside the root; queuing the same path twice is a hard failure.
func (w *Writer) Add(rel string, data []byte) error {
	clean := path.Clean(strings.ReplaceAll(rel, "\\", "/"))
	if path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
		return &PathError{Path: rel, Err: ErrOutsideRoot}
	}
	if _, dup := w.files[clean]; dup {
		return &PathError{Path: clean, Err: ErrDuplicateFile}
	}
	w.files[clean] = data
	return nil
}

// Flush writes every queued file whose content hash changed, records the new
// manifest, and garbage collects previously-managed files that are no longer
// produced. Stale files are moved into a .trash area under the root rather
// than deleted, so a manifest bug cannot destroy user data.
func (w *Writer) Flush() error {
	manifestPath := filepath.Join(w.root, manifestName)
	backupPath := filepath.Join(w.root, manifestBackupName)

	prev, err := os.ReadFile(manifestPath)
	if err != nil {
		return fmt.Errorf("output: read manifest %q: %w", manifestPath, err)
	}
	if err := os.WriteFile(backupPath, prev, 0o644); err != nil {
		return fmt.Errorf("output: create manifest backup: %w", err)
	}

	rels := make([]string, 0, len(w.files))
	dirs := make(map[string]struct{})
	for rel := range w.files {
		rels = append(rels, rel)
		dirs[filepath.Dir(filepath.Join(w.root, filepath.FromSlash(rel)))] = struct{}{}
	}
	sort.Strings(rels)

	for dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("output: create directory %q: %w", dir, err)
		}
	}

	// Files are independent once their bytes are computed; hash and write
	// them in parallel and join before assembling the new manifest.
	var (
		mu        sync.Mutex
		newHashes = make(map[string][]byte, len(rels))
		written   atomic.Int64
	)
	var g errgroup.Group
	for _, rel := range rels {
		rel := rel
		g.Go(func() error {
			data := w.files[rel]
			sum := sha256.Sum256(data)
			hash := sum[:]

			if old, ok := w.hashes[rel]; !ok || !bytes.Equal(old, hash) {
				full := filepath.Join(w.root, filepath.FromSlash(rel))
				if err := os.WriteFile(full, data, 0o644); err != nil {
					return fmt.Errorf("output: write %q: %w", full, err)
				}
				written.Add(1)
			}

			mu.Lock()
			newHashes[rel] = hash
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	encoded, err := encodeManifest(newHashes)
	if err != nil {
		return err
	}
	if err := os.WriteFile(manifestPath, encoded, 0o644); err != nil {
		return fmt.Errorf("output: write manifest %q: %w", manifestPath, err)
	}

	cleaned, err := w.collectStale(newHashes)
	if err != nil {
		return err
	}

	if err := os.Remove(backupPath); err != nil {
		return fmt.Errorf("output: remove manifest backup: %w", err)
	}

	slog.Debug("output flushed",
		"updated_files", written.Load(),
		"skipped_files", int64(len(rels))-written.Load(),
		"cleaned_files", cleaned)
	return nil
}

// collectStale moves previously-managed files absent from the new manifest
// into a timestamped .trash subdirectory.
func (w *Writer) collectStale(newHashes map[string][]byte) (int, error) {
	var stale []string
	for rel := range w.hashes {
		if _, ok := newHashes[rel]; !ok {
			stale = append(stale, rel)
		}
	}
	if len(stale) == 0 {
		return 0, nil
	}
	sort.Strings(stale)

	trashDir := filepath.Join(w.root, trashDirName, fmt.Sprintf("%d", time.Now().UnixNano()))
	moved := 0
	for _, rel := range stale {
		full := filepath.Join(w.root, filepath.FromSlash(rel))
		if _, err := os.Stat(full); err != nil {
			continue
		}
		dest := filepath.Join(trashDir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return moved, fmt.Errorf("output: prepare trash directory: %w", err)
		}
		if err := os.Rename(full, dest); err != nil {
			return moved, fmt.Errorf("output: trash stale file %q: %w", rel, err)
		}
		moved++
	}
	return moved, nil
}

func encodeManifest(hashes map[string][]byte) ([]byte, error) {
	raw, err := msgpack.Marshal(hashes)
	if err != nil {
		return nil, fmt.Errorf("output: encode manifest: %w", err)
	}
	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(raw); err != nil {
		return nil, fmt.Errorf("output: compress manifest: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("output: compress manifest: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeManifest(data []byte) (map[string][]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, err
	}
	var hashes map[string][]byte
	if err := msgpack.Unmarshal(raw, &hashes); err != nil {
		return nil, err
	}
	if hashes == nil {
		hashes = map[string][]byte{}
	}
	return hashes, nil
}
