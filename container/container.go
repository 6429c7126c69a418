// Package container packages a built mod tree into the single-file format
// consumed by the game's mod loader: a magic-numbered header followed by a
// zlib-compressed, XOR-obfuscated stream of type-tagged file records.
//
// The format is deterministic: identical file sets with identical metadata
// always produce identical bytes, which keeps hash-based incremental builds
// meaningful one layer up.
package container

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// Magic is the little-endian header constant identifying a container file.
const Magic uint32 = 0xDA7ABA5E

// formatVersion is the version tag written into the compressed body.
const formatVersion int32 = 1

// Obfuscation seeds. XORed with the compressed payload length they
// initialize the multiply-with-carry keystream.
const (
	seedW uint32 = 0x12345678
	seedZ uint32 = 0x87654321
)

// FileType tags each record in the container body.
type FileType byte

// File record type tags, in wire order.
const (
	FileNone         FileType = 0
	FileData         FileType = 1
	FileImage        FileType = 2
	FileLocalization FileType = 3
	FileWaveAudio    FileType = 4
	FileOggAudio     FileType = 5
)

// Info is the mod identity tuple written into the container header block.
type Info struct {
	Name         string
	GUID         string
	VersionMajor int32
	VersionMinor int32
}

// Validate checks the identity tuple. The GUID must parse as a UUID; the
// loader uses it to distinguish installed mods.
func (i Info) Validate() error {
	if i.Name == "" {
		return errors.New("container: mod name is empty")
	}
	if _, err := uuid.Parse(i.GUID); err != nil {
		return fmt.Errorf("container: bad mod GUID %q: %w", i.GUID, err)
	}
	return nil
}

// Write assembles, compresses and obfuscates the container and writes it to
// w. Files are emitted in sorted path order; records are tagged by file
// extension and unrecognized extensions are skipped with a warning.
func Write(w io.Writer, files map[string][]byte, info Info) error {
	if err := info.Validate(); err != nil {
		return err
	}

	var body bytes.Buffer
	if err := writeBody(&body, files, info); err != nil {
		return err
	}

	return encrypt(w, body.Bytes())
}

func writeBody(w *bytes.Buffer, files map[string][]byte, info Info) error {
	writeInt(w, formatVersion)
	writeString(w, info.Name)
	writeString(w, info.GUID)
	writeInt(w, info.VersionMajor)
	writeInt(w, info.VersionMinor)

	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, p := range paths {
		data := files[p]
		name := path.Base(p)
		ext := strings.ToLower(path.Ext(p))
		stem := strings.TrimSuffix(name, path.Ext(p))

		switch ext {
		case ".json":
			w.WriteByte(byte(FileData))
			writeBytes(w, data)
		case ".png", ".jpg", ".jpeg":
			w.WriteByte(byte(FileImage))
			writeString(w, name)
			writeBytes(w, data)
		case ".xml":
			w.WriteByte(byte(FileLocalization))
			writeString(w, stem)
			writeBytes(w, data)
		case ".wav":
			w.WriteByte(byte(FileWaveAudio))
			writeString(w, stem)
			writeBytes(w, data)
		case ".ogg":
			w.WriteByte(byte(FileOggAudio))
			writeString(w, stem)
			writeBytes(w, data)
		default:
			slog.Warn("skipping file with unknown container type", "path", p)
		}
	}

	w.WriteByte(byte(FileNone))
	return nil
}

// encrypt writes the header, then the compressed body XORed with the
// keystream, then the trailing checksum byte.
func encrypt(w io.Writer, body []byte) error {
	var head [4]byte
	binary.LittleEndian.PutUint32(head[:], Magic)
	if _, err := w.Write(head[:]); err != nil {
		return fmt.Errorf("container: write header: %w", err)
	}

	data, err := compress(body)
	if err != nil {
		return err
	}

	size := uint32(len(data))
	ks := keystream{w: seedW ^ size, z: seedZ ^ size}

	var checksum byte
	for i := range data {
		checksum += data[i]
		data[i] ^= byte(ks.next())
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("container: write payload: %w", err)
	}
	if _, err := w.Write([]byte{checksum ^ byte(ks.next())}); err != nil {
		return fmt.Errorf("container: write checksum: %w", err)
	}
	return nil
}

// keystream is the deterministic multiply-with-carry pair generator used for
// payload obfuscation. Seeds depend only on the payload length, keeping the
// whole container a pure function of its inputs.
type keystream struct {
	w, z uint32
}

func (k *keystream) next() uint32 {
	k.z = 36969*(k.z&0xFFFF) + k.z>>16
	k.w = 18000*(k.w&0xFFFF) + k.w>>16
	return k.z<<16 + k.w
}

func compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(data); err != nil {
		return nil, fmt.Errorf("container: compress: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("container: compress: %w", err)
	}
	return buf.Bytes(), nil
}

func writeInt(w *bytes.Buffer, v int32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(v))
	w.Write(b[:])
}

func writeString(w *bytes.Buffer, s string) {
	writeBytes(w, []byte(s))
}

func writeBytes(w *bytes.Buffer, data []byte) {
	if len(data) == 0 {
		writeInt(w, 0)
		return
	}
	writeInt(w, int32(len(data)))
	w.Write(data)
}
