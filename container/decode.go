package container

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// File is one decoded container record.
type File struct {
	Type FileType
	// Name is the record's stored name: full file name for images, the
	// extension-less stem for audio and localization, empty for data.
	Name string
	Data []byte
}

// Contents is the decoded form of a container.
type Contents struct {
	Info  Info
	Files []File
}

// Decode reverses Write: de-obfuscates, verifies the checksum, decompresses
// and walks the record stream. It exists for loader-side tooling and to
// prove the encoding reversible.
func Decode(data []byte) (*Contents, error) {
	if len(data) < 5 {
		return nil, errors.New("container: truncated file")
	}
	if magic := binary.LittleEndian.Uint32(data[:4]); magic != Magic {
		return nil, fmt.Errorf("container: bad magic 0x%08X", magic)
	}

	payload := append([]byte(nil), data[4:len(data)-1]...)
	wantChecksum := data[len(data)-1]

	size := uint32(len(payload))
	ks := keystream{w: seedW ^ size, z: seedZ ^ size}

	var checksum byte
	for i := range payload {
		payload[i] ^= byte(ks.next())
		checksum += payload[i]
	}
	if wantChecksum != checksum^byte(ks.next()) {
		return nil, errors.New("container: checksum mismatch")
	}

	zr, err := zlib.NewReader(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("container: decompress: %w", err)
	}
	defer zr.Close()
	body, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("container: decompress: %w", err)
	}

	return readBody(bytes.NewReader(body))
}

func readBody(r *bytes.Reader) (*Contents, error) {
	version, err := readInt(r)
	if err != nil {
		return nil, err
	}
	if version != formatVersion {
		return nil, fmt.Errorf("container: unsupported version %d", version)
	}

	var c Contents
	if c.Info.Name, err = readString(r); err != nil {
		return nil, err
	}
	if c.Info.GUID, err = readString(r); err != nil {
		return nil, err
	}
	if c.Info.VersionMajor, err = readInt(r); err != nil {
		return nil, err
	}
	if c.Info.VersionMinor, err = readInt(r); err != nil {
		return nil, err
	}

	for {
		tag, err := r.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("container: read record tag: %w", err)
		}
		ty := FileType(tag)
		if ty == FileNone {
			return &c, nil
		}
		if ty > FileOggAudio {
			return nil, fmt.Errorf("container: unknown record type %d", tag)
		}

		var f File
		f.Type = ty
		if ty != FileData {
			if f.Name, err = readString(r); err != nil {
				return nil, err
			}
		}
		if f.Data, err = readBytes(r); err != nil {
			return nil, err
		}
		c.Files = append(c.Files, f)
	}
}

func readInt(r *bytes.Reader) (int32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, fmt.Errorf("container: read int: %w", err)
	}
	return int32(binary.LittleEndian.Uint32(b[:])), nil
}

func readBytes(r *bytes.Reader) ([]byte, error) {
	n, err := readInt(r)
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, fmt.Errorf("container: negative length %d", n)
	}
	if n == 0 {
		return nil, nil
	}
	data := make([]byte, n)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("container: read record body: %w", err)
	}
	return data, nil
}

func readString(r *bytes.Reader) (string, error) {
	data, err := readBytes(r)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
