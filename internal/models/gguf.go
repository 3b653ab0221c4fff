package models

import (
	"encoding/binary"
	"io"
	"math"
	"os"

	coreconfig "github.com/coco4atJP/tepora-alpha-sub000/internal/config"
)

const (
	maxGGUFStringLen = 1_000_000
	maxGGUFArrayLen  = 100_000
)

// gguf value type tags, as laid out on disk.
const (
	ggufU8 = iota
	ggufI8
	ggufU16
	ggufI16
	ggufU32
	ggufI32
	ggufF32
	ggufBool
	ggufString
	ggufArray
	ggufU64
	ggufI64
	ggufF64
)

// ReadGGUFMetadata parses the key-value metadata section of a GGUF file,
// returning it as a string-keyed map whose values keep their GGUF types
// (for example uint32, int32, float32, string, bool) rather than the
// float64 numbers of a JSON-decoded /api/show model_info.
func ReadGGUFMetadata(path string) (map[string]any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, coreconfig.Internal(err, "open gguf file")
	}
	defer f.Close()

	var magic [4]byte
	if _, err := io.ReadFull(f, magic[:]); err != nil {
		return nil, coreconfig.Internal(err, "read gguf magic")
	}
	if string(magic[:]) != "GGUF" {
		return nil, coreconfig.Validation("invalid GGUF magic header")
	}

	version, err := readU32LE(f)
	if err != nil {
		return nil, err
	}
	if version < 1 || version > 3 {
		return nil, coreconfig.Validation("unsupported GGUF version: %d", version)
	}

	if _, err := readGGUFCount(f, version); err != nil { // tensor_count, unused
		return nil, err
	}
	kvCount, err := readGGUFCount(f, version)
	if err != nil {
		return nil, err
	}

	metadata := make(map[string]any, kvCount)
	for i := uint64(0); i < kvCount; i++ {
		key, err := readGGUFString(f, version)
		if err != nil {
			return nil, err
		}
		valueType, err := readU32LE(f)
		if err != nil {
			return nil, err
		}
		value, err := readGGUFValue(f, version, valueType)
		if err != nil {
			return nil, err
		}
		metadata[key] = value
	}
	return metadata, nil
}

func readGGUFCount(r io.Reader, version uint32) (uint64, error) {
	if version == 1 {
		v, err := readU32LE(r)
		return uint64(v), err
	}
	return readU64LE(r)
}

func readGGUFString(r io.Reader, version uint32) (string, error) {
	length, err := readGGUFCount(r, version)
	if err != nil {
		return "", err
	}
	if length > maxGGUFStringLen {
		return "", coreconfig.Validation("GGUF string length is too large")
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", coreconfig.Internal(err, "read gguf string")
	}
	return string(buf), nil
}

func readGGUFValue(r io.Reader, version uint32, valueType uint32) (any, error) {
	switch valueType {
	case ggufU8:
		v, err := readU8LE(r)
		return v, err
	case ggufI8:
		v, err := readI8LE(r)
		return v, err
	case ggufU16:
		v, err := readU16LE(r)
		return v, err
	case ggufI16:
		v, err := readI16LE(r)
		return v, err
	case ggufU32:
		v, err := readU32LE(r)
		return v, err
	case ggufI32:
		v, err := readI32LE(r)
		return v, err
	case ggufF32:
		v, err := readF32LE(r)
		return v, err
	case ggufBool:
		v, err := readU8LE(r)
		return v != 0, err
	case ggufString:
		return readGGUFString(r, version)
	case ggufArray:
		elemType, err := readU32LE(r)
		if err != nil {
			return nil, err
		}
		length, err := readGGUFCount(r, version)
		if err != nil {
			return nil, err
		}
		if length > maxGGUFArrayLen {
			return nil, coreconfig.Validation("GGUF array length is too large")
		}
		values := make([]any, 0, length)
		for i := uint64(0); i < length; i++ {
			v, err := readGGUFValue(r, version, elemType)
			if err != nil {
				return nil, err
			}
			values = append(values, v)
		}
		return values, nil
	case ggufU64:
		v, err := readU64LE(r)
		return v, err
	case ggufI64:
		v, err := readI64LE(r)
		return v, err
	case ggufF64:
		v, err := readF64LE(r)
		return v, err
	default:
		return nil, coreconfig.Validation("unsupported GGUF value type: %d", valueType)
	}
}

func readU8LE(r io.Reader) (uint8, error) {
	var buf [1]byte
	_, err := io.ReadFull(r, buf[:])
	return buf[0], wrapReadErr(err)
}

func readI8LE(r io.Reader) (int8, error) {
	v, err := readU8LE(r)
	return int8(v), err
}

func readU16LE(r io.Reader) (uint16, error) {
	var buf [2]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, wrapReadErr(err)
	}
	return binary.LittleEndian.Uint16(buf[:]), nil
}

func readI16LE(r io.Reader) (int16, error) {
	v, err := readU16LE(r)
	return int16(v), err
}

func readU32LE(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, wrapReadErr(err)
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

func readI32LE(r io.Reader) (int32, error) {
	v, err := readU32LE(r)
	return int32(v), err
}

func readU64LE(r io.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, wrapReadErr(err)
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

func readI64LE(r io.Reader) (int64, error) {
	v, err := readU64LE(r)
	return int64(v), err
}

func readF32LE(r io.Reader) (float32, error) {
	v, err := readU32LE(r)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

func readF64LE(r io.Reader) (float64, error) {
	v, err := readU64LE(r)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(v), nil
}

func wrapReadErr(err error) error {
	if err == nil {
		return nil
	}
	return coreconfig.Internal(err, "read gguf value")
}
