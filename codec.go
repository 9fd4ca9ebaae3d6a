package beedb

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// KeyCodec converts typed keys to the fixed-width byte keys of a DB. The
// byte order of encoded keys must match the natural order of K.
type KeyCodec[K any] interface {
	// KeySize returns the encoded width.
	KeySize() int
	// Encode returns the KeySize byte form of key.
	Encode(key K) ([]byte, error)
	// Decode reverses Encode.
	Decode(buf []byte) (K, error)
}

// StringKey returns a codec for strings of at most maxLen bytes without
// NUL bytes. Keys are NUL padded to maxLen+1 bytes, so they sort like
// plain byte strings.
func StringKey(maxLen int) KeyCodec[string] {
	return stringKey{maxLen: maxLen}
}

type stringKey struct {
	maxLen int
}

func (c stringKey) KeySize() int {
	return c.maxLen + 1
}

func (c stringKey) Encode(key string) ([]byte, error) {
	if len(key) > c.maxLen {
		return nil, fmt.Errorf("%w: %q exceeds %d bytes", ErrInvalidKey, key, c.maxLen)
	}
	if bytes.IndexByte([]byte(key), 0) >= 0 {
		return nil, fmt.Errorf("%w: %q contains a NUL byte", ErrInvalidKey, key)
	}
	buf := make([]byte, c.KeySize())
	copy(buf, key)
	return buf, nil
}

func (c stringKey) Decode(buf []byte) (string, error) {
	if len(buf) != c.KeySize() {
		return "", fmt.Errorf("%w: %d bytes, want %d", ErrInvalidKey, len(buf), c.KeySize())
	}
	if i := bytes.IndexByte(buf, 0); i >= 0 {
		buf = buf[:i]
	}
	return string(buf), nil
}

// FixedStringKey returns a codec for strings of exactly n bytes. NUL
// bytes are allowed.
func FixedStringKey(n int) KeyCodec[string] {
	return fixedStringKey{n: n}
}

type fixedStringKey struct {
	n int
}

func (c fixedStringKey) KeySize() int {
	return c.n
}

func (c fixedStringKey) Encode(key string) ([]byte, error) {
	if len(key) != c.n {
		return nil, fmt.Errorf("%w: %q has %d bytes, want %d", ErrInvalidKey, key, len(key), c.n)
	}
	return []byte(key), nil
}

func (c fixedStringKey) Decode(buf []byte) (string, error) {
	if len(buf) != c.n {
		return "", fmt.Errorf("%w: %d bytes, want %d", ErrInvalidKey, len(buf), c.n)
	}
	return string(buf), nil
}

// BytesKey returns a codec for byte keys of exactly n bytes.
func BytesKey(n int) KeyCodec[[]byte] {
	return bytesKey{n: n}
}

type bytesKey struct {
	n int
}

func (c bytesKey) KeySize() int {
	return c.n
}

func (c bytesKey) Encode(key []byte) ([]byte, error) {
	if len(key) != c.n {
		return nil, fmt.Errorf("%w: %d bytes, want %d", ErrInvalidKey, len(key), c.n)
	}
	return append([]byte(nil), key...), nil
}

func (c bytesKey) Decode(buf []byte) ([]byte, error) {
	if len(buf) != c.n {
		return nil, fmt.Errorf("%w: %d bytes, want %d", ErrInvalidKey, len(buf), c.n)
	}
	return append([]byte(nil), buf...), nil
}

// Int64Key returns a codec for signed integers. The sign bit is flipped
// so negative numbers sort first.
func Int64Key() KeyCodec[int64] {
	return int64Key{}
}

type int64Key struct{}

func (int64Key) KeySize() int {
	return 8
}

func (int64Key) Encode(key int64) ([]byte, error) {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(key)^(1<<63))
	return buf, nil
}

func (int64Key) Decode(buf []byte) (int64, error) {
	if len(buf) != 8 {
		return 0, fmt.Errorf("%w: %d bytes, want 8", ErrInvalidKey, len(buf))
	}
	return int64(binary.BigEndian.Uint64(buf) ^ (1 << 63)), nil
}

// Float64Key returns a codec for floating point keys. NaN is rejected and
// negative zero is stored as zero.
func Float64Key() KeyCodec[float64] {
	return float64Key{}
}

type float64Key struct{}

func (float64Key) KeySize() int {
	return 8
}

func (float64Key) Encode(key float64) ([]byte, error) {
	if math.IsNaN(key) {
		return nil, fmt.Errorf("%w: NaN has no order", ErrInvalidKey)
	}
	if key == 0 {
		key = 0 // folds -0 into +0
	}
	bits := math.Float64bits(key)
	if bits&(1<<63) != 0 {
		bits = ^bits
	} else {
		bits |= 1 << 63
	}
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, bits)
	return buf, nil
}

func (float64Key) Decode(buf []byte) (float64, error) {
	if len(buf) != 8 {
		return 0, fmt.Errorf("%w: %d bytes, want 8", ErrInvalidKey, len(buf))
	}
	bits := binary.BigEndian.Uint64(buf)
	if bits&(1<<63) != 0 {
		bits &^= 1 << 63
	} else {
		bits = ^bits
	}
	return math.Float64frombits(bits), nil
}
