package main

import (
	"bytes"
	"fmt"
	"strconv"

	beedb "github.com/KilimcininKorOglu/beedb"
	"github.com/KilimcininKorOglu/beedb/internal/config"
)

// keyFormat converts between command line key text and stored keys.
type keyFormat struct {
	keyType string
	size    int
}

func newKeyFormat(keyType string, size int) (keyFormat, error) {
	switch keyType {
	case config.KeyTypeString:
		if size < 2 {
			return keyFormat{}, fmt.Errorf("%w: string keys need a key size of at least 2", beedb.ErrInvalidKeySize)
		}
	case config.KeyTypeBytes:
	case config.KeyTypeInt64, config.KeyTypeFloat64:
		if size != 8 {
			return keyFormat{}, fmt.Errorf("%w: %s keys are 8 bytes, database has %d",
				beedb.ErrIncompatibleFormat, keyType, size)
		}
	default:
		return keyFormat{}, fmt.Errorf("unknown key type %q", keyType)
	}
	return keyFormat{keyType: keyType, size: size}, nil
}

// parse encodes the key text s.
func (f keyFormat) parse(s string) ([]byte, error) {
	switch f.keyType {
	case config.KeyTypeString:
		return beedb.StringKey(f.size - 1).Encode(s)
	case config.KeyTypeInt64:
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not an integer", beedb.ErrInvalidKey, s)
		}
		return beedb.Int64Key().Encode(v)
	case config.KeyTypeFloat64:
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a number", beedb.ErrInvalidKey, s)
		}
		return beedb.Float64Key().Encode(v)
	default:
		if len(s) > f.size {
			return nil, fmt.Errorf("%w: %q exceeds %d bytes", beedb.ErrInvalidKey, s, f.size)
		}
		key := make([]byte, f.size)
		copy(key, s)
		return beedb.BytesKey(f.size).Encode(key)
	}
}

// format renders a stored key as text.
func (f keyFormat) format(key []byte) string {
	switch f.keyType {
	case config.KeyTypeString:
		if s, err := beedb.StringKey(f.size - 1).Decode(key); err == nil {
			return s
		}
	case config.KeyTypeInt64:
		if v, err := beedb.Int64Key().Decode(key); err == nil {
			return strconv.FormatInt(v, 10)
		}
	case config.KeyTypeFloat64:
		if v, err := beedb.Float64Key().Decode(key); err == nil {
			return strconv.FormatFloat(v, 'g', -1, 64)
		}
	default:
		return string(bytes.TrimRight(key, "\x00"))
	}
	return fmt.Sprintf("%x", key)
}
