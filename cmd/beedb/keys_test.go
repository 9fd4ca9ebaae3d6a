package main

import (
	"bytes"
	"errors"
	"testing"

	beedb "github.com/KilimcininKorOglu/beedb"
	"github.com/KilimcininKorOglu/beedb/internal/config"
)

func TestKeyFormatRoundTrip(t *testing.T) {
	tests := []struct {
		keyType string
		size    int
		input   string
		want    string
	}{
		{config.KeyTypeString, 8, "alice", "alice"},
		{config.KeyTypeString, 8, "", ""},
		{config.KeyTypeBytes, 4, "ab", "ab"},
		{config.KeyTypeInt64, 8, "-42", "-42"},
		{config.KeyTypeInt64, 8, "+7", "7"},
		{config.KeyTypeFloat64, 8, "2.5", "2.5"},
		{config.KeyTypeFloat64, 8, "-0", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.keyType+"/"+tt.input, func(t *testing.T) {
			kf, err := newKeyFormat(tt.keyType, tt.size)
			if err != nil {
				t.Fatalf("newKeyFormat failed: %v", err)
			}
			key, err := kf.parse(tt.input)
			if err != nil {
				t.Fatalf("parse(%q) failed: %v", tt.input, err)
			}
			if len(key) != tt.size {
				t.Errorf("parse(%q) returned %d bytes, want %d", tt.input, len(key), tt.size)
			}
			if got := kf.format(key); got != tt.want {
				t.Errorf("format(parse(%q)) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestKeyFormatErrors(t *testing.T) {
	if _, err := newKeyFormat(config.KeyTypeInt64, 16); !errors.Is(err, beedb.ErrIncompatibleFormat) {
		t.Errorf("int64 over 16 byte keys = %v, want ErrIncompatibleFormat", err)
	}
	if _, err := newKeyFormat("uuid", 16); err == nil {
		t.Error("expected an error for an unknown key type")
	}

	tests := []struct {
		keyType string
		size    int
		input   string
	}{
		{config.KeyTypeString, 4, "toolong"},
		{config.KeyTypeBytes, 2, "abc"},
		{config.KeyTypeInt64, 8, "1.5"},
		{config.KeyTypeFloat64, 8, "NaN"},
		{config.KeyTypeFloat64, 8, "pi"},
	}
	for _, tt := range tests {
		kf, err := newKeyFormat(tt.keyType, tt.size)
		if err != nil {
			t.Fatalf("newKeyFormat(%s, %d) failed: %v", tt.keyType, tt.size, err)
		}
		if _, err := kf.parse(tt.input); !errors.Is(err, beedb.ErrInvalidKey) {
			t.Errorf("%s parse(%q) = %v, want ErrInvalidKey", tt.keyType, tt.input, err)
		}
	}
}

func TestKeyFormatOrder(t *testing.T) {
	kf, _ := newKeyFormat(config.KeyTypeFloat64, 8)
	a, _ := kf.parse("-10")
	b, _ := kf.parse("-2.5")
	c, _ := kf.parse("3")
	if bytes.Compare(a, b) >= 0 || bytes.Compare(b, c) >= 0 {
		t.Error("parsed float keys do not sort numerically")
	}
}
