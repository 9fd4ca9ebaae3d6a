package btree

import (
	"bytes"
	"errors"
	"testing"

	"github.com/KilimcininKorOglu/beedb/internal/storage"
)

func fillTree(t *testing.T, tree *Tree, n int) {
	t.Helper()
	// Insert in a scrambled but deterministic order.
	for i := 0; i < n; i++ {
		k := (i * 37) % n
		mustInsert(t, tree, intKey(k*2), storage.RecordAddr(k+1))
	}
}

// =============================================================================
// Cursor Tests
// =============================================================================

func TestCursorForward(t *testing.T) {
	tree, _ := createTestTree(t, 0)
	fillTree(t, tree, 500)

	c := tree.Cursor()
	var prev []byte
	count := 0
	for ok := c.First(); ok; ok = c.Next() {
		key := c.Key()
		if prev != nil && bytes.Compare(prev, key) >= 0 {
			t.Fatalf("keys not strictly increasing: %x then %x", prev, key)
		}
		if c.Record() == 0 {
			t.Fatalf("key %x has null record", key)
		}
		prev = key
		count++
	}
	if err := c.Err(); err != nil {
		t.Fatalf("cursor error: %v", err)
	}
	if count != 500 {
		t.Errorf("iterated %d keys, want 500", count)
	}
	if c.Valid() {
		t.Error("exhausted cursor should be invalid")
	}
}

func TestCursorBackward(t *testing.T) {
	tree, _ := createTestTree(t, 0)
	fillTree(t, tree, 300)

	c := tree.Cursor()
	want := 299
	for ok := c.Last(); ok; ok = c.Prev() {
		if !bytes.Equal(c.Key(), intKey(want*2)) {
			t.Fatalf("Prev reached %x, want %x", c.Key(), intKey(want*2))
		}
		want--
	}
	if want != -1 {
		t.Errorf("stopped with %d keys left", want+1)
	}
}

func TestCursorSeek(t *testing.T) {
	tree, _ := createTestTree(t, 0)
	fillTree(t, tree, 100) // even keys 0..198

	tests := []struct {
		seek int
		want int
		ok   bool
	}{
		{0, 0, true},
		{1, 2, true},
		{50, 50, true},
		{197, 198, true},
		{198, 198, true},
		{199, 0, false},
	}

	for _, tt := range tests {
		c := tree.Cursor()
		ok := c.Seek(intKey(tt.seek))
		if ok != tt.ok {
			t.Errorf("Seek(%d) = %v, want %v", tt.seek, ok, tt.ok)
			continue
		}
		if ok && !bytes.Equal(c.Key(), intKey(tt.want)) {
			t.Errorf("Seek(%d) landed on %x, want %d", tt.seek, c.Key(), tt.want)
		}
	}
}

func TestCursorSurvivesMutation(t *testing.T) {
	tree, _ := createTestTree(t, 0)
	fillTree(t, tree, 200)

	c := tree.Cursor()
	if !c.Seek(intKey(100)) {
		t.Fatal("Seek failed")
	}

	// Delete the current key and its successor, then insert a key between.
	tree.Delete(intKey(100))
	tree.Delete(intKey(102))
	mustInsert(t, tree, intKey(101), 999)

	if !c.Next() {
		t.Fatalf("Next failed: %v", c.Err())
	}
	if !bytes.Equal(c.Key(), intKey(101)) {
		t.Errorf("Next after mutation = %x, want %x", c.Key(), intKey(101))
	}
	if c.Record() != 999 {
		t.Errorf("Record() = %d, want 999", c.Record())
	}

	if !c.Next() || !bytes.Equal(c.Key(), intKey(104)) {
		t.Errorf("following key = %x, want %x", c.Key(), intKey(104))
	}

	tree.Delete(intKey(104))
	if !c.Prev() || !bytes.Equal(c.Key(), intKey(101)) {
		t.Errorf("Prev after delete = %x, want %x", c.Key(), intKey(101))
	}
}

func TestCursorClone(t *testing.T) {
	tree, _ := createTestTree(t, 0)
	fillTree(t, tree, 50)

	c := tree.Cursor()
	c.Seek(intKey(20))
	clone := c.Clone()

	c.Next()
	c.Next()

	if !bytes.Equal(clone.Key(), intKey(20)) {
		t.Errorf("clone moved with original: %x", clone.Key())
	}
	if !clone.Next() || !bytes.Equal(clone.Key(), intKey(22)) {
		t.Errorf("clone.Next = %x, want %x", clone.Key(), intKey(22))
	}
}

func TestCursorEmptyTree(t *testing.T) {
	tree, _ := createTestTree(t, 0)

	c := tree.Cursor()
	if c.First() || c.Last() || c.Seek(intKey(1)) {
		t.Error("cursor on empty tree should not be valid")
	}
	if c.Next() || c.Prev() {
		t.Error("stepping an invalid cursor should fail")
	}
	if c.Err() != nil {
		t.Errorf("Err() = %v, want nil", c.Err())
	}
	if c.Key() != nil {
		t.Error("Key() on invalid cursor should be nil")
	}
}

func TestCursorSeekInvalidKey(t *testing.T) {
	tree, _ := createTestTree(t, 0)

	c := tree.Cursor()
	if c.Seek([]byte("x")) {
		t.Error("Seek with short key should fail")
	}
	if !errors.Is(c.Err(), storage.ErrInvalidKey) {
		t.Errorf("Err() = %v, want ErrInvalidKey", c.Err())
	}
}

// =============================================================================
// Ordered Access Tests
// =============================================================================

func TestFirstLast(t *testing.T) {
	tree, _ := createTestTree(t, 0)

	if _, _, err := tree.First(); !errors.Is(err, storage.ErrKeyNotFound) {
		t.Errorf("First on empty tree = %v, want ErrKeyNotFound", err)
	}

	fillTree(t, tree, 120)

	key, rec, err := tree.First()
	if err != nil || !bytes.Equal(key, intKey(0)) || rec != 1 {
		t.Errorf("First() = %x, %d, %v", key, rec, err)
	}
	key, rec, err = tree.Last()
	if err != nil || !bytes.Equal(key, intKey(238)) || rec != 120 {
		t.Errorf("Last() = %x, %d, %v", key, rec, err)
	}
}

func TestNextPrevKey(t *testing.T) {
	tree, _ := createTestTree(t, 0)
	fillTree(t, tree, 60) // even keys 0..118

	tests := []struct {
		name string
		fn   func([]byte) ([]byte, storage.RecordAddr, error)
		from int
		want int
		ok   bool
	}{
		{"next of present", tree.Next, 10, 12, true},
		{"next of absent", tree.Next, 11, 12, true},
		{"next of last", tree.Next, 118, 0, false},
		{"prev of present", tree.Prev, 10, 8, true},
		{"prev of absent", tree.Prev, 11, 10, true},
		{"prev of first", tree.Prev, 0, 0, false},
		{"prev past end", tree.Prev, 500, 118, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, _, err := tt.fn(intKey(tt.from))
			if !tt.ok {
				if !errors.Is(err, storage.ErrKeyNotFound) {
					t.Errorf("error = %v, want ErrKeyNotFound", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !bytes.Equal(key, intKey(tt.want)) {
				t.Errorf("key = %x, want %x", key, intKey(tt.want))
			}
		})
	}
}

func TestHas(t *testing.T) {
	tree, _ := createTestTree(t, 0)
	mustInsert(t, tree, testKey("k"), 1)

	if ok, err := tree.Has(testKey("k")); !ok || err != nil {
		t.Errorf("Has(k) = %v, %v", ok, err)
	}
	if ok, err := tree.Has(testKey("q")); ok || err != nil {
		t.Errorf("Has(q) = %v, %v", ok, err)
	}
}
