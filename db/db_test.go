package db

import (
	"bytes"
	"testing"
)

func TestPutGetDelete(t *testing.T) {
	store, err := NewMemDB()
	if err != nil {
		t.Fatalf("failed to open memory db: %v", err)
	}
	defer store.Close()

	if err := store.Put([]byte("key"), []byte("value")); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	got, err := store.Get([]byte("key"))
	if err != nil || !bytes.Equal(got, []byte("value")) {
		t.Fatalf("get returned %q (%v)", got, err)
	}

	if err := store.Delete([]byte("key")); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	got, err = store.Get([]byte("key"))
	if err != nil {
		t.Fatalf("get after delete failed: %v", err)
	}
	if got != nil {
		t.Fatalf("deleted key still present: %q", got)
	}
}

func TestGetMissingIsNil(t *testing.T) {
	store, err := NewMemDB()
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	got, err := store.Get([]byte("nothing"))
	if err != nil {
		t.Fatalf("missing key must not error: %v", err)
	}
	if got != nil {
		t.Fatalf("missing key must read as nil, got %q", got)
	}
}

func TestIteratePrefix(t *testing.T) {
	store, err := NewMemDB()
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	pairs := map[string]string{
		"acct:01": "a",
		"acct:02": "b",
		"acct:03": "c",
		"code:01": "x",
	}
	for k, v := range pairs {
		if err := store.Put([]byte(k), []byte(v)); err != nil {
			t.Fatal(err)
		}
	}

	var keys []string
	err = store.IteratePrefix([]byte("acct:"), func(key, value []byte) bool {
		keys = append(keys, string(key))
		return true
	})
	if err != nil {
		t.Fatalf("iteration failed: %v", err)
	}
	if len(keys) != 3 {
		t.Fatalf("expected 3 keys, got %v", keys)
	}
	// Ascending key order.
	for i := 1; i < len(keys); i++ {
		if keys[i-1] >= keys[i] {
			t.Fatalf("keys out of order: %v", keys)
		}
	}
}

func TestIteratePrefixEarlyStop(t *testing.T) {
	store, err := NewMemDB()
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	for _, k := range []string{"p:1", "p:2", "p:3"} {
		if err := store.Put([]byte(k), []byte("v")); err != nil {
			t.Fatal(err)
		}
	}

	visited := 0
	err = store.IteratePrefix([]byte("p:"), func(key, value []byte) bool {
		visited++
		return false
	})
	if err != nil {
		t.Fatal(err)
	}
	if visited != 1 {
		t.Fatalf("expected walk to stop after one key, visited %d", visited)
	}
}
