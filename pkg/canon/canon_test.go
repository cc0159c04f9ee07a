package canon

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"
)

func TestCanonicalizeJSONSortsKeys(t *testing.T) {
	in := []byte(`{"b":1,"a":2,"c":{"z":1,"y":2}}`)
	out, err := CanonicalizeJSON(in)
	if err != nil {
		t.Fatalf("canonicalize: %v", err)
	}
	want := `{"a":2,"b":1,"c":{"y":2,"z":1}}`
	if string(out) != want {
		t.Fatalf("got %s want %s", out, want)
	}
}

func TestHashCanonicalIsOrderIndependent(t *testing.T) {
	a := map[string]interface{}{"x": 1, "y": 2}
	b := map[string]interface{}{"y": 2, "x": 1}

	hashA, err := HashCanonical(a)
	if err != nil {
		t.Fatalf("hash a: %v", err)
	}
	hashB, err := HashCanonical(b)
	if err != nil {
		t.Fatalf("hash b: %v", err)
	}
	if hashA != hashB {
		t.Fatalf("expected identical hashes regardless of map iteration order, got %s vs %s", hashA, hashB)
	}
}

func TestComputeMerkleRootEmpty(t *testing.T) {
	root, err := ComputeMerkleRoot(nil)
	if err != nil {
		t.Fatalf("merkle root: %v", err)
	}
	want := "0x" + strings.Repeat("00", 32)
	if root != want {
		t.Fatalf("expected zero hash for empty leaf set, got %s want %s", root, want)
	}
}

func TestComputeMerkleRootOddLeafPromoted(t *testing.T) {
	leaves := []interface{}{
		map[string]interface{}{"id": "a"},
		map[string]interface{}{"id": "b"},
		map[string]interface{}{"id": "c"},
	}
	root, err := ComputeMerkleRoot(leaves)
	if err != nil {
		t.Fatalf("merkle root: %v", err)
	}
	if len(root) != 66 {
		t.Fatalf("expected 0x + 64 hex chars, got %d: %s", len(root), root)
	}

	leafHash := func(leaf interface{}) []byte {
		h, err := HashCanonical(leaf)
		if err != nil {
			t.Fatalf("hash leaf: %v", err)
		}
		b, err := hex.DecodeString(strings.TrimPrefix(h, "0x"))
		if err != nil {
			t.Fatalf("decode leaf hash: %v", err)
		}
		return b
	}
	ab := sha256.Sum256(append(leafHash(leaves[0]), leafHash(leaves[1])...))
	want := sha256.Sum256(append(ab[:], leafHash(leaves[2])...))
	if root != "0x"+hex.EncodeToString(want[:]) {
		t.Fatalf("expected leaf c promoted unhashed to pair with H(a||b), got %s", root)
	}
}

func TestHashConcatDeterministic(t *testing.T) {
	h1 := HashConcatHex([]byte("a"), []byte("b"))
	h2 := HashConcatHex([]byte("a"), []byte("b"))
	if h1 != h2 {
		t.Fatalf("expected deterministic hash, got %s vs %s", h1, h2)
	}
	h3 := HashConcatHex([]byte("ab"))
	if h1 != h3 {
		t.Fatalf("expected HashConcat to match concatenation-then-hash: %s vs %s", h1, h3)
	}
}
