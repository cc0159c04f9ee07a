// Package canon implements the deterministic JSON canonicalization and
// SHA-256 hashing primitives Sorcha relies on wherever a byte-stable
// representation of a payload must be produced once and verified again
// later — register attestations signed at Initiate and checked again at
// Finalize, control-transaction payloads, and the docket hash chain.
package canon

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
)

// CanonicalizeJSON re-encodes raw JSON with map keys sorted lexicographically
// and no insignificant whitespace. Array element order is preserved.
func CanonicalizeJSON(raw []byte) ([]byte, error) {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("canon: unmarshal: %w", err)
	}
	return json.Marshal(canonicalizeValue(v))
}

func canonicalizeValue(v interface{}) interface{} {
	switch vv := v.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(vv))
		for k := range vv {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		ordered := make(map[string]interface{}, len(vv))
		for _, k := range keys {
			ordered[k] = canonicalizeValue(vv[k])
		}
		return ordered
	case []interface{}:
		out := make([]interface{}, len(vv))
		for i, e := range vv {
			out[i] = canonicalizeValue(e)
		}
		return out
	default:
		return vv
	}
}

// MarshalCanonical marshals v to JSON and canonicalizes the result. Integers
// held in Go numeric fields are emitted without a fractional part because
// encoding/json renders them that way for non-float types; callers that need
// byte-stable integers across the initiate/finalize boundary should use Go
// int/int64 fields rather than float64.
func MarshalCanonical(v interface{}) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("canon: marshal: %w", err)
	}
	return CanonicalizeJSON(raw)
}

// HashBytes returns the hex-encoded SHA-256 digest of data, prefixed with 0x.
func HashBytes(data []byte) string {
	h := sha256.Sum256(data)
	return "0x" + hex.EncodeToString(h[:])
}

// HashConcat returns the raw SHA-256 digest of the concatenation of parts,
// used directly by the docket hash chain (spec: H(id || previousHash ||
// concat(sorted(transactionIds)) || timestamp)).
func HashConcat(parts ...[]byte) []byte {
	h := sha256.New()
	for _, p := range parts {
		h.Write(p)
	}
	return h.Sum(nil)
}

// HashConcatHex is HashConcat rendered as a 0x-prefixed hex string.
func HashConcatHex(parts ...[]byte) string {
	return "0x" + hex.EncodeToString(HashConcat(parts...))
}

// HashCanonical canonically marshals v and returns its hex-encoded SHA-256
// digest. Used for attestation templates and control-transaction payloads,
// where the same bytes must hash identically whenever recomputed.
func HashCanonical(v interface{}) (string, error) {
	canonBytes, err := MarshalCanonical(v)
	if err != nil {
		return "", err
	}
	return HashBytes(canonBytes), nil
}

// ComputeMerkleRoot builds a binary Merkle root over leaves, each hashed via
// HashCanonical. An odd trailing hash at any level is promoted unchanged
// rather than duplicated. An empty leaf set yields the all-zero hash.
func ComputeMerkleRoot(leaves []interface{}) (string, error) {
	if len(leaves) == 0 {
		return "0x" + hex.EncodeToString(make([]byte, sha256.Size)), nil
	}

	hashes := make([][]byte, len(leaves))
	for i, leaf := range leaves {
		leafHash, err := HashCanonical(leaf)
		if err != nil {
			return "", fmt.Errorf("canon: hash leaf %d: %w", i, err)
		}
		decoded, err := hex.DecodeString(leafHash[2:])
		if err != nil {
			return "", fmt.Errorf("canon: decode leaf hash %d: %w", i, err)
		}
		hashes[i] = decoded
	}

	for len(hashes) > 1 {
		next := make([][]byte, 0, (len(hashes)+1)/2)
		for i := 0; i < len(hashes); i += 2 {
			if i+1 == len(hashes) {
				next = append(next, hashes[i])
				continue
			}
			combined := append(append([]byte{}, hashes[i]...), hashes[i+1]...)
			h := sha256.Sum256(combined)
			next = append(next, h[:])
		}
		hashes = next
	}

	return "0x" + hex.EncodeToString(hashes[0]), nil
}
