// Package sorchacrypto implements signature verification and hashing for
// the three key algorithm families a register's governance roster may use:
// ED25519, NIST P-256 (ECDSA), and RSA-4096.
package sorchacrypto

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"errors"
	"fmt"
)

// Algorithm identifies a supported public-key signature scheme.
type Algorithm string

const (
	ED25519   Algorithm = "ED25519"
	NISTP256  Algorithm = "NIST_P256"
	RSA4096   Algorithm = "RSA_4096"
)

var (
	ErrUnsupportedAlgorithm = errors.New("sorchacrypto: unsupported algorithm")
	ErrInvalidKeyFormat     = errors.New("sorchacrypto: invalid public key format")
	ErrInvalidSignature     = errors.New("sorchacrypto: invalid signature format")
)

// minimum/expected byte lengths, per the key-format invariants each
// algorithm's key material must satisfy before verification is attempted.
const (
	ed25519KeySize   = ed25519.PublicKeySize // 32
	p256Compressed   = 33
	p256Uncompressed = 65
	rsaMinModulus    = 512 // bytes; RSA-4096 modulus is 512 bytes
	rsaMinSignature  = 512
)

// Verify checks signature against message using the public key material for
// algorithm. When preHashed is true, message is already the SHA-256 digest
// of the original payload (used by the register creation orchestrator, which
// signs a canonical attestation hash rather than the raw attestation bytes);
// when false, message is the raw payload and this function hashes it before
// verification for the algorithms that require a digest (P-256, RSA).
// ED25519 never pre-hashes: Verify returns ErrInvalidSignature if preHashed
// is requested for it.
func Verify(algorithm Algorithm, publicKey, message, signature []byte, preHashed bool) (bool, error) {
	switch algorithm {
	case ED25519:
		if preHashed {
			return false, fmt.Errorf("%w: ED25519 does not support pre-hashed verification", ErrInvalidSignature)
		}
		return verifyEd25519(publicKey, message, signature)
	case NISTP256:
		return verifyP256(publicKey, message, signature, preHashed)
	case RSA4096:
		return verifyRSA4096(publicKey, message, signature, preHashed)
	default:
		return false, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, algorithm)
	}
}

// Hash returns the SHA-256 digest of data.
func Hash(data []byte) [32]byte {
	return sha256.Sum256(data)
}

func verifyEd25519(publicKey, message, signature []byte) (bool, error) {
	if len(publicKey) != ed25519KeySize {
		return false, fmt.Errorf("%w: ed25519 public key must be %d bytes, got %d", ErrInvalidKeyFormat, ed25519KeySize, len(publicKey))
	}
	if len(signature) != ed25519.SignatureSize {
		return false, fmt.Errorf("%w: ed25519 signature must be %d bytes, got %d", ErrInvalidSignature, ed25519.SignatureSize, len(signature))
	}
	return ed25519.Verify(ed25519.PublicKey(publicKey), message, signature), nil
}

func verifyP256(publicKey, message, signature []byte, preHashed bool) (bool, error) {
	if len(publicKey) == p256Uncompressed-1 {
		// raw X||Y coordinates without the 0x04 uncompressed-point prefix
		publicKey = append([]byte{0x04}, publicKey...)
	}
	if len(publicKey) != p256Uncompressed && len(publicKey) != p256Compressed {
		return false, fmt.Errorf("%w: p256 public key must be %d, %d or %d bytes, got %d", ErrInvalidKeyFormat, p256Uncompressed-1, p256Uncompressed, p256Compressed, len(publicKey))
	}
	x, y := elliptic.UnmarshalCompressed(elliptic.P256(), publicKey)
	if x == nil {
		x, y = elliptic.Unmarshal(elliptic.P256(), publicKey)
	}
	if x == nil {
		return false, fmt.Errorf("%w: p256 public key is not a valid curve point", ErrInvalidKeyFormat)
	}
	pub := &ecdsa.PublicKey{Curve: elliptic.P256(), X: x, Y: y}

	digest := message
	if !preHashed {
		h := sha256.Sum256(message)
		digest = h[:]
	}
	return ecdsa.VerifyASN1(pub, digest, signature), nil
}

func verifyRSA4096(publicKey, message, signature []byte, preHashed bool) (bool, error) {
	if len(publicKey) < rsaMinModulus {
		return false, fmt.Errorf("%w: rsa public key too short for RSA-4096", ErrInvalidKeyFormat)
	}
	if len(signature) < rsaMinSignature {
		return false, fmt.Errorf("%w: rsa signature too short for RSA-4096", ErrInvalidSignature)
	}
	pub, err := parseRSAPublicKey(publicKey)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrInvalidKeyFormat, err)
	}

	digest := message
	if !preHashed {
		h := sha256.Sum256(message)
		digest = h[:]
	}
	if err := rsa.VerifyPKCS1v15(pub, crypto.SHA256, digest, signature); err != nil {
		return false, nil
	}
	return true, nil
}

// parseRSAPublicKey accepts either a DER-encoded PKIX SubjectPublicKeyInfo
// or a raw PKCS#1 public key, both of which show up across wallet stores in
// the wild.
func parseRSAPublicKey(der []byte) (*rsa.PublicKey, error) {
	if pub, err := x509.ParsePKIXPublicKey(der); err == nil {
		if rsaPub, ok := pub.(*rsa.PublicKey); ok {
			return rsaPub, nil
		}
		return nil, errors.New("PKIX key is not an RSA public key")
	}
	return x509.ParsePKCS1PublicKey(der)
}
