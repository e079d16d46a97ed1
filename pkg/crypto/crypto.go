// Copyright 2025 Certen Protocol
//
// Package crypto provides the domain-separated BLAKE3 hashing and Ed25519
// signing primitives the rest of the core builds on.
package crypto

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"

	"lukechampine.com/blake3"
)

var (
	atomDomain = []byte("ubl:atom\n")
	linkDomain = []byte("ubl:link\n")
	merkleDomain = []byte("ubl:mrk\n")
)

// HashAtom computes BLAKE3("ubl:atom\n" || bytes) and returns it as
// lowercase hex.
func HashAtom(bytes []byte) string {
	return hex.EncodeToString(hashDomain(atomDomain, bytes))
}

// HashLink computes BLAKE3("ubl:link\n" || bytes) and returns it as
// lowercase hex.
func HashLink(bytes []byte) string {
	return hex.EncodeToString(hashDomain(linkDomain, bytes))
}

// HashMerkleNode computes BLAKE3("ubl:mrk\n" || left || right) over two
// raw 32-byte hashes, used to combine Merkle tree nodes.
func HashMerkleNode(left, right []byte) [32]byte {
	h := blake3.New(32, nil)
	h.Write(merkleDomain)
	h.Write(left)
	h.Write(right)
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

func hashDomain(domain, data []byte) []byte {
	h := blake3.New(32, nil)
	h.Write(domain)
	h.Write(data)
	return h.Sum(nil)
}

var (
	// ErrInvalidKeyLength describes a public key that is not exactly
	// ed25519.PublicKeySize bytes. Verify does not return it; it reports
	// that case as false.
	ErrInvalidKeyLength = errors.New("crypto: invalid public key length")
	// ErrInvalidSignatureLength describes a signature that is not exactly
	// ed25519.SignatureSize bytes. Verify does not return it; it reports
	// that case as false.
	ErrInvalidSignatureLength = errors.New("crypto: invalid signature length")
)

// Sign signs message with an Ed25519 private key, returning the raw
// signature bytes.
func Sign(privateKey ed25519.PrivateKey, message []byte) []byte {
	return ed25519.Sign(privateKey, message)
}

// Verify checks an Ed25519 signature over message. It never panics: a
// wrong-length key or signature is reported as a plain boolean failure
// rather than a runtime panic, since Verify sits directly on the
// membrane's trust boundary.
func Verify(publicKey, message, signature []byte) bool {
	if len(publicKey) != ed25519.PublicKeySize {
		return false
	}
	if len(signature) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(publicKey), message, signature)
}

// GenerateKeyPair produces a fresh Ed25519 key pair for use by clients and
// developer tooling (the core itself never generates or holds private
// keys).
func GenerateKeyPair() (ed25519.PublicKey, ed25519.PrivateKey, error) {
	return ed25519.GenerateKey(nil)
}
