// Copyright 2025 Certen Protocol
//
// Package envelope defines LinkCommit, the fixed record that crosses the
// trust boundary between an untrusted client and the ledger core, and the
// canonical signing-bytes encoding both the client's signature and the
// core's entry hash are computed over.
package envelope

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/ubl-core/ledger-core/pkg/canon"
	"github.com/ubl-core/ledger-core/pkg/crypto"
)

// IntentClass is the closed physics-class enum a LinkCommit is tagged
// with. It controls how the membrane's V7 rule checks physics_delta.
type IntentClass string

const (
	Observation  IntentClass = "observation"
	Conservation IntentClass = "conservation"
	Entropy      IntentClass = "entropy"
	Evolution    IntentClass = "evolution"
)

// Valid reports whether c is one of the four recognized intent classes.
func (c IntentClass) Valid() bool {
	switch c {
	case Observation, Conservation, Entropy, Evolution:
		return true
	}
	return false
}

// LinkCommit is the envelope a client builds, signs, and submits to target
// a container. Every field but Signature participates in the signing
// bytes; Signature is the author's proof of authorship over those bytes.
type LinkCommit struct {
	Version          int         `json:"version"`
	ContainerID      string      `json:"container_id"`
	ExpectedSequence uint64      `json:"expected_sequence"`
	PreviousHash     string      `json:"previous_hash"`
	AtomHash         string      `json:"atom_hash"`
	IntentClass      IntentClass `json:"intent_class"`
	PhysicsDelta     int64       `json:"physics_delta"`
	AuthorPubkey     string      `json:"author_pubkey"`
	Signature        string      `json:"signature"`
}

// ZeroHash is the all-zero 64-character hex string used as previous_hash
// for a genesis commit and as last_hash of an empty container.
var ZeroHash = strings.Repeat("0", 64)

// linkCommitWire mirrors LinkCommit but types PhysicsDelta as a raw
// message, so UnmarshalJSON can accept either a JSON number or a decimal
// string (spec §6: implementations MUST accept both on the wire, and emit
// a number). The default struct tags drive marshaling of every other
// field identically to LinkCommit.
type linkCommitWire struct {
	Version          int             `json:"version"`
	ContainerID      string          `json:"container_id"`
	ExpectedSequence uint64          `json:"expected_sequence"`
	PreviousHash     string          `json:"previous_hash"`
	AtomHash         string          `json:"atom_hash"`
	IntentClass      IntentClass     `json:"intent_class"`
	PhysicsDelta     json.RawMessage `json:"physics_delta"`
	AuthorPubkey     string          `json:"author_pubkey"`
	Signature        string          `json:"signature"`
}

// UnmarshalJSON accepts physics_delta as either a JSON number or a decimal
// string, matching spec §6's wire convention.
func (l *LinkCommit) UnmarshalJSON(data []byte) error {
	var wire linkCommitWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	delta, err := parsePhysicsDelta(wire.PhysicsDelta)
	if err != nil {
		return err
	}

	*l = LinkCommit{
		Version:          wire.Version,
		ContainerID:      wire.ContainerID,
		ExpectedSequence: wire.ExpectedSequence,
		PreviousHash:     wire.PreviousHash,
		AtomHash:         wire.AtomHash,
		IntentClass:      wire.IntentClass,
		PhysicsDelta:     delta,
		AuthorPubkey:     wire.AuthorPubkey,
		Signature:        wire.Signature,
	}
	return nil
}

func parsePhysicsDelta(raw json.RawMessage) (int64, error) {
	if len(raw) == 0 {
		return 0, fmt.Errorf("envelope: physics_delta is required")
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) >= 2 && trimmed[0] == '"' && trimmed[len(trimmed)-1] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return 0, fmt.Errorf("envelope: physics_delta string: %w", err)
		}
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("envelope: physics_delta is not a valid decimal integer string: %w", err)
		}
		return v, nil
	}
	var v int64
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return 0, fmt.Errorf("envelope: physics_delta is not a JSON number or decimal string: %w", err)
	}
	return v, nil
}

// SigningBytes returns the canonical encoding of every field of link except
// Signature, with map keys sorted as in the canonicalizer contract.
// intent_class is serialized as its lowercase string value; hex fields are
// serialized as their (already lowercase) hex strings.
func SigningBytes(link LinkCommit) ([]byte, error) {
	m := map[string]canon.Value{
		"version":           canon.Int(int64(link.Version)),
		"container_id":      canon.String(link.ContainerID),
		"expected_sequence": canon.Int(int64(link.ExpectedSequence)),
		"previous_hash":     canon.String(link.PreviousHash),
		"atom_hash":         canon.String(link.AtomHash),
		"intent_class":      canon.String(string(link.IntentClass)),
		"physics_delta":     canon.Int(link.PhysicsDelta),
		"author_pubkey":     canon.String(link.AuthorPubkey),
	}
	return canon.Canonicalize(canon.Map(m))
}

// EntryHash computes hash_link(signing_bytes(link)), the value that
// identifies an accepted ledger entry.
func EntryHash(link LinkCommit) (string, error) {
	sb, err := SigningBytes(link)
	if err != nil {
		return "", fmt.Errorf("envelope: signing bytes: %w", err)
	}
	return crypto.HashLink(sb), nil
}
