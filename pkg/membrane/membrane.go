// Copyright 2025 Certen Protocol
//
// Package membrane implements the seven-rule validator that decides
// whether a candidate LinkCommit may be appended to a container. Rules are
// evaluated in a fixed order and short-circuit on the first failure;
// validation is pure, deterministic, and side-effect free.
package membrane

import (
	"encoding/hex"
	"regexp"

	"github.com/ubl-core/ledger-core/pkg/crypto"
	"github.com/ubl-core/ledger-core/pkg/envelope"
)

// RejectCode identifies exactly which membrane rule failed.
type RejectCode string

const (
	InvalidVersion        RejectCode = "V1_INVALID_VERSION"
	ContainerMismatch     RejectCode = "V2_CONTAINER_MISMATCH"
	SignatureInvalid      RejectCode = "V3_SIGNATURE_INVALID"
	RealityDrift          RejectCode = "V4_REALITY_DRIFT"
	SequenceMismatch      RejectCode = "V5_SEQUENCE_MISMATCH"
	InvalidAtomHash       RejectCode = "V6_INVALID_ATOM_HASH"
	ConservationViolation RejectCode = "V7_CONSERVATION_VIOLATION"
	ObservationMustBeZero RejectCode = "V7_OBSERVATION_MUST_BE_ZERO"
	// AuthorityRequired is reserved for a future rule-set-authority check on
	// Evolution entries. The core does not itself interpret rule changes
	// (spec §9 Design Notes), so this code is never produced today.
	AuthorityRequired RejectCode = "V7_AUTHORITY_REQUIRED"
)

// StateSnapshot is the read-only view of a container's current state the
// membrane validates a candidate link against. The ledger engine owns the
// authoritative state; the membrane never mutates it.
type StateSnapshot struct {
	Sequence        uint64
	LastHash        string
	PhysicalBalance int64
}

// Decision is the membrane's verdict on a candidate LinkCommit. It is an
// internal result type, not the wire shape spec.md §6 documents for
// commit/validate responses — pkg/server wraps it into the endpoint-
// specific response envelopes instead of serializing it directly.
type Decision struct {
	Accepted bool
	Code     RejectCode
	Message  string
}

func reject(code RejectCode, message string) Decision {
	return Decision{Accepted: false, Code: code, Message: message}
}

func accept() Decision {
	return Decision{Accepted: true}
}

var atomHashPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

// Validate runs the seven rules against link and state, short-circuiting on
// the first failure. signingBytes must be the canonical signing-bytes
// encoding of link (envelope.SigningBytes(link)); it is passed in rather
// than recomputed so a caller that already has it (e.g. to also compute
// entry_hash) does the canonicalization only once. targetContainerID is
// the container the caller is attempting to commit against.
func Validate(link envelope.LinkCommit, signingBytes []byte, targetContainerID string, state StateSnapshot) Decision {
	// V1: protocol version. An unrecognized intent_class is likewise a
	// structurally malformed envelope rather than a physics failure, so it
	// is caught here rather than falling through to V7.
	if link.Version != 1 {
		return reject(InvalidVersion, "version must be 1")
	}
	if !link.IntentClass.Valid() {
		return reject(InvalidVersion, "unrecognized intent_class")
	}

	// V2: container targeting.
	if link.ContainerID != targetContainerID {
		return reject(ContainerMismatch, "container_id does not match target container")
	}

	// V3: signature, before any further CPU-light checks but after the
	// cheap version/container checks so malformed envelopes never reach
	// elliptic-curve verification.
	authorPubkey, err := hex.DecodeString(link.AuthorPubkey)
	if err != nil {
		return reject(SignatureInvalid, "author_pubkey is not valid hex")
	}
	signature, err := hex.DecodeString(link.Signature)
	if err != nil {
		return reject(SignatureInvalid, "signature is not valid hex")
	}
	if !crypto.Verify(authorPubkey, signingBytes, signature) {
		return reject(SignatureInvalid, "signature does not verify against signing bytes")
	}

	// V4: previous_hash must match the chain tip before V5, so a client
	// holding stale state learns that first.
	if link.PreviousHash != state.LastHash {
		return reject(RealityDrift, "previous_hash does not match current last_hash")
	}

	// V5: expected_sequence must match the chain tip.
	if link.ExpectedSequence != state.Sequence {
		return reject(SequenceMismatch, "expected_sequence does not match current sequence")
	}

	// V6: atom_hash shape.
	if !atomHashPattern.MatchString(link.AtomHash) {
		return reject(InvalidAtomHash, "atom_hash must be 64 lowercase hex characters")
	}

	// V7: physics rule for the intent class, evaluated last since it
	// depends on every prior check having passed.
	switch link.IntentClass {
	case envelope.Observation:
		if link.PhysicsDelta != 0 {
			return reject(ObservationMustBeZero, "observation commits must carry physics_delta == 0")
		}
	case envelope.Conservation:
		if state.PhysicalBalance+link.PhysicsDelta < 0 {
			return reject(ConservationViolation, "conservation commit would drive balance negative")
		}
	case envelope.Entropy:
		// Any delta permitted: authorised value creation/destruction.
	case envelope.Evolution:
		// Any delta permitted; recorded but never mutates validation
		// rules (spec §9 Design Notes).
	}

	return accept()
}
