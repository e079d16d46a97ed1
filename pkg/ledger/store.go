// Copyright 2025 Certen Protocol
//
// Ledger Engine: per-container append-only chain, sequence/hash chaining,
// and state derivation. Concurrency model: a per-container exclusive lock
// covers the read-state/validate/append triple; reads take an immutable
// snapshot and never block behind another container's writer, and never
// block behind this container's writer either — GetState only ever
// observes the last fully-committed meta, never a half-written one.
package ledger

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/ubl-core/ledger-core/pkg/crypto"
	"github.com/ubl-core/ledger-core/pkg/envelope"
	"github.com/ubl-core/ledger-core/pkg/membrane"
	"github.com/ubl-core/ledger-core/pkg/merkle"
)

// KV is the narrow storage abstraction the ledger engine persists through.
// Whether it is backed by memory, cometbft-db, or a relational store is
// irrelevant to the engine's semantics.
type KV interface {
	Get(key []byte) ([]byte, error)
	Set(key, value []byte) error
}

// Store is the Ledger Engine: it owns every container's chain and
// exclusively performs mutation.
//
// CONCURRENCY: each container_id gets its own lazily-created mutex, so two
// containers never contend, and two commits racing for the same container
// serialize behind it — exactly one of a batch of identical
// expected_sequence commits is accepted. The rest are rejected against the
// advanced tip; since they also carry the now-stale previous_hash, the V4
// check reports them as RealityDrift before V5 is reached.
type Store struct {
	kv    KV
	locks sync.Map // container_id -> *sync.Mutex
	cache sync.Map // container_id -> *containerMeta (replaced wholesale, never mutated)
}

// NewStore creates a Store backed by kv.
func NewStore(kv KV) *Store {
	return &Store{kv: kv}
}

func metaKey(containerID string) []byte {
	return []byte("ledger:meta:" + containerID)
}

func entryKey(containerID string, sequence uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, sequence)
	return append([]byte("ledger:entry:"+containerID+":"), b...)
}

func (s *Store) lockFor(containerID string) *sync.Mutex {
	actual, _ := s.locks.LoadOrStore(containerID, &sync.Mutex{})
	return actual.(*sync.Mutex)
}

func emptyMeta() *containerMeta {
	return &containerMeta{Sequence: 0, LastHash: envelope.ZeroHash}
}

// loadMeta returns the container's current meta, preferring the in-memory
// cache (populated by a prior commit in this process) and otherwise
// reloading it from storage. A container that has never had a commit
// accepted is Empty: sequence 0, last_hash all-zero, balance 0.
func (s *Store) loadMeta(containerID string) (*containerMeta, error) {
	if cached, ok := s.cache.Load(containerID); ok {
		return cached.(*containerMeta), nil
	}

	raw, err := s.kv.Get(metaKey(containerID))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if len(raw) == 0 {
		meta := emptyMeta()
		s.cache.Store(containerID, meta)
		return meta, nil
	}

	var meta containerMeta
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, fmt.Errorf("%w: corrupt meta for %s: %v", ErrStorageUnavailable, containerID, err)
	}
	s.cache.Store(containerID, &meta)
	return &meta, nil
}

// Ping checks that the underlying KV answers a read, for use by health
// checks. It never touches the cache, so a degraded KV is never masked by a
// previously cached container.
func (s *Store) Ping() error {
	if _, err := s.kv.Get([]byte("ledger:health-probe")); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return nil
}

// GetState returns the current derived ContainerState. It never suspends
// behind a concurrent commit for the same container.
func (s *Store) GetState(containerID string) (ContainerState, error) {
	meta, err := s.loadMeta(containerID)
	if err != nil {
		return ContainerState{}, err
	}
	root, err := merkleRootOf(meta.EntryHashes)
	if err != nil {
		return ContainerState{}, err
	}
	return ContainerState{
		ContainerID:     containerID,
		Sequence:        meta.Sequence,
		LastHash:        meta.LastHash,
		PhysicalBalance: meta.PhysicalBalance,
		MerkleRoot:      root,
	}, nil
}

// Proof builds an inclusion proof for the entry at sequence within its
// container's current Merkle tree. The whole tree is rebuilt from the
// cached entry hash list; callers needing this at high frequency should
// consider the cost proportional to chain length, as the teacher's own
// receipt endpoints do.
func (s *Store) Proof(containerID string, sequence uint64) (*merkle.InclusionProof, error) {
	meta, err := s.loadMeta(containerID)
	if err != nil {
		return nil, err
	}
	if sequence >= uint64(len(meta.EntryHashes)) {
		return nil, fmt.Errorf("ledger: no entry at sequence %d for %s", sequence, containerID)
	}

	leaves := make([][]byte, len(meta.EntryHashes))
	for i, h := range meta.EntryHashes {
		b, err := hex.DecodeString(h)
		if err != nil {
			return nil, fmt.Errorf("%w: corrupt entry hash: %v", ErrStorageUnavailable, err)
		}
		leaves[i] = b
	}
	tree, err := merkle.BuildTree(leaves)
	if err != nil {
		return nil, err
	}
	return tree.GenerateProof(int(sequence))
}

func merkleRootOf(entryHashes []string) (string, error) {
	leaves := make([][]byte, len(entryHashes))
	for i, h := range entryHashes {
		b, err := hex.DecodeString(h)
		if err != nil {
			return "", fmt.Errorf("%w: corrupt entry hash: %v", ErrStorageUnavailable, err)
		}
		leaves[i] = b
	}
	root, err := merkle.ComputeRoot(leaves)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(root[:]), nil
}

// Commit validates link via the Membrane against containerID's current
// state and, if ACCEPTed, durably appends a new LedgerEntry. containerID is
// the caller's intended target (e.g. the URL path value) and is kept
// distinct from link.ContainerID so the Membrane can actually detect a
// mismatch between the two instead of comparing a field to itself. The
// read, validate, and append happen under the container's exclusive lock,
// so V4/V5 are re-checked against the chain tip as it stands at the moment
// of the lock, not at whatever moment the caller first fetched state.
//
// A rejection is reported through the returned Decision with a nil error
// and leaves the ledger untouched. A non-nil error means the engine could
// not durably decide at all (a storage failure), distinct from a
// deterministic rejection.
func (s *Store) Commit(containerID string, link envelope.LinkCommit) (Receipt, membrane.Decision, error) {
	lock := s.lockFor(containerID)
	lock.Lock()
	defer lock.Unlock()

	meta, err := s.loadMeta(containerID)
	if err != nil {
		return Receipt{}, membrane.Decision{}, err
	}

	signingBytes, err := envelope.SigningBytes(link)
	if err != nil {
		return Receipt{}, membrane.Decision{}, fmt.Errorf("ledger: malformed envelope: %w", err)
	}

	state := membrane.StateSnapshot{
		Sequence:        meta.Sequence,
		LastHash:        meta.LastHash,
		PhysicalBalance: meta.PhysicalBalance,
	}
	decision := membrane.Validate(link, signingBytes, containerID, state)
	if !decision.Accepted {
		return Receipt{}, decision, nil
	}

	entryHash := crypto.HashLink(signingBytes)
	timestamp := time.Now().Unix()

	entry := LedgerEntry{
		Sequence:  meta.Sequence,
		EntryHash: entryHash,
		Link:      link,
		Timestamp: timestamp,
	}
	entryRaw, err := json.Marshal(entry)
	if err != nil {
		return Receipt{}, membrane.Decision{}, fmt.Errorf("ledger: marshal entry: %w", err)
	}
	if err := s.kv.Set(entryKey(containerID, meta.Sequence), entryRaw); err != nil {
		return Receipt{}, membrane.Decision{}, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	newMeta := &containerMeta{
		Sequence:        meta.Sequence + 1,
		LastHash:        entryHash,
		PhysicalBalance: meta.PhysicalBalance + link.PhysicsDelta,
		EntryHashes:     append(append([]string(nil), meta.EntryHashes...), entryHash),
	}
	metaRaw, err := json.Marshal(newMeta)
	if err != nil {
		return Receipt{}, membrane.Decision{}, fmt.Errorf("ledger: marshal meta: %w", err)
	}
	if err := s.kv.Set(metaKey(containerID), metaRaw); err != nil {
		return Receipt{}, membrane.Decision{}, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	// Publish the new state only after both writes durably land, so a
	// reader can never observe a partial append.
	s.cache.Store(containerID, newMeta)

	return Receipt{
		ContainerID: containerID,
		EntryHash:   entryHash,
		Sequence:    entry.Sequence,
		Timestamp:   timestamp,
	}, decision, nil
}

// Validate runs the Membrane against containerID's current state without
// appending anything — the same rules Commit uses, with no side effects.
// As in Commit, containerID is kept distinct from link.ContainerID so a
// mismatch between the two is actually detectable.
func (s *Store) Validate(containerID string, link envelope.LinkCommit) (membrane.Decision, error) {
	meta, err := s.loadMeta(containerID)
	if err != nil {
		return membrane.Decision{}, err
	}
	signingBytes, err := envelope.SigningBytes(link)
	if err != nil {
		return membrane.Decision{}, fmt.Errorf("ledger: malformed envelope: %w", err)
	}
	state := membrane.StateSnapshot{
		Sequence:        meta.Sequence,
		LastHash:        meta.LastHash,
		PhysicalBalance: meta.PhysicalBalance,
	}
	return membrane.Validate(link, signingBytes, containerID, state), nil
}

// VerifyRange recomputes every entry_hash in [lo, hi] from the persisted
// link bytes and checks chain linkage and signatures, for use by external
// auditors who do not trust the server's derived state.
func (s *Store) VerifyRange(containerID string, lo, hi uint64) error {
	var previousHash = envelope.ZeroHash
	if lo > 0 {
		prevEntry, err := s.loadEntry(containerID, lo-1)
		if err != nil {
			return err
		}
		previousHash = prevEntry.EntryHash
	}

	for seq := lo; seq <= hi; seq++ {
		entry, err := s.loadEntry(containerID, seq)
		if err != nil {
			return err
		}
		if entry.Sequence != seq {
			return fmt.Errorf("ledger: entry at key %d has sequence %d", seq, entry.Sequence)
		}
		if entry.Link.ExpectedSequence != seq {
			return fmt.Errorf("ledger: entry %d: expected_sequence %d != %d", seq, entry.Link.ExpectedSequence, seq)
		}
		if entry.Link.PreviousHash != previousHash {
			return fmt.Errorf("ledger: entry %d: previous_hash chain broken", seq)
		}

		signingBytes, err := envelope.SigningBytes(entry.Link)
		if err != nil {
			return fmt.Errorf("ledger: entry %d: %w", seq, err)
		}
		wantHash := crypto.HashLink(signingBytes)
		if entry.EntryHash != wantHash {
			return fmt.Errorf("ledger: entry %d: entry_hash mismatch", seq)
		}

		pubkey, err := hex.DecodeString(entry.Link.AuthorPubkey)
		if err != nil {
			return fmt.Errorf("ledger: entry %d: invalid author_pubkey: %w", seq, err)
		}
		sig, err := hex.DecodeString(entry.Link.Signature)
		if err != nil {
			return fmt.Errorf("ledger: entry %d: invalid signature: %w", seq, err)
		}
		if !crypto.Verify(pubkey, signingBytes, sig) {
			return fmt.Errorf("ledger: entry %d: signature does not verify", seq)
		}

		previousHash = entry.EntryHash
	}
	return nil
}

func (s *Store) loadEntry(containerID string, sequence uint64) (LedgerEntry, error) {
	raw, err := s.kv.Get(entryKey(containerID, sequence))
	if err != nil {
		return LedgerEntry{}, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if len(raw) == 0 {
		return LedgerEntry{}, fmt.Errorf("ledger: no entry at sequence %d for %s", sequence, containerID)
	}
	var entry LedgerEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return LedgerEntry{}, fmt.Errorf("%w: corrupt entry: %v", ErrStorageUnavailable, err)
	}
	return entry, nil
}
