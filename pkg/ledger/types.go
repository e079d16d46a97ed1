package ledger

import "github.com/ubl-core/ledger-core/pkg/envelope"

// LedgerEntry is a persisted record of one accepted commit. Entries for a
// container form an ordered sequence starting at 0 with no gaps; once
// persisted, no entry field is ever mutated or removed.
type LedgerEntry struct {
	Sequence  uint64              `json:"sequence"`
	EntryHash string              `json:"entry_hash"`
	Link      envelope.LinkCommit `json:"link"`
	Timestamp int64               `json:"timestamp"`
}

// ContainerState is the derived (not stored as primary data) projection of
// a container's chain: the next expected sequence, the hash of the final
// entry, the running physics balance, and the Merkle root over all entry
// hashes.
type ContainerState struct {
	ContainerID     string `json:"container_id"`
	Sequence        uint64 `json:"sequence"`
	LastHash        string `json:"last_hash"`
	PhysicalBalance int64  `json:"physical_balance"`
	MerkleRoot      string `json:"merkle_root"`
}

// Receipt is returned for a successfully committed LinkCommit.
type Receipt struct {
	ContainerID string `json:"container_id"`
	EntryHash   string `json:"entry_hash"`
	Sequence    uint64 `json:"sequence"`
	Timestamp   int64  `json:"timestamp"`
}

// containerMeta is the compact, KV-persisted projection of a container's
// state used to reload it without replaying the entire entry list. It is
// always replaced wholesale (never mutated in place) so a reader that
// loaded a snapshot before a concurrent commit never observes a partially
// updated value.
type containerMeta struct {
	Sequence        uint64   `json:"sequence"`
	LastHash        string   `json:"last_hash"`
	PhysicalBalance int64    `json:"physical_balance"`
	EntryHashes     []string `json:"entry_hashes"`
}
