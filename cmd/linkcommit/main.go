// Copyright 2025 Certen Protocol
//
// linkcommit is a developer aid: it generates an Ed25519 keypair (or reuses
// one supplied via flags), builds a LinkCommit for a given atom payload,
// signs it, and prints the envelope as JSON for piping into curl. It is not
// the client SDK spec.md excludes — just a one-off key/setup tool, in the
// shape of the teacher's own cmd/bls-zk-setup.
package main

import (
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/ubl-core/ledger-core/pkg/crypto"
	"github.com/ubl-core/ledger-core/pkg/envelope"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	containerID := flag.String("container", "", "target container_id")
	expectedSequence := flag.Uint64("sequence", 0, "expected_sequence for this commit")
	previousHash := flag.String("previous-hash", envelope.ZeroHash, "previous_hash (defaults to genesis zero hash)")
	atomPayload := flag.String("atom", "", "raw atom payload to hash into atom_hash")
	intentClass := flag.String("intent", string(envelope.Observation), "intent_class: observation, conservation, entropy, evolution")
	physicsDelta := flag.Int64("delta", 0, "physics_delta")
	privateKeyHex := flag.String("private-key", "", "hex Ed25519 private key; generated if omitted")
	flag.Parse()

	if *containerID == "" {
		return fmt.Errorf("linkcommit: -container is required")
	}
	if *atomPayload == "" {
		return fmt.Errorf("linkcommit: -atom is required")
	}

	var priv ed25519.PrivateKey
	if *privateKeyHex != "" {
		decoded, err := hex.DecodeString(*privateKeyHex)
		if err != nil {
			return fmt.Errorf("linkcommit: invalid -private-key: %w", err)
		}
		if len(decoded) != ed25519.PrivateKeySize {
			return fmt.Errorf("linkcommit: -private-key must be %d bytes, got %d", ed25519.PrivateKeySize, len(decoded))
		}
		priv = ed25519.PrivateKey(decoded)
	} else {
		_, generated, err := crypto.GenerateKeyPair()
		if err != nil {
			return fmt.Errorf("linkcommit: generate key pair: %w", err)
		}
		priv = generated
		fmt.Fprintf(os.Stderr, "generated new private key (save it if you want to reuse it): %s\n", hex.EncodeToString(priv))
	}
	pub := priv.Public().(ed25519.PublicKey)

	link := envelope.LinkCommit{
		Version:          1,
		ContainerID:      *containerID,
		ExpectedSequence: *expectedSequence,
		PreviousHash:     *previousHash,
		AtomHash:         crypto.HashAtom([]byte(*atomPayload)),
		IntentClass:      envelope.IntentClass(*intentClass),
		PhysicsDelta:     *physicsDelta,
		AuthorPubkey:     hex.EncodeToString(pub),
	}

	signingBytes, err := envelope.SigningBytes(link)
	if err != nil {
		return fmt.Errorf("linkcommit: signing bytes: %w", err)
	}
	link.Signature = hex.EncodeToString(crypto.Sign(priv, signingBytes))

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(link)
}
