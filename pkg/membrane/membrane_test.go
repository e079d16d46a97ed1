package membrane

import (
	"strings"
	"testing"

	"github.com/ubl-core/ledger-core/pkg/crypto"
	"github.com/ubl-core/ledger-core/pkg/envelope"
)

type fixture struct {
	pub  []byte
	priv []byte
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	pub, priv, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("generate keypair: %v", err)
	}
	return fixture{pub: pub, priv: priv}
}

func (f fixture) sign(t *testing.T, link envelope.LinkCommit) (envelope.LinkCommit, []byte) {
	t.Helper()
	sb, err := envelope.SigningBytes(link)
	if err != nil {
		t.Fatalf("signing bytes: %v", err)
	}
	sig := crypto.Sign(f.priv, sb)
	link.Signature = hexEncode(sig)
	return link, sb
}

func hexEncode(b []byte) string {
	const digits = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, c := range b {
		out[i*2] = digits[c>>4]
		out[i*2+1] = digits[c&0xf]
	}
	return string(out)
}

func genesisLink(f fixture) envelope.LinkCommit {
	return envelope.LinkCommit{
		Version:          1,
		ContainerID:      "wallet_alice",
		ExpectedSequence: 0,
		PreviousHash:     envelope.ZeroHash,
		AtomHash:         strings.Repeat("a", 64),
		IntentClass:      envelope.Entropy,
		PhysicsDelta:     1000,
		AuthorPubkey:     hexEncode(f.pub),
	}
}

func emptyState() StateSnapshot {
	return StateSnapshot{Sequence: 0, LastHash: envelope.ZeroHash, PhysicalBalance: 0}
}

func TestValidateAcceptsValidGenesis(t *testing.T) {
	f := newFixture(t)
	link, sb := f.sign(t, genesisLink(f))
	d := Validate(link, sb, "wallet_alice", emptyState())
	if !d.Accepted {
		t.Fatalf("expected accept, got reject %s: %s", d.Code, d.Message)
	}
}

func TestV1InvalidVersion(t *testing.T) {
	f := newFixture(t)
	l := genesisLink(f)
	l.Version = 2
	link, sb := f.sign(t, l)
	d := Validate(link, sb, "wallet_alice", emptyState())
	if d.Accepted || d.Code != InvalidVersion {
		t.Fatalf("expected V1_INVALID_VERSION, got %+v", d)
	}
}

func TestV2ContainerMismatch(t *testing.T) {
	f := newFixture(t)
	link, sb := f.sign(t, genesisLink(f))
	d := Validate(link, sb, "wallet_bob", emptyState())
	if d.Accepted || d.Code != ContainerMismatch {
		t.Fatalf("expected V2_CONTAINER_MISMATCH, got %+v", d)
	}
}

func TestV3SignatureInvalid(t *testing.T) {
	f := newFixture(t)
	link, sb := f.sign(t, genesisLink(f))
	// flip a signature byte
	raw := []byte(link.Signature)
	raw[0] = flipHexChar(raw[0])
	link.Signature = string(raw)
	d := Validate(link, sb, "wallet_alice", emptyState())
	if d.Accepted || d.Code != SignatureInvalid {
		t.Fatalf("expected V3_SIGNATURE_INVALID, got %+v", d)
	}
}

func flipHexChar(c byte) byte {
	if c == '0' {
		return '1'
	}
	return '0'
}

func TestV4RealityDrift(t *testing.T) {
	f := newFixture(t)
	l := genesisLink(f)
	l.ExpectedSequence = 1
	link, sb := f.sign(t, l)
	state := StateSnapshot{Sequence: 1, LastHash: strings.Repeat("c", 64), PhysicalBalance: 1000}
	d := Validate(link, sb, "wallet_alice", state)
	if d.Accepted || d.Code != RealityDrift {
		t.Fatalf("expected V4_REALITY_DRIFT, got %+v", d)
	}
}

func TestV5SequenceMismatch(t *testing.T) {
	f := newFixture(t)
	l := genesisLink(f)
	l.ExpectedSequence = 2
	l.PreviousHash = envelope.ZeroHash
	link, sb := f.sign(t, l)
	d := Validate(link, sb, "wallet_alice", emptyState())
	if d.Accepted || d.Code != SequenceMismatch {
		t.Fatalf("expected V5_SEQUENCE_MISMATCH, got %+v", d)
	}
}

func TestV6InvalidAtomHash(t *testing.T) {
	f := newFixture(t)
	l := genesisLink(f)
	l.AtomHash = "not-hex"
	link, sb := f.sign(t, l)
	d := Validate(link, sb, "wallet_alice", emptyState())
	if d.Accepted || d.Code != InvalidAtomHash {
		t.Fatalf("expected V6_INVALID_ATOM_HASH, got %+v", d)
	}
}

func TestV7ObservationMustBeZero(t *testing.T) {
	f := newFixture(t)
	l := genesisLink(f)
	l.IntentClass = envelope.Observation
	l.PhysicsDelta = 5
	link, sb := f.sign(t, l)
	d := Validate(link, sb, "wallet_alice", emptyState())
	if d.Accepted || d.Code != ObservationMustBeZero {
		t.Fatalf("expected V7_OBSERVATION_MUST_BE_ZERO, got %+v", d)
	}
}

func TestV7ConservationViolation(t *testing.T) {
	f := newFixture(t)
	l := genesisLink(f)
	l.IntentClass = envelope.Conservation
	l.PhysicsDelta = -50
	link, sb := f.sign(t, l)
	d := Validate(link, sb, "wallet_alice", emptyState())
	if d.Accepted || d.Code != ConservationViolation {
		t.Fatalf("expected V7_CONSERVATION_VIOLATION, got %+v", d)
	}
}

func TestV7ConservationAllowsNonNegativeResult(t *testing.T) {
	f := newFixture(t)
	l := genesisLink(f)
	l.ExpectedSequence = 1
	l.PreviousHash = strings.Repeat("c", 64)
	l.IntentClass = envelope.Conservation
	l.PhysicsDelta = -100
	link, sb := f.sign(t, l)
	state := StateSnapshot{Sequence: 1, LastHash: strings.Repeat("c", 64), PhysicalBalance: 1000}
	d := Validate(link, sb, "wallet_alice", state)
	if !d.Accepted {
		t.Fatalf("expected accept, got reject %s: %s", d.Code, d.Message)
	}
}

func TestV7EvolutionAndEntropyAllowAnyDelta(t *testing.T) {
	f := newFixture(t)
	for _, class := range []envelope.IntentClass{envelope.Entropy, envelope.Evolution} {
		l := genesisLink(f)
		l.IntentClass = class
		l.PhysicsDelta = -999999
		link, sb := f.sign(t, l)
		d := Validate(link, sb, "wallet_alice", emptyState())
		if !d.Accepted {
			t.Fatalf("class %s: expected accept, got reject %s: %s", class, d.Code, d.Message)
		}
	}
}
