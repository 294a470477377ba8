package edhoc

import "bytes"

// IDCredKind distinguishes the two ways a peer's credential can be
// referenced in PLAINTEXT_2/PLAINTEXT_3: a compact one-byte kid, or the
// full CCS credential bytes.
type IDCredKind uint8

const (
	// ByReference identifies a credential by its kid alone.
	ByReference IDCredKind = iota
	// ByValue carries the complete credential bytes.
	ByValue
)

// IDCred is the parsed ID_CRED_R / ID_CRED_I hint: either a compact kid or
// a full credential, per §4.4's wire format.
type IDCred struct {
	Kind  IDCredKind
	Kid   uint8
	Value MessageBuffer
}

// credentialCheckOrFetch resolves received against an optionally-known
// expected credential, per the protocol's credential resolution policy:
// the parser only ever yields an identifier; this function is where the
// caller's trust decision is applied before a MAC is recomputed over the
// resulting credential bytes.
func credentialCheckOrFetch(expected *CredentialRPK, received IDCred) (CredentialRPK, *Error) {
	switch {
	case expected != nil && received.Kind == ByReference:
		if received.Kid != expected.Kid {
			return CredentialRPK{}, newError(KindUnknownPeer, errCredentialMismatch)
		}
		return *expected, nil

	case expected != nil && received.Kind == ByValue:
		if !bytes.Equal(received.Value.AsSlice(), expected.Value.AsSlice()) {
			return CredentialRPK{}, newError(KindUnknownPeer, errCredentialMismatch)
		}
		return *expected, nil

	case expected == nil && received.Kind == ByValue:
		cred, err := NewCredentialRPK(received.Value.AsSlice())
		if err != nil {
			return CredentialRPK{}, err
		}
		return cred, nil

	default:
		// expected == nil and received is reference-only: trust on
		// first use requires a full credential.
		return CredentialRPK{}, newError(KindUnknownPeer, errCredentialMismatch)
	}
}

var errCredentialMismatch = credentialMismatchError{}

type credentialMismatchError struct{}

func (credentialMismatchError) Error() string { return "edhoc: peer credential mismatch" }

// generateConnectionIdentifier draws a connection identifier uniformly
// from [-24,23] using rejection sampling over crypto.GetRandomByte, so
// that its CBOR encoding is always exactly one byte (an inline uint for
// 0..=23, an inline negint for -1..=-24).
func generateConnectionIdentifier(crypto cryptoRandomSource) (int8, *Error) {
	for {
		b, err := crypto.GetRandomByte()
		if err != nil {
			return 0, wrapCrypto(err)
		}
		// Map the low 6 bits (0..63) onto the 48-value range [-24,23]
		// with rejection of the 16 high values to stay uniform.
		v := int(b & 0x3F)
		if v >= 48 {
			continue
		}
		return int8(v - 24), nil
	}
}

// generateConnectionIdentifierCBOR returns the single-byte CBOR encoding
// of a fresh connection identifier. Per the protocol's own documented
// quirk, a value outside [-24,23] from the identifier generator has no
// valid encoding; since every call site in this engine only ever produces
// in-range values, that condition is treated as a programming-error
// assertion rather than a silently-returned sentinel 0 (see DESIGN.md).
func generateConnectionIdentifierCBOR(crypto cryptoRandomSource) (byte, *Error) {
	id, err := generateConnectionIdentifier(crypto)
	if err != nil {
		return 0, err
	}
	if id >= 0 {
		return byte(id), nil
	}
	n := -1 - int(id)
	if n < 0 || n > 23 {
		panic("edhoc: generateConnectionIdentifier produced an out-of-range value")
	}
	return 0x20 | byte(n), nil
}

// cryptoRandomSource is the narrow slice of edhoccrypto.Suite this file
// needs, so policy.go doesn't import the full Suite for one method.
type cryptoRandomSource interface {
	GetRandomByte() (byte, error)
}
