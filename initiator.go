package edhoc

import (
	"github.com/go-edhoc/edhoc-go/cbor"
	"github.com/go-edhoc/edhoc-go/edhoccrypto"
)

// InitiatorStart holds a fresh ephemeral key pair and the single suite
// this engine offers. It is consumed by PrepareMessage1.
type InitiatorStart struct {
	crypto  edhoccrypto.Suite
	x       [32]byte
	gx      [32]byte
	suitesI []uint8
}

// NewInitiator generates an ephemeral P-256 key pair and returns the
// Initiator's starting state.
func NewInitiator(crypto edhoccrypto.Suite) (InitiatorStart, *Error) {
	x, gx, err := crypto.P256GenerateKeyPair()
	if err != nil {
		return InitiatorStart{}, wrapCrypto(err)
	}
	return InitiatorStart{crypto: crypto, x: x, gx: gx, suitesI: []uint8{supportedSuite}}, nil
}

// WaitM2 holds what's needed to process message_2: the ephemeral private
// key and the hash of the sent message_1.
type WaitM2 struct {
	crypto    edhoccrypto.Suite
	x         [32]byte
	hMessage1 [32]byte
}

// PrepareMessage1 consumes s, returning the next state and the encoded
// message_1. If ci is nil, a fresh connection identifier is drawn.
func (s InitiatorStart) PrepareMessage1(ci *int8, ead *EADItem) (state WaitM2, wireOut []byte, outErr *Error) {
	defer func() { logTransition("initiator", "prepare_message_1", outErr) }()

	cID, err := resolveConnectionIdentifier(s.crypto, ci)
	if err != nil {
		return WaitM2{}, nil, err
	}

	m := message1{
		Method:  supportedMethod,
		SuitesI: s.suitesI,
		GX:      s.gx,
		CI:      cID,
		EAD:     ead,
	}
	wire, eerr := encodeMessage1(m)
	if eerr != nil {
		return WaitM2{}, nil, eerr
	}

	h := s.crypto.SHA256(wire)
	return WaitM2{crypto: s.crypto, x: s.x, hMessage1: h}, wire, nil
}

func resolveConnectionIdentifier(crypto edhoccrypto.Suite, ci *int8) (int8, *Error) {
	if ci != nil {
		return *ci, nil
	}
	return generateConnectionIdentifier(crypto)
}

// ProcessingM2 holds everything parsed and derived from message_2, before
// MAC_2 has been verified against a resolved credential.
type ProcessingM2 struct {
	crypto    edhoccrypto.Suite
	x         [32]byte
	gY        [32]byte
	hMessage1 [32]byte
	th2       [32]byte
	prk2e     [32]byte
	pt        plaintext2
}

// CR returns the peer-selected or peer-generated connection identifier
// carried by message_2.
func (p ProcessingM2) CR() int8 { return p.pt.CR }

// IDCredR returns the credential hint PLAINTEXT_2 carried for the
// Responder, to be resolved via credentialCheckOrFetch before calling
// VerifyMessage2.
func (p ProcessingM2) IDCredR() IDCred { return p.pt.IDCredR }

// EAD2 returns message_2's optional EAD item, if any.
func (p ProcessingM2) EAD2() *EADItem { return p.pt.EAD }

// ParseMessage2 consumes s and the wire bytes of message_2, decrypting
// PLAINTEXT_2 but not yet verifying MAC_2 (the caller must first resolve
// the peer credential).
func (s WaitM2) ParseMessage2(wire []byte) (state ProcessingM2, outErr *Error) {
	defer func() { logTransition("initiator", "parse_message_2", outErr) }()

	payload, err := message2Bstr(wire)
	if err != nil {
		return ProcessingM2{}, err
	}
	gY, ct2, ok := splitMessage2(payload)
	if !ok {
		return ProcessingM2{}, newError(KindParsingError, errShortMessage2)
	}

	th2v := th2(s.crypto, gY, s.hMessage1)

	gxy, cerr := s.crypto.P256ECDH(s.x, gY)
	if cerr != nil {
		return ProcessingM2{}, wrapCrypto(cerr)
	}
	prk2e := s.crypto.HKDFExtract(th2v[:], gxy[:])

	ks, kerr := keystream2(s.crypto, prk2e[:], th2v, len(ct2))
	if kerr != nil {
		return ProcessingM2{}, kerr
	}
	plain := make([]byte, len(ct2))
	copy(plain, ct2)
	xorInto(plain, ks)

	pt, perr := parsePlaintext2(plain)
	if perr != nil {
		return ProcessingM2{}, perr
	}

	return ProcessingM2{
		crypto:    s.crypto,
		x:         s.x,
		gY:        gY,
		hMessage1: s.hMessage1,
		th2:       th2v,
		prk2e:     prk2e,
		pt:        pt,
	}, nil
}

var errShortMessage2 = shortMessage2Error{}

type shortMessage2Error struct{}

func (shortMessage2Error) Error() string { return "edhoc: message_2 shorter than G_Y" }

// ProcessedM2 holds the key schedule state derived after MAC_2 has been
// verified: PRK_3e2m, PRK_4e3m, and TH_3.
// ephemeral private keys are dropped once PRK_3e2m is derived; only the
// derived key schedule and TH_3 survive into ProcessedM2.
type ProcessedM2 struct {
	crypto  edhoccrypto.Suite
	prk3e2m [32]byte
	prk4e3m [32]byte
	th3     [32]byte
}

// VerifyMessage2 consumes p, recomputing MAC_2 against credR (the
// Responder's credential, already resolved by the caller via
// credentialCheckOrFetch) and, on success, deriving the key material
// needed to produce message_3. iPriv is the Initiator's own static
// private key.
func (p ProcessingM2) VerifyMessage2(iPriv [32]byte, credR CredentialRPK) (state ProcessedM2, outErr *Error) {
	defer func() { logTransition("initiator", "verify_message_2", outErr) }()

	grx, cerr := p.crypto.P256ECDH(p.x, credR.PublicKey)
	if cerr != nil {
		return ProcessedM2{}, wrapCrypto(cerr)
	}
	salt3e2m, kerr := edhocKDF(p.crypto, p.prk2e[:], 1, p.th2[:], 32)
	if kerr != nil {
		return ProcessedM2{}, kerr
	}
	prk3e2m := p.crypto.HKDFExtract(salt3e2m, grx[:])

	credRBytes := credR.Value.AsSlice()
	ctx2 := macContext(p.pt.IDCredR, p.th2, credRBytes, p.pt.EAD)
	mac2, merr := edhocKDF(p.crypto, prk3e2m[:], 2, ctx2, 8)
	if merr != nil {
		return ProcessedM2{}, merr
	}
	if !constantTimeEqual(mac2, p.pt.MAC2[:]) {
		return ProcessedM2{}, newError(KindMacVerificationFailed, errMac2Mismatch)
	}

	plaintext2Bytes, eerr := encodePlaintext2(p.pt)
	if eerr != nil {
		return ProcessedM2{}, eerr
	}
	th3v := th3(p.crypto, p.th2, plaintext2Bytes, credRBytes)

	giy, cerr := p.crypto.P256ECDH(iPriv, p.gY)
	if cerr != nil {
		return ProcessedM2{}, wrapCrypto(cerr)
	}
	salt4e3m, kerr := edhocKDF(p.crypto, prk3e2m[:], 5, th3v[:], 32)
	if kerr != nil {
		return ProcessedM2{}, kerr
	}
	prk4e3m := p.crypto.HKDFExtract(salt4e3m, giy[:])

	return ProcessedM2{
		crypto:  p.crypto,
		prk3e2m: prk3e2m,
		prk4e3m: prk4e3m,
		th3:     th3v,
	}, nil
}

var errMac2Mismatch = mac2MismatchError{}

type mac2MismatchError struct{}

func (mac2MismatchError) Error() string { return "edhoc: MAC_2 verification failed" }

// Completed is the final state of either role: PRK_out and PRK_exporter,
// the only secrets retained past handshake completion.
type Completed struct {
	crypto      edhoccrypto.Suite
	prkOut      [32]byte
	prkExporter [32]byte
}

// PrepareMessage3 consumes p, building PLAINTEXT_3 around idCredI (either
// a compact kid or a full credential, per the caller's transfer choice),
// computing MAC_3, encrypting CIPHERTEXT_3, and deriving PRK_out and
// PRK_exporter. credI is the Initiator's own credential bytes (CRED_I).
func (p ProcessedM2) PrepareMessage3(idCredI IDCred, credI []byte, ead3 *EADItem) (state Completed, wireOut []byte, outErr *Error) {
	defer func() { logTransition("initiator", "prepare_message_3", outErr) }()

	ctx3 := macContext(idCredI, p.th3, credI, ead3)
	mac3, merr := edhocKDF(p.crypto, p.prk4e3m[:], 6, ctx3, 8)
	if merr != nil {
		return Completed{}, nil, merr
	}
	var mac3Arr [8]byte
	copy(mac3Arr[:], mac3)

	pt3 := plaintext3{IDCredI: idCredI, MAC3: mac3Arr, EAD: ead3}
	plaintext3Bytes, eerr := encodePlaintext3(pt3)
	if eerr != nil {
		return Completed{}, nil, eerr
	}

	k3Slice, kerr := edhocKDF(p.crypto, p.prk3e2m[:], 3, p.th3[:], edhoccrypto.AESCCMKeyLen)
	if kerr != nil {
		return Completed{}, nil, kerr
	}
	iv3Slice, kerr := edhocKDF(p.crypto, p.prk3e2m[:], 4, p.th3[:], edhoccrypto.AESCCMIVLen)
	if kerr != nil {
		return Completed{}, nil, kerr
	}
	var k3 [edhoccrypto.AESCCMKeyLen]byte
	var iv3 [edhoccrypto.AESCCMIVLen]byte
	copy(k3[:], k3Slice)
	copy(iv3[:], iv3Slice)

	ct3, cerr := p.crypto.AESCCMEncrypt(k3, iv3, enc0AAD(p.th3), plaintext3Bytes)
	if cerr != nil {
		return Completed{}, nil, wrapCrypto(cerr)
	}

	th4v := th4(p.crypto, p.th3, plaintext3Bytes, credI)
	prkOutSlice, kerr := edhocKDF(p.crypto, p.prk4e3m[:], 7, th4v[:], 32)
	if kerr != nil {
		return Completed{}, nil, kerr
	}
	var prkOut [32]byte
	copy(prkOut[:], prkOutSlice)
	prkExporter, kerr := derivePRKExporter(p.crypto, prkOut)
	if kerr != nil {
		return Completed{}, nil, kerr
	}

	wire := encodeMessage3(ct3)
	return Completed{crypto: p.crypto, prkOut: prkOut, prkExporter: prkExporter}, wire, nil
}

func derivePRKExporter(crypto edhoccrypto.Suite, prkOut [32]byte) ([32]byte, *Error) {
	var out [32]byte
	s, err := edhocKDF(crypto, prkOut[:], 10, nil, 32)
	if err != nil {
		return out, err
	}
	copy(out[:], s)
	return out, nil
}

// Exporter derives application key material: edhoc_kdf(PRK_exporter,
// label, context, length).
func (c Completed) Exporter(label uint8, context []byte, length int) (out []byte, outErr *Error) {
	defer func() { logTransition("edhoc", "edhoc_exporter", outErr) }()
	return edhocKDF(c.crypto, c.prkExporter[:], label, context, length)
}

// KeyUpdate reseeds PRK_out from context and recomputes PRK_exporter,
// returning the updated Completed state.
func (c Completed) KeyUpdate(context []byte) (state Completed, outErr *Error) {
	defer func() { logTransition("edhoc", "edhoc_key_update", outErr) }()

	s, err := edhocKDF(c.crypto, c.prkExporter[:], 11, context, 32)
	if err != nil {
		return Completed{}, err
	}
	var prkOut [32]byte
	copy(prkOut[:], s)
	prkExporter, err := derivePRKExporter(c.crypto, prkOut)
	if err != nil {
		return Completed{}, err
	}
	return Completed{crypto: c.crypto, prkOut: prkOut, prkExporter: prkExporter}, nil
}

// macContext builds the CBOR sequence ID_CRED, TH, CRED, ?EAD shared by
// MAC_2 and MAC_3.
func macContext(idCred IDCred, th [32]byte, cred []byte, ead *EADItem) []byte {
	e := cbor.NewEncoder(make([]byte, 0, 64+len(cred)))
	encodeIDCred(e, idCred)
	e.Bytes(th[:])
	e.Bytes(cred)
	_ = encodeEAD(e, ead)
	return e.Out()
}

func constantTimeEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	var v byte
	for i := range a {
		v |= a[i] ^ b[i]
	}
	return v == 0
}
