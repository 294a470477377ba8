package edhoc

import "github.com/go-edhoc/edhoc-go/edhoccrypto"

// ResponderStart holds a fresh ephemeral key pair, generated up front so
// it is ready the moment message_1 arrives.
type ResponderStart struct {
	crypto edhoccrypto.Suite
	y      [32]byte
	gy     [32]byte
}

// NewResponder generates an ephemeral P-256 key pair and returns the
// Responder's starting state.
func NewResponder(crypto edhoccrypto.Suite) (ResponderStart, *Error) {
	y, gy, err := crypto.P256GenerateKeyPair()
	if err != nil {
		return ResponderStart{}, wrapCrypto(err)
	}
	return ResponderStart{crypto: crypto, y: y, gy: gy}, nil
}

// ProcessingM1 holds everything parsed from message_1, after the
// method/suite checks have passed.
type ProcessingM1 struct {
	crypto    edhoccrypto.Suite
	y         [32]byte
	gy        [32]byte
	gx        [32]byte
	ci        int8
	hMessage1 [32]byte
	ead       *EADItem
}

// CI returns the connection identifier the Initiator selected.
func (p ProcessingM1) CI() int8 { return p.ci }

// EAD1 returns message_1's optional EAD item, if any.
func (p ProcessingM1) EAD1() *EADItem { return p.ead }

// ProcessMessage1 consumes s and the wire bytes of message_1, rejecting
// an unsupported method or cipher suite before any cryptographic work.
func (s ResponderStart) ProcessMessage1(wire []byte) (state ProcessingM1, outErr *Error) {
	defer func() { logTransition("responder", "process_message_1", outErr) }()

	m, err := parseMessage1(wire)
	if err != nil {
		return ProcessingM1{}, err
	}
	if m.Method != supportedMethod {
		return ProcessingM1{}, newError(KindUnsupportedMethod, errUnsupportedMethod)
	}
	if serr := checkSuitesI(m.SuitesI); serr != nil {
		return ProcessingM1{}, serr
	}

	h := s.crypto.SHA256(wire)
	return ProcessingM1{
		crypto:    s.crypto,
		y:         s.y,
		gy:        s.gy,
		gx:        m.GX,
		ci:        m.CI,
		hMessage1: h,
		ead:       m.EAD,
	}, nil
}

var errUnsupportedMethod = unsupportedMethodError{}

type unsupportedMethodError struct{}

func (unsupportedMethodError) Error() string { return "edhoc: unsupported EDHOC method" }

// WaitM3 holds the key schedule state needed to process message_3.
type WaitM3 struct {
	crypto  edhoccrypto.Suite
	y       [32]byte
	prk3e2m [32]byte
	th3     [32]byte
}

// PrepareMessage2 consumes p, computing MAC_2 over credR (the
// Responder's own credential), encrypting PLAINTEXT_2 under KEYSTREAM_2,
// and returning the next state plus the encoded message_2. If cr is nil,
// a fresh connection identifier is generated. rPriv is the Responder's
// own static private key.
func (p ProcessingM1) PrepareMessage2(rPriv [32]byte, cr *int8, idCredR IDCred, credR []byte, ead2 *EADItem) (state WaitM3, wireOut []byte, outErr *Error) {
	defer func() { logTransition("responder", "prepare_message_2", outErr) }()

	cID, err := resolveConnectionIdentifier(p.crypto, cr)
	if err != nil {
		return WaitM3{}, nil, err
	}

	th2v := th2(p.crypto, p.gy, p.hMessage1)

	gxy, cerr := p.crypto.P256ECDH(p.y, p.gx)
	if cerr != nil {
		return WaitM3{}, nil, wrapCrypto(cerr)
	}
	prk2e := p.crypto.HKDFExtract(th2v[:], gxy[:])

	grx, cerr := p.crypto.P256ECDH(rPriv, p.gx)
	if cerr != nil {
		return WaitM3{}, nil, wrapCrypto(cerr)
	}
	salt3e2m, kerr := edhocKDF(p.crypto, prk2e[:], 1, th2v[:], 32)
	if kerr != nil {
		return WaitM3{}, nil, kerr
	}
	prk3e2m := p.crypto.HKDFExtract(salt3e2m, grx[:])

	ctx2 := macContext(idCredR, th2v, credR, ead2)
	mac2, merr := edhocKDF(p.crypto, prk3e2m[:], 2, ctx2, 8)
	if merr != nil {
		return WaitM3{}, nil, merr
	}
	var mac2Arr [8]byte
	copy(mac2Arr[:], mac2)

	pt2 := plaintext2{CR: cID, IDCredR: idCredR, MAC2: mac2Arr, EAD: ead2}
	plain, eerr := encodePlaintext2(pt2)
	if eerr != nil {
		return WaitM3{}, nil, eerr
	}

	ks, kerr := keystream2(p.crypto, prk2e[:], th2v, len(plain))
	if kerr != nil {
		return WaitM3{}, nil, kerr
	}
	ct2 := make([]byte, len(plain))
	copy(ct2, plain)
	xorInto(ct2, ks)

	th3v := th3(p.crypto, th2v, plain, credR)

	wire := encodeMessage2(p.gy, ct2)
	return WaitM3{crypto: p.crypto, y: p.y, prk3e2m: prk3e2m, th3: th3v}, wire, nil
}

// ProcessingM3 holds PLAINTEXT_3, decrypted but with MAC_3 not yet
// verified against a resolved Initiator credential.
type ProcessingM3 struct {
	crypto  edhoccrypto.Suite
	y       [32]byte
	prk3e2m [32]byte
	th3     [32]byte
	pt      plaintext3
}

// IDCredI returns the credential hint PLAINTEXT_3 carried for the
// Initiator, to be resolved before calling VerifyMessage3.
func (p ProcessingM3) IDCredI() IDCred { return p.pt.IDCredI }

// EAD3 returns message_3's optional EAD item, if any.
func (p ProcessingM3) EAD3() *EADItem { return p.pt.EAD }

// ParseMessage3 consumes s and the wire bytes of message_3, decrypting
// CIPHERTEXT_3 under K_3/IV_3/Enc0(TH_3). A failed AEAD tag check is
// reported as MacVerificationFailed.
func (s WaitM3) ParseMessage3(wire []byte) (state ProcessingM3, outErr *Error) {
	defer func() { logTransition("responder", "parse_message_3", outErr) }()

	ct3, err := message3Bstr(wire)
	if err != nil {
		return ProcessingM3{}, err
	}

	k3Slice, kerr := edhocKDF(s.crypto, s.prk3e2m[:], 3, s.th3[:], edhoccrypto.AESCCMKeyLen)
	if kerr != nil {
		return ProcessingM3{}, kerr
	}
	iv3Slice, kerr := edhocKDF(s.crypto, s.prk3e2m[:], 4, s.th3[:], edhoccrypto.AESCCMIVLen)
	if kerr != nil {
		return ProcessingM3{}, kerr
	}
	var k3 [edhoccrypto.AESCCMKeyLen]byte
	var iv3 [edhoccrypto.AESCCMIVLen]byte
	copy(k3[:], k3Slice)
	copy(iv3[:], iv3Slice)

	plain, cerr := s.crypto.AESCCMDecrypt(k3, iv3, enc0AAD(s.th3), ct3)
	if cerr != nil {
		return ProcessingM3{}, wrapCrypto(cerr)
	}

	pt, perr := parsePlaintext3(plain)
	if perr != nil {
		return ProcessingM3{}, perr
	}

	return ProcessingM3{crypto: s.crypto, y: s.y, prk3e2m: s.prk3e2m, th3: s.th3, pt: pt}, nil
}

// VerifyMessage3 consumes p, recomputing MAC_3 against credI (the
// Initiator's credential, already resolved by the caller) and, on
// success, deriving PRK_out and PRK_exporter.
func (p ProcessingM3) VerifyMessage3(credI CredentialRPK) (state Completed, outErr *Error) {
	defer func() { logTransition("responder", "verify_message_3", outErr) }()

	giy, cerr := p.crypto.P256ECDH(p.y, credI.PublicKey)
	if cerr != nil {
		return Completed{}, wrapCrypto(cerr)
	}
	salt4e3m, kerr := edhocKDF(p.crypto, p.prk3e2m[:], 5, p.th3[:], 32)
	if kerr != nil {
		return Completed{}, kerr
	}
	prk4e3m := p.crypto.HKDFExtract(salt4e3m, giy[:])

	credIBytes := credI.Value.AsSlice()
	ctx3 := macContext(p.pt.IDCredI, p.th3, credIBytes, p.pt.EAD)
	mac3, merr := edhocKDF(p.crypto, prk4e3m[:], 6, ctx3, 8)
	if merr != nil {
		return Completed{}, merr
	}
	if !constantTimeEqual(mac3, p.pt.MAC3[:]) {
		return Completed{}, newError(KindMacVerificationFailed, errMac3Mismatch)
	}

	plaintext3Bytes, eerr := encodePlaintext3(p.pt)
	if eerr != nil {
		return Completed{}, eerr
	}
	th4v := th4(p.crypto, p.th3, plaintext3Bytes, credIBytes)

	prkOutSlice, kerr := edhocKDF(p.crypto, prk4e3m[:], 7, th4v[:], 32)
	if kerr != nil {
		return Completed{}, kerr
	}
	var prkOut [32]byte
	copy(prkOut[:], prkOutSlice)
	prkExporter, kerr := derivePRKExporter(p.crypto, prkOut)
	if kerr != nil {
		return Completed{}, kerr
	}

	return Completed{crypto: p.crypto, prkOut: prkOut, prkExporter: prkExporter}, nil
}

var errMac3Mismatch = mac3MismatchError{}

type mac3MismatchError struct{}

func (mac3MismatchError) Error() string { return "edhoc: MAC_3 verification failed" }
